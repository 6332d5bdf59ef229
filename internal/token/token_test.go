package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldAndReserved(t *testing.T) {
	assert.True(t, IsReserved("match"))
	assert.True(t, IsReserved("MaTcH"))
	assert.True(t, IsReserved("optional"))
	assert.False(t, IsReserved("person"))
	assert.False(t, IsReserved(""))
}

func TestTokenIsMatchesKeywordsOnly(t *testing.T) {
	kw := Token{Kind: Keyword, Text: "match", Value: "match"}
	assert.True(t, kw.Is("MATCH"))
	assert.False(t, kw.Is("RETURN"))

	// An escaped identifier spelling a keyword is still an identifier.
	ident := Token{Kind: Ident, Text: "`match`", Value: "match"}
	assert.False(t, ident.Is("MATCH"))
}

func TestCover(t *testing.T) {
	a := Span{Start: 5, End: 10, Line: 1, Column: 6}
	b := Span{Start: 12, End: 20, Line: 2, Column: 3}

	got := Cover(a, b)
	assert.Equal(t, Span{Start: 5, End: 20, Line: 1, Column: 6}, got)

	// Order of arguments does not matter.
	assert.Equal(t, got, Cover(b, a))
}

func TestSpanString(t *testing.T) {
	assert.Equal(t, "3:14", Span{Start: 40, End: 41, Line: 3, Column: 14}.String())
}
