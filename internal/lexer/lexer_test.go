package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestScanClause(t *testing.T) {
	toks, err := ScanAll("MATCH (n:Person) RETURN n")
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.Keyword, token.LParen, token.Ident, token.Colon, token.Ident,
		token.RParen, token.Keyword, token.Ident, token.EOF,
	}, kinds(toks))
	assert.Equal(t, "MATCH", toks[0].Value)
	assert.Equal(t, "Person", toks[4].Value)
}

func TestSpansCoverSource(t *testing.T) {
	src := "MATCH (n:Person {name: 'Ada'})\nRETURN n.name // done"
	toks, err := ScanAll(src)
	require.NoError(t, err)

	for _, tok := range toks {
		assert.Equal(t, src[tok.Span.Start:tok.Span.End], tok.Text)
	}
}

func TestLineColumnTracking(t *testing.T) {
	toks, err := ScanAll("MATCH (n)\r\nRETURN n")
	require.NoError(t, err)

	ret := toks[4]
	assert.True(t, ret.Is("RETURN"))
	assert.Equal(t, 2, ret.Span.Line)
	assert.Equal(t, 1, ret.Span.Column)
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
	}{
		{"42", token.Integer},
		{"0xdeadBEEF", token.Integer},
		{"0o777", token.Integer},
		{"3.14", token.Float},
		{"1e10", token.Float},
		{"2.5e-3", token.Float},
	}
	for _, tc := range cases {
		toks, err := ScanAll(tc.src)
		require.NoError(t, err, tc.src)
		require.Len(t, toks, 2, tc.src)
		assert.Equal(t, tc.kind, toks[0].Kind, tc.src)
		assert.Equal(t, tc.src, toks[0].Text, tc.src)
	}
}

func TestRangeDoesNotLexAsFloat(t *testing.T) {
	toks, err := ScanAll("1..3")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{token.Integer, token.DotDot, token.Integer, token.EOF}, kinds(toks))
}

func TestStrings(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`'Ada'`, "Ada"},
		{`"Ada"`, "Ada"},
		{`'it\'s'`, "it's"},
		{`"tab\there"`, "tab\there"},
		{`'é'`, "é"},
	}
	for _, tc := range cases {
		toks, err := ScanAll(tc.src)
		require.NoError(t, err, tc.src)
		require.Equal(t, token.String, toks[0].Kind, tc.src)
		assert.Equal(t, tc.want, toks[0].Value, tc.src)
		assert.Equal(t, tc.src, toks[0].Text, tc.src)
	}
}

func TestStringErrors(t *testing.T) {
	for _, src := range []string{`'unterminated`, `'bad \q escape'`, `'\u12'`} {
		_, err := ScanAll(src)
		require.Error(t, err, src)
		var lerr *Error
		require.ErrorAs(t, err, &lerr, src)
		assert.Equal(t, 1, lerr.Span.Line)
	}
}

func TestEscapedIdentifiers(t *testing.T) {
	toks, err := ScanAll("MATCH (`weird name`)")
	require.NoError(t, err)
	assert.Equal(t, token.Ident, toks[2].Kind)
	assert.Equal(t, "weird name", toks[2].Value)

	toks, err = ScanAll("RETURN `a``b`")
	require.NoError(t, err)
	assert.Equal(t, "a`b", toks[1].Value)
}

func TestEscapedKeywordIsIdentifier(t *testing.T) {
	toks, err := ScanAll("RETURN `match`")
	require.NoError(t, err)
	assert.Equal(t, token.Ident, toks[1].Kind)
	assert.Equal(t, "match", toks[1].Value)
}

func TestIdentifierNFCNormalization(t *testing.T) {
	// "é" as e + combining acute normalizes to the precomposed form.
	toks, err := ScanAll("RETURN café")
	require.NoError(t, err)
	assert.Equal(t, "café", toks[1].Value)
}

func TestParameters(t *testing.T) {
	toks, err := ScanAll("RETURN $name, $`odd name`")
	require.NoError(t, err)
	assert.Equal(t, token.Parameter, toks[1].Kind)
	assert.Equal(t, "name", toks[1].Value)
	assert.Equal(t, token.Parameter, toks[3].Kind)
	assert.Equal(t, "odd name", toks[3].Value)
}

func TestOperatorMaximalMunch(t *testing.T) {
	toks, err := ScanAll("<= >= <> =~ += .. -")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.Le, token.Ge, token.Neq, token.Regex, token.PlusEq,
		token.DotDot, token.Minus, token.EOF,
	}, kinds(toks))
}

func TestComments(t *testing.T) {
	toks, err := ScanAll("RETURN /* block /* nested */ comment */ 1 // trailing")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{token.Keyword, token.Integer, token.EOF}, kinds(toks))

	_, err = ScanAll("RETURN /* open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated block comment")
}

func TestNextAfterEOF(t *testing.T) {
	s := New("a")
	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, token.Ident, first.Kind)

	for i := 0; i < 3; i++ {
		tok, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, token.EOF, tok.Kind)
	}
}
