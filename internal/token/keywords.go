package token

import "strings"

// Reserved words of the grammar, stored uppercase. Matching is
// case-insensitive; the parser compares against the folded form.
var reserved = map[string]bool{
	"ALL":        true,
	"AND":        true,
	"AS":         true,
	"ASC":        true,
	"ASCENDING":  true,
	"BY":         true,
	"CALL":       true,
	"CASE":       true,
	"CONTAINS":   true,
	"CREATE":     true,
	"DELETE":     true,
	"DESC":       true,
	"DESCENDING": true,
	"DETACH":     true,
	"DISTINCT":   true,
	"ELSE":       true,
	"END":        true,
	"ENDS":       true,
	"EXISTS":     true,
	"FALSE":      true,
	"IN":         true,
	"IS":         true,
	"LIMIT":      true,
	"MATCH":      true,
	"MERGE":      true,
	"NOT":        true,
	"NULL":       true,
	"ON":         true,
	"OPTIONAL":   true,
	"OR":         true,
	"ORDER":      true,
	"REMOVE":     true,
	"RETURN":     true,
	"SET":        true,
	"SKIP":       true,
	"STARTS":     true,
	"THEN":       true,
	"TRUE":       true,
	"UNION":      true,
	"UNWIND":     true,
	"WHEN":       true,
	"WHERE":      true,
	"WITH":       true,
	"XOR":        true,
	"YIELD":      true,
}

// Fold returns the canonical (uppercase) form used for keyword
// comparison.
func Fold(word string) string {
	return strings.ToUpper(word)
}

// IsReserved reports whether word is a reserved word, ignoring case.
func IsReserved(word string) bool {
	return reserved[Fold(word)]
}

// Is reports whether the token is the given reserved word. Both Keyword
// tokens and escaped identifiers that happen to spell a keyword are
// distinguished: only Keyword tokens match.
func (t Token) Is(word string) bool {
	return t.Kind == Keyword && Fold(t.Value) == Fold(word)
}
