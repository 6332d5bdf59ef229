// Package token defines the lexical tokens of the query language and the
// source spans attached to every token and AST node.
//
// This package contains type definitions only. All other internal packages
// import token; token imports nothing internal. This keeps positions the
// foundational layer with no circular dependencies.
package token

import "fmt"

// Kind classifies a token.
type Kind int

const (
	// EOF marks the end of the input. Its span is the empty range at the
	// end of the source.
	EOF Kind = iota

	// Ident is an identifier that is not a reserved word candidate:
	// variable names, labels, property keys, function names.
	Ident

	// Keyword is an identifier whose folded text matches a reserved word
	// (MATCH, RETURN, ...). Keywords are reserved only in clause
	// positions; the parser accepts a Keyword token wherever an Ident is
	// grammatically expected.
	Keyword

	// Integer is a decimal, hex (0x...) or octal (0o...) integer literal.
	Integer

	// Float is a floating point literal, optionally with an exponent.
	Float

	// String is a single- or double-quoted string literal. Text holds the
	// raw source including quotes; Value holds the unescaped contents.
	String

	// Parameter is a $name or $`quoted name` reference. Value holds the
	// name without the dollar sign.
	Parameter

	// Punctuation and operators.
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	LBracket  // [
	RBracket  // ]
	Comma     // ,
	Dot       // .
	DotDot    // ..
	Colon     // :
	Semicolon // ;
	Pipe      // |
	Plus      // +
	Minus     // -
	Star      // *
	Slash     // /
	Percent   // %
	Caret     // ^
	Eq        // =
	Neq       // <>
	Lt        // <
	Gt        // >
	Le        // <=
	Ge        // >=
	PlusEq    // +=
	Regex     // =~
	Dollar    // $ (only when not followed by a name)
)

var kindNames = map[Kind]string{
	EOF:       "end of input",
	Ident:     "identifier",
	Keyword:   "keyword",
	Integer:   "integer",
	Float:     "float",
	String:    "string",
	Parameter: "parameter",
	LParen:    "'('",
	RParen:    "')'",
	LBrace:    "'{'",
	RBrace:    "'}'",
	LBracket:  "'['",
	RBracket:  "']'",
	Comma:     "','",
	Dot:       "'.'",
	DotDot:    "'..'",
	Colon:     "':'",
	Semicolon: "';'",
	Pipe:      "'|'",
	Plus:      "'+'",
	Minus:     "'-'",
	Star:      "'*'",
	Slash:     "'/'",
	Percent:   "'%'",
	Caret:     "'^'",
	Eq:        "'='",
	Neq:       "'<>'",
	Lt:        "'<'",
	Gt:        "'>'",
	Le:        "'<='",
	Ge:        "'>='",
	PlusEq:    "'+='",
	Regex:     "'=~'",
	Dollar:    "'$'",
}

// String returns a human-readable name for the kind, used in
// expected-token error messages.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexical element with its exact source coverage.
//
// Text is always the raw consumed source text. Value carries the cooked
// form where it differs: unescaped string contents, unquoted identifier,
// parameter name. For all other kinds Value equals Text.
type Token struct {
	Kind  Kind
	Text  string
	Value string
	Span  Span
}
