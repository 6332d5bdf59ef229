package token

import "fmt"

// Span is a half-open byte range [Start, End) into the original query
// text, together with the 1-based line and column of Start.
//
// Line and Column are derived from byte offsets when the token is
// produced; "\r\n" counts as a single line break so positions are stable
// across platform line-ending conventions.
type Span struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Cover returns the smallest span enclosing a and b. The line/column of
// the result is that of the earlier start.
func Cover(a, b Span) Span {
	out := a
	if b.Start < out.Start {
		out.Start = b.Start
		out.Line = b.Line
		out.Column = b.Column
	}
	if b.End > out.End {
		out.End = b.End
	}
	return out
}

// IsZero reports whether the span carries no position information.
func (s Span) IsZero() bool {
	return s == Span{}
}

// String renders the span as "line:column" for error messages.
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}
