// Package lexer converts raw query text into a stream of tokens with
// exact byte offsets and 1-based line/column positions.
//
// The scanner is lazy and non-restartable: each call to Next consumes
// input and returns the following token, ending with a final EOF token.
// A malformed token (unterminated string or comment, invalid character)
// stops the stream with a *Error, which the parser treats as fatal for
// the whole query.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cypherc/internal/token"
)

// Error is a lexical error at an exact source position.
type Error struct {
	Span token.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

// Scanner produces tokens from query text.
type Scanner struct {
	src  string
	pos  int
	line int
	col  int
}

// New creates a scanner over src. The scanner does not copy src; callers
// must not mutate it during scanning.
func New(src string) *Scanner {
	return &Scanner{src: src, line: 1, col: 1}
}

// ScanAll drains the scanner, returning every token up to and including
// EOF, or the first lexical error.
func ScanAll(src string) ([]token.Token, error) {
	s := New(src)
	var toks []token.Token
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// Next returns the next token. After the EOF token has been returned,
// every further call returns EOF again.
func (s *Scanner) Next() (token.Token, error) {
	if err := s.skipTrivia(); err != nil {
		return token.Token{}, err
	}
	if s.pos >= len(s.src) {
		return token.Token{Kind: token.EOF, Span: s.spanFrom(s.mark())}, nil
	}

	m := s.mark()
	r, size := utf8.DecodeRuneInString(s.src[s.pos:])

	switch {
	case isIdentStart(r):
		return s.scanWord(m), nil
	case r >= '0' && r <= '9':
		return s.scanNumber(m)
	case r == '.':
		// ".5" is a float, ".." a range, "." property access.
		if s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]) {
			return s.scanNumber(m)
		}
		if strings.HasPrefix(s.src[s.pos:], "..") {
			s.advanceN(2)
			return s.tok(token.DotDot, m), nil
		}
		s.advanceN(1)
		return s.tok(token.Dot, m), nil
	case r == '\'' || r == '"':
		return s.scanString(m, r)
	case r == '`':
		return s.scanEscapedIdent(m)
	case r == '$':
		return s.scanParameter(m)
	}

	if kind, width, ok := s.operator(); ok {
		s.advanceN(width)
		return s.tok(kind, m), nil
	}

	err := &Error{Span: s.spanFrom(m), Msg: fmt.Sprintf("unexpected character %q", r)}
	err.Span.End = err.Span.Start + size
	return token.Token{}, err
}

// mark captures the current position for span construction.
type mark struct {
	pos, line, col int
}

func (s *Scanner) mark() mark {
	return mark{pos: s.pos, line: s.line, col: s.col}
}

func (s *Scanner) spanFrom(m mark) token.Span {
	return token.Span{Start: m.pos, End: s.pos, Line: m.line, Column: m.col}
}

func (s *Scanner) tok(kind token.Kind, m mark) token.Token {
	text := s.src[m.pos:s.pos]
	return token.Token{Kind: kind, Text: text, Value: text, Span: s.spanFrom(m)}
}

// advanceN moves forward n bytes, maintaining line and column. "\r\n"
// counts as one line break.
func (s *Scanner) advanceN(n int) {
	end := s.pos + n
	for s.pos < end {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		switch r {
		case '\n':
			s.line++
			s.col = 1
		case '\r':
			s.line++
			s.col = 1
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
				size = 2
			}
		default:
			s.col++
		}
		s.pos += size
	}
}

// skipTrivia consumes whitespace, line comments and nested block
// comments. An unterminated block comment is an error.
func (s *Scanner) skipTrivia() error {
	for s.pos < len(s.src) {
		r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
		switch {
		case unicode.IsSpace(r):
			s.advanceN(1)
		case strings.HasPrefix(s.src[s.pos:], "//"):
			for s.pos < len(s.src) && s.src[s.pos] != '\n' && s.src[s.pos] != '\r' {
				s.advanceN(1)
			}
		case strings.HasPrefix(s.src[s.pos:], "/*"):
			m := s.mark()
			s.advanceN(2)
			depth := 1
			for depth > 0 {
				if s.pos >= len(s.src) {
					return &Error{Span: s.spanFrom(m), Msg: "unterminated block comment"}
				}
				switch {
				case strings.HasPrefix(s.src[s.pos:], "/*"):
					depth++
					s.advanceN(2)
				case strings.HasPrefix(s.src[s.pos:], "*/"):
					depth--
					s.advanceN(2)
				default:
					s.advanceN(1)
				}
			}
		default:
			return nil
		}
	}
	return nil
}

// scanWord scans an identifier or keyword. Identifier text is NFC
// normalized so visually identical Unicode names resolve to one symbol.
func (s *Scanner) scanWord(m mark) token.Token {
	for s.pos < len(s.src) {
		r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
		if !isIdentPart(r) {
			break
		}
		s.advanceN(1)
	}
	t := s.tok(token.Ident, m)
	t.Value = norm.NFC.String(t.Text)
	if token.IsReserved(t.Value) {
		t.Kind = token.Keyword
	}
	return t
}

func (s *Scanner) scanNumber(m mark) (token.Token, error) {
	rest := s.src[s.pos:]
	if strings.HasPrefix(rest, "0x") || strings.HasPrefix(rest, "0X") {
		s.advanceN(2)
		n := 0
		for s.pos < len(s.src) && isHexDigit(s.src[s.pos]) {
			s.advanceN(1)
			n++
		}
		if n == 0 {
			return token.Token{}, &Error{Span: s.spanFrom(m), Msg: "malformed hex literal"}
		}
		return s.tok(token.Integer, m), nil
	}
	if strings.HasPrefix(rest, "0o") || strings.HasPrefix(rest, "0O") {
		s.advanceN(2)
		n := 0
		for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '7' {
			s.advanceN(1)
			n++
		}
		if n == 0 {
			return token.Token{}, &Error{Span: s.spanFrom(m), Msg: "malformed octal literal"}
		}
		return s.tok(token.Integer, m), nil
	}

	isFloat := false
	for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		s.advanceN(1)
	}
	// A '.' starts a fraction only when followed by a digit; "1..3" must
	// lex as Integer DotDot Integer.
	if s.pos < len(s.src) && s.src[s.pos] == '.' &&
		s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]) {
		isFloat = true
		s.advanceN(1)
		for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			s.advanceN(1)
		}
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
		exp := s.pos + 1
		if exp < len(s.src) && (s.src[exp] == '+' || s.src[exp] == '-') {
			exp++
		}
		if exp < len(s.src) && isDigit(s.src[exp]) {
			isFloat = true
			s.advanceN(exp - s.pos)
			for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
				s.advanceN(1)
			}
		}
	}
	if isFloat {
		return s.tok(token.Float, m), nil
	}
	return s.tok(token.Integer, m), nil
}

func (s *Scanner) scanString(m mark, quote rune) (token.Token, error) {
	s.advanceN(1)
	var sb strings.Builder
	for {
		if s.pos >= len(s.src) {
			return token.Token{}, &Error{Span: s.spanFrom(m), Msg: "unterminated string literal"}
		}
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if r == quote {
			s.advanceN(1)
			t := s.tok(token.String, m)
			t.Value = sb.String()
			return t, nil
		}
		if r != '\\' {
			sb.WriteRune(r)
			s.advanceN(size)
			continue
		}
		s.advanceN(1)
		if s.pos >= len(s.src) {
			return token.Token{}, &Error{Span: s.spanFrom(m), Msg: "unterminated string literal"}
		}
		esc, escSize := utf8.DecodeRuneInString(s.src[s.pos:])
		s.advanceN(escSize)
		switch esc {
		case '\\', '\'', '"', '`':
			sb.WriteRune(esc)
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'u':
			r, err := s.scanUnicodeEscape(m, 4)
			if err != nil {
				return token.Token{}, err
			}
			sb.WriteRune(r)
		case 'U':
			r, err := s.scanUnicodeEscape(m, 8)
			if err != nil {
				return token.Token{}, err
			}
			sb.WriteRune(r)
		default:
			return token.Token{}, &Error{
				Span: s.spanFrom(m),
				Msg:  fmt.Sprintf("invalid escape sequence '\\%c'", esc),
			}
		}
	}
}

func (s *Scanner) scanUnicodeEscape(m mark, digits int) (rune, error) {
	var v rune
	for i := 0; i < digits; i++ {
		if s.pos >= len(s.src) || !isHexDigit(s.src[s.pos]) {
			return 0, &Error{Span: s.spanFrom(m), Msg: "malformed unicode escape"}
		}
		v = v*16 + rune(hexValue(s.src[s.pos]))
		s.advanceN(1)
	}
	return v, nil
}

// scanEscapedIdent scans a backtick-quoted identifier. A doubled
// backtick inside the quotes is an escaped backtick.
func (s *Scanner) scanEscapedIdent(m mark) (token.Token, error) {
	s.advanceN(1)
	var sb strings.Builder
	for {
		if s.pos >= len(s.src) {
			return token.Token{}, &Error{Span: s.spanFrom(m), Msg: "unterminated escaped identifier"}
		}
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if r == '`' {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '`' {
				sb.WriteByte('`')
				s.advanceN(2)
				continue
			}
			s.advanceN(1)
			t := s.tok(token.Ident, m)
			t.Value = norm.NFC.String(sb.String())
			return t, nil
		}
		sb.WriteRune(r)
		s.advanceN(size)
	}
}

func (s *Scanner) scanParameter(m mark) (token.Token, error) {
	s.advanceN(1)
	if s.pos < len(s.src) {
		if r, _ := utf8.DecodeRuneInString(s.src[s.pos:]); isIdentStart(r) || isDigit(s.src[s.pos]) {
			for s.pos < len(s.src) {
				r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
				if !isIdentPart(r) {
					break
				}
				s.advanceN(1)
			}
			t := s.tok(token.Parameter, m)
			t.Value = norm.NFC.String(t.Text[1:])
			return t, nil
		}
		if s.src[s.pos] == '`' {
			inner, err := s.scanEscapedIdent(s.mark())
			if err != nil {
				return token.Token{}, err
			}
			t := s.tok(token.Parameter, m)
			t.Value = inner.Value
			return t, nil
		}
	}
	return s.tok(token.Dollar, m), nil
}

// operator matches the longest punctuation or operator at the current
// position. Multi-character forms shadow their prefixes.
func (s *Scanner) operator() (token.Kind, int, bool) {
	rest := s.src[s.pos:]
	two := map[string]token.Kind{
		"<>": token.Neq,
		"<=": token.Le,
		">=": token.Ge,
		"+=": token.PlusEq,
		"=~": token.Regex,
	}
	if len(rest) >= 2 {
		if kind, ok := two[rest[:2]]; ok {
			return kind, 2, true
		}
	}
	one := map[byte]token.Kind{
		'(': token.LParen, ')': token.RParen,
		'{': token.LBrace, '}': token.RBrace,
		'[': token.LBracket, ']': token.RBracket,
		',': token.Comma, ':': token.Colon, ';': token.Semicolon,
		'|': token.Pipe, '+': token.Plus, '-': token.Minus,
		'*': token.Star, '/': token.Slash, '%': token.Percent,
		'^': token.Caret, '=': token.Eq, '<': token.Lt, '>': token.Gt,
	}
	if len(rest) >= 1 {
		if kind, ok := one[rest[0]]; ok {
			return kind, 1, true
		}
	}
	return 0, 0, false
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) int {
	switch {
	case isDigit(b):
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}
