// Package parser builds the AST from query text.
//
// The grammar is a single authoritative recursive-descent
// implementation. Parsing is fail-fast: the first unrecoverable syntax
// error is returned with its exact position and expected-token context,
// and no tree is produced. Keywords are reserved only in clause
// positions; wherever an identifier is grammatically expected a
// reserved word is accepted as a name.
package parser

import (
	"fmt"
	"strings"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/lexer"
	"github.com/roach88/cypherc/internal/token"
)

// SyntaxError is a fatal grammar violation at an exact position.
// Expected lists the token classes that would have been legal, for
// report-and-stop diagnostics.
type SyntaxError struct {
	Span     token.Span
	Msg      string
	Expected []string
}

func (e *SyntaxError) Error() string {
	if len(e.Expected) > 0 {
		return fmt.Sprintf("%s: %s (expected %s)", e.Span, e.Msg, strings.Join(e.Expected, " or "))
	}
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

// Parse parses one statement. A lexical error surfaces as a
// *SyntaxError carrying the lexer's position.
func Parse(src string) (*ast.Statement, error) {
	toks, err := lexer.ScanAll(src)
	if err != nil {
		if lexErr, ok := err.(*lexer.Error); ok {
			return nil, &SyntaxError{Span: lexErr.Span, Msg: lexErr.Msg}
		}
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	stmt, perr := p.parseStatement()
	if perr != nil {
		return nil, perr
	}
	return stmt, nil
}

type parser struct {
	src  string
	toks []token.Token
	i    int
}

// peek returns the token k positions ahead without consuming. The
// token stream is padded by its final EOF token.
func (p *parser) peek(k int) token.Token {
	if p.i+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+k]
}

func (p *parser) cur() token.Token { return p.peek(0) }

func (p *parser) next() token.Token {
	t := p.cur()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

// save and restore implement bounded backtracking for the
// pattern-versus-parenthesized-expression ambiguity.
func (p *parser) save() int        { return p.i }
func (p *parser) restore(mark int) { p.i = mark }

// prevSpan returns the span of the most recently consumed token.
func (p *parser) prevSpan() token.Span {
	if p.i == 0 {
		return p.cur().Span
	}
	return p.toks[p.i-1].Span
}

// at reports whether the current token has the given kind.
func (p *parser) at(kind token.Kind) bool { return p.cur().Kind == kind }

// atKeyword reports whether the current token is the given reserved
// word.
func (p *parser) atKeyword(word string) bool { return p.cur().Is(word) }

// accept consumes the current token when it has the given kind.
func (p *parser) accept(kind token.Kind) (token.Token, bool) {
	if p.at(kind) {
		return p.next(), true
	}
	return token.Token{}, false
}

// acceptKeyword consumes the current token when it is the given
// reserved word.
func (p *parser) acceptKeyword(word string) (token.Token, bool) {
	if p.atKeyword(word) {
		return p.next(), true
	}
	return token.Token{}, false
}

func (p *parser) expect(kind token.Kind) (token.Token, error) {
	if t, ok := p.accept(kind); ok {
		return t, nil
	}
	return token.Token{}, p.unexpected(kind.String())
}

func (p *parser) expectKeyword(word string) (token.Token, error) {
	if t, ok := p.acceptKeyword(word); ok {
		return t, nil
	}
	return token.Token{}, p.unexpected(word)
}

// expectName consumes an identifier, accepting reserved words as names
// since keywords are reserved only in clause positions.
func (p *parser) expectName() (token.Token, error) {
	if t, ok := p.accept(token.Ident); ok {
		return t, nil
	}
	if t, ok := p.accept(token.Keyword); ok {
		return t, nil
	}
	return token.Token{}, p.unexpected("identifier")
}

// atName reports whether the current token can serve as a name.
func (p *parser) atName() bool {
	return p.at(token.Ident) || p.at(token.Keyword)
}

func (p *parser) unexpected(expected ...string) *SyntaxError {
	t := p.cur()
	got := t.Kind.String()
	if t.Kind == token.Ident || t.Kind == token.Keyword {
		got = fmt.Sprintf("%q", t.Text)
	}
	return &SyntaxError{
		Span:     t.Span,
		Msg:      fmt.Sprintf("unexpected %s", got),
		Expected: expected,
	}
}

// text returns the exact source covered by the span, trimmed of
// surrounding whitespace. Used for auto-aliasing projection items.
func (p *parser) text(span token.Span) string {
	if span.Start < 0 || span.End > len(p.src) || span.Start > span.End {
		return ""
	}
	return strings.TrimSpace(p.src[span.Start:span.End])
}

func (p *parser) parseStatement() (*ast.Statement, error) {
	start := p.cur().Span
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	p.accept(token.Semicolon)
	if !p.at(token.EOF) {
		return nil, p.unexpected("end of input")
	}
	return &ast.Statement{Query: q, Span: token.Cover(start, q.Pos())}, nil
}

func (p *parser) parseQuery() (ast.Query, error) {
	first, err := p.parseSingleQuery()
	if err != nil {
		return nil, err
	}
	var q ast.Query = first
	for p.atKeyword("UNION") {
		p.next()
		_, all := p.acceptKeyword("ALL")
		rhs, err := p.parseSingleQuery()
		if err != nil {
			return nil, err
		}
		q = &ast.UnionQuery{
			LHS:  q,
			RHS:  rhs,
			All:  all,
			Span: token.Cover(q.Pos(), rhs.Pos()),
		}
	}
	return q, nil
}

func (p *parser) parseSingleQuery() (*ast.SingleQuery, error) {
	var clauses []ast.Clause
	start := p.cur().Span
	for {
		c, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
		if p.at(token.EOF) || p.at(token.Semicolon) || p.atKeyword("UNION") {
			break
		}
	}
	span := token.Cover(start, clauses[len(clauses)-1].Pos())
	return &ast.SingleQuery{Clauses: clauses, Span: span}, nil
}

// parseClause dispatches on the leading clause keyword. A token that
// cannot begin a clause is a syntax error; a stray WHERE gets its own
// message since it is the common slip.
func (p *parser) parseClause() (ast.Clause, error) {
	t := p.cur()
	if t.Kind != token.Keyword {
		return nil, p.unexpected("clause keyword")
	}
	switch token.Fold(t.Value) {
	case "MATCH":
		p.next()
		return p.parseMatch(false, t.Span)
	case "OPTIONAL":
		p.next()
		if _, err := p.expectKeyword("MATCH"); err != nil {
			return nil, err
		}
		return p.parseMatch(true, t.Span)
	case "UNWIND":
		return p.parseUnwind()
	case "WITH":
		return p.parseWith()
	case "RETURN":
		return p.parseReturn()
	case "CREATE":
		return p.parseCreate()
	case "MERGE":
		return p.parseMerge()
	case "DELETE":
		return p.parseDelete(false, t.Span)
	case "DETACH":
		p.next()
		if _, err := p.expectKeyword("DELETE"); err != nil {
			return nil, err
		}
		return p.parseDelete(true, t.Span)
	case "SET":
		return p.parseSet()
	case "REMOVE":
		return p.parseRemove()
	case "CALL":
		return p.parseCall()
	case "WHERE":
		return nil, &SyntaxError{
			Span: t.Span,
			Msg:  "WHERE must directly follow the MATCH or WITH it filters",
		}
	default:
		return nil, p.unexpected("clause keyword")
	}
}
