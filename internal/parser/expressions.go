package parser

import (
	"strconv"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/token"
)

// Operator precedence, loosest first:
//
//	1. OR
//	2. XOR
//	3. AND
//	4. NOT (prefix)
//	5. comparison (= <> < > <= >=), IN, STARTS/ENDS WITH, CONTAINS,
//	   =~, IS [NOT] NULL
//	6. + -
//	7. * / %
//	8. unary + -
//	9. ^ (right associative)
//	10. property access, index, slice
//
// Binary operators at one level associate left; comparison chains are
// kept as left-leaning binary trees.
func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expr, error) {
	lhs, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		p.next()
		rhs, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		lhs = binary(ast.OpOr, lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseXor() (ast.Expr, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("XOR") {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = binary(ast.OpXor, lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		p.next()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = binary(ast.OpAnd, lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if t, ok := p.acceptKeyword("NOT"); ok {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{
			Op:      ast.OpNot,
			Operand: operand,
			Span:    token.Cover(t.Span, operand.Pos()),
		}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.at(token.Eq):
			op = ast.OpEq
		case p.at(token.Neq):
			op = ast.OpNeq
		case p.at(token.Lt):
			op = ast.OpLt
		case p.at(token.Gt):
			op = ast.OpGt
		case p.at(token.Le):
			op = ast.OpLe
		case p.at(token.Ge):
			op = ast.OpGe
		case p.at(token.Regex):
			op = ast.OpRegex
		case p.atKeyword("IN"):
			op = ast.OpIn
		case p.atKeyword("STARTS"):
			p.next()
			if _, err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			rhs, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			lhs = binary(ast.OpStartsWith, lhs, rhs)
			continue
		case p.atKeyword("ENDS"):
			p.next()
			if _, err := p.expectKeyword("WITH"); err != nil {
				return nil, err
			}
			rhs, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			lhs = binary(ast.OpEndsWith, lhs, rhs)
			continue
		case p.atKeyword("CONTAINS"):
			op = ast.OpContains
		case p.atKeyword("IS"):
			p.next()
			not := false
			if _, ok := p.acceptKeyword("NOT"); ok {
				not = true
			}
			nullTok, err := p.expectKeyword("NULL")
			if err != nil {
				return nil, err
			}
			unOp := ast.OpIsNull
			if not {
				unOp = ast.OpIsNotNull
			}
			lhs = &ast.Unary{
				Op:      unOp,
				Operand: lhs,
				Span:    token.Cover(lhs.Pos(), nullTok.Span),
			}
			continue
		default:
			return lhs, nil
		}
		p.next()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		lhs = binary(op, lhs, rhs)
	}
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.at(token.Plus):
			op = ast.OpAdd
		case p.at(token.Minus):
			op = ast.OpSub
		default:
			return lhs, nil
		}
		p.next()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = binary(op, lhs, rhs)
	}
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	lhs, err := p.parseUnarySign()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.at(token.Star):
			op = ast.OpMul
		case p.at(token.Slash):
			op = ast.OpDiv
		case p.at(token.Percent):
			op = ast.OpMod
		default:
			return lhs, nil
		}
		p.next()
		rhs, err := p.parseUnarySign()
		if err != nil {
			return nil, err
		}
		lhs = binary(op, lhs, rhs)
	}
}

func (p *parser) parseUnarySign() (ast.Expr, error) {
	if t, ok := p.accept(token.Minus); ok {
		operand, err := p.parseUnarySign()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpNeg, Operand: operand, Span: token.Cover(t.Span, operand.Pos())}, nil
	}
	if t, ok := p.accept(token.Plus); ok {
		operand, err := p.parseUnarySign()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpPos, Operand: operand, Span: token.Cover(t.Span, operand.Pos())}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (ast.Expr, error) {
	lhs, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(token.Caret); ok {
		rhs, err := p.parseUnarySign() // right associative
		if err != nil {
			return nil, err
		}
		return binary(ast.OpPow, lhs, rhs), nil
	}
	return lhs, nil
}

// parsePostfix applies property access, dynamic index and slice
// operators to an atom.
func (p *parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(token.Dot):
			p.next()
			key, err := p.expectName()
			if err != nil {
				return nil, err
			}
			expr = &ast.PropertyAccess{
				Subject: expr,
				Key:     key.Value,
				KeySpan: key.Span,
				Span:    token.Cover(expr.Pos(), key.Span),
			}
		case p.at(token.LBracket):
			p.next()
			var from ast.Expr
			if !p.at(token.DotDot) {
				from, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
			if _, ok := p.accept(token.DotDot); ok {
				var to ast.Expr
				if !p.at(token.RBracket) {
					to, err = p.parseExpr()
					if err != nil {
						return nil, err
					}
				}
				rb, err := p.expect(token.RBracket)
				if err != nil {
					return nil, err
				}
				expr = &ast.Slice{Subject: expr, From: from, To: to, Span: token.Cover(expr.Pos(), rb.Span)}
			} else {
				rb, err := p.expect(token.RBracket)
				if err != nil {
					return nil, err
				}
				expr = &ast.Index{Subject: expr, Key: from, Span: token.Cover(expr.Pos(), rb.Span)}
			}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseAtom() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.Integer:
		p.next()
		v, err := strconv.ParseInt(t.Text, 0, 64)
		if err != nil {
			return nil, &SyntaxError{Span: t.Span, Msg: "integer literal out of range"}
		}
		return &ast.IntegerLit{Value: v, Text: t.Text, Span: t.Span}, nil
	case token.Float:
		p.next()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, &SyntaxError{Span: t.Span, Msg: "malformed float literal"}
		}
		return &ast.FloatLit{Value: v, Text: t.Text, Span: t.Span}, nil
	case token.String:
		p.next()
		return &ast.StringLit{Value: t.Value, Span: t.Span}, nil
	case token.Parameter:
		p.next()
		return &ast.Parameter{Name: t.Value, Span: t.Span}, nil
	case token.LBracket:
		return p.parseBracketAtom()
	case token.LBrace:
		return p.parseMapLit()
	case token.LParen:
		return p.parseParenAtom()
	case token.Keyword:
		switch token.Fold(t.Value) {
		case "TRUE":
			p.next()
			return &ast.BoolLit{Value: true, Span: t.Span}, nil
		case "FALSE":
			p.next()
			return &ast.BoolLit{Value: false, Span: t.Span}, nil
		case "NULL":
			p.next()
			return &ast.NullLit{Span: t.Span}, nil
		case "CASE":
			return p.parseCase()
		case "EXISTS":
			return p.parseExists()
		}
	}
	if p.atName() {
		return p.parseNameAtom()
	}
	return nil, p.unexpected("expression")
}

// parseNameAtom disambiguates a variable reference from a (possibly
// namespaced) function invocation by scanning ahead for name ('.'
// name)* '('.
func (p *parser) parseNameAtom() (ast.Expr, error) {
	k := 1
	for p.peek(k).Kind == token.Dot &&
		(p.peek(k+1).Kind == token.Ident || p.peek(k+1).Kind == token.Keyword) {
		k += 2
	}
	if p.peek(k).Kind != token.LParen {
		name := p.next()
		return &ast.Variable{Name: name.Value, Span: name.Span}, nil
	}

	first := p.next()
	names := []string{first.Value}
	for p.at(token.Dot) {
		p.next()
		part, err := p.expectName()
		if err != nil {
			return nil, err
		}
		names = append(names, part.Value)
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	call := &ast.FunctionCall{
		Namespace: names[:len(names)-1],
		Name:      names[len(names)-1],
		Span:      first.Span,
	}
	if _, ok := p.acceptKeyword("DISTINCT"); ok {
		call.Distinct = true
	}
	if star, ok := p.accept(token.Star); ok {
		// count(*) is its own node.
		rparen, err := p.expect(token.RParen)
		if err != nil {
			return nil, err
		}
		if token.Fold(call.Name) == "COUNT" && len(call.Namespace) == 0 && !call.Distinct {
			return &ast.CountStar{Span: token.Cover(first.Span, rparen.Span)}, nil
		}
		return nil, &SyntaxError{Span: star.Span, Msg: "'*' argument is only valid in count(*)"}
	}
	if !p.at(token.RParen) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
	}
	rparen, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	call.Span = token.Cover(first.Span, rparen.Span)
	return call, nil
}

// parseParenAtom resolves the '(' ambiguity between a parenthesized
// expression and a bare pattern predicate such as (a)-[:KNOWS]->(b).
// A pattern parse that yields at least one relationship wins; anything
// else backtracks to expression parsing.
func (p *parser) parseParenAtom() (ast.Expr, error) {
	markIdx := p.save()
	start := p.cur().Span
	if part, err := p.parsePatternPart(); err == nil && len(part.Elements) >= 3 {
		return &ast.Exists{
			Pattern: &ast.Pattern{Parts: []*ast.PatternPart{part}, Span: part.Span},
			Span:    token.Cover(start, part.Span),
		}, nil
	}
	p.restore(markIdx)

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseBracketAtom resolves '[' between a list literal, a list
// comprehension and a pattern comprehension.
func (p *parser) parseBracketAtom() (ast.Expr, error) {
	lb := p.next() // [

	// [x IN list ...]
	if p.atName() && p.peek(1).Is("IN") {
		name := p.next()
		p.next() // IN
		source, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lc := &ast.ListComprehension{
			Variable: name.Value,
			VarSpan:  name.Span,
			Source:   source,
		}
		if _, ok := p.acceptKeyword("WHERE"); ok {
			where, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lc.Where = where
		}
		if _, ok := p.accept(token.Pipe); ok {
			projection, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lc.Projection = projection
		}
		rb, err := p.expect(token.RBracket)
		if err != nil {
			return nil, err
		}
		lc.Span = token.Cover(lb.Span, rb.Span)
		return lc, nil
	}

	// [(a)-->(b) WHERE ... | expr]
	if p.at(token.LParen) || (p.atName() && p.peek(1).Kind == token.Eq) {
		markIdx := p.save()
		if part, err := p.parsePatternPart(); err == nil && len(part.Elements) >= 3 {
			pc := &ast.PatternComprehension{Part: part}
			if _, ok := p.acceptKeyword("WHERE"); ok {
				where, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				pc.Where = where
			}
			if _, err := p.expect(token.Pipe); err != nil {
				return nil, err
			}
			projection, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			pc.Projection = projection
			rb, err := p.expect(token.RBracket)
			if err != nil {
				return nil, err
			}
			pc.Span = token.Cover(lb.Span, rb.Span)
			return pc, nil
		}
		p.restore(markIdx)
	}

	// List literal, possibly empty.
	list := &ast.ListLit{}
	if !p.at(token.RBracket) {
		for {
			item, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
	}
	rb, err := p.expect(token.RBracket)
	if err != nil {
		return nil, err
	}
	list.Span = token.Cover(lb.Span, rb.Span)
	return list, nil
}

func (p *parser) parseMapLit() (*ast.MapLit, error) {
	lb, err := p.expect(token.LBrace)
	if err != nil {
		return nil, err
	}
	m := &ast.MapLit{}
	if !p.at(token.RBrace) {
		for {
			key, err := p.expectName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Colon); err != nil {
				return nil, err
			}
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, ast.MapEntry{Key: key.Value, KeySpan: key.Span, Value: value})
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
	}
	rb, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	m.Span = token.Cover(lb.Span, rb.Span)
	return m, nil
}

func (p *parser) parseCase() (*ast.Case, error) {
	start := p.next().Span // CASE
	c := &ast.Case{}
	if !p.atKeyword("WHEN") {
		test, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Test = test
	}
	if !p.atKeyword("WHEN") {
		return nil, p.unexpected("WHEN")
	}
	for p.atKeyword("WHEN") {
		p.next()
		when, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Alternatives = append(c.Alternatives, ast.CaseAlt{When: when, Then: then})
	}
	if _, ok := p.acceptKeyword("ELSE"); ok {
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Else = els
	}
	end, err := p.expectKeyword("END")
	if err != nil {
		return nil, err
	}
	c.Span = token.Cover(start, end.Span)
	return c, nil
}

// parseExists parses EXISTS { [MATCH] pattern [WHERE expr] }.
func (p *parser) parseExists() (*ast.Exists, error) {
	start := p.next().Span // EXISTS
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	p.acceptKeyword("MATCH")
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	e := &ast.Exists{Pattern: pattern}
	if _, ok := p.acceptKeyword("WHERE"); ok {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Where = where
	}
	rb, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	e.Span = token.Cover(start, rb.Span)
	return e, nil
}

func binary(op ast.BinaryOp, lhs, rhs ast.Expr) *ast.Binary {
	return &ast.Binary{Op: op, LHS: lhs, RHS: rhs, Span: token.Cover(lhs.Pos(), rhs.Pos())}
}
