package parser

import (
	"strconv"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/token"
)

func (p *parser) parsePattern() (*ast.Pattern, error) {
	first, err := p.parsePatternPart()
	if err != nil {
		return nil, err
	}
	pattern := &ast.Pattern{Parts: []*ast.PatternPart{first}, Span: first.Span}
	for {
		if _, ok := p.accept(token.Comma); !ok {
			return pattern, nil
		}
		part, err := p.parsePatternPart()
		if err != nil {
			return nil, err
		}
		pattern.Parts = append(pattern.Parts, part)
		pattern.Span = token.Cover(pattern.Span, part.Span)
	}
}

// parsePatternPart parses [variable =] node (rel node)*.
func (p *parser) parsePatternPart() (*ast.PatternPart, error) {
	part := &ast.PatternPart{}
	if p.atName() && p.peek(1).Kind == token.Eq {
		name := p.next()
		p.next() // =
		part.Variable = name.Value
		part.VarSpan = name.Span
		part.Span = name.Span
	}

	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	part.Elements = append(part.Elements, node)
	if part.Span.IsZero() {
		part.Span = node.Span
	} else {
		part.Span = token.Cover(part.Span, node.Span)
	}

	for p.at(token.Minus) || p.at(token.Lt) {
		rel, err := p.parseRelationshipPattern()
		if err != nil {
			return nil, err
		}
		next, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		part.Elements = append(part.Elements, rel, next)
		part.Span = token.Cover(part.Span, next.Span)
	}
	return part, nil
}

// parseNodePattern parses (v:Label {props} WHERE pred).
func (p *parser) parseNodePattern() (*ast.NodePattern, error) {
	lparen, err := p.expect(token.LParen)
	if err != nil {
		return nil, err
	}
	node := &ast.NodePattern{Span: lparen.Span}

	if p.atName() && !p.atKeyword("WHERE") {
		name := p.next()
		node.Variable = name.Value
		node.VarSpan = name.Span
	}
	if p.at(token.Colon) {
		labels, _, err := p.parseLabels()
		if err != nil {
			return nil, err
		}
		node.Labels = labels
	}
	if p.at(token.LBrace) {
		props, err := p.parseMapLit()
		if err != nil {
			return nil, err
		}
		node.Properties = props
	}
	if _, ok := p.acceptKeyword("WHERE"); ok {
		pred, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Predicate = pred
	}

	rparen, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	node.Span = token.Cover(node.Span, rparen.Span)
	return node, nil
}

// parseRelationshipPattern parses the arrow forms:
//
//	-->  <--  --  -[...]->  <-[...]-  -[...]-
func (p *parser) parseRelationshipPattern() (*ast.RelationshipPattern, error) {
	rel := &ast.RelationshipPattern{Direction: ast.DirBoth}
	start := p.cur().Span

	left := false
	if _, ok := p.accept(token.Lt); ok {
		left = true
	}
	if _, err := p.expect(token.Minus); err != nil {
		return nil, err
	}

	if _, ok := p.accept(token.LBracket); ok {
		if p.atName() {
			name := p.next()
			rel.Variable = name.Value
			rel.VarSpan = name.Span
		}
		if p.at(token.Colon) {
			types, err := p.parseRelTypes()
			if err != nil {
				return nil, err
			}
			rel.Types = types
		}
		if _, ok := p.accept(token.Star); ok {
			r, err := p.parseHopRange()
			if err != nil {
				return nil, err
			}
			rel.VarLength = r
		}
		if p.at(token.LBrace) {
			props, err := p.parseMapLit()
			if err != nil {
				return nil, err
			}
			rel.Properties = props
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Minus); err != nil {
			return nil, err
		}
	} else if _, err := p.expect(token.Minus); err != nil {
		// The bracketless forms are two dashes.
		return nil, err
	}

	right := false
	if !left {
		if _, ok := p.accept(token.Gt); ok {
			right = true
		}
	}

	end := p.prevSpan()
	switch {
	case left && !right:
		rel.Direction = ast.DirIncoming
	case right && !left:
		rel.Direction = ast.DirOutgoing
	default:
		rel.Direction = ast.DirBoth
	}
	rel.Span = token.Cover(start, end)
	return rel, nil
}

// parseRelTypes parses :A|B or the legacy :A|:B form.
func (p *parser) parseRelTypes() ([]string, error) {
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	types := []string{name.Value}
	for p.at(token.Pipe) {
		p.next()
		p.accept(token.Colon)
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		types = append(types, name.Value)
	}
	return types, nil
}

// parseHopRange parses the suffix after '*': empty, n, n.., ..m, n..m.
func (p *parser) parseHopRange() (*ast.Range, error) {
	r := &ast.Range{}
	if t, ok := p.accept(token.Integer); ok {
		v, err := strconv.ParseInt(t.Text, 0, 64)
		if err != nil {
			return nil, &SyntaxError{Span: t.Span, Msg: "invalid hop count"}
		}
		r.Min = &v
		if _, ok := p.accept(token.DotDot); !ok {
			// *n alone is the fixed length n..n.
			max := v
			r.Max = &max
			return r, nil
		}
	} else if _, ok := p.accept(token.DotDot); !ok {
		return r, nil // bare *
	}
	if t, ok := p.accept(token.Integer); ok {
		v, err := strconv.ParseInt(t.Text, 0, 64)
		if err != nil {
			return nil, &SyntaxError{Span: t.Span, Msg: "invalid hop count"}
		}
		r.Max = &v
	}
	return r, nil
}
