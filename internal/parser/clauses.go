package parser

import (
	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/token"
)

// parseMatch parses the remainder of a MATCH after the keyword(s) have
// been consumed: Pattern [WHERE Expr].
func (p *parser) parseMatch(optional bool, start token.Span) (*ast.Match, error) {
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	m := &ast.Match{Optional: optional, Pattern: pattern, Span: token.Cover(start, pattern.Span)}
	if _, ok := p.acceptKeyword("WHERE"); ok {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Where = where
		m.Span = token.Cover(m.Span, where.Pos())
	}
	return m, nil
}

func (p *parser) parseUnwind() (*ast.Unwind, error) {
	start := p.next().Span // UNWIND
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	alias, err := p.expectName()
	if err != nil {
		return nil, err
	}
	return &ast.Unwind{
		Expr:      expr,
		Alias:     alias.Value,
		AliasSpan: alias.Span,
		Span:      token.Cover(start, alias.Span),
	}, nil
}

func (p *parser) parseWith() (*ast.With, error) {
	start := p.next().Span // WITH
	proj, err := p.parseProjection(start)
	if err != nil {
		return nil, err
	}
	w := &ast.With{Projection: proj, Span: token.Cover(start, proj.Span)}
	if _, ok := p.acceptKeyword("WHERE"); ok {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		w.Where = where
		w.Span = token.Cover(w.Span, where.Pos())
	}
	return w, nil
}

func (p *parser) parseReturn() (*ast.Return, error) {
	start := p.next().Span // RETURN
	proj, err := p.parseProjection(start)
	if err != nil {
		return nil, err
	}
	return &ast.Return{Projection: proj, Span: token.Cover(start, proj.Span)}, nil
}

// parseProjection parses [DISTINCT] (* | item, ...) with the ORDER
// BY/SKIP/LIMIT modifiers shared by WITH and RETURN.
func (p *parser) parseProjection(start token.Span) (*ast.Projection, error) {
	proj := &ast.Projection{Span: start}
	if _, ok := p.acceptKeyword("DISTINCT"); ok {
		proj.Distinct = true
	}
	if star, ok := p.accept(token.Star); ok {
		proj.Star = true
		proj.Span = token.Cover(proj.Span, star.Span)
	} else {
		for {
			item, err := p.parseProjectionItem()
			if err != nil {
				return nil, err
			}
			proj.Items = append(proj.Items, item)
			proj.Span = token.Cover(proj.Span, item.Span)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
	}
	if _, ok := p.acceptKeyword("ORDER"); ok {
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			item, err := p.parseSortItem()
			if err != nil {
				return nil, err
			}
			proj.OrderBy = append(proj.OrderBy, item)
			proj.Span = token.Cover(proj.Span, item.Span)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
	}
	if _, ok := p.acceptKeyword("SKIP"); ok {
		skip, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		proj.Skip = skip
		proj.Span = token.Cover(proj.Span, skip.Pos())
	}
	if _, ok := p.acceptKeyword("LIMIT"); ok {
		limit, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		proj.Limit = limit
		proj.Span = token.Cover(proj.Span, limit.Pos())
	}
	return proj, nil
}

// parseProjectionItem parses expr [AS name]. Items without an explicit
// alias are named by their exact source text, so downstream stages see
// one uniform column name per item.
func (p *parser) parseProjectionItem() (*ast.ProjectionItem, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	item := &ast.ProjectionItem{Expr: expr, Span: expr.Pos()}
	if _, ok := p.acceptKeyword("AS"); ok {
		alias, err := p.expectName()
		if err != nil {
			return nil, err
		}
		item.Alias = alias.Value
		item.Aliased = true
		item.AliasSpan = alias.Span
		item.Span = token.Cover(item.Span, alias.Span)
	} else {
		item.Alias = p.text(expr.Pos())
		item.AliasSpan = expr.Pos()
	}
	return item, nil
}

func (p *parser) parseSortItem() (*ast.SortItem, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	item := &ast.SortItem{Expr: expr, Span: expr.Pos()}
	if t, ok := p.acceptKeyword("DESC"); ok {
		item.Descending = true
		item.Span = token.Cover(item.Span, t.Span)
	} else if t, ok := p.acceptKeyword("DESCENDING"); ok {
		item.Descending = true
		item.Span = token.Cover(item.Span, t.Span)
	} else if t, ok := p.acceptKeyword("ASC"); ok {
		item.Span = token.Cover(item.Span, t.Span)
	} else if t, ok := p.acceptKeyword("ASCENDING"); ok {
		item.Span = token.Cover(item.Span, t.Span)
	}
	return item, nil
}

func (p *parser) parseCreate() (*ast.Create, error) {
	start := p.next().Span // CREATE
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	return &ast.Create{Pattern: pattern, Span: token.Cover(start, pattern.Span)}, nil
}

func (p *parser) parseMerge() (*ast.Merge, error) {
	start := p.next().Span // MERGE
	part, err := p.parsePatternPart()
	if err != nil {
		return nil, err
	}
	m := &ast.Merge{Part: part, Span: token.Cover(start, part.Span)}
	for p.atKeyword("ON") {
		p.next()
		var onCreate bool
		switch {
		case p.atKeyword("CREATE"):
			p.next()
			onCreate = true
		case p.atKeyword("MATCH"):
			p.next()
		default:
			return nil, p.unexpected("CREATE", "MATCH")
		}
		if _, err := p.expectKeyword("SET"); err != nil {
			return nil, err
		}
		items, end, err := p.parseSetItems()
		if err != nil {
			return nil, err
		}
		if onCreate {
			m.OnCreate = append(m.OnCreate, items...)
		} else {
			m.OnMatch = append(m.OnMatch, items...)
		}
		m.Span = token.Cover(m.Span, end)
	}
	return m, nil
}

func (p *parser) parseDelete(detach bool, start token.Span) (*ast.Delete, error) {
	p.next() // DELETE
	d := &ast.Delete{Detach: detach, Span: start}
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d.Exprs = append(d.Exprs, expr)
		d.Span = token.Cover(d.Span, expr.Pos())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	return d, nil
}

func (p *parser) parseSet() (*ast.Set, error) {
	start := p.next().Span // SET
	items, end, err := p.parseSetItems()
	if err != nil {
		return nil, err
	}
	return &ast.Set{Items: items, Span: token.Cover(start, end)}, nil
}

func (p *parser) parseSetItems() ([]*ast.SetItem, token.Span, error) {
	var items []*ast.SetItem
	var end token.Span
	for {
		item, err := p.parseSetItem()
		if err != nil {
			return nil, end, err
		}
		items = append(items, item)
		end = item.Span
		if _, ok := p.accept(token.Comma); !ok {
			return items, end, nil
		}
	}
}

func (p *parser) parseSetItem() (*ast.SetItem, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	switch {
	case p.at(token.Dot):
		// n.prop(.nested)* = expr
		target := ast.Expr(&ast.Variable{Name: name.Value, Span: name.Span})
		var prop *ast.PropertyAccess
		for {
			if _, err := p.expect(token.Dot); err != nil {
				return nil, err
			}
			key, err := p.expectName()
			if err != nil {
				return nil, err
			}
			prop = &ast.PropertyAccess{
				Subject: target,
				Key:     key.Value,
				KeySpan: key.Span,
				Span:    token.Cover(target.Pos(), key.Span),
			}
			if !p.at(token.Dot) {
				break
			}
			target = prop
		}
		if _, err := p.expect(token.Eq); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.SetItem{
			Op:       ast.SetProperty,
			Property: prop,
			Value:    value,
			Span:     token.Cover(name.Span, value.Pos()),
		}, nil
	case p.at(token.Colon):
		labels, end, err := p.parseLabels()
		if err != nil {
			return nil, err
		}
		return &ast.SetItem{
			Op:       ast.SetLabels,
			Variable: name.Value,
			Labels:   labels,
			Span:     token.Cover(name.Span, end),
		}, nil
	case p.at(token.PlusEq):
		p.next()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.SetItem{
			Op:       ast.SetMerge,
			Variable: name.Value,
			Value:    value,
			Span:     token.Cover(name.Span, value.Pos()),
		}, nil
	case p.at(token.Eq):
		p.next()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.SetItem{
			Op:       ast.SetVariable,
			Variable: name.Value,
			Value:    value,
			Span:     token.Cover(name.Span, value.Pos()),
		}, nil
	default:
		return nil, p.unexpected("'.'", "':'", "'='", "'+='")
	}
}

func (p *parser) parseRemove() (*ast.Remove, error) {
	start := p.next().Span // REMOVE
	r := &ast.Remove{Span: start}
	for {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		switch {
		case p.at(token.Dot):
			target := ast.Expr(&ast.Variable{Name: name.Value, Span: name.Span})
			var prop *ast.PropertyAccess
			for {
				if _, err := p.expect(token.Dot); err != nil {
					return nil, err
				}
				key, err := p.expectName()
				if err != nil {
					return nil, err
				}
				prop = &ast.PropertyAccess{
					Subject: target,
					Key:     key.Value,
					KeySpan: key.Span,
					Span:    token.Cover(target.Pos(), key.Span),
				}
				if !p.at(token.Dot) {
					break
				}
				target = prop
			}
			r.Items = append(r.Items, &ast.RemoveItem{Property: prop, Span: prop.Span})
		case p.at(token.Colon):
			labels, end, err := p.parseLabels()
			if err != nil {
				return nil, err
			}
			r.Items = append(r.Items, &ast.RemoveItem{
				Variable: name.Value,
				Labels:   labels,
				Span:     token.Cover(name.Span, end),
			})
		default:
			return nil, p.unexpected("'.'", "':'")
		}
		last := r.Items[len(r.Items)-1]
		r.Span = token.Cover(r.Span, last.Span)
		if _, ok := p.accept(token.Comma); !ok {
			return r, nil
		}
	}
}

// parseCall parses either CALL { subquery } or a procedure call with an
// optional YIELD list.
func (p *parser) parseCall() (ast.Clause, error) {
	start := p.next().Span // CALL
	if p.at(token.LBrace) {
		p.next()
		inner, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		rbrace, err := p.expect(token.RBrace)
		if err != nil {
			return nil, err
		}
		return &ast.SubqueryCall{Query: inner, Span: token.Cover(start, rbrace.Span)}, nil
	}

	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	names := []string{name.Value}
	for p.at(token.Dot) {
		p.next()
		part, err := p.expectName()
		if err != nil {
			return nil, err
		}
		names = append(names, part.Value)
	}
	call := &ast.Call{
		Namespace: names[:len(names)-1],
		Name:      names[len(names)-1],
		Span:      start,
	}
	if _, ok := p.accept(token.LParen); ok {
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
		call.Span = token.Cover(call.Span, rparen.Span)
	}
	if _, ok := p.acceptKeyword("YIELD"); ok {
		if star, ok := p.accept(token.Star); ok {
			call.YieldAll = true
			call.Span = token.Cover(call.Span, star.Span)
		} else {
			for {
				yname, err := p.expectName()
				if err != nil {
					return nil, err
				}
				item := &ast.YieldItem{Name: yname.Value, Span: yname.Span}
				if _, ok := p.acceptKeyword("AS"); ok {
					alias, err := p.expectName()
					if err != nil {
						return nil, err
					}
					item.Alias = alias.Value
					item.AliasSpan = alias.Span
					item.Span = token.Cover(item.Span, alias.Span)
				}
				call.Yield = append(call.Yield, item)
				call.Span = token.Cover(call.Span, item.Span)
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
		}
	}
	return call, nil
}

// parseLabels parses :A:B:C, returning the labels and the span end.
func (p *parser) parseLabels() ([]string, token.Span, error) {
	var labels []string
	var end token.Span
	for p.at(token.Colon) {
		p.next()
		name, err := p.expectName()
		if err != nil {
			return nil, end, err
		}
		labels = append(labels, name.Value)
		end = name.Span
	}
	if len(labels) == 0 {
		return nil, end, p.unexpected("label")
	}
	return labels, end, nil
}
