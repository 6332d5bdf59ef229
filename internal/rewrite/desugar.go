package rewrite

import (
	"fmt"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/token"
)

// anonName builds the deterministic variable name for an anonymous
// pattern element from its source offset. Offsets are unique per
// statement, so the name cannot collide with another generated name; a
// leading space keeps it outside the user-writable identifier space.
func anonName(span token.Span) string {
	return fmt.Sprintf(" anon%d", span.Start)
}

// nameAnonymousElements gives every pattern node and relationship a
// variable. Later passes and the IR builder can then address any
// element by name.
func nameAnonymousElements(q *ast.SingleQuery) *ast.SingleQuery {
	return mapClauses(q, func(c ast.Clause) []ast.Clause {
		switch x := c.(type) {
		case *ast.Match:
			p := namePattern(x.Pattern)
			if p == x.Pattern {
				return []ast.Clause{x}
			}
			return []ast.Clause{&ast.Match{Optional: x.Optional, Pattern: p, Where: x.Where, Span: x.Span}}
		case *ast.Create:
			p := namePattern(x.Pattern)
			if p == x.Pattern {
				return []ast.Clause{x}
			}
			return []ast.Clause{&ast.Create{Pattern: p, Span: x.Span}}
		case *ast.Merge:
			part := namePatternPart(x.Part)
			if part == x.Part {
				return []ast.Clause{x}
			}
			return []ast.Clause{&ast.Merge{Part: part, OnCreate: x.OnCreate, OnMatch: x.OnMatch, Span: x.Span}}
		default:
			return []ast.Clause{c}
		}
	})
}

func namePattern(p *ast.Pattern) *ast.Pattern {
	parts := make([]*ast.PatternPart, len(p.Parts))
	changed := false
	for i, part := range p.Parts {
		parts[i] = namePatternPart(part)
		if parts[i] != part {
			changed = true
		}
	}
	if !changed {
		return p
	}
	return &ast.Pattern{Parts: parts, Span: p.Span}
}

func namePatternPart(part *ast.PatternPart) *ast.PatternPart {
	elements := make([]ast.PatternElement, len(part.Elements))
	changed := false
	for i, el := range part.Elements {
		switch x := el.(type) {
		case *ast.NodePattern:
			if x.Variable != "" {
				elements[i] = x
				continue
			}
			named := *x
			named.Variable = anonName(x.Span)
			named.VarSpan = x.Span
			elements[i] = &named
			changed = true
		case *ast.RelationshipPattern:
			if x.Variable != "" {
				elements[i] = x
				continue
			}
			named := *x
			named.Variable = anonName(x.Span)
			named.VarSpan = x.Span
			elements[i] = &named
			changed = true
		}
	}
	if !changed {
		return part
	}
	return &ast.PatternPart{Variable: part.Variable, VarSpan: part.VarSpan, Elements: elements, Span: part.Span}
}

// hoistPatternPredicates moves inline node WHERE predicates of a MATCH
// into the clause-level WHERE conjunction. Requires pass 1: predicates
// may reference the node they sit on, so the node must be named.
func hoistPatternPredicates(q *ast.SingleQuery) *ast.SingleQuery {
	return mapClauses(q, func(c ast.Clause) []ast.Clause {
		m, ok := c.(*ast.Match)
		if !ok {
			return []ast.Clause{c}
		}
		var hoisted []ast.Expr
		parts := make([]*ast.PatternPart, len(m.Pattern.Parts))
		changed := false
		for i, part := range m.Pattern.Parts {
			elements := make([]ast.PatternElement, len(part.Elements))
			partChanged := false
			for j, el := range part.Elements {
				node, ok := el.(*ast.NodePattern)
				if !ok || node.Predicate == nil {
					elements[j] = el
					continue
				}
				hoisted = append(hoisted, node.Predicate)
				stripped := *node
				stripped.Predicate = nil
				elements[j] = &stripped
				partChanged = true
			}
			if partChanged {
				parts[i] = &ast.PatternPart{Variable: part.Variable, VarSpan: part.VarSpan, Elements: elements, Span: part.Span}
				changed = true
			} else {
				parts[i] = part
			}
		}
		if !changed {
			return []ast.Clause{m}
		}
		return []ast.Clause{&ast.Match{
			Optional: m.Optional,
			Pattern:  &ast.Pattern{Parts: parts, Span: m.Pattern.Span},
			Where:    conjoin(m.Where, hoisted),
			Span:     m.Span,
		}}
	})
}

// hoistMatchProperties turns inline property maps on named MATCH
// elements into equality conjuncts, the canonical predicate form the
// planner consumes. Writing clauses keep their property maps: there
// the map is a construction recipe, not a filter.
func hoistMatchProperties(q *ast.SingleQuery) *ast.SingleQuery {
	return mapClauses(q, func(c ast.Clause) []ast.Clause {
		m, ok := c.(*ast.Match)
		if !ok {
			return []ast.Clause{c}
		}
		var hoisted []ast.Expr
		parts := make([]*ast.PatternPart, len(m.Pattern.Parts))
		changed := false
		for i, part := range m.Pattern.Parts {
			elements := make([]ast.PatternElement, len(part.Elements))
			partChanged := false
			for j, el := range part.Elements {
				variable, varSpan, props := elementProperties(el)
				if props == nil || variable == "" {
					elements[j] = el
					continue
				}
				for _, entry := range props.Entries {
					hoisted = append(hoisted, &ast.Binary{
						Op: ast.OpEq,
						LHS: &ast.PropertyAccess{
							Subject: &ast.Variable{Name: variable, Span: varSpan},
							Key:     entry.Key,
							KeySpan: entry.KeySpan,
							Span:    token.Cover(varSpan, entry.KeySpan),
						},
						RHS:  entry.Value,
						Span: token.Cover(entry.KeySpan, entry.Value.Pos()),
					})
				}
				elements[j] = stripProperties(el)
				partChanged = true
			}
			if partChanged {
				parts[i] = &ast.PatternPart{Variable: part.Variable, VarSpan: part.VarSpan, Elements: elements, Span: part.Span}
				changed = true
			} else {
				parts[i] = part
			}
		}
		if !changed {
			return []ast.Clause{m}
		}
		return []ast.Clause{&ast.Match{
			Optional: m.Optional,
			Pattern:  &ast.Pattern{Parts: parts, Span: m.Pattern.Span},
			Where:    conjoin(m.Where, hoisted),
			Span:     m.Span,
		}}
	})
}

func elementProperties(el ast.PatternElement) (string, token.Span, *ast.MapLit) {
	switch x := el.(type) {
	case *ast.NodePattern:
		return x.Variable, x.VarSpan, x.Properties
	case *ast.RelationshipPattern:
		return x.Variable, x.VarSpan, x.Properties
	}
	return "", token.Span{}, nil
}

func stripProperties(el ast.PatternElement) ast.PatternElement {
	switch x := el.(type) {
	case *ast.NodePattern:
		stripped := *x
		stripped.Properties = nil
		return &stripped
	case *ast.RelationshipPattern:
		stripped := *x
		stripped.Properties = nil
		return &stripped
	}
	return el
}

// splitCreate turns CREATE with several comma-separated parts into a
// sequence of single-part CREATE clauses.
func splitCreate(q *ast.SingleQuery) *ast.SingleQuery {
	return mapClauses(q, func(c ast.Clause) []ast.Clause {
		cr, ok := c.(*ast.Create)
		if !ok || len(cr.Pattern.Parts) <= 1 {
			return []ast.Clause{c}
		}
		out := make([]ast.Clause, len(cr.Pattern.Parts))
		for i, part := range cr.Pattern.Parts {
			out[i] = &ast.Create{
				Pattern: &ast.Pattern{Parts: []*ast.PatternPart{part}, Span: part.Span},
				Span:    part.Span,
			}
		}
		return out
	})
}

// conjoin ANDs extra conjuncts onto an existing predicate; nil when
// both sides are empty.
func conjoin(where ast.Expr, extra []ast.Expr) ast.Expr {
	acc := where
	for _, e := range extra {
		if acc == nil {
			acc = e
			continue
		}
		acc = &ast.Binary{Op: ast.OpAnd, LHS: acc, RHS: e, Span: token.Cover(acc.Pos(), e.Pos())}
	}
	return acc
}

// mapClauses rebuilds a query by mapping each clause to its
// replacement sequence. The input query is returned unchanged when no
// clause changed.
func mapClauses(q *ast.SingleQuery, f func(ast.Clause) []ast.Clause) *ast.SingleQuery {
	var out []ast.Clause
	changed := false
	for _, c := range q.Clauses {
		repl := f(c)
		if len(repl) != 1 || repl[0] != c {
			changed = true
		}
		out = append(out, repl...)
	}
	if !changed {
		return q
	}
	return &ast.SingleQuery{Clauses: out, Span: q.Span}
}
