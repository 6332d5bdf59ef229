package rewrite

import (
	"sort"

	"github.com/roach88/cypherc/internal/ast"
)

// flattenPassthroughWith removes a WITH that projects exactly the
// current bindings under their own names and carries no modifier. Such
// a clause introduces a horizon boundary without changing anything the
// downstream clauses can observe, so the IR builder would emit an empty
// segment for it.
//
// Binding tracking here is purely syntactic. Whenever the bound set
// cannot be determined exactly (YIELD *, or a subquery whose columns
// depend on a star projection) removal is suspended until the next
// explicit projection re-establishes it.
func flattenPassthroughWith(q *ast.SingleQuery) *ast.SingleQuery {
	bound := map[string]bool{}
	exact := true
	out := make([]ast.Clause, 0, len(q.Clauses))
	changed := false

	for _, c := range q.Clauses {
		if w, ok := c.(*ast.With); ok && exact && isPassthrough(w, bound) {
			changed = true
			continue
		}
		out = append(out, c)
		bound, exact = applyBindings(c, bound, exact)
	}
	if !changed {
		return q
	}
	return &ast.SingleQuery{Clauses: out, Span: q.Span}
}

func isPassthrough(w *ast.With, bound map[string]bool) bool {
	p := w.Projection
	if w.Where != nil || p.Distinct || p.Star {
		return false
	}
	if len(p.OrderBy) > 0 || p.Skip != nil || p.Limit != nil {
		return false
	}
	if len(p.Items) != len(bound) {
		return false
	}
	for _, item := range p.Items {
		v, ok := item.Expr.(*ast.Variable)
		if !ok || item.Alias != v.Name || !bound[v.Name] {
			return false
		}
	}
	return true
}

// applyBindings threads the syntactically bound names through one
// clause. The second result reports whether the set is still exact.
func applyBindings(c ast.Clause, bound map[string]bool, exact bool) (map[string]bool, bool) {
	switch x := c.(type) {
	case *ast.Match:
		return addPatternNames(bound, x.Pattern), exact
	case *ast.Create:
		return addPatternNames(bound, x.Pattern), exact
	case *ast.Merge:
		return addPartNames(bound, x.Part), exact
	case *ast.Unwind:
		next := cloneSet(bound)
		next[x.Alias] = true
		return next, exact
	case *ast.With:
		return projectedNames(x.Projection, bound, exact)
	case *ast.Return:
		return projectedNames(x.Projection, bound, exact)
	case *ast.Call:
		if x.YieldAll {
			return bound, false
		}
		next := cloneSet(bound)
		for _, y := range x.Yield {
			name := y.Alias
			if name == "" {
				name = y.Name
			}
			next[name] = true
		}
		return next, exact
	case *ast.SubqueryCall:
		names, ok := subqueryColumns(x.Query)
		if !ok {
			return bound, false
		}
		next := cloneSet(bound)
		for _, n := range names {
			next[n] = true
		}
		return next, exact
	default:
		return bound, exact
	}
}

func projectedNames(p *ast.Projection, bound map[string]bool, exact bool) (map[string]bool, bool) {
	next := map[string]bool{}
	if p.Star {
		if !exact {
			return bound, false
		}
		next = cloneSet(bound)
	}
	for _, item := range p.Items {
		next[item.Alias] = true
	}
	return next, true
}

// subqueryColumns reports the column names a CALL { ... } subquery
// exposes, when they are syntactically determinable.
func subqueryColumns(q ast.Query) ([]string, bool) {
	var single *ast.SingleQuery
	switch x := q.(type) {
	case *ast.SingleQuery:
		single = x
	case *ast.UnionQuery:
		// Branches must agree on columns, so the last one suffices.
		single = x.RHS
	}
	if single == nil || len(single.Clauses) == 0 {
		return nil, true
	}
	ret, ok := single.Clauses[len(single.Clauses)-1].(*ast.Return)
	if !ok {
		return nil, true
	}
	if ret.Projection.Star {
		return nil, false
	}
	names := make([]string, 0, len(ret.Projection.Items))
	for _, item := range ret.Projection.Items {
		names = append(names, item.Alias)
	}
	return names, true
}

func addPatternNames(bound map[string]bool, p *ast.Pattern) map[string]bool {
	next := cloneSet(bound)
	for _, part := range p.Parts {
		addPartInto(next, part)
	}
	return next
}

func addPartNames(bound map[string]bool, part *ast.PatternPart) map[string]bool {
	next := cloneSet(bound)
	addPartInto(next, part)
	return next
}

func addPartInto(set map[string]bool, part *ast.PatternPart) {
	if part.Variable != "" {
		set[part.Variable] = true
	}
	for _, el := range part.Elements {
		switch e := el.(type) {
		case *ast.NodePattern:
			if e.Variable != "" {
				set[e.Variable] = true
			}
		case *ast.RelationshipPattern:
			if e.Variable != "" {
				set[e.Variable] = true
			}
		}
	}
}

func cloneSet(set map[string]bool) map[string]bool {
	next := make(map[string]bool, len(set))
	for k := range set {
		next[k] = true
	}
	return next
}

// BoundNames returns the sorted names visible after the final clause of
// a single query. The IR builder uses it to seed horizon arguments.
func BoundNames(q *ast.SingleQuery) []string {
	bound := map[string]bool{}
	exact := true
	for _, c := range q.Clauses {
		bound, exact = applyBindings(c, bound, exact)
	}
	_ = exact
	names := make([]string, 0, len(bound))
	for n := range bound {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
