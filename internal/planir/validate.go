package planir

import (
	"fmt"
	"sort"
	"strings"
)

// InvariantError reports IR that violates a structural invariant. It is
// never caused by user input: a statement that survives semantic
// analysis must lower to valid IR, so an InvariantError means a bug in
// the builder.
type InvariantError struct {
	Violations []string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal: invalid plan IR: %s", strings.Join(e.Violations, "; "))
}

// Validate checks the structural invariants of a query:
//
//  1. Every predicate's dependencies are covered by its graph's bound
//     symbols.
//  2. Every relationship endpoint names a node of its graph or an
//     argument.
//  3. Every optional sub-graph's arguments are bound by its parent.
//  4. Every element and argument name is non-empty.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	if len(v.violations) == 0 {
		return nil
	}
	return &InvariantError{Violations: v.violations}
}

type validator struct {
	violations []string
}

func (v *validator) addf(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch x := q.(type) {
	case *PlannerQuery:
		for pq := x; pq != nil; pq = pq.Next {
			v.validateSegment(pq)
		}
	case *UnionQuery:
		if len(x.Branches) < 2 {
			v.addf("union with %d branches", len(x.Branches))
		}
		for _, b := range x.Branches {
			v.validateQuery(b)
		}
	default:
		v.addf("unknown query type %T", q)
	}
}

func (v *validator) validateSegment(pq *PlannerQuery) {
	v.validateGraph(&pq.Graph, nil)
	if h, ok := pq.Horizon.(*Subquery); ok {
		v.validateQuery(h.Inner)
	}
}

// validateGraph checks one graph. For an optional sub-graph, outer is
// the bound set of the enclosing graph.
func (v *validator) validateGraph(g *QueryGraph, outer map[string]bool) {
	bound := g.Bound()

	for _, a := range g.Arguments {
		if a == "" {
			v.addf("empty argument name")
		}
		if outer != nil && !outer[a] {
			v.addf("optional graph argument %q not bound by enclosing graph", a)
		}
	}
	for _, n := range g.Nodes {
		if n.Name == "" {
			v.addf("unnamed node element")
		}
	}
	for _, r := range g.Relationships {
		if r.Name == "" {
			v.addf("unnamed relationship element")
		}
		if !bound[r.Start] {
			v.addf("relationship %q start %q not bound", r.Name, r.Start)
		}
		if !bound[r.End] {
			v.addf("relationship %q end %q not bound", r.Name, r.End)
		}
	}
	for _, p := range g.Predicates {
		for _, dep := range p.Dependencies {
			if !bound[dep] {
				v.addf("predicate %s depends on unbound %q (bound: %s)",
					exprText(p.Expr), dep, boundList(bound))
			}
		}
	}
	for _, opt := range g.Optionals {
		v.validateGraph(opt, bound)
	}
}

func boundList(bound map[string]bool) string {
	names := make([]string, 0, len(bound))
	for n := range bound {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
