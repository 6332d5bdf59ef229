// Package rewrite canonicalizes a validated statement through a fixed
// sequence of tree-to-tree transformations. Every pass is pure and
// deterministic, and the whole pipeline is idempotent: normalizing an
// already-normal tree returns an equal tree.
//
// Passes run in a fixed order; later passes rely on the invariants
// established by earlier ones:
//
//  1. nameAnonymousElements — every pattern node and relationship gets
//     a variable, anonymous ones a position-derived name.
//  2. hoistPatternPredicates — inline node WHERE predicates move into
//     the owning MATCH's WHERE conjunction.
//  3. hoistMatchProperties — inline property maps on named MATCH
//     elements become equality conjuncts, the canonical predicate form.
//  4. splitCreate — CREATE with several pattern parts becomes one
//     CREATE per part.
//  5. normalizePredicates — WHERE trees are rewritten to conjunctive
//     normal form: negations pushed inward, conjunctions flattened,
//     disjunctions distributed, structurally duplicate conjuncts
//     removed, conjuncts ordered canonically.
//  6. flattenPassthroughWith — a WITH that projects exactly the
//     current bindings unchanged, with no modifiers, is removed.
//
// Passes operate on tree shape only, never on resolved runtime values.
// Input trees are never mutated; unchanged subtrees may be shared
// between the input and output statement (each output tree still owns
// each node exactly once).
package rewrite

import (
	"github.com/roach88/cypherc/internal/ast"
)

// Normalize applies every canonicalizing pass to stmt and returns the
// rewritten statement.
func Normalize(stmt *ast.Statement) *ast.Statement {
	q := stmt.Query
	q = mapQueries(q, nameAnonymousElements)
	q = mapQueries(q, hoistPatternPredicates)
	q = mapQueries(q, hoistMatchProperties)
	q = mapQueries(q, splitCreate)
	q = mapQueries(q, normalizePredicates)
	q = mapQueries(q, flattenPassthroughWith)
	return &ast.Statement{Query: q, Span: stmt.Span}
}

// mapQueries applies f to every SingleQuery of q, including UNION
// branches and CALL subqueries, rebuilding the query structure.
func mapQueries(q ast.Query, f func(*ast.SingleQuery) *ast.SingleQuery) ast.Query {
	switch x := q.(type) {
	case *ast.SingleQuery:
		out := f(x)
		clauses := make([]ast.Clause, len(out.Clauses))
		changed := false
		for i, c := range out.Clauses {
			if sub, ok := c.(*ast.SubqueryCall); ok {
				inner := mapQueries(sub.Query, f)
				if inner != sub.Query {
					changed = true
					clauses[i] = &ast.SubqueryCall{Query: inner, Span: sub.Span}
					continue
				}
			}
			clauses[i] = c
		}
		if !changed {
			return out
		}
		return &ast.SingleQuery{Clauses: clauses, Span: out.Span}
	case *ast.UnionQuery:
		lhs := mapQueries(x.LHS, f)
		rhs := mapQueries(x.RHS, f).(*ast.SingleQuery)
		if lhs == x.LHS && rhs == x.RHS {
			return x
		}
		return &ast.UnionQuery{LHS: lhs, RHS: rhs, All: x.All, Span: x.Span}
	default:
		return q
	}
}
