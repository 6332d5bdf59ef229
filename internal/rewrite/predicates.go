package rewrite

import (
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/token"
)

// ExprHash is the structural identity of an expression: the hash of its
// canonical rendering. Two expressions hash equal exactly when they are
// structurally identical, which is what lets the IR builder assign one
// symbol to one computed value.
func ExprHash(e ast.Expr) uint64 {
	return xxh3.HashString(ast.ExprString(e))
}

// normalizePredicates rewrites every clause-level WHERE into
// conjunctive normal form with structurally duplicate conjuncts removed
// and the remainder in canonical order.
func normalizePredicates(q *ast.SingleQuery) *ast.SingleQuery {
	return mapClauses(q, func(c ast.Clause) []ast.Clause {
		switch x := c.(type) {
		case *ast.Match:
			if x.Where == nil {
				return []ast.Clause{x}
			}
			where := CNF(x.Where)
			if where == x.Where {
				return []ast.Clause{x}
			}
			return []ast.Clause{&ast.Match{Optional: x.Optional, Pattern: x.Pattern, Where: where, Span: x.Span}}
		case *ast.With:
			if x.Where == nil {
				return []ast.Clause{x}
			}
			where := CNF(x.Where)
			if where == x.Where {
				return []ast.Clause{x}
			}
			return []ast.Clause{&ast.With{Projection: x.Projection, Where: where, Span: x.Span}}
		default:
			return []ast.Clause{c}
		}
	})
}

// CNF rewrites a boolean expression into conjunctive normal form:
// negations pushed onto leaves, OR distributed over AND, conjuncts and
// disjuncts deduplicated and canonically ordered. Applying CNF to its
// own output returns a structurally equal tree.
func CNF(e ast.Expr) ast.Expr {
	clauses := distribute(nnf(e))
	conjuncts := make([]ast.Expr, 0, len(clauses))
	seen := map[uint64]bool{}
	for _, disjuncts := range clauses {
		conjunct := joinOr(canonicalize(disjuncts))
		h := ExprHash(conjunct)
		if seen[h] {
			continue
		}
		seen[h] = true
		conjuncts = append(conjuncts, conjunct)
	}
	sort.SliceStable(conjuncts, func(i, j int) bool {
		return ast.ExprString(conjuncts[i]) < ast.ExprString(conjuncts[j])
	})
	out := joinAnd(conjuncts)
	// Preserve pointer identity when nothing changed, so callers can
	// detect a no-op cheaply.
	if ast.ExprString(out) == ast.ExprString(e) {
		return e
	}
	return out
}

// Conjuncts splits a CNF predicate into its top-level conjuncts.
func Conjuncts(e ast.Expr) []ast.Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(*ast.Binary); ok && b.Op == ast.OpAnd {
		return append(Conjuncts(b.LHS), Conjuncts(b.RHS)...)
	}
	return []ast.Expr{e}
}

// nnf pushes negations inward: double negations cancel, De Morgan's
// laws rewrite negated conjunctions and disjunctions. Non-boolean
// structure is left untouched.
func nnf(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.Binary:
		if x.Op == ast.OpAnd || x.Op == ast.OpOr {
			lhs := nnf(x.LHS)
			rhs := nnf(x.RHS)
			if lhs == x.LHS && rhs == x.RHS {
				return x
			}
			return &ast.Binary{Op: x.Op, LHS: lhs, RHS: rhs, Span: x.Span}
		}
		return x
	case *ast.Unary:
		if x.Op != ast.OpNot {
			return x
		}
		switch inner := x.Operand.(type) {
		case *ast.Unary:
			if inner.Op == ast.OpNot {
				return nnf(inner.Operand)
			}
			return x
		case *ast.Binary:
			switch inner.Op {
			case ast.OpAnd:
				return &ast.Binary{
					Op:   ast.OpOr,
					LHS:  nnf(negate(inner.LHS)),
					RHS:  nnf(negate(inner.RHS)),
					Span: x.Span,
				}
			case ast.OpOr:
				return &ast.Binary{
					Op:   ast.OpAnd,
					LHS:  nnf(negate(inner.LHS)),
					RHS:  nnf(negate(inner.RHS)),
					Span: x.Span,
				}
			}
			return x
		default:
			return x
		}
	default:
		return e
	}
}

func negate(e ast.Expr) ast.Expr {
	if u, ok := e.(*ast.Unary); ok && u.Op == ast.OpNot {
		return u.Operand
	}
	return &ast.Unary{Op: ast.OpNot, Operand: e, Span: e.Pos()}
}

// distribute converts an NNF tree to clause sets: the result is a
// conjunction of disjunction lists.
func distribute(e ast.Expr) [][]ast.Expr {
	if b, ok := e.(*ast.Binary); ok {
		switch b.Op {
		case ast.OpAnd:
			return append(distribute(b.LHS), distribute(b.RHS)...)
		case ast.OpOr:
			lhs := distribute(b.LHS)
			rhs := distribute(b.RHS)
			out := make([][]ast.Expr, 0, len(lhs)*len(rhs))
			for _, l := range lhs {
				for _, r := range rhs {
					merged := make([]ast.Expr, 0, len(l)+len(r))
					merged = append(merged, l...)
					merged = append(merged, r...)
					out = append(out, merged)
				}
			}
			return out
		}
	}
	return [][]ast.Expr{{e}}
}

// canonicalize sorts disjuncts by canonical text and drops structural
// duplicates.
func canonicalize(disjuncts []ast.Expr) []ast.Expr {
	seen := map[uint64]bool{}
	out := make([]ast.Expr, 0, len(disjuncts))
	for _, d := range disjuncts {
		h := ExprHash(d)
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ast.ExprString(out[i]) < ast.ExprString(out[j])
	})
	return out
}

func joinOr(exprs []ast.Expr) ast.Expr {
	return joinWith(ast.OpOr, exprs)
}

func joinAnd(exprs []ast.Expr) ast.Expr {
	return joinWith(ast.OpAnd, exprs)
}

func joinWith(op ast.BinaryOp, exprs []ast.Expr) ast.Expr {
	if len(exprs) == 0 {
		return nil
	}
	acc := exprs[0]
	for _, e := range exprs[1:] {
		acc = &ast.Binary{Op: op, LHS: acc, RHS: e, Span: token.Cover(acc.Pos(), e.Pos())}
	}
	return acc
}
