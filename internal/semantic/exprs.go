package semantic

import (
	"strings"

	"github.com/roach88/cypherc/internal/ast"
)

// checkExpr resolves references and infers the type category of e,
// recording it in the annotation table. Errors are accumulated; the
// expression still receives a (possibly Unknown) category so analysis
// can continue past local failures.
func (a *analyzer) checkExpr(e ast.Expr, scope *Scope) TypeCategory {
	t := a.exprType(e, scope)
	a.types[e] = t
	return t
}

func (a *analyzer) exprType(e ast.Expr, scope *Scope) TypeCategory {
	switch x := e.(type) {
	case *ast.IntegerLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit:
		return TypeScalar
	case *ast.NullLit:
		return TypeUnknown
	case *ast.Variable:
		sym := scope.Lookup(x.Name)
		if sym == nil {
			a.reportUnbound(x.Name, x.Span, scope)
			return TypeUnknown
		}
		return sym.Type
	case *ast.Parameter:
		if t, ok := a.params[x.Name]; ok {
			return t
		}
		return TypeUnknown
	case *ast.PropertyAccess:
		t := a.checkExpr(x.Subject, scope)
		if !compatible(t, TypeNode, TypeRelationship, TypeMap) {
			a.errorf(CodeTypeMismatch, x.Subject.Pos(), "property access requires a node, relationship or map, got %s", t)
		}
		if a.catalog != nil && !a.catalog.PropertyKeyExists(x.Key) {
			a.notify(NoteUnknownPropertyKey, x.KeySpan, "property key %q does not exist in the catalog", x.Key)
		}
		return TypeUnknown
	case *ast.FunctionCall:
		for _, arg := range x.Args {
			a.checkExpr(arg, scope)
		}
		if t, ok := functionResults[strings.ToLower(x.Name)]; ok && len(x.Namespace) == 0 {
			return t
		}
		return TypeUnknown
	case *ast.CountStar:
		return TypeScalar
	case *ast.Binary:
		return a.binaryType(x, scope)
	case *ast.Unary:
		t := a.checkExpr(x.Operand, scope)
		switch x.Op {
		case ast.OpNot:
			if !compatible(t, TypeScalar) {
				a.errorf(CodeTypeMismatch, x.Operand.Pos(), "NOT requires a boolean operand, got %s", t)
			}
			return TypeScalar
		case ast.OpNeg, ast.OpPos:
			if !compatible(t, TypeScalar) {
				a.errorf(CodeTypeMismatch, x.Operand.Pos(), "unary %s requires a number, got %s", x.Op, t)
			}
			return TypeScalar
		default: // IS NULL / IS NOT NULL accept anything
			return TypeScalar
		}
	case *ast.ListLit:
		for _, item := range x.Items {
			a.checkExpr(item, scope)
		}
		return TypeList
	case *ast.MapLit:
		for _, entry := range x.Entries {
			a.checkExpr(entry.Value, scope)
		}
		return TypeMap
	case *ast.Index:
		t := a.checkExpr(x.Subject, scope)
		if !compatible(t, TypeList, TypeMap) {
			a.errorf(CodeTypeMismatch, x.Subject.Pos(), "index access requires a list or map, got %s", t)
		}
		a.checkExpr(x.Key, scope)
		return TypeUnknown
	case *ast.Slice:
		t := a.checkExpr(x.Subject, scope)
		if !compatible(t, TypeList) {
			a.errorf(CodeTypeMismatch, x.Subject.Pos(), "slice requires a list, got %s", t)
		}
		if x.From != nil {
			a.checkExpr(x.From, scope)
		}
		if x.To != nil {
			a.checkExpr(x.To, scope)
		}
		return TypeList
	case *ast.ListComprehension:
		t := a.checkExpr(x.Source, scope)
		if !compatible(t, TypeList) {
			a.errorf(CodeTypeMismatch, x.Source.Pos(), "comprehension source must be a list, got %s", t)
		}
		inner := NewScope(scope)
		inner.Shadow(x.Variable, TypeUnknown, x.VarSpan)
		if x.Where != nil {
			a.checkExpr(x.Where, inner)
		}
		if x.Projection != nil {
			a.checkExpr(x.Projection, inner)
		}
		return TypeList
	case *ast.PatternComprehension:
		inner := NewScope(scope)
		pattern := &ast.Pattern{Parts: []*ast.PatternPart{x.Part}, Span: x.Part.Span}
		a.analyzePattern(pattern, inner, true)
		if x.Where != nil {
			a.checkExpr(x.Where, inner)
		}
		if x.Projection != nil {
			a.checkExpr(x.Projection, inner)
		}
		return TypeList
	case *ast.Case:
		if x.Test != nil {
			a.checkExpr(x.Test, scope)
		}
		result := TypeCategory("")
		for _, alt := range x.Alternatives {
			a.checkExpr(alt.When, scope)
			t := a.checkExpr(alt.Then, scope)
			result = unify(result, t)
		}
		if x.Else != nil {
			result = unify(result, a.checkExpr(x.Else, scope))
		}
		if result == "" {
			return TypeUnknown
		}
		return result
	case *ast.Exists:
		inner := NewScope(scope)
		a.analyzePattern(x.Pattern, inner, true)
		if x.Where != nil {
			a.checkExpr(x.Where, inner)
		}
		return TypeScalar
	default:
		return TypeUnknown
	}
}

func (a *analyzer) binaryType(x *ast.Binary, scope *Scope) TypeCategory {
	lt := a.checkExpr(x.LHS, scope)
	rt := a.checkExpr(x.RHS, scope)
	switch x.Op {
	case ast.OpOr, ast.OpXor, ast.OpAnd:
		if !compatible(lt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.LHS.Pos(), "%s requires boolean operands, got %s", x.Op, lt)
		}
		if !compatible(rt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.RHS.Pos(), "%s requires boolean operands, got %s", x.Op, rt)
		}
		return TypeScalar
	case ast.OpEq, ast.OpNeq:
		// Equality is defined across all categories.
		return TypeScalar
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		if !compatible(lt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.LHS.Pos(), "%s requires comparable scalars, got %s", x.Op, lt)
		}
		if !compatible(rt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.RHS.Pos(), "%s requires comparable scalars, got %s", x.Op, rt)
		}
		return TypeScalar
	case ast.OpIn:
		if !compatible(rt, TypeList) {
			a.errorf(CodeTypeMismatch, x.RHS.Pos(), "IN requires a list on the right, got %s", rt)
		}
		return TypeScalar
	case ast.OpStartsWith, ast.OpEndsWith, ast.OpContains, ast.OpRegex:
		if !compatible(lt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.LHS.Pos(), "%s requires string operands, got %s", x.Op, lt)
		}
		if !compatible(rt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.RHS.Pos(), "%s requires string operands, got %s", x.Op, rt)
		}
		return TypeScalar
	case ast.OpAdd:
		// + concatenates lists and strings as well as adding numbers.
		if !compatible(lt, TypeScalar, TypeList) {
			a.errorf(CodeTypeMismatch, x.LHS.Pos(), "+ requires numbers, strings or lists, got %s", lt)
		}
		if !compatible(rt, TypeScalar, TypeList) {
			a.errorf(CodeTypeMismatch, x.RHS.Pos(), "+ requires numbers, strings or lists, got %s", rt)
		}
		if lt == TypeList || rt == TypeList {
			return TypeList
		}
		if lt == TypeUnknown || rt == TypeUnknown {
			return TypeUnknown
		}
		return TypeScalar
	default: // arithmetic
		if !compatible(lt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.LHS.Pos(), "%s requires numeric operands, got %s", x.Op, lt)
		}
		if !compatible(rt, TypeScalar) {
			a.errorf(CodeTypeMismatch, x.RHS.Pos(), "%s requires numeric operands, got %s", x.Op, rt)
		}
		return TypeScalar
	}
}

// unify merges two branch categories: equal stays, different widens to
// Unknown. The empty string is the identity used before the first
// branch.
func unify(a, b TypeCategory) TypeCategory {
	if a == "" {
		return b
	}
	if a == b {
		return a
	}
	return TypeUnknown
}

// IsAggregate reports whether e is an aggregation function application
// or count(*).
func IsAggregate(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.CountStar:
		return true
	case *ast.FunctionCall:
		return len(x.Namespace) == 0 && aggregateFunctions[strings.ToLower(x.Name)]
	}
	return false
}

// ContainsAggregate reports whether any subexpression of e aggregates.
func ContainsAggregate(e ast.Expr) bool {
	found := false
	walkExpr(e, func(sub ast.Expr) bool {
		if IsAggregate(sub) {
			found = true
			return false
		}
		return true
	})
	return found
}

// checkAggregates reports nested aggregation and returns whether the
// item aggregates at all.
func (a *analyzer) checkAggregates(e ast.Expr) bool {
	aggregating := false
	walkExpr(e, func(sub ast.Expr) bool {
		if !IsAggregate(sub) {
			return true
		}
		aggregating = true
		if call, ok := sub.(*ast.FunctionCall); ok {
			for _, arg := range call.Args {
				if ContainsAggregate(arg) {
					a.errorf(CodeAggregationNested, arg.Pos(), "aggregation functions cannot be nested")
				}
			}
		}
		return false
	})
	return aggregating
}

// checkGrouping enforces the aggregation mixing rule: in a projection
// that aggregates, a variable used outside an aggregation must itself
// be (part of) a grouping key, i.e. appear as a non-aggregated item of
// the same projection.
func (a *analyzer) checkGrouping(proj *ast.Projection) {
	groupingTexts := map[string]bool{}
	for _, item := range proj.Items {
		if !ContainsAggregate(item.Expr) {
			groupingTexts[ast.ExprString(item.Expr)] = true
			groupingTexts[item.Alias] = true
		}
	}
	for _, item := range proj.Items {
		if !ContainsAggregate(item.Expr) {
			continue
		}
		a.checkGroupedVars(item.Expr, groupingTexts)
	}
}

func (a *analyzer) checkGroupedVars(e ast.Expr, grouping map[string]bool) {
	if IsAggregate(e) || grouping[ast.ExprString(e)] {
		return
	}
	if v, ok := e.(*ast.Variable); ok {
		a.errorf(CodeMixedAggregation, v.Span,
			"variable %q must be an explicit grouping key to be used alongside an aggregation", v.Name)
		return
	}
	children(e, func(sub ast.Expr) {
		a.checkGroupedVars(sub, grouping)
	})
}

// containsVariable reports whether e references any variable.
func containsVariable(e ast.Expr) bool {
	found := false
	walkExpr(e, func(sub ast.Expr) bool {
		if _, ok := sub.(*ast.Variable); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// walkExpr visits e and its subexpressions depth-first. The visitor
// returns false to skip a node's children.
func walkExpr(e ast.Expr, visit func(ast.Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	children(e, func(sub ast.Expr) {
		walkExpr(sub, visit)
	})
}

// children calls fn for each direct subexpression of e.
func children(e ast.Expr, fn func(ast.Expr)) {
	emit := func(sub ast.Expr) {
		if sub != nil {
			fn(sub)
		}
	}
	switch x := e.(type) {
	case *ast.PropertyAccess:
		emit(x.Subject)
	case *ast.FunctionCall:
		for _, arg := range x.Args {
			emit(arg)
		}
	case *ast.Binary:
		emit(x.LHS)
		emit(x.RHS)
	case *ast.Unary:
		emit(x.Operand)
	case *ast.ListLit:
		for _, item := range x.Items {
			emit(item)
		}
	case *ast.MapLit:
		for _, entry := range x.Entries {
			emit(entry.Value)
		}
	case *ast.Index:
		emit(x.Subject)
		emit(x.Key)
	case *ast.Slice:
		emit(x.Subject)
		emit(x.From)
		emit(x.To)
	case *ast.ListComprehension:
		emit(x.Source)
		emit(x.Where)
		emit(x.Projection)
	case *ast.PatternComprehension:
		emit(x.Where)
		emit(x.Projection)
	case *ast.Case:
		emit(x.Test)
		for _, alt := range x.Alternatives {
			emit(alt.When)
			emit(alt.Then)
		}
		emit(x.Else)
	case *ast.Exists:
		emit(x.Where)
	}
}
