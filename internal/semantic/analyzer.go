package semantic

import (
	"fmt"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/token"
)

// Result is the annotated outcome of a successful analysis.
type Result struct {
	Statement     *ast.Statement
	Types         map[ast.Expr]TypeCategory
	Notifications []Notification
}

// TypeOf returns the inferred category for an expression, Unknown when
// the expression was not seen during analysis.
func (r *Result) TypeOf(e ast.Expr) TypeCategory {
	if t, ok := r.Types[e]; ok {
		return t
	}
	return TypeUnknown
}

// Analyze validates stmt against scoping, clause-ordering and type
// rules. params declares the type category of each query parameter;
// undeclared parameters type as Unknown. catalog may be nil.
//
// Analysis never stops at the first problem: the returned slice holds
// every distinct error found, in source order of detection. The Result
// is only meaningful when the error slice is empty.
func Analyze(stmt *ast.Statement, params map[string]TypeCategory, catalog Catalog) (*Result, []Error) {
	a := &analyzer{
		params:  params,
		catalog: catalog,
		types:   map[ast.Expr]TypeCategory{},
		unbound: map[string]bool{},
	}
	a.analyzeQuery(stmt.Query, nil)
	res := &Result{Statement: stmt, Types: a.types, Notifications: a.notes}
	return res, a.errs
}

type analyzer struct {
	params  map[string]TypeCategory
	catalog Catalog
	errs    []Error
	notes   []Notification
	types   map[ast.Expr]TypeCategory

	// unbound suppresses repeat reports: one UnboundVariable per
	// distinct name per scope, so a single missing declaration does not
	// flood the report.
	unbound map[string]bool
}

func (a *analyzer) errorf(code string, span token.Span, format string, args ...any) {
	a.errs = append(a.errs, Error{Code: code, Msg: fmt.Sprintf(format, args...), Span: span})
}

func (a *analyzer) notify(code string, span token.Span, format string, args ...any) {
	a.notes = append(a.notes, Notification{Code: code, Msg: fmt.Sprintf(format, args...), Span: span})
}

// analyzeQuery walks a query; UNION branches are analyzed in
// independent scopes. It returns the scope visible after the final
// projection, used by subquery CALL to surface returned columns.
func (a *analyzer) analyzeQuery(q ast.Query, outer *Scope) *Scope {
	switch x := q.(type) {
	case *ast.SingleQuery:
		return a.analyzeSingleQuery(x, outer)
	case *ast.UnionQuery:
		lhs := a.analyzeQuery(x.LHS, outer)
		a.analyzeSingleQuery(x.RHS, outer)
		// Column alignment across branches is verified during IR
		// construction, where the projected column lists exist.
		return lhs
	default:
		return NewScope(outer)
	}
}

func (a *analyzer) analyzeSingleQuery(q *ast.SingleQuery, outer *Scope) *Scope {
	scope := NewScope(outer)
	for i, clause := range q.Clauses {
		last := i == len(q.Clauses)-1
		switch c := clause.(type) {
		case *ast.Match:
			a.analyzePattern(c.Pattern, scope, true)
			if c.Where != nil {
				a.checkExpr(c.Where, scope)
			}
		case *ast.Create:
			a.analyzePattern(c.Pattern, scope, false)
		case *ast.Merge:
			part := &ast.Pattern{Parts: []*ast.PatternPart{c.Part}, Span: c.Part.Span}
			a.analyzePattern(part, scope, false)
			for _, item := range append(append([]*ast.SetItem{}, c.OnCreate...), c.OnMatch...) {
				a.analyzeSetItem(item, scope)
			}
		case *ast.Unwind:
			t := a.checkExpr(c.Expr, scope)
			if !compatible(t, TypeList) {
				a.errorf(CodeTypeMismatch, c.Expr.Pos(), "UNWIND requires a list, got %s", t)
			}
			// UNWIND may shadow an existing binding.
			scope.Shadow(c.Alias, TypeUnknown, c.AliasSpan)
		case *ast.With:
			scope = a.analyzeProjection(c.Projection, scope)
			if c.Where != nil {
				a.checkExpr(c.Where, scope)
			}
		case *ast.Return:
			scope = a.analyzeProjection(c.Projection, scope)
			if !last {
				a.errorf(CodeInvalidClauseOrder, q.Clauses[i+1].Pos(), "RETURN must be the final clause")
			}
		case *ast.Delete:
			for _, expr := range c.Exprs {
				t := a.checkExpr(expr, scope)
				if !compatible(t, TypeNode, TypeRelationship, TypePath) {
					a.errorf(CodeInvalidDelete, expr.Pos(), "DELETE target must be a node, relationship or path, got %s", t)
				}
			}
		case *ast.Set:
			for _, item := range c.Items {
				a.analyzeSetItem(item, scope)
			}
		case *ast.Remove:
			for _, item := range c.Items {
				a.analyzeRemoveItem(item, scope)
			}
		case *ast.Call:
			for _, arg := range c.Args {
				a.checkExpr(arg, scope)
			}
			for _, y := range c.Yield {
				name := y.Name
				span := y.Span
				if y.Alias != "" {
					name = y.Alias
					span = y.AliasSpan
				}
				if _, ok := scope.Declare(name, TypeUnknown, span); !ok {
					a.errorf(CodeVariableRedeclared, span, "variable %q already declared", name)
				}
			}
		case *ast.SubqueryCall:
			inner := a.analyzeQuery(c.Query, scope)
			for _, col := range returnedColumns(c.Query) {
				sym := inner.Lookup(col)
				t := TypeUnknown
				if sym != nil {
					t = sym.Type
				}
				if _, ok := scope.Declare(col, t, c.Span); !ok {
					a.errorf(CodeVariableRedeclared, c.Span, "subquery returns %q which is already declared", col)
				}
			}
		}
	}
	return scope
}

// returnedColumns lists the column names of a query's final RETURN,
// empty when the query does not end in RETURN.
func returnedColumns(q ast.Query) []string {
	switch x := q.(type) {
	case *ast.SingleQuery:
		if len(x.Clauses) == 0 {
			return nil
		}
		ret, ok := x.Clauses[len(x.Clauses)-1].(*ast.Return)
		if !ok {
			return nil
		}
		cols := make([]string, 0, len(ret.Projection.Items))
		for _, item := range ret.Projection.Items {
			cols = append(cols, item.Alias)
		}
		return cols
	case *ast.UnionQuery:
		return returnedColumns(x.LHS)
	}
	return nil
}

// analyzeProjection checks a WITH/RETURN item list and returns the
// scope it opens: only projected names remain visible.
func (a *analyzer) analyzeProjection(proj *ast.Projection, scope *Scope) *Scope {
	next := NewScope(nil)
	if proj.Star {
		for _, name := range scope.Visible() {
			sym := scope.Lookup(name)
			next.Shadow(name, sym.Type, sym.DeclaredAt)
		}
	}

	seen := map[string]bool{}
	var aggregating bool
	for _, item := range proj.Items {
		t := a.checkExpr(item.Expr, scope)
		if seen[item.Alias] {
			a.errorf(CodeDuplicateColumn, item.AliasSpan, "column %q declared more than once", item.Alias)
		}
		seen[item.Alias] = true
		next.Shadow(item.Alias, t, item.AliasSpan)
		if a.checkAggregates(item.Expr) {
			aggregating = true
		}
	}
	if aggregating {
		a.checkGrouping(proj)
	}

	// ORDER BY sees both the projected columns and the original
	// bindings; SKIP and LIMIT see neither.
	if len(proj.OrderBy) > 0 {
		ordScope := NewScope(scope)
		for name := range next.symbols {
			sym := next.symbols[name]
			ordScope.Shadow(name, sym.Type, sym.DeclaredAt)
		}
		for _, s := range proj.OrderBy {
			a.checkExpr(s.Expr, ordScope)
		}
	}
	for _, bound := range []ast.Expr{proj.Skip, proj.Limit} {
		if bound == nil {
			continue
		}
		if containsVariable(bound) {
			a.errorf(CodeTypeMismatch, bound.Pos(), "SKIP/LIMIT must be a literal or parameter expression")
			continue
		}
		a.checkExpr(bound, NewScope(nil))
	}
	return next
}

func (a *analyzer) analyzeSetItem(item *ast.SetItem, scope *Scope) {
	switch item.Op {
	case ast.SetProperty:
		t := a.checkExpr(item.Property.Subject, scope)
		if !compatible(t, TypeNode, TypeRelationship, TypeMap) {
			a.errorf(CodeTypeMismatch, item.Property.Subject.Pos(), "property assignment requires a node, relationship or map, got %s", t)
		}
		a.checkExpr(item.Value, scope)
	case ast.SetVariable, ast.SetMerge:
		a.resolveVariable(item.Variable, item.Span, scope)
		a.checkExpr(item.Value, scope)
	case ast.SetLabels:
		sym := a.resolveVariable(item.Variable, item.Span, scope)
		if sym != nil && !compatible(sym.Type, TypeNode) {
			a.errorf(CodeTypeMismatch, item.Span, "labels can only be set on nodes, got %s", sym.Type)
		}
		a.checkLabels(item.Labels, item.Span)
	}
}

func (a *analyzer) analyzeRemoveItem(item *ast.RemoveItem, scope *Scope) {
	if item.Property != nil {
		t := a.checkExpr(item.Property.Subject, scope)
		if !compatible(t, TypeNode, TypeRelationship, TypeMap) {
			a.errorf(CodeTypeMismatch, item.Property.Subject.Pos(), "property removal requires a node, relationship or map, got %s", t)
		}
		return
	}
	sym := a.resolveVariable(item.Variable, item.Span, scope)
	if sym != nil && !compatible(sym.Type, TypeNode) {
		a.errorf(CodeTypeMismatch, item.Span, "labels can only be removed from nodes, got %s", sym.Type)
	}
	a.checkLabels(item.Labels, item.Span)
}

// resolveVariable looks up a name used outside expression context,
// reporting UnboundVariable once per name per scope.
func (a *analyzer) resolveVariable(name string, span token.Span, scope *Scope) *Symbol {
	sym := scope.Lookup(name)
	if sym == nil {
		a.reportUnbound(name, span, scope)
	}
	return sym
}

func (a *analyzer) reportUnbound(name string, span token.Span, scope *Scope) {
	key := fmt.Sprintf("%p/%s", scope, name)
	if a.unbound[key] {
		return
	}
	a.unbound[key] = true
	a.errorf(CodeUnboundVariable, span, "variable %q is not defined", name)
}

func (a *analyzer) checkLabels(labels []string, span token.Span) {
	if a.catalog == nil {
		return
	}
	for _, l := range labels {
		if !a.catalog.LabelExists(l) {
			a.notify(NoteUnknownLabel, span, "label %q does not exist in the catalog", l)
		}
	}
}
