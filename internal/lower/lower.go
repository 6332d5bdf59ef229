// Package lower builds planner IR from a normalized syntax tree.
//
// The input must already be normalized: anonymous elements named,
// pattern predicates and read-side property maps hoisted into WHERE,
// multi-part CREATE split. Lowering walks the clause list once,
// cutting a new segment at every horizon clause (WITH, RETURN, UNWIND,
// CALL) and folding everything between two horizons into one
// QueryGraph plus its update operations.
package lower

import (
	"fmt"
	"sort"

	"github.com/roach88/cypherc/internal/ast"
	"github.com/roach88/cypherc/internal/planir"
	"github.com/roach88/cypherc/internal/rewrite"
	"github.com/roach88/cypherc/internal/semantic"
	"github.com/roach88/cypherc/internal/token"
)

// Build lowers a normalized statement to planner IR. The returned
// error list carries cross-branch problems only detectable here, such
// as UNION column mismatches; a statement that passed semantic
// analysis and produces no errors here always yields valid IR.
func Build(stmt *ast.Statement) (planir.Query, []semantic.Error) {
	b := &builder{}
	q := b.buildQuery(stmt.Query, nil)
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	return q, nil
}

type builder struct {
	errs []semantic.Error
}

func (b *builder) errorf(code string, span token.Span, format string, args ...any) {
	b.errs = append(b.errs, semantic.Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
		Span: span,
	})
}

func (b *builder) buildQuery(q ast.Query, arguments []string) planir.Query {
	switch x := q.(type) {
	case *ast.SingleQuery:
		return b.buildChain(x, arguments)
	case *ast.UnionQuery:
		return b.buildUnion(x, arguments)
	default:
		return nil
	}
}

// buildUnion flattens the left-leaning UNION tree into sibling
// branches, checks that they agree on columns and on ALL versus
// DISTINCT, and wraps them.
func (b *builder) buildUnion(u *ast.UnionQuery, arguments []string) planir.Query {
	singles, alls := unionBranches(u)

	for _, all := range alls[1:] {
		if all != alls[0] {
			b.errorf(semantic.CodeInvalidClauseOrder, u.Span,
				"cannot mix UNION and UNION ALL in one statement")
			break
		}
	}

	branches := make([]*planir.PlannerQuery, 0, len(singles))
	var columns []unionColumn
	for i, sq := range singles {
		chain := b.buildChain(sq, arguments)
		if chain == nil {
			continue
		}
		cols := branchColumns(sq, chain)
		if i == 0 {
			columns = cols
		} else if !alignedColumns(columns, cols) {
			b.errorf(semantic.CodeColumnMismatch, branchReturnSpan(sq),
				"UNION branches must return the same columns: [%s] vs [%s]",
				joinColumns(columnNames(columns)), joinColumns(columnNames(cols)))
		}
		branches = append(branches, chain)
	}
	if len(b.errs) > 0 {
		return nil
	}
	return &planir.UnionQuery{Branches: branches, All: alls[0], Columns: columnNames(columns)}
}

// unionBranches walks the left spine, returning the single queries in
// statement order and each combinator's ALL flag.
func unionBranches(u *ast.UnionQuery) ([]*ast.SingleQuery, []bool) {
	var singles []*ast.SingleQuery
	var alls []bool
	switch lhs := u.LHS.(type) {
	case *ast.UnionQuery:
		singles, alls = unionBranches(lhs)
	case *ast.SingleQuery:
		singles = []*ast.SingleQuery{lhs}
	}
	return append(singles, u.RHS), append(alls, u.All)
}

// buildChain lowers one single query to a segment chain. arguments are
// the symbols bound outside the chain, for subquery lowering.
func (b *builder) buildChain(sq *ast.SingleQuery, arguments []string) *planir.PlannerQuery {
	c := &chain{builder: b}
	c.open(arguments)
	for _, clause := range sq.Clauses {
		c.clause(clause)
		if c.done {
			break
		}
	}
	return c.head
}

// chain accumulates segments for one single query.
type chain struct {
	*builder

	head  *planir.PlannerQuery
	cur   *planir.PlannerQuery
	bound map[string]bool
	// optional is set once the current segment contains an OPTIONAL
	// MATCH; a plain MATCH may not follow it within the segment.
	optional bool
	done     bool // a final RETURN was sealed
}

func (c *chain) open(arguments []string) {
	seg := &planir.PlannerQuery{}
	seg.Graph.Arguments = append([]string(nil), arguments...)
	sort.Strings(seg.Graph.Arguments)
	if c.head == nil {
		c.head = seg
	} else {
		c.cur.Next = seg
	}
	c.cur = seg
	c.bound = map[string]bool{}
	for _, a := range arguments {
		c.bound[a] = true
	}
	c.optional = false
}

// seal closes the current segment with a horizon and opens the next
// one bound to the given symbols.
func (c *chain) seal(h planir.Horizon, nextBound []string) {
	c.cur.Horizon = h
	c.open(nextBound)
}

func (c *chain) clause(clause ast.Clause) {
	switch x := clause.(type) {
	case *ast.Match:
		c.match(x)
	case *ast.Unwind:
		next := append(c.boundNames(), x.Alias)
		c.seal(&planir.Unwind{Expr: x.Expr, Alias: x.Alias}, next)
	case *ast.With:
		proj := c.projection(x.Projection, false)
		c.seal(proj, proj.Columns())
		if x.Where != nil {
			c.addPredicates(x.Where)
		}
	case *ast.Return:
		proj := c.projection(x.Projection, true)
		c.cur.Horizon = proj
		c.done = true
	case *ast.Create:
		c.create(x)
	case *ast.Merge:
		c.merge(x)
	case *ast.Set:
		c.cur.Updates = append(c.cur.Updates, &planir.SetOp{Items: setItems(x.Items)})
	case *ast.Remove:
		c.cur.Updates = append(c.cur.Updates, &planir.RemoveOp{Items: removeItems(x.Items)})
	case *ast.Delete:
		c.cur.Updates = append(c.cur.Updates, &planir.DeleteOp{Detach: x.Detach, Exprs: x.Exprs})
	case *ast.Call:
		c.call(x)
	case *ast.SubqueryCall:
		c.subquery(x)
	}
}

func (c *chain) match(m *ast.Match) {
	if m.Optional {
		c.optionalMatch(m)
		return
	}
	if c.optional {
		c.errorf(semantic.CodeInvalidClauseOrder, m.Span,
			"MATCH cannot follow OPTIONAL MATCH; add a WITH between them")
		return
	}
	c.addPattern(&c.cur.Graph, m.Pattern, c.bound)
	if m.Where != nil {
		c.addPredicates(m.Where)
	}
}

// optionalMatch lowers OPTIONAL MATCH to a nested sub-graph. Symbols
// already bound outside become the sub-graph's arguments; its
// predicates stay inside it so they can never leak into the required
// part of the segment.
func (c *chain) optionalMatch(m *ast.Match) {
	opt := &planir.QueryGraph{}
	outer := c.bound

	args := map[string]bool{}
	inner := map[string]bool{}
	for a := range outer {
		inner[a] = true
	}
	c.addPatternInto(opt, m.Pattern, outer, args, inner)
	if m.Where != nil {
		for _, conjunct := range rewrite.Conjuncts(rewrite.CNF(m.Where)) {
			deps := freeVars(conjunct, inner)
			for _, d := range deps {
				if outer[d] {
					args[d] = true
				}
			}
			opt.Predicates = appendPredicate(opt.Predicates, conjunct, deps)
		}
	}

	opt.Arguments = sortedNames(args)
	c.cur.Graph.Optionals = append(c.cur.Graph.Optionals, opt)
	c.optional = true

	for name := range inner {
		c.bound[name] = true
	}
}

// addPattern folds a MATCH pattern into a graph, treating names bound
// earlier in the same segment as join references.
func (c *chain) addPattern(g *planir.QueryGraph, p *ast.Pattern, bound map[string]bool) {
	args := map[string]bool{}
	c.addPatternInto(g, p, bound, args, bound)
}

// addPatternInto adds the pattern's elements to g. Names present in
// outer are recorded in args instead of being re-declared; every name
// the pattern touches ends up in inner.
func (c *chain) addPatternInto(g *planir.QueryGraph, p *ast.Pattern, outer, args, inner map[string]bool) {
	for _, part := range p.Parts {
		if part.Variable != "" {
			// Path binding: the planner reconstructs the path from the
			// part's elements, so only the name needs tracking.
			inner[part.Variable] = true
		}
		var prev *ast.NodePattern
		var pendingRel *ast.RelationshipPattern
		for _, el := range part.Elements {
			switch e := el.(type) {
			case *ast.NodePattern:
				c.addNode(g, e, outer, args, inner)
				if pendingRel != nil {
					c.addRel(g, pendingRel, prev, e, outer, args, inner)
					pendingRel = nil
				}
				prev = e
			case *ast.RelationshipPattern:
				pendingRel = e
			}
		}
	}
}

func (c *chain) addNode(g *planir.QueryGraph, n *ast.NodePattern, outer, args, inner map[string]bool) {
	name := n.Variable
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			g.Nodes[i].Labels = mergeLabels(g.Nodes[i].Labels, n.Labels)
			inner[name] = true
			return
		}
	}
	if outer[name] {
		// Bound outside this graph: a join reference, not a new element.
		args[name] = true
		inner[name] = true
		return
	}
	g.Nodes = append(g.Nodes, planir.NodeElement{
		Name:   name,
		Labels: sortedLabels(n.Labels),
	})
	inner[name] = true
}

func (c *chain) addRel(g *planir.QueryGraph, r *ast.RelationshipPattern, start, end *ast.NodePattern, outer, args, inner map[string]bool) {
	rel := planir.RelElement{
		Name:      r.Variable,
		Start:     start.Variable,
		End:       end.Variable,
		Types:     append([]string(nil), r.Types...),
		Direction: r.Direction,
	}
	if r.VarLength != nil {
		rel.MinHops = r.VarLength.Min
		rel.MaxHops = r.VarLength.Max
	}
	if outer[r.Variable] {
		args[r.Variable] = true
	}
	g.Relationships = append(g.Relationships, rel)
	inner[r.Variable] = true
}

// addPredicates splits a normalized WHERE into conjuncts and attaches
// each to the current graph with its dependency set.
func (c *chain) addPredicates(where ast.Expr) {
	for _, conjunct := range rewrite.Conjuncts(where) {
		c.cur.Graph.Predicates = appendPredicate(c.cur.Graph.Predicates, conjunct, freeVars(conjunct, c.bound))
	}
}

func appendPredicate(preds []planir.Predicate, expr ast.Expr, deps []string) []planir.Predicate {
	hash := rewrite.ExprHash(expr)
	for _, p := range preds {
		if p.Hash == hash {
			return preds
		}
	}
	return append(preds, planir.Predicate{Expr: expr, Dependencies: deps, Hash: hash})
}

// projection lowers a WITH or RETURN body, expanding a star over the
// sorted bound names.
func (c *chain) projection(p *ast.Projection, final bool) *planir.Projection {
	proj := &planir.Projection{
		Distinct: p.Distinct,
		Final:    final,
		Skip:     p.Skip,
		Limit:    p.Limit,
	}
	if p.Star {
		for _, name := range c.boundNames() {
			v := &ast.Variable{Name: name, Span: p.Span}
			proj.Items = append(proj.Items, planir.ProjectedItem{
				Alias: name,
				Expr:  v,
				Hash:  rewrite.ExprHash(v),
			})
		}
	}
	for _, item := range p.Items {
		proj.Items = append(proj.Items, planir.ProjectedItem{
			Alias: item.Alias,
			Expr:  item.Expr,
			Hash:  rewrite.ExprHash(item.Expr),
		})
		if semantic.ContainsAggregate(item.Expr) {
			proj.Aggregating = true
		}
	}
	for _, key := range p.OrderBy {
		proj.OrderBy = append(proj.OrderBy, planir.SortKey{
			Expr:       key.Expr,
			Descending: key.Descending,
		})
	}
	return proj
}

func (c *chain) create(cr *ast.Create) {
	for _, part := range cr.Pattern.Parts {
		op := &planir.CreateOp{}
		c.writePart(part, &op.Nodes, &op.Relationships)
		c.cur.Updates = append(c.cur.Updates, op)
	}
}

func (c *chain) merge(m *ast.Merge) {
	op := &planir.MergeOp{
		OnCreate: setItems(m.OnCreate),
		OnMatch:  setItems(m.OnMatch),
	}
	c.writePart(m.Part, &op.Nodes, &op.Relationships)
	c.cur.Updates = append(c.cur.Updates, op)
}

// writePart converts a write pattern part, keeping property maps as
// construction recipes. Nodes already bound are referenced by name
// only, with no labels or properties of their own.
func (c *chain) writePart(part *ast.PatternPart, nodes *[]planir.CreateNode, rels *[]planir.CreateRel) {
	var prev *ast.NodePattern
	var pendingRel *ast.RelationshipPattern
	for _, el := range part.Elements {
		switch e := el.(type) {
		case *ast.NodePattern:
			if !c.bound[e.Variable] {
				*nodes = append(*nodes, planir.CreateNode{
					Name:       e.Variable,
					Labels:     sortedLabels(e.Labels),
					Properties: e.Properties,
				})
				c.bound[e.Variable] = true
			}
			if pendingRel != nil {
				relType := ""
				if len(pendingRel.Types) == 1 {
					relType = pendingRel.Types[0]
				}
				*rels = append(*rels, planir.CreateRel{
					Name:       pendingRel.Variable,
					Start:      prev.Variable,
					End:        e.Variable,
					Type:       relType,
					Direction:  pendingRel.Direction,
					Properties: pendingRel.Properties,
				})
				c.bound[pendingRel.Variable] = true
				pendingRel = nil
			}
			prev = e
		case *ast.RelationshipPattern:
			pendingRel = e
		}
	}
	if part.Variable != "" {
		c.bound[part.Variable] = true
	}
}

func (c *chain) call(call *ast.Call) {
	h := &planir.ProcedureCall{
		Namespace: call.Namespace,
		Name:      call.Name,
		Args:      call.Args,
	}
	next := c.boundNames()
	for _, y := range call.Yield {
		alias := y.Alias
		if alias == "" {
			alias = y.Name
		}
		h.Yield = append(h.Yield, planir.YieldColumn{Name: y.Name, Alias: alias})
		next = append(next, alias)
	}
	c.seal(h, next)
}

func (c *chain) subquery(sub *ast.SubqueryCall) {
	outer := c.boundNames()
	inner := c.buildQuery(sub.Query, outer)
	if inner == nil {
		return
	}
	columns := queryColumns(inner)
	c.seal(&planir.Subquery{Inner: inner, Columns: columns}, append(outer, columns...))
}

func (c *chain) boundNames() []string {
	return sortedNames(c.bound)
}

// chainColumns reports the columns of a chain's final RETURN, empty
// for a write-only chain.
func chainColumns(pq *planir.PlannerQuery) []string {
	for ; pq.Next != nil; pq = pq.Next {
	}
	if proj, ok := pq.Horizon.(*planir.Projection); ok {
		return proj.Columns()
	}
	return nil
}

func queryColumns(q planir.Query) []string {
	switch x := q.(type) {
	case *planir.PlannerQuery:
		return chainColumns(x)
	case *planir.UnionQuery:
		return x.Columns
	}
	return nil
}

func branchReturnSpan(sq *ast.SingleQuery) token.Span {
	if len(sq.Clauses) > 0 {
		if ret, ok := sq.Clauses[len(sq.Clauses)-1].(*ast.Return); ok {
			return ret.Projection.Span
		}
	}
	return sq.Span
}

// unionColumn pairs a branch column with whether its name is
// author-chosen. An AS alias and a bare variable both name the column;
// any other expression without an alias is named by its source text
// and aligns by position only.
type unionColumn struct {
	Name  string
	Named bool
}

func branchColumns(sq *ast.SingleQuery, chain *planir.PlannerQuery) []unionColumn {
	names := chainColumns(chain)
	cols := make([]unionColumn, len(names))
	for i, name := range names {
		cols[i] = unionColumn{Name: name, Named: true}
	}
	if len(sq.Clauses) == 0 {
		return cols
	}
	ret, ok := sq.Clauses[len(sq.Clauses)-1].(*ast.Return)
	if !ok || ret.Projection.Star {
		return cols
	}
	for i, item := range ret.Projection.Items {
		if i >= len(cols) {
			break
		}
		if item.Aliased {
			continue
		}
		if _, isVar := item.Expr.(*ast.Variable); !isVar {
			cols[i].Named = false
		}
	}
	return cols
}

// alignedColumns reports whether two branch column lists are
// union-compatible: equal arity, and equal names wherever both sides
// named the column.
func alignedColumns(a, b []unionColumn) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Named && b[i].Named && a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

func columnNames(cols []unionColumn) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func setItems(items []*ast.SetItem) []planir.SetItem {
	out := make([]planir.SetItem, 0, len(items))
	for _, item := range items {
		out = append(out, setItem(item))
	}
	return out
}

func setItem(item *ast.SetItem) planir.SetItem {
	switch item.Op {
	case ast.SetProperty:
		return planir.SetItem{
			Kind:     planir.SetProperty,
			Target:   rootVariable(item.Property),
			Property: item.Property.Key,
			Value:    item.Value,
		}
	case ast.SetVariable:
		return planir.SetItem{Kind: planir.SetVariable, Target: item.Variable, Value: item.Value}
	case ast.SetMerge:
		return planir.SetItem{Kind: planir.SetMerge, Target: item.Variable, Value: item.Value}
	default:
		return planir.SetItem{
			Kind:   planir.SetLabels,
			Target: item.Variable,
			Labels: sortedLabels(item.Labels),
		}
	}
}

func removeItems(items []*ast.RemoveItem) []planir.RemoveItem {
	out := make([]planir.RemoveItem, 0, len(items))
	for _, item := range items {
		if item.Property != nil {
			out = append(out, planir.RemoveItem{
				Target:   rootVariable(item.Property),
				Property: item.Property.Key,
			})
			continue
		}
		out = append(out, planir.RemoveItem{
			Target: item.Variable,
			Labels: sortedLabels(item.Labels),
		})
	}
	return out
}

// rootVariable finds the variable at the bottom of a property chain.
func rootVariable(p *ast.PropertyAccess) string {
	for {
		switch subject := p.Subject.(type) {
		case *ast.Variable:
			return subject.Name
		case *ast.PropertyAccess:
			p = subject
		default:
			return ast.ExprString(p.Subject)
		}
	}
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedLabels(labels []string) []string {
	out := append([]string(nil), labels...)
	sort.Strings(out)
	return out
}

func mergeLabels(a, b []string) []string {
	seen := map[string]bool{}
	for _, l := range a {
		seen[l] = true
	}
	for _, l := range b {
		if !seen[l] {
			a = append(a, l)
			seen[l] = true
		}
	}
	return sortedLabels(a)
}
