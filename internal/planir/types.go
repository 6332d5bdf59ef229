package planir

import "github.com/roach88/cypherc/internal/ast"

// Query is the root of the planner IR.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and
// enables exhaustive type switches in planners.
//
// Query types:
//   - PlannerQuery: a chain of pattern-matching segments
//   - UnionQuery: independent branches combined under one column list
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// PlannerQuery is one segment of a query: the pattern to solve, the
// writes to apply, and the horizon that hands results to the next
// segment. Next is nil on the final segment.
type PlannerQuery struct {
	Graph   QueryGraph
	Updates []UpdateOp
	Horizon Horizon // nil only on a write-only final segment
	Next    *PlannerQuery
}

func (*PlannerQuery) queryNode() {}

// UnionQuery combines branch chains with UNION semantics. All branches
// expose the same column names in the same order; the builder rejects
// statements where they differ.
type UnionQuery struct {
	Branches []*PlannerQuery
	All      bool // keep duplicate rows
	Columns  []string
}

func (*UnionQuery) queryNode() {}

// QueryGraph is the pattern a segment matches: its elements, the
// predicates filtering them, and any optionally-matched sub-graphs.
//
// Arguments are the symbols bound before this graph runs - by an
// earlier segment or, for an optional sub-graph, by the enclosing
// graph. Every predicate's dependencies must be covered by the graph's
// own elements plus its arguments.
type QueryGraph struct {
	Nodes         []NodeElement
	Relationships []RelElement
	Predicates    []Predicate
	Optionals     []*QueryGraph
	Arguments     []string
}

// Bound reports every symbol this graph binds or receives: arguments,
// node names and relationship names.
func (g *QueryGraph) Bound() map[string]bool {
	bound := make(map[string]bool, len(g.Arguments)+len(g.Nodes)+len(g.Relationships))
	for _, a := range g.Arguments {
		bound[a] = true
	}
	for _, n := range g.Nodes {
		bound[n.Name] = true
	}
	for _, r := range g.Relationships {
		bound[r.Name] = true
	}
	return bound
}

// NodeElement is a node of the query graph. Every node has a name;
// elements the author left anonymous were named during normalization.
type NodeElement struct {
	Name   string
	Labels []string
}

// RelElement is a relationship of the query graph, identified by its
// endpoint node names. MinHops/MaxHops are nil for single-hop
// relationships; a nil MaxHops on a variable-length relationship means
// unbounded.
type RelElement struct {
	Name      string
	Start     string
	End       string
	Types     []string
	Direction ast.Direction
	MinHops   *int64
	MaxHops   *int64
}

// Varlength reports whether the relationship matches paths rather than
// single relationships.
func (r RelElement) Varlength() bool {
	return r.MinHops != nil || r.MaxHops != nil
}

// Predicate is one conjunct of a graph's filter. Dependencies names the
// symbols the expression reads, sorted; Hash is the structural hash of
// the canonical expression text, used to recognize the same predicate
// across graphs.
type Predicate struct {
	Expr         ast.Expr
	Dependencies []string
	Hash         uint64
}

// Horizon is the boundary between one segment and the next.
//
// This is a sealed interface - only types in this package implement it.
//
// Horizon types:
//   - Projection: WITH or RETURN
//   - Unwind: UNWIND row expansion
//   - ProcedureCall: CALL proc(...) YIELD
//   - Subquery: CALL { ... }
type Horizon interface {
	horizonNode() // Marker method - seals interface to this package
}

// Projection is a WITH or RETURN boundary. Items are in declaration
// order; their aliases are the only symbols visible past the horizon.
type Projection struct {
	Items       []ProjectedItem
	Distinct    bool
	Aggregating bool // at least one item aggregates
	OrderBy     []SortKey
	Skip        ast.Expr
	Limit       ast.Expr
	Final       bool // RETURN rather than WITH
}

func (*Projection) horizonNode() {}

// Columns returns the aliases the projection exposes, in order.
func (p *Projection) Columns() []string {
	cols := make([]string, len(p.Items))
	for i, item := range p.Items {
		cols[i] = item.Alias
	}
	return cols
}

// ProjectedItem is one column of a projection. Hash is the structural
// hash of the expression, letting planners share work between items
// computing the same value.
type ProjectedItem struct {
	Alias string
	Expr  ast.Expr
	Hash  uint64
}

// SortKey orders projected rows.
type SortKey struct {
	Expr       ast.Expr
	Descending bool
}

// Unwind expands a list expression into one row per element, binding
// each to Alias.
type Unwind struct {
	Expr  ast.Expr
	Alias string
}

func (*Unwind) horizonNode() {}

// ProcedureCall invokes a named procedure and binds its yielded
// columns.
type ProcedureCall struct {
	Namespace []string
	Name      string
	Args      []ast.Expr
	Yield     []YieldColumn
}

func (*ProcedureCall) horizonNode() {}

// YieldColumn binds one procedure result column. Alias equals Name when
// the author did not rename it.
type YieldColumn struct {
	Name  string
	Alias string
}

// Subquery runs an inner query per row, importing the outer symbols it
// names as arguments and appending its columns to the row.
type Subquery struct {
	Inner   Query
	Columns []string
}

func (*Subquery) horizonNode() {}

// UpdateOp is a write operation carried by a segment.
//
// This is a sealed interface - only types in this package implement it.
//
// Update types:
//   - CreateOp, MergeOp, SetOp, RemoveOp, DeleteOp
type UpdateOp interface {
	updateNode() // Marker method - seals interface to this package
}

// CreateNode describes a node to construct. Unlike read patterns, the
// property map survives here: it is a construction recipe, not a
// filter.
type CreateNode struct {
	Name       string
	Labels     []string
	Properties *ast.MapLit
}

// CreateRel describes a relationship to construct between two named
// nodes. Write patterns always carry exactly one type and a direction.
type CreateRel struct {
	Name       string
	Start      string
	End        string
	Type       string
	Direction  ast.Direction
	Properties *ast.MapLit
}

// CreateOp constructs the nodes and relationships of one CREATE
// pattern part.
type CreateOp struct {
	Nodes         []CreateNode
	Relationships []CreateRel
}

func (*CreateOp) updateNode() {}

// MergeOp matches a pattern part or constructs it when absent, then
// applies the conditional SET lists.
type MergeOp struct {
	Nodes         []CreateNode
	Relationships []CreateRel
	OnCreate      []SetItem
	OnMatch       []SetItem
}

func (*MergeOp) updateNode() {}

// SetKind discriminates the SET forms.
type SetKind int

const (
	SetProperty SetKind = iota // target.prop = value
	SetVariable                // target = value (replace all properties)
	SetMerge                   // target += value (merge map into properties)
	SetLabels                  // target:Label1:Label2
)

// SetItem is one assignment of a SET clause or a MERGE action list.
type SetItem struct {
	Kind     SetKind
	Target   string
	Property string   // SetProperty only
	Value    ast.Expr // nil for SetLabels
	Labels   []string // SetLabels only
}

// SetOp applies assignments to already-bound elements.
type SetOp struct {
	Items []SetItem
}

func (*SetOp) updateNode() {}

// RemoveItem strips one property or label set from a bound element.
type RemoveItem struct {
	Target   string
	Property string   // empty when removing labels
	Labels   []string // empty when removing a property
}

// RemoveOp applies removals to already-bound elements.
type RemoveOp struct {
	Items []RemoveItem
}

func (*RemoveOp) updateNode() {}

// DeleteOp deletes the entities the expressions evaluate to. Detach
// first removes the relationships still attached to a deleted node.
type DeleteOp struct {
	Detach bool
	Exprs  []ast.Expr
}

func (*DeleteOp) updateNode() {}
