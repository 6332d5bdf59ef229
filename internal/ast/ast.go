// Package ast defines the abstract syntax tree produced by the parser.
//
// Every node carries the span of the source text it was parsed from.
// Nodes form an ownership tree: a clause owns its sub-expressions and
// expressions own their operands; no node is shared between parents and
// children never hold back-references. Trees are immutable after
// parsing — canonicalizing transformations build new trees.
//
// Query, Clause, Expr and PatternElement are sealed interfaces using the
// marker method pattern. Only types in this package implement them,
// which keeps type switches over syntactic categories exhaustive.
package ast

import "github.com/roach88/cypherc/internal/token"

// Node is implemented by every AST node.
type Node interface {
	// Pos returns the span of source text this node was parsed from.
	Pos() token.Span
}

// Statement is the root of a parsed query.
type Statement struct {
	Query Query
	Span  token.Span
}

func (s *Statement) Pos() token.Span { return s.Span }

// Query is either a single clause sequence or a UNION of queries.
type Query interface {
	Node
	queryNode()
}

// SingleQuery is an ordered sequence of clauses.
type SingleQuery struct {
	Clauses []Clause
	Span    token.Span
}

func (q *SingleQuery) Pos() token.Span { return q.Span }
func (*SingleQuery) queryNode()        {}

// UnionQuery combines the rows of two queries. Distinct union (UNION)
// and bag union (UNION ALL) are distinguished by All.
type UnionQuery struct {
	LHS  Query
	RHS  *SingleQuery
	All  bool
	Span token.Span
}

func (q *UnionQuery) Pos() token.Span { return q.Span }
func (*UnionQuery) queryNode()        {}

// Clause is one clause of a single query.
type Clause interface {
	Node
	clauseNode()
}

// Match is a MATCH or OPTIONAL MATCH clause with an optional WHERE.
type Match struct {
	Optional bool
	Pattern  *Pattern
	Where    Expr // nil when absent
	Span     token.Span
}

func (c *Match) Pos() token.Span { return c.Span }
func (*Match) clauseNode()       {}

// Unwind binds each element of a list expression to a fresh variable.
type Unwind struct {
	Expr      Expr
	Alias     string
	AliasSpan token.Span
	Span      token.Span
}

func (c *Unwind) Pos() token.Span { return c.Span }
func (*Unwind) clauseNode()       {}

// With projects the current scope into a new one.
type With struct {
	Projection *Projection
	Where      Expr // nil when absent
	Span       token.Span
}

func (c *With) Pos() token.Span { return c.Span }
func (*With) clauseNode()       {}

// Return is the terminal projection of a query.
type Return struct {
	Projection *Projection
	Span       token.Span
}

func (c *Return) Pos() token.Span { return c.Span }
func (*Return) clauseNode()       {}

// Projection is the item list shared by WITH and RETURN, with its
// modifiers.
type Projection struct {
	Distinct bool
	Star     bool // RETURN * / WITH *
	Items    []*ProjectionItem
	OrderBy  []*SortItem
	Skip     Expr // nil when absent
	Limit    Expr // nil when absent
	Span     token.Span
}

func (p *Projection) Pos() token.Span { return p.Span }

// ProjectionItem is one projected column. Items without an AS are
// named by their expression text, with Aliased left false.
type ProjectionItem struct {
	Expr      Expr
	Alias     string
	Aliased   bool // the alias was written with AS
	AliasSpan token.Span
	Span      token.Span
}

func (p *ProjectionItem) Pos() token.Span { return p.Span }

// SortItem is one ORDER BY key.
type SortItem struct {
	Expr       Expr
	Descending bool
	Span       token.Span
}

func (s *SortItem) Pos() token.Span { return s.Span }

// Create introduces new pattern elements.
type Create struct {
	Pattern *Pattern
	Span    token.Span
}

func (c *Create) Pos() token.Span { return c.Span }
func (*Create) clauseNode()       {}

// Merge matches a single pattern part or creates it, with optional
// conditional SET actions.
type Merge struct {
	Part     *PatternPart
	OnCreate []*SetItem
	OnMatch  []*SetItem
	Span     token.Span
}

func (c *Merge) Pos() token.Span { return c.Span }
func (*Merge) clauseNode()       {}

// Delete removes nodes, relationships or paths. Detach removes a node
// together with its relationships.
type Delete struct {
	Detach bool
	Exprs  []Expr
	Span   token.Span
}

func (c *Delete) Pos() token.Span { return c.Span }
func (*Delete) clauseNode()       {}

// Set updates properties or labels.
type Set struct {
	Items []*SetItem
	Span  token.Span
}

func (c *Set) Pos() token.Span { return c.Span }
func (*Set) clauseNode()       {}

// SetOp distinguishes the forms of a SET item.
type SetOp int

const (
	// SetProperty is `n.prop = expr`.
	SetProperty SetOp = iota
	// SetVariable is `n = expr`, replacing all properties.
	SetVariable
	// SetMerge is `n += expr`, merging properties.
	SetMerge
	// SetLabels is `n:Label1:Label2`.
	SetLabels
)

// SetItem is one assignment inside SET, ON CREATE SET or ON MATCH SET.
type SetItem struct {
	Op       SetOp
	Property *PropertyAccess // SetProperty
	Variable string          // SetVariable, SetMerge, SetLabels
	Labels   []string        // SetLabels
	Value    Expr            // nil for SetLabels
	Span     token.Span
}

func (s *SetItem) Pos() token.Span { return s.Span }

// Remove drops properties or labels.
type Remove struct {
	Items []*RemoveItem
	Span  token.Span
}

func (c *Remove) Pos() token.Span { return c.Span }
func (*Remove) clauseNode()       {}

// RemoveItem is one REMOVE target: a property access, or a variable
// with labels.
type RemoveItem struct {
	Property *PropertyAccess // nil for the label form
	Variable string
	Labels   []string
	Span     token.Span
}

func (r *RemoveItem) Pos() token.Span { return r.Span }

// Call invokes a procedure, optionally yielding columns into scope.
type Call struct {
	Namespace []string
	Name      string
	Args      []Expr
	Yield     []*YieldItem
	YieldAll  bool // YIELD *
	Span      token.Span
}

func (c *Call) Pos() token.Span { return c.Span }
func (*Call) clauseNode()       {}

// YieldItem is one yielded procedure column, optionally renamed.
type YieldItem struct {
	Name      string
	Alias     string // empty when not renamed
	AliasSpan token.Span
	Span      token.Span
}

func (y *YieldItem) Pos() token.Span { return y.Span }

// SubqueryCall is CALL { ... }: an inner query evaluated per incoming
// row, importing outer variables read-only.
type SubqueryCall struct {
	Query Query
	Span  token.Span
}

func (c *SubqueryCall) Pos() token.Span { return c.Span }
func (*SubqueryCall) clauseNode()       {}
