package ast

import "github.com/roach88/cypherc/internal/token"

// Pattern is a comma-separated list of pattern parts, as written after
// MATCH or CREATE. A pattern describes a graph shape, not yet bound to
// data.
type Pattern struct {
	Parts []*PatternPart
	Span  token.Span
}

func (p *Pattern) Pos() token.Span { return p.Span }

// PatternPart is one path: an optional path variable binding and an
// alternating node/relationship element chain. Elements always starts
// and ends with a *NodePattern; relationships sit between nodes.
type PatternPart struct {
	Variable string // path binding, empty when absent
	VarSpan  token.Span
	Elements []PatternElement
	Span     token.Span
}

func (p *PatternPart) Pos() token.Span { return p.Span }

// PatternElement is sealed over *NodePattern and *RelationshipPattern.
type PatternElement interface {
	Node
	patternElement()
}

// NodePattern is (v:Label {props} WHERE pred).
type NodePattern struct {
	Variable   string // empty for anonymous nodes
	VarSpan    token.Span
	Labels     []string
	Properties *MapLit // nil when absent
	Predicate  Expr    // inline WHERE, nil when absent
	Span       token.Span
}

func (n *NodePattern) Pos() token.Span { return n.Span }
func (*NodePattern) patternElement()   {}

// Direction of a relationship pattern relative to its textual order.
type Direction int

const (
	// DirBoth matches either orientation: -[]-.
	DirBoth Direction = iota
	// DirOutgoing points left to right: -[]->.
	DirOutgoing
	// DirIncoming points right to left: <-[]-.
	DirIncoming
)

var directionNames = map[Direction]string{
	DirBoth:     "both",
	DirOutgoing: "outgoing",
	DirIncoming: "incoming",
}

func (d Direction) String() string { return directionNames[d] }

// Range is the [min..max] hop range of a variable-length relationship.
// Nil bounds are open ends; a bare * leaves both nil.
type Range struct {
	Min *int64
	Max *int64
}

// RelationshipPattern is -[v:TYPE*1..3 {props}]->.
type RelationshipPattern struct {
	Variable   string // empty for anonymous relationships
	VarSpan    token.Span
	Types      []string
	Direction  Direction
	Properties *MapLit // nil when absent
	VarLength  *Range  // nil for a fixed single hop
	Span       token.Span
}

func (r *RelationshipPattern) Pos() token.Span { return r.Span }
func (*RelationshipPattern) patternElement()   {}
