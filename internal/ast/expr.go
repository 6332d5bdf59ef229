package ast

import "github.com/roach88/cypherc/internal/token"

// Expr is the sealed interface over expression variants.
type Expr interface {
	Node
	exprNode()
}

// IntegerLit is an integer literal. Text preserves the source spelling
// (decimal, hex or octal); Value is the parsed number.
type IntegerLit struct {
	Value int64
	Text  string
	Span  token.Span
}

func (e *IntegerLit) Pos() token.Span { return e.Span }
func (*IntegerLit) exprNode()         {}

// FloatLit is a floating point literal.
type FloatLit struct {
	Value float64
	Text  string
	Span  token.Span
}

func (e *FloatLit) Pos() token.Span { return e.Span }
func (*FloatLit) exprNode()         {}

// StringLit is a string literal; Value holds the unescaped contents.
type StringLit struct {
	Value string
	Span  token.Span
}

func (e *StringLit) Pos() token.Span { return e.Span }
func (*StringLit) exprNode()         {}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
	Span  token.Span
}

func (e *BoolLit) Pos() token.Span { return e.Span }
func (*BoolLit) exprNode()         {}

// NullLit is the NULL literal.
type NullLit struct {
	Span token.Span
}

func (e *NullLit) Pos() token.Span { return e.Span }
func (*NullLit) exprNode()         {}

// Variable is a reference to a bound name.
type Variable struct {
	Name string
	Span token.Span
}

func (e *Variable) Pos() token.Span { return e.Span }
func (*Variable) exprNode()         {}

// Parameter is a $name reference, resolved at execution time.
type Parameter struct {
	Name string
	Span token.Span
}

func (e *Parameter) Pos() token.Span { return e.Span }
func (*Parameter) exprNode()         {}

// PropertyAccess is subject.key.
type PropertyAccess struct {
	Subject Expr
	Key     string
	KeySpan token.Span
	Span    token.Span
}

func (e *PropertyAccess) Pos() token.Span { return e.Span }
func (*PropertyAccess) exprNode()         {}

// FunctionCall invokes a (possibly namespaced) function. Aggregation
// functions are ordinary calls at this level; the semantic analyzer
// classifies them.
type FunctionCall struct {
	Namespace []string
	Name      string
	Distinct  bool
	Args      []Expr
	Span      token.Span
}

func (e *FunctionCall) Pos() token.Span { return e.Span }
func (*FunctionCall) exprNode()         {}

// CountStar is the count(*) aggregate.
type CountStar struct {
	Span token.Span
}

func (e *CountStar) Pos() token.Span { return e.Span }
func (*CountStar) exprNode()         {}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpXor
	OpAnd
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpIn
	OpStartsWith
	OpEndsWith
	OpContains
	OpRegex
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
)

var binaryOpNames = map[BinaryOp]string{
	OpOr:         "OR",
	OpXor:        "XOR",
	OpAnd:        "AND",
	OpEq:         "=",
	OpNeq:        "<>",
	OpLt:         "<",
	OpGt:         ">",
	OpLe:         "<=",
	OpGe:         ">=",
	OpIn:         "IN",
	OpStartsWith: "STARTS WITH",
	OpEndsWith:   "ENDS WITH",
	OpContains:   "CONTAINS",
	OpRegex:      "=~",
	OpAdd:        "+",
	OpSub:        "-",
	OpMul:        "*",
	OpDiv:        "/",
	OpMod:        "%",
	OpPow:        "^",
}

// String returns the source spelling of the operator.
func (op BinaryOp) String() string { return binaryOpNames[op] }

// Binary applies a binary operator.
type Binary struct {
	Op   BinaryOp
	LHS  Expr
	RHS  Expr
	Span token.Span
}

func (e *Binary) Pos() token.Span { return e.Span }
func (*Binary) exprNode()         {}

// UnaryOp enumerates unary and postfix operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
	OpPos
	OpIsNull
	OpIsNotNull
)

var unaryOpNames = map[UnaryOp]string{
	OpNot:       "NOT",
	OpNeg:       "-",
	OpPos:       "+",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
}

// String returns the source spelling of the operator.
func (op UnaryOp) String() string { return unaryOpNames[op] }

// Unary applies a unary (or postfix null-test) operator.
type Unary struct {
	Op      UnaryOp
	Operand Expr
	Span    token.Span
}

func (e *Unary) Pos() token.Span { return e.Span }
func (*Unary) exprNode()         {}

// ListLit is a list literal.
type ListLit struct {
	Items []Expr
	Span  token.Span
}

func (e *ListLit) Pos() token.Span { return e.Span }
func (*ListLit) exprNode()         {}

// MapEntry is one key/value pair of a map literal.
type MapEntry struct {
	Key     string
	KeySpan token.Span
	Value   Expr
}

// MapLit is a map literal.
type MapLit struct {
	Entries []MapEntry
	Span    token.Span
}

func (e *MapLit) Pos() token.Span { return e.Span }
func (*MapLit) exprNode()         {}

// Index is subject[key] dynamic access.
type Index struct {
	Subject Expr
	Key     Expr
	Span    token.Span
}

func (e *Index) Pos() token.Span { return e.Span }
func (*Index) exprNode()         {}

// Slice is subject[from..to]; From or To may be nil for open ends.
type Slice struct {
	Subject Expr
	From    Expr
	To      Expr
	Span    token.Span
}

func (e *Slice) Pos() token.Span { return e.Span }
func (*Slice) exprNode()         {}

// ListComprehension is [x IN source WHERE pred | projection]. Where and
// Projection may be nil.
type ListComprehension struct {
	Variable   string
	VarSpan    token.Span
	Source     Expr
	Where      Expr
	Projection Expr
	Span       token.Span
}

func (e *ListComprehension) Pos() token.Span { return e.Span }
func (*ListComprehension) exprNode()         {}

// PatternComprehension is [pattern WHERE pred | projection], collecting
// the projection over every match of the pattern. The pattern's
// variables are scoped to the comprehension.
type PatternComprehension struct {
	Part       *PatternPart
	Where      Expr
	Projection Expr
	Span       token.Span
}

func (e *PatternComprehension) Pos() token.Span { return e.Span }
func (*PatternComprehension) exprNode()         {}

// CaseAlt is one WHEN/THEN pair.
type CaseAlt struct {
	When Expr
	Then Expr
}

// Case is a simple (Test non-nil) or searched (Test nil) CASE
// expression. Else may be nil.
type Case struct {
	Test         Expr
	Alternatives []CaseAlt
	Else         Expr
	Span         token.Span
}

func (e *Case) Pos() token.Span { return e.Span }
func (*Case) exprNode()         {}

// Exists is the EXISTS { pattern [WHERE pred] } predicate.
type Exists struct {
	Pattern *Pattern
	Where   Expr
	Span    token.Span
}

func (e *Exists) Pos() token.Span { return e.Span }
func (*Exists) exprNode()         {}
