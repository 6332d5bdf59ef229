package semantic

import (
	"fmt"

	"github.com/roach88/cypherc/internal/token"
)

// Semantic error codes (S100-S199).
const (
	CodeUnboundVariable         = "S100" // variable reference has no declaration
	CodeVariableRedeclared      = "S101" // name already bound where shadowing is not permitted
	CodeTypeMismatch            = "S102" // operand category structurally incompatible
	CodeAggregationNested       = "S103" // aggregation inside an aggregation
	CodeMixedAggregation        = "S104" // aggregated and non-aggregated mix without grouping
	CodeInvalidDelete           = "S105" // DELETE target is not node/relationship/path
	CodePatternConflict         = "S106" // relationship variable reused with conflicting direction
	CodeInvalidClauseOrder      = "S107" // clause in an illegal position
	CodeColumnMismatch          = "S108" // UNION branches project different columns
	CodeDuplicateColumn         = "S109" // projection declares one column name twice
	CodeInvalidPatternPredicate = "S110" // inline WHERE outside a MATCH pattern
)

// Error is one semantic problem with its source span. A query may
// accumulate several of these before compilation is abandoned.
type Error struct {
	Code string     `json:"code"`
	Msg  string     `json:"message"`
	Span token.Span `json:"span"`
}

func (e Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Span, e.Msg)
}

// Notification is a non-fatal finding, such as a label missing from the
// catalog oracle. Notifications never abort compilation.
type Notification struct {
	Code string     `json:"code"`
	Msg  string     `json:"message"`
	Span token.Span `json:"span"`
}

// Notification codes (N100-N199).
const (
	NoteUnknownLabel       = "N100"
	NoteUnknownRelType     = "N101"
	NoteUnknownPropertyKey = "N102"
)

// Catalog is the optional read-only existence oracle supplied by the
// storage layer. It only downgrades findings to notifications; it is
// never required for correctness.
type Catalog interface {
	LabelExists(name string) bool
	RelTypeExists(name string) bool
	PropertyKeyExists(name string) bool
}
