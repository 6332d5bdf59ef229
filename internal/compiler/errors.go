package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/cypherc/internal/parser"
	"github.com/roach88/cypherc/internal/semantic"
)

// Phase names the pipeline stage that rejected a statement.
type Phase string

const (
	PhaseSyntax   Phase = "syntax"
	PhaseSemantic Phase = "semantic"
	PhaseInternal Phase = "internal"
)

// CompileError is the single error type Compile returns. Syntax errors
// carry exactly one problem, because parsing stops at the first one;
// semantic errors accumulate across the whole statement before
// compilation is abandoned. Internal errors indicate a compiler bug,
// never bad input.
type CompileError struct {
	Phase    Phase
	Syntax   *parser.SyntaxError
	Semantic []semantic.Error
	Internal error
}

func (e *CompileError) Error() string {
	switch e.Phase {
	case PhaseSyntax:
		return e.Syntax.Error()
	case PhaseSemantic:
		msgs := make([]string, len(e.Semantic))
		for i, se := range e.Semantic {
			msgs[i] = se.Error()
		}
		return strings.Join(msgs, "\n")
	default:
		return fmt.Sprintf("internal compiler error: %v", e.Internal)
	}
}

func (e *CompileError) Unwrap() error {
	switch e.Phase {
	case PhaseSyntax:
		return e.Syntax
	case PhaseInternal:
		return e.Internal
	}
	return nil
}

func syntaxError(err error) *CompileError {
	if se, ok := err.(*parser.SyntaxError); ok {
		return &CompileError{Phase: PhaseSyntax, Syntax: se}
	}
	return &CompileError{Phase: PhaseInternal, Internal: err}
}

func semanticError(errs []semantic.Error) *CompileError {
	return &CompileError{Phase: PhaseSemantic, Semantic: errs}
}

func internalError(err error) *CompileError {
	return &CompileError{Phase: PhaseInternal, Internal: err}
}
