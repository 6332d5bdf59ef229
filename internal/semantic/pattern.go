package semantic

import (
	"github.com/roach88/cypherc/internal/ast"
)

// analyzePattern declares pattern variables into scope and validates
// pattern well-formedness. inMatch distinguishes reading patterns
// (MATCH, where inline predicates and variable reuse are legal) from
// writing patterns (CREATE/MERGE, where relationship variables must be
// fresh and inline predicates are not allowed).
//
// Declarations happen for the whole pattern before inline predicates
// are checked, so a node predicate may reference a later element of the
// same pattern.
func (a *analyzer) analyzePattern(p *ast.Pattern, scope *Scope, inMatch bool) {
	for _, part := range p.Parts {
		a.declarePatternPart(part, scope, inMatch)
	}
	for _, part := range p.Parts {
		a.checkPatternPredicates(part, scope, inMatch)
	}
}

func (a *analyzer) declarePatternPart(part *ast.PatternPart, scope *Scope, inMatch bool) {
	if part.Variable != "" {
		if _, ok := scope.Declare(part.Variable, TypePath, part.VarSpan); !ok {
			a.errorf(CodeVariableRedeclared, part.VarSpan, "path variable %q already declared", part.Variable)
		}
	}

	// Direction of first use per relationship variable within this
	// path, for the incompatible-direction check.
	relDirs := map[string]ast.Direction{}

	for _, el := range part.Elements {
		switch x := el.(type) {
		case *ast.NodePattern:
			if x.Variable != "" {
				sym, fresh := scope.Declare(x.Variable, TypeNode, x.VarSpan)
				if !fresh && !compatible(sym.Type, TypeNode) {
					a.errorf(CodeTypeMismatch, x.VarSpan, "variable %q is a %s, cannot reuse it as a node", x.Variable, sym.Type)
				}
			}
			a.checkLabels(x.Labels, x.Span)
			if x.Properties != nil {
				a.checkPropertyKeys(x.Properties)
				for _, entry := range x.Properties.Entries {
					a.checkExpr(entry.Value, scope)
				}
			}
		case *ast.RelationshipPattern:
			if x.Variable != "" {
				if prev, seen := relDirs[x.Variable]; seen {
					if prev != x.Direction {
						a.errorf(CodePatternConflict, x.VarSpan, "relationship %q is used twice in one path with conflicting directions", x.Variable)
					}
				} else {
					relDirs[x.Variable] = x.Direction
				}
				sym, fresh := scope.Declare(x.Variable, TypeRelationship, x.VarSpan)
				switch {
				case !fresh && !compatible(sym.Type, TypeRelationship):
					a.errorf(CodeTypeMismatch, x.VarSpan, "variable %q is a %s, cannot reuse it as a relationship", x.Variable, sym.Type)
				case !fresh && !inMatch:
					a.errorf(CodeVariableRedeclared, x.VarSpan, "relationship variable %q already declared, writing patterns require fresh relationships", x.Variable)
				}
			}
			if !inMatch {
				if len(x.Types) != 1 {
					a.errorf(CodePatternConflict, x.Span, "a created relationship must have exactly one type")
				}
				if x.VarLength != nil {
					a.errorf(CodePatternConflict, x.Span, "a created relationship cannot have a variable length")
				}
				if x.Direction == ast.DirBoth {
					a.errorf(CodePatternConflict, x.Span, "a created relationship must have a direction")
				}
			}
			if a.catalog != nil {
				for _, t := range x.Types {
					if !a.catalog.RelTypeExists(t) {
						a.notify(NoteUnknownRelType, x.Span, "relationship type %q does not exist in the catalog", t)
					}
				}
			}
			if x.Properties != nil {
				a.checkPropertyKeys(x.Properties)
				for _, entry := range x.Properties.Entries {
					a.checkExpr(entry.Value, scope)
				}
			}
		}
	}
}

func (a *analyzer) checkPatternPredicates(part *ast.PatternPart, scope *Scope, inMatch bool) {
	for _, el := range part.Elements {
		node, ok := el.(*ast.NodePattern)
		if !ok || node.Predicate == nil {
			continue
		}
		if !inMatch {
			a.errorf(CodeInvalidPatternPredicate, node.Predicate.Pos(), "inline WHERE is only allowed in MATCH patterns")
			continue
		}
		a.checkExpr(node.Predicate, scope)
	}
}

func (a *analyzer) checkPropertyKeys(m *ast.MapLit) {
	if a.catalog == nil {
		return
	}
	for _, entry := range m.Entries {
		if !a.catalog.PropertyKeyExists(entry.Key) {
			a.notify(NoteUnknownPropertyKey, entry.KeySpan, "property key %q does not exist in the catalog", entry.Key)
		}
	}
}
