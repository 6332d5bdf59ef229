package semantic

import (
	"sort"

	"github.com/roach88/cypherc/internal/token"
)

// Symbol is one declared variable.
type Symbol struct {
	Name       string
	Type       TypeCategory
	DeclaredAt token.Span
}

// Scope is a nested mapping from variable name to symbol. Scopes form
// an explicit chain passed down during traversal; AST nodes never hold
// scope or parent references. A child scope may read parent bindings
// but not redeclare them unless the declaring clause permits shadowing
// (UNWIND, WITH aliasing).
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
}

// NewScope creates a scope with the given parent; parent may be nil for
// the root.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, symbols: map[string]*Symbol{}}
}

// Declare adds a symbol to this scope. It reports false when the name
// already exists in this scope or a parent, returning the existing
// symbol instead.
func (s *Scope) Declare(name string, t TypeCategory, at token.Span) (*Symbol, bool) {
	if existing := s.Lookup(name); existing != nil {
		return existing, false
	}
	sym := &Symbol{Name: name, Type: t, DeclaredAt: at}
	s.symbols[name] = sym
	return sym, true
}

// Shadow adds a symbol to this scope, replacing any visible binding of
// the same name. Used by clauses whose semantics permit shadowing.
func (s *Scope) Shadow(name string, t TypeCategory, at token.Span) *Symbol {
	sym := &Symbol{Name: name, Type: t, DeclaredAt: at}
	s.symbols[name] = sym
	return sym
}

// Lookup resolves name through the scope chain, innermost first.
func (s *Scope) Lookup(name string) *Symbol {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// Local reports whether name is declared in this scope itself.
func (s *Scope) Local(name string) bool {
	_, ok := s.symbols[name]
	return ok
}

// Visible returns every visible name, sorted, innermost shadowing
// outer.
func (s *Scope) Visible() []string {
	seen := map[string]bool{}
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.symbols {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
