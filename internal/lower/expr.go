package lower

import "github.com/roach88/cypherc/internal/ast"

// freeVars returns the sorted names of the symbols an expression reads.
// bound is the symbol set of the enclosing query at this point; it
// decides whether a pattern element name inside the expression refers
// outward or introduces a fresh local element. Comprehension variables
// and fresh pattern elements are never free.
func freeVars(e ast.Expr, bound map[string]bool) []string {
	seen := map[string]bool{}
	collectVars(e, bound, map[string]bool{}, seen)
	return sortedNames(seen)
}

func collectVars(e ast.Expr, bound, local, seen map[string]bool) {
	switch x := e.(type) {
	case *ast.Variable:
		if !local[x.Name] {
			seen[x.Name] = true
		}
	case *ast.PropertyAccess:
		collectVars(x.Subject, bound, local, seen)
	case *ast.FunctionCall:
		for _, arg := range x.Args {
			collectVars(arg, bound, local, seen)
		}
	case *ast.Binary:
		collectVars(x.LHS, bound, local, seen)
		collectVars(x.RHS, bound, local, seen)
	case *ast.Unary:
		collectVars(x.Operand, bound, local, seen)
	case *ast.ListLit:
		for _, item := range x.Items {
			collectVars(item, bound, local, seen)
		}
	case *ast.MapLit:
		for _, entry := range x.Entries {
			collectVars(entry.Value, bound, local, seen)
		}
	case *ast.Index:
		collectVars(x.Subject, bound, local, seen)
		collectVars(x.Key, bound, local, seen)
	case *ast.Slice:
		collectVars(x.Subject, bound, local, seen)
		if x.From != nil {
			collectVars(x.From, bound, local, seen)
		}
		if x.To != nil {
			collectVars(x.To, bound, local, seen)
		}
	case *ast.ListComprehension:
		collectVars(x.Source, bound, local, seen)
		inner := withLocal(local, x.Variable)
		if x.Where != nil {
			collectVars(x.Where, bound, inner, seen)
		}
		if x.Projection != nil {
			collectVars(x.Projection, bound, inner, seen)
		}
	case *ast.PatternComprehension:
		inner := withPartLocals(local, x.Part)
		collectPartVars(x.Part, bound, inner, seen)
		if x.Where != nil {
			collectVars(x.Where, bound, inner, seen)
		}
		if x.Projection != nil {
			collectVars(x.Projection, bound, inner, seen)
		}
	case *ast.Case:
		if x.Test != nil {
			collectVars(x.Test, bound, local, seen)
		}
		for _, alt := range x.Alternatives {
			collectVars(alt.When, bound, local, seen)
			collectVars(alt.Then, bound, local, seen)
		}
		if x.Else != nil {
			collectVars(x.Else, bound, local, seen)
		}
	case *ast.Exists:
		inner := local
		for _, part := range x.Pattern.Parts {
			inner = withPartLocals(inner, part)
		}
		for _, part := range x.Pattern.Parts {
			collectPartVars(part, bound, inner, seen)
		}
		if x.Where != nil {
			collectVars(x.Where, bound, inner, seen)
		}
	}
}

// collectPartVars records which pattern element names refer to outer
// symbols: an element whose name is already bound outside is a free
// use of that symbol rather than a local binding. Property maps and
// inline predicates inside the pattern evaluate in the inner scope.
func collectPartVars(part *ast.PatternPart, bound, inner, seen map[string]bool) {
	for _, el := range part.Elements {
		switch e := el.(type) {
		case *ast.NodePattern:
			if e.Variable != "" && bound[e.Variable] {
				seen[e.Variable] = true
			}
			if e.Properties != nil {
				collectVars(e.Properties, bound, inner, seen)
			}
			if e.Predicate != nil {
				collectVars(e.Predicate, bound, inner, seen)
			}
		case *ast.RelationshipPattern:
			if e.Variable != "" && bound[e.Variable] {
				seen[e.Variable] = true
			}
			if e.Properties != nil {
				collectVars(e.Properties, bound, inner, seen)
			}
		}
	}
}

func withLocal(local map[string]bool, name string) map[string]bool {
	inner := make(map[string]bool, len(local)+1)
	for k := range local {
		inner[k] = true
	}
	inner[name] = true
	return inner
}

// withPartLocals marks every named element of the part local, so a
// fresh element name never escapes into the dependency set.
func withPartLocals(local map[string]bool, part *ast.PatternPart) map[string]bool {
	inner := make(map[string]bool, len(local)+len(part.Elements))
	for k := range local {
		inner[k] = true
	}
	for _, el := range part.Elements {
		switch e := el.(type) {
		case *ast.NodePattern:
			if e.Variable != "" {
				inner[e.Variable] = true
			}
		case *ast.RelationshipPattern:
			if e.Variable != "" {
				inner[e.Variable] = true
			}
		}
	}
	return inner
}
