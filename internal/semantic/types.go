// Package semantic validates a parsed statement: it builds nested
// scopes, resolves every variable reference, enforces clause
// constraints and assigns a coarse type category to every expression.
//
// Unlike the parser, analysis is error-accumulating: it continues past
// local errors and reports every distinct problem found in one pass.
// A reference that failed to resolve types as Unknown so one unbound
// variable does not cascade into spurious type mismatches.
package semantic

// TypeCategory is the coarse type lattice used by the analyzer. Unknown
// is compatible with everything, supporting dynamic values.
type TypeCategory string

const (
	TypeNode         TypeCategory = "node"
	TypeRelationship TypeCategory = "relationship"
	TypePath         TypeCategory = "path"
	TypeScalar       TypeCategory = "scalar"
	TypeList         TypeCategory = "list"
	TypeMap          TypeCategory = "map"
	TypeUnknown      TypeCategory = "unknown"
)

// compatible reports whether a value of category have can appear where
// one of the want categories is required. Unknown matches both ways.
func compatible(have TypeCategory, want ...TypeCategory) bool {
	if have == TypeUnknown {
		return true
	}
	for _, w := range want {
		if w == have || w == TypeUnknown {
			return true
		}
	}
	return false
}

// aggregateFunctions are the builtin aggregation function names,
// lowercase. count(*) is handled separately as its own AST node.
var aggregateFunctions = map[string]bool{
	"avg":            true,
	"collect":        true,
	"count":          true,
	"max":            true,
	"min":            true,
	"percentilecont": true,
	"percentiledisc": true,
	"stdev":          true,
	"stdevp":         true,
	"sum":            true,
}

// functionResults maps known builtin function names (lowercase) to
// their result category. Unlisted functions type as Unknown; function
// existence is resolved at runtime, never here.
var functionResults = map[string]TypeCategory{
	"abs":           TypeScalar,
	"avg":           TypeScalar,
	"coalesce":      TypeUnknown,
	"collect":       TypeList,
	"count":         TypeScalar,
	"endnode":       TypeNode,
	"exists":        TypeScalar,
	"head":          TypeUnknown,
	"id":            TypeScalar,
	"keys":          TypeList,
	"labels":        TypeList,
	"last":          TypeUnknown,
	"length":        TypeScalar,
	"max":           TypeUnknown,
	"min":           TypeUnknown,
	"nodes":         TypeList,
	"properties":    TypeMap,
	"range":         TypeList,
	"relationships": TypeList,
	"reverse":       TypeUnknown,
	"size":          TypeScalar,
	"startnode":     TypeNode,
	"stdev":         TypeScalar,
	"stdevp":        TypeScalar,
	"sum":           TypeScalar,
	"tail":          TypeList,
	"tofloat":       TypeScalar,
	"tointeger":     TypeScalar,
	"tolower":       TypeScalar,
	"tostring":      TypeScalar,
	"toupper":       TypeScalar,
	"trim":          TypeScalar,
	"type":          TypeScalar,
}
