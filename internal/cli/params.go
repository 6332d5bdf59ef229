package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cypherc/internal/semantic"
)

// LoadParameters reads a parameter declaration file and maps each
// parameter to its type category. YAML (.yaml/.yml) and CUE (.cue)
// files are supported; the compiler only needs the categories, so the
// actual values are discarded.
func LoadParameters(path string) (map[string]semantic.TypeCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameters file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return parseYAMLParameters(data)
	case ".cue":
		return parseCUEParameters(data)
	default:
		return nil, fmt.Errorf("unsupported parameters file %q: want .yaml, .yml or .cue", path)
	}
}

func parseYAMLParameters(data []byte) (map[string]semantic.TypeCategory, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML parameters: %w", err)
	}
	params := make(map[string]semantic.TypeCategory, len(raw))
	for name, value := range raw {
		params[name] = categorize(value)
	}
	return params, nil
}

func parseCUEParameters(data []byte) (map[string]semantic.TypeCategory, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE parameters: %w", err)
	}
	iter, err := value.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating CUE parameters: %w", err)
	}
	params := map[string]semantic.TypeCategory{}
	for iter.Next() {
		params[iter.Label()] = categorizeCUE(iter.Value())
	}
	return params, nil
}

func categorize(value any) semantic.TypeCategory {
	switch value.(type) {
	case nil:
		return semantic.TypeUnknown
	case []any:
		return semantic.TypeList
	case map[string]any, map[any]any:
		return semantic.TypeMap
	default:
		return semantic.TypeScalar
	}
}

func categorizeCUE(v cue.Value) semantic.TypeCategory {
	switch v.IncompleteKind() {
	case cue.ListKind:
		return semantic.TypeList
	case cue.StructKind:
		return semantic.TypeMap
	case cue.NullKind:
		return semantic.TypeUnknown
	default:
		return semantic.TypeScalar
	}
}
