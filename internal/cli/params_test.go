package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/semantic"
)

func writeParamsFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLParameters(t *testing.T) {
	path := writeParamsFile(t, "params.yaml", `
minAge: 21
name: Ada
active: true
missing: null
tags:
  - a
  - b
profile:
  city: Berlin
`)

	params, err := LoadParameters(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]semantic.TypeCategory{
		"minAge":  semantic.TypeScalar,
		"name":    semantic.TypeScalar,
		"active":  semantic.TypeScalar,
		"missing": semantic.TypeUnknown,
		"tags":    semantic.TypeList,
		"profile": semantic.TypeMap,
	}, params)
}

func TestLoadCUEParameters(t *testing.T) {
	path := writeParamsFile(t, "params.cue", `
minAge: int
name:   "Ada"
tags: [...string]
profile: {city: string}
`)

	params, err := LoadParameters(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]semantic.TypeCategory{
		"minAge":  semantic.TypeScalar,
		"name":    semantic.TypeScalar,
		"tags":    semantic.TypeList,
		"profile": semantic.TypeMap,
	}, params)
}

func TestLoadParametersUnsupportedExtension(t *testing.T) {
	path := writeParamsFile(t, "params.toml", "x = 1")

	_, err := LoadParameters(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported parameters file")
}

func TestLoadParametersInvalidYAML(t *testing.T) {
	path := writeParamsFile(t, "params.yaml", ":\n  - [")

	_, err := LoadParameters(path)
	require.Error(t, err)
}

func TestLoadParametersMissingFile(t *testing.T) {
	_, err := LoadParameters(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
