package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runASTCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewASTCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestASTDump(t *testing.T) {
	output, err := runASTCommand(t, "json", "--query", "MATCH (n:Person) RETURN n.name")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	stmt, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Statement", stmt["kind"])
	assert.Contains(t, output, `"Match"`)
	assert.Contains(t, output, `"PropertyAccess"`)
	assert.Contains(t, output, `"Person"`)
}

func TestASTDumpNormalized(t *testing.T) {
	// Property maps in MATCH hoist into WHERE during normalization, so
	// the normalized tree has no inline properties left.
	src := "MATCH (n:Person {age: 30}) RETURN n"

	plain, err := runASTCommand(t, "json", "--query", src)
	require.NoError(t, err)
	assert.Contains(t, plain, `"MapLit"`)

	normalized, err := runASTCommand(t, "json", "--query", src, "--normalize")
	require.NoError(t, err)
	assert.NotContains(t, normalized, `"MapLit"`)
	assert.Contains(t, normalized, `"Binary"`)
}

func TestASTSyntaxErrorExitsOne(t *testing.T) {
	_, err := runASTCommand(t, "json", "--query", "MATCH (")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestASTNormalizeRejectsUnboundVariable(t *testing.T) {
	output, err := runASTCommand(t, "json", "--query", "RETURN missing", "--normalize")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "S100")
}
