package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTokensCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewTokensCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestTokensText(t *testing.T) {
	output, err := runTokensCommand(t, "text", "--query", "MATCH (n) RETURN n")
	require.NoError(t, err)

	assert.Contains(t, output, "keyword")
	assert.Contains(t, output, `"MATCH"`)
	assert.Contains(t, output, "identifier")
}

func TestTokensJSON(t *testing.T) {
	output, err := runTokensCommand(t, "json", "--query", "RETURN $p")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	toks, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, toks, 3) // RETURN, $p, EOF

	param, ok := toks[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "parameter", param["kind"])
	assert.Equal(t, "p", param["value"])
}

func TestTokensLexicalErrorExitsOne(t *testing.T) {
	_, err := runTokensCommand(t, "text", "--query", "RETURN 'unterminated")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestTokensNoInputExitsTwo(t *testing.T) {
	_, err := runTokensCommand(t, "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
