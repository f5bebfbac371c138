package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selectir/internal/compiler"
)

func TestValidateValidQueries(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{queriesDir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All queries valid (4)")
}

func TestValidateValidQueriesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{queriesDir})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 4, resp.Data.Queries)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, buf.String(), "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
}

func TestValidateInvalidDefinition(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"bad.cue": `query: "bad": {
	from: ["users", "bad-table"]
	bind: ["u", "u"]
	select: "u"
}
`,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "query bad, line 1")
	assert.Contains(t, output, compiler.ErrInvalidTableName)
	assert.Contains(t, output, compiler.ErrDuplicateBinding)
}

func TestValidateInvalidSelectJSON(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"bad.cue": `query: "bad": {
	from: ["users"]
	bind: ["u"]
	select: "project(u, [:id]"
}
`,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, compiler.ErrParse, resp.Data.Errors[0].Code)
	assert.Equal(t, "select", resp.Data.Errors[0].Field)
	assert.Equal(t, 4, resp.Data.Errors[0].Line)
}

func TestValidateVerboseOutput(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{queriesDir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "Validating query: orders-with-user")
}

func TestValidateQueriesDir(t *testing.T) {
	errs, err := ValidateQueriesDir(queriesDir)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateQueriesDirInvalid(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"bad.cue": `query: "bad": {
	from: ["users"]
	bind: ["u"]
	select: "{u, v}"
}
`,
	})

	errs, err := ValidateQueriesDir(dir)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, compiler.ErrUnboundVariable, errs[0].Code)
	assert.Equal(t, "bad", errs[0].Query)
}

func TestValidateQueriesDirNonExistent(t *testing.T) {
	_, err := ValidateQueriesDir("/nonexistent/path")
	require.Error(t, err)
}
