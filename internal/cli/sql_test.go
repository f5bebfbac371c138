package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSQLCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSQLCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeValues(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSQLRestricted(t *testing.T) {
	out, err := runSQLCommand(t, "text", queriesDir, "orders-with-user")
	require.NoError(t, err)
	assert.Equal(t, "SELECT s0.id, s0.total, s1.name, s1.address FROM orders AS s0, users AS s1\n", out)
}

func TestSQLParamsJSON(t *testing.T) {
	values := writeValues(t, "limit: 10\noffset: 20\n")

	out, err := runSQLCommand(t, "json", queriesDir, "user-page", "--values", values)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   SQLResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "user-page", resp.Data.Query)
	assert.Equal(t, "SELECT s0.*, ?, ? FROM users AS s0", resp.Data.SQL)
	assert.Equal(t, []any{float64(10), float64(20)}, resp.Data.Args)
}

func TestSQLDeferredFields(t *testing.T) {
	values := writeValues(t, "cols: [id, {address: [city]}]\n")

	out, err := runSQLCommand(t, "text", queriesDir, "user-columns", "--values", values)
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT s0.id, s0.address FROM users AS s0")
}

func TestSQLDeferredFieldsMalformed(t *testing.T) {
	values := writeValues(t, "cols: id\n")

	out, err := runSQLCommand(t, "text", queriesDir, "user-columns", "--values", values)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "expected a list of fields")
}

func TestSQLMissingValue(t *testing.T) {
	out, err := runSQLCommand(t, "text", queriesDir, "user-page")
	require.Error(t, err)
	assert.Contains(t, out, "missing value for ^limit")
}

func TestSQLUnknownQuery(t *testing.T) {
	out, err := runSQLCommand(t, "text", queriesDir, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestSQLBadValuesFile(t *testing.T) {
	_, err := runSQLCommand(t, "text", queriesDir, "user-page", "--values", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadValues(t *testing.T) {
	values, err := loadValues("")
	require.NoError(t, err)
	assert.Empty(t, values)

	values, err = loadValues(writeValues(t, ""))
	require.NoError(t, err)
	assert.Empty(t, values)

	values, err = loadValues(writeValues(t, "a: 1\nb: [x]\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": []any{"x"}}, values)
}
