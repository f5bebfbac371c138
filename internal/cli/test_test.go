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

const harnessCasesDir = "../harness/testdata/cases"

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeCase writes a case file under root/cases and returns its path.
func writeCase(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, "cases")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const passingCase = `name: pass
bindings: [u]
sources: [users]
select: "project(u, [:id])"
assertions:
  - type: sql
    sql: "SELECT s0.id FROM users AS s0"
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestTestCommandNonExistentCasesDir(t *testing.T) {
	out, err := runTestCommand(t, "text", "/nonexistent/cases")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "cases directory not found")
}

func TestTestCommandEmptyCasesDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No cases found.")
}

func TestTestCommandEmptyCasesDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.NotNil(t, resp.Data.Cases)
}

func TestTestCommandHarnessCases(t *testing.T) {
	out, err := runTestCommand(t, "json", harnessCasesDir)
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, resp.Data.Total, resp.Data.Passed)

	golden := 0
	for _, c := range resp.Data.Cases {
		if c.Golden {
			golden++
		}
	}
	assert.Equal(t, 5, golden, "every harness golden file is checked")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := runTestCommand(t, "text", harnessCasesDir, "--filter", "deferred_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ deferred_fields")
	assert.Contains(t, out, "✓ deferred_invalid")
	assert.NotContains(t, out, "param_order")
	assert.Contains(t, out, "✓ All cases passed")
}

func TestTestCommandFailingCase(t *testing.T) {
	root := t.TempDir()
	writeCase(t, root, "fail", `name: fail
bindings: [u]
select: "{u, v}"
assertions:
  - type: params
    params: []
`)

	out, err := runTestCommand(t, "text", filepath.Join(root, "cases"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ fail")
	assert.Contains(t, out, "E204")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandInvalidCaseFile(t *testing.T) {
	root := t.TempDir()
	writeCase(t, root, "broken", "name: broken\n")

	out, err := runTestCommand(t, "text", filepath.Join(root, "cases"))
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "select is required")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	root := t.TempDir()
	casePath := writeCase(t, root, "pass", passingCase)
	goldenPath := filepath.Join(root, "golden", "pass.golden")

	out, err := runTestCommand(t, "text", filepath.Join(root, "cases"), "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pass (golden updated)")

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text": "SELECT s0.id FROM users AS s0"`)

	out, err = runTestCommand(t, "text", filepath.Join(root, "cases"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pass")

	// A changed select no longer matches its snapshot.
	changed := bytes.Replace([]byte(passingCase), []byte("[:id]"), []byte("[:id, :name]"), 1)
	changed = bytes.Replace(changed, []byte("SELECT s0.id FROM"), []byte("SELECT s0.id, s0.name FROM"), 1)
	require.NoError(t, os.WriteFile(casePath, changed, 0644))

	out, err = runTestCommand(t, "text", filepath.Join(root, "cases"))
	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestFindCaseFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0644))

	files, err := findCaseFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindCaseFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "take-a.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "take-b.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "project.yaml"), []byte(""), 0644))

	files, err := findCaseFiles(tmpDir, "take-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findCaseFiles(tmpDir, "[")
	require.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/cases/param_order.yaml", "/path/to/golden/param_order.golden"},
		{"/path/to/cases/param_order.yml", "/path/to/golden/param_order.golden"},
		{"testdata/cases/x.yaml", "testdata/golden/x.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.input))
	}
}
