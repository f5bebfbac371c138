package harness

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goldenCases have a snapshot under testdata/golden.
var goldenCases = map[string]bool{
	"project_nested":   true,
	"param_order":      true,
	"deferred_fields":  true,
	"malformed_fields": true,
	"take_deprecated":  true,
}

func TestConformanceCases(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "cases", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			c, err := LoadCase(path)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name, "case name should match its file name")

			var result *Result
			if goldenCases[c.Name] {
				result, err = RunWithGolden(t, c)
			} else {
				result, err = Run(c)
			}
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}

	// Every golden file belongs to a case.
	goldens, err := filepath.Glob(filepath.Join(GoldenDir, "*.golden"))
	require.NoError(t, err)
	for _, g := range goldens {
		name := strings.TrimSuffix(filepath.Base(g), ".golden")
		assert.True(t, goldenCases[name], "orphan golden file %s", g)
		_, err := os.Stat(filepath.Join("testdata", "cases", name+".yaml"))
		assert.NoError(t, err, "golden %s has no case", name)
	}
}

func TestRun_RecordsCompileError(t *testing.T) {
	c := &Case{
		Name:       "err",
		Bindings:   []string{"u"},
		Select:     "project(u, [1])",
		Assertions: []Assertion{{Type: AssertCompileError, Code: "E201"}},
	}

	result, err := Run(c)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.False(t, result.Compiled())
	assert.Equal(t, "E201", result.ErrorCode)
	assert.Equal(t, "1", result.ErrorConstruct)
	assert.Equal(t, "err:1:13", result.ErrorLocation)
	assert.Empty(t, result.SQL, "no SQL after a compile failure")
}

func TestRun_FailingAssertionsMarkResult(t *testing.T) {
	c := &Case{
		Name:     "mismatch",
		Bindings: []string{"u"},
		Select:   "{u, ^a}",
		Values:   map[string]any{"a": 1},
		Assertions: []Assertion{
			{Type: AssertParams, Params: []string{"b"}},
			{Type: AssertCompileError, Code: "E204"},
			{Type: AssertSQL, SQL: "SELECT 1"},
		},
	}

	result, err := Run(c)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertion 0")
	assert.Contains(t, result.Errors[0], "[b]")
	assert.Contains(t, result.Errors[1], "compiled successfully")
	assert.Contains(t, result.Errors[2], "SELECT s0.*, ? FROM u AS s0")
}

func TestRun_DeprecationLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	c := &Case{
		Name:       "dep",
		Bindings:   []string{"u"},
		Select:     "{take(u, [:id]), take(u, [:name])}",
		Assertions: []Assertion{{Type: AssertDeprecated, Count: 2}},
	}

	result, err := New(WithLogger(logger)).Run(c)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 2, strings.Count(buf.String(), "take/2 in select is deprecated"))
	// Later write wins in the projection table.
	assert.Equal(t, KindRestricted, result.Projections[0])
	assert.Equal(t, "SELECT s0.name, s0.name FROM u AS s0", result.SQL)
}

func TestRun_NilCase(t *testing.T) {
	_, err := Run(nil)
	require.Error(t, err)
}

func TestSnapshot_SQLError(t *testing.T) {
	c := &Case{Name: "s", Bindings: []string{"u"}, Select: "^cols"}
	result := NewResult()
	result.Shortcut = KindDeferred
	result.SQLError = "missing value for ^cols"
	result.IR = nil
	result.ErrorCode = "E000"
	result.ErrorMessage = "m"

	data, err := Snapshot(c, result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sql_error": "missing value for ^cols"`)
	assert.NotContains(t, string(data), `"text"`)
	assert.True(t, bytes.HasSuffix(data, []byte("}\n")))
}

func TestSnapshot_NilArg(t *testing.T) {
	c := &Case{Name: "s", Select: "^x"}
	result := NewResult()
	result.SQL = "SELECT ?"
	result.Args = []any{nil, "a"}

	data, err := Snapshot(c, result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "nil"`)
}
