package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/selectir/internal/ir"
)

// GoldenDir is where golden snapshots live, relative to the test package.
const GoldenDir = "testdata/golden"

// Snapshot renders the parts of result that golden files pin down:
// the encoded IR or compile error, deprecation count, shortcut kind and
// SQL rendering. Fingerprints are left out; the IR they hash is there.
// The output is indented canonical JSON with a trailing newline.
func Snapshot(c *Case, result *Result) ([]byte, error) {
	bindings := make([]any, len(c.Bindings))
	for i, b := range c.Bindings {
		bindings[i] = b
	}

	snap := map[string]any{
		"name":       c.Name,
		"select":     c.Select,
		"bindings":   bindings,
		"deprecated": result.Deprecated,
		"shortcut":   result.Shortcut,
	}

	if result.Compiled() {
		snap["ir"] = result.IR
	} else {
		e := map[string]any{
			"code":    result.ErrorCode,
			"message": result.ErrorMessage,
		}
		if result.ErrorConstruct != "" {
			e["construct"] = result.ErrorConstruct
		}
		if result.ErrorLocation != "" {
			e["location"] = result.ErrorLocation
		}
		snap["error"] = e
	}

	switch {
	case result.SQLError != "":
		snap["sql_error"] = result.SQLError
	case result.SQL != "":
		args := make(ir.IRArray, len(result.Args))
		for i, a := range result.Args {
			v, err := ir.FromGo(a)
			if err != nil {
				return nil, fmt.Errorf("snapshot arg %d: %w", i, err)
			}
			if _, isNull := v.(ir.IRNull); isNull {
				v = ir.IRObject{"kind": ir.IRString("nil")}
			}
			args[i] = v
		}
		snap["sql"] = map[string]any{"text": result.SQL, "args": args}
	}

	data, err := ir.MarshalIndent(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", c.Name, err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs c and compares its snapshot against
// testdata/golden/{c.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, c *Case) (*Result, error) {
	t.Helper()

	result, err := Run(c)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, c, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares result's snapshot against the golden file for c
// without re-running it.
func AssertGolden(t *testing.T, c *Case, result *Result) error {
	t.Helper()

	data, err := Snapshot(c, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, c.Name, data)
	return nil
}
