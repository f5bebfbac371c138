package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/selectir/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion of c against result and
// returns the failure messages.
func EvaluateAssertions(c *Case, result *Result) []string {
	var errs []string
	for i, a := range c.Assertions {
		if err := evaluate(c, result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(c *Case, result *Result, a Assertion) error {
	switch a.Type {
	case AssertCompileError:
		return assertCompileError(result, a)
	case AssertParams:
		return assertParams(result, a)
	case AssertProjection:
		return assertProjection(result, a)
	case AssertSQL:
		return assertSQL(result, a)
	case AssertSQLError:
		return assertSQLError(result, a)
	case AssertDeprecated:
		if result.Deprecated != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d deprecation reports", a.Count),
				Actual:   fmt.Sprintf("%d", result.Deprecated),
			}
		}
		return nil
	case AssertShortcut:
		if result.Shortcut != a.Kind {
			return &AssertionError{Type: a.Type, Expected: a.Kind, Actual: result.Shortcut}
		}
		return nil
	case AssertEquivalent:
		return assertEquivalent(c, result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func compileFailure(result *Result) string {
	if result.Compiled() {
		return "compiled successfully"
	}
	return fmt.Sprintf("%s: %s", result.ErrorCode, result.ErrorMessage)
}

func assertCompileError(result *Result, a Assertion) error {
	if result.Compiled() || result.ErrorCode != a.Code ||
		!strings.Contains(result.ErrorMessage, a.Contains) {
		expected := a.Code
		if a.Contains != "" {
			expected = fmt.Sprintf("%s containing %q", a.Code, a.Contains)
		}
		return &AssertionError{Type: a.Type, Expected: expected, Actual: compileFailure(result)}
	}
	return nil
}

func assertParams(result *Result, a Assertion) error {
	if !result.Compiled() {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("params %v", a.Params), Actual: compileFailure(result)}
	}
	want := a.Params
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(result.Params, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", result.Params),
		}
	}
	return nil
}

func assertProjection(result *Result, a Assertion) error {
	if !result.Compiled() {
		return &AssertionError{Type: a.Type, Expected: a.Kind, Actual: compileFailure(result)}
	}
	got, ok := result.Projections[a.Source]
	if !ok {
		got = KindNone
	}
	if got != a.Kind {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("source %d %s", a.Source, a.Kind),
			Actual:   fmt.Sprintf("source %d %s", a.Source, got),
		}
	}
	return nil
}

func assertSQL(result *Result, a Assertion) error {
	if result.SQLError != "" || !result.Compiled() {
		actual := result.SQLError
		if !result.Compiled() {
			actual = compileFailure(result)
		}
		return &AssertionError{Type: a.Type, Expected: a.SQL, Actual: actual}
	}
	if result.SQL != a.SQL {
		return &AssertionError{Type: a.Type, Expected: a.SQL, Actual: result.SQL}
	}
	if a.Args != nil && !argsEqual(result.Args, a.Args) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("args %v", a.Args),
			Actual:   fmt.Sprintf("args %v", result.Args),
		}
	}
	return nil
}

func assertSQLError(result *Result, a Assertion) error {
	if result.SQLError == "" || !strings.Contains(result.SQLError, a.Contains) {
		actual := result.SQLError
		switch {
		case !result.Compiled():
			actual = compileFailure(result)
		case actual == "":
			actual = result.SQL
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("error containing %q", a.Contains), Actual: actual}
	}
	return nil
}

func assertEquivalent(c *Case, result *Result, a Assertion) error {
	if !result.Compiled() {
		return &AssertionError{Type: a.Type, Expected: "equivalent to " + a.Select, Actual: compileFailure(result)}
	}
	fp, err := fingerprintOf(c, a.Select)
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: "equivalent to " + a.Select, Actual: err.Error()}
	}
	if fp != result.Fingerprint {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("fingerprint of %s (%s)", a.Select, fp),
			Actual:   result.Fingerprint,
		}
	}
	return nil
}

// argsEqual compares SQL arguments by value, so YAML's int and the
// compiler's int64 match.
func argsEqual(got, want []any) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		g, gerr := ir.FromGo(got[i])
		w, werr := ir.FromGo(want[i])
		if gerr != nil || werr != nil || !reflect.DeepEqual(g, w) {
			return false
		}
	}
	return true
}
