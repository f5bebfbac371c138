package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Case defines one conformance case.
type Case struct {
	// Name uniquely identifies this case and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this case validates.
	Description string `yaml:"description"`

	// Bindings are the names bound to sources, in source order.
	Bindings []string `yaml:"bindings,omitempty"`

	// Sources are the table names for each source. Defaults to Bindings.
	Sources []string `yaml:"sources,omitempty"`

	// Select is the clause text.
	Select string `yaml:"select"`

	// Values holds runtime values for interpolations, by name.
	Values map[string]any `yaml:"values,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a result.
type Assertion struct {
	Type string `yaml:"type"`

	// Code is the expected compile error code (compile_error).
	Code string `yaml:"code,omitempty"`

	// Contains is a message substring (compile_error, sql_error).
	Contains string `yaml:"contains,omitempty"`

	// Params are the expected parameter names in order (params).
	Params []string `yaml:"params,omitempty"`

	// Source and Kind select a projection entry (projection), or the
	// shortcut kind (shortcut).
	Source int    `yaml:"source,omitempty"`
	Kind   string `yaml:"kind,omitempty"`

	// SQL and Args are the expected rendering (sql). Args is only
	// compared when present.
	SQL  string `yaml:"sql,omitempty"`
	Args []any  `yaml:"args,omitempty"`

	// Count is the expected number of deprecation reports (deprecated).
	Count int `yaml:"count,omitempty"`

	// Select is a clause expected to compile identically (equivalent).
	Select string `yaml:"select,omitempty"`
}

// Assertion type constants.
const (
	AssertCompileError = "compile_error"
	AssertParams       = "params"
	AssertProjection   = "projection"
	AssertSQL          = "sql"
	AssertSQLError     = "sql_error"
	AssertDeprecated   = "deprecated"
	AssertShortcut     = "shortcut"
	AssertEquivalent   = "equivalent"
)

// Projection kinds reported in results and matched by assertions.
const (
	KindFull       = "full"
	KindRestricted = "restricted"
	KindDeferred   = "deferred"
	KindNone       = "none"
)

// DefaultSource is the table name for the implicit source of a case with
// no bindings.
const DefaultSource = "t0"

// LoadCase reads and parses a case YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	return ParseCase(data)
}

// ParseCase parses case YAML.
func ParseCase(data []byte) (*Case, error) {
	// Reject unknown fields so typos like "assertion:" fail loudly.
	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateCase(&c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}
	return &c, nil
}

// SourceTables returns the table for each source.
func (c *Case) SourceTables() []string {
	if len(c.Sources) > 0 {
		return c.Sources
	}
	if len(c.Bindings) > 0 {
		return c.Bindings
	}
	return []string{DefaultSource}
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Select == "" {
		return fmt.Errorf("select is required")
	}
	if len(c.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if len(c.Sources) > 0 {
		want := max(len(c.Bindings), 1)
		if len(c.Sources) != want {
			return fmt.Errorf("sources has %d tables but the case binds %d", len(c.Sources), want)
		}
	}

	for i := range c.Assertions {
		if err := validateAssertion(i, &c.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCompileError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for compile_error", index)
		}
	case AssertParams:
	case AssertProjection:
		if !validKind(a.Kind) {
			return fmt.Errorf("assertions[%d]: kind must be one of full, restricted, deferred, none", index)
		}
		if a.Source < 0 {
			return fmt.Errorf("assertions[%d]: source must be non-negative", index)
		}
	case AssertSQL:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for sql", index)
		}
	case AssertSQLError:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for sql_error", index)
		}
	case AssertDeprecated:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for deprecated", index)
		}
	case AssertShortcut:
		if a.Kind != KindDeferred && a.Kind != KindRestricted && a.Kind != KindNone {
			return fmt.Errorf("assertions[%d]: kind must be one of deferred, restricted, none", index)
		}
	case AssertEquivalent:
		if a.Select == "" {
			return fmt.Errorf("assertions[%d]: select is required for equivalent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func validKind(k string) bool {
	switch k {
	case KindFull, KindRestricted, KindDeferred, KindNone:
		return true
	}
	return false
}
