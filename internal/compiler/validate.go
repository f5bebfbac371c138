package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

// Query definition validation codes (E100-E199)
const (
	ErrQueryNameEmpty    = "E101" // query name is required
	ErrQueryNoSources    = "E102" // from must list at least one table
	ErrInvalidTableName  = "E103" // table name is not a plain identifier
	ErrBindArity         = "E104" // bind and from lengths differ
	ErrDuplicateBinding  = "E105" // binding name used twice
	ErrQuerySelectEmpty  = "E106" // select clause is empty
	ErrDuplicateQuery    = "E107" // two queries share a name
	ErrInvalidBindingRef = "E108" // binding name is not a plain identifier
)

// identPattern matches names that are safe to use as SQL identifiers and
// binding names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError represents a query definition validation error.
type ValidationError struct {
	Query   string `json:"query,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateQuery checks a single definition.
// Returns all errors found (does not fail-fast).
func ValidateQuery(def *QueryDef) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Query:   def.Name,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Line:    def.Location.Line,
		})
	}

	if strings.TrimSpace(def.Name) == "" {
		add("name", ErrQueryNameEmpty, "query name is required")
	}

	if len(def.From) == 0 {
		add("from", ErrQueryNoSources, "at least one table is required")
	}
	for i, table := range def.From {
		if !identPattern.MatchString(table) {
			add(fmt.Sprintf("from[%d]", i), ErrInvalidTableName, "invalid table name %q", table)
		}
	}

	switch {
	case len(def.Bind) == 0 && len(def.From) > 1:
		add("bind", ErrBindArity, "bind is required when selecting from %d tables", len(def.From))
	case len(def.Bind) > 0 && len(def.Bind) != len(def.From):
		add("bind", ErrBindArity, "bind has %d names but from has %d tables", len(def.Bind), len(def.From))
	}

	seen := make(map[string]bool, len(def.Bind))
	for i, name := range def.Bind {
		if !identPattern.MatchString(name) {
			add(fmt.Sprintf("bind[%d]", i), ErrInvalidBindingRef, "invalid binding name %q", name)
		}
		if seen[name] {
			add(fmt.Sprintf("bind[%d]", i), ErrDuplicateBinding, "binding %q declared twice", name)
		}
		seen[name] = true
	}

	if strings.TrimSpace(def.Select) == "" {
		add("select", ErrQuerySelectEmpty, "select clause is required and must be non-empty")
	}

	return errs
}

// ValidateQueries checks every definition and name uniqueness across them.
func ValidateQueries(defs []*QueryDef) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		errs = append(errs, ValidateQuery(def)...)
		if def.Name != "" && seen[def.Name] {
			errs = append(errs, ValidationError{
				Query:   def.Name,
				Field:   "name",
				Message: fmt.Sprintf("duplicate query name %q", def.Name),
				Code:    ErrDuplicateQuery,
				Line:    def.Location.Line,
			})
		}
		seen[def.Name] = true
	}
	return errs
}
