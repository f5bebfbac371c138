package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/selectir/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Queries int                        `json:"queries"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <queries-dir>",
		Short: "Validate query definitions without writing output",
		Long: `Validate CUE query definitions and their select clauses.

Checks each definition's tables and bindings, query name uniqueness,
and that every select clause compiles. Nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadQueries(dir, LoadModeFailFast)
	if loadResult == nil {
		e := toCLIError(loadErrors[0])
		return outputValidateError(formatter, e.Code, e.Message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	validationErrors := validateAll(loadResult.Defs, formatter)

	for _, err := range loadErrors {
		e := toCLIError(err)
		verr := compiler.ValidationError{Field: "load", Message: e.Message, Code: e.Code}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			verr.Line = loadErr.Location.Line
		}
		validationErrors = append(validationErrors, verr)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, len(loadResult.Defs))
}

// validateAll checks every definition and compiles the select clause of
// each one that is structurally valid. Compiled selects are discarded.
func validateAll(defs []*compiler.QueryDef, formatter *OutputFormatter) []compiler.ValidationError {
	allErrors := compiler.ValidateQueries(defs)

	invalid := make(map[string]bool, len(allErrors))
	for _, e := range allErrors {
		invalid[e.Query] = true
	}

	b := compiler.NewBuilder()
	for _, def := range defs {
		if invalid[def.Name] {
			continue
		}
		formatter.VerboseLog("Validating query: %s", def.Name)

		if _, err := b.CompileString(def.Bind, def.Select, def.SelectLocation); err != nil {
			allErrors = append(allErrors, selectValidationError(def, err))
		}
	}

	return allErrors
}

// selectValidationError reports a select clause compile failure against
// the line it occurred on.
func selectValidationError(def *compiler.QueryDef, err error) compiler.ValidationError {
	verr := compiler.ValidationError{
		Query:   def.Name,
		Field:   "select",
		Message: err.Error(),
		Code:    ErrCodeGeneric,
		Line:    def.SelectLocation.Line,
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		verr.Code = compileErr.Code
		verr.Message = compileErr.Message
		if compileErr.Construct != "" {
			verr.Message = fmt.Sprintf("%s, got: %s", compileErr.Message, compileErr.Construct)
		}
		if compileErr.Location.Line > 0 {
			verr.Line = compileErr.Location.Line
		}
	}
	return verr
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Queries: count})
	}

	fmt.Fprintf(formatter.Writer, "✓ All queries valid (%d)\n", count)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load failures are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		switch {
		case err.Query != "" && err.Line > 0:
			fmt.Fprintf(formatter.Writer, "query %s, line %d\n", err.Query, err.Line)
		case err.Query != "":
			fmt.Fprintf(formatter.Writer, "query %s\n", err.Query)
		case err.Line > 0:
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateQueriesDir validates all queries in a directory.
// This is a helper function for external callers.
func ValidateQueriesDir(dir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadQueries(dir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text"}
	return validateAll(loadResult.Defs, silent), nil
}
