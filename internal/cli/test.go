package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/selectir/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // case filter (glob pattern)
}

// CaseResult holds the result of a single case.
type CaseResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden bool     `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Cases  []CaseResult `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <cases-dir>",
		Short: "Run conformance cases",
		Long: `Run select clause conformance cases.

Each YAML case compiles one select clause and checks its assertions.
A case with a snapshot in the sibling golden directory
(cases/x.yaml -> golden/x.golden) must also match it.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, etc.)

Examples:
  selectir test ./testdata/cases
  selectir test ./testdata/cases --filter "deferred_*"
  selectir test ./testdata/cases --update
  selectir test ./testdata/cases --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter cases by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, casesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(casesDir); os.IsNotExist(err) {
		msg := fmt.Sprintf("cases directory not found: %s", casesDir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	caseFiles, err := findCaseFiles(casesDir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeScanError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find cases", err)
	}

	result := TestResult{
		Cases: make([]CaseResult, 0, len(caseFiles)),
		Total: len(caseFiles),
	}

	if len(caseFiles) == 0 {
		if formatter.JSON() {
			return outputTestJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No cases found.")
		return nil
	}

	h := harness.New(harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	for _, caseFile := range caseFiles {
		cr := runCase(h, caseFile, opts)
		result.Cases = append(result.Cases, cr)

		if cr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if !formatter.JSON() {
			printCaseResult(formatter, cr, opts.Update)
		}
	}

	if formatter.JSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findCaseFiles finds all YAML case files in a directory.
func findCaseFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runCase runs one case file, then checks or rewrites its golden file.
func runCase(h *harness.Harness, caseFile string, opts *TestOptions) CaseResult {
	c, err := harness.LoadCase(caseFile)
	if err != nil {
		return CaseResult{
			Name:   filepath.Base(caseFile),
			Errors: []string{err.Error()},
		}
	}

	result, err := h.Run(c)
	if err != nil {
		return CaseResult{
			Name:   c.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	cr := CaseResult{Name: c.Name, Pass: result.Pass, Errors: result.Errors}

	goldenPath := goldenFilePath(caseFile)
	if opts.Update {
		if err := updateGoldenFile(c, result, goldenPath); err != nil {
			cr.Pass = false
			cr.Errors = append(cr.Errors, err.Error())
		}
		cr.Golden = true
		return cr
	}

	if _, err := os.Stat(goldenPath); os.IsNotExist(err) {
		return cr
	}
	cr.Golden = true

	match, err := compareWithGolden(c, result, goldenPath)
	switch {
	case err != nil:
		cr.Pass = false
		cr.Errors = append(cr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case !match:
		cr.Pass = false
		cr.Errors = append(cr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}
	return cr
}

// goldenFilePath maps cases/x.yaml to golden/x.golden beside the cases
// directory.
func goldenFilePath(caseFile string) string {
	base := filepath.Base(caseFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(filepath.Dir(caseFile)), "golden", name+".golden")
}

// updateGoldenFile writes the current snapshot as the golden file.
func updateGoldenFile(c *harness.Case, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}

	data, err := harness.Snapshot(c, result)
	if err != nil {
		return fmt.Errorf("failed to render snapshot: %w", err)
	}

	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result snapshot against the golden file.
func compareWithGolden(c *harness.Case, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}

	current, err := harness.Snapshot(c, result)
	if err != nil {
		return false, fmt.Errorf("failed to render snapshot: %w", err)
	}

	return bytes.Equal(goldenData, current), nil
}

func printCaseResult(formatter *OutputFormatter, cr CaseResult, updated bool) {
	w := formatter.Writer
	if !cr.Pass {
		fmt.Fprintf(w, "✗ %s\n", cr.Name)
		for _, e := range cr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if updated {
		fmt.Fprintf(w, "✓ %s (golden updated)\n", cr.Name)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", cr.Name)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("%d case(s) failed", result.Failed),
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All cases passed")
	return nil
}
