package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/selectir/internal/compiler"
	"github.com/roach88/selectir/internal/ir"
	"github.com/roach88/selectir/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // output file path
	Database string // artifact store path
}

// CompiledQuery is one compiled query in command output.
type CompiledQuery struct {
	Name        string          `json:"name"`
	Sources     []string        `json:"sources"`
	Location    string          `json:"location"`
	Fingerprint string          `json:"fingerprint"`
	Params      []string        `json:"params"`
	IR          json.RawMessage `json:"ir"`
}

// CompilationResult holds every compiled query, in load order.
type CompilationResult struct {
	Queries []CompiledQuery `json:"queries"`
	Stored  int             `json:"stored,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <queries-dir>",
		Short: "Compile query select clauses to canonical IR",
		Long: `Compile the select clause of every query defined under a directory.

Each query is validated, its select clause compiled and attached to a
query over its source tables. The result is canonical IR, optionally
written to a file (--output) and an artifact store (--db).

Examples:
  selectir compile ./queries
  selectir compile ./queries -o compiled.json
  selectir compile ./queries --db selects.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite artifact store")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadQueries(dir, LoadModeCollectAll)
	if loadResult == nil {
		e := toCLIError(loadErrors[0])
		_ = formatter.Error(e.Code, e.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", e.Code, e.Message))
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	errs := loadErrors
	for _, verr := range compiler.ValidateQueries(loadResult.Defs) {
		if verr.Code == compiler.ErrDuplicateQuery {
			errs = append(errs, &LoadError{Code: verr.Code, Message: verr.Message})
		}
	}

	b := compiler.NewBuilder(compiler.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	result := &CompilationResult{Queries: []CompiledQuery{}}
	var records []store.Record

	for _, def := range loadResult.Defs {
		formatter.VerboseLog("Compiling query: %s", def.Name)

		q, err := b.BuildQuery(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rec, err := store.NewRecord(def.Name, q)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
		result.Queries = append(result.Queries, compiledQuery(rec))
	}

	if len(errs) > 0 {
		_ = formatter.Errors("Compilation failed", loadErrorsToCLI(errs))
		return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	if opts.Database != "" {
		n, err := storeRecords(cmd, opts.Database, records, formatter)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "storing compiled selects", err)
		}
		result.Stored = n
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts)
}

func compiledQuery(rec store.Record) CompiledQuery {
	params := make([]string, len(rec.Params))
	for i, p := range rec.Params {
		params[i] = p.Name
	}
	return CompiledQuery{
		Name:        rec.Name,
		Sources:     rec.Sources,
		Location:    rec.Location,
		Fingerprint: rec.Fingerprint,
		Params:      params,
		IR:          json.RawMessage(rec.IR),
	}
}

// storeRecords writes records to the store at path and returns how many
// rows changed.
func storeRecords(cmd *cobra.Command, path string, records []store.Record, formatter *OutputFormatter) (int, error) {
	st, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	written := 0
	for _, rec := range records {
		changed, err := st.PutSelect(cmd.Context(), rec)
		if err != nil {
			return written, err
		}
		if changed {
			written++
			formatter.VerboseLog("Stored %s (%s)", rec.Name, rec.Fingerprint[:12])
		} else {
			formatter.VerboseLog("Unchanged %s", rec.Name)
		}
	}
	return written, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, opts *CompileOptions) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d query(s)\n\n", len(result.Queries))
	for _, q := range result.Queries {
		fmt.Fprintf(w, "  %s: %d param(s), fingerprint %s\n", q.Name, len(q.Params), q.Fingerprint[:12])
	}
	fmt.Fprintln(w)

	if opts.Database != "" {
		fmt.Fprintf(w, "Stored %d changed select(s) in %s\n", result.Stored, opts.Database)
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote canonical IR to %s\n", opts.Output)
	}
	return nil
}

// writeIRToFile writes the compilation result as indented JSON with
// canonical key order.
func writeIRToFile(result *CompilationResult, filename string) error {
	queries := make([]any, len(result.Queries))
	for i, q := range result.Queries {
		irVal, err := ir.UnmarshalIRValue(q.IR)
		if err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		sources := make([]any, len(q.Sources))
		for j, s := range q.Sources {
			sources[j] = s
		}
		params := make([]any, len(q.Params))
		for j, p := range q.Params {
			params[j] = p
		}
		queries[i] = map[string]any{
			"name":        q.Name,
			"sources":     sources,
			"location":    q.Location,
			"fingerprint": q.Fingerprint,
			"params":      params,
			"ir":          irVal,
		}
	}

	data, err := ir.MarshalIndent(map[string]any{
		"ir_version": ir.IRVersion,
		"compiler":   ir.CompilerVersion,
		"queries":    queries,
	})
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
