package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/selectir/internal/compiler"
	"github.com/roach88/selectir/internal/querysql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Values string // YAML file of runtime values
}

// SQLResult is a rendered query.
type SQLResult struct {
	Query string `json:"query"`
	SQL   string `json:"sql"`
	Args  []any  `json:"args"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <queries-dir> <query>",
		Short: "Render one query as parameterized SQL",
		Long: `Compile one query and render it as parameterized SQLite SQL.

Interpolated values (^name) and deferred field lists are read from the
YAML mapping given with --values. Nothing is executed.

Examples:
  selectir sql ./queries users-by-id --values values.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Values, "values", "", "YAML file mapping value names to runtime values")

	return cmd
}

func runSQL(opts *SQLOptions, dir, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	values, err := loadValues(opts.Values)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading values", err)
	}

	loadResult, loadErrors := LoadQueries(dir, LoadModeCollectAll)
	if loadResult == nil {
		e := toCLIError(loadErrors[0])
		_ = formatter.Error(e.Code, e.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", e.Code, e.Message))
	}

	def, ok := findQuery(loadResult.Defs, name)
	if !ok {
		if len(loadErrors) > 0 {
			_ = formatter.Errors(fmt.Sprintf("Query %s not loaded", name), loadErrorsToCLI(loadErrors))
			return NewExitError(ExitFailure, fmt.Sprintf("query %s not loaded", name))
		}
		msg := fmt.Sprintf("query %q not found in %s", name, dir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	b := compiler.NewBuilder(compiler.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	q, err := b.BuildQuery(def)
	if err != nil {
		_ = formatter.Errors("Compilation failed", loadErrorsToCLI([]error{err}))
		return NewExitError(ExitFailure, "compilation failed")
	}

	sql, args, err := querysql.NewSQLCompiler(values).Compile(q)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}
	if args == nil {
		args = []any{}
	}

	result := SQLResult{Query: name, SQL: sql, Args: args}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	for i, arg := range result.Args {
		fmt.Fprintf(formatter.Writer, "  $%d = %#v\n", i+1, arg)
	}
	return nil
}

// loadValues reads a YAML mapping of runtime values. An empty path means
// no values.
func loadValues(path string) (map[string]any, error) {
	values := map[string]any{}
	if path == "" {
		return values, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse values file %s: %w", path, err)
	}
	return values, nil
}
