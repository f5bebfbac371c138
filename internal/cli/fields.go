package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/selectir/internal/fields"
	"github.com/roach88/selectir/internal/ir"
	"github.com/roach88/selectir/internal/queryir"
)

// FieldsResult describes a well-formed field specification.
type FieldsResult struct {
	Names  []string        `json:"names"`
	Fields json.RawMessage `json:"fields"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields <value|->",
		Short: "Check a runtime field specification",
		Long: `Check the value a deferred projection would receive at run time.

The value is YAML or JSON, read from the argument or from stdin when the
argument is "-". A well-formed value is a list whose elements are field
names or (field, nested fields) pairs.

Examples:
  selectir fields '[id, name]'
  selectir fields '[id, {address: [city]}]'
  echo '["id", ["address", ["city"]]]' | selectir fields -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runFields(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	input := arg
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			_ = formatter.Error(ErrCodeBadInput, fmt.Sprintf("reading stdin: %v", err), nil)
			return WrapExitError(ExitCommandError, "reading stdin", err)
		}
		input = string(data)
	}

	var value any
	if err := yaml.Unmarshal([]byte(input), &value); err != nil {
		_ = formatter.Error(ErrCodeBadInput, fmt.Sprintf("parsing value: %v", err), nil)
		return WrapExitError(ExitCommandError, "parsing value", err)
	}

	if _, err := fields.Validate(value); err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}
	fl, err := fields.Parse(value)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	encoded, err := ir.MarshalCanonical(queryir.EncodeFieldList(fl))
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "encoding fields", err)
	}
	result := FieldsResult{Names: fl.Names(), Fields: encoded}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Well-formed: %s\n", strings.Join(result.Names, ", "))
	fmt.Fprintf(formatter.Writer, "  %s\n", encoded)
	return nil
}
