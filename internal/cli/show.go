package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/selectir/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Verify bool
}

// StoredSelect is one stored select in command output.
type StoredSelect struct {
	Name            string          `json:"name"`
	Sources         []string        `json:"sources"`
	Location        string          `json:"location"`
	Fingerprint     string          `json:"fingerprint"`
	Params          []store.Param   `json:"params"`
	IRVersion       string          `json:"ir_version"`
	CompilerVersion string          `json:"compiler_version"`
	Seq             int64           `json:"seq"`
	SameAs          []string        `json:"same_as,omitempty"`
	Verified        *bool           `json:"verified,omitempty"`
	IR              json.RawMessage `json:"ir,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <db> [query]",
		Short: "Show compiled selects held in an artifact store",
		Long: `List the compiled selects stored by "selectir compile --db", or show one
query's select with its IR.

With --verify every shown record's fingerprint is recomputed from its
stored IR; a mismatch fails the command.

Examples:
  selectir show selects.db
  selectir show selects.db users-by-id --verify`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runShow(opts, args[0], name, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute and check fingerprints")

	return cmd
}

func runShow(opts *ShowOptions, dbPath, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Open would create a fresh database.
	if _, err := os.Stat(dbPath); err != nil {
		msg := fmt.Sprintf("database not found: %s", dbPath)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	var records []store.Record
	if name == "" {
		records, err = st.ListSelects(ctx)
	} else {
		var rec store.Record
		rec, err = st.GetSelect(ctx, name)
		records = []store.Record{rec}
	}
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading database", err)
	}

	shown := make([]StoredSelect, 0, len(records))
	var failed []CLIError
	for _, rec := range records {
		s := storedSelect(rec)
		if name != "" {
			s.IR = json.RawMessage(rec.IR)
			same, err := st.FindByFingerprint(ctx, rec.Fingerprint)
			if err != nil {
				_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
				return WrapExitError(ExitCommandError, "reading database", err)
			}
			s.SameAs = slices.DeleteFunc(same, func(n string) bool { return n == rec.Name })
		}
		if opts.Verify {
			err := rec.Verify()
			ok := err == nil
			s.Verified = &ok
			if err != nil {
				failed = append(failed, CLIError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", rec.Name, err)})
			}
		}
		shown = append(shown, s)
	}

	if len(failed) > 0 {
		_ = formatter.Errors("Verification failed", failed)
		return NewExitError(ExitFailure, fmt.Sprintf("verification failed for %d select(s)", len(failed)))
	}

	if formatter.JSON() {
		return formatter.Success(shown)
	}
	if name != "" {
		return outputShowOne(formatter, shown[0])
	}
	return outputShowList(formatter, shown, dbPath)
}

func storedSelect(rec store.Record) StoredSelect {
	params := rec.Params
	if params == nil {
		params = []store.Param{}
	}
	return StoredSelect{
		Name:            rec.Name,
		Sources:         rec.Sources,
		Location:        rec.Location,
		Fingerprint:     rec.Fingerprint,
		Params:          params,
		IRVersion:       rec.IRVersion,
		CompilerVersion: rec.CompilerVersion,
		Seq:             rec.Seq,
	}
}

func outputShowList(formatter *OutputFormatter, shown []StoredSelect, dbPath string) error {
	w := formatter.Writer
	if len(shown) == 0 {
		fmt.Fprintf(w, "No compiled selects in %s\n", dbPath)
		return nil
	}
	for _, s := range shown {
		fmt.Fprintf(w, "%-24s %s  %d param(s)  %s\n", s.Name, s.Fingerprint[:12], len(s.Params), s.Location)
	}
	return nil
}

func outputShowOne(formatter *OutputFormatter, s StoredSelect) error {
	w := formatter.Writer
	fmt.Fprintf(w, "%s\n", s.Name)
	fmt.Fprintf(w, "  location:    %s\n", s.Location)
	fmt.Fprintf(w, "  sources:     %v\n", s.Sources)
	fmt.Fprintf(w, "  fingerprint: %s\n", s.Fingerprint)
	for i, p := range s.Params {
		fmt.Fprintf(w, "  param %d:     %s (%s)\n", i+1, p.Name, p.Type)
	}
	if len(s.SameAs) > 0 {
		fmt.Fprintf(w, "  same select as: %v\n", s.SameAs)
	}
	if s.Verified != nil {
		fmt.Fprintln(w, "  ✓ fingerprint verified")
	}
	fmt.Fprintf(w, "\n%s\n", s.IR)
	return nil
}
