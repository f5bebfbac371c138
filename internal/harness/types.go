package harness

import "github.com/roach88/selectir/internal/ir"

// Result is the outcome of running a case.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// IR is the encoded compiled select. Nil when compilation failed.
	IR          ir.IRObject `json:"ir,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Params      []string    `json:"params,omitempty"`

	// Projections maps source index to projection kind.
	Projections map[int]string `json:"projections,omitempty"`

	// Shortcut is the whole-clause shortcut kind, or "none".
	Shortcut string `json:"shortcut,omitempty"`

	// Deprecated counts deprecated constructs reported while compiling.
	Deprecated int `json:"deprecated"`

	// Compile failure, when there was one.
	ErrorCode      string `json:"error_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ErrorConstruct string `json:"error_construct,omitempty"`
	ErrorLocation  string `json:"error_location,omitempty"`

	// SQL rendering, attempted only after a successful compile.
	SQL      string `json:"sql,omitempty"`
	Args     []any  `json:"args,omitempty"`
	SQLError string `json:"sql_error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Errors:      []string{},
		Projections: make(map[int]string),
		Shortcut:    KindNone,
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Compiled reports whether compilation succeeded.
func (r *Result) Compiled() bool {
	return r.IR != nil
}
