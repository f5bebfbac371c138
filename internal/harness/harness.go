package harness

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/selectir/internal/compiler"
	"github.com/roach88/selectir/internal/query"
	"github.com/roach88/selectir/internal/queryir"
	"github.com/roach88/selectir/internal/querysql"
)

// Harness runs cases. Each run gets its own builder and metrics registry,
// so cases never observe each other's counters.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes compiler logs (deprecation warnings) to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes c with a default harness.
func Run(c *Case) (*Result, error) {
	return New().Run(c)
}

// Run compiles the case's clause, renders it, and evaluates assertions.
//
// A compile or render failure is recorded in the result, since cases may
// expect one. The returned error is reserved for failures of the harness
// itself.
func (h *Harness) Run(c *Case) (*Result, error) {
	if c == nil {
		return nil, fmt.Errorf("run: nil case")
	}

	result := NewResult()
	loc := queryir.Location{File: c.Name, Line: 1, Column: 1}

	reg := prometheus.NewRegistry()
	b := compiler.NewBuilder(
		compiler.WithLogger(h.logger),
		compiler.WithMetrics(compiler.NewMetrics(reg)),
	)

	cs, err := b.CompileString(c.Bindings, c.Select, loc)
	if err != nil {
		if err := recordCompileError(result, err); err != nil {
			return nil, err
		}
	} else {
		if err := recordCompiled(result, cs); err != nil {
			return nil, err
		}
		if err := checkIdempotent(c, result); err != nil {
			result.AddError(err.Error())
		}
		if err := render(c, cs, result); err != nil {
			return nil, err
		}
	}

	if err := readMetrics(reg, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(c, result) {
		result.AddError(msg)
	}
	return result, nil
}

func recordCompileError(result *Result, err error) error {
	var cerr *compiler.CompileError
	if !errors.As(err, &cerr) {
		return fmt.Errorf("compile: %w", err)
	}
	result.ErrorCode = cerr.Code
	result.ErrorMessage = cerr.Message
	result.ErrorConstruct = cerr.Construct
	if cerr.Location.Line > 0 {
		result.ErrorLocation = cerr.Location.String()
	}
	return nil
}

func recordCompiled(result *Result, cs *queryir.CompiledSelect) error {
	obj, err := queryir.Encode(cs)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fp, err := queryir.Fingerprint(cs)
	if err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}
	result.IR = obj
	result.Fingerprint = fp

	result.Params = make([]string, len(cs.Params))
	for i, p := range cs.Params {
		result.Params[i] = p.Name
	}
	for idx, proj := range cs.Take {
		result.Projections[idx] = projectionKind(proj)
	}
	return nil
}

// checkIdempotent compiles the clause again with a fresh builder and
// compares fingerprints.
func checkIdempotent(c *Case, result *Result) error {
	fp, err := fingerprintOf(c, c.Select)
	if err != nil {
		return fmt.Errorf("recompile: %w", err)
	}
	if fp != result.Fingerprint {
		return fmt.Errorf("recompile: fingerprint %s differs from %s", fp, result.Fingerprint)
	}
	return nil
}

func fingerprintOf(c *Case, src string) (string, error) {
	cs, err := compiler.NewBuilder().CompileString(c.Bindings, src, queryir.Location{File: c.Name, Line: 1, Column: 1})
	if err != nil {
		return "", err
	}
	return queryir.Fingerprint(cs)
}

// render attaches cs to a query through a plan and renders it as SQL.
func render(c *Case, cs *queryir.CompiledSelect, result *Result) error {
	var plan query.Plan
	if err := plan.Add(&compiler.SelectStep{Select: cs}); err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	q, err := plan.Apply(query.New(c.SourceTables()...))
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	sql, args, err := querysql.NewSQLCompiler(c.Values).Compile(q)
	if err != nil {
		result.SQLError = err.Error()
		return nil
	}
	result.SQL = sql
	result.Args = args
	if result.Args == nil {
		result.Args = []any{}
	}
	return nil
}

// readMetrics copies the deprecation and shortcut counters into result.
func readMetrics(reg *prometheus.Registry, result *Result) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		switch mf.GetName() {
		case "selectir_deprecated_syntax_total":
			for _, m := range mf.GetMetric() {
				result.Deprecated += int(m.GetCounter().GetValue())
			}
		case "selectir_shortcuts_total":
			for _, m := range mf.GetMetric() {
				if m.GetCounter().GetValue() > 0 {
					result.Shortcut = labelValue(m, "kind")
				}
			}
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func projectionKind(p queryir.Projection) string {
	switch p.(type) {
	case queryir.Full:
		return KindFull
	case queryir.Restricted:
		return KindRestricted
	case queryir.Deferred:
		return KindDeferred
	default:
		return KindNone
	}
}
