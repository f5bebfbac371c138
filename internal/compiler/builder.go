package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/selectir/internal/binding"
	"github.com/roach88/selectir/internal/query"
	"github.com/roach88/selectir/internal/queryir"
	"github.com/roach88/selectir/internal/surface"
)

// Builder compiles select clauses. It holds no per-compilation state and
// is safe for concurrent use.
type Builder struct {
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the sink for deprecation warnings and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithMetrics records compilations in m.
func WithMetrics(m *Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// NewBuilder returns a Builder. Without WithLogger, log output is
// discarded.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Compile compiles clause against the given binding names. loc is where
// the clause text starts; positions inside the clause are reported
// relative to it.
func (b *Builder) Compile(bindings []string, clause surface.Node, loc queryir.Location) (cs *queryir.CompiledSelect, err error) {
	defer func() { b.metrics.compiled(err) }()

	env, err := binding.Resolve(bindings)
	if err != nil {
		return nil, &CompileError{Code: ErrInvalidBindings, Message: err.Error(), Location: loc}
	}

	e := &escaper{env: env, base: loc, clause: clause, logger: b.logger, metrics: b.metrics}

	tree, a, ok, err := e.shortcut(clause)
	if !ok {
		tree, a, err = e.escape(clause, acc{})
	}
	if err != nil {
		return nil, err
	}

	cs = &queryir.CompiledSelect{
		Tree:     tree,
		Params:   normalizeParams(a.params),
		Take:     normalizeTake(a.take),
		Location: loc,
	}
	if err := queryir.Validate(cs, env.Len()).Err(); err != nil {
		return nil, &CompileError{Code: ErrInternalInvariant, Message: err.Error(), Location: loc}
	}

	b.logger.Debug("compiled select",
		"location", loc.String(),
		"params", len(cs.Params),
		"projections", len(cs.Take),
	)
	return cs, nil
}

// CompileString parses src and compiles it.
func (b *Builder) CompileString(bindings []string, src string, loc queryir.Location) (*queryir.CompiledSelect, error) {
	node, err := surface.Parse(src)
	if err != nil {
		var perr *surface.Error
		if errors.As(err, &perr) {
			err = &CompileError{
				Code:     ErrParse,
				Message:  perr.Message,
				Location: loc.Advance(perr.Pos.Line, perr.Pos.Column),
			}
		}
		b.metrics.compiled(err)
		return nil, err
	}
	return b.Compile(bindings, node, loc)
}

// Build compiles clause and returns a step that attaches the result to a
// query when the surrounding plan is applied.
func (b *Builder) Build(bindings []string, clause surface.Node, loc queryir.Location) (*SelectStep, error) {
	cs, err := b.Compile(bindings, clause, loc)
	if err != nil {
		return nil, err
	}
	return &SelectStep{Select: cs}, nil
}

// SelectStep is a compiled select waiting to be attached to a query.
type SelectStep struct {
	Select *queryir.CompiledSelect
}

var _ query.Step = (*SelectStep)(nil)

func (s *SelectStep) Kind() string { return query.KindSelect }

// Apply attaches the compiled select to q.
func (s *SelectStep) Apply(q *query.Query) (*query.Query, error) {
	q, err := query.AttachSelect(q, s.Select)
	if err != nil {
		return nil, fmt.Errorf("select at %s: %w", s.Select.Location, err)
	}
	return q, nil
}

// normalizeParams returns a fresh non-nil slice owned by the result.
func normalizeParams(params []queryir.Param) []queryir.Param {
	out := make([]queryir.Param, len(params))
	copy(out, params)
	return out
}

// normalizeTake returns a fresh non-nil map owned by the result.
func normalizeTake(take queryir.Take) queryir.Take {
	out := make(queryir.Take, len(take))
	for k, v := range take {
		out[k] = v
	}
	return out
}
