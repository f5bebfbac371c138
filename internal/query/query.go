// Package query holds the query object a compiled select is attached to,
// and the ordered plan of clause steps that builds it.
package query

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/selectir/internal/queryir"
)

var (
	// ErrDuplicateSelect is returned when a query already holds a select.
	ErrDuplicateSelect = errors.New("only one select expression is allowed in query")

	// ErrMultipleSelects is returned when a plan gets a second select step.
	ErrMultipleSelects = errors.New("only one select expression is allowed in query plan")
)

// KindSelect is the Kind of select steps.
const KindSelect = "select"

// Query is the object clauses are compiled into. Sources lists the table
// for each bound source index.
type Query struct {
	ID      string
	Sources []string
	Select  *queryir.CompiledSelect
}

// New creates a query over sources with a fresh UUIDv7 ID.
func New(sources ...string) *Query {
	return &Query{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Sources: sources,
	}
}

// AttachSelect sets q's select to cs. It fails if q already has one and
// reads or writes nothing else.
func AttachSelect(q *Query, cs *queryir.CompiledSelect) (*Query, error) {
	if q == nil {
		return nil, fmt.Errorf("attach select: nil query")
	}
	if q.Select != nil {
		return nil, fmt.Errorf("query %s: %w", q.ID, ErrDuplicateSelect)
	}
	q.Select = cs
	return q, nil
}

// Step is one compiled clause waiting to be applied to a query.
type Step interface {
	Kind() string
	Apply(q *Query) (*Query, error)
}

// Plan is an ordered list of steps.
type Plan struct {
	steps []Step
}

// Add appends step. A plan may contain at most one select step.
func (p *Plan) Add(step Step) error {
	if step.Kind() == KindSelect {
		for _, s := range p.steps {
			if s.Kind() == KindSelect {
				return ErrMultipleSelects
			}
		}
	}
	p.steps = append(p.steps, step)
	return nil
}

// Steps returns the steps in order.
func (p *Plan) Steps() []Step {
	return p.steps
}

// Apply runs every step against q in order and returns the final query.
func (p *Plan) Apply(q *Query) (*Query, error) {
	for i, s := range p.steps {
		next, err := s.Apply(q)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, s.Kind(), err)
		}
		q = next
	}
	return q, nil
}
