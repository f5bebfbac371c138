package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/selectir/internal/query"
	"github.com/roach88/selectir/internal/queryir"
)

// QueryDef is a named query read from CUE:
//
//	query: "users-with-city": {
//	    from:   ["users"]
//	    bind:   ["u"]
//	    select: "project(u, [:id, {:address, [:city]}])"
//	}
type QueryDef struct {
	Name   string
	From   []string // table per bound source
	Bind   []string // binding names; empty = one implicit source
	Select string   // select clause text

	Location       queryir.Location // the query struct
	SelectLocation queryir.Location // first character of the clause text
}

// CompileQuery parses a CUE value into a QueryDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the query struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: "q": { ... }`)
//	def, err := CompileQuery(v.LookupPath(cue.ParsePath(`query."q"`)))
func CompileQuery(v cue.Value) (*QueryDef, error) {
	if err := v.Err(); err != nil {
		return nil, FormatCUEError(err)
	}

	def := &QueryDef{Location: locationOf(v.Pos())}

	// The name may be quoted in CUE, extract it
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	def.From, err = parseStringList(v, "from", true)
	if err != nil {
		return nil, err
	}

	def.Bind, err = parseStringList(v, "bind", false)
	if err != nil {
		return nil, err
	}

	selectVal := v.LookupPath(cue.ParsePath("select"))
	if !selectVal.Exists() {
		return nil, &CompileError{
			Code:     ErrInvalidQueryDef,
			Message:  "select: select clause is required",
			Location: def.Location,
		}
	}
	def.Select, err = selectVal.String()
	if err != nil {
		return nil, &CompileError{
			Code:     ErrInvalidQueryDef,
			Message:  "select: must be a string holding the clause text",
			Location: locationOf(selectVal.Pos()),
		}
	}

	// Pos points at the opening quote.
	def.SelectLocation = locationOf(selectVal.Pos())
	if def.SelectLocation.Line > 0 {
		def.SelectLocation.Column++
	}

	return def, nil
}

// parseStringList reads field as a list of strings.
func parseStringList(v cue.Value, field string, required bool) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		if required {
			return nil, &CompileError{
				Code:     ErrInvalidQueryDef,
				Message:  fmt.Sprintf("%s: field is required", field),
				Location: locationOf(v.Pos()),
			}
		}
		return nil, nil
	}

	iter, err := val.List()
	if err != nil {
		return nil, &CompileError{
			Code:     ErrInvalidQueryDef,
			Message:  fmt.Sprintf("%s: must be a list of strings", field),
			Location: locationOf(val.Pos()),
		}
	}

	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Code:     ErrInvalidQueryDef,
				Message:  fmt.Sprintf("%s[%d]: must be a string", field, len(out)),
				Location: locationOf(iter.Value().Pos()),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// BuildQuery validates def, compiles its select clause and applies it to a
// new query over def.From.
func (b *Builder) BuildQuery(def *QueryDef) (*query.Query, error) {
	if errs := ValidateQuery(def); len(errs) > 0 {
		return nil, &CompileError{
			Code:     ErrInvalidQueryDef,
			Message:  errs[0].Error(),
			Location: def.Location,
		}
	}

	cs, err := b.CompileString(def.Bind, def.Select, def.SelectLocation)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", def.Name, err)
	}

	var plan query.Plan
	if err := plan.Add(&SelectStep{Select: cs}); err != nil {
		return nil, err
	}
	return plan.Apply(query.New(def.From...))
}
