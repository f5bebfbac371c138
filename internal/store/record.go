package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/selectir/internal/ir"
	"github.com/roach88/selectir/internal/query"
	"github.com/roach88/selectir/internal/queryir"
)

// ErrNotFound is returned when no select is stored under a name.
var ErrNotFound = errors.New("compiled select not found")

// Record is one stored compiled select.
type Record struct {
	Name            string
	Fingerprint     string
	IR              string // canonical JSON of queryir.Encode
	Sources         []string
	Location        string
	Params          []Param
	IRVersion       string
	CompilerVersion string
	Seq             int64
}

// Param is the stored form of a parameter list entry. Positions are
// implied by order.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewRecord builds the record for a query whose select is attached.
func NewRecord(name string, q *query.Query) (Record, error) {
	if name == "" {
		return Record{}, fmt.Errorf("new record: empty name")
	}
	if q == nil || q.Select == nil {
		return Record{}, fmt.Errorf("new record %q: query has no select", name)
	}

	obj, err := queryir.Encode(q.Select)
	if err != nil {
		return Record{}, fmt.Errorf("new record %q: %w", name, err)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return Record{}, fmt.Errorf("new record %q: marshal ir: %w", name, err)
	}
	fp, err := ir.ContentHash(ir.DomainSelect, obj)
	if err != nil {
		return Record{}, fmt.Errorf("new record %q: %w", name, err)
	}

	params := make([]Param, len(q.Select.Params))
	for i, p := range q.Select.Params {
		params[i] = Param{Name: p.Name, Type: p.Type}
	}

	sources := q.Sources
	if sources == nil {
		sources = []string{}
	}

	return Record{
		Name:            name,
		Fingerprint:     fp,
		IR:              string(data),
		Sources:         sources,
		Location:        q.Select.Location.String(),
		Params:          params,
		IRVersion:       ir.IRVersion,
		CompilerVersion: ir.CompilerVersion,
	}, nil
}

// Decode parses the stored IR back into an object.
func (r Record) Decode() (ir.IRObject, error) {
	v, err := ir.UnmarshalIRValue([]byte(r.IR))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", r.Name, err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("decode %q: ir is %T, not an object", r.Name, v)
	}
	return obj, nil
}

// Verify recomputes the fingerprint from the stored IR and compares it
// with the stored one.
func (r Record) Verify() error {
	obj, err := r.Decode()
	if err != nil {
		return err
	}
	fp, err := ir.ContentHash(ir.DomainSelect, obj)
	if err != nil {
		return fmt.Errorf("verify %q: %w", r.Name, err)
	}
	if fp != r.Fingerprint {
		return fmt.Errorf("verify %q: fingerprint mismatch: stored %s, computed %s", r.Name, r.Fingerprint, fp)
	}
	return nil
}

func marshalSources(sources []string) (string, error) {
	arr := make(ir.IRArray, len(sources))
	for i, s := range sources {
		arr[i] = ir.IRString(s)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}
	return string(data), nil
}

func unmarshalSources(data string) ([]string, error) {
	sources := []string{}
	if data == "" || data == "[]" {
		return sources, nil
	}
	if err := json.Unmarshal([]byte(data), &sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	return sources, nil
}
