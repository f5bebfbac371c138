// Package fields validates field-projection specifications whose shape is
// only known when a query runs.
//
// A specification is well formed when it is a sequence whose elements are
// either a field name or a (field name, nested specification) pair:
//
//	["id", "name"]
//	["id", ["address", ["city"]]]
//	["id", {"address": ["city"]}]
//
// Validate is the guard stored for every Deferred projection; Parse returns
// the same value normalized to a queryir.FieldList.
package fields

import (
	"fmt"

	"github.com/roach88/selectir/internal/ir"
	"github.com/roach88/selectir/internal/queryir"
)

// MaxDepth bounds nesting so validation terminates on self-referencing
// inputs.
const MaxDepth = 32

// Error reports an ill-formed field specification. Received is the value
// that was passed in.
type Error struct {
	Received any
	Reason   string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("expected a list of fields, or {field, nested fields} pairs, got: %#v", e.Received)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Validate returns v unchanged when it is a well-formed field
// specification, otherwise an *Error naming v.
func Validate(v any) (any, error) {
	if _, err := Parse(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Parse converts a well-formed field specification into a FieldList.
func Parse(v any) (queryir.FieldList, error) {
	fl, reason := parseList(v, 0)
	if reason != "" {
		return nil, &Error{Received: v, Reason: reason}
	}
	return fl, nil
}

func parseList(v any, depth int) (queryir.FieldList, string) {
	if depth > MaxDepth {
		return nil, fmt.Sprintf("nested deeper than %d levels", MaxDepth)
	}

	var elems []any
	switch seq := v.(type) {
	case queryir.FieldList:
		elems = make([]any, len(seq))
		for i, f := range seq {
			elems[i] = f
		}
	case []any:
		elems = seq
	case []string:
		elems = make([]any, len(seq))
		for i, s := range seq {
			elems[i] = s
		}
	case ir.IRArray:
		elems = make([]any, len(seq))
		for i, e := range seq {
			elems[i] = e
		}
	default:
		return nil, "not a list"
	}

	out := make(queryir.FieldList, 0, len(elems))
	for i, elem := range elems {
		spec, reason := parseElem(elem, depth)
		if reason != "" {
			return nil, fmt.Sprintf("element %d: %s", i, reason)
		}
		out = append(out, spec)
	}
	return out, ""
}

func parseElem(v any, depth int) (queryir.FieldSpec, string) {
	if name, ok := identifier(v); ok {
		return queryir.FieldSpec{Name: name}, ""
	}

	var (
		key    any
		nested any
	)
	switch e := v.(type) {
	case queryir.FieldSpec:
		if e.Nested == nil {
			if e.Name == "" {
				return queryir.FieldSpec{}, "empty field name"
			}
			return queryir.FieldSpec{Name: e.Name}, ""
		}
		key, nested = e.Name, e.Nested
	case []any:
		if len(e) != 2 {
			return queryir.FieldSpec{}, "pair must have exactly 2 elements"
		}
		key, nested = e[0], e[1]
	case ir.IRArray:
		if len(e) != 2 {
			return queryir.FieldSpec{}, "pair must have exactly 2 elements"
		}
		key, nested = e[0], e[1]
	case map[string]any:
		if len(e) != 1 {
			return queryir.FieldSpec{}, "map pair must have exactly 1 key"
		}
		for k, val := range e {
			key, nested = k, val
		}
	case ir.IRObject:
		if len(e) != 1 {
			return queryir.FieldSpec{}, "map pair must have exactly 1 key"
		}
		for k, val := range e {
			key, nested = k, val
		}
	default:
		return queryir.FieldSpec{}, fmt.Sprintf("unexpected %T", v)
	}

	name, ok := identifier(key)
	if !ok {
		return queryir.FieldSpec{}, fmt.Sprintf("pair key %#v is not a field name", key)
	}
	fl, reason := parseList(nested, depth+1)
	if reason != "" {
		return queryir.FieldSpec{}, name + ": " + reason
	}
	return queryir.FieldSpec{Name: name, Nested: fl}, ""
}

func identifier(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, s != ""
	case ir.IRString:
		return string(s), s != ""
	}
	return "", false
}
