// Package expr compiles general surface expressions (literals, operators,
// function calls, field access) into queryir leaf expressions, extracting
// interpolated values into the parameter list.
package expr

import (
	"fmt"
	"slices"

	"github.com/roach88/selectir/internal/binding"
	"github.com/roach88/selectir/internal/queryir"
	"github.com/roach88/selectir/internal/surface"
)

// ErrorKind classifies escaping failures.
type ErrorKind int

const (
	Unsupported ErrorKind = iota
	Unbound
)

// Error is a failure to escape an expression.
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     surface.Pos
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// reserved calls are only meaningful in select position.
var reserved = map[string]bool{
	"project": true,
	"take":    true,
}

// Escaper compiles expressions against one binding environment. Base is
// the location of the clause text and anchors parameter locations.
type Escaper struct {
	Env  *binding.Env
	Base queryir.Location
}

// Escape compiles n, expecting a value of type typ. Interpolations are
// appended to params in left-to-right order; the caller's slice is never
// written through.
func (e Escaper) Escape(n surface.Node, typ string, params []queryir.Param) (queryir.Expr, []queryir.Param, error) {
	switch n := n.(type) {
	case surface.Lit:
		return queryir.Lit{Value: n.Value}, params, nil

	case surface.Atom:
		return queryir.Atom{Name: n.Name}, params, nil

	case surface.Interp:
		p := queryir.Param{
			Name: n.Name,
			Type: typ,
			At:   e.Base.Advance(n.At.Line, n.At.Column),
		}
		return queryir.ParamRef{Index: len(params)}, append(slices.Clip(params), p), nil

	case surface.Var:
		idx, ok := e.Env.Index(n.Name)
		if !ok {
			return nil, nil, &Error{Kind: Unbound, Message: fmt.Sprintf("unbound variable %q", n.Name), Pos: n.At}
		}
		return queryir.SourceExpr{Source: idx}, params, nil

	case surface.Field:
		v, ok := n.X.(surface.Var)
		if !ok {
			return nil, nil, &Error{
				Message: fmt.Sprintf("field access %s is only supported on a bound variable", surface.Format(n)),
				Pos:     n.At,
			}
		}
		idx, ok := e.Env.Index(v.Name)
		if !ok {
			return nil, nil, &Error{Kind: Unbound, Message: fmt.Sprintf("unbound variable %q", v.Name), Pos: v.At}
		}
		return queryir.FieldRef{Source: idx, Field: n.Name}, params, nil

	case surface.Binary:
		args, params, err := e.escapeAll([]surface.Node{n.Left, n.Right}, typ, params)
		if err != nil {
			return nil, nil, err
		}
		return queryir.Call{Name: n.Op, Args: args}, params, nil

	case surface.Unary:
		args, params, err := e.escapeAll([]surface.Node{n.X}, typ, params)
		if err != nil {
			return nil, nil, err
		}
		return queryir.Call{Name: n.Op, Args: args}, params, nil

	case surface.Call:
		if reserved[n.Name] {
			return nil, nil, &Error{
				Message: fmt.Sprintf("%s/%d is only allowed in select position, got %s", n.Name, len(n.Args), surface.Format(n)),
				Pos:     n.At,
			}
		}
		args, params, err := e.escapeAll(n.Args, typ, params)
		if err != nil {
			return nil, nil, err
		}
		return queryir.Call{Name: n.Name, Args: args}, params, nil

	case surface.List:
		elems, params, err := e.escapeAll(n.Elems, typ, params)
		if err != nil {
			return nil, nil, err
		}
		return queryir.ListExpr{Elems: elems}, params, nil

	case surface.Tuple, surface.Pair, surface.Map:
		return nil, nil, &Error{
			Message: fmt.Sprintf("unsupported expression %s inside an operator or call", surface.Format(n)),
			Pos:     n.Position(),
		}

	default:
		return nil, nil, &Error{Message: fmt.Sprintf("unknown surface node %T", n)}
	}
}

func (e Escaper) escapeAll(nodes []surface.Node, typ string, params []queryir.Param) ([]queryir.Expr, []queryir.Param, error) {
	out := make([]queryir.Expr, len(nodes))
	for i, n := range nodes {
		x, next, err := e.Escape(n, typ, params)
		if err != nil {
			return nil, nil, err
		}
		out[i], params = x, next
	}
	return out, params, nil
}
