package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/selectir/internal/binding"
	"github.com/roach88/selectir/internal/expr"
	"github.com/roach88/selectir/internal/queryir"
	"github.com/roach88/selectir/internal/surface"
)

// acc is threaded through every escape call by value. take is copied
// before each write, so sibling branches never observe each other's
// entries; params is only ever appended to through a clipped slice.
type acc struct {
	params []queryir.Param
	take   queryir.Take
}

func (a acc) project(idx int, p queryir.Projection) acc {
	take := maps.Clone(a.take)
	if take == nil {
		take = queryir.Take{}
	}
	take[idx] = p
	a.take = take
	return a
}

// escaper compiles one clause against one binding environment.
type escaper struct {
	env     *binding.Env
	base    queryir.Location
	clause  surface.Node
	logger  *slog.Logger
	metrics *Metrics
}

func (e *escaper) loc(n surface.Node) queryir.Location {
	p := n.Position()
	return e.base.Advance(p.Line, p.Column)
}

func (e *escaper) errorf(code string, n surface.Node, format string, args ...any) *CompileError {
	return &CompileError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Construct: surface.Format(n),
		Location:  e.loc(n),
	}
}

// shortcut handles a whole clause that is itself a field specification:
// `^fields` or a literal list such as [:id, {:address, [:city]}]. ok is
// false when the clause has any other shape.
func (e *escaper) shortcut(n surface.Node) (tree queryir.Tree, a acc, ok bool, err error) {
	switch n := n.(type) {
	case surface.Interp:
		e.metrics.shortcut("deferred")
		return queryir.SourceRef{Index: 0}, acc{}.project(0, queryir.Deferred{Name: n.Name}), true, nil

	case surface.List:
		if !isFieldList(n) {
			return nil, acc{}, false, nil
		}
		fl, err := e.literalFields(n)
		if err != nil {
			return nil, acc{}, true, err
		}
		e.metrics.shortcut("restricted")
		return queryir.SourceRef{Index: 0}, acc{}.project(0, queryir.Restricted{Fields: fl}), true, nil
	}
	return nil, acc{}, false, nil
}

// isFieldList reports whether n is a well-formed literal field list at
// every depth. Any other list is left to the general escaper.
func isFieldList(n surface.Node) bool {
	l, ok := n.(surface.List)
	if !ok {
		return false
	}
	for _, el := range l.Elems {
		switch el := el.(type) {
		case surface.Atom:
		case surface.Pair:
			if _, ok := el.Left.(surface.Atom); !ok || !isFieldList(el.Right) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// escape rewrites n into a select tree. Cases follow rule order: pair,
// tuple, map, list, take/2, project/2, bound variable, then the generic
// escaper for everything else. A whole-clause interpolation never gets
// here; shortcut takes it.
func (e *escaper) escape(n surface.Node, a acc) (queryir.Tree, acc, error) {
	switch n := n.(type) {
	case surface.Pair:
		return e.escape(surface.Tuple{Elems: []surface.Node{n.Left, n.Right}, At: n.At}, a)

	case surface.Tuple:
		children, a, err := e.escapeAll(n.Elems, a)
		if err != nil {
			return nil, a, err
		}
		return queryir.TupleNode{Children: children}, a, nil

	case surface.Map:
		var base queryir.Tree
		if n.Base != nil {
			var err error
			if base, a, err = e.escape(n.Base, a); err != nil {
				return nil, a, err
			}
		}
		pairs, a, err := e.escapePairs(n.Pairs, a)
		if err != nil {
			return nil, a, err
		}
		return queryir.MapNode{Base: base, Pairs: pairs}, a, nil

	case surface.List:
		children, a, err := e.escapeAll(n.Elems, a)
		if err != nil {
			return nil, a, err
		}
		return queryir.ListNode{Children: children}, a, nil

	case surface.Call:
		switch n.Name {
		case "take":
			e.deprecated(n)
			return e.project(surface.Call{Name: "project", Args: n.Args, At: n.At}, a)
		case "project":
			return e.project(n, a)
		}
		return e.fallback(n, a)

	case surface.Var:
		idx, ok := e.env.Index(n.Name)
		if !ok {
			return nil, a, e.errorf(ErrUnboundVariable, n, "unbound variable %q in select", n.Name)
		}
		return queryir.SourceRef{Index: idx}, a, nil

	default:
		return e.fallback(n, a)
	}
}

func (e *escaper) escapeAll(nodes []surface.Node, a acc) ([]queryir.Tree, acc, error) {
	out := make([]queryir.Tree, len(nodes))
	for i, n := range nodes {
		t, next, err := e.escape(n, a)
		if err != nil {
			return nil, a, err
		}
		out[i], a = t, next
	}
	return out, a, nil
}

// escapePairs keeps atom keys as they are and escapes every other key and
// every value through the full dispatch, preserving pair order.
func (e *escaper) escapePairs(kvs []surface.KV, a acc) ([]queryir.MapPair, acc, error) {
	out := make([]queryir.MapPair, len(kvs))
	for i, kv := range kvs {
		var (
			key queryir.Tree
			err error
		)
		if atom, ok := kv.Key.(surface.Atom); ok {
			key = queryir.LeafExpr{Expr: queryir.Atom{Name: atom.Name}}
		} else if key, a, err = e.escape(kv.Key, a); err != nil {
			return nil, a, err
		}

		value, next, err := e.escape(kv.Value, a)
		if err != nil {
			return nil, a, err
		}
		out[i], a = queryir.MapPair{Key: key, Value: value}, next
	}
	return out, a, nil
}

// project compiles project(var, fields). take/2 is rewritten to this
// before the call.
func (e *escaper) project(call surface.Call, a acc) (queryir.Tree, acc, error) {
	if len(call.Args) != 2 {
		return nil, a, e.errorf(ErrProjectionArity, call,
			"project expects 2 arguments (a bound variable and a field list), got %d", len(call.Args))
	}

	target, ok := call.Args[0].(surface.Var)
	if !ok {
		return nil, a, e.errorf(ErrProjectionTarget, call.Args[0], "project target must be a bound variable")
	}
	idx, ok := e.env.Index(target.Name)
	if !ok {
		return nil, a, e.errorf(ErrProjectionTarget, target,
			"project target must be a bound variable, %q is not bound", target.Name)
	}

	var proj queryir.Projection
	if in, ok := call.Args[1].(surface.Interp); ok {
		proj = queryir.Deferred{Name: in.Name}
	} else {
		fl, err := e.literalFields(call.Args[1])
		if err != nil {
			return nil, a, err
		}
		proj = queryir.Restricted{Fields: fl}
	}

	return queryir.SourceRef{Index: idx}, a.project(idx, proj), nil
}

// literalFields parses a compile-time field list: atoms and
// {atom, field list} pairs, nested to any depth.
func (e *escaper) literalFields(n surface.Node) (queryir.FieldList, error) {
	list, ok := n.(surface.List)
	if !ok {
		return nil, e.fieldsError(n)
	}

	out := make(queryir.FieldList, 0, len(list.Elems))
	for _, el := range list.Elems {
		switch el := el.(type) {
		case surface.Atom:
			out = append(out, queryir.FieldSpec{Name: el.Name})
		case surface.Pair:
			key, ok := el.Left.(surface.Atom)
			if !ok {
				return nil, e.fieldsError(el.Left)
			}
			nested, err := e.literalFields(el.Right)
			if err != nil {
				return nil, err
			}
			out = append(out, queryir.FieldSpec{Name: key.Name, Nested: nested})
		default:
			return nil, e.fieldsError(el)
		}
	}
	return out, nil
}

func (e *escaper) fieldsError(n surface.Node) error {
	if _, ok := n.(surface.Interp); ok {
		return e.errorf(ErrInterpolationPos, n,
			"interpolation is only supported as the whole field list of project/2 or the whole select")
	}
	return e.errorf(ErrMalformedFields, n,
		"malformed field specification, expected a list of atoms or {atom, fields} pairs")
}

// fallback hands n to the generic escaper and wraps the result as a leaf.
func (e *escaper) fallback(n surface.Node, a acc) (queryir.Tree, acc, error) {
	esc := expr.Escaper{Env: e.env, Base: e.base}
	x, params, err := esc.Escape(n, queryir.ParamTypeAny, a.params)
	if err != nil {
		return nil, a, e.exprError(err)
	}
	a.params = params
	return queryir.LeafExpr{Expr: x}, a, nil
}

func (e *escaper) exprError(err error) error {
	var xerr *expr.Error
	if !errors.As(err, &xerr) {
		return err
	}
	code := ErrUnsupportedExpr
	if xerr.Kind == expr.Unbound {
		code = ErrUnboundVariable
	}
	return &CompileError{
		Code:     code,
		Message:  xerr.Message,
		Location: e.base.Advance(xerr.Pos.Line, xerr.Pos.Column),
	}
}

// deprecated reports a take/2 call. The log write cannot fail compilation.
func (e *escaper) deprecated(call surface.Call) {
	e.metrics.deprecated("take/2")
	e.logger.Warn("take/2 in select is deprecated, use project/2 instead",
		"location", e.loc(call).String(),
		"call", surface.Format(call),
		"clause", surface.Format(e.clause),
	)
}
