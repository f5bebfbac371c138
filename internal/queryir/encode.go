package queryir

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/selectir/internal/ir"
)

// Encode converts cs into an IR object suitable for canonical JSON.
// The location is left out so identical clauses encode identically
// wherever they appear.
func Encode(cs *CompiledSelect) (ir.IRObject, error) {
	if cs == nil {
		return nil, fmt.Errorf("encode: nil compiled select")
	}

	tree, err := encodeTree(cs.Tree)
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}

	params := make(ir.IRArray, len(cs.Params))
	for i, p := range cs.Params {
		params[i] = ir.IRObject{
			"name": ir.IRString(p.Name),
			"type": ir.IRString(p.Type),
		}
	}

	take := make(ir.IRObject, len(cs.Take))
	for idx, proj := range cs.Take {
		enc, err := EncodeProjection(proj)
		if err != nil {
			return nil, fmt.Errorf("encode take[%d]: %w", idx, err)
		}
		take[strconv.Itoa(idx)] = enc
	}

	return ir.IRObject{
		"ir_version": ir.IRString(ir.IRVersion),
		"tree":       tree,
		"params":     params,
		"take":       take,
	}, nil
}

// Fingerprint returns the content hash of cs's encoding.
func Fingerprint(cs *CompiledSelect) (string, error) {
	obj, err := Encode(cs)
	if err != nil {
		return "", err
	}
	return ir.ContentHash(ir.DomainSelect, obj)
}

func encodeTree(t Tree) (ir.IRValue, error) {
	switch n := t.(type) {
	case TupleNode:
		children, err := encodeTrees(n.Children)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{"kind": ir.IRString("tuple"), "children": children}, nil
	case MapNode:
		pairs := make(ir.IRArray, len(n.Pairs))
		for i, p := range n.Pairs {
			key, err := encodeTree(p.Key)
			if err != nil {
				return nil, fmt.Errorf("pair[%d] key: %w", i, err)
			}
			value, err := encodeTree(p.Value)
			if err != nil {
				return nil, fmt.Errorf("pair[%d] value: %w", i, err)
			}
			pairs[i] = ir.IRObject{"key": key, "value": value}
		}
		obj := ir.IRObject{"kind": ir.IRString("map"), "pairs": pairs}
		if n.Base != nil {
			base, err := encodeTree(n.Base)
			if err != nil {
				return nil, fmt.Errorf("base: %w", err)
			}
			obj["base"] = base
		}
		return obj, nil
	case ListNode:
		children, err := encodeTrees(n.Children)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{"kind": ir.IRString("list"), "children": children}, nil
	case SourceRef:
		return ir.IRObject{"kind": ir.IRString("source"), "index": ir.IRInt(n.Index)}, nil
	case LeafExpr:
		expr, err := encodeExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{"kind": ir.IRString("leaf"), "expr": expr}, nil
	default:
		return nil, fmt.Errorf("unknown tree node %T", t)
	}
}

func encodeTrees(ts []Tree) (ir.IRArray, error) {
	out := make(ir.IRArray, len(ts))
	for i, t := range ts {
		enc, err := encodeTree(t)
		if err != nil {
			return nil, fmt.Errorf("child[%d]: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func encodeExpr(e Expr) (ir.IRValue, error) {
	switch x := e.(type) {
	case Lit:
		if _, isNull := x.Value.(ir.IRNull); isNull || x.Value == nil {
			return ir.IRObject{"kind": ir.IRString("nil")}, nil
		}
		return ir.IRObject{"kind": ir.IRString("lit"), "value": x.Value}, nil
	case Atom:
		return ir.IRObject{"kind": ir.IRString("atom"), "name": ir.IRString(x.Name)}, nil
	case ParamRef:
		return ir.IRObject{"kind": ir.IRString("param"), "index": ir.IRInt(x.Index)}, nil
	case FieldRef:
		return ir.IRObject{
			"kind":   ir.IRString("field"),
			"source": ir.IRInt(x.Source),
			"field":  ir.IRString(x.Field),
		}, nil
	case SourceExpr:
		return ir.IRObject{"kind": ir.IRString("source_value"), "source": ir.IRInt(x.Source)}, nil
	case Call:
		args, err := encodeExprs(x.Args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", x.Name, err)
		}
		return ir.IRObject{"kind": ir.IRString("call"), "name": ir.IRString(x.Name), "args": args}, nil
	case ListExpr:
		elems, err := encodeExprs(x.Elems)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{"kind": ir.IRString("list"), "elems": elems}, nil
	default:
		return nil, fmt.Errorf("unknown expression %T", e)
	}
}

func encodeExprs(es []Expr) (ir.IRArray, error) {
	out := make(ir.IRArray, len(es))
	for i, e := range es {
		enc, err := encodeExpr(e)
		if err != nil {
			return nil, fmt.Errorf("arg[%d]: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

// EncodeProjection encodes one Take entry.
func EncodeProjection(p Projection) (ir.IRObject, error) {
	switch proj := p.(type) {
	case Full:
		return ir.IRObject{"kind": ir.IRString("full")}, nil
	case Restricted:
		return ir.IRObject{"kind": ir.IRString("restricted"), "fields": EncodeFieldList(proj.Fields)}, nil
	case Deferred:
		return ir.IRObject{"kind": ir.IRString("deferred"), "name": ir.IRString(proj.Name)}, nil
	default:
		return nil, fmt.Errorf("unknown projection %T", p)
	}
}

// EncodeFieldList encodes fields as a nested array: plain fields are
// strings, nested fields are [name, [...]] pairs.
func EncodeFieldList(fl FieldList) ir.IRArray {
	out := make(ir.IRArray, len(fl))
	for i, f := range fl {
		if len(f.Nested) == 0 {
			out[i] = ir.IRString(f.Name)
			continue
		}
		out[i] = ir.IRArray{ir.IRString(f.Name), EncodeFieldList(f.Nested)}
	}
	return out
}

// SortedTakeIndices returns the source indices present in t in ascending
// order.
func SortedTakeIndices(t Take) []int {
	idx := make([]int, 0, len(t))
	for i := range t {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	return idx
}
