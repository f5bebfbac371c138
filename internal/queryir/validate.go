package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists structural invariant violations of a compiled
// select. Downstream compilers assume a result with no violations.
type ValidationResult struct {
	Violations []string
}

// OK reports whether no violation was found.
func (r ValidationResult) OK() bool {
	return len(r.Violations) == 0
}

// Err returns nil when OK, otherwise an error listing every violation.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("invalid compiled select: %s", strings.Join(r.Violations, "; "))
}

// Validate checks the structural invariants of cs against a binding
// environment of the given number of sources:
//  1. every SourceRef, FieldRef, SourceExpr and Take key names a valid source
//  2. ParamRefs appear in depth-first order as 0, 1, ..., len(Params)-1
//  3. every parameter has type "any"
//  4. projections are well formed (non-empty field names, named deferrals)
//
// Validate is a pure function with no side effects.
func Validate(cs *CompiledSelect, sources int) ValidationResult {
	v := &validator{sources: sources, violations: []string{}}
	if cs == nil {
		v.addViolation("nil compiled select")
		return ValidationResult{Violations: v.violations}
	}

	v.validateTree(cs.Tree)

	if cs.Params == nil {
		v.addViolation("params is nil")
	}
	if v.nextParam != len(cs.Params) {
		v.addViolation("tree references %d params, params has %d", v.nextParam, len(cs.Params))
	}
	for i, p := range cs.Params {
		if p.Type != ParamTypeAny {
			v.addViolation("param %d (%s) has type %q, expected %q", i, p.Name, p.Type, ParamTypeAny)
		}
	}

	if cs.Take == nil {
		v.addViolation("take is nil")
	}
	for _, idx := range SortedTakeIndices(cs.Take) {
		v.checkSource("take key", idx)
		v.validateProjection(idx, cs.Take[idx])
	}

	return ValidationResult{Violations: v.violations}
}

// validator accumulates violations during traversal.
type validator struct {
	sources    int
	nextParam  int
	violations []string
}

func (v *validator) addViolation(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

func (v *validator) checkSource(what string, idx int) {
	if idx < 0 || idx >= v.sources {
		v.addViolation("%s %d out of range (sources: %d)", what, idx, v.sources)
	}
}

func (v *validator) validateTree(t Tree) {
	switch n := t.(type) {
	case nil:
		v.addViolation("nil tree node")
	case TupleNode:
		for _, c := range n.Children {
			v.validateTree(c)
		}
	case MapNode:
		if n.Base != nil {
			v.validateTree(n.Base)
		}
		for _, p := range n.Pairs {
			v.validateTree(p.Key)
			v.validateTree(p.Value)
		}
	case ListNode:
		for _, c := range n.Children {
			v.validateTree(c)
		}
	case SourceRef:
		v.checkSource("source ref", n.Index)
	case LeafExpr:
		v.validateExpr(n.Expr)
	default:
		v.addViolation("unknown tree node %T", t)
	}
}

func (v *validator) validateExpr(e Expr) {
	switch x := e.(type) {
	case nil:
		v.addViolation("nil expression")
	case Lit, Atom:
	case ParamRef:
		if x.Index != v.nextParam {
			v.addViolation("param ref %d out of order (expected %d)", x.Index, v.nextParam)
		}
		v.nextParam++
	case FieldRef:
		v.checkSource("field ref source", x.Source)
		if x.Field == "" {
			v.addViolation("field ref with empty field name")
		}
	case SourceExpr:
		v.checkSource("source value", x.Source)
	case Call:
		for _, a := range x.Args {
			v.validateExpr(a)
		}
	case ListExpr:
		for _, el := range x.Elems {
			v.validateExpr(el)
		}
	default:
		v.addViolation("unknown expression %T", e)
	}
}

func (v *validator) validateProjection(idx int, p Projection) {
	switch proj := p.(type) {
	case Full:
	case Restricted:
		v.validateFields(idx, proj.Fields)
	case Deferred:
		if proj.Name == "" {
			v.addViolation("take[%d]: deferred projection without a name", idx)
		}
	default:
		v.addViolation("take[%d]: unknown projection %T", idx, p)
	}
}

func (v *validator) validateFields(idx int, fl FieldList) {
	for _, f := range fl {
		if f.Name == "" {
			v.addViolation("take[%d]: empty field name", idx)
		}
		v.validateFields(idx, f.Nested)
	}
}
