package queryir

import (
	"fmt"

	"github.com/roach88/selectir/internal/ir"
)

// Tree is a node of the compiled select tree.
type Tree interface {
	treeNode() // Marker method - seals interface to this package
}

// TupleNode is a fixed-size tuple of subtrees.
type TupleNode struct {
	Children []Tree
}

// MapNode builds a record. With Base set the record equals Base except for
// the given pairs.
type MapNode struct {
	Base  Tree // nil = plain map literal
	Pairs []MapPair
}

// MapPair is one key/value entry of a MapNode, in source order.
type MapPair struct {
	Key   Tree
	Value Tree
}

// ListNode is a list of subtrees.
type ListNode struct {
	Children []Tree
}

// SourceRef selects the whole row of bound source Index, restricted by the
// projection recorded for it in CompiledSelect.Take.
type SourceRef struct {
	Index int
}

// LeafExpr wraps an expression compiled by the generic escaper.
type LeafExpr struct {
	Expr Expr
}

func (TupleNode) treeNode() {}
func (MapNode) treeNode()   {}
func (ListNode) treeNode()  {}
func (SourceRef) treeNode() {}
func (LeafExpr) treeNode()  {}

// Expr is a leaf expression. The select compiler treats it as opaque.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Lit is an inlined literal.
type Lit struct {
	Value ir.IRValue
}

// Atom is a symbolic identifier, used for map keys.
type Atom struct {
	Name string
}

// ParamRef refers to CompiledSelect.Params[Index].
type ParamRef struct {
	Index int
}

// FieldRef reads one field of bound source Source.
type FieldRef struct {
	Source int
	Field  string
}

// SourceExpr is a bound source used as a value inside an expression.
type SourceExpr struct {
	Source int
}

// Call applies an operator or function. Operators use their symbol
// ("+", "==", "and", "not") as Name.
type Call struct {
	Name string
	Args []Expr
}

// ListExpr is a list literal inside an expression.
type ListExpr struct {
	Elems []Expr
}

func (Lit) exprNode()        {}
func (Atom) exprNode()       {}
func (ParamRef) exprNode()   {}
func (FieldRef) exprNode()   {}
func (SourceExpr) exprNode() {}
func (Call) exprNode()       {}
func (ListExpr) exprNode()   {}

// Projection says which fields of a bound source to materialize.
type Projection interface {
	projectionNode() // Marker method - seals interface to this package
}

// Full loads the entire source.
type Full struct{}

// Restricted loads only Fields, known at compile time.
type Restricted struct {
	Fields FieldList
}

// Deferred loads the fields named by the runtime value Name. The value is
// checked by fields.Validate when the query executes.
type Deferred struct {
	Name string
}

func (Full) projectionNode()       {}
func (Restricted) projectionNode() {}
func (Deferred) projectionNode()   {}

// FieldList is a nested field specification such as
// [:id, {:address, [:city]}].
type FieldList []FieldSpec

// FieldSpec is one field; Nested is non-empty when the field is a related
// source whose own fields are listed.
type FieldSpec struct {
	Name   string
	Nested FieldList
}

// Names returns the top-level field names in order.
func (fl FieldList) Names() []string {
	names := make([]string, len(fl))
	for i, f := range fl {
		names[i] = f.Name
	}
	return names
}

// Take maps a source index to its projection. A later write for the same
// index replaces the earlier one.
type Take map[int]Projection

// ParamTypeAny is the expected type of every select parameter.
const ParamTypeAny = "any"

// Param is one runtime value extracted from the clause.
type Param struct {
	Name string   // name of the interpolated value (`^name`)
	Type string   // always ParamTypeAny for select
	At   Location // where the interpolation appears
}

// Location points at source text. File may be empty for ad-hoc clauses.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// Advance returns the location of a position inside the text that starts
// at l. line and column are 1-based relative to that text.
func (l Location) Advance(line, column int) Location {
	if l.Line == 0 {
		return Location{File: l.File, Line: line, Column: column}
	}
	if line == 1 {
		return Location{File: l.File, Line: l.Line, Column: l.Column + column - 1}
	}
	return Location{File: l.File, Line: l.Line + line - 1, Column: column}
}

// CompiledSelect is the result of compiling one select clause. It is not
// modified after construction.
type CompiledSelect struct {
	Tree     Tree
	Params   []Param
	Take     Take
	Location Location
}
