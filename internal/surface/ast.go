// Package surface holds the as-written form of a select clause: the AST,
// the scanner and parser for the select sub-grammar, and a renderer used in
// diagnostics.
//
// Node is sealed. The compiler matches on the concrete variants with an
// exhaustive type switch, so adding a variant here means adding a case
// there.
package surface

import (
	"fmt"

	"github.com/roach88/selectir/internal/ir"
)

// Pos is a location inside the clause text. Line and Column are 1-based,
// Offset is the 0-based byte offset.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is a surface syntax node.
type Node interface {
	Position() Pos
	surfaceNode() // Marker method - seals interface to this package
}

// Tuple is `{a, b, c}`. Two-element tuples parse as Pair.
type Tuple struct {
	Elems []Node
	At    Pos
}

// Pair is the fixed two-element tuple `{a, b}`. Keyword list entries
// (`name: value`) also parse as Pair with an Atom on the left.
type Pair struct {
	Left  Node
	Right Node
	At    Pos
}

// List is `[a, b, ...]`.
type List struct {
	Elems []Node
	At    Pos
}

// Map is `%{k => v}` or, with Base set, `%{base | k => v}`.
type Map struct {
	Base  Node // nil without the base-and-override form
	Pairs []KV
	At    Pos
}

// KV is one entry of a Map literal.
type KV struct {
	Key   Node
	Value Node
}

// Var references a name, normally a bound source.
type Var struct {
	Name string
	At   Pos
}

// Atom is a symbolic identifier `:name`.
type Atom struct {
	Name string
	At   Pos
}

// Interp is `^name`, a value computed outside the clause and spliced in at
// execution time.
type Interp struct {
	Name string
	At   Pos
}

// Lit is a literal number, string, boolean or nil.
type Lit struct {
	Value ir.IRValue
	At    Pos
}

// Call is `name(args...)`.
type Call struct {
	Name string
	Args []Node
	At   Pos
}

// Binary is an infix operator application.
type Binary struct {
	Op    string
	Left  Node
	Right Node
	At    Pos
}

// Unary is `-x` or `not x`.
type Unary struct {
	Op string
	X  Node
	At Pos
}

// Field is `x.name`.
type Field struct {
	X    Node
	Name string
	At   Pos
}

func (n Tuple) Position() Pos  { return n.At }
func (n Pair) Position() Pos   { return n.At }
func (n List) Position() Pos   { return n.At }
func (n Map) Position() Pos    { return n.At }
func (n Var) Position() Pos    { return n.At }
func (n Atom) Position() Pos   { return n.At }
func (n Interp) Position() Pos { return n.At }
func (n Lit) Position() Pos    { return n.At }
func (n Call) Position() Pos   { return n.At }
func (n Binary) Position() Pos { return n.At }
func (n Unary) Position() Pos  { return n.At }
func (n Field) Position() Pos  { return n.At }

func (Tuple) surfaceNode()  {}
func (Pair) surfaceNode()   {}
func (List) surfaceNode()   {}
func (Map) surfaceNode()    {}
func (Var) surfaceNode()    {}
func (Atom) surfaceNode()   {}
func (Interp) surfaceNode() {}
func (Lit) surfaceNode()    {}
func (Call) surfaceNode()   {}
func (Binary) surfaceNode() {}
func (Unary) surfaceNode()  {}
func (Field) surfaceNode()  {}
