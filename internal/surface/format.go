package surface

import (
	"strconv"
	"strings"

	"github.com/roach88/selectir/internal/ir"
)

// Format renders n back to clause syntax. Binary operands that are
// themselves binary are parenthesized, so the result reparses to the same
// tree without relying on precedence.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

func format(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case Tuple:
		b.WriteByte('{')
		formatList(b, n.Elems)
		b.WriteByte('}')
	case Pair:
		b.WriteByte('{')
		formatList(b, []Node{n.Left, n.Right})
		b.WriteByte('}')
	case List:
		b.WriteByte('[')
		formatList(b, n.Elems)
		b.WriteByte(']')
	case Map:
		b.WriteString("%{")
		if n.Base != nil {
			format(b, n.Base)
			b.WriteString(" | ")
		}
		for i, kv := range n.Pairs {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, kv.Key)
			b.WriteString(" => ")
			format(b, kv.Value)
		}
		b.WriteByte('}')
	case Var:
		b.WriteString(n.Name)
	case Atom:
		b.WriteByte(':')
		b.WriteString(n.Name)
	case Interp:
		b.WriteByte('^')
		b.WriteString(n.Name)
	case Lit:
		formatLit(b, n.Value)
	case Call:
		b.WriteString(n.Name)
		b.WriteByte('(')
		formatList(b, n.Args)
		b.WriteByte(')')
	case Binary:
		formatOperand(b, n.Left)
		b.WriteByte(' ')
		b.WriteString(n.Op)
		b.WriteByte(' ')
		formatOperand(b, n.Right)
	case Unary:
		b.WriteString(n.Op)
		if n.Op == "not" {
			b.WriteByte(' ')
		}
		formatOperand(b, n.X)
	case Field:
		format(b, n.X)
		b.WriteByte('.')
		b.WriteString(n.Name)
	case nil:
		b.WriteString("<nil>")
	}
}

func formatList(b *strings.Builder, elems []Node) {
	for i, e := range elems {
		if i > 0 {
			b.WriteString(", ")
		}
		format(b, e)
	}
}

func formatOperand(b *strings.Builder, n Node) {
	switch n.(type) {
	case Binary, Unary:
		b.WriteByte('(')
		format(b, n)
		b.WriteByte(')')
	default:
		format(b, n)
	}
}

func formatLit(b *strings.Builder, v ir.IRValue) {
	switch v := v.(type) {
	case ir.IRString:
		b.WriteString(strconv.Quote(string(v)))
	case ir.IRInt:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case ir.IRFloat:
		s := strconv.FormatFloat(float64(v), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		b.WriteString(s)
	case ir.IRBool:
		b.WriteString(strconv.FormatBool(bool(v)))
	default:
		b.WriteString("nil")
	}
}
