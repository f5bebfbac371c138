package surface

import (
	"fmt"
	"strconv"

	"github.com/roach88/selectir/internal/ir"
)

// Error is a syntax error in clause text.
type Error struct {
	Pos     Pos
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Parse parses a single select clause expression.
func Parse(src string) (node Node, err error) {
	p := &parser{s: NewScanner(src)}

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			node, err = nil, perr
		}
	}()

	node = p.expression(1)
	p.match(EOF)
	return node, nil
}

// MustParse is Parse for clauses known to be valid, such as test fixtures.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

type parser struct {
	s *Scanner
}

func (p *parser) error(pos Pos, format string, args ...any) {
	panic(&Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) match(t TokenType) Token {
	tok := p.s.Scan()
	if tok.Type != t {
		p.unexpected(tok, t.String())
	}
	return tok
}

func (p *parser) unexpected(tok Token, want string) {
	if tok.Type == Illegal {
		p.error(tok.Pos, "%s %q", tok.Type, tok.Text)
	}
	p.error(tok.Pos, "unexpected %s, expected %s", tok.Type, want)
}

var binaryPrecedence = map[TokenType]int{
	Or:               1,
	And:              2,
	Equal:            3,
	NotEqual:         3,
	LessThan:         3,
	LessThanEqual:    3,
	GreaterThan:      3,
	GreaterThanEqual: 3,
	Add:              4,
	Subtract:         4,
	Multiply:         5,
	Divide:           5,
}

// expression parses left-associative binary operators of at least the
// given precedence.
func (p *parser) expression(precedence int) Node {
	lhs := p.unary()

	for {
		op := p.s.Peek()
		prec, ok := binaryPrecedence[op.Type]
		if !ok || prec < precedence {
			return lhs
		}
		p.s.Scan()

		rhs := p.expression(prec + 1)
		lhs = Binary{Op: op.Text, Left: lhs, Right: rhs, At: op.Pos}
	}
}

func (p *parser) unary() Node {
	tok := p.s.Peek()
	switch tok.Type {
	case Subtract, Not:
		p.s.Scan()
		x := p.unary()
		if tok.Type == Subtract {
			if lit, ok := x.(Lit); ok {
				switch v := lit.Value.(type) {
				case ir.IRInt:
					return Lit{Value: -v, At: tok.Pos}
				case ir.IRFloat:
					return Lit{Value: -v, At: tok.Pos}
				}
			}
		}
		return Unary{Op: tok.Text, X: x, At: tok.Pos}
	}
	return p.postfix(p.primary())
}

func (p *parser) postfix(n Node) Node {
	for p.s.Peek().Type == Dot {
		p.s.Scan()
		name := p.match(Ident)
		n = Field{X: n, Name: name.Text, At: n.Position()}
	}
	return n
}

func (p *parser) primary() Node {
	tok := p.s.Scan()

	switch tok.Type {
	case Integer:
		v, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			p.error(tok.Pos, "integer %s out of range", tok.Text)
		}
		return Lit{Value: ir.IRInt(v), At: tok.Pos}
	case Float:
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.error(tok.Pos, "invalid float %s", tok.Text)
		}
		return Lit{Value: ir.IRFloat(v), At: tok.Pos}
	case String:
		return Lit{Value: ir.IRString(tok.Text), At: tok.Pos}
	case True:
		return Lit{Value: ir.IRBool(true), At: tok.Pos}
	case False:
		return Lit{Value: ir.IRBool(false), At: tok.Pos}
	case Nil:
		return Lit{Value: ir.IRNull{}, At: tok.Pos}
	case AtomLit:
		return Atom{Name: tok.Text, At: tok.Pos}
	case Caret:
		name := p.match(Ident)
		return Interp{Name: name.Text, At: tok.Pos}
	case Ident:
		if p.s.Peek().Type == OpenParen {
			p.s.Scan()
			args := p.elements(CloseParen, false)
			return Call{Name: tok.Text, Args: args, At: tok.Pos}
		}
		return Var{Name: tok.Text, At: tok.Pos}
	case OpenParen:
		n := p.expression(1)
		p.match(CloseParen)
		return n
	case OpenBrace:
		elems := p.elements(CloseBrace, false)
		if len(elems) == 2 {
			return Pair{Left: elems[0], Right: elems[1], At: tok.Pos}
		}
		return Tuple{Elems: elems, At: tok.Pos}
	case OpenBracket:
		return List{Elems: p.elements(CloseBracket, true), At: tok.Pos}
	case OpenMap:
		return p.mapLiteral(tok.Pos)
	}

	p.unexpected(tok, "expression")
	return nil
}

// elements parses a comma separated sequence up to and including the
// closing token. With keywords set, `name: value` entries become Pairs
// keyed by the atom `:name`.
func (p *parser) elements(closing TokenType, keywords bool) []Node {
	elems := []Node{}
	if p.s.Peek().Type == closing {
		p.s.Scan()
		return elems
	}

	for {
		if tok := p.s.Peek(); keywords && tok.Type == Keyword {
			p.s.Scan()
			value := p.expression(1)
			elems = append(elems, Pair{Left: Atom{Name: tok.Text, At: tok.Pos}, Right: value, At: tok.Pos})
		} else {
			elems = append(elems, p.expression(1))
		}

		tok := p.s.Scan()
		switch tok.Type {
		case Comma:
			continue
		case closing:
			return elems
		}
		p.unexpected(tok, fmt.Sprintf("%s or %s", Comma, closing))
	}
}

// mapLiteral parses the remainder of `%{...}` after the opening token.
func (p *parser) mapLiteral(at Pos) Node {
	m := Map{Pairs: []KV{}, At: at}
	if p.s.Peek().Type == CloseBrace {
		p.s.Scan()
		return m
	}

	if p.s.Peek().Type != Keyword {
		first := p.expression(1)
		switch tok := p.s.Scan(); tok.Type {
		case Pipe:
			m.Base = first
		case Arrow:
			m.Pairs = append(m.Pairs, KV{Key: first, Value: p.expression(1)})
			if !p.mapSeparator() {
				return m
			}
		default:
			p.unexpected(tok, fmt.Sprintf("%s or %s", Arrow, Pipe))
		}
	}

	for {
		var kv KV
		if tok := p.s.Peek(); tok.Type == Keyword {
			p.s.Scan()
			kv = KV{Key: Atom{Name: tok.Text, At: tok.Pos}, Value: p.expression(1)}
		} else {
			key := p.expression(1)
			p.match(Arrow)
			kv = KV{Key: key, Value: p.expression(1)}
		}
		m.Pairs = append(m.Pairs, kv)

		if !p.mapSeparator() {
			return m
		}
	}
}

// mapSeparator consumes `,` (more pairs follow) or `}` (map ends).
func (p *parser) mapSeparator() bool {
	tok := p.s.Scan()
	switch tok.Type {
	case Comma:
		return true
	case CloseBrace:
		return false
	}
	p.unexpected(tok, fmt.Sprintf("%s or %s", Comma, CloseBrace))
	return false
}
