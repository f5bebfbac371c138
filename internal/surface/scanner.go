package surface

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies a lexical token of the select sub-grammar.
type TokenType int

const (
	Illegal TokenType = iota
	EOF

	Ident
	Keyword // `name:` inside lists and maps
	AtomLit // `:name`
	Integer
	Float
	String

	Caret        // ^
	OpenBrace    // {
	CloseBrace   // }
	OpenBracket  // [
	CloseBracket // ]
	OpenMap      // %{
	OpenParen    // (
	CloseParen   // )
	Comma
	Pipe  // |
	Arrow // =>
	Dot

	Add
	Subtract
	Multiply
	Divide
	Equal    // ==
	NotEqual // !=
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual

	And
	Or
	Not
	True
	False
	Nil
)

var tokenNames = map[TokenType]string{
	Illegal: "illegal token", EOF: "end of input",
	Ident: "identifier", Keyword: "keyword", AtomLit: "atom",
	Integer: "integer", Float: "float", String: "string",
	Caret: "'^'", OpenBrace: "'{'", CloseBrace: "'}'",
	OpenBracket: "'['", CloseBracket: "']'", OpenMap: "'%{'",
	OpenParen: "'('", CloseParen: "')'", Comma: "','", Pipe: "'|'",
	Arrow: "'=>'", Dot: "'.'",
	Add: "'+'", Subtract: "'-'", Multiply: "'*'", Divide: "'/'",
	Equal: "'=='", NotEqual: "'!='", LessThan: "'<'", LessThanEqual: "'<='",
	GreaterThan: "'>'", GreaterThanEqual: "'>='",
	And: "'and'", Or: "'or'", Not: "'not'", True: "'true'", False: "'false'", Nil: "'nil'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown token"
}

// Token is one scanned token. Text holds the identifier, atom or keyword
// name without sigils, or the unquoted string contents.
type Token struct {
	Type TokenType
	Text string
	Pos  Pos
}

// Scanner tokenizes clause text with one token of lookahead.
type Scanner struct {
	src  string
	off  int
	line int
	col  int

	next Token
}

// NewScanner returns a scanner positioned before the first token.
func NewScanner(src string) *Scanner {
	s := &Scanner{src: src, line: 1, col: 1}
	s.Scan()
	return s
}

// Scan consumes and returns the current token.
func (s *Scanner) Scan() Token {
	tok := s.next
	s.next = s.scan()
	return tok
}

// Peek returns the current token without consuming it.
func (s *Scanner) Peek() Token {
	return s.next
}

func (s *Scanner) pos() Pos {
	return Pos{Offset: s.off, Line: s.line, Column: s.col}
}

func (s *Scanner) scan() Token {
	s.skipWhitespace()

	start := s.pos()
	r := s.read()

	switch {
	case r == 0 && s.off >= len(s.src):
		return Token{Type: EOF, Pos: start}
	case isIdentStart(r):
		return s.scanIdent(r, start)
	case unicode.IsDigit(r):
		return s.scanNumber(r, start)
	case r == '"':
		return s.scanString(start)
	}

	single := func(t TokenType) Token { return Token{Type: t, Text: string(r), Pos: start} }
	double := func(t TokenType, text string) Token {
		s.read()
		return Token{Type: t, Text: text, Pos: start}
	}

	switch r {
	case ':':
		if isIdentStart(s.peek()) {
			name := s.readIdent(s.read())
			return Token{Type: AtomLit, Text: name, Pos: start}
		}
	case '^':
		return single(Caret)
	case '{':
		return single(OpenBrace)
	case '}':
		return single(CloseBrace)
	case '[':
		return single(OpenBracket)
	case ']':
		return single(CloseBracket)
	case '%':
		if s.peek() == '{' {
			return double(OpenMap, "%{")
		}
	case '(':
		return single(OpenParen)
	case ')':
		return single(CloseParen)
	case ',':
		return single(Comma)
	case '|':
		return single(Pipe)
	case '.':
		return single(Dot)
	case '+':
		return single(Add)
	case '-':
		return single(Subtract)
	case '*':
		return single(Multiply)
	case '/':
		return single(Divide)
	case '=':
		switch s.peek() {
		case '>':
			return double(Arrow, "=>")
		case '=':
			return double(Equal, "==")
		}
	case '!':
		if s.peek() == '=' {
			return double(NotEqual, "!=")
		}
	case '<':
		if s.peek() == '=' {
			return double(LessThanEqual, "<=")
		}
		return single(LessThan)
	case '>':
		if s.peek() == '=' {
			return double(GreaterThanEqual, ">=")
		}
		return single(GreaterThan)
	}

	return Token{Type: Illegal, Text: string(r), Pos: start}
}

func (s *Scanner) scanIdent(first rune, start Pos) Token {
	name := s.readIdent(first)

	// `name:` is a keyword key unless it starts an atom-like `name::`.
	if s.peek() == ':' && s.peekAt(1) != ':' {
		s.read()
		return Token{Type: Keyword, Text: name, Pos: start}
	}

	switch name {
	case "and":
		return Token{Type: And, Text: name, Pos: start}
	case "or":
		return Token{Type: Or, Text: name, Pos: start}
	case "not":
		return Token{Type: Not, Text: name, Pos: start}
	case "true":
		return Token{Type: True, Text: name, Pos: start}
	case "false":
		return Token{Type: False, Text: name, Pos: start}
	case "nil":
		return Token{Type: Nil, Text: name, Pos: start}
	}
	return Token{Type: Ident, Text: name, Pos: start}
}

func (s *Scanner) readIdent(first rune) string {
	var b strings.Builder
	b.WriteRune(first)
	for {
		r := s.peek()
		if !isIdentStart(r) && !unicode.IsDigit(r) && r != '?' && r != '!' {
			break
		}
		// `!=` after an identifier is an operator, not part of the name.
		if r == '!' && s.peekAt(1) == '=' {
			break
		}
		b.WriteRune(s.read())
	}
	return b.String()
}

func (s *Scanner) scanNumber(first rune, start Pos) Token {
	var b strings.Builder
	b.WriteRune(first)
	typ := Integer

	for {
		r := s.peek()
		switch {
		case unicode.IsDigit(r) || r == '_':
			b.WriteRune(s.read())
			continue
		case r == '.' && typ == Integer && unicode.IsDigit(s.peekAt(1)):
			typ = Float
			b.WriteRune(s.read())
			continue
		case (r == 'e' || r == 'E') && typ == Float:
			b.WriteRune(s.read())
			if sign := s.peek(); sign == '+' || sign == '-' {
				b.WriteRune(s.read())
			}
			continue
		}
		break
	}

	return Token{Type: typ, Text: strings.ReplaceAll(b.String(), "_", ""), Pos: start}
}

func (s *Scanner) scanString(start Pos) Token {
	var b strings.Builder
	for {
		r := s.read()
		switch r {
		case 0:
			if s.off >= len(s.src) {
				return Token{Type: Illegal, Text: "unterminated string", Pos: start}
			}
		case '"':
			return Token{Type: String, Text: b.String(), Pos: start}
		case '\\':
			switch esc := s.read(); esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\':
				b.WriteRune(esc)
			default:
				return Token{Type: Illegal, Text: "invalid escape \\" + string(esc), Pos: start}
			}
			continue
		}
		b.WriteRune(r)
	}
}

func (s *Scanner) skipWhitespace() {
	for unicode.IsSpace(s.peek()) {
		s.read()
	}
}

// read consumes one rune. It returns 0 at end of input.
func (s *Scanner) read() rune {
	if s.off >= len(s.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(s.src[s.off:])
	s.off += size
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *Scanner) peek() rune {
	return s.peekAt(0)
}

// peekAt returns the rune n positions ahead without consuming anything.
func (s *Scanner) peekAt(n int) rune {
	off := s.off
	for ; n > 0; n-- {
		if off >= len(s.src) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(s.src[off:])
		off += size
	}
	if off >= len(s.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.src[off:])
	return r
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}
