package dsl

import "fmt"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	EOF TokenKind = iota
	ERROR
	IDENT
	STRING
	NUMBER
	NONE
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COLON
	COMMA
	EQUALS
)

var tokenNames = map[TokenKind]string{
	EOF:      "end of input",
	ERROR:    "invalid token",
	IDENT:    "identifier",
	STRING:   "string",
	NUMBER:   "number",
	NONE:     "None",
	LPAREN:   "'('",
	RPAREN:   "')'",
	LBRACE:   "'{'",
	RBRACE:   "'}'",
	LBRACKET: "'['",
	RBRACKET: "']'",
	COLON:    "':'",
	COMMA:    "','",
	EQUALS:   "'='",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Position is a location in the source text. Line and Column are 1-based
// and Column counts runes; Offset is the 0-based byte offset.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position points into a source text.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Token is a single lexical unit. For STRING tokens Text holds the content
// between the quotes; for ERROR tokens it holds the offending input.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return t.Kind.String()
	case IDENT, NUMBER:
		return fmt.Sprintf("%s %s", t.Kind, t.Text)
	case STRING:
		return fmt.Sprintf("string %q", t.Text)
	case ERROR:
		return fmt.Sprintf("%q", t.Text)
	}
	return t.Kind.String()
}
