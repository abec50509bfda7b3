package dsl

import (
	"strings"
	"unicode/utf8"
)

const eof = -1

// Tokenize splits src into tokens. It never fails: characters outside the
// language become ERROR tokens and an unterminated string becomes a single
// ERROR token at its opening quote. The result always ends with EOF.
func Tokenize(src string) []Token {
	l := &lexer{src: src, line: 1, col: 1}
	for {
		tok := l.next()
		l.tokens = append(l.tokens, tok)
		if tok.Kind == EOF {
			return l.tokens
		}
	}
}

type lexer struct {
	src    string
	off    int
	line   int
	col    int
	tokens []Token
}

func (l *lexer) pos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.off}
}

func (l *lexer) peek() rune {
	if l.off >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return r
}

func (l *lexer) peekNext() rune {
	if l.off >= len(l.src) {
		return eof
	}
	_, w := utf8.DecodeRuneInString(l.src[l.off:])
	if l.off+w >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off+w:])
	return r
}

func (l *lexer) advance() rune {
	if l.off >= len(l.src) {
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipTrivia() {
	for {
		switch r := l.peek(); {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			l.advance()
		case r == '#':
			for r := l.peek(); r != '\n' && r != eof; r = l.peek() {
				l.advance()
			}
		default:
			return
		}
	}
}

var punct = map[rune]TokenKind{
	'(': LPAREN,
	')': RPAREN,
	'{': LBRACE,
	'}': RBRACE,
	'[': LBRACKET,
	']': RBRACKET,
	':': COLON,
	',': COMMA,
	'=': EQUALS,
}

func (l *lexer) next() Token {
	l.skipTrivia()
	start := l.pos()
	r := l.peek()

	switch {
	case r == eof:
		return Token{Kind: EOF, Pos: start}
	case isIdentStart(r):
		return l.scanIdentifier(start)
	case isDigit(r), (r == '-' || r == '+') && isDigit(l.peekNext()):
		return l.scanNumber(start)
	case r == '"' || r == '\'':
		return l.scanString(start)
	}

	l.advance()
	if kind, ok := punct[r]; ok {
		return Token{Kind: kind, Text: string(r), Pos: start}
	}
	return Token{Kind: ERROR, Text: string(r), Pos: start}
}

func (l *lexer) scanIdentifier(start Position) Token {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	text := l.src[start.Offset:l.off]
	if text == "None" {
		return Token{Kind: NONE, Text: text, Pos: start}
	}
	return Token{Kind: IDENT, Text: text, Pos: start}
}

func (l *lexer) scanNumber(start Position) Token {
	if r := l.peek(); r == '-' || r == '+' {
		l.advance()
	}
	l.digits()
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		l.digits()
	}
	if r := l.peek(); r == 'e' || r == 'E' {
		// The exponent is only consumed when digits follow it.
		save := *l
		l.advance()
		if r := l.peek(); r == '-' || r == '+' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			*l = save
		} else {
			l.digits()
		}
	}
	return Token{Kind: NUMBER, Text: l.src[start.Offset:l.off], Pos: start}
}

func (l *lexer) digits() {
	for isDigit(l.peek()) {
		l.advance()
	}
}

// scanString reads a quoted string. A backslash is kept as-is together with
// the character after it, so \" does not end the string. Strings end at the
// line break if the closing quote is missing.
func (l *lexer) scanString(start Position) Token {
	quote := l.advance()
	var sb strings.Builder
	for {
		r := l.peek()
		switch r {
		case eof, '\n':
			return Token{Kind: ERROR, Text: string(quote) + sb.String(), Pos: start}
		case quote:
			l.advance()
			return Token{Kind: STRING, Text: sb.String(), Pos: start}
		case '\\':
			sb.WriteRune(l.advance())
			if next := l.peek(); next != eof && next != '\n' {
				sb.WriteRune(l.advance())
			}
		default:
			sb.WriteRune(l.advance())
		}
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
