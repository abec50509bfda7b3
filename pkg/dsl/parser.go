package dsl

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseString tokenizes and parses src.
func ParseString(src string) (*Document, []Diagnostic) {
	return Parse(Tokenize(src))
}

// Parse builds a Document from tokens. It never fails: syntax problems are
// reported as diagnostics and parsing resumes at the next '}' of the current
// nesting level or at the next top-level block. The returned document is
// never nil and holds every block whose header could be read.
func Parse(tokens []Token) (*Document, []Diagnostic) {
	if n := len(tokens); n == 0 || tokens[n-1].Kind != EOF {
		end := Position{Line: 1, Column: 1}
		if n > 0 {
			end = tokens[n-1].Pos
		}
		tokens = append(tokens[:n:n], Token{Kind: EOF, Pos: end})
	}
	p := &parser{tokens: tokens}
	doc := p.document()
	return doc, p.diags
}

type parser struct {
	tokens []Token
	pos    int
	diags  []Diagnostic
}

type syntaxError struct {
	pos Position
	msg string
}

func (e *syntaxError) Error() string {
	return e.pos.String() + ": " + e.msg
}

// =============================================================================
// Token Access
// =============================================================================

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) Token {
	if i := p.pos + n; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

func (p *parser) at(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *parser) expect(kind TokenKind, what string) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.unexpected(tok, what)
	}
	return p.next(), nil
}

// atBlockStart reports whether the next tokens open a top-level block.
func (p *parser) atBlockStart() bool {
	tok := p.peek()
	if tok.Kind != IDENT {
		return false
	}
	next := p.peekAt(1).Kind
	switch {
	case strings.EqualFold(tok.Text, "network"):
		return next == IDENT
	case strings.EqualFold(tok.Text, "research"):
		return next == IDENT || next == LBRACE
	}
	return false
}

func isBlockKeyword(s string) bool {
	return strings.EqualFold(s, "network") || strings.EqualFold(s, "research")
}

// =============================================================================
// Diagnostics & Recovery
// =============================================================================

func describe(tok Token) string {
	if tok.Kind == ERROR {
		if strings.HasPrefix(tok.Text, `"`) || strings.HasPrefix(tok.Text, "'") {
			return "unterminated string literal"
		}
		return fmt.Sprintf("unexpected character %q", tok.Text)
	}
	return tok.String()
}

func (p *parser) unexpected(tok Token, what string) error {
	return &syntaxError{pos: tok.Pos, msg: fmt.Sprintf("expected %s, found %s", what, describe(tok))}
}

func (p *parser) unclosed(tok Token, what string) error {
	return &syntaxError{pos: tok.Pos, msg: fmt.Sprintf("expected '}' to close %s, found %s", what, describe(tok))}
}

func (p *parser) report(err error) {
	if se, ok := err.(*syntaxError); ok {
		p.diags = append(p.diags, SyntaxError(se.pos, "%s", se.msg))
		return
	}
	p.diags = append(p.diags, SyntaxError(p.peek().Pos, "%s", err))
}

func (p *parser) errorAt(pos Position, format string, args ...any) {
	p.diags = append(p.diags, SyntaxError(pos, format, args...))
}

func (p *parser) warn(pos Position, rule, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{
		Severity: SeverityWarning,
		Phase:    PhaseSyntax,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// sync skips to the '}' closing the current nesting level (left unconsumed),
// the start of the next top-level block, or the end of input.
func (p *parser) sync() {
	depth := 0
	for {
		switch tok := p.peek(); {
		case tok.Kind == EOF, p.atBlockStart():
			return
		case tok.Kind == LBRACE:
			depth++
		case tok.Kind == RBRACE:
			if depth == 0 {
				return
			}
			depth--
		}
		p.next()
	}
}

// skipTopLevel discards tokens up to the next block or the end of input.
func (p *parser) skipTopLevel() {
	p.next()
	for !p.at(EOF) && !p.atBlockStart() {
		p.next()
	}
}

// =============================================================================
// Document & Blocks
// =============================================================================

func (p *parser) document() *Document {
	doc := &Document{}
	for !p.at(EOF) {
		tok := p.peek()
		if tok.Kind != IDENT || !isBlockKeyword(tok.Text) {
			p.report(p.unexpected(tok, "'network' or 'research'"))
			p.skipTopLevel()
			continue
		}
		p.next()
		var (
			b   Block
			err error
		)
		if strings.EqualFold(tok.Text, "network") {
			b, err = p.network(tok)
		} else {
			b, err = p.research(tok)
		}
		if err != nil {
			p.report(err)
			if !p.atBlockStart() {
				p.skipTopLevel()
			}
			continue
		}
		doc.Blocks = append(doc.Blocks, b)
	}
	if len(doc.Blocks) == 0 && len(p.diags) == 0 {
		p.errorAt(p.peek().Pos, "document contains no network or research blocks")
	}
	return doc
}

func (p *parser) network(kw Token) (*NetworkSpec, error) {
	name, err := p.expect(IDENT, "network name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE, "'{' after network name"); err != nil {
		return nil, err
	}

	net := &NetworkSpec{Name: name.Text, Pos: kw.Pos}
	seen := make(map[string]Position)
	for {
		tok := p.peek()
		switch {
		case tok.Kind == RBRACE:
			p.next()
			return net, nil
		case tok.Kind == EOF, p.atBlockStart():
			p.report(p.unclosed(tok, fmt.Sprintf("network %q", net.Name)))
			net.Incomplete = true
			return net, nil
		}
		if err := p.networkField(net, seen); err != nil {
			p.report(err)
			net.Incomplete = true
			p.sync()
		}
	}
}

func (p *parser) networkField(net *NetworkSpec, seen map[string]Position) error {
	tok := p.peek()
	if tok.Kind != IDENT {
		return p.unexpected(tok, "field name or '}'")
	}
	p.next()
	key := strings.ToLower(tok.Text)

	if p.at(LBRACE) && (key == "train" || key == "training" || key == "execution") {
		if key == "training" {
			key = "train"
		}
		p.noteField(seen, key, tok)
		p.next()
		fields, ok := p.entries(key+" block", false)
		if !ok {
			net.Incomplete = true
		}
		values := make(map[string]Value, len(fields))
		for _, f := range fields {
			values[f.Name] = f.Value
		}
		if key == "train" {
			net.TrainConfig = values
		} else {
			net.ExecutionConfig = values
		}
		return nil
	}

	if _, err := p.expect(COLON, fmt.Sprintf("':' after %q", tok.Text)); err != nil {
		return err
	}
	p.noteField(seen, key, tok)

	if key == "layers" {
		return p.layers(net)
	}

	v, err := p.value()
	if err != nil {
		return err
	}
	switch key {
	case "input":
		net.InputShape = p.shape(v)
		net.InputPos = v.Pos
	case "loss":
		name, ok := v.Name()
		if !ok {
			p.errorAt(v.Pos, "loss must be a string, found %s", v.Kind)
			break
		}
		net.Loss = name
	case "optimizer":
		p.optimizer(net, v)
	default:
		net.Fields = append(net.Fields, Field{Name: tok.Text, Value: v, Pos: tok.Pos})
	}
	return nil
}

func (p *parser) noteField(seen map[string]Position, key string, tok Token) {
	if prev, dup := seen[key]; dup {
		p.warn(tok.Pos, "duplicate-field", "%q is set more than once (first at line %d); the last value is used", tok.Text, prev.Line)
	}
	seen[key] = tok.Pos
}

func (p *parser) optimizer(net *NetworkSpec, v Value) {
	switch v.Kind {
	case StringValue, IdentValue:
		net.Optimizer = v.Str
		net.OptimizerParams = nil
	case CallValue:
		net.Optimizer = v.Str
		net.OptimizerParams = v.Named
		if len(v.Items) > 0 {
			p.warn(v.Items[0].Pos, "optimizer-args", "positional optimizer arguments are ignored; use name=value")
		}
	default:
		p.errorAt(v.Pos, "optimizer must be a name such as \"adam\" or a call such as SGD(learning_rate=0.01), found %s", v.Kind)
	}
}

// shape converts the value of an input field. Invalid dimensions are
// reported and kept as unknown so later stages still see the rank.
func (p *parser) shape(v Value) Shape {
	if v.Kind != TupleValue {
		p.errorAt(v.Pos, "input shape must be a tuple such as (28, 28, 1), found %s", v.Kind)
		return nil
	}
	if len(v.Items) == 0 {
		p.errorAt(v.Pos, "input shape must have at least one dimension")
		return Shape{}
	}
	s := make(Shape, 0, len(v.Items))
	for _, item := range v.Items {
		if item.Kind == NullValue {
			s = append(s, Unknown)
			continue
		}
		n, ok := item.Int()
		if !ok || n < 0 {
			p.errorAt(item.Pos, "input dimension must be a non-negative integer or None, found %s", item)
			s = append(s, Unknown)
			continue
		}
		s = append(s, Dim(n))
	}
	return s
}

func (p *parser) layers(net *NetworkSpec) error {
	var layers []LayerSpec
	for p.at(IDENT) && p.peekAt(1).Kind == LPAREN {
		layer, err := p.layer()
		if err != nil {
			net.Layers = layers
			return err
		}
		layers = append(layers, layer)
	}
	net.Layers = layers
	return nil
}

func (p *parser) layer() (LayerSpec, error) {
	kind := p.next()
	p.next()
	args, named, err := p.arguments()
	if err != nil {
		return LayerSpec{}, err
	}
	return LayerSpec{Kind: kind.Text, Args: args, Named: named, Pos: kind.Pos}, nil
}

// arguments parses an argument list after its opening parenthesis.
func (p *parser) arguments() ([]Value, []NamedArg, error) {
	var (
		args  []Value
		named []NamedArg
	)
	if p.at(RPAREN) {
		p.next()
		return nil, nil, nil
	}
	for {
		if p.at(IDENT) && p.peekAt(1).Kind == EQUALS {
			name := p.next()
			p.next()
			v, err := p.value()
			if err != nil {
				return args, named, err
			}
			if _, dup := lookupNamed(named, name.Text); dup {
				p.warn(name.Pos, "duplicate-argument", "argument %q is given more than once; the last value is used", name.Text)
			}
			named = append(named, NamedArg{Name: name.Text, Value: v, Pos: name.Pos})
		} else {
			v, err := p.value()
			if err != nil {
				return args, named, err
			}
			args = append(args, v)
		}

		switch tok := p.peek(); tok.Kind {
		case COMMA:
			p.next()
		case RPAREN:
			p.next()
			return args, named, nil
		default:
			return args, named, p.unexpected(tok, "',' or ')'")
		}
	}
}

// =============================================================================
// Values
// =============================================================================

func (p *parser) value() (Value, error) {
	tok := p.peek()
	switch tok.Kind {
	case STRING:
		p.next()
		return Value{Kind: StringValue, Str: tok.Text, Pos: tok.Pos}, nil
	case NUMBER:
		p.next()
		return numberValue(tok)
	case NONE:
		p.next()
		return Value{Kind: NullValue, Pos: tok.Pos}, nil
	case IDENT:
		p.next()
		if p.at(LPAREN) {
			p.next()
			args, named, err := p.arguments()
			return Value{Kind: CallValue, Str: tok.Text, Items: args, Named: named, Pos: tok.Pos}, err
		}
		switch tok.Text {
		case "true", "True":
			return Value{Kind: BoolValue, Bool: true, Pos: tok.Pos}, nil
		case "false", "False":
			return Value{Kind: BoolValue, Pos: tok.Pos}, nil
		}
		return Value{Kind: IdentValue, Str: tok.Text, Pos: tok.Pos}, nil
	case LPAREN:
		p.next()
		items, err := p.sequence(RPAREN)
		return Value{Kind: TupleValue, Items: items, Pos: tok.Pos}, err
	case LBRACKET:
		p.next()
		items, err := p.sequence(RBRACKET)
		return Value{Kind: ListValue, Items: items, Pos: tok.Pos}, err
	}
	return Value{}, p.unexpected(tok, "a value")
}

func numberValue(tok Token) (Value, error) {
	f, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return Value{}, &syntaxError{pos: tok.Pos, msg: fmt.Sprintf("number %s is out of range", tok.Text)}
	}
	return Value{
		Kind:  NumberValue,
		Num:   f,
		Text:  tok.Text,
		IsInt: !strings.ContainsAny(tok.Text, ".eE"),
		Pos:   tok.Pos,
	}, nil
}

// sequence parses tuple or list items after the opening bracket. A trailing
// comma is allowed so that (10,) spells a one-element tuple.
func (p *parser) sequence(close TokenKind) ([]Value, error) {
	var items []Value
	for {
		if p.at(close) {
			p.next()
			return items, nil
		}
		v, err := p.value()
		if err != nil {
			return items, err
		}
		items = append(items, v)

		switch tok := p.peek(); tok.Kind {
		case COMMA:
			p.next()
		case close:
			p.next()
			return items, nil
		default:
			return items, p.unexpected(tok, "',' or "+close.String())
		}
	}
}

// entries parses "name: value" pairs up to and including the closing '}'.
// Repeated names are warned about unless repeatable is set. ok is false when
// the section needed recovery or was never closed.
func (p *parser) entries(what string, repeatable bool) (fields []Field, ok bool) {
	ok = true
	seen := make(map[string]Position)
	for {
		tok := p.peek()
		switch {
		case tok.Kind == RBRACE:
			p.next()
			return fields, ok
		case tok.Kind == EOF, p.atBlockStart():
			p.report(p.unclosed(tok, what))
			return fields, false
		}
		f, err := p.entry()
		if err != nil {
			p.report(err)
			ok = false
			p.sync()
			continue
		}
		if prev, dup := seen[f.Name]; dup && !repeatable {
			p.warn(f.Pos, "duplicate-field", "%q is set more than once in %s (first at line %d)", f.Name, what, prev.Line)
		}
		seen[f.Name] = f.Pos
		fields = append(fields, f)
	}
}

func (p *parser) entry() (Field, error) {
	name, err := p.expect(IDENT, "entry name or '}'")
	if err != nil {
		return Field{}, err
	}
	if _, err := p.expect(COLON, fmt.Sprintf("':' after %q", name.Text)); err != nil {
		return Field{}, err
	}
	v, err := p.value()
	if err != nil {
		return Field{}, err
	}
	return Field{Name: name.Text, Value: v, Pos: name.Pos}, nil
}

func (p *parser) research(kw Token) (*ResearchSpec, error) {
	r := &ResearchSpec{Pos: kw.Pos}
	if p.at(IDENT) {
		r.Name = p.next().Text
	}
	if _, err := p.expect(LBRACE, "'{' after research"); err != nil {
		return nil, err
	}
	owner := "research block"
	if r.Name != "" {
		owner = fmt.Sprintf("research %q", r.Name)
	}

	for {
		tok := p.peek()
		switch {
		case tok.Kind == RBRACE:
			p.next()
			return r, nil
		case tok.Kind == EOF, p.atBlockStart():
			p.report(p.unclosed(tok, owner))
			r.Incomplete = true
			return r, nil
		case tok.Kind != IDENT:
			p.report(p.unexpected(tok, "'metrics', 'references' or '}'"))
			r.Incomplete = true
			p.sync()
			continue
		}

		p.next()
		if _, err := p.expect(LBRACE, fmt.Sprintf("'{' after %q", tok.Text)); err != nil {
			p.report(err)
			r.Incomplete = true
			p.sync()
			continue
		}
		repeatable := strings.EqualFold(tok.Text, "references")
		fields, ok := p.entries(tok.Text+" section", repeatable)
		if !ok {
			r.Incomplete = true
		}
		p.researchSection(r, tok, fields)
	}
}

func (p *parser) researchSection(r *ResearchSpec, section Token, fields []Field) {
	switch strings.ToLower(section.Text) {
	case "metrics":
		if r.Metrics == nil {
			r.Metrics = make(map[string]float64, len(fields))
		}
		for _, f := range fields {
			n, ok := f.Value.Float()
			if !ok {
				p.errorAt(f.Value.Pos, "metric %q must be a number, found %s", f.Name, f.Value.Kind)
				continue
			}
			r.Metrics[f.Name] = n
		}
	case "references":
		for _, f := range fields {
			if f.Value.Kind != StringValue {
				p.errorAt(f.Value.Pos, "reference %q must be a string, found %s", f.Name, f.Value.Kind)
				continue
			}
			r.References = append(r.References, Reference{Key: f.Name, Value: f.Value.Str, Pos: f.Pos})
		}
	default:
		p.warn(section.Pos, "unknown-section", "unknown research section %q is ignored", section.Text)
	}
}
