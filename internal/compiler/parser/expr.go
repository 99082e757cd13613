package parser

import (
	"strings"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/compiler/generator"
	"github.com/btouchard/lemon/internal/compiler/registry"
	"github.com/btouchard/lemon/internal/compiler/token"
)

// value is a typed expression of generated code.
type value struct {
	code    string
	typ     *registry.Type
	safe    bool // escaping must not be applied
	literal bool
}

// parseVariable handles the inside of {{ ... }}.
func (p *Parser) parseVariable() error {
	v, err := p.parseOperand()
	if err != nil {
		return err
	}
	if tok := p.lx.NextSignificant(); tok.Type != token.VAR_CLOSE {
		return p.errorf(cerr.Structural, "expected }}, got %q", tok.Literal)
	}

	rt := p.gen.Runtime()
	out := rt.Stringify(v.code, v.typ)
	if p.autoescape() && !v.safe {
		out = rt.Escape(out)
	}
	p.gen.Append(out)
	return nil
}

// parseOperand reads a variable path or a literal, followed by any number
// of filters.
func (p *Parser) parseOperand() (value, error) {
	tok := p.lx.NextSignificant()

	var v value
	switch {
	case tok.Type == token.DQUOTE || tok.Type == token.SQUOTE:
		s, err := p.readString(tok)
		if err != nil {
			return v, err
		}
		v = value{code: "std::string(" + s + ")", typ: registry.Primitive(registry.String), literal: true}
	case tok.Type == token.MINUS || tok.Type == token.IDENT && isDigit(tok.Literal[0]):
		n, err := p.readNumber(tok)
		if err != nil {
			return v, err
		}
		v = n
	case tok.IsWord():
		path, err := p.readPath(tok)
		if err != nil {
			return v, err
		}
		typ, err := p.vars.Resolve(path)
		if err != nil {
			return v, p.errorf(cerr.Resolution, "%v", err)
		}
		v = value{code: joinPath(path), typ: typ}
	case tok.Type == token.EOF:
		return v, p.errorf(cerr.Structural, "unexpected end of input in expression")
	default:
		return v, p.errorf(cerr.Structural, "expected a variable or literal, got %q", tok.Literal)
	}

	for {
		tok := p.lx.NextSignificant()
		if tok.Type != token.PIPE {
			p.lx.Unread(tok)
			return v, nil
		}
		var err error
		if v, err = p.applyFilter(v); err != nil {
			return v, err
		}
	}
}

func (p *Parser) applyFilter(v value) (value, error) {
	rt := p.gen.Runtime()
	name := p.lx.NextSignificant()
	if !name.Type.IsFilter() {
		return v, p.errorf(cerr.Resolution, "unknown filter %q", name.Literal)
	}

	switch name.Type {
	case token.LENGTH:
		if !v.typ.Kind.IsContainer() {
			return v, p.errorf(cerr.Resolution, "length needs a string or container, got %s", v.typ)
		}
		return value{code: rt.Length(v.code), typ: registry.Primitive(registry.ULong)}, nil
	case token.DEFAULT:
		if !v.typ.Kind.IsContainer() && !v.typ.Kind.IsNumeric() {
			return v, p.errorf(cerr.Resolution, "default cannot apply to %s", v.typ)
		}
		if tok := p.lx.NextSignificant(); tok.Type != token.COLON {
			return v, p.errorf(cerr.Structural, "default needs an argument: default:\"text\"")
		}
		q := p.lx.NextSignificant()
		if q.Type != token.DQUOTE && q.Type != token.SQUOTE {
			return v, p.errorf(cerr.Structural, "default argument must be a quoted string, got %q", q.Literal)
		}
		lit, err := p.readString(q)
		if err != nil {
			return v, err
		}
		return value{code: rt.Default(v.code, lit), typ: registry.Primitive(registry.String), safe: true}, nil
	case token.SAFE:
		return value{code: rt.Safe(rt.Stringify(v.code, v.typ)), typ: registry.Primitive(registry.String), safe: true}, nil
	default: // escape
		return value{code: rt.Escape(rt.Stringify(v.code, v.typ)), typ: registry.Primitive(registry.String), safe: true}, nil
	}
}

// readPath reads `name(.field)*` starting at tok.
func (p *Parser) readPath(tok token.Token) ([]string, error) {
	if !tok.IsWord() {
		return nil, p.errorf(cerr.Structural, "expected a variable name, got %q", tok.Literal)
	}
	path := []string{tok.Literal}
	for {
		dot := p.lx.NextSignificant()
		if dot.Type != token.DOT {
			p.lx.Unread(dot)
			return path, nil
		}
		seg := p.lx.NextSignificant()
		if !seg.IsWord() {
			return nil, p.errorf(cerr.Structural, "expected a field name after %s., got %q", joinPath(path), seg.Literal)
		}
		path = append(path, seg.Literal)
	}
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}

// readString reads a quoted literal whose opening quote is tok and returns
// it as a C++ double-quoted string. Escapes are kept as written.
func (p *Parser) readString(tok token.Token) (string, error) {
	raw, ok := p.lx.ReadQuoted(tok.Literal[0])
	if !ok {
		return "", p.errorf(cerr.Lexical, "unterminated string literal")
	}
	if tok.Type == token.SQUOTE {
		var b strings.Builder
		for i := 0; i < len(raw); i++ {
			switch {
			case raw[i] == '\\' && i+1 < len(raw):
				b.WriteByte(raw[i])
				i++
				b.WriteByte(raw[i])
			case raw[i] == '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(raw[i])
			}
		}
		raw = b.String()
	}
	return `"` + raw + `"`, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// readNumber reads an integer or decimal literal, optionally negative.
// Digits are identifier characters to the lexer, so "3.5" arrives as three
// tokens.
func (p *Parser) readNumber(tok token.Token) (value, error) {
	sign := ""
	if tok.Type == token.MINUS {
		sign = "-"
		tok = p.lx.NextSignificant()
	}
	if tok.Type != token.IDENT || !allDigits(tok.Literal) {
		return value{}, p.errorf(cerr.Structural, "malformed number %q", sign+tok.Literal)
	}
	code := sign + tok.Literal
	typ := registry.Primitive(registry.Int)

	dot := p.lx.NextToken("")
	if dot.Type != token.DOT {
		p.lx.Unread(dot)
		return value{code: code, typ: typ, literal: true}, nil
	}
	frac := p.lx.NextToken("")
	if frac.Type != token.IDENT || !allDigits(frac.Literal) {
		return value{}, p.errorf(cerr.Structural, "malformed number %q", code+"."+frac.Literal)
	}
	return value{code: code + "." + frac.Literal, typ: registry.Primitive(registry.Double), literal: true}, nil
}

// parseCondition reads a condition through the closing %}. and/or combine
// strictly left to right: `a and b or c` is ((a) && (b)) || (c).
func (p *Parser) parseCondition() (string, error) {
	cond, err := p.parseComparison()
	if err != nil {
		return "", err
	}
	for {
		tok := p.lx.NextSignificant()
		var op string
		switch tok.Type {
		case token.TAG_CLOSE:
			return cond, nil
		case token.AND:
			op = "&&"
		case token.OR:
			op = "||"
		case token.EOF:
			return "", p.errorf(cerr.Structural, "unexpected end of input in condition, expected %%}")
		default:
			return "", p.errorf(cerr.Structural, "unexpected %q in condition", tok.Literal)
		}
		next, err := p.parseComparison()
		if err != nil {
			return "", err
		}
		cond = "(" + cond + ") " + op + " (" + next + ")"
	}
}

// parseComparison reads `[not]* operand [op operand]`. A lone operand is
// tested for truth.
func (p *Parser) parseComparison() (string, error) {
	negate := false
	tok := p.lx.NextSignificant()
	for tok.Type == token.NOT {
		negate = !negate
		tok = p.lx.NextSignificant()
	}
	p.lx.Unread(tok)

	left, err := p.parseOperand()
	if err != nil {
		return "", err
	}

	var expr string
	op := p.lx.NextSignificant()
	if op.Type.IsComparison() {
		right, err := p.parseOperand()
		if err != nil {
			return "", err
		}
		if !comparable(left.typ, right.typ) {
			return "", p.errorf(cerr.Resolution, "cannot compare %s %s %s", left.typ, op.Literal, right.typ)
		}
		expr = left.code + " " + op.Literal + " " + right.code
	} else {
		p.lx.Unread(op)
		if expr, err = generator.Truth(left.code, left.typ); err != nil {
			return "", p.errorf(cerr.Resolution, "%v", err)
		}
	}

	if negate {
		expr = "!(" + expr + ")"
	}
	return expr, nil
}

func comparable(a, b *registry.Type) bool {
	if a.Kind.IsNumeric() && b.Kind.IsNumeric() {
		return true
	}
	return a.Kind == registry.String && b.Kind == registry.String
}
