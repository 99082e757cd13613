package header

import (
	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/compiler/lexer"
	"github.com/btouchard/lemon/internal/compiler/registry"
	"github.com/btouchard/lemon/internal/compiler/token"
)

// ParseType reads one type expression from lx: a primitive spelling, a
// container with bracketed (possibly nested) arguments, or a qualified class
// name that must already be registered. Names are resolved from scope
// outwards. A leading const is accepted and dropped.
func ParseType(lx *lexer.Lexer, reg *registry.Registry, scope []string) (*registry.Type, error) {
	tok := lx.NextSignificant()
	for tok.Type == token.CONST {
		tok = lx.NextSignificant()
	}
	if tok.Type == token.IDENT && tok.Literal == "std" {
		tok = spacedContainer(lx, tok)
	}

	switch {
	case tok.Type.IsPrimitive():
		return parsePrimitive(lx, tok)
	case tok.Type == token.STRING:
		return registry.Primitive(registry.String), nil
	case tok.Type == token.VECTOR || tok.Type == token.LIST || tok.Type == token.SET:
		args, err := parseTypeArgs(lx, reg, scope, 1)
		if err != nil {
			return nil, err
		}
		return registry.Container(containerKind(tok.Type), args...), nil
	case tok.Type == token.MAP:
		args, err := parseTypeArgs(lx, reg, scope, 2)
		if err != nil {
			return nil, err
		}
		return registry.Container(registry.Map, args...), nil
	case tok.Type == token.IDENT || tok.Type == token.DOUBLECOLON:
		name, err := readQualified(lx, tok)
		if err != nil {
			return nil, err
		}
		c, ok := reg.Lookup(name, scope)
		if !ok {
			return nil, lx.Errorf(cerr.Resolution, "unknown type %s", name)
		}
		return registry.ClassType(c), nil
	case tok.Type == token.EOF:
		return nil, lx.Errorf(cerr.Structural, "unexpected end of input, expected a type")
	}
	return nil, lx.Errorf(cerr.Structural, "expected a type, got %q", tok.Literal)
}

// spacedContainer recognises "std :: vector" and the like, which the lexer
// only fuses when written without spaces. Other std names are left alone.
func spacedContainer(lx *lexer.Lexer, std token.Token) token.Token {
	sep := lx.NextSignificant()
	if sep.Type != token.DOUBLECOLON {
		lx.Unread(sep)
		return std
	}
	name := lx.NextSignificant()
	if !name.Type.IsContainer() {
		lx.Unread(sep, name)
		return std
	}
	name.Literal = "std::" + name.Literal
	name.Pos = std.Pos
	return name
}

func containerKind(t token.TokenType) registry.Kind {
	switch t {
	case token.LIST:
		return registry.List
	case token.SET:
		return registry.Set
	}
	return registry.Vector
}

// parseTypeArgs reads "<T>" or "<K, V>". Nesting depth is carried by the
// recursion through ParseType.
func parseTypeArgs(lx *lexer.Lexer, reg *registry.Registry, scope []string, n int) ([]*registry.Type, error) {
	if tok := lx.NextSignificant(); tok.Type != token.LT {
		return nil, lx.Errorf(cerr.Structural, "expected < after container type, got %q", tok.Literal)
	}
	args := make([]*registry.Type, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			if tok := lx.NextSignificant(); tok.Type != token.COMMA {
				return nil, lx.Errorf(cerr.Structural, "expected , between type arguments, got %q", tok.Literal)
			}
		}
		arg, err := ParseType(lx, reg, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if tok := lx.NextSignificant(); tok.Type != token.GT {
		return nil, lx.Errorf(cerr.Structural, "expected > closing %d type argument(s), got %q", n, tok.Literal)
	}
	return args, nil
}

func readQualified(lx *lexer.Lexer, tok token.Token) (string, error) {
	name := ""
	if tok.Type == token.DOUBLECOLON {
		name = "::"
		tok = lx.NextSignificant()
	}
	for {
		if tok.Type != token.IDENT {
			return "", lx.Errorf(cerr.Structural, "expected a name after %q, got %q", name, tok.Literal)
		}
		name += tok.Literal
		next := lx.NextSignificant()
		if next.Type != token.DOUBLECOLON {
			lx.Unread(next)
			return name, nil
		}
		name += "::"
		tok = lx.NextSignificant()
	}
}

var unsignedOf = map[registry.Kind]registry.Kind{
	registry.Char:     registry.UChar,
	registry.Short:    registry.UShort,
	registry.Int:      registry.UInt,
	registry.Long:     registry.ULong,
	registry.LongLong: registry.ULongLong,
}

func parsePrimitive(lx *lexer.Lexer, tok token.Token) (*registry.Type, error) {
	sign := token.TokenType("")
	if tok.Type == token.UNSIGNED || tok.Type == token.SIGNED {
		sign = tok.Type
		tok = lx.NextSignificant()
		switch tok.Type {
		case token.CHAR, token.SHORT, token.INT, token.LONG:
		default:
			// bare "unsigned" / "signed" means int
			lx.Unread(tok)
			tok = token.Token{Type: token.INT, Literal: "int", Pos: tok.Pos}
		}
	}

	var k registry.Kind
	switch tok.Type {
	case token.BOOL:
		k = registry.Bool
	case token.CHAR:
		k = registry.Char
	case token.SHORT:
		k = registry.Short
		skipOptional(lx, token.INT)
	case token.INT:
		k = registry.Int
	case token.LONG:
		k = registry.Long
		next := lx.NextSignificant()
		switch next.Type {
		case token.LONG:
			k = registry.LongLong
			skipOptional(lx, token.INT)
		case token.INT:
		case token.DOUBLE:
			return nil, lx.Errorf(cerr.Structural, "long double is not supported")
		default:
			lx.Unread(next)
		}
	case token.FLOAT:
		k = registry.Float
	case token.DOUBLE:
		k = registry.Double
	case token.VOID:
		k = registry.Void
	default:
		return nil, lx.Errorf(cerr.Structural, "expected a primitive type, got %q", tok.Literal)
	}

	if sign != "" {
		if !k.IsInteger() || k == registry.Bool {
			return nil, lx.Errorf(cerr.Structural, "%s cannot qualify %s", tok.Literal, k)
		}
		if sign == token.UNSIGNED {
			k = unsignedOf[k]
		}
	}
	return registry.Primitive(k), nil
}

func skipOptional(lx *lexer.Lexer, t token.TokenType) {
	if tok := lx.NextSignificant(); tok.Type != t {
		lx.Unread(tok)
	}
}
