package header

import (
	"log/slog"
	"path/filepath"
	"strings"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/compiler/lexer"
	"github.com/btouchard/lemon/internal/compiler/registry"
	"github.com/btouchard/lemon/internal/compiler/token"
)

// DefaultMaxDepth bounds nested declaration includes.
const DefaultMaxDepth = 32

// Extractor reads declaration files into a Registry. Successive calls to Load
// accumulate into the same registry.
type Extractor struct {
	reg      *registry.Registry
	lx       *lexer.Lexer
	ns       []string        // open namespace path
	loading  map[string]bool // include cycle detection
	done     map[string]bool // files already read (include once)
	roots    []string
	sources  []string
	log      *slog.Logger
	MaxDepth int
}

// New creates an Extractor writing into reg. A nil logger means slog.Default().
func New(reg *registry.Registry, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		reg:      reg,
		loading:  make(map[string]bool),
		done:     make(map[string]bool),
		log:      log,
		MaxDepth: DefaultMaxDepth,
	}
}

// Files returns the paths passed to Load, in order.
func (e *Extractor) Files() []string {
	return e.roots
}

// Sources returns every declaration file read so far, includes included.
func (e *Extractor) Sources() []string {
	return e.sources
}

// Load reads the declaration file at path and registers its classes. Any
// error leaves the classes completed before it registered.
func (e *Extractor) Load(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return cerr.Wrap(err, cerr.IO, cerr.Position{File: path}, "", "cannot resolve declaration file")
	}
	e.roots = append(e.roots, abs)
	if e.done[abs] {
		return nil
	}

	e.lx = lexer.New()
	defer func() {
		_ = e.lx.Close()
		e.lx = nil
		e.ns = nil
	}()

	if err := e.lx.PushFile(abs); err != nil {
		return cerr.Wrap(err, cerr.IO, cerr.Position{File: path}, "", "cannot open declaration file")
	}
	return e.readFile(abs)
}

// readFile parses the active frame to end of input.
func (e *Extractor) readFile(abs string) error {
	e.loading[abs] = true
	e.sources = append(e.sources, abs)
	e.log.Debug("reading declarations", "file", abs, "depth", e.lx.Depth())

	err := e.parseDecls(false)
	delete(e.loading, abs)
	e.done[abs] = true
	return err
}

// parseDecls reads top-level or namespace-level declarations. Inside a
// namespace it returns after consuming the closing brace.
func (e *Extractor) parseDecls(inNamespace bool) error {
	lx := e.lx
	for {
		tok := lx.NextSignificant()
		switch tok.Type {
		case token.EOF:
			if inNamespace {
				return lx.Errorf(cerr.Structural, "unexpected end of input inside namespace %s", strings.Join(e.ns, "::"))
			}
			return nil
		case token.RBRACE:
			if !inNamespace {
				return lx.Errorf(cerr.Structural, "unmatched }")
			}
			return nil
		case token.VAR_CLOSE:
			// "}}" closing two nested namespaces
			if !inNamespace {
				return lx.Errorf(cerr.Structural, "unmatched }")
			}
			lx.Unread(token.Token{Type: token.RBRACE, Literal: "}", Pos: tok.Pos})
			return nil
		case token.LINE_COMMENT:
			if err := e.lineComment(); err != nil {
				return err
			}
		case token.BLOCK_OPEN:
			if !lx.SkipBlockComment() {
				return lx.Errorf(cerr.Lexical, "unterminated comment")
			}
		case token.HASH:
			lx.RestOfLine()
		case token.SEMICOLON:
		case token.NAMESPACE:
			if err := e.parseNamespace(); err != nil {
				return err
			}
		case token.CLASS, token.STRUCT:
			if err := e.parseClass(tok.Type == token.STRUCT); err != nil {
				return err
			}
		default:
			return lx.Errorf(cerr.Structural, "unexpected %q in declaration file", tok.Literal)
		}
	}
}

// lineComment handles a "//" comment, which may carry the include directive
// `// {% include "file" %}`.
func (e *Extractor) lineComment() error {
	lx := e.lx
	tok := lx.NextToken(" \t")
	if tok.Type != token.TAG_OPEN {
		lx.RestOfLine()
		return nil
	}
	if kw := lx.NextToken(" \t"); kw.Type != token.INCLUDE {
		lx.RestOfLine()
		return nil
	}
	if q := lx.NextToken(" \t"); q.Type != token.DQUOTE {
		return lx.Errorf(cerr.Structural, "expected quoted path after include")
	}
	target, ok := lx.ReadQuoted('"')
	if !ok {
		return lx.Errorf(cerr.Lexical, "unterminated include path")
	}
	if end := lx.NextToken(" \t"); end.Type != token.TAG_CLOSE {
		return lx.Errorf(cerr.Structural, "expected %%} after include path, got %q", end.Literal)
	}
	lx.RestOfLine()
	return e.include(target)
}

// include reads another declaration file in place, depth first.
func (e *Extractor) include(target string) error {
	lx := e.lx
	abs := target
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(filepath.Dir(lx.Path()), target)
	}
	abs = filepath.Clean(abs)

	if e.loading[abs] {
		return lx.Errorf(cerr.Structural, "circular include of %s", target)
	}
	if e.done[abs] {
		return nil
	}
	if lx.Depth() >= e.MaxDepth {
		return lx.Errorf(cerr.Structural, "includes nested deeper than %d", e.MaxDepth)
	}
	if err := lx.PushFile(abs); err != nil {
		ce := lx.Errorf(cerr.IO, "cannot open included file %s", target)
		ce.Err = err
		return ce
	}
	if err := e.readFile(abs); err != nil {
		return err
	}
	return lx.Pop()
}

// parseNamespace handles `namespace a {`, `namespace a::b {` and the
// anonymous `namespace {`.
func (e *Extractor) parseNamespace() error {
	lx := e.lx
	var segs []string
	tok := lx.NextSignificant()
	if tok.Type != token.LBRACE {
		name, err := readQualified(lx, tok)
		if err != nil {
			return err
		}
		segs = strings.Split(name, "::")
		tok = lx.NextSignificant()
	}
	if tok.Type != token.LBRACE {
		return lx.Errorf(cerr.Structural, "expected { after namespace, got %q", tok.Literal)
	}

	e.ns = append(e.ns, segs...)
	if err := e.parseDecls(true); err != nil {
		return err
	}
	e.ns = e.ns[:len(e.ns)-len(segs)]
	return nil
}

// parseClass reads a class or struct after its keyword. Base class fields
// are copied ahead of the class's own fields.
func (e *Extractor) parseClass(isStruct bool) error {
	lx := e.lx
	nameTok := lx.NextSignificant()
	if nameTok.Type != token.IDENT {
		return lx.Errorf(cerr.Structural, "expected class name, got %q", nameTok.Literal)
	}
	next := lx.NextSignificant()
	if next.Type == token.SEMICOLON {
		return nil // forward declaration
	}

	c := &registry.ClassEntry{Name: nameTok.Literal, Namespace: append([]string(nil), e.ns...)}
	access := registry.Private
	if isStruct {
		access = registry.Public
	}

	if next.Type == token.COLON {
		var err error
		if next, err = e.parseBases(c, access); err != nil {
			return err
		}
	}
	if next.Type != token.LBRACE {
		return lx.Errorf(cerr.Structural, "expected { after class %s, got %q", c.Name, next.Literal)
	}

	for {
		tok := lx.NextSignificant()
		switch tok.Type {
		case token.RBRACE:
			if end := lx.NextSignificant(); end.Type != token.SEMICOLON {
				return lx.Errorf(cerr.Structural, "expected ; after class %s", c.Name)
			}
			if err := e.reg.Add(c); err != nil {
				return lx.Errorf(cerr.Structural, "%v", err)
			}
			e.log.Debug("class registered", "class", c.QualifiedName(), "fields", len(c.Fields), "file", lx.Path())
			return nil
		case token.EOF:
			return lx.Errorf(cerr.Structural, "unexpected end of input inside class %s", c.Name)
		case token.PUBLIC, token.PROTECTED, token.PRIVATE:
			if colon := lx.NextSignificant(); colon.Type != token.COLON {
				return lx.Errorf(cerr.Structural, "expected : after %s", tok.Literal)
			}
			access = accessOf(tok.Type)
		case token.LINE_COMMENT, token.HASH:
			lx.RestOfLine()
		case token.BLOCK_OPEN:
			if !lx.SkipBlockComment() {
				return lx.Errorf(cerr.Lexical, "unterminated comment")
			}
		case token.SEMICOLON:
		case token.INLINE, token.VIRTUAL, token.VOID, token.STATIC, token.EXPLICIT, token.FRIEND, token.TILDE:
			if err := e.skipMember(0); err != nil {
				return err
			}
		case token.CLASS, token.STRUCT, token.NAMESPACE:
			return lx.Errorf(cerr.Structural, "nested %s declarations are not supported", tok.Literal)
		case token.IDENT:
			if tok.Literal == c.Name {
				// constructor
				if err := e.skipMember(0); err != nil {
					return err
				}
				continue
			}
			switch tok.Literal {
			case "typedef", "using", "enum", "union", "template", "operator":
				return lx.Errorf(cerr.Structural, "%s members are not supported", tok.Literal)
			}
			lx.Unread(tok)
			if err := e.parseMember(c, access); err != nil {
				return err
			}
		default:
			lx.Unread(tok)
			if err := e.parseMember(c, access); err != nil {
				return err
			}
		}
	}
}

// parseBases reads the base list after ':' and returns the token that
// follows it.
func (e *Extractor) parseBases(c *registry.ClassEntry, defaultAccess registry.Access) (token.Token, error) {
	lx := e.lx
	for {
		access := defaultAccess
		tok := lx.NextSignificant()
		for tok.Type == token.VIRTUAL || tok.Type == token.PUBLIC || tok.Type == token.PROTECTED || tok.Type == token.PRIVATE {
			if tok.Type != token.VIRTUAL {
				access = accessOf(tok.Type)
			}
			tok = lx.NextSignificant()
		}
		base, err := readQualified(lx, tok)
		if err != nil {
			return token.Token{}, err
		}
		entry, ok := e.reg.Lookup(base, e.ns)
		if !ok {
			return token.Token{}, lx.Errorf(cerr.Resolution, "unknown base class %s", base)
		}
		for _, f := range entry.Fields {
			if f.Access < access {
				f.Access = access
			}
			c.Fields = append(c.Fields, f)
		}

		next := lx.NextSignificant()
		if next.Type != token.COMMA {
			return next, nil
		}
	}
}

// parseMember reads `TYPE name [= init | {init}] [, name ...];`. A '(' after
// the name makes it a member function, which is skipped.
func (e *Extractor) parseMember(c *registry.ClassEntry, access registry.Access) error {
	lx := e.lx
	typ, err := ParseType(lx, e.reg, e.ns)
	if err != nil {
		return err
	}

	for {
		nameTok := lx.NextSignificant()
		switch {
		case nameTok.Type == token.ASTERISK || nameTok.Type == token.AMPERSAND:
			return lx.Errorf(cerr.Structural, "pointer and reference members are not supported")
		case nameTok.Literal == "operator":
			return e.skipMember(0)
		case !nameTok.IsWord():
			return lx.Errorf(cerr.Structural, "expected member name, got %q", nameTok.Literal)
		}

		next := lx.NextSignificant()
		if next.Type == token.LPAREN {
			return e.skipMember(1)
		}
		if _, dup := c.Field(nameTok.Literal); dup {
			return lx.Errorf(cerr.Structural, "duplicate member %s in class %s", nameTok.Literal, c.Name)
		}
		c.Fields = append(c.Fields, registry.Field{
			Name:       nameTok.Literal,
			TypeString: typ.String(),
			Type:       typ,
			Namespace:  c.Namespace,
			Access:     access,
		})

		switch next.Type {
		case token.ASSIGN:
			if next, err = e.skipInitializer(); err != nil {
				return err
			}
		case token.LBRACE:
			if err := e.skipBraces(); err != nil {
				return err
			}
			next = lx.NextSignificant()
		}
		switch next.Type {
		case token.COMMA:
		case token.SEMICOLON:
			return nil
		default:
			return lx.Errorf(cerr.Structural, "expected ; after member %s, got %q", nameTok.Literal, next.Literal)
		}
	}
}

// skipInitializer consumes a default member initialiser and returns the ','
// or ';' that ends it.
func (e *Extractor) skipInitializer() (token.Token, error) {
	lx := e.lx
	depth := 0
	for {
		tok := lx.NextSignificant()
		switch tok.Type {
		case token.EOF:
			return tok, lx.Errorf(cerr.Structural, "unexpected end of input in initializer")
		case token.LPAREN, token.LBRACE, token.LBRACKET:
			depth++
		case token.VAR_OPEN:
			depth += 2
		case token.RPAREN, token.RBRACE, token.RBRACKET:
			depth--
		case token.VAR_CLOSE:
			depth -= 2
		case token.DQUOTE, token.SQUOTE:
			if _, ok := lx.ReadQuoted(tok.Literal[0]); !ok {
				return tok, lx.Errorf(cerr.Lexical, "unterminated literal")
			}
		case token.COMMA, token.SEMICOLON:
			if depth == 0 {
				return tok, nil
			}
		}
	}
}

// skipMember discards a member function or other skipped member, starting
// inside depth open parentheses, through its ';' or body.
func (e *Extractor) skipMember(depth int) error {
	lx := e.lx
	for {
		tok := lx.NextSignificant()
		switch tok.Type {
		case token.EOF:
			return lx.Errorf(cerr.Structural, "unexpected end of input in member declaration")
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.DQUOTE, token.SQUOTE:
			if _, ok := lx.ReadQuoted(tok.Literal[0]); !ok {
				return lx.Errorf(cerr.Lexical, "unterminated literal")
			}
		case token.LINE_COMMENT:
			lx.RestOfLine()
		case token.BLOCK_OPEN:
			if !lx.SkipBlockComment() {
				return lx.Errorf(cerr.Lexical, "unterminated comment")
			}
		case token.SEMICOLON:
			if depth == 0 {
				return nil
			}
		case token.LBRACE, token.VAR_OPEN:
			if depth != 0 {
				continue
			}
			if tok.Type == token.VAR_OPEN {
				// "{{": body opening on a braced initializer
				if err := e.skipBraces(); err != nil {
					return err
				}
			}
			if err := e.skipBraces(); err != nil {
				return err
			}
			// constructor initializer lists may continue with ", m{...}"
			switch next := lx.NextSignificant(); next.Type {
			case token.COMMA:
				continue
			case token.SEMICOLON:
				return nil
			case token.LBRACE:
				return e.skipBraces()
			default:
				lx.Unread(next)
				return nil
			}
		}
	}
}

// skipBraces consumes up to the '}' matching an already consumed '{'.
func (e *Extractor) skipBraces() error {
	lx := e.lx
	depth := 1
	for depth > 0 {
		tok := lx.NextSignificant()
		switch tok.Type {
		case token.EOF:
			return lx.Errorf(cerr.Structural, "unexpected end of input, unbalanced {")
		case token.LBRACE:
			depth++
		case token.VAR_OPEN:
			depth += 2
		case token.RBRACE:
			depth--
		case token.VAR_CLOSE:
			depth -= 2
			if depth < 0 {
				// the second brace closes an enclosing block
				lx.Unread(token.Token{Type: token.RBRACE, Literal: "}", Pos: tok.Pos})
				depth = 0
			}
		case token.DQUOTE, token.SQUOTE:
			if _, ok := lx.ReadQuoted(tok.Literal[0]); !ok {
				return lx.Errorf(cerr.Lexical, "unterminated literal")
			}
		case token.LINE_COMMENT:
			lx.RestOfLine()
		case token.BLOCK_OPEN:
			if !lx.SkipBlockComment() {
				return lx.Errorf(cerr.Lexical, "unterminated comment")
			}
		}
	}
	return nil
}

func accessOf(t token.TokenType) registry.Access {
	switch t {
	case token.PROTECTED:
		return registry.Protected
	case token.PRIVATE:
		return registry.Private
	}
	return registry.Public
}
