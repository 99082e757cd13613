package parser

import (
	"fmt"
	"log/slog"
	"path/filepath"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/compiler/generator"
	"github.com/btouchard/lemon/internal/compiler/header"
	"github.com/btouchard/lemon/internal/compiler/lexer"
	"github.com/btouchard/lemon/internal/compiler/registry"
	"github.com/btouchard/lemon/internal/compiler/scope"
	"github.com/btouchard/lemon/internal/compiler/token"
	"github.com/btouchard/lemon/internal/compiler/utils"
)

// DefaultMaxDepth bounds the number of simultaneously open template files.
const DefaultMaxDepth = 32

type Options struct {
	Runtime    generator.Runtime
	Autoescape bool // initial autoescape state
	MaxDepth   int
	Logger     *slog.Logger
}

// Result is the outcome of compiling one template.
type Result struct {
	Path         string
	Interface    generator.Interface
	Body         string
	Dependencies []string // every template file opened, the template first
}

// construct is an open paired tag on the status stack.
type construct struct {
	tok  token.Token
	file string
	name string // block name
}

// Parser compiles one template into the body of a render function. A Parser
// is single use.
type Parser struct {
	lx     *lexer.Lexer
	reg    *registry.Registry
	vars   *scope.Stack
	gen    *generator.Generator
	opts   Options
	log    *slog.Logger
	status []construct
	escape []bool

	blocks    map[string]lexer.Snapshot // child overrides by block name
	rendering map[string]bool           // overrides currently being rendered
	deps      []string
	seen      map[string]bool
}

func New(reg *registry.Registry, opts Options) *Parser {
	if opts.Runtime == (generator.Runtime{}) {
		opts.Runtime = generator.DefaultRuntime()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Parser{
		lx:        lexer.New(),
		reg:       reg,
		vars:      scope.New(reg),
		gen:       generator.New(opts.Runtime),
		opts:      opts,
		log:       log,
		escape:    []bool{opts.Autoescape},
		blocks:    make(map[string]lexer.Snapshot),
		rendering: make(map[string]bool),
		seen:      make(map[string]bool),
	}
}

// Parse compiles the template at path. Every file opened on the way is
// closed before Parse returns, on success and on error alike.
func (p *Parser) Parse(path string) (*Result, error) {
	defer p.lx.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, cerr.Wrap(err, cerr.IO, cerr.Position{File: path}, "", "cannot resolve template path")
	}
	if err := p.lx.PushFile(abs); err != nil {
		return nil, cerr.Wrap(err, cerr.IO, cerr.Position{File: path}, "", "cannot open template")
	}
	p.addDep(abs)

	iface, err := p.parseInterface()
	if err != nil {
		return nil, err
	}

	end, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if end.Type != token.EOF {
		return nil, p.unexpected(end)
	}

	return &Result{
		Path:         path,
		Interface:    iface,
		Body:         p.gen.Body(),
		Dependencies: p.deps,
	}, nil
}

func (p *Parser) errorf(cat cerr.Category, format string, args ...any) *cerr.CompileError {
	return p.lx.Errorf(cat, format, args...)
}

func (p *Parser) addDep(abs string) {
	if !p.seen[abs] {
		p.seen[abs] = true
		p.deps = append(p.deps, abs)
	}
}

// parseInterface reads the leading `<!-- std::string name(T a, ...) -->`
// comment and binds its parameters.
func (p *Parser) parseInterface() (generator.Interface, error) {
	var iface generator.Interface
	lx := p.lx

	if tok := lx.NextSignificant(); tok.Type != token.COMMENT_OPEN {
		return iface, p.errorf(cerr.Structural, "template must start with <!-- std::string name(params) -->")
	}
	ret, err := header.ParseType(lx, p.reg, nil)
	if err != nil {
		return iface, err
	}
	if ret.Kind != registry.String {
		return iface, p.errorf(cerr.Structural, "render function must return std::string, not %s", ret)
	}

	name := lx.NextSignificant()
	if !name.IsWord() {
		return iface, p.errorf(cerr.Structural, "expected render function name, got %q", name.Literal)
	}
	if utils.IsKeyword(name.Literal) {
		return iface, p.errorf(cerr.Structural, "%s is a C++ keyword and cannot name the render function", name.Literal)
	}
	iface.Name = name.Literal
	if tok := lx.NextSignificant(); tok.Type != token.LPAREN {
		return iface, p.errorf(cerr.Structural, "expected ( after %s", iface.Name)
	}

	tok := lx.NextSignificant()
	if tok.Type != token.RPAREN {
		lx.Unread(tok)
		for {
			param, err := p.parseParam(iface.Params)
			if err != nil {
				return iface, err
			}
			iface.Params = append(iface.Params, param)

			tok = lx.NextSignificant()
			if tok.Type == token.RPAREN {
				break
			}
			if tok.Type != token.COMMA {
				return iface, p.errorf(cerr.Structural, "expected , or ) in parameter list, got %q", tok.Literal)
			}
		}
	}

	if tok := lx.NextSignificant(); tok.Type != token.COMMENT_CLOSE {
		return iface, p.errorf(cerr.Structural, "expected --> after render function declaration, got %q", tok.Literal)
	}
	p.skipLineEnd()

	for _, param := range iface.Params {
		p.vars.Declare(registry.Field{Name: param.Name, TypeString: param.Type.String(), Type: param.Type})
	}
	return iface, nil
}

func (p *Parser) parseParam(prev []generator.Param) (generator.Param, error) {
	typ, err := header.ParseType(p.lx, p.reg, nil)
	if err != nil {
		return generator.Param{}, err
	}
	tok := p.lx.NextSignificant()
	if tok.Type == token.AMPERSAND {
		tok = p.lx.NextSignificant()
	}
	if !tok.IsWord() {
		return generator.Param{}, p.errorf(cerr.Structural, "expected parameter name, got %q", tok.Literal)
	}
	if err := p.checkName(tok.Literal); err != nil {
		return generator.Param{}, err
	}
	for _, q := range prev {
		if q.Name == tok.Literal {
			return generator.Param{}, p.errorf(cerr.Structural, "duplicate parameter %s", tok.Literal)
		}
	}
	return generator.Param{Name: tok.Literal, Type: typ}, nil
}

func (p *Parser) checkName(name string) error {
	if generator.IsReserved(name) {
		return p.errorf(cerr.Structural, "%s is reserved for generated code", name)
	}
	if utils.IsKeyword(name) {
		return p.errorf(cerr.Structural, "%s is a C++ keyword and cannot name a variable", name)
	}
	return nil
}

// skipLineEnd drops blanks up to and including the end of the current line.
func (p *Parser) skipLineEnd() {
	for {
		tok := p.lx.NextToken("")
		switch tok.Type {
		case token.SPACE, token.TAB, token.CR:
			continue
		case token.NEWLINE:
		default:
			p.lx.Unread(tok)
		}
		return
	}
}

// parseBody emits template content until input ends or a tag that closes or
// splits an open construct. That tag's keyword is returned with the rest of
// the tag unread; at end of input the EOF token is returned.
func (p *Parser) parseBody() (token.Token, error) {
	for {
		tok := p.lx.NextToken("")
		switch tok.Type {
		case token.EOF:
			return tok, nil
		case token.VAR_OPEN:
			if err := p.parseVariable(); err != nil {
				return tok, err
			}
		case token.TAG_OPEN:
			kw := p.lx.NextSignificant()
			var err error
			switch kw.Type {
			case token.IF:
				err = p.parseIf(kw)
			case token.FOR:
				err = p.parseFor(kw)
			case token.AUTOESCAPE:
				err = p.parseAutoescape(kw)
			case token.INCLUDE:
				err = p.parseInclude(kw)
			case token.EXTENDS:
				err = p.parseExtends(kw)
			case token.BLOCK:
				err = p.parseBlock(kw)
			case token.ELIF, token.ELSE, token.ENDIF, token.EMPTY, token.ENDFOR, token.ENDBLOCK, token.ENDAUTOESCAPE:
				return kw, nil
			case token.EOF:
				return kw, p.errorf(cerr.Structural, "unexpected end of input after {%%")
			default:
				return kw, p.errorf(cerr.Structural, "unknown tag %q", kw.Literal)
			}
			if err != nil {
				return kw, err
			}
		default:
			p.gen.Literal(tok.Literal)
		}
	}
}

func (p *Parser) push(tok token.Token, name string) {
	p.status = append(p.status, construct{tok: tok, file: p.lx.Path(), name: name})
}

// pop closes the innermost construct, which must have been opened by opener.
func (p *Parser) pop(closer token.Token, opener token.TokenType) error {
	if len(p.status) == 0 || p.status[len(p.status)-1].tok.Type != opener {
		return p.unexpected(closer)
	}
	p.status = p.status[:len(p.status)-1]
	return nil
}

// unexpected reports a closing tag, or end of input, that does not fit the
// innermost open construct.
func (p *Parser) unexpected(tok token.Token) error {
	if len(p.status) == 0 {
		return p.errorf(cerr.Structural, "unexpected {%% %s %%} with no open construct", tok.Literal)
	}
	top := p.status[len(p.status)-1]
	if tok.Type == token.EOF {
		return p.errorf(cerr.Structural, "unexpected end of input: {%% %s %%} opened at %s:%d is not closed",
			top.tok.Literal, top.file, top.tok.Pos.Line)
	}
	return p.errorf(cerr.Structural, "{%% %s %%} does not match {%% %s %%} opened at %s:%d",
		tok.Literal, top.tok.Literal, top.file, top.tok.Pos.Line)
}

func (p *Parser) expectTagClose() error {
	if tok := p.lx.NextSignificant(); tok.Type != token.TAG_CLOSE {
		return p.errorf(cerr.Structural, "expected %%}, got %q", tok.Literal)
	}
	return nil
}

// parseIf handles {% if %} ... [{% elif %} ...]* [{% else %} ...] {% endif %}.
// elif closes the current branch and opens `else if`, so endif always
// contributes the single closing brace.
func (p *Parser) parseIf(kw token.Token) error {
	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	p.push(kw, "")
	p.gen.Open("if (" + cond + ")")

	seenElse := false
	for {
		end, err := p.parseBody()
		if err != nil {
			return err
		}
		switch end.Type {
		case token.ELIF, token.ELSE:
			if err := p.expectOpen(end, token.IF); err != nil {
				return err
			}
			if seenElse {
				return p.errorf(cerr.Structural, "{%% %s %%} after {%% else %%}", end.Literal)
			}
			head := "else"
			if end.Type == token.ELIF {
				if cond, err = p.parseCondition(); err != nil {
					return err
				}
				head = "else if (" + cond + ")"
			} else {
				seenElse = true
				if err := p.expectTagClose(); err != nil {
					return err
				}
			}
			p.gen.Close()
			p.gen.Open(head)
		case token.ENDIF:
			if err := p.pop(end, token.IF); err != nil {
				return err
			}
			if err := p.expectTagClose(); err != nil {
				return err
			}
			p.gen.Close()
			return nil
		default:
			return p.unexpected(end)
		}
	}
}

// expectOpen checks that a splitting tag belongs to the innermost construct.
func (p *Parser) expectOpen(tok token.Token, opener token.TokenType) error {
	if len(p.status) == 0 || p.status[len(p.status)-1].tok.Type != opener {
		return p.unexpected(tok)
	}
	return nil
}

// parseFor handles {% for x in items %} and {% for k, v in items %}, with
// an optional {% empty %} branch immediately before {% endfor %}.
func (p *Parser) parseFor(kw token.Token) error {
	lx := p.lx
	names := make([]string, 0, 2)
	for {
		tok := lx.NextSignificant()
		if !tok.IsWord() {
			return p.errorf(cerr.Structural, "expected loop variable, got %q", tok.Literal)
		}
		if err := p.checkName(tok.Literal); err != nil {
			return err
		}
		names = append(names, tok.Literal)

		tok = lx.NextSignificant()
		if tok.Type == token.IN {
			break
		}
		if tok.Type != token.COMMA || len(names) == 2 {
			return p.errorf(cerr.Structural, "expected in after loop variables, got %q", tok.Literal)
		}
	}
	if len(names) == 2 && names[0] == names[1] {
		return p.errorf(cerr.Structural, "loop variables must differ, both are %s", names[0])
	}

	path, err := p.readPath(lx.NextSignificant())
	if err != nil {
		return err
	}
	items, err := p.vars.Resolve(path)
	if err != nil {
		return p.errorf(cerr.Resolution, "%v", err)
	}
	if err := p.expectTagClose(); err != nil {
		return err
	}

	var bindings []registry.Field
	switch {
	case items.Kind == registry.Map && len(names) == 2:
		bindings = []registry.Field{field(names[0], items.Key()), field(names[1], items.Elem())}
	case items.Kind == registry.Map, items.Kind.IsSequence() && len(names) == 1:
		bindings = []registry.Field{field(names[0], items.Elem())}
	case items.Kind.IsSequence():
		return p.errorf(cerr.Resolution, "%s is %s; two loop variables need a map", joinPath(path), items)
	default:
		return p.errorf(cerr.Resolution, "cannot iterate over %s of type %s", joinPath(path), items)
	}

	expr := joinPath(path)
	it := p.gen.NextIterator()
	p.gen.Open(fmt.Sprintf("for (%s::const_iterator %s = %s.begin(); %s != %s.end(); ++%s)", items, it, expr, it, expr, it))
	switch {
	case len(bindings) == 2:
		p.gen.Statement("const %s &%s = %s->first;", bindings[0].Type, bindings[0].Name, it)
		p.gen.Statement("const %s &%s = %s->second;", bindings[1].Type, bindings[1].Name, it)
	case items.Kind == registry.Map:
		p.gen.Statement("const %s &%s = %s->second;", bindings[0].Type, bindings[0].Name, it)
	default:
		p.gen.Statement("const %s &%s = *%s;", bindings[0].Type, bindings[0].Name, it)
	}
	p.vars.Push(bindings...)
	p.push(kw, "")

	inEmpty := false
	for {
		end, err := p.parseBody()
		if err != nil {
			return err
		}
		switch end.Type {
		case token.EMPTY:
			if err := p.expectOpen(end, token.FOR); err != nil {
				return err
			}
			if inEmpty {
				return p.errorf(cerr.Structural, "{%% empty %%} may appear only once per loop")
			}
			if err := p.expectTagClose(); err != nil {
				return err
			}
			inEmpty = true
			if _, err := p.vars.Pop(); err != nil {
				return err
			}
			p.gen.Close()
			p.gen.Open("if (" + expr + ".empty())")
		case token.ENDFOR:
			if err := p.pop(end, token.FOR); err != nil {
				return err
			}
			if err := p.expectTagClose(); err != nil {
				return err
			}
			if !inEmpty {
				if _, err := p.vars.Pop(); err != nil {
					return err
				}
			}
			p.gen.Close()
			return nil
		default:
			return p.unexpected(end)
		}
	}
}

func field(name string, typ *registry.Type) registry.Field {
	return registry.Field{Name: name, TypeString: typ.String(), Type: typ}
}

// parseAutoescape handles {% autoescape on|off %} ... {% endautoescape %}.
func (p *Parser) parseAutoescape(kw token.Token) error {
	mode := p.lx.NextSignificant()
	var on bool
	switch mode.Literal {
	case "on":
		on = true
	case "off":
	default:
		return p.errorf(cerr.Structural, "autoescape expects on or off, got %q", mode.Literal)
	}
	if err := p.expectTagClose(); err != nil {
		return err
	}

	p.push(kw, "")
	p.escape = append(p.escape, on)
	end, err := p.parseBody()
	if err != nil {
		return err
	}
	if end.Type != token.ENDAUTOESCAPE {
		return p.unexpected(end)
	}
	if err := p.pop(end, token.AUTOESCAPE); err != nil {
		return err
	}
	p.escape = p.escape[:len(p.escape)-1]
	return p.expectTagClose()
}

func (p *Parser) autoescape() bool {
	return p.escape[len(p.escape)-1]
}
