package compiler

import (
	"log/slog"
	"path/filepath"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/compiler/generator"
	"github.com/btouchard/lemon/internal/compiler/header"
	"github.com/btouchard/lemon/internal/compiler/parser"
	"github.com/btouchard/lemon/internal/compiler/registry"
)

// DefaultOutputSuffix is appended to a template path to name its output.
const DefaultOutputSuffix = ".cpp"

type Options struct {
	Runtime      generator.Runtime
	Autoescape   bool
	MaxDepth     int
	OutputSuffix string
	Logger       *slog.Logger
}

// Output is one generated source file. Nothing is written to disk.
type Output struct {
	Template     string
	Path         string // suggested destination
	Code         string
	Function     string   // render function name
	Dependencies []string // template files first, then declaration files
}

// Compiler accumulates declarations and compiles templates against them.
type Compiler struct {
	reg  *registry.Registry
	ex   *header.Extractor
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Compiler {
	if opts.Runtime == (generator.Runtime{}) {
		opts.Runtime = generator.DefaultRuntime()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = parser.DefaultMaxDepth
	}
	if opts.OutputSuffix == "" {
		opts.OutputSuffix = DefaultOutputSuffix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	reg := registry.New()
	ex := header.New(reg, opts.Logger)
	ex.MaxDepth = opts.MaxDepth
	return &Compiler{reg: reg, ex: ex, opts: opts, log: opts.Logger}
}

func (c *Compiler) Registry() *registry.Registry {
	return c.reg
}

// Declarations lists every declaration file read so far.
func (c *Compiler) Declarations() []string {
	return c.ex.Sources()
}

// LoadDeclarations reads declaration files in order. Registrations
// accumulate across calls; the first failing file stops the load.
func (c *Compiler) LoadDeclarations(paths ...string) error {
	for _, path := range paths {
		if err := c.ex.Load(path); err != nil {
			return err
		}
		c.log.Debug("declarations loaded", "file", path, "classes", c.reg.Len())
	}
	return nil
}

// CompileTemplate compiles the template at path into a complete source file.
// On error no output is produced.
func (c *Compiler) CompileTemplate(path string) (*Output, error) {
	p := parser.New(c.reg, parser.Options{
		Runtime:    c.opts.Runtime,
		Autoescape: c.opts.Autoescape,
		MaxDepth:   c.opts.MaxDepth,
		Logger:     c.log,
	})
	res, err := p.Parse(path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, cerr.Wrap(err, cerr.IO, cerr.Position{File: path}, "", "cannot resolve template path")
	}
	includes := make([]string, 0, len(c.ex.Files()))
	for _, decl := range c.ex.Files() {
		includes = append(includes, includePath(filepath.Dir(abs), decl))
	}

	code := generator.Render(c.opts.Runtime, generator.Unit{
		Source:    filepath.ToSlash(path),
		Includes:  includes,
		Interface: res.Interface,
		Body:      res.Body,
	})

	deps := append([]string(nil), res.Dependencies...)
	deps = append(deps, c.ex.Sources()...)
	return &Output{
		Template:     path,
		Path:         path + c.opts.OutputSuffix,
		Code:         code,
		Function:     res.Interface.Name,
		Dependencies: deps,
	}, nil
}

// includePath spells decl relative to the directory of the generated file.
func includePath(dir, decl string) string {
	rel, err := filepath.Rel(dir, decl)
	if err != nil {
		return filepath.ToSlash(decl)
	}
	return filepath.ToSlash(rel)
}
