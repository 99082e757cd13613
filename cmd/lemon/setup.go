package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/btouchard/lemon/internal/compiler"
	"github.com/btouchard/lemon/internal/compiler/generator"
	"github.com/btouchard/lemon/internal/config"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	config       string
	declarations listFlag
	autoescape   bool
	verbose      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "c", config.DefaultFile, "configuration file")
	fs.Var(&c.declarations, "H", "declaration file (repeatable, added to the configured ones)")
	fs.BoolVar(&c.autoescape, "autoescape", false, "escape every variable by default")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
}

// load reads the configuration and applies command-line overrides.
func (c *commonFlags) load(fs *flag.FlagSet) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadOptional(c.config)
	if err != nil {
		return nil, nil, err
	}
	cfg.Declarations.Files = append(cfg.Declarations.Files, c.declarations...)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "autoescape" {
			cfg.Compiler.Autoescape = c.autoescape
		}
	})
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newLogger(lc config.Log) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

// newCompiler builds a compiler with every configured declaration loaded.
func newCompiler(cfg *config.Config, log *slog.Logger) (*compiler.Compiler, error) {
	c := compiler.New(compiler.Options{
		Runtime: generator.Runtime{
			Namespace: cfg.Compiler.RuntimeNamespace,
			Header:    cfg.Compiler.RuntimeHeader,
		},
		Autoescape:   cfg.Compiler.Autoescape,
		MaxDepth:     cfg.Compiler.MaxIncludeDepth,
		OutputSuffix: cfg.Compiler.OutputSuffix,
		Logger:       log,
	})
	if err := c.LoadDeclarations(cfg.Declarations.Files...); err != nil {
		return nil, err
	}
	for _, cl := range c.Registry().Classes() {
		log.Debug("class declared", "name", cl.QualifiedName(), "fields", len(cl.Fields))
	}
	return c, nil
}

// compileKey spells the settings that shape generated code besides the
// template files themselves: compiler options and the declaration set.
func compileKey(cfg *config.Config, c *compiler.Compiler) string {
	var b strings.Builder
	fmt.Fprintf(&b, "autoescape=%t\n", cfg.Compiler.Autoescape)
	fmt.Fprintf(&b, "runtime_header=%s\n", cfg.Compiler.RuntimeHeader)
	fmt.Fprintf(&b, "runtime_namespace=%s\n", cfg.Compiler.RuntimeNamespace)
	fmt.Fprintf(&b, "output_suffix=%s\n", cfg.Compiler.OutputSuffix)
	fmt.Fprintf(&b, "max_include_depth=%d\n", cfg.Compiler.MaxIncludeDepth)
	for _, decl := range c.Declarations() {
		fmt.Fprintf(&b, "declaration=%s\n", decl)
	}
	return b.String()
}

func writeOutput(path, code string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// removeStale deletes the output a failed template left from an earlier
// successful compilation, so nothing downstream builds against it.
func removeStale(path string, log *slog.Logger) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Info("removed stale output", "path", path)
	case !os.IsNotExist(err):
		log.Warn("removing stale output", "path", path, "error", err)
	}
}

// discover lists the templates under the configured root, sorted.
func discover(cfg *config.Config) ([]string, error) {
	m, err := cfg.Matcher()
	if err != nil {
		return nil, err
	}
	root := cfg.Templates.Root
	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if m.Match(rel) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return out, nil
}
