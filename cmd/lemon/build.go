package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/btouchard/lemon/internal/cache"
	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/config"
)

func cmdBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	force := fs.Bool("f", false, "ignore the cache and rebuild everything")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: lemon build [-c lemon.toml] [-f]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	cfg, log, err := common.load(fs)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	b, err := newBuilder(cfg, log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer b.close()

	stats, err := b.run(*force)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		b.close()
		os.Exit(1)
	}
	fmt.Printf("Built %d template(s), %d up to date\n", stats.built, stats.skipped)
}

// builder compiles the configured template tree, skipping templates whose
// cached output is still current.
type builder struct {
	cfg   *config.Config
	log   *slog.Logger
	store *cache.Store
}

type buildStats struct {
	built, skipped int
}

func newBuilder(cfg *config.Config, log *slog.Logger) (*builder, error) {
	b := &builder{cfg: cfg, log: log}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path, log)
		if err != nil {
			return nil, err
		}
		b.store = store
	}
	return b, nil
}

func (b *builder) close() {
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			b.log.Warn("closing cache", "error", err)
		}
		b.store = nil
	}
}

func (b *builder) run(force bool) (buildStats, error) {
	var stats buildStats
	templates, err := discover(b.cfg)
	if err != nil {
		return stats, err
	}

	// declarations are re-read every run so header edits are picked up
	c, err := newCompiler(b.cfg, b.log)
	if err != nil {
		return stats, err
	}

	key := compileKey(b.cfg, c)
	errs := cerr.NewErrorList()
	for _, tpl := range templates {
		if !force && b.fresh(tpl, key) {
			stats.skipped++
			continue
		}
		out, err := c.CompileTemplate(tpl)
		if err != nil {
			errs.Add(err)
			b.forget(tpl)
			removeStale(tpl+b.cfg.Compiler.OutputSuffix, b.log)
			continue
		}
		if err := writeOutput(out.Path, out.Code); err != nil {
			errs.Add(err)
			continue
		}
		stats.built++
		fmt.Printf("Generated %s\n", out.Path)
		if b.store != nil {
			if err := b.store.Record(tpl, out.Path, key, out.Dependencies); err != nil {
				b.log.Warn("recording cache entry", "template", tpl, "error", err)
			}
		}
	}
	b.log.Info("build finished", "built", stats.built, "skipped", stats.skipped, "failed", len(errs.Errors))
	b.summary()
	return stats, errs.Err()
}

// summary logs, at debug level, every cache entry this process wrote.
func (b *builder) summary() {
	if b.store == nil || !b.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	entries, err := b.store.Entries()
	if err != nil {
		b.log.Warn("listing cache", "error", err)
		return
	}
	for _, e := range entries {
		if e.BuildID != b.store.BuildID() {
			continue
		}
		b.log.Debug("compiled", "template", e.Template, "output", e.Output,
			"dependencies", len(e.Dependencies), "build", e.BuildID)
	}
}

func (b *builder) fresh(tpl, key string) bool {
	if b.store == nil {
		return false
	}
	ok, err := b.store.Fresh(tpl, key)
	if err != nil {
		b.log.Warn("reading cache", "template", tpl, "error", err)
		return false
	}
	return ok
}

func (b *builder) forget(tpl string) {
	if b.store == nil {
		return
	}
	if err := b.store.Forget(tpl); err != nil {
		b.log.Warn("dropping cache entry", "template", tpl, "error", err)
	}
}
