package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/btouchard/lemon/internal/watcher"
)

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: lemon watch [-c lemon.toml]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, &common, fs); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func watch(ctx context.Context, common *commonFlags, fs *flag.FlagSet) error {
	cfg, log, err := common.load(fs)
	if err != nil {
		return err
	}
	b, err := newBuilder(cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	rebuild := func() {
		if _, err := b.run(false); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
	rebuild()

	// generated files land next to their templates; ignore them
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, []string{".*"}, []string{"*" + cfg.Compiler.OutputSuffix, ".*", "*~"}, func(paths []string) {
		log.Info("change detected", "files", len(paths))
		rebuild()
	})
	if err != nil {
		return err
	}
	w.SetLogger(log)
	defer w.Close()

	paths := append([]string{cfg.Templates.Root}, cfg.Declarations.Files...)
	if err := w.Watch(paths); err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", cfg.Templates.Root)
	<-ctx.Done()
	log.Info("watch stopped")
	return nil
}
