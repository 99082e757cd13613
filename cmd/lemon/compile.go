package main

import (
	"flag"
	"fmt"
	"os"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
)

func cmdCompile(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	output := fs.String("o", "", "output file (single template only; default: template path + suffix)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: lemon compile [-c lemon.toml] [-H decl.h]... [-o out.cpp] <template>...\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	if *output != "" && fs.NArg() > 1 {
		_, _ = fmt.Fprintln(os.Stderr, "Error: -o needs exactly one template")
		os.Exit(1)
	}

	if err := compileFiles(&common, fs, fs.Args(), *output, true); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: lemon check [-c lemon.toml] [-H decl.h]... [template...]\n\nWithout templates, every template under the configured root is checked.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if err := compileFiles(&common, fs, fs.Args(), "", false); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// compileFiles compiles every template independently and reports all
// failures together. With write unset nothing touches the disk.
func compileFiles(common *commonFlags, fs *flag.FlagSet, templates []string, output string, write bool) error {
	cfg, log, err := common.load(fs)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		if templates, err = discover(cfg); err != nil {
			return err
		}
	}

	c, err := newCompiler(cfg, log)
	if err != nil {
		return err
	}

	errs := cerr.NewErrorList()
	for _, tpl := range templates {
		dest := tpl + cfg.Compiler.OutputSuffix
		if output != "" {
			dest = output
		}
		out, err := c.CompileTemplate(tpl)
		if err != nil {
			errs.Add(err)
			if write {
				removeStale(dest, log)
			}
			continue
		}
		if !write {
			fmt.Printf("%s ok (%s)\n", tpl, out.Function)
			continue
		}
		if err := writeOutput(dest, out.Code); err != nil {
			errs.Add(err)
			continue
		}
		fmt.Printf("Generated %s\n", dest)
	}
	return errs.Err()
}
