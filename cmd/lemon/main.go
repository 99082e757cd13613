package main

import (
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compile":
		cmdCompile(os.Args[2:])
	case "check":
		cmdCheck(os.Args[2:])
	case "build":
		cmdBuild(os.Args[2:])
	case "watch":
		cmdWatch(os.Args[2:])
	case "version":
		fmt.Println("lemon", version)
	case "help", "-h", "--help":
		usage()
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `Usage: lemon <command> [flags]

Commands:
  compile   compile templates to C++ render functions
  check     compile templates without writing output
  build     compile every template under the configured root
  watch     build, then rebuild on every change
  version   print the version

Run "lemon <command> -h" for the flags of a command.
`)
}
