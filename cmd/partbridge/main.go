package main

import (
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                  _   _          _     _
   _ __  __ _ _ _| |_| |__ _ _ _(_)__| |__ _ ___
  | '_ \/ _' | '_|  _| '_ \ '_| / _' / _' / -_)
  | .__/\__,_|_|  \__|_.__/_| |_\__,_\__, \___|
  |_|                                |___/

  Vendor archive importer for KiCad libraries

  Usage: partbridge <command> [options]
         partbridge --help

  MCP server mode requires piped input.`)
}

// resolveArgs maps a bare invocation with piped stdin to the MCP server.
func resolveArgs(args []string, terminal bool) []string {
	if len(args) < 2 && !terminal {
		return append(args, "serve")
	}
	return args
}

func main() {
	terminal := isTerminal()

	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && terminal {
		printBanner()
		return
	}

	app := newCLIApp(openFromConfig)
	if err := app.Run(resolveArgs(os.Args, terminal)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
