package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"init": true, "add": true, "get": true, "list": true, "update": true,
	"search": true, "stats": true, "tags": true, "render": true, "paths": true,
	"import": true, "export": true, "reindex": true, "repair": true,
	"mcp": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags come before the subcommand.
	if arg == "--root" || strings.HasPrefix(arg, "--root=") {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// printBanner displays a short usage banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___ ___ ___
  / __/ __| _ \
 | (_| (__|  _/
  \___\___|_|

  Dated entry store

  Usage: ccp [--root DIR] <command> [options]
         ccp --help

  MCP server mode requires piped input.`)
}

// exitWith prints err to stderr and exits with status 1.
func exitWith(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no store.
	if isHelpOrVersion(os.Args) {
		if err := newCLIApp(&appState{}).Run(os.Args); err != nil {
			exitWith(err)
		}
		return
	}

	if isCLIMode(os.Args) {
		state := &appState{}
		defer state.Close()
		if err := newCLIApp(state).Run(os.Args); err != nil {
			exitWith(err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'ccp --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default) on the default root.
	state := &appState{}
	defer state.Close()
	env, err := state.open("")
	if err != nil {
		exitWith(fmt.Errorf("error: %w", err))
	}
	if err := serveMCP(env); err != nil {
		exitWith(fmt.Errorf("error: %w", err))
	}
}
