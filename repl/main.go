// Command nob is an interactive shell front end. It pairs a raw-terminal
// line editor (inline suggestions, history navigation) with an agent mode
// where a text-generation API proposes shell commands that only run after
// explicit approval.
//
// Usage:
//
//	nob                  # interactive session
//	nob config path      # print config file location
//	nob config init      # write a default config file
//	nob config get       # print the effective config
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	nob "github.com/hetpatel-11/nob"
	defaults "github.com/hetpatel-11/nob/default"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("verbose", false, "log debug detail to stderr")
	flag.Parse()

	if *showVersion {
		fmt.Println("nob", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if args := flag.Args(); len(args) > 0 {
		os.Exit(runSubcommand(args))
	}

	if err := runSession(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runSubcommand(args []string) int {
	switch args[0] {
	case "help":
		printHelp(os.Stdout)
		return 0
	case "config":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: nob config get|path|init")
			return 2
		}
		return runConfig(args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printHelp(os.Stderr)
		return 2
	}
}

func runConfig(verb string) int {
	switch verb {
	case "path":
		fmt.Println(nob.ConfigPath())
		return 0

	case "init":
		path := nob.ConfigPath()
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "config already exists: %s\n", path)
			return 1
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if err := os.WriteFile(path, defaults.DefaultConfigJSON, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Println("wrote", path)
		return 0

	case "get":
		cfg, err := nob.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown config verb: %s\n", verb)
		return 2
	}
}

func printHelp(w *os.File) {
	fmt.Fprint(w, `nob - interactive shell with an approval-gated agent

usage:
  nob [-verbose]        start an interactive session
  nob config path       print the config file location
  nob config init       write a default config file
  nob config get        print the effective config
  nob -version          print version

inside a session:
  on / off              switch agent mode on or off
  clear                 reset the agent conversation
  help, version         session info
  exit / quit           leave

manual mode runs input as shell commands with inline suggestions.
agent mode sends input to the configured model; proposed commands run
only after you approve them.
`)
}
