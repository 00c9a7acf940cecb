// hyshell - A hybrid shell with streaming AI responses.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/hyshell/internal/cli"
	"github.com/jeranaias/hyshell/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("hyshell %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		// Configuration problems fall back to defaults and keep going.
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
	}

	sh, err := cli.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Hot-reload the config file while the shell runs. Option changes apply
	// to the next exchange, never a stream in flight.
	if path, perr := config.ConfigPathTOML(); perr == nil {
		if watcher, werr := config.NewWatcher(path, sh.ApplyConfig); werr == nil {
			if watcher.Watch() == nil {
				defer watcher.Close()
			}
		}
	}

	if err := sh.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hyshell - hybrid shell with streaming AI

Usage:
  hyshell            start the interactive shell
  hyshell version    print version information
  hyshell help       show this help

Inside the shell:
  ai / shell         switch between AI and shell mode
  !env !git !status  environment commands
  !history [terms]   search command history
  exit               quit`)
}
