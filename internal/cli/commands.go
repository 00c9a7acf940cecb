// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Shell-mode dispatch and environment commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/hyshell/internal/history"
	"github.com/jeranaias/hyshell/internal/shell"
	"github.com/jeranaias/hyshell/internal/ui"
)

// handleShell processes one shell-mode input line.
func (s *Shell) handleShell(input string) {
	switch strings.ToLower(input) {
	case "ai":
		s.mode = ModeAI
		fmt.Println(successStyle.Render("→ AI Mode"))
		return
	case "exit", "quit":
		s.quit = true
		return
	case "clear":
		clearTerminal()
		return
	}

	if strings.HasPrefix(input, "!") {
		s.handleEnvCommand(input)
		return
	}

	s.execute(input)
}

// execute runs a command, prints its output, and records it in both
// the AI context store and the persistent command history.
func (s *Shell) execute(input string) {
	result, err := s.executor.Execute(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("❌"), err)
		s.recordShellEntry(input, "Error: "+err.Error(), result)
		return
	}

	if result.Command == "" {
		return
	}

	if result.Output != "" && !result.Interactive {
		output := result.Output
		if s.cfg.UI.SyntaxHighlight {
			output = ui.HighlightFileOutput(result.Command, output)
		}
		fmt.Println(output)
	}
	if result.ExitCode != 0 {
		fmt.Println(warningStyle.Render(fmt.Sprintf("exit code %d", result.ExitCode)))
	}

	// cd changes what the prompt and detectors should report.
	if strings.HasPrefix(result.Command, "cd") {
		s.detector.Invalidate()
	}

	s.recordShellEntry(result.Command, result.Output, result)
}

// recordShellEntry feeds one execution into the context store and the
// SQLite history. Both sinks tolerate failure.
func (s *Shell) recordShellEntry(command, output string, result shell.Result) {
	dir := result.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}

	s.store.AddShellEntry(command, output, result.ExitCode, dir)

	if err := s.commands.Add(command, dir, result.ExitCode); err != nil {
		fmt.Fprintf(os.Stderr, "%s history: %v\n", dimStyle.Render("note:"), err)
	}
}

// handleEnvCommand dispatches the !-prefixed environment commands.
func (s *Shell) handleEnvCommand(input string) {
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		fmt.Println(warningStyle.Render("Unknown environment command"))
		return
	}

	switch fields[0] {
	case "env":
		out := s.detector.EnvSummary()
		fmt.Println(out)
		s.recordShellEntry(input, "Environment status displayed", shell.Result{})
	case "git":
		out := s.detector.GitSummary()
		fmt.Println(out)
		s.recordShellEntry(input, "Git repository information displayed", shell.Result{})
	case "status":
		out := s.detector.StatusSummary()
		fmt.Println(out)
		s.recordShellEntry(input, "Detailed system information displayed", shell.Result{})
	case "history":
		s.showCommandHistory(fields[1:])
	default:
		fmt.Println(warningStyle.Render("Unknown environment command: " + fields[0]))
	}
}

// showCommandHistory prints recent or matching commands from SQLite.
func (s *Shell) showCommandHistory(args []string) {
	const limit = 20

	if !s.commands.Available() {
		fmt.Println(warningStyle.Render("Command history is unavailable"))
		return
	}

	var (
		records []history.Record
		err     error
	)
	if len(args) > 0 {
		records, err = s.commands.Search(strings.Join(args, " "), limit)
	} else {
		records, err = s.commands.Recent(limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("❌"), err)
		return
	}
	if len(records) == 0 {
		fmt.Println(infoStyle.Render("No matching commands"))
		return
	}

	for _, r := range records {
		status := " "
		if r.ExitCode != 0 {
			status = "!"
		}
		fmt.Printf("%s %s %s  %s\n",
			dimStyle.Render(r.RanAt.Format("15:04:05")),
			status,
			r.Command,
			dimStyle.Render(r.Dir))
	}
}

// clearTerminal clears the screen and scrollback.
func clearTerminal() {
	fmt.Print("\033[2J\033[3J\033[H")
}
