// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shell executes shell-mode commands. Interactive commands run
// attached to the terminal; everything else runs through bash -c with
// captured output that feeds the AI context store.
package shell

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds captured command execution.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxOutputSize caps captured command output.
	DefaultMaxOutputSize = 100 * 1024
)

// interactiveCommands require a TTY and run without output capture.
var interactiveCommands = map[string]bool{
	"nano": true, "vim": true, "vi": true, "nvim": true, "emacs": true,
	"less": true, "more": true, "man": true,
	"top": true, "htop": true, "mc": true, "fzf": true,
	"tmux": true, "screen": true,
	"ssh": true, "psql": true, "mysql": true, "sqlite3": true,
	"redis-cli": true, "mongo": true,
	"python": true, "python3": true, "node": true, "irb": true,
	"bash": true, "zsh": true, "fish": true, "nu": true, "xonsh": true,
	"sudo": true, "apt": true,
}

// =============================================================================
// ERRORS
// =============================================================================

// ShellError describes a failed shell operation.
type ShellError struct {
	Command string
	Reason  string
	Err     error
}

func (e *ShellError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ShellError) Unwrap() error {
	return e.Err
}

// =============================================================================
// EXECUTOR
// =============================================================================

// Result holds the outcome of one executed command.
type Result struct {
	Command     string
	Output      string
	ExitCode    int
	Dir         string
	Duration    time.Duration
	Truncated   bool
	Interactive bool
}

// Executor runs shell commands with capture limits. The zero value is
// not usable; call NewExecutor.
type Executor struct {
	timeout       time.Duration
	maxOutputSize int

	// Stdin/Stdout/Stderr are attached to interactive commands.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// NewExecutor creates an executor with the given limits. Zero values
// fall back to the defaults.
func NewExecutor(timeout time.Duration, maxOutputSize int) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxOutputSize <= 0 {
		maxOutputSize = DefaultMaxOutputSize
	}
	return &Executor{
		timeout:       timeout,
		maxOutputSize: maxOutputSize,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

// Normalize canonicalizes command input to NFKC form so lookalike
// unicode characters resolve to their canonical equivalents.
func Normalize(command string) string {
	return norm.NFKC.String(strings.TrimSpace(command))
}

// IsInteractive reports whether the command (or any pipeline segment)
// starts an interactive program.
func IsInteractive(command string) bool {
	for _, segment := range strings.Split(command, "|") {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		base := filepath.Base(fields[0])
		if interactiveCommands[base] {
			return true
		}
	}
	return false
}

// Execute runs a command and returns its result. The working directory
// of the process itself changes for cd, so later commands and the
// prompt observe it.
func (e *Executor) Execute(ctx context.Context, command string) (Result, error) {
	start := time.Now()
	command = Normalize(command)

	if command == "" {
		return Result{}, nil
	}

	if command == "cd" || strings.HasPrefix(command, "cd ") {
		return e.changeDir(command, start)
	}

	if IsInteractive(command) {
		return e.runInteractive(ctx, command, start)
	}

	return e.runCaptured(ctx, command, start)
}

// changeDir implements the cd builtin with ~ expansion.
func (e *Executor) changeDir(command string, start time.Time) (Result, error) {
	path := strings.TrimSpace(strings.TrimPrefix(command, "cd"))

	if path == "" || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Result{}, &ShellError{Command: command, Reason: "cd: cannot determine home directory", Err: err}
		}
		path = home
	} else if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Result{}, &ShellError{Command: command, Reason: "cd: cannot determine home directory", Err: err}
		}
		path = filepath.Join(home, path[2:])
	}

	if err := os.Chdir(path); err != nil {
		return Result{}, &ShellError{Command: command, Reason: "cd: " + path, Err: err}
	}

	dir, _ := os.Getwd()
	return Result{
		Command:  command,
		Output:   "Changed directory to: " + dir,
		Dir:      dir,
		Duration: time.Since(start),
	}, nil
}

// runInteractive runs the command attached to the terminal. No timeout
// applies; the user drives the program.
func (e *Executor) runInteractive(ctx context.Context, command string, start time.Time) (Result, error) {
	cmd := e.platformCommand(ctx, command)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	err := cmd.Run()
	dir, _ := os.Getwd()
	result := Result{
		Command:     command,
		Dir:         dir,
		Duration:    time.Since(start),
		Interactive: true,
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			result.Output = "Interactive command completed with exit code: " + strconv.Itoa(result.ExitCode)
			return result, nil
		}
		return result, &ShellError{Command: command, Reason: "failed to run interactive command", Err: err}
	}

	result.Output = "Interactive command completed with exit code: 0"
	return result, nil
}

// runCaptured runs the command with captured output and a timeout.
func (e *Executor) runCaptured(ctx context.Context, command string, start time.Time) (Result, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := e.platformCommand(cmdCtx, command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	dir, _ := os.Getwd()

	result := Result{
		Command:  command,
		Dir:      dir,
		Duration: time.Since(start),
	}
	result.Output, result.Truncated = e.buildOutput(&stdout, &stderr)

	if cmdCtx.Err() == context.DeadlineExceeded {
		result.ExitCode = -1
		return result, &ShellError{Command: command, Reason: "command timed out after " + e.timeout.String()}
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, &ShellError{Command: command, Reason: "failed to run command", Err: err}
	}

	return result, nil
}

// platformCommand builds the exec.Cmd for the current platform.
func (e *Executor) platformCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "bash", "-c", command)
}

// buildOutput combines stdout and stderr with truncation.
func (e *Executor) buildOutput(stdout, stderr *bytes.Buffer) (string, bool) {
	var output strings.Builder
	truncated := false

	if stdout.Len() > 0 {
		outStr := stdout.String()
		if len(outStr) > e.maxOutputSize {
			outStr = outStr[:e.maxOutputSize]
			truncated = true
		}
		output.WriteString(outStr)
	}

	if stderr.Len() > 0 {
		if output.Len() > 0 {
			output.WriteString("\n\nSTDERR:\n")
		}
		errStr := stderr.String()
		remaining := e.maxOutputSize - output.Len()
		if remaining > 0 {
			if len(errStr) > remaining {
				errStr = errStr[:remaining]
				truncated = true
			}
			output.WriteString(errStr)
		} else {
			truncated = true
		}
	}

	result := output.String()
	if truncated {
		result += "\n\n[Output truncated at " + strconv.Itoa(e.maxOutputSize) + " bytes]"
	}
	return result, truncated
}
