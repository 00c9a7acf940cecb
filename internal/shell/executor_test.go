// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"
)

func newTestExecutor() *Executor {
	return NewExecutor(10*time.Second, 64*1024)
}

func TestNormalize(t *testing.T) {
	// Fullwidth characters normalize to ASCII under NFKC.
	got := Normalize("ｌｓ　-la")
	if !strings.HasPrefix(got, "ls") {
		t.Errorf("Normalize = %q, want ls prefix", got)
	}

	if Normalize("  echo hi  ") != "echo hi" {
		t.Error("Normalize should trim surrounding whitespace")
	}
}

func TestIsInteractive(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"vim main.go", true},
		{"nano", true},
		{"htop", true},
		{"ssh host", true},
		{"cat file.txt | less", true},
		{"ls -la", false},
		{"echo hello", false},
		{"git status", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsInteractive(tt.command); got != tt.want {
			t.Errorf("IsInteractive(%q) = %v, want %v", tt.command, got, tt.want)
		}
	}
}

func TestExecuteCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash required")
	}
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Output, "hello") {
		t.Errorf("output = %q, want hello", result.Output)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if result.Dir == "" {
		t.Error("dir not recorded")
	}
}

func TestExecuteStderrTagged(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash required")
	}
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Output, "STDERR:") {
		t.Errorf("output missing STDERR tag: %q", result.Output)
	}
	if !strings.Contains(result.Output, "err") {
		t.Errorf("output missing stderr content: %q", result.Output)
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash required")
	}
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), "exit 3")
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestExecuteTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash required")
	}
	e := NewExecutor(200*time.Millisecond, 64*1024)

	_, err := e.Execute(context.Background(), "sleep 5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var shellErr *ShellError
	if !errors.As(err, &shellErr) {
		t.Fatalf("error type = %T, want *ShellError", err)
	}
	if !strings.Contains(shellErr.Reason, "timed out") {
		t.Errorf("reason = %q, want timeout", shellErr.Reason)
	}
}

func TestExecuteOutputTruncated(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash required")
	}
	e := NewExecutor(10*time.Second, 100)

	result, err := e.Execute(context.Background(), "printf 'x%.0s' {1..500}")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Truncated {
		t.Error("expected truncated output")
	}
	if !strings.Contains(result.Output, "[Output truncated at 100 bytes]") {
		t.Errorf("output missing truncation marker: %q", result.Output)
	}
}

func TestExecuteEmptyCommand(t *testing.T) {
	e := newTestExecutor()

	result, err := e.Execute(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Command != "" {
		t.Errorf("empty command should be a no-op, got %+v", result)
	}
}

func TestChangeDir(t *testing.T) {
	e := newTestExecutor()

	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	dir := t.TempDir()
	result, err := e.Execute(context.Background(), "cd "+dir)
	if err != nil {
		t.Fatalf("cd: %v", err)
	}
	if !strings.Contains(result.Output, "Changed directory to:") {
		t.Errorf("output = %q", result.Output)
	}

	now, _ := os.Getwd()
	if now != result.Dir {
		t.Errorf("Getwd = %q, result dir = %q", now, result.Dir)
	}
}

func TestChangeDirMissing(t *testing.T) {
	e := newTestExecutor()

	_, err := e.Execute(context.Background(), "cd /definitely/does/not/exist")
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	var shellErr *ShellError
	if !errors.As(err, &shellErr) {
		t.Fatalf("error type = %T, want *ShellError", err)
	}
}

func TestChangeDirHome(t *testing.T) {
	e := newTestExecutor()

	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	result, err := e.Execute(context.Background(), "cd")
	if err != nil {
		t.Fatalf("cd: %v", err)
	}
	if result.Dir != home {
		t.Errorf("dir = %q, want %q", result.Dir, home)
	}
}

func TestShellErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &ShellError{Command: "ls", Reason: "failed", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find inner error")
	}
	if !strings.Contains(err.Error(), "failed") {
		t.Errorf("Error() = %q", err.Error())
	}
}
