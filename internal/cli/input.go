// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// input.go - Line input with persistent history for the hyshell REPL.
package cli

import (
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/hyshell/internal/config"
)

// InputReader provides readline-style input with arrow-key history
// navigation persisted across sessions.
type InputReader struct {
	line        *liner.State
	historyFile string
}

// NewInputReader creates an input reader and loads saved history.
func NewInputReader() *InputReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.InputHistoryPath()
	if err != nil {
		historyFile = ""
	}

	r := &InputReader{
		line:        line,
		historyFile: historyFile,
	}
	r.loadHistory()
	return r
}

func (r *InputReader) loadHistory() {
	if r.historyFile == "" {
		return
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads one line of input. Non-empty lines join the history.
func (r *InputReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory writes history with owner-only permissions.
func (r *InputReader) saveHistory() {
	if r.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (r *InputReader) Close() {
	r.saveHistory()
	r.line.Close()
}
