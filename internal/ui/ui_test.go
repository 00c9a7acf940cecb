// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/hyshell/internal/cloud"
	"github.com/jeranaias/hyshell/internal/stream"
)

func newViewSession() *stream.Session {
	client := cloud.NewClient("fw-test")
	return stream.NewSession(client, 20, cloud.DefaultOptions())
}

func TestStreamViewShowsPlaceholderBeforeContent(t *testing.T) {
	v := NewStreamView(newViewSession())

	out := v.View()
	if !strings.Contains(out, "🤔 Connecting to AI...") {
		t.Errorf("view = %q, want connecting placeholder", out)
	}
}

func TestStreamViewRendersBufferContent(t *testing.T) {
	session := newViewSession()
	session.Buffer().AddChunk("Hello world")

	v := NewStreamView(session)
	out := v.View()
	if !strings.Contains(out, "Hello world") {
		t.Errorf("view = %q, want buffer content", out)
	}
	if !strings.Contains(out, "▊") {
		t.Errorf("view = %q, want cursor", out)
	}
}

func TestStreamViewStatusLineHasWordCount(t *testing.T) {
	session := newViewSession()
	session.Buffer().AddChunk("one two three")

	v := NewStreamView(session)
	out := v.View()
	if !strings.Contains(out, "words") {
		t.Errorf("view = %q, want word count in status", out)
	}
}

func TestStreamViewQuitsOnComplete(t *testing.T) {
	v := NewStreamView(newViewSession())

	_, cmd := v.Update(NewStreamCompleteMsg("ex-1", "done", 1, false))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !v.done {
		t.Error("view should be done")
	}
}

func TestStreamViewRecordsError(t *testing.T) {
	v := NewStreamView(newViewSession())

	wantErr := errors.New("boom")
	v.Update(NewStreamErrorMsg("ex-1", wantErr))

	if v.Err() != wantErr {
		t.Errorf("Err = %v, want %v", v.Err(), wantErr)
	}
	if !strings.Contains(v.View(), "boom") {
		t.Errorf("view = %q, want error text", v.View())
	}
}

func TestStreamViewTickContinuesUntilDone(t *testing.T) {
	v := NewStreamView(newViewSession())

	_, cmd := v.Update(StreamTickMsg{})
	if cmd == nil {
		t.Error("tick should reschedule while active")
	}

	v.Update(NewStreamCompleteMsg("ex-1", "", 0, false))
	_, cmd = v.Update(StreamTickMsg{})
	if cmd != nil {
		t.Error("tick should stop after completion")
	}
}

func TestStreamViewResize(t *testing.T) {
	v := NewStreamView(newViewSession())
	v.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if v.width != 40 {
		t.Errorf("width = %d, want 40", v.width)
	}
}

func TestDetectFileView(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"cat main.go", "go"},
		{"head -20 script.py", "python"},
		{"tail -f app.log", ""},
		{"cat README.md", "markdown"},
		{"ls main.go", ""},
		{"cat", ""},
		{"cat config.TOML", "toml"},
	}

	for _, tt := range tests {
		if got := DetectFileView(tt.command); got != tt.want {
			t.Errorf("DetectFileView(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestHighlightCodeFallsBackToPlain(t *testing.T) {
	code := "package main"
	got := HighlightCode(code, "go")
	if got == "" {
		t.Error("highlighted output should not be empty")
	}
}

func TestHighlightFileOutputPassthrough(t *testing.T) {
	out := HighlightFileOutput("ls -la", "some output")
	if out != "some output" {
		t.Errorf("non-file command should pass through, got %q", out)
	}
}

func TestRenderMarkdownNeverEmpty(t *testing.T) {
	out := RenderMarkdown("# Title\n\nSome **bold** text.")
	if strings.TrimSpace(out) == "" {
		t.Error("rendered markdown should not be empty")
	}
}
