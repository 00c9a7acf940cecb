// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"testing"
)

func TestBufferPlaceholderBeforeContent(t *testing.T) {
	b := NewRollingBuffer(20)
	if got := b.View(); got != connectingPlaceholder {
		t.Errorf("expected connecting placeholder, got %q", got)
	}
}

func TestBufferSingleChunk(t *testing.T) {
	b := NewRollingBuffer(20)
	b.AddChunk("Hello")
	if got := b.View(); got != "Hello"+Cursor {
		t.Errorf("expected %q, got %q", "Hello"+Cursor, got)
	}
}

func TestBufferWindowKeepsLatestLine(t *testing.T) {
	// With a one-line window, only the live trailing line is shown once a
	// completed line has scrolled past.
	b := NewRollingBuffer(1)
	for _, chunk := range []string{"Hello ", "world\n", "second ", "line"} {
		b.AddChunk(chunk)
	}
	if got := b.View(); got != "second line"+Cursor {
		t.Errorf("expected %q, got %q", "second line"+Cursor, got)
	}
}

func TestBufferNoCursorWithoutTrailingLine(t *testing.T) {
	b := NewRollingBuffer(20)
	b.AddChunk("done\n")
	if got := b.View(); strings.Contains(got, Cursor) {
		t.Errorf("cursor should not render with empty trailing line: %q", got)
	}
}

func TestBufferTrimsToWindow(t *testing.T) {
	b := NewRollingBuffer(3)
	for i := 0; i < 10; i++ {
		b.AddChunk("line\n")
	}
	if n := len(b.VisibleLines()); n != 3 {
		t.Errorf("expected 3 visible lines, got %d", n)
	}
	if full := b.FullContent(); strings.Count(full, "\n") != 10 {
		t.Errorf("full content must keep all lines, got %q", full)
	}
}

func TestBufferFullContentAccumulates(t *testing.T) {
	b := NewRollingBuffer(2)
	b.AddChunk("alpha\nbeta\n")
	b.AddChunk("gamma")
	if got := b.FullContent(); got != "alpha\nbeta\ngamma" {
		t.Errorf("unexpected full content: %q", got)
	}
}

func TestBufferWordCount(t *testing.T) {
	b := NewRollingBuffer(20)
	b.AddChunk("one two ")
	if b.WordCount() != 2 {
		t.Errorf("expected 2 words, got %d", b.WordCount())
	}
	b.AddChunk("three\nfour  five")
	if b.WordCount() != 5 {
		t.Errorf("expected 5 words, got %d", b.WordCount())
	}
}

func TestBufferWordCountSplitAcrossChunks(t *testing.T) {
	// A word split across chunk boundaries counts once.
	b := NewRollingBuffer(20)
	b.AddChunk("hel")
	b.AddChunk("lo")
	if b.WordCount() != 1 {
		t.Errorf("expected 1 word, got %d", b.WordCount())
	}
}

func TestBufferReset(t *testing.T) {
	b := NewRollingBuffer(20)
	b.AddChunk("content\nmore")
	b.Reset()
	if b.FullContent() != "" || b.WordCount() != 0 {
		t.Error("reset did not clear content")
	}
	if got := b.View(); got != connectingPlaceholder {
		t.Errorf("reset buffer should show placeholder, got %q", got)
	}
}

func TestBufferWhitespaceOnlyShowsPlaceholder(t *testing.T) {
	b := NewRollingBuffer(20)
	b.AddChunk("\n\n")
	if got := b.View(); got != connectingPlaceholder {
		t.Errorf("whitespace-only window should show placeholder, got %q", got)
	}
}

func TestBufferSeedResume(t *testing.T) {
	b := NewRollingBuffer(20)
	b.AddChunk("old stream noise")
	b.SeedResume("The answer is")

	if got := b.FullContent(); got != "The answer is" {
		t.Errorf("expected seeded content, got %q", got)
	}
	if b.WordCount() != 3 {
		t.Errorf("expected recomputed word count 3, got %d", b.WordCount())
	}
	// The window shows the partial's tail; the trailing line is cleared so
	// the continuation starts fresh.
	if got := b.View(); got != "The answer is" {
		t.Errorf("seeded window should show the partial tail, got %q", got)
	}

	b.AddChunk(" 4")
	if got := b.FullContent(); got != "The answer is 4" {
		t.Errorf("expected joined content, got %q", got)
	}
	if got := b.View(); got != "The answer is\n 4"+Cursor {
		t.Errorf("continuation should render on a fresh line, got %q", got)
	}
}

func TestBufferDefaultWindowSize(t *testing.T) {
	b := NewRollingBuffer(0)
	if b.maxVisible != DefaultMaxVisibleLines {
		t.Errorf("expected default window %d, got %d", DefaultMaxVisibleLines, b.maxVisible)
	}
}
