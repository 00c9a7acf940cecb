// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"sync"
)

// DefaultMaxVisibleLines is the display window height used when no
// explicit size is configured.
const DefaultMaxVisibleLines = 20

// Cursor is the glyph appended to the live trailing line.
const Cursor = "▊"

// connectingPlaceholder is rendered before the first chunk arrives.
const connectingPlaceholder = "🤔 Connecting to AI..." + Cursor

// RollingBuffer maintains a bounded window of display lines over the full
// accumulated response. Complete lines scroll through a fixed-size window
// while the trailing partial line stays live under the cursor; the full
// content keeps growing unbounded for history and resume.
type RollingBuffer struct {
	mu         sync.Mutex
	full       strings.Builder
	visible    []string
	current    string
	wordCount  int
	maxVisible int
}

// NewRollingBuffer creates a buffer with the given window height.
// A non-positive height falls back to DefaultMaxVisibleLines.
func NewRollingBuffer(maxVisible int) *RollingBuffer {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisibleLines
	}
	return &RollingBuffer{maxVisible: maxVisible}
}

// AddChunk appends a text fragment, promotes completed lines into the
// visible window, trims the window, and recomputes the word count.
func (b *RollingBuffer) AddChunk(text string) {
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.full.WriteString(text)
	b.current += text

	if strings.Contains(b.current, "\n") {
		segments := strings.Split(b.current, "\n")
		// Every segment but the last is a completed line.
		b.visible = append(b.visible, segments[:len(segments)-1]...)
		b.current = segments[len(segments)-1]

		if len(b.visible) > b.maxVisible {
			b.visible = b.visible[len(b.visible)-b.maxVisible:]
		}
	}

	b.wordCount = len(strings.Fields(b.full.String()))
}

// View renders the current window: completed lines, then the trailing
// partial line with the cursor. The trailing line counts against the
// window height, so a one-line window shows only the live line. Before any
// visible content arrives it renders the connecting placeholder.
func (b *RollingBuffer) View() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	display := make([]string, 0, len(b.visible)+1)
	display = append(display, b.visible...)
	if b.current != "" {
		display = append(display, b.current+Cursor)
	}
	if len(display) > b.maxVisible {
		display = display[len(display)-b.maxVisible:]
	}

	out := strings.Join(display, "\n")
	if strings.TrimSpace(out) == "" {
		return connectingPlaceholder
	}
	return out
}

// FullContent returns the entire accumulated response text.
func (b *RollingBuffer) FullContent() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.full.String()
}

// WordCount returns the whitespace-separated word count of the full content.
func (b *RollingBuffer) WordCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wordCount
}

// VisibleLines returns a copy of the completed lines currently in the window.
func (b *RollingBuffer) VisibleLines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make([]string, len(b.visible))
	copy(lines, b.visible)
	return lines
}

// Reset clears all content for a fresh exchange.
func (b *RollingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.full.Reset()
	b.visible = nil
	b.current = ""
	b.wordCount = 0
}

// SeedResume primes the buffer with previously received partial content.
// The window is rebuilt from the tail of the partial's lines and the
// trailing line is cleared so continuation chunks start a fresh visible
// line, while the full content and word count carry the partial response
// forward.
func (b *RollingBuffer) SeedResume(partial string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.full.Reset()
	b.full.WriteString(partial)
	b.current = ""
	b.wordCount = len(strings.Fields(partial))

	lines := strings.Split(partial, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) > b.maxVisible {
		lines = lines[len(lines)-b.maxVisible:]
	}
	b.visible = lines
}
