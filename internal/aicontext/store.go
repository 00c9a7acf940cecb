// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package aicontext maintains the bounded shell context and conversation
// history that ground AI exchanges in recent terminal activity.
//
// Shell entries are evicted in insertion order once the cap is reached;
// prompt construction independently re-sorts by wall-clock recency and
// applies tiered output truncation so the most recent command carries the
// most detail.
package aicontext

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/hyshell/internal/cloud"
	"github.com/jeranaias/hyshell/internal/util"
)

// Capacity defaults.
const (
	// DefaultMaxShellEntries caps stored shell context entries.
	DefaultMaxShellEntries = 10

	// DefaultMaxConversation caps stored conversation messages.
	DefaultMaxConversation = 20

	// promptEntryLimit is how many entries a built prompt may reference.
	promptEntryLimit = 5

	// Output truncation tiers for prompt construction.
	latestOutputLimit  = 800
	recentOutputLimit  = 400
	olderOutputLimit   = 100
	priorityEntryCount = 3
)

// Entry records one executed shell command for AI context.
type Entry struct {
	Command  string    `json:"command"`
	Output   string    `json:"output"`
	ExitCode int       `json:"exit_code"`
	Dir      string    `json:"cwd"`
	Time     time.Time `json:"time"`
}

// Turn is one message of the persisted conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store holds shell context and conversation history for one terminal.
type Store struct {
	mu       sync.Mutex
	entries  []Entry
	turns    []Turn
	maxShell int
	maxConv  int
}

// NewStore creates a store with the given caps. Non-positive caps fall
// back to the defaults.
func NewStore(maxShell, maxConversation int) *Store {
	if maxShell <= 0 {
		maxShell = DefaultMaxShellEntries
	}
	if maxConversation <= 0 {
		maxConversation = DefaultMaxConversation
	}
	return &Store{
		maxShell: maxShell,
		maxConv:  maxConversation,
	}
}

// AddShellEntry appends a command record, evicting the oldest insertion
// once the cap is exceeded.
func (s *Store) AddShellEntry(command, output string, exitCode int, dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		Command:  command,
		Output:   output,
		ExitCode: exitCode,
		Dir:      dir,
		Time:     time.Now(),
	})
	if len(s.entries) > s.maxShell {
		s.entries = s.entries[1:]
	}
}

// ShellEntries returns a copy of the stored entries in insertion order.
func (s *Store) ShellEntries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// LatestEntry returns the most recent entry by wall clock, or nil.
func (s *Store) LatestEntry() *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	latest := s.entries[0]
	for _, e := range s.entries[1:] {
		if e.Time.After(latest.Time) {
			latest = e
		}
	}
	return &latest
}

// BuildPrompt renders the shell context as a system prompt section. Returns
// an empty string when no context exists.
func (s *Store) BuildPrompt() string {
	s.mu.Lock()
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	if len(entries) == 0 {
		return ""
	}

	// Rendering order is recency, independent of eviction order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.After(entries[j].Time)
	})
	if len(entries) > promptEntryLimit {
		entries = entries[:promptEntryLimit]
	}

	parts := []string{"Recent shell activity (prioritized by recency):"}

	priority := entries
	if len(priority) > priorityEntryCount {
		priority = priority[:priorityEntryCount]
	}
	parts = append(parts, "\n🔥 MOST RECENT COMMANDS:")
	for i, e := range priority {
		marker := ">>> LATEST:"
		if i > 0 {
			marker = fmt.Sprintf(">>> #%d:", i+1)
		}
		parts = append(parts, fmt.Sprintf("\n%s [%s] In: %s", marker, e.Time.Format("15:04:05"), e.Dir))
		parts = append(parts, "Command: "+e.Command)

		if e.Output != "" {
			limit := recentOutputLimit
			if i == 0 {
				limit = latestOutputLimit
			}
			output := e.Output
			if utf8.RuneCountInString(output) > limit {
				output = util.TruncateRunesNoEllipsis(output, limit) + "... (truncated)"
			}
			parts = append(parts, "Output: "+output)
		}
		parts = append(parts, strings.Repeat("-", 50))
	}

	if len(entries) > priorityEntryCount {
		parts = append(parts, "\n📋 ADDITIONAL CONTEXT (older commands):")
		for _, e := range entries[priorityEntryCount:] {
			output := util.TruncateRunesNoEllipsis(e.Output, olderOutputLimit)
			parts = append(parts, fmt.Sprintf("[%s] %s -> %s...", e.Time.Format("15:04:05"), e.Command, output))
		}
	}

	parts = append(parts, "\n💡 NOTE: When user asks about errors or issues, prioritize the LATEST/MOST RECENT commands above.")

	return strings.Join(parts, "\n")
}

// AddTurn records a completed exchange, trimming history to the cap.
func (s *Store) AddTurn(userMessage, aiResponse string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns,
		Turn{Role: "user", Content: userMessage},
		Turn{Role: "assistant", Content: aiResponse},
	)
	if len(s.turns) > s.maxConv {
		s.turns = s.turns[len(s.turns)-s.maxConv:]
	}
}

// Turns returns a copy of the conversation history.
func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Messages assembles the chat request message list for a new user prompt:
// an optional system message carrying the shell context, the conversation
// history, then the user prompt itself.
func (s *Store) Messages(userMessage string) []cloud.ChatMessage {
	prompt := s.BuildPrompt()

	s.mu.Lock()
	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	s.mu.Unlock()

	msgs := make([]cloud.ChatMessage, 0, len(turns)+2)
	if prompt != "" {
		msgs = append(msgs, cloud.NewSystemMessage(
			"You are a helpful AI assistant in a hybrid shell terminal. Use this context from the user's recent shell activity:\n\n"+prompt))
	}
	for _, t := range turns {
		msgs = append(msgs, cloud.ChatMessage{Role: t.Role, Content: t.Content})
	}
	return append(msgs, cloud.NewUserMessage(userMessage))
}

// ClearShell drops all shell context entries.
func (s *Store) ClearShell() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// ClearConversation drops the conversation history.
func (s *Store) ClearConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// ClearAll drops both shell context and conversation history.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.turns = nil
}
