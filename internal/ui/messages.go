// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the live streaming view for AI responses.
//
// This file defines the Bubble Tea message types used by the streaming
// view. All message types follow Bubble Tea conventions and are
// immutable.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamCompleteMsg signals that streaming has finished.
type StreamCompleteMsg struct {
	ExchangeID string
	Content    string
	WordCount  int
	Cancelled  bool
}

// StreamErrorMsg signals an error during streaming.
type StreamErrorMsg struct {
	ExchangeID string
	Error      error
}

// StreamTickMsg drives the render loop at a capped frame rate while a
// stream is active.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewStreamCompleteMsg creates a StreamCompleteMsg for a finished stream.
func NewStreamCompleteMsg(exchangeID, content string, wordCount int, cancelled bool) StreamCompleteMsg {
	return StreamCompleteMsg{
		ExchangeID: exchangeID,
		Content:    content,
		WordCount:  wordCount,
		Cancelled:  cancelled,
	}
}

// NewStreamErrorMsg creates a StreamErrorMsg.
func NewStreamErrorMsg(exchangeID string, err error) StreamErrorMsg {
	return StreamErrorMsg{
		ExchangeID: exchangeID,
		Error:      err,
	}
}

// streamTickCmd schedules the next render tick, capping redraws at
// roughly 30 frames per second.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
