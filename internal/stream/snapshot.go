// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"time"

	"github.com/jeranaias/hyshell/internal/cloud"
)

// Snapshot captures a cancelled exchange so it can be resumed later.
// A session holds at most one snapshot; cancelling again overwrites it.
type Snapshot struct {
	// UserMessage is the prompt that started the cancelled exchange.
	UserMessage string

	// PartialContent is everything received before cancellation.
	PartialContent string

	// Messages is the original request message list, kept so a resume can
	// rebuild the request without the caller retaining it.
	Messages []cloud.ChatMessage

	// Timestamp records when the cancellation happened.
	Timestamp time.Time

	// WordCount is the word count of PartialContent at cancel time.
	WordCount int
}

// clone returns a deep copy so callers cannot mutate session state.
func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = make([]cloud.ChatMessage, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
