// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aicontext

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/hyshell/internal/util"
)

// Only the conversation survives restarts; shell context is rebuilt from
// live activity and is deliberately not persisted.

// Save writes the conversation history to path as JSON. Callers treat
// failures as non-fatal: log and continue.
func (s *Store) Save(path string) error {
	turns := s.Turns()

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	return nil
}

// Load replaces the conversation history from path. A missing file is not
// an error; a corrupt file leaves the history empty.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read conversation: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		s.mu.Lock()
		s.turns = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to decode conversation: %w", err)
	}

	if len(turns) > s.maxConv {
		turns = turns[len(turns)-s.maxConv:]
	}

	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
	return nil
}
