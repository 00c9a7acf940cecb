// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "shell_history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndRecent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("ls -la", "/tmp", 0))
	require.NoError(t, s.Add("git status", "/repo", 0))
	require.NoError(t, s.Add("make build", "/repo", 2))

	records, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "make build", records[0].Command)
	assert.Equal(t, 2, records[0].ExitCode)
	assert.Equal(t, "/repo", records[0].Dir)
	assert.Equal(t, "ls -la", records[2].Command)
	assert.False(t, records[0].RanAt.IsZero())
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Add("echo hi", "/", 0))
	}

	records, err := s.Recent(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestAddSkipsEmptyCommand(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("", "/", 0))
	require.NoError(t, s.Add("   ", "/", 0))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("git status", "/repo", 0))
	require.NoError(t, s.Add("git commit -m fix", "/repo", 0))
	require.NoError(t, s.Add("ls", "/repo", 0))

	records, err := s.Search("git", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "git commit -m fix", records[0].Command)

	records, err = s.Search("nothing-matches", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchEscapesWildcards(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Add("echo 100%", "/", 0))
	require.NoError(t, s.Add("echo plain", "/", 0))

	records, err := s.Search("100%", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "echo 100%", records[0].Command)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Add("echo hi", "/", 0))
	}
	require.NoError(t, s.Prune(4))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestDegradedStoreIsSafe(t *testing.T) {
	var s *Store

	assert.False(t, s.Available())
	assert.NoError(t, s.Add("ls", "/", 0))
	assert.NoError(t, s.Close())

	records, err := s.Recent(5)
	assert.NoError(t, err)
	assert.Nil(t, records)

	degraded := &Store{}
	assert.False(t, degraded.Available())
	assert.NoError(t, degraded.Add("ls", "/", 0))
}

func TestClosedStoreReturnsErrClosed(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Add("ls", "/", 0))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Add("ls", "/", 0), ErrClosed)
	assert.ErrorIs(t, s.Prune(1), ErrClosed)

	_, err := s.Recent(5)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Search("ls", 5)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Count()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenFailureReturnsDegradedStore(t *testing.T) {
	// A file where the parent directory should be forces MkdirAll to fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	s, err := Open(filepath.Join(blocker, "sub", "history.db"))
	assert.Error(t, err)
	require.NotNil(t, s)
	assert.False(t, s.Available())
	assert.NoError(t, s.Add("ls", "/", 0))
}
