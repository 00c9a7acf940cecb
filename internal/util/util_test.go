// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTruncateRunesShort(t *testing.T) {
	if got := TruncateRunes("hello", 10); got != "hello" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}

func TestTruncateRunesLong(t *testing.T) {
	if got := TruncateRunes("hello world", 8); got != "hello..." {
		t.Errorf("expected %q, got %q", "hello...", got)
	}
}

func TestTruncateRunesMultibyte(t *testing.T) {
	s := "héllo wörld"
	got := TruncateRunes(s, 8)
	if len([]rune(got)) != 8 {
		t.Errorf("expected 8 runes, got %d in %q", len([]rune(got)), got)
	}
}

func TestTruncateRunesTinyLimit(t *testing.T) {
	if got := TruncateRunes("hello", 2); got != "he" {
		t.Errorf("expected %q, got %q", "he", got)
	}
	if got := TruncateRunes("hello", 0); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	if got := TruncateRunesNoEllipsis("hello world", 5); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

func TestTruncateWidthCJK(t *testing.T) {
	// Each CJK char is 2 columns wide.
	s := "日本語テスト"
	got := TruncateWidth(s, 6)
	if w := runewidth.StringWidth(got); w > 6 {
		t.Errorf("width %d exceeds limit in %q", w, got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("one\ntwo\nthree"); got != "one" {
		t.Errorf("expected %q, got %q", "one", got)
	}
	if got := FirstLine("single"); got != "single" {
		t.Errorf("expected %q, got %q", "single", got)
	}
	if got := FirstLine("crlf\r\nnext"); got != "crlf" {
		t.Errorf("expected %q, got %q", "crlf", got)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.json")

	if err := AtomicWriteFile(path, []byte(`{"ok":true}`), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected content: %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	// Overwrite must replace, not append.
	if err := AtomicWriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("second AtomicWriteFile failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "x" {
		t.Errorf("expected overwrite, got %q", data)
	}
}
