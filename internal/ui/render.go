// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	markdownOnce     sync.Once
	markdownRenderer *glamour.TermRenderer
)

// RenderMarkdown renders a completed response as terminal markdown.
// Falls back to the raw content when the renderer is unavailable.
func RenderMarkdown(content string) string {
	markdownOnce.Do(func() {
		var err error
		markdownRenderer, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			markdownRenderer = nil
		}
	})

	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightExtensions are file extensions worth syntax highlighting
// when shown with cat/head/tail.
var highlightExtensions = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".java": "java",
	".rb":   "ruby",
	".sh":   "bash",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".sql":  "sql",
	".md":   "markdown",
	".html": "html",
	".css":  "css",
}

// fileViewCommands display a file's contents verbatim.
var fileViewCommands = map[string]bool{
	"cat": true, "head": true, "tail": true,
}

// DetectFileView returns the language to highlight with when the
// command views a recognized source file, or "" otherwise.
func DetectFileView(command string) string {
	fields := strings.Fields(command)
	if len(fields) < 2 || !fileViewCommands[fields[0]] {
		return ""
	}

	// Last non-flag argument is the file.
	var file string
	for _, arg := range fields[1:] {
		if !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}
	if file == "" {
		return ""
	}
	return highlightExtensions[strings.ToLower(filepath.Ext(file))]
}

// HighlightCode applies terminal syntax highlighting via chroma.
// Returns the code unchanged on any failure.
func HighlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if !termenv.HasDarkBackground() {
		styleName = "friendly"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// HighlightFileOutput highlights shell output when the command was a
// file view of a recognized source file.
func HighlightFileOutput(command, output string) string {
	language := DetectFileView(command)
	if language == "" {
		return output
	}
	return HighlightCode(output, language)
}
