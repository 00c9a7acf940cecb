// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for the hyshell REPL.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(ColorProfile())
}

var (
	// aiPromptStyle styles the AI-mode prompt.
	aiPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	// shellPromptStyle styles the shell-mode prompt.
	shellPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true)

	// welcomeStyle styles the startup banner.
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	// infoStyle styles informational notices.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// successStyle styles confirmations.
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// errorStyle styles error messages.
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// warningStyle styles warnings and cancel notices.
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// dimStyle styles secondary information.
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)
