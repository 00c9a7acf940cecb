// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/hyshell/internal/stream"
	"github.com/jeranaias/hyshell/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	responseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#e0e0e0"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
			Italic(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#cc0000", Dark: "#ff6b6b"}).
			Bold(true)

	cancelledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc66"})
)

// =============================================================================
// STREAM VIEW
// =============================================================================

// StreamView is the Bubble Tea model that renders one streaming
// exchange: the rolling display window, a live status line, and the
// spinner while connecting. Ctrl+C or Esc cancels the stream.
type StreamView struct {
	session *stream.Session
	spinner spinner.Model
	width   int

	done      bool
	cancelled bool
	err       error
}

// NewStreamView creates a view for the given session.
func NewStreamView(session *stream.Session) *StreamView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &StreamView{
		session: session,
		spinner: sp,
		width:   80,
	}
}

// Init starts the spinner and the render ticker.
func (v *StreamView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, streamTickCmd())
}

// Update handles messages.
func (v *StreamView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			v.session.Cancel()
			return v, nil
		}

	case tea.WindowSizeMsg:
		v.width = msg.Width
		return v, nil

	case StreamTickMsg:
		if v.done {
			return v, nil
		}
		return v, streamTickCmd()

	case StreamCompleteMsg:
		v.done = true
		v.cancelled = msg.Cancelled
		return v, tea.Quit

	case StreamErrorMsg:
		v.done = true
		v.err = msg.Error
		return v, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	return v, nil
}

// View renders the current frame.
func (v *StreamView) View() string {
	var b strings.Builder

	state := v.session.State()

	if state == stream.StateConnecting || state == stream.StateResuming {
		b.WriteString(v.spinner.View())
		b.WriteString(" ")
	}

	b.WriteString(responseStyle.Render(v.session.Buffer().View()))
	b.WriteString("\n")
	b.WriteString(v.statusLine(state))
	b.WriteString("\n")

	return b.String()
}

// statusLine renders the word-count and progress footer, truncated to
// the terminal width.
func (v *StreamView) statusLine(state stream.State) string {
	var line string
	style := statusStyle

	switch {
	case v.err != nil:
		line = "✗ " + v.err.Error()
		style = errorStyle
	case v.cancelled || state == stream.StateCancelled:
		words, _, _ := v.session.Progress()
		line = fmt.Sprintf("⏸ cancelled at %d words (type 'resume' to continue)", words)
		style = cancelledStyle
	default:
		words, _, percent := v.session.Progress()
		line = fmt.Sprintf("%s │ %d words │ ~%d%%", state, words, percent)
	}

	// Truncate before styling so ANSI sequences stay intact.
	return style.Render(util.TruncateWidth(line, v.width))
}

// Err returns the stream error observed by the view, if any.
func (v *StreamView) Err() error {
	return v.err
}
