// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive hybrid shell. The REPL runs in
// one of two modes: shell mode executes commands and feeds their output
// into the AI context store, AI mode streams model responses with live
// display, cancellation, and resume.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"

	"github.com/jeranaias/hyshell/internal/aicontext"
	"github.com/jeranaias/hyshell/internal/config"
	"github.com/jeranaias/hyshell/internal/history"
	"github.com/jeranaias/hyshell/internal/shell"
	"github.com/jeranaias/hyshell/internal/stream"
	"github.com/jeranaias/hyshell/internal/ui"
	"github.com/jeranaias/hyshell/internal/util"
)

// Mode selects how REPL input is interpreted.
type Mode int

const (
	// ModeShell executes input as shell commands.
	ModeShell Mode = iota
	// ModeAI sends input to the model.
	ModeAI
)

// String returns the display name for the mode.
func (m Mode) String() string {
	if m == ModeAI {
		return "ai"
	}
	return "shell"
}

// Shell is the interactive hybrid shell session.
type Shell struct {
	cfg      *config.Config
	session  *stream.Session
	store    *aicontext.Store
	executor *shell.Executor
	detector *shell.Detector
	commands *history.Store
	input    *InputReader

	mode        Mode
	historyPath string
	quit        bool
}

// New builds a shell from the configuration. History and persistence
// failures degrade silently; a missing API key only disables AI mode.
func New(cfg *config.Config) (*Shell, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("failed to prepare config directory: %w", err)
	}

	client := cfg.NewClient()
	session := stream.NewSession(client, cfg.Stream.MaxVisibleLines, cfg.Options())

	store := aicontext.NewStore(cfg.Context.MaxShellEntries, cfg.Context.MaxConversation)
	historyPath, err := cfg.HistoryPath()
	if err == nil {
		if loadErr := store.Load(historyPath); loadErr != nil {
			fmt.Fprintf(os.Stderr, "%s could not load conversation history: %v\n",
				warningStyle.Render("Warning:"), loadErr)
		}
	}

	var commands *history.Store
	if dbPath, err := config.ShellHistoryDBPath(); err == nil {
		commands, err = history.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s shell history unavailable: %v\n",
				warningStyle.Render("Warning:"), err)
		}
	}

	timeout := cfg.Shell.CommandTimeout()
	return &Shell{
		cfg:         cfg,
		session:     session,
		store:       store,
		executor:    shell.NewExecutor(timeout, cfg.Shell.MaxOutputKB*1024),
		detector:    shell.NewDetector(),
		commands:    commands,
		input:       NewInputReader(),
		mode:        ModeShell,
		historyPath: historyPath,
	}, nil
}

// Run drives the REPL until exit.
func (s *Shell) Run() error {
	defer s.shutdown()

	s.printWelcome()

	// Ctrl+C during a stream cancels the exchange. At the prompt,
	// liner turns it into ErrPromptAborted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			s.session.Cancel()
		}
	}()

	for !s.quit {
		input, err := s.input.ReadLine(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				continue
			}
			// Ctrl+D or a closed terminal ends the session.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if s.mode == ModeAI {
			s.handleAI(input)
		} else {
			s.handleShell(input)
		}
	}
	return nil
}

// ApplyConfig swaps the sampling options used for subsequent exchanges.
// A stream already in flight keeps the options it started with.
func (s *Shell) ApplyConfig(cfg *config.Config) {
	s.session.SetOptions(cfg.Options())
}

// shutdown persists state and releases the terminal.
func (s *Shell) shutdown() {
	s.input.Close()
	if s.historyPath != "" {
		if err := s.store.Save(s.historyPath); err != nil {
			fmt.Fprintf(os.Stderr, "%s could not save conversation history: %v\n",
				warningStyle.Render("Warning:"), err)
		}
	}
	s.commands.Close()
	fmt.Println(dimStyle.Render("Goodbye."))
}

// prompt renders the mode-aware prompt line.
func (s *Shell) prompt() string {
	if s.mode == ModeAI {
		return aiPromptStyle.Render("🤖 ai> ")
	}

	dir, err := os.Getwd()
	if err != nil {
		dir = "?"
	}
	base := filepath.Base(dir)

	indicators := s.detector.PromptIndicators()
	prefix := ""
	if len(indicators) > 0 {
		prefix = dimStyle.Render(strings.Join(indicators, " ")) + " "
	}
	return prefix + shellPromptStyle.Render(base+" $ ")
}

func (s *Shell) printWelcome() {
	fmt.Println(welcomeStyle.Render("hyshell - hybrid shell with streaming AI"))
	fmt.Println(infoStyle.Render("Type 'ai' for AI mode, 'shell' to return, 'exit' to quit."))
	if s.cfg.API.Key == "" {
		fmt.Println(warningStyle.Render("No API key configured; set FIREWORKS_API_KEY to enable AI mode."))
	}
	fmt.Println()
}

// =============================================================================
// AI MODE
// =============================================================================

// handleAI processes one AI-mode input line.
func (s *Shell) handleAI(input string) {
	switch strings.ToLower(input) {
	case "shell":
		s.mode = ModeShell
		fmt.Println(successStyle.Render("→ Shell Mode"))
		return
	case "exit", "quit":
		s.quit = true
		return
	case "clear":
		s.store.ClearAll()
		fmt.Println(successStyle.Render("Context cleared (shell + conversation)"))
		return
	case "clear0":
		s.store.ClearConversation()
		fmt.Println(successStyle.Render("Conversation cleared"))
		return
	case "context":
		s.showContext()
		return
	case "resume":
		s.resume()
		return
	case "cancelstate":
		s.showCancelState()
		return
	}

	messages := s.store.Messages(input)
	response, cancelled := s.runExchange(input, func(ctx context.Context) (string, error) {
		return s.session.Stream(ctx, input, messages)
	})

	if cancelled {
		fmt.Println(warningStyle.Render("⚠️ Response cancelled. Type 'resume' to continue"))
		return
	}
	if response != "" {
		s.store.AddTurn(input, response)
	}
}

// resume continues the most recently cancelled stream.
func (s *Shell) resume() {
	if !s.session.HasSnapshot() {
		fmt.Println(warningStyle.Render("No cancelled stream to resume"))
		return
	}

	snap := s.session.SnapshotInfo()
	preview := util.TruncateRunes(util.FirstLine(snap.UserMessage), 60)
	fmt.Println(infoStyle.Render("🔄 Resuming response to: '" + preview + "'"))

	response, cancelled := s.runExchange(snap.UserMessage, func(ctx context.Context) (string, error) {
		return s.session.Resume(ctx)
	})

	if cancelled {
		fmt.Println(warningStyle.Render("⚠️ Response cancelled again. Type 'resume' to continue"))
		return
	}
	if response != "" {
		s.store.AddTurn(snap.UserMessage, response)
	}
}

// runExchange runs one streaming exchange with the live view and
// returns the response and whether the user cancelled. Errors are
// printed here.
func (s *Shell) runExchange(userMessage string, start func(context.Context) (string, error)) (string, bool) {
	ctx := context.Background()

	if !IsStdoutTTY() {
		// Piped output: no live view, stream to completion.
		response, err := start(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("❌"), err)
			return "", false
		}
		if s.session.State() == stream.StateCancelled {
			return response, true
		}
		fmt.Println(response)
		return response, false
	}

	view := ui.NewStreamView(s.session)
	program := tea.NewProgram(view)

	type outcome struct {
		response string
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		response, err := start(ctx)
		done <- outcome{response, err}
		buffer := s.session.Buffer()
		if err != nil {
			program.Send(ui.NewStreamErrorMsg(s.session.ID(), err))
		} else {
			program.Send(ui.NewStreamCompleteMsg(s.session.ID(), response,
				buffer.WordCount(), s.session.State() == stream.StateCancelled))
		}
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s display error: %v\n", errorStyle.Render("❌"), err)
	}

	result := <-done
	if result.err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("❌"), result.err)
		return "", false
	}
	if s.session.State() == stream.StateCancelled {
		return result.response, true
	}

	// Replace the rolling window with the fully rendered response.
	if s.cfg.UI.Markdown {
		fmt.Println(ui.RenderMarkdown(result.response))
	} else {
		fmt.Println(result.response)
	}
	return result.response, false
}

// showContext prints the prompt that would be sent with the next query.
func (s *Shell) showContext() {
	prompt := s.store.BuildPrompt()
	if prompt == "" {
		fmt.Println(infoStyle.Render("No shell context recorded yet"))
		return
	}
	fmt.Println(prompt)
}

// showCancelState prints details of the resumable snapshot, if any.
func (s *Shell) showCancelState() {
	snap := s.session.SnapshotInfo()
	if snap == nil {
		fmt.Println(warningStyle.Render("No cancelled stream available"))
		return
	}
	fmt.Println(infoStyle.Render("Cancelled stream:"))
	fmt.Printf("  Question:  %s\n", snap.UserMessage)
	fmt.Printf("  Partial:   %d words\n", snap.WordCount)
	fmt.Printf("  Cancelled: %s\n", snap.Timestamp.Format("15:04:05"))
}
