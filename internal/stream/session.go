// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/hyshell/internal/cloud"
)

// State is the lifecycle phase of a streaming exchange.
type State int

const (
	// StateIdle means no exchange has run yet, or the last one finished.
	StateIdle State = iota
	// StateConnecting means the request is sent but no content arrived.
	StateConnecting
	// StateStreaming means content fragments are arriving.
	StateStreaming
	// StateComplete means the last exchange finished normally.
	StateComplete
	// StateCancelled means the user aborted the last exchange.
	StateCancelled
	// StateResuming means a cancelled exchange is reconnecting.
	StateResuming
	// StateError means the last exchange failed.
	StateError
)

// String returns the display name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateResuming:
		return "resuming"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// active reports whether an exchange is in flight.
func (s State) active() bool {
	return s == StateConnecting || s == StateStreaming || s == StateResuming
}

// Error variables for session lifecycle failures.
var (
	// ErrStreamActive indicates an exchange is already in flight.
	ErrStreamActive = errors.New("a stream is already active")

	// ErrNoResumableStream indicates resume was requested with no snapshot.
	ErrNoResumableStream = errors.New("no cancelled stream to resume")

	// ErrInvalidTransition indicates an illegal state machine transition.
	ErrInvalidTransition = errors.New("invalid stream state transition")
)

// legalTransitions maps each state to the states it may move to.
var legalTransitions = map[State][]State{
	StateIdle:       {StateConnecting},
	StateConnecting: {StateStreaming, StateComplete, StateCancelled, StateError},
	StateStreaming:  {StateComplete, StateCancelled, StateError},
	StateComplete:   {StateConnecting, StateResuming},
	StateCancelled:  {StateConnecting, StateResuming},
	StateResuming:   {StateStreaming, StateComplete, StateCancelled, StateError},
	StateError:      {StateConnecting, StateResuming},
}

// continueInstruction asks the model to pick up a cut-off response.
const continueInstruction = "Please continue your previous response exactly from where it was cut off. Do not repeat content you already wrote."

// cancelManager guards the in-flight cancel function so the UI thread can
// abort a stream owned by another goroutine.
type cancelManager struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	requested bool
}

// set installs the cancel function for a new exchange.
func (m *cancelManager) set(fn context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel = fn
	m.requested = false
}

// fire cancels the in-flight exchange. Returns false if none is active.
func (m *cancelManager) fire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.requested = true
	m.cancel()
	m.cancel = nil
	return true
}

// clear removes the cancel function once the exchange ends.
func (m *cancelManager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel = nil
}

// wasRequested reports whether the last exchange was cancelled by the user.
func (m *cancelManager) wasRequested() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requested
}

// Session drives one streaming exchange at a time against the chat API.
// It owns the rolling display buffer, the progress estimator, and the
// cancel/resume snapshot. All lifecycle state is explicit on the session;
// create one per interactive terminal.
type Session struct {
	mu        sync.Mutex
	id        string
	state     State
	buffer    *RollingBuffer
	estimator *ProgressEstimator
	snapshot  *Snapshot

	client *cloud.Client
	opts   cloud.Options
	cancel cancelManager

	// onUpdate, when set, runs after every buffer mutation so a renderer
	// can redraw. It is called from the streaming goroutine.
	onUpdate func()
}

// NewSession creates a session with the given display window height.
func NewSession(client *cloud.Client, maxVisible int, opts cloud.Options) *Session {
	return &Session{
		id:        uuid.NewString(),
		state:     StateIdle,
		buffer:    NewRollingBuffer(maxVisible),
		estimator: NewProgressEstimator(),
		client:    client,
		opts:      opts,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// OnUpdate registers a redraw callback invoked after each buffer change.
func (s *Session) OnUpdate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffer returns the session's rolling display buffer.
func (s *Session) Buffer() *RollingBuffer {
	return s.buffer
}

// SetOptions swaps the sampling options used by subsequent exchanges.
// An in-flight exchange keeps the options it started with.
func (s *Session) SetOptions(opts cloud.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

// Progress returns the observed word count, the estimated total, and the
// display percentage for the in-flight exchange.
func (s *Session) Progress() (words, estimate, percent int) {
	words = s.buffer.WordCount()
	s.mu.Lock()
	defer s.mu.Unlock()
	return words, s.estimator.Estimate(), s.estimator.Percent(words)
}

// Cancel aborts the in-flight exchange. Returns false if none is active.
func (s *Session) Cancel() bool {
	return s.cancel.fire()
}

// HasSnapshot reports whether a cancelled exchange is available to resume.
func (s *Session) HasSnapshot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot != nil
}

// SnapshotInfo returns a copy of the saved snapshot, or nil.
func (s *Session) SnapshotInfo() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.clone()
}

// ClearSnapshot discards any saved snapshot.
func (s *Session) ClearSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
}

// transition moves the state machine, enforcing legality.
func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) error {
	for _, legal := range legalTransitions[s.state] {
		if legal == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}

// begin claims the session for a new exchange, rejecting concurrent starts.
func (s *Session) begin(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.active() {
		return ErrStreamActive
	}
	return s.transitionLocked(to)
}

// Stream runs one exchange: send the request, pull fragments, and feed the
// rolling buffer until completion. On user cancellation it saves a snapshot,
// leaves the session in StateCancelled, and returns the partial content with
// a nil error; inspect State to distinguish cancel from completion.
func (s *Session) Stream(ctx context.Context, userMessage string, messages []cloud.ChatMessage) (string, error) {
	if err := s.begin(StateConnecting); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.estimator = NewProgressEstimator()
	s.mu.Unlock()
	s.buffer.Reset()

	return s.run(ctx, userMessage, messages, messages)
}

// Resume restarts a cancelled exchange from its snapshot. The request is
// rebuilt from the original messages plus the partial response and an
// instruction to continue; the buffer is seeded so the final content is the
// partial text plus the continuation. The snapshot is consumed atomically
// when the resume starts; cancelling the resumed stream saves a fresh one.
func (s *Session) Resume(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.snapshot == nil {
		s.mu.Unlock()
		return "", ErrNoResumableStream
	}
	if s.state.active() {
		s.mu.Unlock()
		return "", ErrStreamActive
	}
	snap := s.snapshot.clone()
	if err := s.transitionLocked(StateResuming); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.snapshot = nil
	s.estimator = NewResumeEstimator(snap.WordCount)
	s.mu.Unlock()

	s.buffer.SeedResume(snap.PartialContent)

	continuation := make([]cloud.ChatMessage, 0, len(snap.Messages)+2)
	continuation = append(continuation, snap.Messages...)
	continuation = append(continuation,
		cloud.NewAssistantMessage(snap.PartialContent),
		cloud.NewUserMessage(continueInstruction),
	)

	return s.run(ctx, snap.UserMessage, snap.Messages, continuation)
}

// run is the shared pull loop for Stream and Resume. originalMessages is
// what a later resume should rebuild from; requestMessages is what this
// exchange actually sends.
func (s *Session) run(ctx context.Context, userMessage string, originalMessages, requestMessages []cloud.ChatMessage) (string, error) {
	streamCtx, cancelFn := context.WithTimeout(ctx, s.client.Timeout())
	s.cancel.set(cancelFn)
	defer func() {
		s.cancel.clear()
		cancelFn()
	}()

	fragments, err := s.client.StreamChat(streamCtx, requestMessages, s.opts)
	if err != nil {
		s.transition(StateError)
		return "", err
	}

	var streamErr error
	for f := range fragments {
		if f.Err != nil {
			if errors.Is(f.Err, context.Canceled) {
				break
			}
			streamErr = f.Err
			break
		}

		if s.State() != StateStreaming {
			s.transition(StateStreaming)
		}

		s.buffer.AddChunk(f.Text)

		words := s.buffer.WordCount()
		s.mu.Lock()
		s.estimator.Observe(words)
		update := s.onUpdate
		s.mu.Unlock()
		if update != nil {
			update()
		}
	}

	partial := s.buffer.FullContent()

	if s.cancel.wasRequested() {
		s.saveSnapshot(userMessage, partial, originalMessages)
		s.transition(StateCancelled)
		return partial, nil
	}

	if streamErr != nil {
		s.transition(StateError)
		if strings.TrimSpace(partial) != "" {
			return partial, &cloud.StreamError{Partial: partial, Err: streamErr}
		}
		return partial, streamErr
	}

	// The request deadline expiring without a user cancel is an error.
	if err := streamCtx.Err(); err != nil && !s.cancel.wasRequested() {
		s.transition(StateError)
		return partial, err
	}

	s.transition(StateComplete)
	return partial, nil
}

// saveSnapshot records the cancelled exchange, overwriting any previous
// snapshot so the most recent cancellation wins.
func (s *Session) saveSnapshot(userMessage, partial string, messages []cloud.ChatMessage) {
	msgs := make([]cloud.ChatMessage, len(messages))
	copy(msgs, messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &Snapshot{
		UserMessage:    userMessage,
		PartialContent: partial,
		Messages:       msgs,
		Timestamp:      time.Now(),
		WordCount:      len(strings.Fields(partial)),
	}
}
