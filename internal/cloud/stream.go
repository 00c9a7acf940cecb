// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// STREAMING: Robust SSE parsing with error handling

// MaxChunkSize is the maximum allowed size for a single SSE event (64KB).
const MaxChunkSize = 64 * 1024

// Fragment is one unit of a streaming exchange. Either Text is non-empty,
// or Err carries a terminal failure. A closed channel with no Err fragment
// means the stream completed normally.
type Fragment struct {
	Text string
	Err  error
}

// streamChunk is the wire form of one SSE data payload.
type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the delta content of the first choice.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// done reports whether the chunk carries a finish reason.
func (c *streamChunk) done() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}

// StreamError represents an error that occurred mid-stream, preserving any
// partial content received before the failure.
type StreamError struct {
	Partial string // Content received before the error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a byte stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadData returns the data payload of the next SSE event, skipping event
// names, ids, retry hints, and comments. Returns io.EOF at end of stream.
func (s *SSEReader) ReadData() ([]byte, error) {
	var dataLines [][]byte
	var size int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			size += len(data)
			if size > MaxChunkSize {
				return nil, fmt.Errorf("SSE event too large: %d bytes", size)
			}
			dataLines = append(dataLines, data)
		}
		// Other fields (event:, id:, retry:, comments) are ignored.
	}
}

// =============================================================================
// CHANNEL-BASED STREAMING
// =============================================================================

// StreamChat performs a streaming chat completion request and returns a
// channel of fragments. The channel is closed on completion; failures are
// delivered as a final Fragment with Err set. Cancel the context to abort.
func (c *Client) StreamChat(ctx context.Context, messages []ChatMessage, opts Options) (<-chan Fragment, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	fragments := make(chan Fragment, 64)

	go func() {
		defer close(fragments)

		resp, err := c.sendStreamRequest(ctx, messages, opts)
		if err != nil {
			emit(ctx, fragments, Fragment{Err: err})
			return
		}
		defer resp.Body.Close()

		if err := c.relayStream(ctx, resp.Body, fragments); err != nil {
			emit(ctx, fragments, Fragment{Err: err})
		}
	}()

	return fragments, nil
}

// emit sends a fragment unless the context is already gone.
func emit(ctx context.Context, ch chan<- Fragment, f Fragment) {
	select {
	case ch <- f:
	case <-ctx.Done():
	}
}

// relayStream reads SSE events and forwards delta content as fragments.
// Returns nil on [DONE] or clean EOF.
func (c *Client) relayStream(ctx context.Context, body io.Reader, fragments chan<- Fragment) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadData()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Malformed frames are skipped, not fatal.
			continue
		}

		if text := chunk.content(); text != "" {
			select {
			case fragments <- Fragment{Text: text}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if chunk.done() {
			return nil
		}
	}
}

// sendStreamRequest sends the streaming HTTP request and returns the response.
func (c *Client) sendStreamRequest(ctx context.Context, messages []ChatMessage, opts Options) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + "/chat/completions"
	reqBody := c.buildRequest(messages, opts, true)

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	// PERFORMANCE: Shared streaming client with connection pooling; the
	// timeout comes from the request context, not the client.
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	return resp, nil
}

// =============================================================================
// ACCUMULATED STREAMING
// =============================================================================

// StreamAccumulator collects fragments and builds the complete response.
type StreamAccumulator struct {
	Content      strings.Builder
	ChunkCount   int
	StartTime    time.Time
	FirstChunkAt time.Time
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		StartTime: time.Now(),
	}
}

// Add processes one fragment's text.
func (a *StreamAccumulator) Add(text string) {
	if text == "" {
		return
	}
	a.ChunkCount++
	if a.FirstChunkAt.IsZero() {
		a.FirstChunkAt = time.Now()
	}
	a.Content.WriteString(text)
}

// GetContent returns the accumulated content.
func (a *StreamAccumulator) GetContent() string {
	return a.Content.String()
}

// StreamChatAccumulate streams a chat and returns the full response text.
// On mid-stream failure the error is a *StreamError carrying the partial
// content received so far.
func (c *Client) StreamChatAccumulate(ctx context.Context, messages []ChatMessage, opts Options) (string, error) {
	fragments, err := c.StreamChat(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	acc := NewStreamAccumulator()
	for f := range fragments {
		if f.Err != nil {
			return acc.GetContent(), &StreamError{Partial: acc.GetContent(), Err: f.Err}
		}
		acc.Add(f.Text)
	}
	return acc.GetContent(), nil
}
