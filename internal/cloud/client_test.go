// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("  test-key  ")
	if !client.IsConfigured() {
		t.Error("client with key should be configured")
	}
	if client.Model() != DefaultModel {
		t.Errorf("expected default model, got %q", client.Model())
	}
	if client.Timeout() != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", client.Timeout())
	}
}

func TestNewClientEmptyKey(t *testing.T) {
	client := NewClient("")
	if client.IsConfigured() {
		t.Error("client without key should not be configured")
	}
	if _, err := client.Chat(context.Background(), nil, DefaultOptions()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestWithModelEmptyKeepsDefault(t *testing.T) {
	client := NewClient("k").WithModel("")
	if client.Model() != DefaultModel {
		t.Errorf("empty model should keep default, got %q", client.Model())
	}
}

func TestAPIKeyMasked(t *testing.T) {
	client := NewClient("sk-abc123")
	masked := client.APIKeyMasked()
	if strings.Contains(masked, "abc123") {
		t.Errorf("masked key leaks key material: %q", masked)
	}
	if NewClient("").APIKeyMasked() != "[not set]" {
		t.Error("empty key should render as [not set]")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.MaxTokens != 16000 {
		t.Errorf("MaxTokens = %d, want 16000", opts.MaxTokens)
	}
	if opts.Temperature != 0.6 {
		t.Errorf("Temperature = %v, want 0.6", opts.Temperature)
	}
	if opts.TopP != 1 {
		t.Errorf("TopP = %v, want 1", opts.TopP)
	}
	if opts.TopK != 40 {
		t.Errorf("TopK = %d, want 40", opts.TopK)
	}
	if opts.PresencePenalty != 0 || opts.FrequencyPenalty != 0 {
		t.Error("penalties should default to 0")
	}
}

func TestBuildRequestWire(t *testing.T) {
	client := NewClient("k").WithModel("test/model")
	req := client.buildRequest([]ChatMessage{NewUserMessage("hi")}, DefaultOptions(), true)

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	wire := string(data)

	for _, want := range []string{
		`"model":"test/model"`,
		`"stream":true`,
		`"max_tokens":16000`,
		`"top_k":40`,
		`"presence_penalty":0`,
		`"frequency_penalty":0`,
	} {
		if !strings.Contains(wire, want) {
			t.Errorf("wire request missing %s: %s", want, wire)
		}
	}
}

func TestMessageConstructors(t *testing.T) {
	if m := NewUserMessage("a"); m.Role != "user" || m.Content != "a" {
		t.Errorf("unexpected user message: %+v", m)
	}
	if m := NewAssistantMessage("b"); m.Role != "assistant" {
		t.Errorf("unexpected assistant message: %+v", m)
	}
	if m := NewSystemMessage("c"); m.Role != "system" {
		t.Errorf("unexpected system message: %+v", m)
	}
}

func TestChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Stream {
			t.Error("non-streaming Chat sent stream=true")
		}
		io.WriteString(w, `{"id":"x","choices":[{"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	defer srv.Close()

	client := NewClient("test-key").WithBaseURL(srv.URL)
	resp, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("ping")}, DefaultOptions())
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.GetContent() != "pong" {
		t.Errorf("expected %q, got %q", "pong", resp.GetContent())
	}
}

func TestChatRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"message":"transient"}}`)
			return
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	client := NewClient("test-key").WithBaseURL(srv.URL).WithRateLimit(1000)
	resp, err := client.Chat(context.Background(), nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Chat failed after retries: %v", err)
	}
	if resp.GetContent() != "ok" {
		t.Errorf("expected ok, got %q", resp.GetContent())
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestChatNoRetryOnAuthFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"nope"}}`)
	}))
	defer srv.Close()

	client := NewClient("test-key").WithBaseURL(srv.URL)
	_, err := client.Chat(context.Background(), nil, DefaultOptions())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if calls != 1 {
		t.Errorf("auth failures must not retry, got %d attempts", calls)
	}
}

func TestHandleErrorResponseMapping(t *testing.T) {
	client := NewClient("k")

	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"error":{"message":"x"}}`, ErrAuthFailed},
		{http.StatusNotFound, `{"error":{"message":"x"}}`, ErrModelNotFound},
		{http.StatusTooManyRequests, `{"error":{"message":"x"}}`, ErrRateLimited},
		{http.StatusUnauthorized, `garbage`, ErrAuthFailed},
	}

	for _, tt := range tests {
		err := client.handleErrorResponse(tt.status, []byte(tt.body))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}

	// Unknown statuses become *APIError.
	err := client.handleErrorResponse(http.StatusBadGateway, []byte(`{"error":{"code":"oops","message":"down"}}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Code != "oops" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestCalculateBackoff(t *testing.T) {
	client := NewClient("k")
	if d := client.calculateBackoff(1); d != 500*time.Millisecond {
		t.Errorf("attempt 1: expected 500ms, got %v", d)
	}
	if d := client.calculateBackoff(2); d != time.Second {
		t.Errorf("attempt 2: expected 1s, got %v", d)
	}
	if d := client.calculateBackoff(20); d != retryMaxDelay {
		t.Errorf("large attempt should cap at %v, got %v", retryMaxDelay, d)
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(context.Canceled) {
		t.Error("context.Canceled must not be retryable")
	}
	if isRetryable(ErrAuthFailed) {
		t.Error("auth failures must not be retryable")
	}
	if !isRetryable(ErrRateLimited) {
		t.Error("rate limiting should be retryable")
	}
	if !isRetryable(&APIError{Status: 503}) {
		t.Error("5xx should be retryable")
	}
	if isRetryable(&APIError{Status: 400}) {
		t.Error("4xx must not be retryable")
	}
	if !isRetryable(errors.New("connection reset")) {
		t.Error("network errors should be retryable")
	}
}
