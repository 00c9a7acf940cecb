// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

// Options holds the sampling parameters sent with every chat request.
// The zero value is not useful; start from DefaultOptions.
type Options struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	TopK             int
	PresencePenalty  float64
	FrequencyPenalty float64
}

// DefaultOptions returns the sampling parameters used for all exchanges.
func DefaultOptions() Options {
	return Options{
		MaxTokens:        16000,
		Temperature:      0.6,
		TopP:             1,
		TopK:             40,
		PresencePenalty:  0,
		FrequencyPenalty: 0,
	}
}

// ChatRequest is the wire form of a chat completions request.
//
// PresencePenalty and FrequencyPenalty deliberately omit "omitempty" so an
// explicit zero reaches the API unchanged.
type ChatRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Stream           bool          `json:"stream"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Temperature      float64       `json:"temperature,omitempty"`
	TopP             float64       `json:"top_p,omitempty"`
	TopK             int           `json:"top_k,omitempty"`
	PresencePenalty  float64       `json:"presence_penalty"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
}

// buildRequest assembles the wire request from messages and options.
func (c *Client) buildRequest(messages []ChatMessage, opts Options, stream bool) ChatRequest {
	return ChatRequest{
		Model:            c.model,
		Messages:         messages,
		Stream:           stream,
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		TopK:             opts.TopK,
		PresencePenalty:  opts.PresencePenalty,
		FrequencyPenalty: opts.FrequencyPenalty,
	}
}
