// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the Fireworks AI chat completions client.
//
// The client speaks the OpenAI-compatible chat completions protocol over
// HTTPS. Streaming responses arrive as Server-Sent Events and are delivered
// to consumers as a channel of Fragment values; connection and decode
// failures are carried as error values on the same channel rather than
// panics, so a consumer drains a single channel for the whole exchange.
package cloud
