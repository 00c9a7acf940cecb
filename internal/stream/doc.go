// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream implements the streaming response engine: a rolling
// display buffer over unbounded response text, a per-exchange lifecycle
// state machine, a word-based progress estimator, and the cancel/resume
// controller that lets an interrupted response pick up where it stopped.
//
// All state lives on an explicit Session value; there are no package-level
// singletons, so tests and callers can run isolated sessions side by side.
package stream
