// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// initialEstimate is the word-count guess before any growth is observed.
const initialEstimate = 100

// ProgressEstimator guesses the final word count of a response so the UI
// can show a meaningful progress bar for an open-ended stream. The guess
// grows whenever the observed count approaches it.
type ProgressEstimator struct {
	estimate float64
}

// NewProgressEstimator creates an estimator starting at the default guess.
func NewProgressEstimator() *ProgressEstimator {
	return &ProgressEstimator{estimate: initialEstimate}
}

// NewResumeEstimator creates an estimator primed with the word count of an
// already-received partial response.
func NewResumeEstimator(partialWords int) *ProgressEstimator {
	e := float64(partialWords + 50)
	if e < initialEstimate {
		e = initialEstimate
	}
	return &ProgressEstimator{estimate: e}
}

// Observe updates the estimate with the current observed word count. Once
// the observed count passes 80% of the estimate, the estimate grows to the
// larger of 1.5x its old value and observed+50, so the bar never pins at
// full before the stream ends.
func (e *ProgressEstimator) Observe(words int) {
	if float64(words) > e.estimate*0.8 {
		grown := e.estimate * 1.5
		floor := float64(words + 50)
		if floor > grown {
			e.estimate = floor
		} else {
			e.estimate = grown
		}
	}
}

// Estimate returns the current total-words guess.
func (e *ProgressEstimator) Estimate() int {
	return int(e.estimate)
}

// Percent returns display progress in [0, 99]. It never reports 100 while
// streaming; completion is signalled by the state machine, not the bar.
func (e *ProgressEstimator) Percent(words int) int {
	if e.estimate <= 0 {
		return 0
	}
	pct := int(float64(words) / e.estimate * 100)
	if pct > 99 {
		pct = 99
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}
