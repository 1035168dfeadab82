// Copyright 2024 The strime Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package budget implements the engine's cross-cutting resource limits and
// cooperative cancellation (spec.md §4.2.5).
package budget

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Kind identifies which ceiling a BudgetExhaustedError crossed.
type Kind uint8

const (
	Matches Kind = iota
	Bytes
	Duration
)

func (k Kind) String() string {
	switch k {
	case Matches:
		return "MATCHES"
	case Bytes:
		return "BYTES"
	case Duration:
		return "DURATION"
	default:
		return "UNKNOWN"
	}
}

// BudgetExhaustedError reports that a budget ceiling was crossed. It is a
// controlled termination: everything emitted before it remains valid.
type BudgetExhaustedError struct {
	Kind  Kind
	Limit int64
	Value int64
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("budget: %s limit %d exceeded (value %d)", e.Kind, e.Limit, e.Value)
}

// AbortError reports that the cooperative cancellation flag was observed
// set at a check point.
type AbortError struct{}

func (*AbortError) Error() string { return "budget: execution aborted" }

// Budget holds the three advisory ceilings from spec.md §4.2.5. A zero
// value in any field means "no limit" for that dimension.
type Budget struct {
	MaxMatches    int64
	MaxBytes      int64
	MaxDurationMs int64
}

// Tracker enforces a Budget over the lifetime of one engine execution, plus
// an independently settable cancellation flag. A Tracker is not safe for
// concurrent use except for Cancel, which may be called from another
// goroutine to request cooperative cancellation.
type Tracker struct {
	budget    Budget
	start     time.Time
	matches   int64
	bytes     int64
	cancelled atomic.Bool
}

// NewTracker creates a Tracker for b, starting its wall-clock budget now.
func NewTracker(b Budget) *Tracker {
	return &Tracker{budget: b, start: time.Now()}
}

// Cancel requests cooperative cancellation. Safe to call from any
// goroutine; takes effect at the Tracker's next Check call.
func (t *Tracker) Cancel() {
	t.cancelled.Store(true)
}

// RecordMatch increments the matched-count counter.
func (t *Tracker) RecordMatch() {
	t.matches++
}

// RecordBytes adds n to the processed-bytes counter.
func (t *Tracker) RecordBytes(n int64) {
	t.bytes += n
}

// Check verifies the cancellation flag and every configured ceiling,
// returning an *AbortError or *BudgetExhaustedError on the first violation
// found, in that priority order. Intended to be called at every match, at
// every chunk boundary, and periodically (every ~32 KB) inside the
// tokenizer (spec.md §4.2.5).
func (t *Tracker) Check() error {
	if t.cancelled.Load() {
		return &AbortError{}
	}
	if t.budget.MaxMatches > 0 && t.matches > t.budget.MaxMatches {
		return &BudgetExhaustedError{Kind: Matches, Limit: t.budget.MaxMatches, Value: t.matches}
	}
	if t.budget.MaxBytes > 0 && t.bytes > t.budget.MaxBytes {
		return &BudgetExhaustedError{Kind: Bytes, Limit: t.budget.MaxBytes, Value: t.bytes}
	}
	if t.budget.MaxDurationMs > 0 {
		elapsed := time.Since(t.start).Milliseconds()
		if elapsed > t.budget.MaxDurationMs {
			return &BudgetExhaustedError{Kind: Duration, Limit: t.budget.MaxDurationMs, Value: elapsed}
		}
	}
	return nil
}

// Stats is a point-in-time snapshot of a Tracker's counters, matching
// spec.md §6.3's onStats shape.
type Stats struct {
	MatchedCount   int64
	ProcessedBytes int64
	DurationMs     int64
	ThroughputMbps float64
	SkipRatio      float64
}

// Snapshot returns the Tracker's current counters as a Stats value.
// skipRatio is supplied by the caller (the engine tracks skip-mode time
// itself; the Tracker has no visibility into it).
func (t *Tracker) Snapshot(skipRatio float64) Stats {
	durationMs := time.Since(t.start).Milliseconds()
	var throughput float64
	if durationMs > 0 {
		throughput = (float64(t.bytes) / (1024 * 1024)) / (float64(durationMs) / 1000)
	}
	return Stats{
		MatchedCount:   t.matches,
		ProcessedBytes: t.bytes,
		DurationMs:     durationMs,
		ThroughputMbps: throughput,
		SkipRatio:      skipRatio,
	}
}
