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

// Package sink defines the output contract the projection engine invokes
// at match-emit time (spec.md §6.3).
package sink

import "github.com/jsonproj/strime/budget"

// Sink receives the engine's output. Any of its four entry points may be
// asynchronous; the engine never awaits them, so backpressure is the
// implementation's responsibility.
type Sink interface {
	// OnMatch is called after each materialized match in object mode.
	OnMatch(value any)
	// OnRawMatch is called after each match in raw mode, with the exact
	// source bytes of the match.
	OnRawMatch(data []byte)
	// OnStats is called periodically with a counters snapshot.
	OnStats(stats budget.Stats)
	// OnDrain is called once, after the last input chunk has been
	// consumed, to signal completion.
	OnDrain()
}

// Nop implements Sink with no-op methods. A real sink embeds Nop and
// overrides only the entry points it cares about, matching spec.md §6.3's
// "a sink provides any subset" without requiring every implementer to
// write four empty methods.
type Nop struct{}

func (Nop) OnMatch(any)          {}
func (Nop) OnRawMatch([]byte)    {}
func (Nop) OnStats(budget.Stats) {}
func (Nop) OnDrain()             {}

// Func adapts a single onMatch-shaped function into a Sink, for the common
// case of only wanting materialized matches.
type Func struct {
	Nop
	Match func(value any)
}

func (f Func) OnMatch(value any) {
	if f.Match != nil {
		f.Match(value)
	}
}

// Collector is a Sink that simply appends every materialized match it
// sees, useful for tests and for the query/CLI layers' single-document
// mode.
type Collector struct {
	Nop
	Matches []any
	Raw     [][]byte
	Stats   []budget.Stats
	Drained bool
}

func (c *Collector) OnMatch(value any) {
	c.Matches = append(c.Matches, value)
}

func (c *Collector) OnRawMatch(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	c.Raw = append(c.Raw, cp)
}

func (c *Collector) OnStats(s budget.Stats) {
	c.Stats = append(c.Stats, s)
}

func (c *Collector) OnDrain() {
	c.Drained = true
}
