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

// Package subscribe implements the "subscribe/push façade over the engine"
// spec.md §1 names as an out-of-scope collaborator: a minimal channel-based
// Sink adapter so a caller can range over emitted matches instead of
// implementing sink.Sink's four entry points directly.
package subscribe

import (
	"github.com/jsonproj/strime/budget"
	"github.com/jsonproj/strime/sink"
)

// Event is one item delivered to a Channel's subscriber: exactly one of
// Match or Raw is meaningful, selected by the Engine's emission mode.
type Event struct {
	Match any
	Raw   []byte
}

// Channel is a sink.Sink that forwards every match as an Event on a
// buffered channel, and stats/drain on their own channels. The engine
// never awaits a Sink, so a slow or absent subscriber backs up the
// channel's buffer rather than blocking the engine synchronously — once
// the buffer is full, sends block the goroutine driving the engine, which
// is the same backpressure trade-off spec.md §6.3 leaves to the runtime
// layer.
type Channel struct {
	sink.Nop

	events chan Event
	stats  chan budget.Stats
	done   chan struct{}
}

// NewChannel creates a Channel with the given event-channel buffer size.
func NewChannel(buffer int) *Channel {
	return &Channel{
		events: make(chan Event, buffer),
		stats:  make(chan budget.Stats, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the channel of emitted matches, closed after OnDrain.
func (c *Channel) Events() <-chan Event { return c.events }

// Stats returns the channel of periodic stats snapshots, closed after
// OnDrain.
func (c *Channel) Stats() <-chan budget.Stats { return c.stats }

// Done returns a channel closed once the engine signals completion.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) OnMatch(value any)      { c.events <- Event{Match: value} }
func (c *Channel) OnRawMatch(data []byte) { c.events <- Event{Raw: data} }
func (c *Channel) OnStats(s budget.Stats) { c.stats <- s }

func (c *Channel) OnDrain() {
	close(c.events)
	close(c.stats)
	close(c.done)
}
