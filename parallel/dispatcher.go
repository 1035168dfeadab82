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

// Package parallel is the worker-pool–backed parallel dispatcher spec.md
// §1/§5 names as an external collaborator: it shards an NDJSON stream
// across worker goroutines, each running its own engine.Engine (spec.md
// §5: "not shared between concurrent flows"), and reassembles the results
// in one of two ordering modes.
package parallel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jsonproj/strime/budget"
	"github.com/jsonproj/strime/engine"
	"github.com/jsonproj/strime/internal/slicesx"
	"github.com/jsonproj/strime/selection"
	"github.com/jsonproj/strime/sink"
)

// Order selects how results from concurrent shards are reassembled
// (spec.md §5).
type Order uint8

const (
	// Preserve reorders completed shards with a bounded reorder buffer
	// (size = 2 * worker count) so matches are delivered to the sink in
	// the same order their source lines appeared in the stream.
	// Producing further ahead of the buffer's capacity blocks that
	// worker until the consumer drains enough of the backlog.
	Preserve Order = iota
	// Relaxed delivers each shard's matches to the sink as soon as that
	// shard finishes, in whatever order workers happen to complete.
	Relaxed
)

const maxLineBuffer = 16 * 1024 * 1024

// Config configures a Dispatcher run.
type Config struct {
	Root    *selection.Tree
	Sink    sink.Sink
	Mode    engine.Mode
	Budget  budget.Budget
	Workers int
	Order   Order
	Logger  *slog.Logger
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// shardResult is one worker's replayable output: a single NDJSON line
// projects to zero or more matches (an array input projects every
// element independently), captured locally so Run can replay them to
// cfg.Sink in the right order.
type shardResult struct {
	matches []any
	raw     [][]byte
	stats   []budget.Stats
	err     error
}

// Run shards r's lines across a worker pool, each worker owning a private
// engine.Engine built from cfg, and delivers results to cfg.Sink according
// to cfg.Order. The first worker error cancels the remaining shards and is
// returned; results already delivered before that point remain valid
// (spec.md §4.2.5's "controlled termination" contract extended to the
// dispatcher).
func Run(ctx context.Context, r io.Reader, cfg Config) error {
	workers := cfg.workers()
	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)

	re := newReassembler(cfg, workers)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBuffer)

	var seq int64
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		s := seq
		seq++

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			result := runShard(line, cfg)
			return re.deliver(s, result)
		})
	}

	waitErr := g.Wait()
	re.flush()
	cfg.Sink.OnDrain()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("parallel: reading input: %w", err)
	}
	return waitErr
}

func runShard(line []byte, cfg Config) shardResult {
	var result shardResult
	collector := &sink.Collector{}

	e := engine.New(engine.Config{Root: cfg.Root, Sink: collector, Mode: cfg.Mode, Budget: cfg.Budget})
	if err := e.Execute(line); err != nil {
		cfg.logger().Warn("parallel: shard failed", "error", err)
		result.err = err
	}
	result.matches = collector.Matches
	result.raw = collector.Raw
	result.stats = collector.Stats
	return result
}

// reassembler implements both ordering modes over a single cfg.Sink.
type reassembler struct {
	cfg     Config
	mu      sync.Mutex
	cond    *sync.Cond
	pending *slicesx.Heap[int64, shardResult]
	next    int64
	cap     int
}

func newReassembler(cfg Config, workers int) *reassembler {
	re := &reassembler{
		cfg:     cfg,
		pending: slicesx.NewHeap[int64, shardResult](2 * workers),
		cap:     2 * workers,
	}
	re.cond = sync.NewCond(&re.mu)
	return re
}

func (re *reassembler) deliver(seq int64, result shardResult) error {
	if re.cfg.Order == Relaxed {
		re.mu.Lock()
		re.emit(result)
		re.mu.Unlock()
		return result.err
	}

	re.mu.Lock()
	// The shard next in line never waits: delivering it is what drains
	// the buffer.
	for re.pending.Len() >= re.cap && seq != re.next {
		re.cond.Wait()
	}
	re.pending.Push(seq, result)
	re.drainReady()
	re.mu.Unlock()
	return result.err
}

// drainReady emits every buffered shard whose sequence number is next in
// line, in order. Must be called with re.mu held.
func (re *reassembler) drainReady() {
	for re.pending.Len() > 0 {
		seq, result := re.pending.Pop()
		if seq != re.next {
			// Not ready yet: put it back (the heap has no peek, so pop
			// then re-push is the straightforward way to check the min).
			re.pending.Push(seq, result)
			return
		}
		re.emit(result)
		re.next++
		re.cond.Signal()
	}
}

// flush delivers any remaining buffered shards in sequence order once no
// more results will arrive (used after a context cancellation left gaps).
func (re *reassembler) flush() {
	re.mu.Lock()
	defer re.mu.Unlock()
	for re.pending.Len() > 0 {
		_, result := re.pending.Pop()
		re.emit(result)
	}
}

func (re *reassembler) emit(result shardResult) {
	for _, m := range result.matches {
		re.cfg.Sink.OnMatch(m)
	}
	for _, raw := range result.raw {
		re.cfg.Sink.OnRawMatch(raw)
	}
	for _, st := range result.stats {
		re.cfg.Sink.OnStats(st)
	}
}
