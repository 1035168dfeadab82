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

// Package engine implements the selection-driven pushdown automaton that
// consumes a token stream from package scan and projects matching values
// to a sink (spec.md §4.2).
package engine

import (
	"fmt"

	"github.com/petermattis/goid"

	"github.com/jsonproj/strime/budget"
	"github.com/jsonproj/strime/directive"
	"github.com/jsonproj/strime/scan"
	"github.com/jsonproj/strime/selection"
	"github.com/jsonproj/strime/sink"
	"github.com/jsonproj/strime/token"
)

// Config configures a new Engine. Root and Sink are required; the rest
// take their zero value as a sensible default (no budget ceilings, no
// fan-out guard, object emission mode).
type Config struct {
	Root   *selection.Tree
	Sink   sink.Sink
	Mode   Mode
	Budget budget.Budget
	// Fanout enables the optional fan-out guard (spec.md §4.2.7) when
	// non-nil.
	Fanout *FanoutLimits
}

// Engine is a selection-driven pushdown automaton over one logical
// execution of a byte stream. Per spec.md §5, an Engine is not safe for
// concurrent use and must not be shared between flows: construct one per
// flow (or Reset an existing one between flows) and confine it to a single
// goroutine for its entire lifetime.
type Engine struct {
	root       *selection.Tree
	sink       sink.Sink
	mode       Mode
	guard      *fanoutGuard
	lexer      *scan.Lexer
	tracker    *budget.Tracker
	origBudget budget.Budget

	selStack  stack[*selection.Tree]
	resStack  stack[any]
	kindStack stack[bool]
	keyStack  stack[string]

	pendingKey    string
	hasPendingKey bool

	skipDepth    int
	skipInString bool
	skipInEscape bool
	skipBytes    int64

	capture captureState

	curChunk      []byte
	curChunkStart int64

	final    any
	hasFinal bool

	creatorGoid int64
}

// New constructs an Engine ready to process its first chunk.
func New(cfg Config) *Engine {
	e := &Engine{
		root:        cfg.Root,
		sink:        cfg.Sink,
		mode:        cfg.Mode,
		lexer:       scan.NewLexer(),
		tracker:     budget.NewTracker(cfg.Budget),
		origBudget:  cfg.Budget,
		creatorGoid: goid.Get(),
	}
	if cfg.Fanout != nil {
		e.guard = newFanoutGuard(*cfg.Fanout)
	}
	e.lexer.SetCheckpoint(func(int64) error {
		return e.tracker.Check()
	})
	return e
}

// Cancel requests cooperative cancellation, observed at the next check
// point. Safe to call from any goroutine.
func (e *Engine) Cancel() {
	e.tracker.Cancel()
}

// Reset re-arms the Engine for a fresh execution with the same selection,
// sink, mode, and budget it was constructed with (spec.md §8's idempotence
// property: identical input through a Reset Engine yields identical
// output).
func (e *Engine) Reset() {
	e.lexer.Reset()
	e.selStack.reset()
	e.resStack.reset()
	e.kindStack.reset()
	e.keyStack.reset()
	e.pendingKey = ""
	e.hasPendingKey = false
	e.skipDepth = 0
	e.skipInString = false
	e.skipInEscape = false
	e.skipBytes = 0
	e.capture = captureState{}
	e.final = nil
	e.hasFinal = false
	e.tracker = budget.NewTracker(e.origBudget)
}

// Execute feeds buf as a single chunk and finishes the execution.
func (e *Engine) Execute(buf []byte) error {
	if err := e.ProcessChunk(buf); err != nil {
		return err
	}
	return e.Finish()
}

// ProcessChunk feeds the next contiguous chunk of the stream. Chunks must
// be fed in order, from the goroutine that constructed the Engine.
func (e *Engine) ProcessChunk(chunk []byte) error {
	e.assertOwner()
	if err := e.tracker.Check(); err != nil {
		return err
	}

	e.curChunkStart = e.lexer.Pos()
	e.curChunk = chunk
	e.capture.retain(chunkRef{start: e.curChunkStart, data: chunk})

	remaining := chunk
	if e.skipDepth > 0 && len(remaining) > 0 {
		consumed, newDepth, newInStr, newInEsc, guardErr := skipScanWindow(remaining, e.skipDepth, e.skipInString, e.skipInEscape, e.guard)
		if consumed > 0 {
			e.lexer.SkipBytes(int64(consumed))
			e.tracker.RecordBytes(int64(consumed))
			e.skipBytes += int64(consumed)
			e.skipDepth = newDepth
			e.skipInString = newInStr
			e.skipInEscape = newInEsc
			remaining = remaining[consumed:]
		}
		if guardErr != nil {
			return guardErr
		}
	}

	if len(remaining) > 0 {
		if err := e.lexer.Feed(remaining, e.onToken); err != nil {
			return err
		}
		e.tracker.RecordBytes(int64(len(remaining)))
	}
	if err := e.tracker.Check(); err != nil {
		return err
	}
	e.sink.OnStats(e.Stats())
	return nil
}

// Finish signals that no more chunks will arrive, flushes any trailing
// token, and invokes the sink's periodic stats hook followed by its drain
// hook (spec.md §6.3: onStats "periodically", onDrain once at the end).
func (e *Engine) Finish() error {
	e.assertOwner()
	if err := e.lexer.Finish(e.onToken); err != nil {
		return err
	}
	e.sink.OnStats(e.Stats())
	e.sink.OnDrain()
	return nil
}

// FinalResult returns the fully built root value of the most recent
// execution, regardless of whether the root itself was ever emitted as a
// match (a bare top-level array is stored but, per spec.md §4.2.1, its
// elements are emitted individually instead of the array as a whole).
func (e *Engine) FinalResult() (any, bool) {
	return e.final, e.hasFinal
}

// Stats returns a snapshot of the engine's counters, including an
// approximate skip ratio derived from bytes that were never handed to
// semantic processing.
func (e *Engine) Stats() budget.Stats {
	processed := e.tracker.Snapshot(0).ProcessedBytes
	var ratio float64
	if processed > 0 {
		ratio = float64(e.skipBytes) / float64(processed)
	}
	return e.tracker.Snapshot(ratio)
}

func (e *Engine) assertOwner() {
	if g := goid.Get(); g != e.creatorGoid {
		panic(fmt.Sprintf("engine: used from goroutine %d, but was created on %d", g, e.creatorGoid))
	}
}

// onToken is the Lexer callback: the heart of the pushdown automaton
// (spec.md §4.2.1).
func (e *Engine) onToken(tok *token.Token) error {
	switch tok.Kind {
	case token.LBrace, token.LBracket:
		return e.onStructureStart(tok)
	case token.RBrace, token.RBracket:
		return e.onStructureEnd(tok)
	case token.Colon, token.Comma:
		return nil
	case token.String:
		return e.onString(tok)
	case token.Number, token.True, token.False, token.Null:
		return e.onScalarValue(tok, scalarValue(tok))
	case token.EOF:
		return nil
	default:
		return nil
	}
}

func scalarValue(tok *token.Token) any {
	switch tok.Kind {
	case token.Number:
		if iv, ok := tok.AsInt(); ok {
			return iv
		}
		f, _ := tok.AsFloat()
		return f
	case token.True:
		return true
	case token.False:
		return false
	case token.Null:
		return nil
	default:
		return nil
	}
}

func (e *Engine) onStructureStart(tok *token.Token) error {
	isArrayTok := tok.Kind == token.LBracket

	if err := e.guard.enterStructure(isArrayTok); err != nil {
		return err
	}

	if e.skipDepth > 0 {
		e.skipDepth++
		return nil
	}

	lenBefore := e.selStack.len()

	var childSel *selection.Tree
	var outKey string
	willEmit := false

	switch {
	case lenBefore == 0:
		childSel = e.root
		willEmit = !isArrayTok

	case e.kindStack.top():
		if err := e.guard.countArrayElement(); err != nil {
			return err
		}
		childSel = e.selStack.top()
		willEmit = lenBefore == 1

	default:
		if !e.hasPendingKey {
			e.skipDepth = 1
			return nil
		}
		parentSel := e.selStack.top()
		node, ok := parentSel.Resolve(e.pendingKey)
		if !ok {
			e.hasPendingKey = false
			e.skipDepth = 1
			return nil
		}
		childSel = node.Children
		outKey = node.OutputKey(e.pendingKey)
	}

	container := newContainer(isArrayTok)
	e.attachToParent(lenBefore, outKey, container)

	if e.mode == ModeRaw && willEmit {
		e.capture.begin(tok.Start, chunkRef{start: e.curChunkStart, data: e.curChunk})
	}

	e.selStack.push(childSel)
	e.resStack.push(container)
	e.kindStack.push(isArrayTok)
	e.keyStack.push(outKey)
	e.hasPendingKey = false
	return nil
}

func (e *Engine) onStructureEnd(tok *token.Token) error {
	isArrayTok := tok.Kind == token.RBracket
	e.guard.leaveStructure(isArrayTok)

	if e.skipDepth > 0 {
		e.skipDepth--
		if e.skipDepth == 0 {
			e.hasPendingKey = false
		}
		return nil
	}

	selFrame := e.selStack.top()
	if !isArrayTok {
		if container, ok := e.resStack.top().(map[string]any); ok {
			for _, d := range selFrame.DefaultKeys() {
				if _, exists := container[d.OutputKey]; !exists {
					container[d.OutputKey] = d.Value
				}
			}
		}
	}

	e.selStack.pop()
	result := e.resStack.pop()
	e.kindStack.pop()
	outKey := e.keyStack.pop()
	e.hasPendingKey = false

	resolved := result
	if arrPtr, ok := result.(*[]any); ok {
		resolved = *arrPtr
	}

	newLen := e.selStack.len()
	if newLen > 0 && isArrayTok {
		// newContainer(true) hands out a *[]any so append can grow it in
		// place while the array is open; once closed, the parent slot
		// still holds that pointer (attachToParent stored it at
		// structure-start). Overwrite it with the plain []any so a
		// materialized match never exposes the build-time pointer.
		e.writeBackArray(outKey, resolved)
	}

	switch {
	case newLen == 0:
		e.final = resolved
		e.hasFinal = true
		if !isArrayTok {
			return e.emit(tok, resolved)
		}
	case newLen == 1 && e.kindStack.top():
		return e.emit(tok, resolved)
	}
	return nil
}

// writeBackArray replaces the *[]any pointer attachToParent left in the
// parent container (map key or array element) with its dereferenced
// []any value. Must run after the closing array's own stack frame has
// been popped, so e.resStack.top()/e.kindStack.top() refer to the parent.
func (e *Engine) writeBackArray(outKey string, resolved []any) {
	if e.kindStack.top() {
		arrPtr := e.resStack.top().(*[]any)
		(*arrPtr)[len(*arrPtr)-1] = resolved
		return
	}
	e.resStack.top().(map[string]any)[outKey] = resolved
}

func (e *Engine) onString(tok *token.Token) error {
	if e.skipDepth > 0 {
		return nil
	}
	s, _ := tok.AsString()

	if e.selStack.len() == 0 {
		return e.emitBareScalar(tok, s)
	}
	if !e.kindStack.top() && !e.hasPendingKey {
		e.pendingKey = s
		e.hasPendingKey = true
		return e.guard.countObjectKey()
	}
	return e.assignValue(s)
}

func (e *Engine) onScalarValue(tok *token.Token, v any) error {
	if e.skipDepth > 0 {
		return nil
	}
	if e.selStack.len() == 0 {
		return e.emitBareScalar(tok, v)
	}
	return e.assignValue(v)
}

func (e *Engine) assignValue(v any) error {
	if e.kindStack.top() {
		if err := e.guard.countArrayElement(); err != nil {
			return err
		}
		arrPtr := e.resStack.top().(*[]any)
		*arrPtr = append(*arrPtr, v)
		return nil
	}

	if !e.hasPendingKey {
		return nil
	}
	key := e.pendingKey
	e.hasPendingKey = false

	sel := e.selStack.top()
	node, ok := sel.Resolve(key)
	if !ok {
		return nil
	}
	outKey := node.OutputKey(key)
	transformed := directive.Apply(node.Directives, v)
	e.resStack.top().(map[string]any)[outKey] = transformed
	return nil
}

// emitBareScalar handles the degenerate case of a top-level JSON document
// that is itself a scalar (no enclosing object or array): the whole
// document is the sole match.
func (e *Engine) emitBareScalar(tok *token.Token, v any) error {
	if e.hasFinal {
		return nil
	}
	e.final = v
	e.hasFinal = true

	if e.mode == ModeRaw {
		lo := tok.Start - e.curChunkStart
		hi := tok.End - e.curChunkStart
		if lo >= 0 && hi <= int64(len(e.curChunk)) {
			data := make([]byte, hi-lo)
			copy(data, e.curChunk[lo:hi])
			e.tracker.RecordMatch()
			e.sink.OnRawMatch(data)
			return e.tracker.Check()
		}
	}
	e.tracker.RecordMatch()
	e.sink.OnMatch(v)
	return e.tracker.Check()
}

func (e *Engine) emit(tok *token.Token, value any) error {
	e.tracker.RecordMatch()
	if e.mode == ModeRaw {
		data := e.capture.end(tok.End)
		e.sink.OnRawMatch(data)
	} else {
		e.sink.OnMatch(value)
	}
	return e.tracker.Check()
}

func (e *Engine) attachToParent(lenBefore int, outKey string, container any) {
	if lenBefore == 0 {
		return
	}
	if e.kindStack.top() {
		arrPtr := e.resStack.top().(*[]any)
		*arrPtr = append(*arrPtr, container)
		return
	}
	e.resStack.top().(map[string]any)[outKey] = container
}

func newContainer(isArray bool) any {
	if isArray {
		return new([]any)
	}
	return map[string]any{}
}
