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

// Package scan implements a forward-only, incremental JSON tokenizer.
//
// A Lexer consumes successive byte chunks of a logically infinite stream and
// emits a lazy sequence of lexical tokens (see package token), preserving
// its internal state machine across chunk boundaries. It performs zero
// steady-state allocation on the hot path: decoded string/number content is
// built up in a single reusable accumulator, and repeated short object keys
// are served out of a bounded intern cache (package internal/intern).
//
// # Escape semantics
//
// The lexer does not expand \uXXXX or other escape sequences; it copies the
// escape body (including the leading backslash) verbatim into the decoded
// string value. This sacrifices "correct" value semantics for \u escapes in
// exchange for byte-exact round-tripping in raw-capture mode, matching the
// reference implementation this tokenizer is modeled on.
//
// # Number grammar
//
// Any run of [0-9.eE+-] following a leading digit or '-' is accepted as a
// single NUMBER token (a leading '.' is skipped like any other stray byte); malformed numbers (e.g. "1.2.3") are
// not rejected by the tokenizer itself. A general float parse is used as
// the fallback if the fast integer path does not apply. This is a
// deliberate permissiveness: strict JSON number-grammar conformance is left
// to a higher layer, consistent with the reference implementation.
package scan

import (
	"strconv"

	"github.com/jsonproj/strime/internal/intern"
	"github.com/jsonproj/strime/token"
)

// CheckInterval is how often, in logical bytes, Feed polls its Checkpoint
// function. It is a compile-time constant: a reasonable trade-off between
// cancellation latency and per-byte branch overhead.
const CheckInterval = 32768

// internal FSM states.
const (
	stateIdle uint8 = iota
	stateString
	stateStringEscape
	stateNumber
	stateLiteral
)

// internShortStringCap is the interning threshold: only strings shorter than this are
// looked up in the bounded cache.
const internShortStringCap = 32

// Lexer is an incremental JSON tokenizer. The zero Lexer is ready to use.
//
// A Lexer is not safe for concurrent use, and must not be shared between
// concurrent logical flows: construct one per flow and discard it (or
// Reset it) at the flow's end.
type Lexer struct {
	state uint8
	pos   int64 // logical offset of the next unconsumed byte

	accum    []byte
	tokStart int64

	litTarget string
	litKind   token.Kind
	litIdx    int

	numSeenNonDigit bool
	numIntVal       uint64
	numNeg          bool
	numDigits       int

	intern *intern.Table

	// checkpoint, if set, is invoked whenever pos crosses a CheckInterval
	// boundary. A non-nil error aborts Feed immediately.
	checkpoint func(pos int64) error

	tok     token.Token // reused record for the callback form of Feed
	lastErr error       // last error observed by the Tokens iterator form
}

// NewLexer creates a ready-to-use Lexer.
func NewLexer() *Lexer {
	return &Lexer{
		accum:  make([]byte, 0, 65536),
		intern: intern.NewTable(intern.DefaultCap),
	}
}

// Reset clears all FSM state; the next Feed call is treated as starting at
// logical position 0.
func (l *Lexer) Reset() {
	l.state = stateIdle
	l.pos = 0
	l.accum = l.accum[:0]
	l.tokStart = 0
	l.litTarget = ""
	l.litIdx = 0
	l.numSeenNonDigit = false
	l.numIntVal = 0
	l.numNeg = false
	l.numDigits = 0
	if l.intern != nil {
		l.intern.Reset()
	}
}

// SetCheckpoint installs fn as the periodic cancellation/budget check,
// called roughly every CheckInterval logical bytes. Pass nil to disable.
func (l *Lexer) SetCheckpoint(fn func(pos int64) error) {
	l.checkpoint = fn
}

// Pos returns the logical byte offset of the next unconsumed byte.
func (l *Lexer) Pos() int64 {
	return l.pos
}

// SkipBytes advances the logical position by n without lexing the
// intervening bytes. Callers must only use this at a token boundary (the
// Lexer is in stateIdle), which is always true between a structure-start
// token and the next token: it exists for the engine's chunked skip fast
// path (spec.md §4.2.6), which bypasses the tokenizer entirely while deep
// inside an unselected subtree.
func (l *Lexer) SkipBytes(n int64) {
	l.pos += n
}

// Feed processes the next contiguous chunk of the stream, invoking onToken
// exactly once per completed token. onToken receives a pointer to a single
// record that the Lexer mutates and reuses; callers must copy any fields
// they need before returning.
//
// A call to Feed may consume its entire chunk without producing a single
// token, if every byte belonged to an in-progress string, number, or
// literal.
//
// If onToken returns a non-nil error, Feed stops immediately and returns
// that error (the FSM state is left exactly as it was after the token that
// triggered the error, so a subsequent Feed call — on the rest of this
// chunk, even — would resume correctly, though callers that abort
// generally do not resume).
func (l *Lexer) Feed(chunk []byte, onToken func(tok *token.Token) error) error {
	i := 0
	for i < len(chunk) {
		if l.checkpoint != nil && l.pos%CheckInterval == 0 {
			if err := l.checkpoint(l.pos); err != nil {
				return err
			}
		}

		b := chunk[i]

		switch l.state {
		case stateIdle:
			switch {
			case b == ' ' || b == '\t' || b == '\r' || b == '\n':
				l.pos++
				i++

			case b == '{' || b == '}' || b == '[' || b == ']' || b == ',' || b == ':':
				l.tok = token.Token{Kind: structuralKind(b), Start: l.pos, End: l.pos + 1}
				l.pos++
				i++
				if err := onToken(&l.tok); err != nil {
					return err
				}

			case b == '"':
				l.tokStart = l.pos
				l.accum = l.accum[:0]
				l.pos++
				i++
				l.state = stateString

			case b == 't':
				l.startLiteral("true", token.True)
			case b == 'f':
				l.startLiteral("false", token.False)
			case b == 'n':
				l.startLiteral("null", token.Null)

			case b == '-' || (b >= '0' && b <= '9'):
				l.tokStart = l.pos
				l.accum = l.accum[:0]
				l.numSeenNonDigit = false
				l.numIntVal = 0
				l.numNeg = false
				l.numDigits = 0
				l.state = stateNumber
				// Reprocess this same byte under stateNumber.

			default:
				// Garbage between tokens is tolerated.
				l.pos++
				i++
			}

		case stateLiteral:
			if b != l.litTarget[l.litIdx] {
				l.accum = append(l.accum, b)
				return &TokenizationError{Pos: l.tokStart, Got: string(l.accum)}
			}
			l.accum = append(l.accum, b)
			l.litIdx++
			l.pos++
			i++
			if l.litIdx == len(l.litTarget) {
				l.tok = token.Token{Kind: l.litKind, Start: l.tokStart, End: l.pos}
				l.state = stateIdle
				if err := onToken(&l.tok); err != nil {
					return err
				}
			}

		case stateNumber:
			if isNumberByte(b) {
				l.accumNumberByte(b)
				l.pos++
				i++
				continue
			}
			if err := l.emitNumber(onToken); err != nil {
				return err
			}
			l.state = stateIdle
			// Do not advance i: reprocess this byte under stateIdle.

		case stateString:
			switch b {
			case '"':
				l.emitString()
				l.pos++
				i++
				l.state = stateIdle
				if err := onToken(&l.tok); err != nil {
					return err
				}
			case '\\':
				l.accum = append(l.accum, b)
				l.pos++
				i++
				l.state = stateStringEscape
			default:
				l.accum = append(l.accum, b)
				l.pos++
				i++
			}

		case stateStringEscape:
			l.accum = append(l.accum, b)
			l.pos++
			i++
			l.state = stateString
		}
	}
	return nil
}

// Finish signals that no more chunks will be fed, and invokes onToken once
// more with a zero-width EOF token at the current logical position.
//
// If the stream ended mid-string or mid-literal, that in-progress token is
// simply abandoned: it is never emitted, and Finish does not report an
// error for it (spec: "no emission for that field; no crash"). An
// in-progress number is emitted before the EOF token.
func (l *Lexer) Finish(onToken func(tok *token.Token) error) error {
	if l.state == stateNumber {
		// A number can legally end at EOF (no following delimiter is
		// required), so it is the one in-progress state that still gets
		// flushed here.
		if err := l.emitNumber(onToken); err != nil {
			return err
		}
		l.state = stateIdle
	}

	l.tok = token.Token{Kind: token.EOF, Start: l.pos, End: l.pos}
	return onToken(&l.tok)
}

func (l *Lexer) startLiteral(target string, kind token.Kind) {
	l.tokStart = l.pos
	l.accum = l.accum[:0]
	l.litTarget = target
	l.litKind = kind
	l.litIdx = 0
	l.state = stateLiteral
}

func isNumberByte(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b == '.' || b == 'e' || b == 'E' || b == '+' || b == '-':
		return true
	default:
		return false
	}
}

// accumNumberByte updates both the raw accumulator (used for the general
// float fallback) and the integer fast path.
func (l *Lexer) accumNumberByte(b byte) {
	l.accum = append(l.accum, b)

	switch {
	case b >= '0' && b <= '9':
		if !l.numSeenNonDigit {
			l.numIntVal = l.numIntVal*10 + uint64(b-'0')
			l.numDigits++
		}
	case b == '-' && l.numDigits == 0 && !l.numNeg:
		l.numNeg = true
	default:
		l.numSeenNonDigit = true
	}
}

// emitString finalizes the current string token into l.tok, applying
// bounded interning for short decoded values.
func (l *Lexer) emitString() {
	var value string
	if len(l.accum) < internShortStringCap {
		value = l.intern.Intern(string(l.accum))
	} else {
		value = string(l.accum)
	}
	l.tok = token.Token{Kind: token.String, Start: l.tokStart, End: l.pos + 1, Value: value}
}

// emitNumber finalizes the current number token, preferring the integer
// fast path and falling back to a general float parse.
func (l *Lexer) emitNumber(onToken func(tok *token.Token) error) error {
	var value any
	if !l.numSeenNonDigit && l.numDigits > 0 {
		v := int64(l.numIntVal)
		if l.numNeg {
			v = -v
		}
		value = v
	} else {
		f, err := strconv.ParseFloat(string(l.accum), 64)
		if err != nil {
			// Malformed numbers are not rejected by the tokenizer; emit
			// NaN-free best effort (0) and let a higher layer notice the
			// value is unusable, per the permissive number grammar.
			f = 0
		}
		value = f
	}
	l.tok = token.Token{Kind: token.Number, Start: l.tokStart, End: l.pos, Value: value}
	return onToken(&l.tok)
}

func structuralKind(b byte) token.Kind {
	switch b {
	case '{':
		return token.LBrace
	case '}':
		return token.RBrace
	case '[':
		return token.LBracket
	case ']':
		return token.RBracket
	case ':':
		return token.Colon
	default:
		return token.Comma
	}
}
