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

package scan

import (
	"iter"

	"github.com/jsonproj/strime/token"
)

var errStopIteration = &stopIterationError{}

type stopIterationError struct{}

func (*stopIterationError) Error() string { return "scan: iteration stopped by consumer" }

// Tokens returns a lazy, pull-style sequence of tokens over chunk. Unlike
// Feed, each yielded Token is an independent value, not a reused record, so
// callers may retain it past the next iteration.
//
// Any tokenization error encountered while draining the sequence is
// recorded and can be retrieved with Err once the range loop ends. Stopping
// the loop early is not an error: Err is then nil even though the rest of
// the chunk was not consumed.
func (l *Lexer) Tokens(chunk []byte) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		l.lastErr = l.Feed(chunk, func(tok *token.Token) error {
			if !yield(*tok) {
				return errStopIteration
			}
			return nil
		})
		if l.lastErr == errStopIteration {
			l.lastErr = nil
		}
	}
}

// Err returns the error (if any) from the most recent call to Tokens.
func (l *Lexer) Err() error {
	return l.lastErr
}
