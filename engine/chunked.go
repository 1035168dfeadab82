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

package engine

// defaultWindow and minWindow bound ExecuteChunked's window size
// (spec.md §4.2.6): default 64 KB, floor 4 KB.
const (
	defaultWindow = 64 * 1024
	minWindow     = 4 * 1024
)

// ExecuteChunked slices buf into fixed-size windows and feeds them
// sequentially through ProcessChunk, then calls Finish. It exists solely
// to let the skip fast path (below) re-arm at window boundaries; its
// output is required to be bitwise identical to feeding buf as one chunk
// via Execute, for any window >= minWindow.
func (e *Engine) ExecuteChunked(buf []byte, window int) error {
	if window <= 0 {
		window = defaultWindow
	}
	if window < minWindow {
		window = minWindow
	}
	for len(buf) > 0 {
		n := window
		if n > len(buf) {
			n = len(buf)
		}
		if err := e.ProcessChunk(buf[:n]); err != nil {
			return err
		}
		buf = buf[n:]
	}
	return e.Finish()
}

// skipScanWindow is the skip sub-machine's byte-level fast path
// (spec.md §4.2.6/§9): a two-state micro-FSM tracking only brace depth and
// string/escape state, used in place of the full tokenizer while an entire
// window stays within a skipped subtree.
//
// It consumes data greedily but stops (without consuming) the byte that
// would bring depth to zero, so the real tokenizer can process that byte
// itself and fire the engine's ordinary structure-end handling. Because
// skip mode never produces observable output for any byte it consumes,
// bypassing the tokenizer here cannot change results — it only changes
// which code path advances the position counter.
//
// guard (nil-safe) is driven the same way the token path drives it in
// onStructureStart/onStructureEnd, so a deeply nested skipped subtree
// trips ERR_FANOUT_DEPTH at the same nesting level regardless of which
// path consumed its bytes (spec.md §4.2.7, §8 property 3). The array-size
// and object-key counters stay untouched here, matching the token path's
// own skip-mode exemption for those two (see DESIGN.md).
func skipScanWindow(data []byte, depth int, inString, inEscape bool, guard *fanoutGuard) (consumed, newDepth int, newInString, newInEscape bool, err error) {
	i := 0
	for i < len(data) {
		b := data[i]

		if inEscape {
			inEscape = false
			i++
			continue
		}
		if inString {
			switch b {
			case '\\':
				inEscape = true
			case '"':
				inString = false
			}
			i++
			continue
		}

		switch b {
		case '"':
			inString = true
			i++
		case '{', '[':
			depth++
			i++
			if gerr := guard.enterStructure(b == '['); gerr != nil {
				return i, depth, inString, inEscape, gerr
			}
		case '}', ']':
			if depth == 1 {
				return i, depth, inString, inEscape, nil
			}
			guard.leaveStructure(b == ']')
			depth--
			i++
		default:
			i++
		}
	}
	return i, depth, inString, inEscape, nil
}
