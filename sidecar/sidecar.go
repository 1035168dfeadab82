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

// Package sidecar implements the optional indexed-access preprocessing
// pass of spec.md §4.3: a one-time scan of an immutable byte buffer that
// records, for each root-level object key, the byte offset of its
// following colon. A later query for a subset of root keys can then seed
// the engine near the earliest of those offsets instead of at byte 0.
//
// An Index is a pure optimization: correctness of a query never depends
// on one being present, and it must be discarded whenever the underlying
// buffer's identity changes (a new buffer needs its own Index).
package sidecar

import (
	"github.com/tidwall/btree"

	"github.com/jsonproj/strime/scan"
	"github.com/jsonproj/strime/token"
)

// lookbehind is subtracted from the minimum offset returned by StartOffset,
// so the engine's tokenizer re-synchronizes on the opening quote or comma
// that precedes the key rather than landing mid-token (spec.md §4.3).
const lookbehind = 50

// Index maps each root-level key of an object-rooted buffer to the byte
// offset of its following colon.
type Index struct {
	offsets btree.Map[string, int64]
	isObj   bool
}

// Build scans buf once and returns its Index. If buf's root value is not a
// JSON object, the returned Index is empty and StartOffset always reports
// "not found" (the optimization only applies to object-rooted buffers, per
// spec.md §4.3).
func Build(buf []byte) (*Index, error) {
	idx := &Index{}

	depth := 0
	expectKey := false
	havePendingKey := false
	var pendingKey string

	lx := scan.NewLexer()
	err := lx.Feed(buf, func(tok *token.Token) error {
		switch tok.Kind {
		case token.LBrace, token.LBracket:
			depth++
			if depth == 1 {
				idx.isObj = tok.Kind == token.LBrace
				expectKey = idx.isObj
			}
		case token.RBrace, token.RBracket:
			depth--
		case token.Comma:
			if depth == 1 && idx.isObj {
				expectKey = true
			}
		case token.String:
			if depth == 1 && idx.isObj && expectKey && !havePendingKey {
				if s, ok := tok.AsString(); ok {
					pendingKey = s
					havePendingKey = true
					expectKey = false
				}
			}
		case token.Colon:
			if depth == 1 && idx.isObj && havePendingKey {
				idx.offsets.Set(pendingKey, tok.Start)
				havePendingKey = false
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := lx.Finish(func(*token.Token) error { return nil }); err != nil {
		return nil, err
	}
	return idx, nil
}

// Offset returns the byte offset of key's colon, and whether key was found
// at the root of the indexed buffer.
func (idx *Index) Offset(key string) (int64, bool) {
	if idx == nil {
		return 0, false
	}
	return idx.offsets.Get(key)
}

// Len reports how many root-level keys were indexed.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.offsets.Len()
}

// StartOffset returns the byte offset at which a query for keys should
// start the engine: lookbehind bytes before the smallest recorded colon
// offset among keys, clamped to zero. The second return value is false if
// none of keys were found, in which case the caller should fall back to
// starting at offset 0.
func (idx *Index) StartOffset(keys []string) (int64, bool) {
	if idx == nil {
		return 0, false
	}
	var min int64 = -1
	for _, k := range keys {
		off, ok := idx.offsets.Get(k)
		if !ok {
			continue
		}
		if min == -1 || off < min {
			min = off
		}
	}
	if min == -1 {
		return 0, false
	}
	start := min - lookbehind
	if start < 0 {
		start = 0
	}
	return start, true
}
