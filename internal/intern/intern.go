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

// Package intern provides a small, bounded string-interning cache.
//
// Unlike a general-purpose interning table, this one never grows past a
// fixed entry cap: once full, new strings are simply not cached. This
// matches the tokenizer's use case, where interning only pays off for the
// small, repetitive set of object keys found in typical JSON documents, and
// an unbounded cache would be a memory leak for documents with many unique
// string values.
package intern

// Table is a bounded string cache. It is not safe for concurrent use; each
// tokenizer owns exactly one Table for the lifetime of a single flow.
//
// The zero Table is empty and ready to use.
type Table struct {
	cache map[string]string
	cap   int
}

// DefaultCap is the cache size the tokenizer passes to NewTable. NewTable
// itself always uses the cap it is given.
const DefaultCap = 500

// NewTable creates a Table that holds at most cap distinct strings.
func NewTable(cap int) *Table {
	return &Table{cap: cap}
}

// Intern returns a cached copy of s if one exists, inserting s into the
// cache (subject to the cap) if not. The returned string always compares
// equal to s.
func (t *Table) Intern(s string) string {
	if t.cache == nil {
		t.cache = make(map[string]string, t.cap)
	}

	if cached, ok := t.cache[s]; ok {
		return cached
	}

	if len(t.cache) >= t.cap {
		// Cache is full: return s as-is without inserting. We still clone
		// it, since the caller's buffer may be reused by the next token.
		return cloneString(s)
	}

	cloned := cloneString(s)
	t.cache[cloned] = cloned
	return cloned
}

// Len returns the number of distinct strings currently cached.
func (t *Table) Len() int {
	return len(t.cache)
}

// Reset empties the cache, as if it were freshly constructed.
func (t *Table) Reset() {
	clear(t.cache)
}

func cloneString(s string) string {
	b := make([]byte, len(s))
	copy(b, s)
	return string(b)
}
