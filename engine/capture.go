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

// chunkRef pins a chunk by reference (not by copy) for the duration a raw
// capture might need bytes from it, per spec.md §4.2.3/§9 ("pin the first
// chunk by reference; append only subsequent chunks").
type chunkRef struct {
	start int64 // logical offset of data[0]
	data  []byte
}

// captureState tracks an in-flight raw-mode match. At most one capture is
// ever active at a time: spec.md §4.2.1's emission rule only fires at
// absolute depth 0 (root object) or absolute depth 1 (root array's
// elements), so captures never nest.
type captureState struct {
	active bool
	start  int64
	chunks []chunkRef
}

func (c *captureState) begin(start int64, cur chunkRef) {
	c.active = true
	c.start = start
	c.chunks = c.chunks[:0]
	c.chunks = append(c.chunks, cur)
}

func (c *captureState) retain(cur chunkRef) {
	if c.active {
		c.chunks = append(c.chunks, cur)
	}
}

// end assembles the byte span [c.start, end) out of the retained chunks
// and clears capture state. Matches spec.md §4.2.3's three cases (same
// chunk, two chunks, three-or-more chunks) with a single loop instead of
// special-casing each: overlap math collapses them into the same copy.
func (c *captureState) end(end int64) []byte {
	out := make([]byte, 0, end-c.start)
	for _, ref := range c.chunks {
		refEnd := ref.start + int64(len(ref.data))
		if refEnd <= c.start || ref.start >= end {
			continue
		}
		lo := max64(0, c.start-ref.start)
		hi := min64(int64(len(ref.data)), end-ref.start)
		out = append(out, ref.data[lo:hi]...)
	}
	c.active = false
	c.chunks = c.chunks[:0]
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
