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

import "github.com/jsonproj/strime/internal/arena"

// stack is a push/pop stack backed by an arena.Arena, giving it the
// "single-allocation growable buffer, no pointer graph" shape spec.md §9
// calls for. Arena itself never shrinks, so stack never returns slots to
// it on Pop: the high-water mark stays allocated and is simply reused the
// next time the stack grows back to that depth. depth is the only
// authoritative notion of "top"; slots at or beyond depth are considered
// logically absent even though they still hold their last value.
type stack[T any] struct {
	values    arena.Arena[T]
	depth     int
	highWater int
}

// push grows the logical stack by one slot holding v.
func (s *stack[T]) push(v T) {
	s.depth++
	if s.depth > s.highWater {
		s.values.New(v)
		s.highWater = s.depth
		return
	}
	*s.values.At(arena.Untyped(s.depth)) = v
}

// pop shrinks the logical stack by one slot and returns the value that was
// on top. Panics if the stack is empty, matching slice out-of-range
// semantics.
func (s *stack[T]) pop() T {
	v := *s.values.At(arena.Untyped(s.depth))
	s.depth--
	return v
}

// top returns the value at the top of the stack without removing it.
// Panics if the stack is empty.
func (s *stack[T]) top() T {
	return *s.values.At(arena.Untyped(s.depth))
}

// len reports the current logical depth of the stack.
func (s *stack[T]) len() int {
	return s.depth
}

// reset clears the logical stack back to empty without discarding the
// arena's allocated backing storage, so a reused Engine does not pay for
// re-growing it on the next execution.
func (s *stack[T]) reset() {
	s.depth = 0
}
