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

package sink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsonproj/strime/budget"
	"github.com/jsonproj/strime/sink"
)

func TestCollectorCollectsMatches(t *testing.T) {
	c := &sink.Collector{}
	c.OnMatch(map[string]any{"id": int64(1)})
	c.OnMatch(map[string]any{"id": int64(2)})
	c.OnDrain()

	assert.Len(t, c.Matches, 2)
	assert.True(t, c.Drained)
}

func TestCollectorCopiesRawBytes(t *testing.T) {
	c := &sink.Collector{}
	buf := []byte(`{"a":1}`)
	c.OnRawMatch(buf)
	buf[0] = 'X'

	assert.Equal(t, `{"a":1}`, string(c.Raw[0]))
}

func TestFuncOnlyOverridesMatch(t *testing.T) {
	var got any
	f := sink.Func{Match: func(v any) { got = v }}
	f.OnMatch("value")
	f.OnStats(budget.Stats{})
	assert.Equal(t, "value", got)
}

func TestNopIsASink(t *testing.T) {
	var s sink.Sink = sink.Nop{}
	s.OnMatch(nil)
	s.OnRawMatch(nil)
	s.OnStats(budget.Stats{})
	s.OnDrain()
}
