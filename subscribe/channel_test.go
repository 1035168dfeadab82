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

package subscribe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/engine"
	"github.com/jsonproj/strime/selection"
	"github.com/jsonproj/strime/subscribe"
)

func TestChannelDeliversMatchesAndDrains(t *testing.T) {
	root := selection.New(map[string]selection.Node{"name": {Leaf: true}})
	ch := subscribe.NewChannel(8)

	go func() {
		// The Engine must be built on the goroutine that drives it.
		e := engine.New(engine.Config{Root: root, Sink: ch})
		err := e.Execute([]byte(`[{"id":1,"name":"A"},{"id":2,"name":"B"}]`))
		require.NoError(t, err)
	}()

	var got []any
	for ev := range ch.Events() {
		got = append(got, ev.Match)
	}
	<-ch.Done()

	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"name": "A"}, got[0])
	assert.Equal(t, map[string]any{"name": "B"}, got[1])
}
