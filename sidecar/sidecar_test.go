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

package sidecar_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/sidecar"
)

func TestBuildIndexesRootLevelKeys(t *testing.T) {
	buf := []byte(`{"id":1,"name":"Leanne Graham","email":"e@x"}`)
	idx, err := sidecar.Build(buf)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())

	for _, key := range []string{"id", "name", "email"} {
		off, ok := idx.Offset(key)
		require.True(t, ok, "key %q not indexed", key)
		assert.Equal(t, byte(':'), buf[off])
	}

	_, ok := idx.Offset("missing")
	assert.False(t, ok)
}

func TestBuildIgnoresNestedKeys(t *testing.T) {
	buf := []byte(`{"a":{"b":1},"c":2}`)
	idx, err := sidecar.Build(buf)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Len())
	_, ok := idx.Offset("b")
	assert.False(t, ok, "nested key must not be indexed")
}

func TestBuildOnArrayRootYieldsEmptyIndex(t *testing.T) {
	idx, err := sidecar.Build([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())

	_, ok := idx.StartOffset([]string{"id"})
	assert.False(t, ok)
}

func TestStartOffsetUsesEarliestKeyMinusLookbehind(t *testing.T) {
	buf := []byte(`{"a":1,"b":2,"c":3}`)
	idx, err := sidecar.Build(buf)
	require.NoError(t, err)

	bOff, ok := idx.Offset("b")
	require.True(t, ok)

	start, ok := idx.StartOffset([]string{"b", "missing"})
	require.True(t, ok)
	assert.LessOrEqual(t, start, bOff)
	assert.GreaterOrEqual(t, start, int64(0))
}

func TestStartOffsetClampsToZero(t *testing.T) {
	idx, err := sidecar.Build([]byte(`{"a":1}`))
	require.NoError(t, err)

	start, ok := idx.StartOffset([]string{"a"})
	require.True(t, ok)
	assert.Equal(t, int64(0), start)
}

func TestStartOffsetNotFoundFallsBackToZero(t *testing.T) {
	idx, err := sidecar.Build([]byte(`{"a":1}`))
	require.NoError(t, err)

	_, ok := idx.StartOffset([]string{"nope"})
	assert.False(t, ok)
}

func TestNilIndexIsSafeToQuery(t *testing.T) {
	var idx *sidecar.Index
	assert.Equal(t, 0, idx.Len())
	_, ok := idx.Offset("a")
	assert.False(t, ok)
	_, ok = idx.StartOffset([]string{"a"})
	assert.False(t, ok)
}

func TestBuildHandlesLargeKeyCount(t *testing.T) {
	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i < 64; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"k`)
		b.WriteString(string(rune('0'+i%10)))
		b.WriteString(string(rune('a'+i%26)))
		b.WriteString(`":`)
		b.WriteString("1")
	}
	b.WriteByte('}')

	idx, err := sidecar.Build([]byte(b.String()))
	require.NoError(t, err)
	assert.True(t, idx.Len() > 0)
}
