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

package selection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/selection"
)

func TestLookupMissing(t *testing.T) {
	tree := selection.New(map[string]selection.Node{"id": {Leaf: true}})
	_, ok := tree.Lookup("missing")
	assert.False(t, ok)
}

func TestResolveCanonicalizesLeaf(t *testing.T) {
	tree := selection.New(map[string]selection.Node{"id": {Leaf: true}})
	n, ok := tree.Resolve("id")
	require.True(t, ok)
	assert.False(t, n.Leaf)
	assert.Nil(t, n.Children)
	assert.Equal(t, "id", n.OutputKey("id"))
}

func TestOutputKeyPrefersAlias(t *testing.T) {
	n := selection.Node{Alias: "first"}
	assert.Equal(t, "first", n.OutputKey("firstName"))

	n2 := selection.Node{}
	assert.Equal(t, "firstName", n2.OutputKey("firstName"))
}

func TestDefaultKeys(t *testing.T) {
	tree := selection.New(map[string]selection.Node{
		"missing": {
			Directives: []selection.Directive{
				{Name: "default", Args: map[string]any{"value": "N/A"}},
			},
		},
		"id": {Leaf: true},
	})

	entries := tree.DefaultKeys()
	require.Len(t, entries, 1)
	assert.Equal(t, "missing", entries[0].OutputKey)
	assert.Equal(t, "N/A", entries[0].Value)
}

func TestNilTreeIsEmpty(t *testing.T) {
	var tree *selection.Tree
	assert.Equal(t, 0, tree.Len())
	_, ok := tree.Lookup("anything")
	assert.False(t, ok)
	assert.Nil(t, tree.DefaultKeys())
}
