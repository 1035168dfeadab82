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

package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/query"
)

func TestParseSimpleFieldList(t *testing.T) {
	tree, err := query.Parse("id, name, email")
	require.NoError(t, err)

	n, ok := tree.Lookup("id")
	require.True(t, ok)
	assert.True(t, n.Leaf)

	_, ok = tree.Lookup("missing")
	assert.False(t, ok)
}

func TestParseBraceWrappedQuery(t *testing.T) {
	tree, err := query.Parse(`{ id, name }`)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Len())
}

func TestParseAlias(t *testing.T) {
	tree, err := query.Parse(`first: firstName`)
	require.NoError(t, err)

	n, ok := tree.Lookup("firstName")
	require.True(t, ok)
	assert.Equal(t, "first", n.Alias)
	assert.Equal(t, "first", n.OutputKey("firstName"))
}

func TestParseNestedFields(t *testing.T) {
	tree, err := query.Parse(`a { b { c } }`)
	require.NoError(t, err)

	a, ok := tree.Lookup("a")
	require.True(t, ok)
	require.NotNil(t, a.Children)

	b, ok := a.Children.Lookup("b")
	require.True(t, ok)
	require.NotNil(t, b.Children)

	c, ok := b.Children.Lookup("c")
	require.True(t, ok)
	assert.True(t, c.Leaf)
}

func TestParseDirectiveWithArgs(t *testing.T) {
	tree, err := query.Parse(`age @coerce(type: "number")`)
	require.NoError(t, err)

	n, ok := tree.Lookup("age")
	require.True(t, ok)
	require.Len(t, n.Directives, 1)
	assert.Equal(t, "coerce", n.Directives[0].Name)
	assert.Equal(t, "number", n.Directives[0].Args["type"])
}

func TestParseDirectiveNumericArgs(t *testing.T) {
	tree, err := query.Parse(`bio @substring(start: 0, len: 10)`)
	require.NoError(t, err)

	n, ok := tree.Lookup("bio")
	require.True(t, ok)
	require.Len(t, n.Directives, 1)
	assert.InDelta(t, 0.0, n.Directives[0].Args["start"], 0)
	assert.InDelta(t, 10.0, n.Directives[0].Args["len"], 0)
}

func TestParseMultipleDirectivesCompose(t *testing.T) {
	tree, err := query.Parse(`v @coerce(type: "string") @substring(start: 0, len: 3)`)
	require.NoError(t, err)

	n, ok := tree.Lookup("v")
	require.True(t, ok)
	require.Len(t, n.Directives, 2)
	assert.Equal(t, "coerce", n.Directives[0].Name)
	assert.Equal(t, "substring", n.Directives[1].Name)
}

func TestParseAliasWithDirectiveAndChildren(t *testing.T) {
	tree, err := query.Parse(`b: bio @substring(start: 0, len: 5) { ignored_because_scalar }`)
	require.NoError(t, err)

	n, ok := tree.Lookup("bio")
	require.True(t, ok)
	assert.Equal(t, "b", n.Alias)
	require.Len(t, n.Directives, 1)
	require.NotNil(t, n.Children)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := query.Parse(`id, !!!`)
	require.Error(t, err)

	var pe *query.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseRejectsUnclosedBrace(t *testing.T) {
	_, err := query.Parse(`{ id, name`)
	require.Error(t, err)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := query.Parse(`id }`)
	require.Error(t, err)
}

func TestParseEmptyQueryFails(t *testing.T) {
	_, err := query.Parse("")
	require.Error(t, err)
}
