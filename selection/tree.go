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

// Package selection defines the immutable tree describing which keys of a
// JSON document to keep, how to rename them, and which directives to apply
// to their values at emission time.
package selection

// Directive is one terminal value transform (package directive owns the
// actual transform semantics; this package only carries the parsed
// invocation).
type Directive struct {
	Name string
	Args map[string]any
}

// Node is a single entry in a selection tree. It is a tagged union: Leaf
// true means "accept this subtree, project no children" (the query
// grammar's bare TRUE shorthand); Leaf false carries an optional Alias,
// an optional nested Children tree, and an optional Directives chain.
//
// A Node is never partially nil in a way that matters: Children is nil for
// scalar/leaf selections and non-nil only when the query named a nested
// field list.
type Node struct {
	Leaf       bool
	Alias      string
	Children   *Tree
	Directives []Directive
}

// Tree is an immutable mapping from input key to selection Node. The zero
// value is an empty tree (selects nothing). Construction is external to the
// engine (see package query); the engine only ever reads a Tree.
type Tree struct {
	nodes map[string]Node
}

// New builds a Tree from a key→Node mapping. The caller must not mutate m
// afterward; New does not copy it.
func New(m map[string]Node) *Tree {
	if m == nil {
		m = map[string]Node{}
	}
	return &Tree{nodes: m}
}

// Lookup resolves key against the tree, returning its Node and whether it
// was present. A TRUE entry parsed by the query grammar is represented as
// Node{Leaf: true}; callers that need the "accept subtree, no children"
// canonical form should use Resolve instead.
func (t *Tree) Lookup(key string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	n, ok := t.nodes[key]
	return n, ok
}

// Resolve is Lookup followed by the canonicalization spec.md §4.2.1
// requires at structure-start: a Leaf node is treated as "accept this
// subtree but project no children" — i.e. a Node with no Children, no
// alias, and no directives, not a true scalar acceptance.
func (t *Tree) Resolve(key string) (Node, bool) {
	n, ok := t.Lookup(key)
	if !ok {
		return Node{}, false
	}
	if n.Leaf {
		return Node{}, true
	}
	return n, true
}

// OutputKey returns the key under which a matched input key should be
// attached to its parent container: the node's alias if one was given,
// otherwise the input key unchanged.
func (n Node) OutputKey(inputKey string) string {
	if n.Alias != "" {
		return n.Alias
	}
	return inputKey
}

// DefaultKeys returns every key in the tree that carries a @default
// directive, together with the default value to synthesize. Used by the
// engine at structure-end to fill in missing fields (spec.md §4.2.1).
func (t *Tree) DefaultKeys() []DefaultEntry {
	if t == nil {
		return nil
	}
	var out []DefaultEntry
	for key, node := range t.nodes {
		for _, d := range node.Directives {
			if d.Name == "default" {
				out = append(out, DefaultEntry{
					OutputKey: node.OutputKey(key),
					Value:     d.Args["value"],
				})
			}
		}
	}
	return out
}

// DefaultEntry pairs an output key with the value to synthesize when that
// key never showed up during structure traversal.
type DefaultEntry struct {
	OutputKey string
	Value     any
}

// Len reports the number of keys named at this level of the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}
