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

// Package directive implements the closed set of terminal value transforms
// applied at emission time (spec.md §4.2.4): alias, coerce, default,
// formatNumber, and substring. Unknown directive names are identity,
// documented as a non-error (spec.md §7).
package directive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/jsonproj/strime/selection"
)

// maxSubstringLen bounds the substring directive's output length
// regardless of the requested len argument (spec.md §4.2.4).
const maxSubstringLen = 10000

// Apply runs every directive in chain against v in order, left to right,
// and returns the transformed value. A directive whose input type guard
// does not match v passes it through unchanged.
func Apply(chain []selection.Directive, v any) any {
	for _, d := range chain {
		v = apply(d, v)
	}
	return v
}

func apply(d selection.Directive, v any) any {
	switch d.Name {
	case "alias":
		// No-op at transform time; the alias is consumed as the output key
		// by the engine's structure-start/leaf-value logic.
		return v
	case "coerce":
		return coerce(d.Args, v)
	case "default":
		return deflt(d.Args, v)
	case "formatNumber":
		return formatNumber(d.Args, v)
	case "substring":
		return substring(d.Args, v)
	default:
		// Unknown directive: silent identity (spec.md §7).
		return v
	}
}

func coerce(args map[string]any, v any) any {
	target, _ := args["type"].(string)
	switch target {
	case "number":
		switch x := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f
			}
			return v
		case int64, float64:
			return x
		default:
			return v
		}
	case "string":
		switch x := v.(type) {
		case string:
			return x
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(x)
		case nil:
			return "null"
		default:
			return fmt.Sprintf("%v", x)
		}
	default:
		// Unknown coercion type: identity.
		return v
	}
}

// deflt substitutes Args["value"] when v is missing or explicitly null.
// The engine runs it, like every directive, on each value present in the
// input, so an explicit null is replaced. Keys absent from the built
// container are filled in by the engine at structure-end directly from
// selection.Tree.DefaultKeys, without calling this function.
func deflt(args map[string]any, v any) any {
	if v == nil {
		return args["value"]
	}
	return v
}

func formatNumber(args map[string]any, v any) any {
	f, ok := asFloat(v)
	if !ok {
		return v
	}
	dec := argInt(args, "dec", 0)
	dec = clamp(dec, 0, 20)
	scaled := strconv.FormatFloat(f, 'f', dec, 64)
	out, err := strconv.ParseFloat(scaled, 64)
	if err != nil {
		return v
	}
	return out
}

func substring(args map[string]any, v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	start := argInt(args, "start", 0)
	length := argInt(args, "len", 0)
	if start < 0 {
		start = 0
	}
	if length > maxSubstringLen {
		length = maxSubstringLen
	}
	if length <= 0 {
		return ""
	}

	gr := uniseg.NewGraphemes(s)
	var clusters []string
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}
	if start >= len(clusters) {
		return ""
	}
	end := start + length
	if end > len(clusters) {
		end = len(clusters)
	}
	return strings.Join(clusters[start:end], "")
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func argInt(args map[string]any, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return fallback
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
