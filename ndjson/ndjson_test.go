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

package ndjson_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/internal/diag"
	"github.com/jsonproj/strime/ndjson"
	"github.com/jsonproj/strime/selection"
	"github.com/jsonproj/strime/sink"
)

func TestRunSkipsErrorsAndContinues(t *testing.T) {
	root := selection.New(map[string]selection.Node{"id": {Leaf: true}})
	input := "{\"id\":1}\n{\"id\":truX}\n{\"id\":3}\n"

	var errs []diag.Diagnostic
	collector := &sink.Collector{}

	err := ndjson.Run(strings.NewReader(input), ndjson.Config{
		Root:       root,
		Sink:       collector,
		SkipErrors: true,
		OnError: func(d diag.Diagnostic, line []byte) {
			errs = append(errs, d)
		},
	})
	require.NoError(t, err)

	require.Len(t, collector.Matches, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Line)
}

func TestRunStopsOnFirstErrorWithoutSkipErrors(t *testing.T) {
	root := selection.New(map[string]selection.Node{"id": {Leaf: true}})
	input := "{\"id\":1}\n{\"id\":truX}\n{\"id\":3}\n"

	collector := &sink.Collector{}
	err := ndjson.Run(strings.NewReader(input), ndjson.Config{Root: root, Sink: collector})
	require.Error(t, err)
	require.Len(t, collector.Matches, 1)
}

func TestRunSkipsBlankLines(t *testing.T) {
	root := selection.New(map[string]selection.Node{"id": {Leaf: true}})
	input := "{\"id\":1}\n\n{\"id\":2}\n"

	collector := &sink.Collector{}
	err := ndjson.Run(strings.NewReader(input), ndjson.Config{Root: root, Sink: collector})
	require.NoError(t, err)
	assert.Len(t, collector.Matches, 2)
}

func TestRunMaxLineLength(t *testing.T) {
	root := selection.New(map[string]selection.Node{"id": {Leaf: true}})
	long := `{"id":` + strings.Repeat("1", 100) + `}`
	input := long + "\n{\"id\":2}\n"

	var errs []diag.Diagnostic
	collector := &sink.Collector{}
	err := ndjson.Run(strings.NewReader(input), ndjson.Config{
		Root:          root,
		Sink:          collector,
		MaxLineLength: 20,
		SkipErrors:    true,
		OnError: func(d diag.Diagnostic, line []byte) {
			errs = append(errs, d)
		},
	})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, diag.CodeLineTooLong, errs[0].Code)
	assert.Len(t, collector.Matches, 1)
}
