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

package compress_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/compress"
	"github.com/jsonproj/strime/sink"
)

func TestSinkForwardsToWrappedSink(t *testing.T) {
	var buf bytes.Buffer
	collector := &sink.Collector{}

	s, err := compress.New(&buf, collector)
	require.NoError(t, err)

	s.OnRawMatch([]byte(`{"id":1}`))
	s.OnRawMatch([]byte(`{"id":2}`))
	s.OnDrain()

	require.True(t, collector.Drained)
	require.Len(t, collector.Raw, 2)
	assert.Greater(t, buf.Len(), 0)
}

func TestSinkRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	s, err := compress.New(&buf, nil)
	require.NoError(t, err)

	s.OnRawMatch([]byte(`{"id":1}`))
	s.OnRawMatch([]byte(`{"id":2}`))
	s.OnDrain()

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	out, err := dec.DecodeAll(buf.Bytes(), nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	assert.Equal(t, []string{`{"id":1}`, `{"id":2}`}, lines)
}
