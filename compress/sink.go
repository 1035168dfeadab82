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

// Package compress is the "compression sink" spec.md §1 names as an
// external collaborator: it wraps a sink.Sink and zstd-compresses each
// raw-mode byte span into a single zstd stream on an underlying io.Writer;
// the decompressed stream holds one match per line.
package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/jsonproj/strime/budget"
	"github.com/jsonproj/strime/sink"
)

// Sink wraps an underlying writer with a streaming zstd encoder and
// forwards every other hook to an optional next sink, so a caller can
// still observe materialized matches/stats alongside the compressed raw
// byte stream.
type Sink struct {
	enc  *zstd.Encoder
	next sink.Sink
}

// New builds a Sink writing zstd-compressed raw matches to w. next may be
// nil; if set, its OnMatch/OnStats/OnDrain are still invoked alongside the
// compression so a caller can observe both the compressed stream and the
// materialized values.
func New(w io.Writer, next sink.Sink) (*Sink, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("compress: creating zstd writer: %w", err)
	}
	return &Sink{enc: enc, next: next}, nil
}

// OnMatch forwards to the wrapped sink, if any; object-mode matches are
// not themselves compressed since they were never raw bytes.
func (s *Sink) OnMatch(value any) {
	if s.next != nil {
		s.next.OnMatch(value)
	}
}

// OnRawMatch writes data followed by a newline into the zstd stream, so
// a reader can split the decompressed stream back into matches. Write
// errors are not reported: the Sink hooks return nothing, and OnDrain
// discards the error from closing the encoder.
func (s *Sink) OnRawMatch(data []byte) {
	s.enc.Write(data) //nolint:errcheck // Sink hooks have no error return
	s.enc.Write([]byte{'\n'})
	if s.next != nil {
		s.next.OnRawMatch(data)
	}
}

func (s *Sink) OnStats(st budget.Stats) {
	if s.next != nil {
		s.next.OnStats(st)
	}
}

// OnDrain flushes and closes the zstd encoder, then forwards to the
// wrapped sink.
func (s *Sink) OnDrain() {
	_ = s.enc.Close()
	if s.next != nil {
		s.next.OnDrain()
	}
}
