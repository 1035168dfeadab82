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

// Package ndjson is the line-delimited adapter spec.md §1 names as an
// external collaborator: it splits a byte stream on '\n', projects each
// line through its own Engine, and implements spec.md §7's skip-errors
// line handling (error callback with line number and original content,
// processing continues on the next line) plus the max-line-length cap.
package ndjson

import (
	"bufio"
	"errors"
	"io"

	"github.com/jsonproj/strime/budget"
	"github.com/jsonproj/strime/engine"
	"github.com/jsonproj/strime/internal/diag"
	"github.com/jsonproj/strime/scan"
	"github.com/jsonproj/strime/selection"
	"github.com/jsonproj/strime/sink"
)

// defaultMaxLineLength bounds a single line when the caller does not set
// Config.MaxLineLength, so a headless run over a malformed stream cannot
// grow one line's buffer without limit.
const defaultMaxLineLength = 16 * 1024 * 1024

// Config configures Run. Root and Sink are required.
type Config struct {
	Root          *selection.Tree
	Sink          sink.Sink
	Mode          engine.Mode
	Budget        budget.Budget
	Fanout        *engine.FanoutLimits
	MaxLineLength int

	// SkipErrors, when true, implements spec.md §7's skip-errors mode:
	// a per-line error is reported to OnError (if set) and the stream
	// continues at the next line. When false, the first error on any
	// line terminates Run.
	SkipErrors bool

	// OnError is called for each line-level error when SkipErrors is
	// true. line is the original line content, already truncated to
	// MaxLineLength if it was oversize.
	OnError func(d diag.Diagnostic, line []byte)
}

// Run reads newline-delimited JSON documents from r, projecting each
// through a fresh Engine built from cfg.Root/Sink/Mode/Budget/Fanout.
// Blank lines are skipped. Line numbers are 1-based.
func Run(r io.Reader, cfg Config) error {
	maxLen := cfg.MaxLineLength
	if maxLen <= 0 {
		maxLen = defaultMaxLineLength
	}

	br := bufio.NewReaderSize(r, 64*1024)
	lineNo := 0

	for {
		lineNo++
		line, oversize, err := readLine(br, maxLen)
		if err != nil && err != io.EOF {
			return err
		}
		atEOF := err == io.EOF

		if len(line) > 0 {
			if oversize {
				d := diag.New(diag.CodeLineTooLong, 0, "line exceeds max length %d", maxLen).WithLine(lineNo)
				if !cfg.SkipErrors {
					return d
				}
				if cfg.OnError != nil {
					cfg.OnError(d, truncate(line, maxLen))
				}
			} else if lerr := runLine(line, cfg); lerr != nil {
				d := toDiagnostic(lerr, lineNo)
				if !cfg.SkipErrors {
					return d
				}
				if cfg.OnError != nil {
					cfg.OnError(d, line)
				}
			}
		}

		if atEOF {
			return nil
		}
	}
}

// readLine reads up to the next '\n' (exclusive) or maxLen+1 bytes,
// whichever comes first. oversize is true when the line's true length
// exceeded maxLen; in that case line is truncated to maxLen bytes and the
// remainder of the physical line is discarded without buffering it whole.
func readLine(br *bufio.Reader, maxLen int) (line []byte, oversize bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, rerr := br.ReadLine()
		if !oversize {
			buf = append(buf, chunk...)
			if len(buf) > maxLen {
				oversize = true
				buf = buf[:maxLen]
			}
		}
		if !isPrefix {
			return buf, oversize, rerr
		}
		if rerr != nil {
			return buf, oversize, rerr
		}
	}
}

func truncate(line []byte, maxLen int) []byte {
	if len(line) <= maxLen {
		return line
	}
	out := make([]byte, maxLen)
	copy(out, line[:maxLen])
	return out
}

func runLine(line []byte, cfg Config) error {
	e := engine.New(engine.Config{
		Root:   cfg.Root,
		Sink:   cfg.Sink,
		Mode:   cfg.Mode,
		Budget: cfg.Budget,
		Fanout: cfg.Fanout,
	})
	return e.Execute(line)
}

// toDiagnostic classifies an Engine/Lexer error into spec.md §7's flat
// diagnostic shape, tagging it with the line it occurred on.
func toDiagnostic(err error, line int) diag.Diagnostic {
	var tokErr *scan.TokenizationError
	var budgetErr *budget.BudgetExhaustedError
	var abortErr *budget.AbortError
	var fanoutErr *engine.FanoutError

	switch {
	case errors.As(err, &tokErr):
		return diag.New(diag.CodeInvalidLiteral, tokErr.Pos, "invalid literal %q", tokErr.Got).WithLine(line)
	case errors.As(err, &budgetErr):
		return diag.New(diag.CodeBudgetExhausted, 0, "%s", budgetErr.Error()).WithLine(line)
	case errors.As(err, &abortErr):
		return diag.New(diag.CodeAbort, 0, "%s", abortErr.Error()).WithLine(line)
	case errors.As(err, &fanoutErr):
		return diag.New(diag.CodeFanoutLimit, 0, "%s", fanoutErr.Error()).WithLine(line)
	default:
		return diag.New(diag.CodeStructuralMismatch, 0, "%s", err.Error()).WithLine(line)
	}
}
