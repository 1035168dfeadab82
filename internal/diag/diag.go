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

// Package diag defines the flat diagnostic shape spec.md §7 requires: a
// machine code, a human message, the logical byte offset where detection
// occurred, and (for line-oriented drivers) a 1-based line number.
//
// Diagnostic deliberately carries only those four fields: nothing
// downstream of this engine renders a multi-snippet source diagnostic, so
// there is no file-span, note, or ANSI-rendering machinery here. Report is
// an "accumulate entries, report once" accumulator over Diagnostic values.
package diag

import "fmt"

// Code identifies the category of a Diagnostic, mirroring spec.md §7's
// error category column.
type Code string

const (
	CodeInvalidLiteral     Code = "INVALID_LITERAL"
	CodeInvalidQuery       Code = "INVALID_QUERY"
	CodeStructuralMismatch Code = "STRUCTURAL_MISMATCH"
	CodeAbort              Code = "ABORT"
	CodeBudgetExhausted    Code = "BUDGET_EXHAUSTED"
	CodeFanoutLimit        Code = "FANOUT_LIMIT"
	CodeLineTooLong        Code = "LINE_TOO_LONG"
)

// Diagnostic is one error or note surfaced by a driver (ndjson, query, the
// CLI). Line is zero when the source isn't line-oriented.
type Diagnostic struct {
	Code    Code
	Message string
	Offset  int64
	Line    int
}

func (d Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s: %s (offset %d, line %d)", d.Code, d.Message, d.Offset, d.Line)
	}
	return fmt.Sprintf("%s: %s (offset %d)", d.Code, d.Message, d.Offset)
}

// New builds a Diagnostic with no line number, for non-line-oriented
// callers (e.g. the query parser).
func New(code Code, offset int64, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Offset: offset}
}

// WithLine returns a copy of d tagged with a 1-based line number, for the
// ndjson driver's skip-errors callback.
func (d Diagnostic) WithLine(line int) Diagnostic {
	d.Line = line
	return d
}

// Report accumulates Diagnostics produced while processing one document or
// stream, for inspection once processing finishes.
type Report struct {
	entries []Diagnostic
}

// Add appends d to the report.
func (r *Report) Add(d Diagnostic) {
	r.entries = append(r.entries, d)
}

// Entries returns every Diagnostic added so far, in order.
func (r *Report) Entries() []Diagnostic {
	return r.entries
}

// Len reports how many Diagnostics have been added.
func (r *Report) Len() int {
	return len(r.entries)
}
