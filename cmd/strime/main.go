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

// Command strime projects selected fields out of a JSON document or an
// NDJSON stream (spec.md §6.4).
//
// # Usage
//
//	strime [flags] [file] "<query>"
//
// # Flags
//
//	--ndjson, --jsonl       treat input as newline-delimited JSON
//	--skip-errors           in --ndjson mode, skip malformed lines instead of failing
//	--max-line-length N     cap bytes per line in --ndjson mode
//	--pretty                pretty-print output
//	--compact               compact output (default)
//	--queries FILE          load a YAML file of named queries (see query.LoadNamed)
//	--query-name NAME       select a query loaded via --queries, instead of a positional query string
//	--version               print version and exit
//
// Input is a file path (glob patterns are expanded to project each match in
// turn), or stdin when no file argument is given. Standard mode writes one
// JSON document to stdout per match; --ndjson mode writes one JSON document
// per input line that produced a match. Exit codes: 0 on success or on a
// broken output pipe, 1 on any other failure.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"

	"github.com/jsonproj/strime/engine"
	"github.com/jsonproj/strime/internal/diag"
	"github.com/jsonproj/strime/internal/obslog"
	"github.com/jsonproj/strime/ndjson"
	"github.com/jsonproj/strime/query"
	"github.com/jsonproj/strime/selection"
	"github.com/jsonproj/strime/sink"
)

// version is overridden at release build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	ndjson        bool
	jsonl         bool
	skipErrors    bool
	maxLineLength int
	pretty        bool
	compact       bool
	version       bool
	logLevel      string
	logFormat     string
	queriesFile   string
	queryName     string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("strime", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var opts options
	flags.BoolVar(&opts.ndjson, "ndjson", false, "treat input as newline-delimited JSON")
	flags.BoolVar(&opts.jsonl, "jsonl", false, "alias for --ndjson")
	flags.BoolVar(&opts.skipErrors, "skip-errors", false, "in --ndjson mode, report and skip malformed lines instead of failing")
	flags.IntVar(&opts.maxLineLength, "max-line-length", 0, "maximum bytes per line in --ndjson mode (0 uses the package default)")
	flags.BoolVar(&opts.pretty, "pretty", false, "pretty-print output")
	flags.BoolVar(&opts.compact, "compact", false, "compact output (default)")
	flags.BoolVar(&opts.version, "version", false, "print version and exit")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "logfmt", "log format: logfmt, json")
	flags.StringVar(&opts.queriesFile, "queries", "", "YAML file of named queries (see --query-name)")
	flags.StringVar(&opts.queryName, "query-name", "", "name of a query loaded via --queries, used instead of a positional query string")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: strime [flags] [file] \"<query>\"\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	if opts.version {
		fmt.Fprintln(stdout, version)
		return 0
	}

	handler, err := obslog.NewHandlerWithStrings(stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := slog.New(handler)

	var tree *selection.Tree
	var pattern string

	if opts.queryName != "" {
		named, err := query.LoadNamed(opts.queriesFile)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		t, ok := named[opts.queryName]
		if !ok {
			fmt.Fprintf(stderr, "strime: no query named %q in %s\n", opts.queryName, opts.queriesFile)
			return 1
		}
		tree = t
		if rest := flags.Args(); len(rest) == 1 {
			pattern = rest[0]
		} else if len(rest) != 0 {
			flags.Usage()
			return 1
		}
	} else {
		var queryStr string
		var ok bool
		pattern, queryStr, ok = parsePositional(flags.Args())
		if !ok {
			flags.Usage()
			return 1
		}
		t, err := query.Parse(queryStr)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		tree = t
	}

	files, err := resolveFiles(pattern)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	out := newCLISink(stdout, opts.pretty)

	for _, f := range files {
		if err := projectOne(f, stdin, tree, opts, out, logger); err != nil {
			if isBrokenPipe(err) {
				return 0
			}
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if out.err != nil && !isBrokenPipe(out.err) {
		fmt.Fprintln(stderr, out.err)
		return 1
	}
	return 0
}

// parsePositional splits the grammar's "[file] \"<query>\"" trailing
// arguments: one positional arg is a bare query (stdin input), two are
// file then query.
func parsePositional(rest []string) (pattern, queryStr string, ok bool) {
	switch len(rest) {
	case 1:
		return "", rest[0], true
	case 2:
		return rest[0], rest[1], true
	default:
		return "", "", false
	}
}

// resolveFiles expands pattern as a glob (supplementing spec.md §6.4's
// single-file surface so one invocation can project many files) unless it
// contains no glob metacharacters, in which case it is used literally. An
// empty pattern means "read stdin".
func resolveFiles(pattern string) ([]string, error) {
	if pattern == "" {
		return []string{""}, nil
	}
	if !strings.ContainsAny(pattern, "*?[{") || !doublestar.ValidatePattern(pattern) {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("strime: expanding %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("strime: no files match %q", pattern)
	}
	return matches, nil
}

func projectOne(path string, stdin io.Reader, tree *selection.Tree, opts options, out *cliSink, logger *slog.Logger) error {
	var r io.Reader
	if path == "" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("strime: %w", err)
		}
		defer f.Close()
		r = f
	}

	if opts.ndjson || opts.jsonl {
		return ndjson.Run(r, ndjson.Config{
			Root:          tree,
			Sink:          out,
			SkipErrors:    opts.skipErrors,
			MaxLineLength: opts.maxLineLength,
			OnError: func(d diag.Diagnostic, line []byte) {
				logger.Warn("ndjson: skipped line", "code", d.Code, "line", d.Line, "message", d.Message)
			},
		})
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("strime: %w", err)
	}
	e := engine.New(engine.Config{Root: tree, Sink: out})
	if err := e.Execute(buf); err != nil {
		return err
	}
	return out.err
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}

// cliSink writes each materialized match to stdout as its own JSON
// document, matching spec.md §6.4's output contract. Errors are latched
// rather than returned from OnMatch, since sink.Sink's hooks don't return
// an error; the caller inspects s.err after a run completes.
type cliSink struct {
	sink.Nop
	w      io.Writer
	pretty bool
	err    error
}

func newCLISink(w io.Writer, pretty bool) *cliSink {
	return &cliSink{w: w, pretty: pretty}
}

func (s *cliSink) OnMatch(value any) {
	if s.err != nil {
		return
	}
	var data []byte
	var err error
	if s.pretty {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		s.err = fmt.Errorf("strime: encoding match: %w", err)
		return
	}
	if _, err := s.w.Write(data); err != nil {
		s.err = err
		return
	}
	if _, err := s.w.Write([]byte{'\n'}); err != nil {
		s.err = err
	}
}
