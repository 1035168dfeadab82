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

package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/scan"
	"github.com/jsonproj/strime/token"
)

func feedAll(t *testing.T, l *scan.Lexer, input string) []token.Token {
	t.Helper()
	var got []token.Token
	err := l.Feed([]byte(input), func(tok *token.Token) error {
		got = append(got, *tok)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestBasicObject(t *testing.T) {
	l := scan.NewLexer()
	toks := feedAll(t, l, `{"id":1,"name":"A"}`)

	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.LBrace, token.String, token.Colon, token.Number, token.Comma,
		token.String, token.Colon, token.String, token.RBrace,
	}, kinds)

	assert.Equal(t, "id", mustString(t, toks[1]))
	n, ok := toks[3].AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func mustString(t *testing.T, tok token.Token) string {
	t.Helper()
	s, ok := tok.AsString()
	require.True(t, ok)
	return s
}

func TestFloatNumber(t *testing.T) {
	l := scan.NewLexer()
	toks := feedAll(t, l, `3.5`)
	require.Len(t, toks, 1)
	f, ok := toks[0].AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 3.5, f, 0.0001)
}

func TestChunkBoundaryMidString(t *testing.T) {
	l := scan.NewLexer()
	var toks []token.Token
	onToken := func(tok *token.Token) error {
		toks = append(toks, *tok)
		return nil
	}
	require.NoError(t, l.Feed([]byte(`"hel`), onToken))
	require.NoError(t, l.Feed([]byte(`lo"`), onToken))

	require.Len(t, toks, 1)
	assert.Equal(t, "hello", mustString(t, toks[0]))
	assert.Equal(t, int64(0), toks[0].Start)
	assert.Equal(t, int64(7), toks[0].End)
}

func TestChunkBoundaryMidNumber(t *testing.T) {
	l := scan.NewLexer()
	var toks []token.Token
	onToken := func(tok *token.Token) error {
		toks = append(toks, *tok)
		return nil
	}
	require.NoError(t, l.Feed([]byte(`12`), onToken))
	require.NoError(t, l.Feed([]byte(`3,`), onToken))

	require.Len(t, toks, 2) // NUMBER, COMMA
	n, ok := toks[0].AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(123), n)
}

func TestChunkBoundaryMidLiteral(t *testing.T) {
	l := scan.NewLexer()
	var toks []token.Token
	onToken := func(tok *token.Token) error {
		toks = append(toks, *tok)
		return nil
	}
	require.NoError(t, l.Feed([]byte(`tr`), onToken))
	require.NoError(t, l.Feed([]byte(`ue`), onToken))

	require.Len(t, toks, 1)
	assert.Equal(t, token.True, toks[0].Kind)
}

func TestChunkBoundaryMidEscape(t *testing.T) {
	l := scan.NewLexer()
	var toks []token.Token
	onToken := func(tok *token.Token) error {
		toks = append(toks, *tok)
		return nil
	}
	require.NoError(t, l.Feed([]byte(`"a\`), onToken))
	require.NoError(t, l.Feed([]byte(`n"`), onToken))

	require.Len(t, toks, 1)
	assert.Equal(t, `a\n`, mustString(t, toks[0]))
}

func TestInvalidLiteralFailsAtStart(t *testing.T) {
	l := scan.NewLexer()
	err := l.Feed([]byte(`truX`), func(tok *token.Token) error { return nil })
	require.Error(t, err)
	var tErr *scan.TokenizationError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, int64(0), tErr.Pos)
}

func TestGarbageBetweenTokens(t *testing.T) {
	l := scan.NewLexer()
	toks := feedAll(t, l, `{"a": !!! 1}`)

	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.LBrace, token.String, token.Colon, token.Number, token.RBrace,
	}, kinds)
}

func TestUnclosedStringAtEOFEmitsNothing(t *testing.T) {
	l := scan.NewLexer()
	var toks []token.Token
	onToken := func(tok *token.Token) error {
		toks = append(toks, *tok)
		return nil
	}
	require.NoError(t, l.Feed([]byte(`{"a":"partial`), onToken))
	require.NoError(t, l.Finish(onToken))

	// LBRACE, STRING(a), COLON, EOF — the unterminated string value never
	// emits.
	require.Len(t, toks, 4)
	assert.Equal(t, token.EOF, toks[3].Kind)
}

func TestInterningReturnsEqualContent(t *testing.T) {
	l := scan.NewLexer()
	toks := feedAll(t, l, `["name","name"]`)
	require.Len(t, toks, 5) // LBRACKET, STRING, COMMA, STRING, RBRACKET
	s1 := mustString(t, toks[1])
	s2 := mustString(t, toks[3])
	assert.Equal(t, s1, s2)
}

func TestTokensIteratorStopsEarly(t *testing.T) {
	l := scan.NewLexer()
	var kinds []token.Kind
	for tok := range l.Tokens([]byte(`[1,2,3]`)) {
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.Number {
			break
		}
	}
	require.NoError(t, l.Err())
	assert.Equal(t, []token.Kind{token.LBracket, token.Number}, kinds)
}

func TestCheckpointAborts(t *testing.T) {
	l := scan.NewLexer()
	calls := 0
	l.SetCheckpoint(func(pos int64) error {
		calls++
		return assert.AnError
	})
	err := l.Feed([]byte(`{"a":1}`), func(tok *token.Token) error { return nil })
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
