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

package budget_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonproj/strime/budget"
)

func TestNoLimitsNeverFails(t *testing.T) {
	tr := budget.NewTracker(budget.Budget{})
	for i := 0; i < 100; i++ {
		tr.RecordMatch()
	}
	assert.NoError(t, tr.Check())
}

func TestMaxMatchesFailsStrictlyAfterExceeding(t *testing.T) {
	tr := budget.NewTracker(budget.Budget{MaxMatches: 2})
	tr.RecordMatch()
	tr.RecordMatch()
	require.NoError(t, tr.Check())

	tr.RecordMatch()
	err := tr.Check()
	require.Error(t, err)
	var bErr *budget.BudgetExhaustedError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, budget.Matches, bErr.Kind)
}

func TestMaxBytesFailsStrictlyAfterExceeding(t *testing.T) {
	tr := budget.NewTracker(budget.Budget{MaxBytes: 10})
	tr.RecordBytes(10)
	require.NoError(t, tr.Check())

	tr.RecordBytes(1)
	err := tr.Check()
	require.Error(t, err)
	var bErr *budget.BudgetExhaustedError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, budget.Bytes, bErr.Kind)
}

func TestCancelTakesEffectAtNextCheck(t *testing.T) {
	tr := budget.NewTracker(budget.Budget{})
	require.NoError(t, tr.Check())
	tr.Cancel()

	err := tr.Check()
	require.Error(t, err)
	var aErr *budget.AbortError
	require.ErrorAs(t, err, &aErr)
}

func TestCancelTakesPriorityOverOtherBudgets(t *testing.T) {
	tr := budget.NewTracker(budget.Budget{MaxMatches: 1})
	tr.RecordMatch()
	tr.RecordMatch()
	tr.Cancel()

	err := tr.Check()
	var aErr *budget.AbortError
	require.ErrorAs(t, err, &aErr)
}

func TestSnapshotReflectsCounters(t *testing.T) {
	tr := budget.NewTracker(budget.Budget{})
	tr.RecordMatch()
	tr.RecordMatch()
	tr.RecordBytes(2048)

	s := tr.Snapshot(0.25)
	assert.Equal(t, int64(2), s.MatchedCount)
	assert.Equal(t, int64(2048), s.ProcessedBytes)
	assert.Equal(t, 0.25, s.SkipRatio)
}
