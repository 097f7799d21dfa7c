package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sievedata/sieve/pkg/frame"
	"github.com/sievedata/sieve/pkg/store"
)

func TestExecutePlanBestEffort(t *testing.T) {
	st := defaultFakeStore()
	st.queryFn = func(sqlText string) (store.QueryResult, error) {
		if strings.Contains(sqlText, "broken") {
			return store.QueryResult{}, errors.New("no such table: broken")
		}
		return store.QueryResult{
			SQL:     sqlText,
			Columns: []string{"n"},
			Rows:    []map[string]any{{"n": 1}},
			Count:   1,
		}, nil
	}
	p := newTestProcessor(t, &stubLLM{}, st)
	r := newTestRun()

	plan := []ExecutionStep{
		{Seq: 1, SubtaskID: "a", Modality: ModalitySQL, Payload: "SELECT 1 AS n"},
		{Seq: 2, SubtaskID: "b", Modality: ModalitySQL, Payload: "SELECT * FROM broken"},
		{Seq: 3, SubtaskID: "c", Modality: ModalitySQL, Payload: "SELECT 2 AS n"},
	}

	results := p.executePlan(context.Background(), r, plan)
	require.Len(t, results, 3)
	assert.Equal(t, StepSucceeded, results[0].State)
	assert.Equal(t, StepFailed, results[1].State)
	assert.Equal(t, StepSucceeded, results[2].State)
	assert.Contains(t, results[1].Err, "no_such_table")
	assert.Empty(t, results[1].Value)
}

func TestExecuteSnippetStep(t *testing.T) {
	st := defaultFakeStore()
	st.frame = frame.FromRows([]string{"region", "amount"}, []map[string]any{
		{"region": "east", "amount": 100.0},
		{"region": "east", "amount": 25.0},
		{"region": "west", "amount": 50.0},
	})
	p := newTestProcessor(t, &stubLLM{}, st)
	r := newTestRun()

	plan := []ExecutionStep{{
		Seq:       1,
		SubtaskID: "a",
		Modality:  ModalitySnippet,
		Payload:   `{"ops": [{"op": "aggregate", "func": "sum", "column": "amount"}]}`,
	}}

	results := p.executePlan(context.Background(), r, plan)
	require.Len(t, results, 1)
	require.Equal(t, StepSucceeded, results[0].State)
	assert.False(t, results[0].Value.IsTabular())
	assert.Equal(t, 175.0, results[0].Value.Scalar)
}

func TestExecuteSnippetStepGroupedIsTabular(t *testing.T) {
	st := defaultFakeStore()
	st.frame = frame.FromRows([]string{"region", "amount"}, []map[string]any{
		{"region": "east", "amount": 100.0},
		{"region": "west", "amount": 50.0},
	})
	p := newTestProcessor(t, &stubLLM{}, st)
	r := newTestRun()

	plan := []ExecutionStep{{
		Seq:       1,
		SubtaskID: "a",
		Modality:  ModalitySnippet,
		Payload:   `{"ops": [{"op": "aggregate", "func": "sum", "column": "amount", "by": ["region"], "as": "total"}]}`,
	}}

	results := p.executePlan(context.Background(), r, plan)
	require.Len(t, results, 1)
	require.Equal(t, StepSucceeded, results[0].State)
	require.True(t, results[0].Value.IsTabular())
	assert.Equal(t, 2, results[0].Value.Frame.Len())
}

func TestExecutePlanBadProgramIsStepFailure(t *testing.T) {
	p := newTestProcessor(t, &stubLLM{}, defaultFakeStore())
	r := newTestRun()

	plan := []ExecutionStep{{
		Seq:       1,
		SubtaskID: "a",
		Modality:  ModalitySnippet,
		Payload:   "not a program",
	}}

	results := p.executePlan(context.Background(), r, plan)
	require.Len(t, results, 1)
	assert.Equal(t, StepFailed, results[0].State)
	assert.Contains(t, results[0].Err, "parsing program")
}
