package goals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sievedata/sieve/pkg/events"
)

func TestCreateFromTemplate(t *testing.T) {
	tr := NewTracker(nil)

	id, err := tr.Create("process_query", map[string]string{"query": "total sales by region"})
	require.NoError(t, err)

	g, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateCreated, g.State)
	assert.Contains(t, g.Title, "total sales by region")
}

func TestCreateValidation(t *testing.T) {
	tr := NewTracker(nil)

	_, err := tr.Create("no_such_template", nil)
	assert.ErrorContains(t, err, "unknown goal template")

	_, err = tr.Create("process_query", map[string]string{})
	assert.ErrorContains(t, err, "missing required parameter: query")
}

func TestLifecycle(t *testing.T) {
	sink := &events.Collector{}
	tr := NewTracker(sink)

	id, err := tr.Create("process_query", map[string]string{"query": "count orders"})
	require.NoError(t, err)

	require.NoError(t, tr.SetState(id, StateActive))
	require.NoError(t, tr.AddReasoningStep(id, "Query Classification", "classified as simple"))
	require.NoError(t, tr.AddReasoningStep(id, "SQL Generation", "generated one statement"))
	require.NoError(t, tr.SetResult(id, "42"))

	g, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, g.State)
	assert.Equal(t, "42", g.Result)
	require.Len(t, g.Reasoning, 2)
	assert.Equal(t, 1, g.Reasoning[0].Number)
	assert.Equal(t, "SQL Generation", g.Reasoning[1].Name)

	assert.NotEmpty(t, sink.Events())
}

func TestSubgoals(t *testing.T) {
	tr := NewTracker(nil)

	parent, err := tr.Create("process_file", map[string]string{"file_path": "sales.csv"})
	require.NoError(t, err)

	child, err := tr.AddSubgoal(parent, "process_query", map[string]string{"query": "preview rows"})
	require.NoError(t, err)

	p, err := tr.Get(parent)
	require.NoError(t, err)
	require.Len(t, p.Subgoals, 1)
	assert.Equal(t, child, p.Subgoals[0])

	c, err := tr.Get(child)
	require.NoError(t, err)
	assert.Equal(t, parent, c.Parent)
}

func TestActive(t *testing.T) {
	tr := NewTracker(nil)

	a, _ := tr.Create("process_query", map[string]string{"query": "a"})
	b, _ := tr.Create("process_query", map[string]string{"query": "b"})
	require.NoError(t, tr.SetState(b, StateFailed))

	active := tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, a, active[0].ID)
}
