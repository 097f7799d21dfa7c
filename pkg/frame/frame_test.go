package frame

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcat_SchemaUnion(t *testing.T) {
	a := FromRows([]string{"region", "amount"}, []map[string]any{
		{"region": "east", "amount": 10.0},
		{"region": "west", "amount": 20.0},
	})
	b := FromRows([]string{"region", "customers"}, []map[string]any{
		{"region": "north", "customers": 5},
	})

	merged, err := Concat([]*Frame{a, b})
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "amount", "customers"}, merged.Columns)
	require.Len(t, merged.Rows, 3)

	// Cells absent from a source frame are nil.
	assert.Nil(t, merged.Rows[0]["customers"])
	assert.Nil(t, merged.Rows[2]["amount"])
	assert.Equal(t, "north", merged.Rows[2]["region"])
}

func TestConcat_Empty(t *testing.T) {
	merged, err := Concat(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, merged.Len())
}

func TestConcat_PreservesOrder(t *testing.T) {
	a := FromRows([]string{"n"}, []map[string]any{{"n": 1}, {"n": 2}})
	b := FromRows([]string{"n"}, []map[string]any{{"n": 3}})

	merged, err := Concat([]*Frame{a, b})
	require.NoError(t, err)
	require.Len(t, merged.Rows, 3)
	for i, want := range []int{1, 2, 3} {
		assert.Equal(t, want, merged.Rows[i]["n"])
	}
}

func TestRender_CapsRowsAndChars(t *testing.T) {
	f := New([]string{"id"})
	for i := 0; i < 100; i++ {
		f.Rows = append(f.Rows, map[string]any{"id": i})
	}

	out := f.Render(10, 0)
	assert.Contains(t, out, "and 90 more rows")

	capped := f.Render(0, 40)
	assert.True(t, strings.HasSuffix(capped, "[truncated]"))
	assert.LessOrEqual(t, len(capped), 40+len("...\n[truncated]"))
}

func TestRender_EmptyFrame(t *testing.T) {
	assert.Equal(t, "(no rows)", Empty().Render(10, 1000))
}
