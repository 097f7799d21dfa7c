package dict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "dict.json", `{
		"dataset_name": "sales",
		"description": "order history",
		"fields_count": 2,
		"region": {"type": "text", "description": "sales region"},
		"amount": {"type": "real", "description": "order amount", "relationships": ["region"]}
	}`)

	d, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sales", d.DatasetName)
	assert.Equal(t, []string{"amount", "region"}, d.FieldNames())

	ctx := d.PromptContext()
	assert.Contains(t, ctx, "Field: region")
	assert.Contains(t, ctx, "Related to: region")
	assert.NotContains(t, ctx, "fields_count")
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "dict.yaml", `
dataset_name: sales
region:
  type: text
  description: sales region
`)

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sales", d.DatasetName)
	require.Contains(t, d.Fields, "region")
	assert.Equal(t, "text", d.Fields["region"].Type)
}

func TestPromptContext_NilAndEmpty(t *testing.T) {
	var d *Dictionary
	assert.Equal(t, "", d.PromptContext())
	assert.Equal(t, "", (&Dictionary{}).PromptContext())
}

func TestSummary(t *testing.T) {
	d := &Dictionary{
		DatasetName: "sales",
		Description: "order history",
		Fields:      map[string]Field{"region": {}, "amount": {}},
	}
	s := d.Summary()
	assert.Contains(t, s, "Dataset: sales")
	assert.Contains(t, s, "Fields: amount, region")
}
