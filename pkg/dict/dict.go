// Package dict loads optional data dictionaries that enrich SQL and
// snippet prompts with field descriptions and relationships.
package dict

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field describes one dataset field.
type Field struct {
	Type          string   `json:"type" yaml:"type"`
	Description   string   `json:"description" yaml:"description"`
	Relationships []string `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// Dictionary maps field names to their descriptions. Reserved top-level
// keys carrying dataset metadata (dataset_name, description, fields_count)
// are kept separately and excluded from field context.
type Dictionary struct {
	DatasetName string
	Description string
	Fields      map[string]Field
}

var reservedKeys = map[string]bool{
	"dataset_name": true,
	"description":  true,
	"fields_count": true,
}

// Load reads a dictionary from a JSON or YAML file, chosen by extension.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dictionary: %w", err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML dictionary: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON dictionary: %w", err)
		}
	}

	return fromRaw(raw)
}

func fromRaw(raw map[string]any) (*Dictionary, error) {
	d := &Dictionary{Fields: map[string]Field{}}
	if v, ok := raw["dataset_name"].(string); ok {
		d.DatasetName = v
	}
	if v, ok := raw["description"].(string); ok {
		d.Description = v
	}

	for name, v := range raw {
		if reservedKeys[name] {
			continue
		}
		// Re-marshal through JSON to decode the field object regardless of
		// whether it came from the YAML or JSON parser.
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		var f Field
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		d.Fields[name] = f
	}
	return d, nil
}

// FieldNames returns field names in sorted order.
func (d *Dictionary) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PromptContext serializes the dictionary for inclusion in an LLM prompt.
// Returns "" when the dictionary carries no fields.
func (d *Dictionary) PromptContext() string {
	if d == nil || len(d.Fields) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Data Dictionary Information:\n")
	for _, name := range d.FieldNames() {
		f := d.Fields[name]
		fmt.Fprintf(&sb, "Field: %s\n", name)
		typ := f.Type
		if typ == "" {
			typ = "unknown"
		}
		fmt.Fprintf(&sb, "  Type: %s\n", typ)
		desc := f.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&sb, "  Description: %s\n", desc)
		if len(f.Relationships) > 0 {
			fmt.Fprintf(&sb, "  Related to: %s\n", strings.Join(f.Relationships, ", "))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Summary returns a one-paragraph dataset summary for decomposition
// prompts.
func (d *Dictionary) Summary() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	if d.DatasetName != "" {
		fmt.Fprintf(&sb, "Dataset: %s\n", d.DatasetName)
	}
	if d.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", d.Description)
	}
	if len(d.Fields) > 0 {
		fmt.Fprintf(&sb, "Fields: %s", strings.Join(d.FieldNames(), ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
