// Package frame provides the in-memory tabular value used by snippet steps
// and result consolidation: ordered columns over rows of named values.
package frame

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Frame is a tabular value: an ordered column list over rows keyed by
// column name. Missing cells are nil.
type Frame struct {
	Columns []string
	Rows    []map[string]any
}

// New returns a frame with the given columns and no rows.
func New(columns []string) *Frame {
	return &Frame{Columns: columns, Rows: []map[string]any{}}
}

// Empty returns a frame with no columns and no rows. This is the
// consolidated result when every step failed.
func Empty() *Frame {
	return &Frame{Columns: []string{}, Rows: []map[string]any{}}
}

// FromRows builds a frame from rows, deriving the column order from the
// provided column list. Rows are not copied.
func FromRows(columns []string, rows []map[string]any) *Frame {
	if rows == nil {
		rows = []map[string]any{}
	}
	return &Frame{Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	for _, c := range f.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Concat concatenates frames row-wise, preserving input order. The result
// schema is the union of all input schemas in first-seen column order;
// cells absent from a source frame are nil.
func Concat(frames []*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return Empty(), nil
	}

	var columns []string
	seen := make(map[string]bool)
	total := 0
	for _, f := range frames {
		if f == nil {
			return nil, fmt.Errorf("cannot concatenate nil frame")
		}
		for _, c := range f.Columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
		total += len(f.Rows)
	}

	out := &Frame{Columns: columns, Rows: make([]map[string]any, 0, total)}
	for _, f := range frames {
		for _, row := range f.Rows {
			merged := make(map[string]any, len(columns))
			for _, c := range columns {
				if v, ok := row[c]; ok {
					merged[c] = v
				} else {
					merged[c] = nil
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out, nil
}

// Render formats the frame as a text table, capping output at maxChars
// (and at most maxRows data rows). A zero or negative cap disables
// truncation.
func (f *Frame) Render(maxRows, maxChars int) string {
	if len(f.Rows) == 0 {
		return "(no rows)"
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(f.Columns)

	rows := len(f.Rows)
	if maxRows > 0 && rows > maxRows {
		rows = maxRows
	}
	for i := 0; i < rows; i++ {
		cells := make([]string, len(f.Columns))
		for j, c := range f.Columns {
			cells[j] = formatCell(f.Rows[i][c])
		}
		table.Append(cells)
	}
	table.Render()

	if rows < len(f.Rows) {
		fmt.Fprintf(&buf, "... and %d more rows\n", len(f.Rows)-rows)
	}

	s := buf.String()
	if maxChars > 0 && len(s) > maxChars {
		s = s[:maxChars] + "...\n[truncated]"
	}
	return s
}

// JSONPreview serializes the rows to indented JSON, capped at maxChars.
func (f *Frame) JSONPreview(maxChars int) string {
	data, err := json.MarshalIndent(f.Rows, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", f.Rows)
	}
	s := string(data)
	if maxChars > 0 && len(s) > maxChars {
		s = s[:maxChars] + "...\n[truncated]"
	}
	return s
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case float32:
		return formatCell(float64(val))
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 100 {
			s = s[:97] + "..."
		}
		return s
	}
}
