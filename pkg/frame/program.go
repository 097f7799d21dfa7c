package frame

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Program is a restricted data-transform pipeline evaluated against a
// frame. It is the executable form of a snippet step: the LLM emits a JSON
// operation list instead of runnable code, and the evaluator only supports
// the allow-listed operations below. It has no access to the filesystem,
// network, or database.
type Program struct {
	Ops []Op `json:"ops"`
}

// Op is a single transform operation. Exactly the fields relevant to its
// kind are set.
type Op struct {
	Kind string `json:"op"` // select | filter | aggregate | sort | limit | distinct

	// select, distinct
	Columns []string `json:"columns,omitempty"`

	// filter
	Column string `json:"column,omitempty"`
	Cmp    string `json:"cmp,omitempty"` // eq | ne | gt | ge | lt | le | contains
	Value  any    `json:"value,omitempty"`

	// aggregate
	Func string   `json:"func,omitempty"` // count | sum | avg | min | max
	By   []string `json:"by,omitempty"`
	As   string   `json:"as,omitempty"`

	// sort
	Desc bool `json:"desc,omitempty"`

	// limit
	N int `json:"n,omitempty"`
}

// ParseProgram decodes and validates a JSON program. It accepts either a
// top-level object with an "ops" array or a bare array of operations.
func ParseProgram(src string) (*Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty program")
	}

	var p Program
	if strings.HasPrefix(src, "[") {
		if err := json.Unmarshal([]byte(src), &p.Ops); err != nil {
			return nil, fmt.Errorf("invalid program JSON: %w", err)
		}
	} else {
		if err := json.Unmarshal([]byte(src), &p); err != nil {
			return nil, fmt.Errorf("invalid program JSON: %w", err)
		}
	}

	if len(p.Ops) == 0 {
		return nil, fmt.Errorf("program has no operations")
	}
	for i, op := range p.Ops {
		if err := validateOp(op); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
	}
	return &p, nil
}

func validateOp(op Op) error {
	switch op.Kind {
	case "select":
		if len(op.Columns) == 0 {
			return fmt.Errorf("select requires columns")
		}
	case "filter":
		if op.Column == "" {
			return fmt.Errorf("filter requires a column")
		}
		switch op.Cmp {
		case "eq", "ne", "gt", "ge", "lt", "le", "contains":
		default:
			return fmt.Errorf("unsupported comparison %q", op.Cmp)
		}
	case "aggregate":
		switch op.Func {
		case "count", "sum", "avg", "min", "max":
		default:
			return fmt.Errorf("unsupported aggregate %q", op.Func)
		}
		if op.Func != "count" && op.Column == "" {
			return fmt.Errorf("aggregate %s requires a column", op.Func)
		}
	case "sort":
		if op.Column == "" {
			return fmt.Errorf("sort requires a column")
		}
	case "limit":
		if op.N <= 0 {
			return fmt.Errorf("limit requires a positive n")
		}
	case "distinct":
		// columns optional; empty means all
	default:
		return fmt.Errorf("unsupported operation %q", op.Kind)
	}
	return nil
}

// Run evaluates the program against a frame. The result is a frame, except
// when the final operation is an ungrouped aggregate, in which case it is
// the scalar aggregate value.
func (p *Program) Run(f *Frame) (any, error) {
	if f == nil {
		return nil, fmt.Errorf("no frame to evaluate against")
	}

	cur := f
	for i, op := range p.Ops {
		switch op.Kind {
		case "select":
			cur = applySelect(cur, op.Columns)
		case "filter":
			next, err := applyFilter(cur, op)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", i+1, err)
			}
			cur = next
		case "aggregate":
			if len(op.By) == 0 {
				scalar, err := aggregateScalar(cur, op)
				if err != nil {
					return nil, fmt.Errorf("operation %d: %w", i+1, err)
				}
				if i != len(p.Ops)-1 {
					return nil, fmt.Errorf("operation %d: ungrouped aggregate must be the final operation", i+1)
				}
				return scalar, nil
			}
			next, err := aggregateGrouped(cur, op)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", i+1, err)
			}
			cur = next
		case "sort":
			cur = applySort(cur, op)
		case "limit":
			if op.N < len(cur.Rows) {
				cur = &Frame{Columns: cur.Columns, Rows: cur.Rows[:op.N]}
			}
		case "distinct":
			cur = applyDistinct(cur, op.Columns)
		}
	}
	return cur, nil
}

func applySelect(f *Frame, columns []string) *Frame {
	out := &Frame{Columns: columns, Rows: make([]map[string]any, len(f.Rows))}
	for i, row := range f.Rows {
		selected := make(map[string]any, len(columns))
		for _, c := range columns {
			selected[c] = row[c]
		}
		out.Rows[i] = selected
	}
	return out
}

func applyFilter(f *Frame, op Op) (*Frame, error) {
	if !f.HasColumn(op.Column) {
		return nil, fmt.Errorf("unknown column %q", op.Column)
	}
	out := &Frame{Columns: f.Columns}
	for _, row := range f.Rows {
		ok, err := compare(row[op.Column], op.Cmp, op.Value)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func compare(cell any, cmp string, target any) (bool, error) {
	if cmp == "contains" {
		return strings.Contains(strings.ToLower(toString(cell)), strings.ToLower(toString(target))), nil
	}

	// Numeric comparison when both sides coerce; string comparison otherwise.
	a, aok := toFloat(cell)
	b, bok := toFloat(target)
	var ord int
	if aok && bok {
		switch {
		case a < b:
			ord = -1
		case a > b:
			ord = 1
		}
	} else {
		ord = strings.Compare(toString(cell), toString(target))
	}

	switch cmp {
	case "eq":
		return ord == 0, nil
	case "ne":
		return ord != 0, nil
	case "gt":
		return ord > 0, nil
	case "ge":
		return ord >= 0, nil
	case "lt":
		return ord < 0, nil
	case "le":
		return ord <= 0, nil
	}
	return false, fmt.Errorf("unsupported comparison %q", cmp)
}

type accumulator struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.count++
	a.sum += v
}

func (a *accumulator) result(fn string) any {
	switch fn {
	case "count":
		return a.count
	case "sum":
		return a.sum
	case "avg":
		if a.count == 0 {
			return nil
		}
		return a.sum / float64(a.count)
	case "min":
		if a.count == 0 {
			return nil
		}
		return a.min
	case "max":
		if a.count == 0 {
			return nil
		}
		return a.max
	}
	return nil
}

func aggregateScalar(f *Frame, op Op) (any, error) {
	if op.Func == "count" && op.Column == "" {
		return len(f.Rows), nil
	}
	if !f.HasColumn(op.Column) {
		return nil, fmt.Errorf("unknown column %q", op.Column)
	}
	var acc accumulator
	for _, row := range f.Rows {
		if op.Func == "count" {
			if row[op.Column] != nil {
				acc.count++
			}
			continue
		}
		if v, ok := toFloat(row[op.Column]); ok {
			acc.add(v)
		}
	}
	return acc.result(op.Func), nil
}

func aggregateGrouped(f *Frame, op Op) (*Frame, error) {
	for _, by := range op.By {
		if !f.HasColumn(by) {
			return nil, fmt.Errorf("unknown group column %q", by)
		}
	}
	if op.Func != "count" && !f.HasColumn(op.Column) {
		return nil, fmt.Errorf("unknown column %q", op.Column)
	}

	as := op.As
	if as == "" {
		as = op.Func
		if op.Column != "" {
			as = op.Func + "_" + op.Column
		}
	}

	type group struct {
		key map[string]any
		acc accumulator
	}
	var order []string
	groups := make(map[string]*group)

	for _, row := range f.Rows {
		parts := make([]string, len(op.By))
		key := make(map[string]any, len(op.By))
		for i, by := range op.By {
			parts[i] = toString(row[by])
			key[by] = row[by]
		}
		k := strings.Join(parts, "\x00")
		g, ok := groups[k]
		if !ok {
			g = &group{key: key}
			groups[k] = g
			order = append(order, k)
		}
		switch {
		case op.Func == "count" && op.Column == "":
			g.acc.count++
		case op.Func == "count":
			if row[op.Column] != nil {
				g.acc.count++
			}
		default:
			if v, ok := toFloat(row[op.Column]); ok {
				g.acc.add(v)
			}
		}
	}

	out := &Frame{Columns: append(append([]string{}, op.By...), as)}
	for _, k := range order {
		g := groups[k]
		row := make(map[string]any, len(op.By)+1)
		for by, v := range g.key {
			row[by] = v
		}
		row[as] = g.acc.result(op.Func)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func applySort(f *Frame, op Op) *Frame {
	rows := make([]map[string]any, len(f.Rows))
	copy(rows, f.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := toFloat(rows[i][op.Column])
		b, bok := toFloat(rows[j][op.Column])
		var less bool
		if aok && bok {
			less = a < b
		} else {
			less = toString(rows[i][op.Column]) < toString(rows[j][op.Column])
		}
		if op.Desc {
			return !less && !equalCell(rows[i][op.Column], rows[j][op.Column])
		}
		return less
	})
	return &Frame{Columns: f.Columns, Rows: rows}
}

func applyDistinct(f *Frame, columns []string) *Frame {
	if len(columns) == 0 {
		columns = f.Columns
	}
	seen := make(map[string]bool)
	out := &Frame{Columns: f.Columns}
	for _, row := range f.Rows {
		parts := make([]string, len(columns))
		for i, c := range columns {
			parts[i] = toString(row[c])
		}
		k := strings.Join(parts, "\x00")
		if !seen[k] {
			seen[k] = true
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func equalCell(a, b any) bool {
	return toString(a) == toString(b)
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
