// Package table holds the immutable tabular value that stages consume and
// produce.
package table

import (
	"fmt"
	"iter"
	"strings"
)

// Table is the core data structure: columns + rows. A Table is never
// modified after construction; every transformation builds a new one.
// Rows may be shared between tables since neither side can change them.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates a table from column names and rows given in column order.
// The input slices are copied.
func New(columns []string, rows [][]Value) (*Table, error) {
	b := NewBuilder(columns)
	for _, r := range rows {
		vals := make([]Value, len(r))
		copy(vals, r)
		b.Append(vals)
	}
	return b.Build()
}

// Empty returns a table with the given columns and no rows.
func Empty(columns []string) (*Table, error) {
	return NewBuilder(columns).Build()
}

// FromRecords creates a table from name -> value records. Every record's
// key set must equal columns exactly.
func FromRecords(columns []string, records []map[string]Value) (*Table, error) {
	b := NewBuilder(columns)
	for i, rec := range records {
		if len(rec) != len(columns) {
			return nil, &SchemaError{Row: i, Reason: fmt.Sprintf("record has %d fields, table has %d columns", len(rec), len(columns))}
		}
		vals := make([]Value, len(columns))
		for j, c := range columns {
			v, ok := rec[c]
			if !ok {
				return nil, &SchemaError{Row: i, Reason: fmt.Sprintf("record is missing column %q", c)}
			}
			vals[j] = v
		}
		b.Append(vals)
	}
	return b.Build()
}

// FromColumns creates a table from one value sequence per column. All
// sequences must have the same length and data must hold exactly columns.
func FromColumns(columns []string, data map[string][]Value) (*Table, error) {
	if len(data) != len(columns) {
		return nil, &SchemaError{Row: -1, Reason: fmt.Sprintf("got %d column sequences for %d columns", len(data), len(columns))}
	}
	n := -1
	for _, c := range columns {
		seq, ok := data[c]
		if !ok {
			return nil, &SchemaError{Row: -1, Reason: fmt.Sprintf("no values given for column %q", c)}
		}
		if n >= 0 && len(seq) != n {
			return nil, &SchemaError{Row: -1, Reason: fmt.Sprintf("column %q has %d values, expected %d", c, len(seq), n)}
		}
		n = len(seq)
	}
	if n < 0 {
		n = 0
	}

	b := NewBuilder(columns)
	for i := 0; i < n; i++ {
		vals := make([]Value, len(columns))
		for j, c := range columns {
			vals[j] = data[c][i]
		}
		b.Append(vals)
	}
	return b.Build()
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// ColIndex returns the index of a column by name, or -1.
func (t *Table) ColIndex(name string) int {
	if idx, ok := t.index[name]; ok {
		return idx
	}
	return -1
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) ([]Value, error) {
	idx := t.ColIndex(name)
	if idx < 0 {
		return nil, t.unknown(name)
	}
	vals := make([]Value, len(t.rows))
	for i, r := range t.rows {
		vals[i] = r[idx]
	}
	return vals, nil
}

// Row returns a read-only view of row i. It panics if i is out of range.
func (t *Table) Row(i int) Row {
	return Row{table: t, values: t.rows[i]}
}

// Rows iterates over the rows in order.
func (t *Table) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, r := range t.rows {
			if !yield(i, Row{table: t, values: r}) {
				return
			}
		}
	}
}

// Get returns the value at a given row and column name, or null when
// either is out of range.
func (t *Table) Get(row int, col string) Value {
	idx := t.ColIndex(col)
	if idx < 0 || row < 0 || row >= len(t.rows) {
		return Null()
	}
	return t.rows[row][idx]
}

// Slice returns the rows in [from, to) as a new table sharing row data.
func (t *Table) Slice(from, to int) *Table {
	from = max(0, min(from, len(t.rows)))
	to = max(from, min(to, len(t.rows)))
	return &Table{columns: t.columns, index: t.index, rows: t.rows[from:to:to]}
}

// Records returns the rows as name -> plain Go value maps.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for j, c := range t.columns {
			rec[c] = r[j].Interface()
		}
		out[i] = rec
	}
	return out
}

// Equal reports whether both tables have the same columns in the same order
// and equal rows in the same order.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.columns) != len(o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i, c := range t.columns {
		if o.columns[i] != c {
			return false
		}
	}
	for i, r := range t.rows {
		for j, v := range r {
			if !v.Equal(o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func (t *Table) unknown(name string) error {
	return &UnknownColumnError{Column: name, Available: t.Columns()}
}

// String returns a compact representation of the table.
func (t *Table) String() string {
	if t == nil {
		return "<nil>"
	}
	if len(t.rows) == 0 {
		return "[" + strings.Join(t.columns, ", ") + "] (0 rows)"
	}

	var sb strings.Builder
	sb.WriteString("[ ")
	for i, r := range t.rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("{")
		for j, v := range r {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.columns[j])
			sb.WriteString(":")
			sb.WriteString(v.AsString())
		}
		sb.WriteString("}")
	}
	sb.WriteString(" ]")
	return sb.String()
}
