package table

import "fmt"

// Builder accumulates rows for a new table. It takes ownership of the
// slices passed to Append; callers must not modify them afterwards.
type Builder struct {
	columns []string
	rows    [][]Value
}

// NewBuilder starts a table with the given columns.
func NewBuilder(columns []string) *Builder {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Builder{columns: cols}
}

// Grow reserves room for n more rows.
func (b *Builder) Grow(n int) {
	if n > 0 && cap(b.rows)-len(b.rows) < n {
		rows := make([][]Value, len(b.rows), len(b.rows)+n)
		copy(rows, b.rows)
		b.rows = rows
	}
}

// Append adds a row given in column order.
func (b *Builder) Append(values []Value) {
	b.rows = append(b.rows, values)
}

// AppendRow adds a row of another table. The row must come from a table
// with the same column layout.
func (b *Builder) AppendRow(r Row) {
	b.rows = append(b.rows, r.values)
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build validates the columns and row widths and returns the table.
func (b *Builder) Build() (*Table, error) {
	index := make(map[string]int, len(b.columns))
	for i, c := range b.columns {
		if _, dup := index[c]; dup {
			return nil, &SchemaError{Row: -1, Reason: fmt.Sprintf("duplicate column name %q", c)}
		}
		index[c] = i
	}
	for i, r := range b.rows {
		if len(r) != len(b.columns) {
			return nil, &SchemaError{Row: i, Reason: fmt.Sprintf("row has %d values, table has %d columns", len(r), len(b.columns))}
		}
	}
	return &Table{columns: b.columns, index: index, rows: b.rows}, nil
}
