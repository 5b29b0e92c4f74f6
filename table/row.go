package table

// Row is a read-only view of one table row. It is the name -> value binding
// that expressions evaluate against.
type Row struct {
	table  *Table
	values []Value
}

// Lookup returns the value bound to name in this row.
func (r Row) Lookup(name string) (Value, error) {
	idx := r.table.ColIndex(name)
	if idx < 0 {
		return Null(), &UnboundNameError{Name: name}
	}
	return r.values[idx], nil
}

// Get returns the value of column name, or null if the row has no such column.
func (r Row) Get(name string) Value {
	idx := r.table.ColIndex(name)
	if idx < 0 {
		return Null()
	}
	return r.values[idx]
}

// At returns the i-th value in column order.
func (r Row) At(i int) Value {
	return r.values[i]
}

// Len returns the number of values in the row.
func (r Row) Len() int {
	return len(r.values)
}

// Values returns a copy of the row's values in column order.
func (r Row) Values() []Value {
	vals := make([]Value, len(r.values))
	copy(vals, r.values)
	return vals
}

// Table returns the table this row belongs to.
func (r Row) Table() *Table {
	return r.table
}
