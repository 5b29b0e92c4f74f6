package table

import (
	"fmt"
	"strings"
)

// SchemaError reports a table whose columns and rows do not agree.
type SchemaError struct {
	Reason string
	Row    int // -1 when the problem is with the column list itself
}

func (e *SchemaError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("schema error: row %d: %s", e.Row, e.Reason)
	}
	return "schema error: " + e.Reason
}

// UnknownColumnError reports a reference to a column the table does not have.
type UnknownColumnError struct {
	Column    string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column %q not found (have: %s)", e.Column, strings.Join(e.Available, ", "))
}

// UnboundNameError reports an expression referencing a name the row does
// not bind.
type UnboundNameError struct {
	Name string
}

func (e *UnboundNameError) Error() string {
	return fmt.Sprintf("name %q is not bound in this row", e.Name)
}
