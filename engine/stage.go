package engine

import (
	"fmt"

	"github.com/razeghi71/wrangle/table"
)

// Stage is one table -> table transformation. Transform must not modify
// its input and must not read anything but the input table and constants
// fixed when the stage was built.
type Stage interface {
	Name() string
	Transform(t *table.Table) (*table.Table, error)
}

// Assignment binds the result of an expression to a column.
type Assignment struct {
	Column string
	Expr   Expr
}

// Assign is shorthand for an Assignment.
func Assign(column string, expr Expr) Assignment {
	return Assignment{Column: column, Expr: expr}
}

// DeriveStage adds or overwrites columns.
type DeriveStage struct {
	assignments []Assignment
}

// Derive creates a stage that sets each assignment's column to its
// expression. All expressions read the incoming row, so none of them sees a
// value derived by a sibling in the same stage. Existing columns keep their
// position; new ones are appended in order.
func Derive(assignments ...Assignment) *DeriveStage {
	return &DeriveStage{assignments: append([]Assignment(nil), assignments...)}
}

func (s *DeriveStage) Name() string { return "derive" }

func (s *DeriveStage) Transform(t *table.Table) (*table.Table, error) {
	// Figure out which columns are new vs existing
	newCols := t.Columns()
	targets := make([]int, len(s.assignments)) // index in newCols
	seen := make(map[string]int, len(newCols))
	for i, c := range newCols {
		seen[c] = i
	}
	for i, a := range s.assignments {
		idx, ok := seen[a.Column]
		if !ok {
			idx = len(newCols)
			newCols = append(newCols, a.Column)
			seen[a.Column] = idx
		}
		targets[i] = idx
	}

	b := table.NewBuilder(newCols)
	b.Grow(t.NumRows())
	for _, row := range t.Rows() {
		vals := make([]table.Value, len(newCols))
		for j := range row.Len() {
			vals[j] = row.At(j)
		}
		for i, a := range s.assignments {
			v, err := a.Expr(row)
			if err != nil {
				return nil, fmt.Errorf("derive %q: %w", a.Column, err)
			}
			vals[targets[i]] = v
		}
		b.Append(vals)
	}
	return b.Build()
}

// FilterStage keeps the rows a predicate accepts.
type FilterStage struct {
	predicate Expr
}

// Filter creates a stage keeping rows for which predicate yields true.
// Any result that is not a boolean, null included, is a
// *PredicateTypeError. Guard nullable columns with "x is not null and ...".
func Filter(predicate Expr) *FilterStage {
	return &FilterStage{predicate: predicate}
}

func (s *FilterStage) Name() string { return "filter" }

func (s *FilterStage) Transform(t *table.Table) (*table.Table, error) {
	b := table.NewBuilder(t.Columns())
	for i, row := range t.Rows() {
		val, err := s.predicate(row)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		if val.Type != table.TypeBool {
			return nil, &PredicateTypeError{Row: i, Got: val}
		}
		if val.Bool {
			b.AppendRow(row)
		}
	}
	return b.Build()
}

// ProjectStage restricts and reorders columns.
type ProjectStage struct {
	columns []string
}

// Project creates a stage producing exactly the given columns in the given
// order.
func Project(columns ...string) *ProjectStage {
	return &ProjectStage{columns: append([]string(nil), columns...)}
}

func (s *ProjectStage) Name() string { return "project" }

func (s *ProjectStage) Transform(t *table.Table) (*table.Table, error) {
	indices, err := columnIndices(t, s.columns)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return pick(t, s.columns, indices)
}

// columnIndices resolves names to column positions.
func columnIndices(t *table.Table, names []string) ([]int, error) {
	indices := make([]int, len(names))
	for i, c := range names {
		idx := t.ColIndex(c)
		if idx < 0 {
			return nil, &table.UnknownColumnError{Column: c, Available: t.Columns()}
		}
		indices[i] = idx
	}
	return indices, nil
}

// pick builds a table from the given column positions of every row.
func pick(t *table.Table, names []string, indices []int) (*table.Table, error) {
	b := table.NewBuilder(names)
	b.Grow(t.NumRows())
	for _, row := range t.Rows() {
		vals := make([]table.Value, len(indices))
		for i, idx := range indices {
			vals[i] = row.At(idx)
		}
		b.Append(vals)
	}
	return b.Build()
}
