package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/table"
)

// HeadStage keeps the first N rows.
type HeadStage struct{ n int }

// Head creates a stage keeping the first n rows.
func Head(n int) *HeadStage { return &HeadStage{n: n} }

func (s *HeadStage) Name() string { return "head" }

func (s *HeadStage) Transform(t *table.Table) (*table.Table, error) {
	return t.Slice(0, s.n), nil
}

// TailStage keeps the last N rows.
type TailStage struct{ n int }

// Tail creates a stage keeping the last n rows.
func Tail(n int) *TailStage { return &TailStage{n: n} }

func (s *TailStage) Name() string { return "tail" }

func (s *TailStage) Transform(t *table.Table) (*table.Table, error) {
	n := min(max(s.n, 0), t.NumRows())
	return t.Slice(t.NumRows()-n, t.NumRows()), nil
}

// SortStage orders rows by one or more columns. The sort is stable and
// nulls sort last in both directions.
type SortStage struct {
	columns []string
	asc     bool
}

// Sort creates a sort stage over columns, ascending when asc is set.
func Sort(asc bool, columns ...string) *SortStage {
	return &SortStage{columns: append([]string(nil), columns...), asc: asc}
}

func (s *SortStage) Name() string {
	if s.asc {
		return "sorta"
	}
	return "sortd"
}

func (s *SortStage) Transform(t *table.Table) (*table.Table, error) {
	indices, err := columnIndices(t, s.columns)
	if err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}

	order := make([]int, t.NumRows())
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		a, b := t.Row(i), t.Row(j)
		for _, idx := range indices {
			av, bv := a.At(idx), b.At(idx)
			// Nulls sort last
			if av.IsNull() || bv.IsNull() {
				if av.IsNull() && bv.IsNull() {
					continue
				}
				if av.IsNull() {
					return 1
				}
				return -1
			}
			cmp := compareValues(av, bv)
			if cmp != 0 {
				if s.asc {
					return cmp
				}
				return -cmp
			}
		}
		return 0
	})

	b := table.NewBuilder(t.Columns())
	b.Grow(len(order))
	for _, i := range order {
		b.AppendRow(t.Row(i))
	}
	return b.Build()
}

func compareValues(a, b table.Value) int {
	// Numeric comparison
	af, aok := a.AsFloat()
	bf, bok := b.AsFloat()
	if aok && bok {
		if af < bf {
			return -1
		}
		if af > bf {
			return 1
		}
		return 0
	}

	// String comparison
	return strings.Compare(a.AsString(), b.AsString())
}

// GroupStage collapses rows sharing the same key columns into one row whose
// remaining columns are nested in a table-valued column.
type GroupStage struct {
	columns    []string
	nestedName string
}

// Group creates a group stage. An empty nestedName means "grouped".
func Group(nestedName string, columns ...string) *GroupStage {
	if nestedName == "" {
		nestedName = ast.DefaultNested
	}
	return &GroupStage{columns: append([]string(nil), columns...), nestedName: nestedName}
}

func (s *GroupStage) Name() string { return "group" }

func (s *GroupStage) Transform(t *table.Table) (*table.Table, error) {
	groupIndices, err := columnIndices(t, s.columns)
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}

	// Determine which columns go into the nested table
	var nestedCols []string
	var nestedIndices []int
	for i, col := range t.Columns() {
		if !slices.Contains(groupIndices, i) {
			nestedCols = append(nestedCols, col)
			nestedIndices = append(nestedIndices, i)
		}
	}

	// Build groups preserving first-seen order
	type groupEntry struct {
		key    []table.Value
		nested *table.Builder
	}
	var groups []groupEntry
	keyMap := make(map[string]int) // encoded key -> index in groups

	for _, row := range t.Rows() {
		keyStr := row.Key(groupIndices)
		gi, exists := keyMap[keyStr]
		if !exists {
			keyVals := make([]table.Value, len(groupIndices))
			for i, idx := range groupIndices {
				keyVals[i] = row.At(idx)
			}
			gi = len(groups)
			groups = append(groups, groupEntry{key: keyVals, nested: table.NewBuilder(nestedCols)})
			keyMap[keyStr] = gi
		}

		nestedVals := make([]table.Value, len(nestedIndices))
		for i, idx := range nestedIndices {
			nestedVals[i] = row.At(idx)
		}
		groups[gi].nested.Append(nestedVals)
	}

	// Build result table: group columns + nested column
	resultCols := append(append([]string(nil), s.columns...), s.nestedName)
	b := table.NewBuilder(resultCols)
	for _, g := range groups {
		nested, err := g.nested.Build()
		if err != nil {
			return nil, fmt.Errorf("group: %w", err)
		}
		b.Append(append(g.key, table.NestedVal(nested)))
	}
	return b.Build()
}

// Summary binds an aggregate to the column it fills.
type Summary struct {
	Column    string
	Aggregate Aggregate
}

// Summarize is shorthand for a Summary.
func Summarize(column string, agg Aggregate) Summary {
	return Summary{Column: column, Aggregate: agg}
}

// ReduceStage aggregates over a nested column produced by Group.
type ReduceStage struct {
	nestedName string
	summaries  []Summary
}

// Reduce creates a reduce stage. An empty nestedName means "grouped".
func Reduce(nestedName string, summaries ...Summary) *ReduceStage {
	if nestedName == "" {
		nestedName = ast.DefaultNested
	}
	return &ReduceStage{nestedName: nestedName, summaries: append([]Summary(nil), summaries...)}
}

func (s *ReduceStage) Name() string { return "reduce" }

func (s *ReduceStage) Transform(t *table.Table) (*table.Table, error) {
	nestedIdx := t.ColIndex(s.nestedName)
	if nestedIdx < 0 {
		return nil, fmt.Errorf("reduce: nested column %q not found (did you forget to group first?): %w",
			s.nestedName, &table.UnknownColumnError{Column: s.nestedName, Available: t.Columns()})
	}

	// Result columns: existing columns + new aggregated columns
	newCols := t.Columns()
	targets := make([]int, len(s.summaries))
	for i, a := range s.summaries {
		idx := slices.Index(newCols, a.Column)
		if idx < 0 {
			idx = len(newCols)
			newCols = append(newCols, a.Column)
		}
		targets[i] = idx
	}

	b := table.NewBuilder(newCols)
	b.Grow(t.NumRows())
	for _, row := range t.Rows() {
		nested := row.At(nestedIdx)
		if nested.Type != table.TypeNested || nested.Nested == nil {
			return nil, fmt.Errorf("reduce: column %q is not a nested table", s.nestedName)
		}

		vals := make([]table.Value, len(newCols))
		for j := range row.Len() {
			vals[j] = row.At(j)
		}
		for i, a := range s.summaries {
			v, err := a.Aggregate(nested.Nested)
			if err != nil {
				return nil, fmt.Errorf("reduce %q: %w", a.Column, err)
			}
			vals[targets[i]] = v
		}
		b.Append(vals)
	}
	return b.Build()
}

// CountStage replaces the table with a single-row count.
type CountStage struct{}

// Count creates a count stage.
func Count() CountStage { return CountStage{} }

func (CountStage) Name() string { return "count" }

func (CountStage) Transform(t *table.Table) (*table.Table, error) {
	return table.New([]string{"count"}, [][]table.Value{{table.IntVal(int64(t.NumRows()))}})
}

// DistinctStage keeps the first row of each distinct key.
type DistinctStage struct {
	columns []string // empty = all columns
}

// Distinct creates a distinct stage keyed on columns, or on whole rows when
// no columns are given.
func Distinct(columns ...string) *DistinctStage {
	return &DistinctStage{columns: append([]string(nil), columns...)}
}

func (s *DistinctStage) Name() string { return "distinct" }

func (s *DistinctStage) Transform(t *table.Table) (*table.Table, error) {
	var indices []int
	if len(s.columns) > 0 {
		var err error
		if indices, err = columnIndices(t, s.columns); err != nil {
			return nil, fmt.Errorf("distinct: %w", err)
		}
	} else {
		indices = make([]int, t.NumColumns())
		for i := range indices {
			indices[i] = i
		}
	}

	seen := make(map[string]bool)
	b := table.NewBuilder(t.Columns())
	for _, row := range t.Rows() {
		key := row.Key(indices)
		if !seen[key] {
			seen[key] = true
			b.AppendRow(row)
		}
	}
	return b.Build()
}

// RenamePair maps an old column name to a new one.
type RenamePair struct {
	Old string
	New string
}

// RenameStage renames columns in place.
type RenameStage struct {
	pairs []RenamePair
}

// Rename creates a rename stage. Pairs apply in order.
func Rename(pairs ...RenamePair) *RenameStage {
	return &RenameStage{pairs: append([]RenamePair(nil), pairs...)}
}

func (s *RenameStage) Name() string { return "rename" }

func (s *RenameStage) Transform(t *table.Table) (*table.Table, error) {
	newCols := t.Columns()
	for _, pair := range s.pairs {
		i := slices.Index(newCols, pair.Old)
		if i < 0 {
			return nil, fmt.Errorf("rename: %w", &table.UnknownColumnError{Column: pair.Old, Available: newCols})
		}
		newCols[i] = pair.New
	}

	b := table.NewBuilder(newCols)
	b.Grow(t.NumRows())
	for _, row := range t.Rows() {
		b.AppendRow(row)
	}
	tbl, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	return tbl, nil
}

// RemoveStage drops columns.
type RemoveStage struct {
	columns []string
}

// Remove creates a stage dropping the given columns.
func Remove(columns ...string) *RemoveStage {
	return &RemoveStage{columns: append([]string(nil), columns...)}
}

func (s *RemoveStage) Name() string { return "remove" }

func (s *RemoveStage) Transform(t *table.Table) (*table.Table, error) {
	if _, err := columnIndices(t, s.columns); err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}

	var keepCols []string
	var keepIndices []int
	for i, c := range t.Columns() {
		if !slices.Contains(s.columns, c) {
			keepCols = append(keepCols, c)
			keepIndices = append(keepIndices, i)
		}
	}
	return pick(t, keepCols, keepIndices)
}
