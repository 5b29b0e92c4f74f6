package engine

import (
	"fmt"

	"github.com/razeghi71/wrangle/table"
)

// aggregateFunc folds one column of a nested table. count is the only one
// that may be called without a column; it then counts rows.
type aggregateFunc struct {
	minArgs int
	fold    func(vals []table.Value) (table.Value, error)
}

func (a aggregateFunc) arity() string {
	if a.minArgs == 0 {
		return "at most one column"
	}
	return "one column"
}

var aggregates = map[string]aggregateFunc{
	"count": {minArgs: 0, fold: countNonNull},
	"sum":   {minArgs: 1, fold: sum},
	"avg":   {minArgs: 1, fold: avg},
	"min":   {minArgs: 1, fold: extreme(-1)},
	"max":   {minArgs: 1, fold: extreme(1)},
	"first": {minArgs: 1, fold: first},
	"last":  {minArgs: 1, fold: last},
}

// aggregateCall is one aggregate in a reduce expression, bound to its
// column.
type aggregateCall struct {
	name   string
	column string
	fn     aggregateFunc
}

func (c aggregateCall) apply(nested *table.Table) (table.Value, error) {
	if c.column == "" {
		return table.IntVal(int64(nested.NumRows())), nil
	}
	vals, err := nested.Column(c.column)
	if err != nil {
		return table.Null(), fmt.Errorf("%s(%s): %w", c.name, c.column, err)
	}
	v, err := c.fn.fold(vals)
	if err != nil {
		return table.Null(), fmt.Errorf("%s(%s): %w", c.name, c.column, err)
	}
	return v, nil
}

func countNonNull(vals []table.Value) (table.Value, error) {
	n := 0
	for _, v := range vals {
		if !v.IsNull() {
			n++
		}
	}
	return table.IntVal(int64(n)), nil
}

// numbers returns the non-null values, all of which must be numeric.
func numbers(vals []table.Value) ([]table.Value, error) {
	out := make([]table.Value, 0, len(vals))
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		if !v.IsNumeric() {
			return nil, fmt.Errorf("non-numeric value %s %v", v.Type, v.AsString())
		}
		out = append(out, v)
	}
	return out, nil
}

// sum skips nulls and is null when nothing is left. It stays an int while
// every value is an int and the total fits.
func sum(vals []table.Value) (table.Value, error) {
	nums, err := numbers(vals)
	if err != nil || len(nums) == 0 {
		return table.Null(), err
	}
	total := table.IntVal(0)
	for _, v := range nums {
		if total, err = addition.apply(total, v); err != nil {
			return table.Null(), err
		}
	}
	return total, nil
}

func avg(vals []table.Value) (table.Value, error) {
	nums, err := numbers(vals)
	if err != nil || len(nums) == 0 {
		return table.Null(), err
	}
	var total float64
	for _, v := range nums {
		f, _ := v.AsFloat()
		total += f
	}
	return table.FloatVal(total / float64(len(nums))), nil
}

// extreme picks the smallest (sign -1) or largest (sign 1) numeric value,
// keeping its type.
func extreme(sign int) func([]table.Value) (table.Value, error) {
	return func(vals []table.Value) (table.Value, error) {
		nums, err := numbers(vals)
		if err != nil || len(nums) == 0 {
			return table.Null(), err
		}
		best := nums[0]
		for _, v := range nums[1:] {
			if compareValues(v, best)*sign > 0 {
				best = v
			}
		}
		return best, nil
	}
}

func first(vals []table.Value) (table.Value, error) {
	if len(vals) == 0 {
		return table.Null(), nil
	}
	return vals[0], nil
}

func last(vals []table.Value) (table.Value, error) {
	if len(vals) == 0 {
		return table.Null(), nil
	}
	return vals[len(vals)-1], nil
}
