package engine

import (
	"fmt"

	"github.com/razeghi71/wrangle/table"
)

// PredicateTypeError reports a filter predicate that produced something
// other than a boolean for a row.
type PredicateTypeError struct {
	Row int
	Got table.Value
}

func (e *PredicateTypeError) Error() string {
	return fmt.Sprintf("predicate must return a boolean, got %s %v at row %d", e.Got.Type, e.Got.AsString(), e.Row)
}
