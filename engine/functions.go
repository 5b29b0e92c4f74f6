package engine

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/razeghi71/wrangle/table"
)

// variadic as an arity accepts one or more arguments.
const variadic = -1

// signature keys the function registry.
type signature struct {
	name  string
	arity int
}

// function is a row function. Strict functions see evaluated, non-null
// arguments (any null argument makes the call null). Lazy functions get the
// argument closures and decide what to evaluate.
type function struct {
	strict func(args []table.Value) (table.Value, error)
	lazy   func(args []Expr) Expr
}

var functions = map[signature]function{
	{"upper", 1}:           {strict: stringFunc(strings.ToUpper)},
	{"lower", 1}:           {strict: stringFunc(strings.ToLower)},
	{"trim", 1}:            {strict: stringFunc(strings.TrimSpace)},
	{"len", 1}:             {strict: length},
	{"substr", 3}:          {strict: substr},
	{"round", 1}:           {strict: round},
	{"round", 2}:           {strict: round},
	{"abs", 1}:             {strict: abs},
	{"year", 1}:            {strict: datePart(time.Time.Year)},
	{"month", 1}:           {strict: datePart(func(t time.Time) int { return int(t.Month()) })},
	{"day", 1}:             {strict: datePart(time.Time.Day)},
	{"if", 3}:              {lazy: ifThenElse},
	{"coalesce", variadic}: {lazy: coalesce},
}

func lookupFunction(name string, n int) (function, error) {
	if f, ok := functions[signature{name, n}]; ok {
		return f, nil
	}
	if f, ok := functions[signature{name, variadic}]; ok && n > 0 {
		return f, nil
	}
	var arities []string
	for sig := range functions {
		if sig.name != name {
			continue
		}
		if sig.arity == variadic {
			arities = append(arities, "at least 1")
		} else {
			arities = append(arities, strconv.Itoa(sig.arity))
		}
	}
	if len(arities) == 0 {
		return function{}, fmt.Errorf("unknown function %q", name)
	}
	slices.Sort(arities)
	return function{}, fmt.Errorf("%s() takes %s arguments, got %d", name, strings.Join(arities, " or "), n)
}

func stringFunc(f func(string) string) func([]table.Value) (table.Value, error) {
	return func(args []table.Value) (table.Value, error) {
		return table.StrVal(f(args[0].AsString())), nil
	}
}

// length counts characters, not bytes.
func length(args []table.Value) (table.Value, error) {
	return table.IntVal(int64(utf8.RuneCountInString(args[0].AsString()))), nil
}

// substr(s, start, n) takes n characters from the zero-based start,
// clamped to the string.
func substr(args []table.Value) (table.Value, error) {
	start, ok := args[1].AsFloat()
	if !ok {
		return table.Null(), fmt.Errorf("start must be a number, got %s", args[1].Type)
	}
	n, ok := args[2].AsFloat()
	if !ok {
		return table.Null(), fmt.Errorf("length must be a number, got %s", args[2].Type)
	}
	runes := []rune(args[0].AsString())
	from := min(max(int(start), 0), len(runes))
	to := min(from+max(int(n), 0), len(runes))
	return table.StrVal(string(runes[from:to])), nil
}

// round leaves integers alone and rounds floats half away from zero, to
// the given number of digits (default 0).
func round(args []table.Value) (table.Value, error) {
	v := args[0]
	if v.Type == table.TypeInt {
		return v, nil
	}
	if v.Type != table.TypeFloat {
		return table.Null(), fmt.Errorf("expected a number, got %s", v.Type)
	}
	digits := 0
	if len(args) == 2 {
		if args[1].Type != table.TypeInt {
			return table.Null(), fmt.Errorf("digits must be an integer, got %s", args[1].Type)
		}
		digits = int(args[1].Int)
	}
	scale := math.Pow(10, float64(digits))
	return table.FloatVal(math.Round(v.Float*scale) / scale), nil
}

func abs(args []table.Value) (table.Value, error) {
	v := args[0]
	switch v.Type {
	case table.TypeInt:
		if v.Int < 0 {
			return negate(v)
		}
		return v, nil
	case table.TypeFloat:
		return table.FloatVal(math.Abs(v.Float)), nil
	}
	return table.Null(), fmt.Errorf("expected a number, got %s", v.Type)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

func datePart(part func(time.Time) int) func([]table.Value) (table.Value, error) {
	return func(args []table.Value) (table.Value, error) {
		s := args[0].AsString()
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return table.IntVal(int64(part(t))), nil
			}
		}
		return table.Null(), fmt.Errorf("cannot parse %q as a date", s)
	}
}

// ifThenElse evaluates only the chosen branch. A null condition picks the
// else branch.
func ifThenElse(args []Expr) Expr {
	cond, then, otherwise := args[0], args[1], args[2]
	return func(row table.Row) (table.Value, error) {
		c, err := cond(row)
		if err != nil {
			return table.Null(), err
		}
		switch {
		case c.Type == table.TypeBool && c.Bool:
			return then(row)
		case c.Type == table.TypeBool || c.IsNull():
			return otherwise(row)
		}
		return table.Null(), fmt.Errorf("if(): condition must be a boolean, got %s", c.Type)
	}
}

// coalesce returns the first non-null argument, evaluating no further.
func coalesce(args []Expr) Expr {
	return func(row table.Row) (table.Value, error) {
		for _, a := range args {
			v, err := a(row)
			if err != nil || !v.IsNull() {
				return v, err
			}
		}
		return table.Null(), nil
	}
}
