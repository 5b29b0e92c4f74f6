package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/table"
)

// binaryOps holds every binary operator except and/or, which short-circuit
// and are built by logical.
var binaryOps = map[ast.Operator]func(a, b table.Value) (table.Value, error){
	ast.Add: addition.apply,
	ast.Sub: arith{ast.Sub, subInt, func(x, y float64) float64 { return x - y }}.apply,
	ast.Mul: arith{ast.Mul, mulInt, func(x, y float64) float64 { return x * y }}.apply,
	ast.Div: arith{ast.Div, divInt, func(x, y float64) float64 { return x / y }}.apply,
	ast.Eq:  compare(ast.Eq, func(c int) bool { return c == 0 }),
	ast.Ne:  compare(ast.Ne, func(c int) bool { return c != 0 }),
	ast.Lt:  compare(ast.Lt, func(c int) bool { return c < 0 }),
	ast.Le:  compare(ast.Le, func(c int) bool { return c <= 0 }),
	ast.Gt:  compare(ast.Gt, func(c int) bool { return c > 0 }),
	ast.Ge:  compare(ast.Ge, func(c int) bool { return c >= 0 }),
}

var addition = arith{ast.Add, addInt, func(x, y float64) float64 { return x + y }}

// arith is one of + - * /. Null in, null out. Two ints give an int when
// the exact result fits in int64; otherwise the operation is done in
// float64, so overflow and inexact division widen instead of wrapping.
// Division by zero follows IEEE 754.
type arith struct {
	op     ast.Operator
	ints   func(x, y int64) (int64, bool)
	floats func(x, y float64) float64
}

func (a arith) apply(l, r table.Value) (table.Value, error) {
	if l.IsNull() || r.IsNull() {
		return table.Null(), nil
	}
	if a.op == ast.Add && l.Type == table.TypeString && r.Type == table.TypeString {
		return table.StrVal(l.Str + r.Str), nil
	}
	if l.Type == table.TypeInt && r.Type == table.TypeInt {
		if n, ok := a.ints(l.Int, r.Int); ok {
			return table.IntVal(n), nil
		}
	}
	x, lok := l.AsFloat()
	y, rok := r.AsFloat()
	if !lok || !rok {
		return table.Null(), fmt.Errorf("cannot apply %s to %s %v and %s %v", a.op, l.Type, l.AsString(), r.Type, r.AsString())
	}
	return table.FloatVal(a.floats(x, y)), nil
}

func addInt(x, y int64) (int64, bool) {
	s := x + y
	return s, (s > x) == (y > 0)
}

func subInt(x, y int64) (int64, bool) {
	d := x - y
	return d, (d < x) == (y > 0)
}

func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	if (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	p := x * y
	return p, p/y == x
}

func divInt(x, y int64) (int64, bool) {
	if y == 0 || x%y != 0 || (x == math.MinInt64 && y == -1) {
		return 0, false
	}
	return x / y, true
}

func negate(v table.Value) (table.Value, error) {
	switch v.Type {
	case table.TypeNull:
		return v, nil
	case table.TypeInt:
		if v.Int == math.MinInt64 {
			return table.FloatVal(-float64(v.Int)), nil
		}
		return table.IntVal(-v.Int), nil
	case table.TypeFloat:
		return table.FloatVal(-v.Float), nil
	}
	return table.Null(), fmt.Errorf("cannot negate %s %v", v.Type, v.AsString())
}

// compare builds a comparison operator. == and != treat null as an
// ordinary value (null == null); ordering against null is null. NaN is
// unequal to everything, itself included.
func compare(op ast.Operator, test func(c int) bool) func(a, b table.Value) (table.Value, error) {
	return func(a, b table.Value) (table.Value, error) {
		if a.IsNull() || b.IsNull() {
			switch op {
			case ast.Eq:
				return table.BoolVal(a.IsNull() && b.IsNull()), nil
			case ast.Ne:
				return table.BoolVal(a.IsNull() != b.IsNull()), nil
			}
			return table.Null(), nil
		}

		switch {
		case a.Type == table.TypeString && b.Type == table.TypeString:
			return table.BoolVal(test(strings.Compare(a.Str, b.Str))), nil
		case a.Type == table.TypeBool && b.Type == table.TypeBool:
			if op != ast.Eq && op != ast.Ne {
				return table.Null(), fmt.Errorf("cannot use %s on booleans", op)
			}
			return table.BoolVal((a.Bool == b.Bool) == (op == ast.Eq)), nil
		case a.IsNumeric() && b.IsNumeric():
			x, _ := a.AsFloat()
			y, _ := b.AsFloat()
			if math.IsNaN(x) || math.IsNaN(y) {
				return table.BoolVal(op == ast.Ne), nil
			}
			if a.Type == table.TypeInt && b.Type == table.TypeInt {
				return table.BoolVal(test(cmpInt(a.Int, b.Int))), nil
			}
			return table.BoolVal(test(cmpFloat(x, y))), nil
		}
		return table.Null(), fmt.Errorf("cannot compare %s %v with %s %v", a.Type, a.AsString(), b.Type, b.AsString())
	}
}

func cmpInt(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// sameValue is the equality used by set membership: never an error, values
// of unrelated types are simply different.
func sameValue(a, b table.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.IsNumeric() && b.IsNumeric() {
		if a.Type == table.TypeInt && b.Type == table.TypeInt {
			return a.Int == b.Int
		}
		x, _ := a.AsFloat()
		y, _ := b.AsFloat()
		return x == y
	}
	return a.Equal(b)
}

func contains(set []table.Value, v table.Value) bool {
	for _, m := range set {
		if sameValue(v, m) {
			return true
		}
	}
	return false
}

// Logic is three-valued. Null is "unknown": not null is null, false and
// null is false, true or null is true, and any other mix with null is null.

func not(v table.Value) (table.Value, error) {
	switch v.Type {
	case table.TypeNull:
		return v, nil
	case table.TypeBool:
		return table.BoolVal(!v.Bool), nil
	}
	return table.Null(), fmt.Errorf("'not' requires a boolean operand, got %s", v.Type)
}

// logical builds and/or. The right side is not evaluated when the left
// side decides the result.
func logical(op ast.Operator, x, y Expr) Expr {
	decisive := op == ast.Or
	operand := func(row table.Row, e Expr) (table.Value, error) {
		v, err := e(row)
		if err != nil {
			return table.Null(), err
		}
		if v.Type != table.TypeBool && v.Type != table.TypeNull {
			return table.Null(), fmt.Errorf("'%s' requires boolean operands, got %s", op, v.Type)
		}
		return v, nil
	}
	return func(row table.Row) (table.Value, error) {
		a, err := operand(row, x)
		if err != nil {
			return table.Null(), err
		}
		if !a.IsNull() && a.Bool == decisive {
			return a, nil
		}
		b, err := operand(row, y)
		if err != nil {
			return table.Null(), err
		}
		if !b.IsNull() && b.Bool == decisive {
			return b, nil
		}
		if a.IsNull() || b.IsNull() {
			return table.Null(), nil
		}
		return table.BoolVal(!decisive), nil
	}
}
