package table

import (
	"math"
	"strconv"
)

// ValueType represents the type of a Value.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeNested // nested table (from group)
)

var typeNames = [...]string{
	TypeNull:   "null",
	TypeInt:    "int",
	TypeFloat:  "float",
	TypeString: "string",
	TypeBool:   "bool",
	TypeNested: "table",
}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "ValueType(" + strconv.Itoa(int(t)) + ")"
}

// Value is a dynamically-typed cell in a table. Values are immutable; a
// nested table is shared, never copied.
type Value struct {
	Type   ValueType
	Int    int64
	Float  float64
	Str    string
	Bool   bool
	Nested *Table
}

// Null returns a null value.
func Null() Value {
	return Value{Type: TypeNull}
}

// IntVal creates an integer value.
func IntVal(v int64) Value {
	return Value{Type: TypeInt, Int: v}
}

// FloatVal creates a float value.
func FloatVal(v float64) Value {
	return Value{Type: TypeFloat, Float: v}
}

// StrVal creates a string value.
func StrVal(v string) Value {
	return Value{Type: TypeString, Str: v}
}

// BoolVal creates a boolean value.
func BoolVal(v bool) Value {
	return Value{Type: TypeBool, Bool: v}
}

// NestedVal creates a nested table value.
func NestedVal(t *Table) Value {
	return Value{Type: TypeNested, Nested: t}
}

// IsNull returns true if the value is null.
func (v Value) IsNull() bool {
	return v.Type == TypeNull
}

// IsNumeric reports whether the value is an int or a float.
func (v Value) IsNumeric() bool {
	return v.Type == TypeInt || v.Type == TypeFloat
}

// AsFloat attempts to coerce to float64 for arithmetic.
func (v Value) AsFloat() (float64, bool) {
	switch v.Type {
	case TypeInt:
		return float64(v.Int), true
	case TypeFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// AsString returns the string representation.
func (v Value) AsString() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case TypeString:
		return v.Str
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	case TypeNested:
		return v.Nested.String()
	default:
		return "?"
	}
}

// Interface returns the value as a plain Go value: nil, int64, float64,
// string, bool, or []map[string]any for a nested table.
func (v Value) Interface() any {
	switch v.Type {
	case TypeInt:
		return v.Int
	case TypeFloat:
		return v.Float
	case TypeString:
		return v.Str
	case TypeBool:
		return v.Bool
	case TypeNested:
		if v.Nested == nil {
			return nil
		}
		return v.Nested.Records()
	default:
		return nil
	}
}

// Equal reports whether two values are identical in type and content.
// Int 1 and float 1.0 are not Equal; NaN equals NaN so that tables holding
// the result of 0/0 compare equal to themselves.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeNull:
		return true
	case TypeInt:
		return v.Int == o.Int
	case TypeFloat:
		if math.IsNaN(v.Float) && math.IsNaN(o.Float) {
			return true
		}
		return v.Float == o.Float
	case TypeString:
		return v.Str == o.Str
	case TypeBool:
		return v.Bool == o.Bool
	case TypeNested:
		return v.Nested.Equal(o.Nested)
	}
	return false
}
