package table

import (
	"rsc.io/ordered"
)

// Key kinds in the encoded form. Ints and floats share a kind so that 1 and
// 1.0 land in the same group, matching how == compares them.
const (
	keyNull int64 = iota
	keyNumber
	keyString
	keyBool
	keyNested
)

// Key encodes the given values as a byte string usable as a map key for
// grouping and deduplication. Equal keys mean the values compare equal.
func Key(values ...Value) string {
	list := make([]any, 0, 2*len(values))
	for _, v := range values {
		switch v.Type {
		case TypeInt:
			list = append(list, keyNumber, float64(v.Int))
		case TypeFloat:
			f := v.Float
			if f == 0 {
				f = 0 // fold -0
			}
			list = append(list, keyNumber, f)
		case TypeString:
			list = append(list, keyString, v.Str)
		case TypeBool:
			var b int64
			if v.Bool {
				b = 1
			}
			list = append(list, keyBool, b)
		case TypeNested:
			list = append(list, keyNested, v.AsString())
		default:
			list = append(list, keyNull)
		}
	}
	return string(ordered.Encode(list...))
}

// Key encodes the values of the given column indices of a row.
func (r Row) Key(indices []int) string {
	vals := make([]Value, len(indices))
	for i, idx := range indices {
		vals[i] = r.values[idx]
	}
	return Key(vals...)
}
