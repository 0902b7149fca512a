// Package common provides shared utilities for type promotion and string
// representations.
package common

import (
	"github.com/paveg/polecat/internal/value"
)

// BitWidth returns the width of a numeric type, or 0.
func BitWidth(t value.Type) int {
	switch t {
	case value.TypeInt8, value.TypeUInt8:
		return 8
	case value.TypeInt16, value.TypeUInt16:
		return 16
	case value.TypeInt32, value.TypeUInt32, value.TypeFloat32:
		return 32
	case value.TypeInt64, value.TypeUInt64, value.TypeFloat64:
		return 64
	}
	return 0
}

func signedOfWidth(bits int) value.Type {
	switch {
	case bits <= 8:
		return value.TypeInt8
	case bits <= 16:
		return value.TypeInt16
	case bits <= 32:
		return value.TypeInt32
	default:
		return value.TypeInt64
	}
}

func unsignedOfWidth(bits int) value.Type {
	switch {
	case bits <= 8:
		return value.TypeUInt8
	case bits <= 16:
		return value.TypeUInt16
	case bits <= 32:
		return value.TypeUInt32
	default:
		return value.TypeUInt64
	}
}

// NumericSupertype returns the type both operands of an arithmetic or
// comparison operation are promoted to. Null adopts the other side.
func NumericSupertype(a, b value.Type) (value.Type, bool) {
	if a == value.TypeNull {
		a, b = b, a
	}
	if b == value.TypeNull {
		if a == value.TypeNull || a.IsNumeric() {
			return a, true
		}
		return value.TypeUnknown, false
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return value.TypeUnknown, false
	}
	if a == b {
		return a, true
	}

	switch {
	case a.IsFloat() && b.IsFloat():
		return value.TypeFloat64, true
	case a.IsFloat() || b.IsFloat():
		f, i := a, b
		if b.IsFloat() {
			f, i = b, a
		}
		if f == value.TypeFloat32 && BitWidth(i) <= 16 {
			return value.TypeFloat32, true
		}
		return value.TypeFloat64, true
	case a.IsSignedInteger() && b.IsSignedInteger():
		return signedOfWidth(max(BitWidth(a), BitWidth(b))), true
	case a.IsUnsignedInteger() && b.IsUnsignedInteger():
		return unsignedOfWidth(max(BitWidth(a), BitWidth(b))), true
	default:
		u, s := a, b
		if a.IsSignedInteger() {
			u, s = b, a
		}
		if BitWidth(u) < BitWidth(s) {
			return s, true
		}
		if u == value.TypeUInt64 {
			// no signed type holds every u64
			return value.TypeFloat64, true
		}
		return signedOfWidth(2 * BitWidth(u)), true
	}
}

// Supertype extends NumericSupertype to equal non-numeric types.
func Supertype(a, b value.Type) (value.Type, bool) {
	if a == b {
		return a, true
	}
	if a == value.TypeNull {
		return b, true
	}
	if b == value.TypeNull {
		return a, true
	}
	return NumericSupertype(a, b)
}
