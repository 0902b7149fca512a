package expr

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

// widen copies the values of a numeric (or boolean/null) array into a []T.
// Null slots hold zero.
func widen[T number](arr arrow.Array) ([]T, error) {
	out := make([]T, arr.Len())
	switch a := arr.(type) {
	case *array.Int8:
		convertInto(out, a.Int8Values())
	case *array.Int16:
		convertInto(out, a.Int16Values())
	case *array.Int32:
		convertInto(out, a.Int32Values())
	case *array.Int64:
		convertInto(out, a.Int64Values())
	case *array.Uint8:
		convertInto(out, a.Uint8Values())
	case *array.Uint16:
		convertInto(out, a.Uint16Values())
	case *array.Uint32:
		convertInto(out, a.Uint32Values())
	case *array.Uint64:
		convertInto(out, a.Uint64Values())
	case *array.Float32:
		convertInto(out, a.Float32Values())
	case *array.Float64:
		convertInto(out, a.Float64Values())
	case *array.Boolean:
		for i := range out {
			if a.IsValid(i) && a.Value(i) {
				out[i] = 1
			}
		}
	case *array.Null:
	default:
		return nil, errors.NewTypeMismatchError("Numeric", "numeric", typeName(arr))
	}
	return out, nil
}

func convertInto[S, T number](dst []T, src []S) {
	for i, v := range src {
		dst[i] = T(v)
	}
}

func convertSlice[S, T number](src []S) []T {
	out := make([]T, len(src))
	convertInto(out, src)
	return out
}

// buildNumeric narrows wide values into an array of type t.
func buildNumeric[T number](t value.Type, vals []T, valid []bool, mem memory.Allocator) (arrow.Array, error) {
	switch t {
	case value.TypeInt8:
		return series.BuildArray(convertSlice[T, int8](vals), valid, mem)
	case value.TypeInt16:
		return series.BuildArray(convertSlice[T, int16](vals), valid, mem)
	case value.TypeInt32:
		return series.BuildArray(convertSlice[T, int32](vals), valid, mem)
	case value.TypeInt64:
		return series.BuildArray(convertSlice[T, int64](vals), valid, mem)
	case value.TypeUInt8:
		return series.BuildArray(convertSlice[T, uint8](vals), valid, mem)
	case value.TypeUInt16:
		return series.BuildArray(convertSlice[T, uint16](vals), valid, mem)
	case value.TypeUInt32:
		return series.BuildArray(convertSlice[T, uint32](vals), valid, mem)
	case value.TypeUInt64:
		return series.BuildArray(convertSlice[T, uint64](vals), valid, mem)
	case value.TypeFloat32:
		return series.BuildArray(convertSlice[T, float32](vals), valid, mem)
	case value.TypeFloat64:
		return series.BuildArray(convertSlice[T, float64](vals), valid, mem)
	}
	return nil, errors.NewUnsupportedTypeError("Numeric", t.String())
}

// validity returns the per-slot validity of arr.
func validity(arr arrow.Array) []bool {
	out := make([]bool, arr.Len())
	for i := range out {
		out[i] = !value.IsNullAt(arr, i)
	}
	return out
}

// stringGetter returns an accessor for utf8 arrays of either offset width.
func stringGetter(arr arrow.Array) (func(int) string, bool) {
	switch a := arr.(type) {
	case *array.String:
		return a.Value, true
	case *array.LargeString:
		return a.Value, true
	}
	return nil, false
}

func binaryGetter(arr arrow.Array) (func(int) []byte, bool) {
	switch a := arr.(type) {
	case *array.Binary:
		return a.Value, true
	case *array.LargeBinary:
		return a.Value, true
	}
	return nil, false
}

// fitInteger converts v to numeric type t when t represents it exactly.
func fitInteger(v int64, t value.Type) (value.Value, bool) {
	switch t {
	case value.TypeInt8:
		return fitted[int8](v)
	case value.TypeInt16:
		return fitted[int16](v)
	case value.TypeInt32:
		return fitted[int32](v)
	case value.TypeInt64:
		return value.Of(v), true
	case value.TypeUInt8:
		return fitted[uint8](v)
	case value.TypeUInt16:
		return fitted[uint16](v)
	case value.TypeUInt32:
		return fitted[uint32](v)
	case value.TypeUInt64:
		return fitted[uint64](v)
	case value.TypeFloat32:
		if v >= -1<<24 && v <= 1<<24 {
			return value.Of(float32(v)), true
		}
	case value.TypeFloat64:
		if v >= -1<<53 && v <= 1<<53 {
			return value.Of(float64(v)), true
		}
	}
	return value.Null(), false
}

func fitted[T interface {
	constraints.Integer
	value.Primitive
}](v int64) (value.Value, bool) {
	n := T(v)
	if int64(n) != v || (n < 0) != (v < 0) {
		return value.Null(), false
	}
	return value.Of(n), true
}
