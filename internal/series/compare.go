package series

import (
	"bytes"
	"cmp"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/value"
	"golang.org/x/exp/constraints"
)

// Comparator orders two non-null slots of one array.
type Comparator func(i, j int) int

// NewComparator returns a comparator for orderable arrays. Floats place NaN
// above every number and treat NaNs as equal.
func NewComparator(arr arrow.Array) (Comparator, error) {
	switch a := arr.(type) {
	case *array.Null:
		return func(int, int) int { return 0 }, nil
	case *array.Boolean:
		return func(i, j int) int { return compareBool(a.Value(i), a.Value(j)) }, nil
	case *array.Uint8:
		return ordered(a.Value), nil
	case *array.Uint16:
		return ordered(a.Value), nil
	case *array.Uint32:
		return ordered(a.Value), nil
	case *array.Uint64:
		return ordered(a.Value), nil
	case *array.Int8:
		return ordered(a.Value), nil
	case *array.Int16:
		return ordered(a.Value), nil
	case *array.Int32:
		return ordered(a.Value), nil
	case *array.Int64:
		return ordered(a.Value), nil
	case *array.Float32:
		return floats(a.Value), nil
	case *array.Float64:
		return floats(a.Value), nil
	case *array.String:
		return func(i, j int) int { return strings.Compare(a.Value(i), a.Value(j)) }, nil
	case *array.LargeString:
		return func(i, j int) int { return strings.Compare(a.Value(i), a.Value(j)) }, nil
	case *array.Binary:
		return func(i, j int) int { return bytes.Compare(a.Value(i), a.Value(j)) }, nil
	case *array.LargeBinary:
		return func(i, j int) int { return bytes.Compare(a.Value(i), a.Value(j)) }, nil
	}
	return nil, errors.NewUnsupportedTypeError("Compare", value.FromArrow(arr.DataType()).String())
}

func ordered[T constraints.Integer](get func(int) T) Comparator {
	return func(i, j int) int { return cmp.Compare(get(i), get(j)) }
}

func floats[T constraints.Float](get func(int) T) Comparator {
	return func(i, j int) int {
		a, b := float64(get(i)), float64(get(j))
		an, bn := math.IsNaN(a), math.IsNaN(b)
		switch {
		case an && bn:
			return 0
		case an:
			return 1
		case bn:
			return -1
		}
		return cmp.Compare(a, b)
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
