package expr

import (
	"math"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/rowkey"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
)

// Reduce collapses in to a length-1 array.
func (e *Evaluator) Reduce(agg AggregationType, in arrow.Array) (arrow.Array, error) {
	switch agg {
	case AggCount:
		return scalar(uint32(in.Len()), e.mem)
	case AggFirst:
		return e.pick(in, 0)
	case AggLast:
		return e.pick(in, in.Len()-1)
	case AggNUnique:
		if in.Len() == 0 {
			return scalar(uint32(0), e.mem)
		}
		groups, err := rowkey.Group([]arrow.Array{in})
		if err != nil {
			return nil, err
		}
		return scalar(uint32(groups.Len()), e.mem)
	case AggSum, AggProduct:
		return e.fold(agg, in)
	case AggMean, AggMedian:
		return e.centre(agg, in)
	default:
		return e.extreme(agg, in)
	}
}

func (e *Evaluator) pick(in arrow.Array, i int) (arrow.Array, error) {
	if in.Len() == 0 {
		return series.NullArray(in.DataType(), 1, e.mem), nil
	}
	return series.TakeArray(in, []int{i}, e.mem)
}

func (e *Evaluator) fold(agg AggregationType, in arrow.Array) (arrow.Array, error) {
	product := agg == AggProduct
	t := typeOf(in)
	switch {
	case t == value.TypeNull:
		return array.NewNull(1), nil
	case t == value.TypeBoolean:
		vals, _ := widen[uint64](in)
		return buildNumeric(value.TypeUInt32, []uint64{accumulate(vals, in, product)}, nil, e.mem)
	case t.IsSignedInteger():
		vals, _ := widen[int64](in)
		return buildNumeric(value.TypeInt64, []int64{accumulate(vals, in, product)}, nil, e.mem)
	case t.IsUnsignedInteger():
		vals, _ := widen[uint64](in)
		return buildNumeric(value.TypeUInt64, []uint64{accumulate(vals, in, product)}, nil, e.mem)
	case t.IsFloat():
		vals, _ := widen[float64](in)
		return buildNumeric(t, []float64{accumulate(vals, in, product)}, nil, e.mem)
	}
	return nil, errors.NewTypeMismatchError(agg.String(), "numeric", t.String())
}

func accumulate[T number](vals []T, in arrow.Array, product bool) T {
	var acc T
	if product {
		acc = 1
	}
	for i, v := range vals {
		if value.IsNullAt(in, i) {
			continue
		}
		if product {
			acc *= v
		} else {
			acc += v
		}
	}
	return acc
}

// centre computes mean and median as f64 over the non-null values.
func (e *Evaluator) centre(agg AggregationType, in arrow.Array) (arrow.Array, error) {
	t := typeOf(in)
	if !t.IsNumeric() && t != value.TypeBoolean && t != value.TypeNull {
		return nil, errors.NewTypeMismatchError(agg.String(), "numeric", t.String())
	}
	all, _ := widen[float64](in)
	vals := make([]float64, 0, len(all))
	for i, v := range all {
		if !value.IsNullAt(in, i) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return series.NullArray(arrow.PrimitiveTypes.Float64, 1, e.mem), nil
	}

	var out float64
	if agg == AggMean {
		for _, v := range vals {
			out += v
		}
		out /= float64(len(vals))
	} else {
		slices.SortFunc(vals, compareFloat)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			out = vals[mid]
		} else {
			out = (vals[mid-1] + vals[mid]) / 2
		}
	}
	return scalar(out, e.mem)
}

// compareFloat orders NaN above every number.
func compareFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// extreme handles min, max and their nan-aware and arg variants. NaN is
// skipped unless the nan-aware variant saw one.
func (e *Evaluator) extreme(agg AggregationType, in arrow.Array) (arrow.Array, error) {
	compare, err := series.NewComparator(in)
	if err != nil {
		return nil, errors.NewTypeMismatchError(agg.String(), "orderable", typeName(in))
	}
	isNaN := nanProbe(in)
	wantMin := agg == AggMin || agg == AggNanMin || agg == AggArgMin

	best, firstNaN := -1, -1
	for i := 0; i < in.Len(); i++ {
		if value.IsNullAt(in, i) {
			continue
		}
		if isNaN != nil && isNaN(i) {
			if firstNaN < 0 {
				firstNaN = i
			}
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		c := compare(i, best)
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = i
		}
	}
	if (agg == AggNanMin || agg == AggNanMax) && firstNaN >= 0 {
		best = firstNaN
	}

	switch agg {
	case AggArgMin, AggArgMax:
		if best < 0 {
			return series.NullArray(arrow.PrimitiveTypes.Uint32, 1, e.mem), nil
		}
		return scalar(uint32(best), e.mem)
	}
	if best < 0 {
		return series.NullArray(in.DataType(), 1, e.mem), nil
	}
	return series.TakeArray(in, []int{best}, e.mem)
}

// nanProbe returns a NaN test for float arrays and nil otherwise.
func nanProbe(arr arrow.Array) func(int) bool {
	switch a := arr.(type) {
	case *array.Float32:
		return func(i int) bool { return math.IsNaN(float64(a.Value(i))) }
	case *array.Float64:
		return func(i int) bool { return math.IsNaN(a.Value(i)) }
	}
	return nil
}
