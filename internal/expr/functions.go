package expr

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/rowkey"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
)

func (e *Evaluator) evaluateFunction(ctx context.Context, expr *FunctionExpr, columns map[string]arrow.Array) (arrow.Array, error) {
	args := make([]arrow.Array, 0, len(expr.args))
	defer func() {
		for _, a := range args {
			a.Release()
		}
	}()
	for _, argExpr := range expr.args {
		arr, err := e.Evaluate(ctx, argExpr, columns)
		if err != nil {
			return nil, err
		}
		args = append(args, arr)
	}

	switch {
	case strings.HasPrefix(expr.name, "str."):
		return e.stringFunction(expr.name, args)
	case strings.HasPrefix(expr.name, "list."):
		return e.listFunction(expr.name, args)
	}

	in := args[0]
	switch expr.name {
	case FnAbs, FnFloor, FnCeil, FnRound, FnSqrt, FnSin, FnCos, FnTan, FnSinh, FnCosh, FnTanh:
		return e.mathFunction(expr.name, in)
	case FnIsNull, FnIsNotNull:
		want := expr.name == FnIsNull
		out := make([]bool, in.Len())
		for i := range out {
			out[i] = value.IsNullAt(in, i) == want
		}
		return series.BuildArray(out, nil, e.mem)
	case FnIsNan, FnIsNotNan, FnIsFinite, FnIsInfinite:
		return e.floatPredicate(expr.name, in)
	case FnUnique:
		firsts, err := uniqueFirsts(in)
		if err != nil {
			return nil, err
		}
		return series.TakeArray(in, firsts, e.mem)
	case FnReverse:
		indices := make([]int, in.Len())
		for i := range indices {
			indices[i] = in.Len() - 1 - i
		}
		return series.TakeArray(in, indices, e.mem)
	case FnDropNulls:
		return series.TakeArray(in, series.ValidIndices(in), e.mem)
	case FnDropNans:
		isNaN := nanProbe(in)
		if isNaN == nil {
			in.Retain()
			return in, nil
		}
		indices := make([]int, 0, in.Len())
		for i := 0; i < in.Len(); i++ {
			if value.IsNullAt(in, i) || !isNaN(i) {
				indices = append(indices, i)
			}
		}
		return series.TakeArray(in, indices, e.mem)
	case FnImplode:
		return e.Implode(in)
	case FnFlatten:
		return e.flatten(in)
	}
	return nil, errors.NewExecutionError("Function", fmt.Sprintf("unknown function %q", expr.name))
}

func (e *Evaluator) mathFunction(name string, in arrow.Array) (arrow.Array, error) {
	t := typeOf(in)
	switch {
	case t == value.TypeNull:
		in.Retain()
		return in, nil
	case t.IsFloat():
		vals, _ := widen[float64](in)
		f := mathKernel(name)
		for i, v := range vals {
			vals[i] = f(v)
		}
		return buildNumeric(t, vals, validity(in), e.mem)
	case t.IsUnsignedInteger() && (name == FnAbs || name == FnFloor || name == FnCeil || name == FnRound):
		in.Retain()
		return in, nil
	case t.IsSignedInteger() && name == FnAbs:
		vals, _ := widen[int64](in)
		for i, v := range vals {
			if v < 0 {
				vals[i] = -v
			}
		}
		return buildNumeric(t, vals, validity(in), e.mem)
	case t.IsSignedInteger() && (name == FnFloor || name == FnCeil || name == FnRound):
		in.Retain()
		return in, nil
	case t.IsInteger():
		vals, _ := widen[float64](in)
		f := mathKernel(name)
		for i, v := range vals {
			vals[i] = f(v)
		}
		return buildNumeric(value.TypeFloat64, vals, validity(in), e.mem)
	}
	return nil, errors.NewTypeMismatchError(name, "numeric", t.String())
}

func mathKernel(name string) func(float64) float64 {
	switch name {
	case FnAbs:
		return math.Abs
	case FnFloor:
		return math.Floor
	case FnCeil:
		return math.Ceil
	case FnRound:
		return math.Round
	case FnSqrt:
		return math.Sqrt
	case FnSin:
		return math.Sin
	case FnCos:
		return math.Cos
	case FnTan:
		return math.Tan
	case FnSinh:
		return math.Sinh
	case FnCosh:
		return math.Cosh
	default:
		return math.Tanh
	}
}

func (e *Evaluator) floatPredicate(name string, in arrow.Array) (arrow.Array, error) {
	t := typeOf(in)
	if !t.IsNumeric() && t != value.TypeNull {
		return nil, errors.NewTypeMismatchError(name, "numeric", t.String())
	}
	vals, _ := widen[float64](in)
	out := make([]bool, in.Len())
	for i, v := range vals {
		switch name {
		case FnIsNan:
			out[i] = math.IsNaN(v)
		case FnIsNotNan:
			out[i] = !math.IsNaN(v)
		case FnIsFinite:
			out[i] = !math.IsNaN(v) && !math.IsInf(v, 0)
		case FnIsInfinite:
			out[i] = math.IsInf(v, 0)
		}
	}
	return series.BuildArray(out, validity(in), e.mem)
}

// flatten concatenates the elements of every non-null list, or the
// characters of every non-null string.
func (e *Evaluator) flatten(in arrow.Array) (arrow.Array, error) {
	if get, ok := stringGetter(in); ok {
		var chars []string
		for i := 0; i < in.Len(); i++ {
			if in.IsNull(i) {
				continue
			}
			for _, r := range get(i) {
				chars = append(chars, string(r))
			}
		}
		return series.BuildArray(chars, nil, e.mem)
	}

	list, ok := in.(array.ListLike)
	if !ok {
		return nil, errors.NewTypeMismatchError(FnFlatten, "list or str", typeName(in))
	}
	values := list.ListValues()
	indices := make([]int, 0, values.Len())
	for i := 0; i < list.Len(); i++ {
		if list.IsNull(i) {
			continue
		}
		start, end := list.ValueOffsets(i)
		for k := start; k < end; k++ {
			indices = append(indices, int(k))
		}
	}
	return series.TakeArray(values, indices, e.mem)
}

// Implode wraps the whole of in as a single list row.
func (e *Evaluator) Implode(in arrow.Array) (arrow.Array, error) {
	return buildList(in, []int32{0, int32(in.Len())}, nil, e.mem)
}

// uniqueFirsts returns the first row of every distinct value.
func uniqueFirsts(arr arrow.Array) ([]int, error) {
	if arr.Len() == 0 {
		return []int{}, nil
	}
	groups, err := rowkey.Group([]arrow.Array{arr})
	if err != nil {
		return nil, err
	}
	return groups.First(), nil
}
