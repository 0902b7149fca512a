package expr

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
)

var listReducers = map[string]AggregationType{
	FnListMax:    AggMax,
	FnListMin:    AggMin,
	FnListSum:    AggSum,
	FnListMean:   AggMean,
	FnListArgMin: AggArgMin,
	FnListArgMax: AggArgMax,
}

func (e *Evaluator) listFunction(name string, args []arrow.Array) (arrow.Array, error) {
	list, ok := args[0].(array.ListLike)
	if !ok {
		return nil, errors.NewTypeMismatchError(name, "list", typeName(args[0]))
	}

	if agg, ok := listReducers[name]; ok {
		return e.reduceLists(list, agg)
	}

	var arg arrow.Array
	switch name {
	case FnListGet, FnListHead, FnListTail, FnListContains:
		if len(args) < 2 {
			return nil, errors.NewExecutionError(name, "an argument is required")
		}
		arg = args[1]
		if _, err := resultLength(name, list.Len(), arg.Len()); err != nil {
			return nil, err
		}
	}

	switch name {
	case FnListLengths:
		out := make([]uint32, list.Len())
		for i := range out {
			start, end := list.ValueOffsets(i)
			out[i] = uint32(end - start)
		}
		return series.BuildArray(out, validity(list), e.mem)
	case FnListFirst:
		return e.listGet(list, func(int) (int64, bool) { return 0, true })
	case FnListLast:
		return e.listGet(list, func(int) (int64, bool) { return -1, true })
	case FnListGet:
		idx, err := e.integerArg(name, arg)
		if err != nil {
			return nil, err
		}
		return e.listGet(list, idx)
	case FnListHead, FnListTail:
		count, err := e.integerArg(name, arg)
		if err != nil {
			return nil, err
		}
		head := name == FnListHead
		return e.transformLists(list, func(row, length int) ([]int, bool) {
			k, ok := count(row)
			if !ok {
				return nil, false
			}
			take := min(max(int(k), 0), length)
			out := make([]int, take)
			for j := range out {
				if head {
					out[j] = j
				} else {
					out[j] = length - take + j
				}
			}
			return out, true
		})
	case FnListReverse:
		return e.transformLists(list, func(_, length int) ([]int, bool) {
			out := make([]int, length)
			for j := range out {
				out[j] = length - 1 - j
			}
			return out, true
		})
	case FnListUnique:
		return e.uniqueLists(list)
	case FnListContains:
		return e.listContains(list, arg)
	}
	return nil, errors.NewExecutionError("Function", fmt.Sprintf("unknown function %q", name))
}

// integerArg exposes a broadcastable integer argument per row.
func (e *Evaluator) integerArg(op string, arg arrow.Array) (func(int) (int64, bool), error) {
	t := typeOf(arg)
	if !t.IsInteger() {
		return nil, errors.NewTypeMismatchError(op, "integer", t.String())
	}
	vals, err := widen[int64](arg)
	if err != nil {
		return nil, err
	}
	return func(row int) (int64, bool) {
		i := at(arg, row)
		return vals[i], !value.IsNullAt(arg, i)
	}, nil
}

// listGet picks one element per row. Negative positions count from the end;
// anything out of range is null.
func (e *Evaluator) listGet(list array.ListLike, pos func(int) (int64, bool)) (arrow.Array, error) {
	indices := make([]int, list.Len())
	for i := range indices {
		indices[i] = -1
		k, ok := pos(i)
		if !ok || list.IsNull(i) {
			continue
		}
		start, end := list.ValueOffsets(i)
		if k < 0 {
			k += end - start
		}
		if k >= 0 && start+k < end {
			indices[i] = int(start + k)
		}
	}
	return series.TakeArray(list.ListValues(), indices, e.mem)
}

func (e *Evaluator) reduceLists(list array.ListLike, agg AggregationType) (arrow.Array, error) {
	values := list.ListValues()
	parts := make([]arrow.Array, list.Len())
	defer func() {
		for _, p := range parts {
			if p != nil {
				p.Release()
			}
		}
	}()

	var dt arrow.DataType
	for i := range parts {
		if list.IsNull(i) {
			continue
		}
		start, end := list.ValueOffsets(i)
		sub := array.NewSlice(values, start, end)
		out, err := e.Reduce(agg, sub)
		sub.Release()
		if err != nil {
			return nil, err
		}
		parts[i] = out
		dt = out.DataType()
	}
	if dt == nil {
		empty := array.NewSlice(values, 0, 0)
		probe, err := e.Reduce(agg, empty)
		empty.Release()
		if err != nil {
			return nil, err
		}
		dt = probe.DataType()
		probe.Release()
	}
	if len(parts) == 0 {
		return series.EmptyArray(dt, e.mem), nil
	}
	for i, p := range parts {
		if p == nil {
			parts[i] = series.NullArray(dt, 1, e.mem)
		}
	}
	return array.Concatenate(parts, e.mem)
}

// transformLists rebuilds every non-null list from positions picked out of
// its own elements. A row whose pick reports false becomes null.
func (e *Evaluator) transformLists(list array.ListLike, pick func(row, length int) ([]int, bool)) (arrow.Array, error) {
	n := list.Len()
	offsets := make([]int32, n+1)
	valid := make([]bool, n)
	var indices []int
	for i := 0; i < n; i++ {
		offsets[i+1] = offsets[i]
		if list.IsNull(i) {
			continue
		}
		start, end := list.ValueOffsets(i)
		positions, ok := pick(i, int(end-start))
		if !ok {
			continue
		}
		valid[i] = true
		for _, p := range positions {
			indices = append(indices, int(start)+p)
		}
		offsets[i+1] += int32(len(positions))
	}
	values, err := series.TakeArray(list.ListValues(), indices, e.mem)
	if err != nil {
		return nil, err
	}
	defer values.Release()
	return buildList(values, offsets, valid, e.mem)
}

func (e *Evaluator) uniqueLists(list array.ListLike) (arrow.Array, error) {
	values := list.ListValues()
	var failure error
	out, err := e.transformLists(list, func(row, length int) ([]int, bool) {
		start, _ := list.ValueOffsets(row)
		sub := array.NewSlice(values, start, start+int64(length))
		defer sub.Release()
		firsts, err := uniqueFirsts(sub)
		if err != nil && failure == nil {
			failure = err
		}
		return firsts, true
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		out.Release()
		return nil, failure
	}
	return out, nil
}

func (e *Evaluator) listContains(list array.ListLike, item arrow.Array) (arrow.Array, error) {
	values := list.ListValues()
	n := list.Len()
	out := make([]bool, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		ii := at(item, i)
		if value.IsNullAt(list, i) || value.IsNullAt(item, ii) {
			continue
		}
		start, end := list.ValueOffsets(i)
		sub := array.NewSlice(values, start, end)
		needle := array.NewSlice(item, int64(ii), int64(ii)+1)
		eq, err := e.ApplyBinary(OpEq, sub, needle)
		sub.Release()
		needle.Release()
		if err != nil {
			return nil, err
		}
		valid[i] = true
		mask, ok := eq.(*array.Boolean)
		for k := 0; ok && k < mask.Len(); k++ {
			if mask.IsValid(k) && mask.Value(k) {
				out[i] = true
				break
			}
		}
		eq.Release()
	}
	return series.BuildArray(out, valid, e.mem)
}

// buildList assembles a list array over values. valid may be nil.
func buildList(values arrow.Array, offsets []int32, valid []bool, mem memory.Allocator) (arrow.Array, error) {
	if values.Data().Offset() != 0 {
		normalized, err := array.Concatenate([]arrow.Array{values}, mem)
		if err != nil {
			return nil, err
		}
		defer normalized.Release()
		values = normalized
	}

	n := len(offsets) - 1
	var bitmap *memory.Buffer
	nulls := 0
	if valid != nil {
		bits := make([]byte, bitutil.BytesForBits(int64(n)))
		for i, ok := range valid {
			if ok {
				bitutil.SetBit(bits, i)
			} else {
				nulls++
			}
		}
		if nulls > 0 {
			bitmap = memory.NewBufferBytes(bits)
		}
	}

	data := array.NewData(
		arrow.ListOf(values.DataType()), n,
		[]*memory.Buffer{bitmap, memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offsets))},
		[]arrow.ArrayData{values.Data()},
		nulls, 0,
	)
	defer data.Release()
	return array.NewListData(data), nil
}
