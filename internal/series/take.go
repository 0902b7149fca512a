package series

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/value"
)

// TakeArray gathers arr[indices[k]] for every k. An index of -1 yields null.
func TakeArray(arr arrow.Array, indices []int, mem memory.Allocator) (arrow.Array, error) {
	n := arr.Len()
	for _, idx := range indices {
		if idx >= n || idx < -1 {
			return nil, errors.NewIndexOutOfRangeError("Take", idx, n)
		}
	}

	switch a := arr.(type) {
	case *array.Null:
		return array.NewNull(len(indices)), nil
	case *array.Boolean:
		return gather(arr, indices, a.Value, mem)
	case *array.Uint8:
		return gather(arr, indices, a.Value, mem)
	case *array.Uint16:
		return gather(arr, indices, a.Value, mem)
	case *array.Uint32:
		return gather(arr, indices, a.Value, mem)
	case *array.Uint64:
		return gather(arr, indices, a.Value, mem)
	case *array.Int8:
		return gather(arr, indices, a.Value, mem)
	case *array.Int16:
		return gather(arr, indices, a.Value, mem)
	case *array.Int32:
		return gather(arr, indices, a.Value, mem)
	case *array.Int64:
		return gather(arr, indices, a.Value, mem)
	case *array.Float32:
		return gather(arr, indices, a.Value, mem)
	case *array.Float64:
		return gather(arr, indices, a.Value, mem)
	case *array.String:
		return gather(arr, indices, a.Value, mem)
	case *array.Binary:
		if arrow.TypeEqual(a.DataType(), arrow.BinaryTypes.Binary) {
			return gather(arr, indices, a.Value, mem)
		}
	}
	return takeBySlices(arr, indices, mem)
}

func gather[T value.Primitive](arr arrow.Array, indices []int, get func(int) T, mem memory.Allocator) (arrow.Array, error) {
	out := make([]T, len(indices))
	valid := make([]bool, len(indices))
	for k, idx := range indices {
		if idx >= 0 && arr.IsValid(idx) {
			out[k] = get(idx)
			valid[k] = true
		}
	}
	return BuildArray(out, valid, mem)
}

// takeBySlices handles nested and less common types by concatenating
// contiguous runs of the source.
func takeBySlices(arr arrow.Array, indices []int, mem memory.Allocator) (arrow.Array, error) {
	if len(indices) == 0 {
		return array.NewSlice(arr, 0, 0), nil
	}

	var parts []arrow.Array
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()

	for i := 0; i < len(indices); {
		j := i + 1
		if indices[i] < 0 {
			for j < len(indices) && indices[j] < 0 {
				j++
			}
			parts = append(parts, NullArray(arr.DataType(), j-i, mem))
		} else {
			for j < len(indices) && indices[j] == indices[j-1]+1 {
				j++
			}
			start := int64(indices[i])
			parts = append(parts, array.NewSlice(arr, start, start+int64(j-i)))
		}
		i = j
	}

	if len(parts) == 1 {
		parts[0].Retain()
		return parts[0], nil
	}
	return array.Concatenate(parts, mem)
}

// ValidIndices returns the positions of non-null slots.
func ValidIndices(arr arrow.Array) []int {
	out := make([]int, 0, arr.Len()-arr.NullN())
	for i := 0; i < arr.Len(); i++ {
		if !value.IsNullAt(arr, i) {
			out = append(out, i)
		}
	}
	return out
}

// TrueIndices returns the positions where a boolean mask is true; null and
// false are both skipped.
func TrueIndices(mask *array.Boolean) []int {
	out := make([]int, 0, mask.Len())
	for i := 0; i < mask.Len(); i++ {
		if mask.IsValid(i) && mask.Value(i) {
			out = append(out, i)
		}
	}
	return out
}

// Broadcast repeats a length-1 array n times.
func Broadcast(arr arrow.Array, n int, mem memory.Allocator) (arrow.Array, error) {
	indices := make([]int, n)
	return TakeArray(arr, indices, mem)
}
