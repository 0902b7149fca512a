// Package series provides the named, nullable column type of the engine.
package series

import (
	"fmt"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/value"
)

// Series represents a named data column with Apache Arrow backend
type Series struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values
func New[T value.Primitive](name string, values []T, mem memory.Allocator) (*Series, error) {
	return NewNullable(name, values, nil, mem)
}

// NewNullable creates a Series where valid[i] == false marks slot i as null.
func NewNullable[T value.Primitive](name string, values []T, valid []bool, mem memory.Allocator) (*Series, error) {
	if !utf8.ValidString(name) {
		return nil, errors.NewInvalidEncodingError("NewSeries", "series name")
	}
	arr, err := BuildArray(values, valid, mem)
	if err != nil {
		return nil, err
	}
	return &Series{name: name, array: arr}, nil
}

// FromArray wraps an existing array. The Series takes its own reference.
func FromArray(name string, arr arrow.Array) (*Series, error) {
	if !utf8.ValidString(name) {
		return nil, errors.NewInvalidEncodingError("NewSeries", "series name")
	}
	arr.Retain()
	return &Series{name: name, array: arr}, nil
}

// Wrap adopts arr without retaining it. Used internally when the caller
// already owns a fresh reference and the name is known to be valid.
func Wrap(name string, arr arrow.Array) *Series {
	return &Series{name: name, array: arr}
}

// NewNulls creates a Series of n untyped nulls.
func NewNulls(name string, n int) (*Series, error) {
	if !utf8.ValidString(name) {
		return nil, errors.NewInvalidEncodingError("NewSeries", "series name")
	}
	return &Series{name: name, array: array.NewNull(n)}, nil
}

// Name returns the column name
func (s *Series) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series) Len() int {
	return s.array.Len()
}

// Type returns the logical type of the column
func (s *Series) Type() value.Type {
	return value.FromArrow(s.array.DataType())
}

// DataType returns the Arrow data type
func (s *Series) DataType() arrow.DataType {
	return s.array.DataType()
}

// NullCount returns the number of null slots
func (s *Series) NullCount() int {
	return s.array.NullN()
}

// IsNull reports whether slot i is null. Out-of-range indices are not null.
func (s *Series) IsNull(index int) bool {
	if index < 0 || index >= s.array.Len() {
		return false
	}
	return value.IsNullAt(s.array, index)
}

// Get returns slot i as a Value
func (s *Series) Get(index int) (value.Value, error) {
	if index < 0 || index >= s.array.Len() {
		return value.Value{}, errors.NewIndexOutOfRangeError("Series.Get", index, s.array.Len())
	}
	return value.FromArray(s.array, index), nil
}

// GetAs returns slot i read as T, failing on type mismatch or null.
func GetAs[T value.Primitive](s *Series, index int) (T, error) {
	v, err := s.Get(index)
	if err != nil {
		var zero T
		return zero, err
	}
	return value.As[T](v)
}

// GetAsString renders slot i for display
func (s *Series) GetAsString(index int) string {
	if index < 0 || index >= s.array.Len() {
		return ""
	}
	v := value.FromArray(s.array, index)
	if v.IsNull() {
		return "null"
	}
	if str, ok := v.Interface().(string); ok {
		return str
	}
	return v.String()
}

// Rename returns a Series sharing this column's data under a new name
func (s *Series) Rename(name string) *Series {
	s.array.Retain()
	return &Series{name: name, array: s.array}
}

// Slice returns rows [offset, offset+length) sharing the underlying buffers
func (s *Series) Slice(offset, length int) *Series {
	n := s.array.Len()
	if offset > n {
		offset = n
	}
	end := offset + length
	if end > n {
		end = n
	}
	return &Series{name: s.name, array: array.NewSlice(s.array, int64(offset), int64(end))}
}

// String returns a string representation
func (s *Series) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", s.Type(), s.name, s.Len())
}

// Array returns the underlying Arrow array. The caller owns the returned reference.
func (s *Series) Array() arrow.Array {
	s.array.Retain()
	return s.array
}

// Borrow returns the underlying Arrow array without taking a reference.
func (s *Series) Borrow() arrow.Array {
	return s.array
}

// Release releases the memory held by the series
func (s *Series) Release() {
	if s.array != nil {
		s.array.Release()
	}
}
