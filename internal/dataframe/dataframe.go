// Package dataframe provides the DataFrame table type, the lazy query plan
// built over it and the executor that evaluates that plan.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/validation"
)

// DataFrame represents a table of equal-length, uniquely named columns
type DataFrame struct {
	columns []*series.Series
	index   map[string]int
}

// New creates a DataFrame from columns. Each Series is retained by the frame;
// the caller keeps and releases its own reference. On failure nothing is
// retained.
func New(columns ...*series.Series) (*DataFrame, error) {
	named := make([]validation.NamedColumn, len(columns))
	for i, s := range columns {
		if s == nil {
			return nil, errors.NewConstructionError("NewDataFrame", fmt.Sprintf("column %d is nil", i))
		}
		named[i] = s
	}
	if err := validation.ValidateFrameShape("NewDataFrame", named...); err != nil {
		return nil, err
	}

	owned := make([]*series.Series, len(columns))
	for i, s := range columns {
		owned[i] = s.Rename(s.Name())
	}
	return newOwned(owned), nil
}

// newOwned adopts columns without retaining them. The caller has already
// checked the shape.
func newOwned(columns []*series.Series) *DataFrame {
	index := make(map[string]int, len(columns))
	for i, s := range columns {
		index[s.Name()] = i
	}
	return &DataFrame{columns: columns, index: index}
}

// fromArrays adopts one fresh array reference per name.
func fromArrays(names []string, arrays []arrow.Array) (*DataFrame, error) {
	cols := make([]*series.Series, len(arrays))
	named := make([]validation.NamedColumn, len(arrays))
	for i, arr := range arrays {
		cols[i] = series.Wrap(names[i], arr)
		named[i] = cols[i]
	}
	if err := validation.ValidateFrameShape("DataFrame", named...); err != nil {
		releaseSeries(cols)
		return nil, err
	}
	return newOwned(cols), nil
}

// FromArrays creates a frame with one column per array. The arrays are
// retained; the caller keeps its own references.
func FromArrays(names []string, arrays []arrow.Array) (*DataFrame, error) {
	if len(names) != len(arrays) {
		return nil, errors.NewConstructionError("FromArrays",
			fmt.Sprintf("%d names for %d arrays", len(names), len(arrays)))
	}
	for _, arr := range arrays {
		arr.Retain()
	}
	return fromArrays(names, arrays)
}

// Empty returns a frame with no columns.
func Empty() *DataFrame {
	return newOwned(nil)
}

// EmptyFromSchema returns a zero-row frame with the fields of schema.
func EmptyFromSchema(schema *arrow.Schema, mem memory.Allocator) (*DataFrame, error) {
	names := make([]string, schema.NumFields())
	arrays := make([]arrow.Array, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
		arrays[i] = series.EmptyArray(f.Type, mem)
	}
	return fromArrays(names, arrays)
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	names := make([]string, len(df.columns))
	for i, s := range df.columns {
		names[i] = s.Name()
	}
	return names
}

// Series returns the columns in order. The frame keeps ownership.
func (df *DataFrame) Series() []*series.Series {
	return append([]*series.Series(nil), df.columns...)
}

// Len returns the number of rows
func (df *DataFrame) Len() int {
	if len(df.columns) == 0 {
		return 0
	}
	return df.columns[0].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (*series.Series, bool) {
	i, ok := df.index[name]
	if !ok {
		return nil, false
	}
	return df.columns[i], true
}

// ColumnAt returns the i-th column
func (df *DataFrame) ColumnAt(i int) (*series.Series, error) {
	if i < 0 || i >= len(df.columns) {
		return nil, errors.NewIndexOutOfRangeError("ColumnAt", i, len(df.columns))
	}
	return df.columns[i], nil
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, ok := df.index[name]
	return ok
}

// Schema returns the Arrow schema of the frame
func (df *DataFrame) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(df.columns))
	for i, s := range df.columns {
		fields[i] = arrow.Field{Name: s.Name(), Type: s.DataType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Slice returns rows [offset, offset+length) sharing the underlying buffers
func (df *DataFrame) Slice(offset, length int) *DataFrame {
	if offset < 0 {
		offset = 0
	}
	if length < 0 {
		length = 0
	}
	cols := make([]*series.Series, len(df.columns))
	for i, s := range df.columns {
		cols[i] = s.Slice(offset, length)
	}
	return newOwned(cols)
}

// Head returns the first n rows
func (df *DataFrame) Head(n int) *DataFrame {
	return df.Slice(0, n)
}

// Clone returns a frame sharing this frame's columns
func (df *DataFrame) Clone() *DataFrame {
	cols := make([]*series.Series, len(df.columns))
	for i, s := range df.columns {
		cols[i] = s.Rename(s.Name())
	}
	return newOwned(cols)
}

// Take gathers rows by position into a new frame. -1 yields a null row.
func (df *DataFrame) Take(indices []int, mem memory.Allocator) (*DataFrame, error) {
	cols := make([]*series.Series, 0, len(df.columns))
	for _, s := range df.columns {
		arr, err := series.TakeArray(s.Borrow(), indices, mem)
		if err != nil {
			releaseSeries(cols)
			return nil, fmt.Errorf("taking column %s: %w", s.Name(), err)
		}
		cols = append(cols, series.Wrap(s.Name(), arr))
	}
	return newOwned(cols), nil
}

// Lazy wraps a clone of the frame in a lazy plan. The caller may release df
// right away; the plan drops its clone once no plan can reach it.
func (df *DataFrame) Lazy() *LazyFrame {
	return newLazyFrame(newDataFrameScan(df.Clone()))
}

// arrays maps column names to borrowed arrays for expression evaluation
func (df *DataFrame) arrays() map[string]arrow.Array {
	out := make(map[string]arrow.Array, len(df.columns))
	for _, s := range df.columns {
		out[s.Name()] = s.Borrow()
	}
	return out
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, s := range df.columns {
		parts = append(parts, fmt.Sprintf("  %s: %s", s.Name(), s.Type()))
	}
	return strings.Join(parts, "\n")
}

// Release releases all columns
func (df *DataFrame) Release() {
	releaseSeries(df.columns)
	df.columns = nil
	df.index = nil
}

func releaseSeries(cols []*series.Series) {
	for _, s := range cols {
		s.Release()
	}
}

func releaseArrays(arrs []arrow.Array) {
	for _, a := range arrs {
		if a != nil {
			a.Release()
		}
	}
}
