// Package polecat is a lazy columnar dataframe engine over Apache Arrow.
// This package is the public API: build Series and DataFrames, describe a
// query with expressions on a LazyFrame, then run it with Collect or Fetch.
package polecat

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
)

// Value is a single nullable cell.
type Value = value.Value

// ValueType is the logical type of a column or value.
type ValueType = value.Type

// Primitive lists the Go payload types a Series can be built from.
type Primitive = value.Primitive

// Logical types.
const (
	TypeNull    = value.TypeNull
	TypeBoolean = value.TypeBoolean
	TypeUInt8   = value.TypeUInt8
	TypeUInt16  = value.TypeUInt16
	TypeUInt32  = value.TypeUInt32
	TypeUInt64  = value.TypeUInt64
	TypeInt8    = value.TypeInt8
	TypeInt16   = value.TypeInt16
	TypeInt32   = value.TypeInt32
	TypeInt64   = value.TypeInt64
	TypeFloat32 = value.TypeFloat32
	TypeFloat64 = value.TypeFloat64
	TypeList    = value.TypeList
	TypeUtf8    = value.TypeUtf8
	TypeStruct  = value.TypeStruct
	TypeBinary  = value.TypeBinary
	TypeUnknown = value.TypeUnknown
)

// ValueAs returns the payload of v as T, or a type error when v holds
// another type or is null.
func ValueAs[T Primitive](v Value) (T, error) {
	return value.As[T](v)
}

// SortOptions controls LazyFrame.Sort.
type SortOptions = dataframe.SortOptions

// Series is a named column of one logical type.
type Series struct {
	s *series.Series
}

// NewSeries creates a Series without nulls.
func NewSeries[T Primitive](name string, values []T, mem memory.Allocator) (*Series, error) {
	s, err := series.New(name, values, mem)
	if err != nil {
		return nil, err
	}
	return &Series{s: s}, nil
}

// NewNullableSeries creates a Series where valid[i] false marks row i null.
// valid must be as long as values.
func NewNullableSeries[T Primitive](name string, values []T, valid []bool, mem memory.Allocator) (*Series, error) {
	s, err := series.NewNullable(name, values, valid, mem)
	if err != nil {
		return nil, err
	}
	return &Series{s: s}, nil
}

// NewNullSeries creates a Series of n nulls.
func NewNullSeries(name string, n int) (*Series, error) {
	s, err := series.NewNulls(name, n)
	if err != nil {
		return nil, err
	}
	return &Series{s: s}, nil
}

// SeriesFromArray wraps arr, retaining it.
func SeriesFromArray(name string, arr arrow.Array) (*Series, error) {
	s, err := series.FromArray(name, arr)
	if err != nil {
		return nil, err
	}
	return &Series{s: s}, nil
}

// SeriesGet returns element i of s as T.
func SeriesGet[T Primitive](s *Series, i int) (T, error) {
	return series.GetAs[T](s.s, i)
}

func (s *Series) Name() string       { return s.s.Name() }
func (s *Series) Len() int           { return s.s.Len() }
func (s *Series) Type() ValueType    { return s.s.Type() }
func (s *Series) NullCount() int     { return s.s.NullCount() }
func (s *Series) IsNull(i int) bool  { return s.s.IsNull(i) }
func (s *Series) String() string     { return s.s.String() }
func (s *Series) Array() arrow.Array { return s.s.Array() }
func (s *Series) Get(i int) (Value, error) {
	return s.s.Get(i)
}

// Rename returns a copy of s with another name.
func (s *Series) Rename(name string) *Series {
	return &Series{s: s.s.Rename(name)}
}

// Release drops this reference to the column data.
func (s *Series) Release() {
	s.s.Release()
}

// DataFrame is an ordered set of equally long, uniquely named Series.
type DataFrame struct {
	df *dataframe.DataFrame
}

// NewDataFrame assembles columns into a frame. The frame holds its own
// references, so the caller still releases the Series it passed.
func NewDataFrame(columns ...*Series) (*DataFrame, error) {
	inner := make([]*series.Series, len(columns))
	for i, c := range columns {
		inner[i] = c.s
	}
	df, err := dataframe.New(inner...)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

func (d *DataFrame) Columns() []string       { return d.df.Columns() }
func (d *DataFrame) Len() int                { return d.df.Len() }
func (d *DataFrame) Width() int              { return d.df.Width() }
func (d *DataFrame) HasColumn(n string) bool { return d.df.HasColumn(n) }
func (d *DataFrame) Schema() *arrow.Schema   { return d.df.Schema() }
func (d *DataFrame) String() string          { return d.df.String() }

// Column returns the named column. The Series shares the frame's data and
// stays valid until the frame is released.
func (d *DataFrame) Column(name string) (*Series, bool) {
	s, ok := d.df.Column(name)
	if !ok {
		return nil, false
	}
	return &Series{s: s}, true
}

// ColumnAt returns the column at position i.
func (d *DataFrame) ColumnAt(i int) (*Series, error) {
	s, err := d.df.ColumnAt(i)
	if err != nil {
		return nil, err
	}
	return &Series{s: s}, nil
}

// Slice returns rows [offset, offset+length).
func (d *DataFrame) Slice(offset, length int) *DataFrame {
	return &DataFrame{df: d.df.Slice(offset, length)}
}

// Head returns the first n rows.
func (d *DataFrame) Head(n int) *DataFrame {
	return &DataFrame{df: d.df.Head(n)}
}

// Clone returns a shallow copy sharing column data.
func (d *DataFrame) Clone() *DataFrame {
	return &DataFrame{df: d.df.Clone()}
}

// Lazy starts a plan reading a snapshot of this frame. The frame may be
// released right away.
func (d *DataFrame) Lazy() *LazyFrame {
	return &LazyFrame{lf: d.df.Lazy()}
}

// Release frees the memory used by the DataFrame.
func (d *DataFrame) Release() {
	d.df.Release()
}

// LazyFrame is a deferred query. Builder methods replace the plan in place
// and return the same handle.
type LazyFrame struct {
	lf *dataframe.LazyFrame
}

// Select evaluates exprs into a new set of columns.
func (lf *LazyFrame) Select(exprs ...Expr) *LazyFrame {
	lf.lf.Select(unwrap(exprs)...)
	return lf
}

// WithColumns adds or replaces columns by output name.
func (lf *LazyFrame) WithColumns(exprs ...Expr) *LazyFrame {
	lf.lf.WithColumns(unwrap(exprs)...)
	return lf
}

// Filter keeps rows where predicate is true.
func (lf *LazyFrame) Filter(predicate Expr) *LazyFrame {
	lf.lf.Filter(predicate.e)
	return lf
}

// Sort orders rows by the given keys.
func (lf *LazyFrame) Sort(by []Expr, opts SortOptions) *LazyFrame {
	lf.lf.Sort(unwrap(by), opts)
	return lf
}

// Limit keeps at most n rows.
func (lf *LazyFrame) Limit(n int) *LazyFrame {
	lf.lf.Limit(n)
	return lf
}

// Slice keeps rows [offset, offset+length).
func (lf *LazyFrame) Slice(offset, length int) *LazyFrame {
	lf.lf.Slice(offset, length)
	return lf
}

// GroupBy starts an aggregation over a snapshot of the current plan.
func (lf *LazyFrame) GroupBy(keys ...Expr) *LazyGroupBy {
	return &LazyGroupBy{gb: lf.lf.GroupBy(unwrap(keys)...)}
}

// JoinInner equi-joins other on pairwise keys.
func (lf *LazyFrame) JoinInner(other *LazyFrame, leftOn, rightOn []Expr) *LazyFrame {
	return &LazyFrame{lf: lf.lf.JoinInner(other.lf, unwrap(leftOn), unwrap(rightOn))}
}

// Clone copies the handle. The plan itself is shared.
func (lf *LazyFrame) Clone() *LazyFrame {
	return &LazyFrame{lf: lf.lf.Clone()}
}

// Collect runs the plan.
func (lf *LazyFrame) Collect(ctx context.Context) (*DataFrame, error) {
	df, err := lf.lf.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// Fetch runs the plan keeping at most n rows, reading as little input as
// the plan allows.
func (lf *LazyFrame) Fetch(ctx context.Context, n int) (*DataFrame, error) {
	df, err := lf.lf.Fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// Schema resolves the output schema without reading rows.
func (lf *LazyFrame) Schema(ctx context.Context) (*arrow.Schema, error) {
	return lf.lf.Schema(ctx)
}

// Explain renders the plan as an indented tree.
func (lf *LazyFrame) Explain() string {
	return lf.lf.Explain()
}

// ExplainOptimized renders the plan after optimization.
func (lf *LazyFrame) ExplainOptimized() string {
	return lf.lf.ExplainOptimized()
}

// ExplainJSON renders the optimized plan as JSON.
func (lf *LazyFrame) ExplainJSON() ([]byte, error) {
	return lf.lf.ExplainJSON()
}

func (lf *LazyFrame) String() string {
	return lf.lf.String()
}

// Concat stacks frames vertically. A schema mismatch is reported here,
// before any row is read.
func Concat(ctx context.Context, frames ...*LazyFrame) (*LazyFrame, error) {
	inner := make([]*dataframe.LazyFrame, len(frames))
	for i, f := range frames {
		inner[i] = f.lf
	}
	lf, err := dataframe.Concat(ctx, inner...)
	if err != nil {
		return nil, err
	}
	return &LazyFrame{lf: lf}, nil
}

// LazyGroupBy is a pending aggregation.
type LazyGroupBy struct {
	gb *dataframe.LazyGroupBy
}

// Agg aggregates each group. Expressions that do not reduce produce a list
// per group.
func (g *LazyGroupBy) Agg(aggs ...Expr) *LazyFrame {
	return &LazyFrame{lf: g.gb.Agg(unwrap(aggs)...)}
}

func unwrap(exprs []Expr) []expr.Expr {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.e
	}
	return out
}
