package value_test

import (
	stderrors "errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeFromArrow(t *testing.T) {
	tests := []struct {
		dt   arrow.DataType
		want value.Type
	}{
		{arrow.Null, value.TypeNull},
		{arrow.FixedWidthTypes.Boolean, value.TypeBoolean},
		{arrow.PrimitiveTypes.Uint32, value.TypeUInt32},
		{arrow.PrimitiveTypes.Int8, value.TypeInt8},
		{arrow.PrimitiveTypes.Float64, value.TypeFloat64},
		{arrow.BinaryTypes.String, value.TypeUtf8},
		{arrow.BinaryTypes.LargeString, value.TypeUtf8},
		{arrow.BinaryTypes.Binary, value.TypeBinary},
		{arrow.ListOf(arrow.PrimitiveTypes.Int64), value.TypeList},
		{arrow.StructOf(arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int64}), value.TypeStruct},
		{arrow.FixedWidthTypes.Date32, value.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, value.FromArrow(tt.dt))
		})
	}
}

func TestTypeArrowRoundTrip(t *testing.T) {
	for ty := value.TypeNull; ty <= value.TypeUnknown; ty++ {
		dt, ok := ty.ArrowType()
		if !ok {
			assert.Contains(t, []value.Type{value.TypeList, value.TypeStruct, value.TypeUnknown}, ty)
			continue
		}
		assert.Equal(t, ty, value.FromArrow(dt), ty.String())
	}
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, value.TypeInt16.IsSignedInteger())
	assert.False(t, value.TypeUInt16.IsSignedInteger())
	assert.True(t, value.TypeUInt64.IsInteger())
	assert.True(t, value.TypeFloat32.IsNumeric())
	assert.False(t, value.TypeUtf8.IsNumeric())
	assert.False(t, value.TypeBoolean.IsNumeric())
	assert.Equal(t, "u32", value.TypeUInt32.String())
	assert.Equal(t, "unknown", value.Type(99).String())
}

func TestAs(t *testing.T) {
	v := value.Of(int32(7))

	got, err := value.As[int32](v)
	require.NoError(t, err)
	assert.Equal(t, int32(7), got)
	assert.Equal(t, value.TypeInt32, v.Type())

	_, err = value.As[int64](v)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrType))
	assert.Contains(t, err.Error(), "expected i64, got i32")

	f := value.Of(2.5)
	_, err = value.As[int32](f)
	assert.True(t, stderrors.Is(err, errors.ErrType))
}

func TestNullValue(t *testing.T) {
	n := value.NullOf(value.TypeFloat64)

	assert.True(t, n.IsNull())
	assert.Equal(t, value.TypeNull, n.Type())
	assert.Equal(t, value.TypeFloat64, n.DeclaredType())
	assert.Nil(t, n.Interface())
	assert.Equal(t, "null", n.String())

	_, err := value.As[float64](n)
	assert.True(t, stderrors.Is(err, errors.ErrType))
	_, err = n.List()
	assert.Error(t, err)
	_, err = n.Struct()
	assert.Error(t, err)

	var zero value.Value
	assert.True(t, zero.IsNull())
	assert.Equal(t, value.TypeNull, value.Null().DeclaredType())
}

func TestFromArrayPrimitives(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues([]string{"a", ""}, []bool{true, false})
	arr := b.NewArray()
	defer arr.Release()

	first := value.FromArray(arr, 0)
	s, err := value.As[string](first)
	require.NoError(t, err)
	assert.Equal(t, "a", s)
	assert.Equal(t, `"a"`, first.String())

	second := value.FromArray(arr, 1)
	assert.True(t, second.IsNull())
	assert.Equal(t, value.TypeUtf8, second.DeclaredType())
}

func TestListView(t *testing.T) {
	mem := memory.NewGoAllocator()
	lb := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int64)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Int64Builder)

	lb.Append(true)
	vb.AppendValues([]int64{1, 2, 3}, nil)
	lb.Append(true)
	lb.AppendNull()

	arr := lb.NewArray()
	defer arr.Release()

	full, err := value.FromArray(arr, 0).List()
	require.NoError(t, err)
	assert.Equal(t, 3, full.Len())
	assert.Equal(t, value.TypeInt64, full.ElementType())
	elem, err := full.Get(2)
	require.NoError(t, err)
	got, err := value.As[int64](elem)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
	_, err = full.Get(3)
	assert.Error(t, err)
	assert.Equal(t, "[1, 2, 3]", value.FromArray(arr, 0).String())

	empty, err := value.FromArray(arr, 1).List()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, value.TypeUnknown, empty.ElementType())

	assert.True(t, value.FromArray(arr, 2).IsNull())
}

func TestListViewBorrowsColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	lb := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int64)
	defer lb.Release()
	vb := lb.ValueBuilder().(*array.Int64Builder)
	lb.Append(true)
	vb.AppendValues([]int64{1, 2, 3}, nil)
	lb.Append(true)
	vb.AppendValues([]int64{4, 5}, nil)

	arr := lb.NewArray()
	defer arr.Release()

	second, err := value.FromArray(arr, 1).List()
	require.NoError(t, err)
	assert.Equal(t, 2, second.Len())
	elem, err := second.Get(1)
	require.NoError(t, err)
	got, err := value.As[int64](elem)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, "[4, 5]", value.FromArray(arr, 1).String())
}

func TestStructView(t *testing.T) {
	mem := memory.NewGoAllocator()
	dt := arrow.StructOf(
		arrow.Field{Name: "id", Type: arrow.PrimitiveTypes.Int32},
		arrow.Field{Name: "tag", Type: arrow.BinaryTypes.String, Nullable: true},
	)
	sb := array.NewStructBuilder(mem, dt)
	defer sb.Release()
	ib := sb.FieldBuilder(0).(*array.Int32Builder)
	tb := sb.FieldBuilder(1).(*array.StringBuilder)

	sb.Append(true)
	ib.Append(1)
	tb.Append("x")
	sb.Append(true)
	ib.Append(2)
	tb.AppendNull()

	arr := sb.NewArray()
	defer arr.Release()

	row, err := value.FromArray(arr, 1).Struct()
	require.NoError(t, err)
	assert.Equal(t, 2, row.NumFields())
	assert.Equal(t, []string{"id", "tag"}, row.FieldNames())

	id, err := row.Field("id")
	require.NoError(t, err)
	got, err := value.As[int32](id)
	require.NoError(t, err)
	assert.Equal(t, int32(2), got)

	tag, err := row.FieldAt(1)
	require.NoError(t, err)
	assert.True(t, tag.IsNull())

	_, err = row.Field("missing")
	assert.True(t, stderrors.Is(err, errors.ErrSchema))
	_, err = row.FieldAt(5)
	assert.Error(t, err)

	assert.Equal(t, `{id: 1, tag: "x"}`, value.FromArray(arr, 0).String())
}
