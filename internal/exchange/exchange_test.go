package exchange_test

import (
	stderrors "errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/exchange"
	"github.com/paveg/polecat/internal/testutil"
	"github.com/paveg/polecat/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRecord(t *testing.T, mem memory.Allocator, fields []arrow.Field) arrow.Record {
	t.Helper()
	b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer b.Release()

	for i, f := range fields {
		switch fb := b.Field(i).(type) {
		case *array.Int64Builder:
			fb.AppendValues([]int64{1, 2}, []bool{true, false})
		case *array.StringBuilder:
			fb.AppendValues([]string{"a", "b"}, nil)
		case *array.LargeStringBuilder:
			fb.AppendValues([]string{"a", "b"}, nil)
		case *array.Date32Builder:
			fb.AppendValues([]arrow.Date32{1, 2}, nil)
		case *array.ListBuilder:
			vb := fb.ValueBuilder().(*array.Int64Builder)
			fb.Append(true)
			vb.AppendValues([]int64{1, 2}, nil)
			fb.Append(true)
			vb.Append(3)
		default:
			t.Fatalf("no test data for field %s", f.Name)
		}
	}
	return b.NewRecord()
}

func TestFromRecord(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("supported types", func(t *testing.T) {
		rec := buildRecord(t, mem, []arrow.Field{
			{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
			{Name: "label", Type: arrow.BinaryTypes.String},
			{Name: "items", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
		})
		df, err := exchange.FromRecord(rec)
		rec.Release()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, []string{"id", "label", "items"}, df.Columns())
		assert.Equal(t, []string{"1", "null"}, testutil.ColumnStrings(t, df, "id"))
		assert.Equal(t, []string{"[1, 2]", "[3]"}, testutil.ColumnStrings(t, df, "items"))
		items, _ := df.Column("items")
		assert.Equal(t, value.TypeList, items.Type())
	})

	errorTests := []struct {
		name     string
		fields   []arrow.Field
		sentinel error
	}{
		{"invalid utf8 name", []arrow.Field{{Name: "bad\xff", Type: arrow.PrimitiveTypes.Int64}}, errors.ErrConstruction},
		{"duplicate names", []arrow.Field{
			{Name: "x", Type: arrow.PrimitiveTypes.Int64},
			{Name: "x", Type: arrow.BinaryTypes.String},
		}, errors.ErrConstruction},
		{"unsupported type", []arrow.Field{{Name: "day", Type: arrow.FixedWidthTypes.Date32}}, errors.ErrType},
		{"large string", []arrow.Field{{Name: "s", Type: arrow.BinaryTypes.LargeString}}, errors.ErrType},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			rec := buildRecord(t, mem, tt.fields)
			defer rec.Release()

			_, err := exchange.FromRecord(rec)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.sentinel))
		})
	}
}

func TestToRecord(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithNulls())
	defer df.Release()

	rec := exchange.ToRecord(df)
	defer rec.Release()

	assert.Equal(t, int64(4), rec.NumRows())
	assert.Equal(t, int64(4), rec.NumCols())
	assert.True(t, rec.Schema().Equal(exchange.Schema(df)))

	back, err := exchange.FromRecord(rec)
	require.NoError(t, err)
	defer back.Release()
	testutil.AssertDataFrameEqual(t, df, back)
}
