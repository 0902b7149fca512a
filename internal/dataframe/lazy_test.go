package dataframe_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"runtime"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/monitoring"
	"github.com/paveg/polecat/internal/testutil"
	"github.com/paveg/polecat/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, lf *dataframe.LazyFrame) *dataframe.DataFrame {
	t.Helper()
	df, err := lf.Collect(context.Background())
	require.NoError(t, err)
	return df
}

func TestLazyFrameSelect(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.NewFrame(t,
		testutil.Column(t, "a", []int64{1, 2, 3}, mem),
		testutil.Column(t, "b", []string{"x", "y", "z"}, mem),
	)
	defer df.Release()

	t.Run("projection and order", func(t *testing.T) {
		result := collect(t, df.Lazy().Select(
			expr.Col("b"),
			expr.Alias(expr.Binary(expr.OpMul, expr.Col("a"), expr.Lit(2)), "doubled"),
		))
		defer result.Release()

		assert.Equal(t, []string{"b", "doubled"}, result.Columns())
		assert.Equal(t, []string{"2", "4", "6"}, testutil.ColumnStrings(t, result, "doubled"))
	})

	t.Run("aggregate broadcasts against a column", func(t *testing.T) {
		result := collect(t, df.Lazy().Select(expr.Col("a"), expr.Alias(expr.Sum(expr.Col("a")), "total")))
		defer result.Release()

		assert.Equal(t, 3, result.Len())
		assert.Equal(t, []string{"6", "6", "6"}, testutil.ColumnStrings(t, result, "total"))
	})

	t.Run("only aggregates give one row", func(t *testing.T) {
		result := collect(t, df.Lazy().Select(expr.Sum(expr.Col("a")), expr.Alias(expr.Max(expr.Col("a")), "max")))
		defer result.Release()

		assert.Equal(t, 1, result.Len())
		assert.Equal(t, []string{"3"}, testutil.ColumnStrings(t, result, "max"))
	})

	t.Run("duplicate output names", func(t *testing.T) {
		_, err := df.Lazy().Select(expr.Col("a"), expr.Col("a")).Collect(context.Background())
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrSchema))
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := df.Lazy().Select(expr.Col("nope")).Collect(context.Background())
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrSchema))
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("mismatched heights", func(t *testing.T) {
		sparse := testutil.NewFrame(t,
			testutil.Column(t, "a", []int64{1, 2, 3}, mem),
			testutil.NullableColumn(t, "n", []int64{1, 0, 3}, []bool{true, false, true}, mem),
		)
		defer sparse.Release()

		_, err := sparse.Lazy().Select(
			expr.Col("a"),
			expr.Function(expr.FnDropNulls, expr.Col("n")),
		).Collect(context.Background())
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrExecution))
	})
}

func TestLazyFrameWithColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem)
	defer df.Release()

	result := collect(t, df.Lazy().WithColumns(
		expr.Binary(expr.OpAdd, expr.Col("age"), expr.Lit(1)),
		expr.Alias(expr.Lit("x"), "tag"),
	))
	defer result.Release()

	assert.Equal(t, []string{"name", "age", "department", "salary", "tag"}, result.Columns())
	assert.Equal(t, []string{"26", "31", "36", "29"}, testutil.ColumnStrings(t, result, "age"))
	assert.Equal(t, []string{"x", "x", "x", "x"}, testutil.ColumnStrings(t, result, "tag"))
}

func TestLazyFrameFilter(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithNulls())
	defer df.Release()

	tests := []struct {
		name      string
		predicate expr.Expr
		want      []string
	}{
		{"comparison", expr.Binary(expr.OpGt, expr.Col("age"), expr.Lit(28)), []string{"Bob", "Charlie"}},
		{"null rows are dropped", expr.Binary(expr.OpGt, expr.Col("salary"), expr.Lit(0)), []string{"Alice", "Bob", "David"}},
		{"conjunction", expr.Binary(expr.OpAnd,
			expr.Binary(expr.OpEq, expr.Col("department"), expr.Lit("Engineering")),
			expr.Binary(expr.OpLt, expr.Col("age"), expr.Lit(30)),
		), []string{"Alice"}},
		{"literal true keeps all", expr.Lit(true), []string{"Alice", "Bob", "Charlie", "David"}},
		{"literal false keeps none", expr.Lit(false), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := collect(t, df.Lazy().Filter(tt.predicate))
			defer result.Release()

			assert.Equal(t, df.Columns(), result.Columns())
			assert.Equal(t, tt.want, testutil.ColumnStrings(t, result, "name"))
		})
	}

	t.Run("non boolean predicate", func(t *testing.T) {
		_, err := df.Lazy().Filter(expr.Col("age")).Collect(context.Background())
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrType))
	})
}

func TestLazyFrameCollectIsRepeatable(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem)
	defer df.Release()

	lf := df.Lazy().
		Filter(expr.Binary(expr.OpGe, expr.Col("age"), expr.Lit(28))).
		Select(expr.Col("name"), expr.Col("salary"))

	first := collect(t, lf)
	defer first.Release()
	second := collect(t, lf)
	defer second.Release()

	testutil.AssertDataFrameEqual(t, first, second)
	assert.Equal(t, 3, first.Len())
}

func TestLazyFrameSnapshotsSource(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	lf := df.Lazy()
	df.Release()

	result := collect(t, lf)
	defer result.Release()
	assert.Equal(t, []string{"Alice", "Bob"}, testutil.ColumnStrings(t, result, "name"))
}

func TestLazyFrameFetch(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithRowCount(8))
	defer df.Release()

	lf := df.Lazy().
		Filter(expr.Binary(expr.OpGt, expr.Col("salary"), expr.Lit(80000))).
		Sort([]expr.Expr{expr.Col("salary")}, dataframe.SortOptions{})

	all := collect(t, lf)
	defer all.Release()

	for _, n := range []int{0, 1, 3, 100} {
		fetched, err := lf.Fetch(context.Background(), n)
		require.NoError(t, err)

		want := all.Head(n)
		testutil.AssertDataFrameEqual(t, want, fetched)
		want.Release()
		fetched.Release()
	}
}

func TestLazyFrameSlice(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithRowCount(8))
	defer df.Release()

	result := collect(t, df.Lazy().Slice(2, 4).Limit(2))
	defer result.Release()
	assert.Equal(t, []string{"Charlie", "David"}, testutil.ColumnStrings(t, result, "name"))
}

func TestLazyFrameSchema(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem)
	defer df.Release()

	schema, err := df.Lazy().
		Select(
			expr.Col("name"),
			expr.Alias(expr.Cast(expr.Col("age"), value.TypeFloat64), "age_f"),
			expr.Alias(expr.Binary(expr.OpGt, expr.Col("age"), expr.Lit(30)), "senior"),
		).
		Schema(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(0).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, schema.Field(1).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Boolean, schema.Field(2).Type)
}

func TestConcat(t *testing.T) {
	mem := memory.NewGoAllocator()
	top := testutil.CreateSimpleTestDataFrame(t, mem)
	defer top.Release()
	bottom := testutil.NewFrame(t,
		testutil.Column(t, "name", []string{"Carol"}, mem),
		testutil.Column(t, "age", []int64{41}, mem),
	)
	defer bottom.Release()

	t.Run("stacks rows in order", func(t *testing.T) {
		lf, err := dataframe.Concat(context.Background(), top.Lazy(), bottom.Lazy())
		require.NoError(t, err)

		result := collect(t, lf)
		defer result.Release()
		assert.Equal(t, []string{"Alice", "Bob", "Carol"}, testutil.ColumnStrings(t, result, "name"))
		assert.Equal(t, []string{"25", "30", "41"}, testutil.ColumnStrings(t, result, "age"))
	})

	mismatches := []struct {
		name  string
		other *dataframe.LazyFrame
	}{
		{"column count", bottom.Lazy().Select(expr.Col("name"))},
		{"column name", bottom.Lazy().Select(expr.Col("name"), expr.Alias(expr.Col("age"), "years"))},
		{"column type", bottom.Lazy().Select(expr.Col("name"), expr.Cast(expr.Col("age"), value.TypeFloat64))},
	}
	for _, tt := range mismatches {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataframe.Concat(context.Background(), top.Lazy(), tt.other)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrSchema))
		})
	}

	t.Run("no frames", func(t *testing.T) {
		_, err := dataframe.Concat(context.Background())
		assert.True(t, stderrors.Is(err, errors.ErrSchema))
	})
}

func TestLazyFrameClone(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem)
	defer df.Release()

	base := df.Lazy()
	clone := base.Clone()
	base.Filter(expr.Binary(expr.OpEq, expr.Col("name"), expr.Lit("Bob")))

	filtered := collect(t, base)
	defer filtered.Release()
	unfiltered := collect(t, clone)
	defer unfiltered.Release()

	assert.Equal(t, 1, filtered.Len())
	assert.Equal(t, 4, unfiltered.Len())
}

func TestLazyFrameExplain(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	lf := df.Lazy().
		Filter(expr.Binary(expr.OpGt, expr.Col("age"), expr.Lit(26))).
		Select(expr.Col("name"))

	want := "Select: [col(name)]\n" +
		"  Filter: (col(age) > lit(26))\n" +
		"    DataFrameScan: [name, age]; 2 rows\n"
	assert.Equal(t, want, lf.Explain())
	assert.Equal(t, want, lf.String())
	plan := lf.Describe()
	assert.Equal(t, 3, plan.GetOperationCount())
}

func TestLazyFrameReleasesSource(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())

	func() {
		df := testutil.CreateSimpleTestDataFrame(t, mem)
		lf := df.Lazy().Filter(expr.Binary(expr.OpGt, expr.Col("age"), expr.Lit(26)))
		df.Release()

		out, err := lf.Collect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, out.Len())
		out.Release()
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return mem.CurrentAlloc() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLazyFrameExplainJSON(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	data, err := df.Lazy().Select(expr.Col("name")).Limit(1).ExplainJSON()
	require.NoError(t, err)

	var plan monitoring.QueryPlan
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.True(t, plan.Optimized)
	assert.Equal(t, "Select", plan.Root.Type)
	assert.Equal(t, 3, plan.GetOperationCount())
	assert.NotEmpty(t, plan.Rewrites)
}
