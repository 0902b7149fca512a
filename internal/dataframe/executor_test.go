package dataframe_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/paveg/polecat/internal/config"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/monitoring"
	"github.com/paveg/polecat/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	prom_testutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parallelExecutor() *dataframe.Executor {
	cfg := config.NewConfig()
	cfg.ParallelThreshold = 1
	cfg.WorkerPoolSize = 4
	return dataframe.NewExecutor(dataframe.WithConfig(cfg))
}

func TestExecutorParallelMatchesSerial(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithRowCount(64), testutil.WithNulls())
	defer df.Release()

	plans := map[string]func() *dataframe.LazyFrame{
		"select": func() *dataframe.LazyFrame {
			return df.Lazy().Select(
				expr.Col("name"),
				expr.Alias(expr.Binary(expr.OpMul, expr.Col("age"), expr.Lit(2)), "twice"),
				expr.Alias(expr.Mean(expr.Col("salary")), "mean_salary"),
			)
		},
		"group by": func() *dataframe.LazyFrame {
			return df.Lazy().GroupBy(expr.Col("department")).Agg(
				expr.Sum(expr.Col("salary")),
				expr.Alias(expr.Max(expr.Col("age")), "oldest"),
				expr.Alias(expr.Col("name"), "members"),
			)
		},
		"sort": func() *dataframe.LazyFrame {
			return df.Lazy().Sort(
				[]expr.Expr{expr.Col("department"), expr.Col("age")},
				dataframe.SortOptions{Descending: []bool{false, true}, MaintainOrder: true},
			)
		},
	}

	for name, build := range plans {
		t.Run(name, func(t *testing.T) {
			serial := collect(t, build())
			defer serial.Release()

			parallel, err := build().WithExecutor(parallelExecutor()).Collect(context.Background())
			require.NoError(t, err)
			defer parallel.Release()

			testutil.AssertDataFrameEqual(t, serial, parallel)
		})
	}
}

func TestExecutorParallelError(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithRowCount(16))
	defer df.Release()

	_, err := df.Lazy().
		GroupBy(expr.Col("age")).
		Agg(expr.Sum(expr.Col("name"))).
		WithExecutor(parallelExecutor()).
		Collect(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrType))
}

func TestExecutorMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	ghost := expr.Col("ghost")
	tests := []struct {
		name string
		op   string
		lf   *dataframe.LazyFrame
	}{
		{"select", "Select", df.Lazy().Select(expr.Col("name"), ghost)},
		{"with columns", "WithColumns", df.Lazy().WithColumns(expr.Binary(expr.OpAdd, ghost, expr.Lit(1)))},
		{"filter", "Filter", df.Lazy().Filter(expr.Binary(expr.OpGt, ghost, expr.Lit(1)))},
		{"sort", "Sort", df.Lazy().Sort([]expr.Expr{ghost}, dataframe.SortOptions{})},
		{"group by", "GroupBy", df.Lazy().GroupBy(expr.Col("name")).Agg(expr.Sum(ghost))},
		{"join", "Join", df.Lazy().JoinInner(df.Lazy(), []expr.Expr{ghost}, []expr.Expr{expr.Col("name")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.lf.Collect(context.Background())
			var dfErr *errors.DataFrameError
			require.True(t, stderrors.As(err, &dfErr), "got %v", err)
			assert.Equal(t, errors.KindSchema, dfErr.Kind)
			assert.Equal(t, tt.op, dfErr.Op)
			assert.Equal(t, "ghost", dfErr.Column)
		})
	}
}

func TestExecutorCancelledContext(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := df.Lazy().Select(expr.Col("name")).Collect(ctx)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestExecutorLogging(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	var buf bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowDebug())
	exec := dataframe.NewExecutor(dataframe.WithLogger(logger))

	result, err := df.Lazy().Select(expr.Col("age")).Limit(1).WithExecutor(exec).Collect(context.Background())
	require.NoError(t, err)
	defer result.Release()

	out := buf.String()
	assert.Contains(t, out, `msg="plan finished"`)
	assert.Contains(t, out, "op=collect")
	assert.Contains(t, out, "rows=1")

	t.Run("info level hides plan details", func(t *testing.T) {
		buf.Reset()
		quiet := dataframe.NewExecutor(dataframe.WithLogger(level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowInfo())))
		result, err := df.Lazy().WithExecutor(quiet).Collect(context.Background())
		require.NoError(t, err)
		defer result.Release()
		assert.Empty(t, buf.String())
	})
}

func TestExecutorMetrics(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem)
	defer df.Release()

	reg := prometheus.NewRegistry()
	cfg := config.NewConfig()
	cfg.MetricsCollection = true
	exec := dataframe.NewExecutor(dataframe.WithConfig(cfg), dataframe.WithMetrics(monitoring.NewMetrics(reg)))

	result, err := df.Lazy().WithExecutor(exec).Fetch(context.Background(), 3)
	require.NoError(t, err)
	result.Release()

	_, err = df.Lazy().Select(expr.Col("missing")).WithExecutor(exec).Collect(context.Background())
	require.Error(t, err)

	count, err := prom_testutil.GatherAndCount(reg, "polecat_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "polecat_rows_produced_total" {
			assert.InDelta(t, 3, mf.GetMetric()[0].GetCounter().GetValue(), 0)
		}
	}
}

func TestExecutorMetricsCollectionDisabled(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	reg := prometheus.NewRegistry()
	exec := dataframe.NewExecutor(dataframe.WithConfig(config.NewConfig()), dataframe.WithMetrics(monitoring.NewMetrics(reg)))

	result, err := df.Lazy().WithExecutor(exec).Collect(context.Background())
	require.NoError(t, err)
	result.Release()

	count, err := prom_testutil.GatherAndCount(reg, "polecat_queries_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSetDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	dataframe.SetDefaultLogger(log.NewLogfmtLogger(&buf))
	defer dataframe.SetDefaultLogger(nil)

	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	result := collect(t, df.Lazy())
	defer result.Release()
	assert.Contains(t, buf.String(), "plan finished")
}
