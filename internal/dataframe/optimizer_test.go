package dataframe_test

import (
	"context"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/config"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSource serves a fixed frame and remembers the limits it was asked for.
type recordingSource struct {
	mu     sync.Mutex
	df     *dataframe.DataFrame
	limits []int
}

func (s *recordingSource) Describe() string { return "memory" }

func (s *recordingSource) Schema(context.Context) (*arrow.Schema, error) {
	return s.df.Schema(), nil
}

func (s *recordingSource) Read(_ context.Context, limit int, _ memory.Allocator) (*dataframe.DataFrame, error) {
	s.mu.Lock()
	s.limits = append(s.limits, limit)
	s.mu.Unlock()
	if limit < 0 {
		return s.df.Clone(), nil
	}
	return s.df.Head(limit), nil
}

func newRecordingSource(t *testing.T) *recordingSource {
	t.Helper()
	df := testutil.CreateTestDataFrame(t, memory.NewGoAllocator(), testutil.WithRowCount(8))
	t.Cleanup(df.Release)
	return &recordingSource{df: df}
}

func TestLimitPushdown(t *testing.T) {
	tests := []struct {
		name      string
		build     func(lf *dataframe.LazyFrame) *dataframe.LazyFrame
		fetch     int
		wantLimit int
		wantRows  int
	}{
		{
			name:      "into the scan",
			build:     func(lf *dataframe.LazyFrame) *dataframe.LazyFrame { return lf },
			fetch:     3,
			wantLimit: 3,
			wantRows:  3,
		},
		{
			name: "through elementwise projections",
			build: func(lf *dataframe.LazyFrame) *dataframe.LazyFrame {
				return lf.WithColumns(expr.Alias(expr.Binary(expr.OpMul, expr.Col("age"), expr.Lit(2)), "twice")).
					Select(expr.Col("name"), expr.Col("twice"))
			},
			fetch:     2,
			wantLimit: 2,
			wantRows:  2,
		},
		{
			name: "slices are fused first",
			build: func(lf *dataframe.LazyFrame) *dataframe.LazyFrame {
				return lf.Slice(2, 4)
			},
			fetch:     2,
			wantLimit: 4,
			wantRows:  2,
		},
		{
			name: "not through a filter",
			build: func(lf *dataframe.LazyFrame) *dataframe.LazyFrame {
				return lf.Filter(expr.Binary(expr.OpGt, expr.Col("age"), expr.Lit(29)))
			},
			fetch:     2,
			wantLimit: -1,
			wantRows:  2,
		},
		{
			name: "not through an aggregate projection",
			build: func(lf *dataframe.LazyFrame) *dataframe.LazyFrame {
				return lf.Select(expr.Col("name"), expr.Alias(expr.Sum(expr.Col("age")), "total"))
			},
			fetch:     2,
			wantLimit: -1,
			wantRows:  2,
		},
		{
			name: "not through a sort",
			build: func(lf *dataframe.LazyFrame) *dataframe.LazyFrame {
				return lf.Sort([]expr.Expr{expr.Col("age")}, dataframe.SortOptions{})
			},
			fetch:     1,
			wantLimit: -1,
			wantRows:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newRecordingSource(t)
			lf := tt.build(dataframe.FromSource(src))

			result, err := lf.Fetch(context.Background(), tt.fetch)
			require.NoError(t, err)
			defer result.Release()

			assert.Equal(t, tt.wantRows, result.Len())
			require.Len(t, src.limits, 1)
			assert.Equal(t, tt.wantLimit, src.limits[0])
		})
	}
}

func TestLimitPushdownKeepsResults(t *testing.T) {
	src := newRecordingSource(t)
	lf := dataframe.FromSource(src).
		WithColumns(expr.Alias(expr.Function(expr.FnStrUpper, expr.Col("name")), "upper"))

	pushed, err := lf.Fetch(context.Background(), 3)
	require.NoError(t, err)
	defer pushed.Release()

	off := dataframe.NewExecutor(dataframe.WithConfig(config.Config{LimitPushdown: false}))
	plain, err := lf.Clone().WithExecutor(off).Fetch(context.Background(), 3)
	require.NoError(t, err)
	defer plain.Release()

	testutil.AssertDataFrameEqual(t, plain, pushed)
	assert.Equal(t, []int{3, -1}, src.limits)
	assert.Equal(t, []string{"ALICE", "BOB", "CHARLIE"}, testutil.ColumnStrings(t, pushed, "upper"))
}

func TestExplainOptimized(t *testing.T) {
	src := newRecordingSource(t)
	lf := dataframe.FromSource(src).Select(expr.Col("name")).Limit(2)

	assert.Equal(t,
		"Slice: offset 0; length 2\n"+
			"  Select: [col(name)]\n"+
			"    Scan: memory\n",
		lf.Explain())

	assert.Equal(t,
		"Select: [col(name)]\n"+
			"  Slice: offset 0; length 2\n"+
			"    Scan: memory; limit 2\n"+
			"rewrite: LimitPushdown\n"+
			"rewrite: LimitPushdown\n",
		lf.ExplainOptimized())

	assert.Empty(t, src.limits)
}
