// Package testutil provides common testing utilities shared by the engine's
// package tests: allocator setup, standard test frames and frame assertions.
package testutil

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// defaultRowCount is the default number of rows in test DataFrames.
	defaultRowCount = 4
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator for tests.
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewGoAllocator(),
		cleanup:   func() {},
	}
}

// TestDataFrameOption configures test DataFrame creation.
type TestDataFrameOption func(*testDataFrameConfig)

type testDataFrameConfig struct {
	includeNulls bool
	rowCount     int
	withActive   bool
}

// WithNulls makes every third salary null.
func WithNulls() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.includeNulls = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.rowCount = count
	}
}

// WithActiveColumn includes an 'active' boolean column.
func WithActiveColumn() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.withActive = true
	}
}

// Column builds a Series and fails the test on error.
func Column[T value.Primitive](tb testing.TB, name string, values []T, mem memory.Allocator) *series.Series {
	tb.Helper()
	s, err := series.New(name, values, mem)
	require.NoError(tb, err)
	return s
}

// NullableColumn builds a Series where valid[i] == false marks a null.
func NullableColumn[T value.Primitive](tb testing.TB, name string, values []T, valid []bool, mem memory.Allocator) *series.Series {
	tb.Helper()
	s, err := series.NewNullable(name, values, valid, mem)
	require.NoError(tb, err)
	return s
}

// NewFrame builds a DataFrame from columns and releases the caller's
// references to them.
func NewFrame(tb testing.TB, columns ...*series.Series) *dataframe.DataFrame {
	tb.Helper()
	defer func() {
		for _, s := range columns {
			s.Release()
		}
	}()
	df, err := dataframe.New(columns...)
	require.NoError(tb, err)
	return df
}

// CreateTestDataFrame creates a standard test DataFrame with employee data.
//
//   - name (str): ["Alice", "Bob", "Charlie", "David"]
//   - age (i64): [25, 30, 35, 28]
//   - department (str): ["Engineering", "Sales", "Engineering", "Marketing"]
//   - salary (i64): [100000, 80000, 120000, 75000]
func CreateTestDataFrame(tb testing.TB, allocator memory.Allocator, opts ...TestDataFrameOption) *dataframe.DataFrame {
	tb.Helper()
	cfg := &testDataFrameConfig{rowCount: defaultRowCount}
	for _, opt := range opts {
		opt(cfg)
	}

	var valid []bool
	if cfg.includeNulls {
		valid = make([]bool, cfg.rowCount)
		for i := range valid {
			valid[i] = i%3 != 2
		}
	}

	cols := []*series.Series{
		Column(tb, "name", generateNames(cfg.rowCount), allocator),
		Column(tb, "age", generateAges(cfg.rowCount), allocator),
		Column(tb, "department", generateDepartments(cfg.rowCount), allocator),
		NullableColumn(tb, "salary", generateSalaries(cfg.rowCount), valid, allocator),
	}
	if cfg.withActive {
		cols = append(cols, Column(tb, "active", generateActiveFlags(cfg.rowCount), allocator))
	}
	return NewFrame(tb, cols...)
}

// CreateSimpleTestDataFrame creates a simple 2-column DataFrame for basic testing.
func CreateSimpleTestDataFrame(tb testing.TB, allocator memory.Allocator) *dataframe.DataFrame {
	tb.Helper()
	return NewFrame(tb,
		Column(tb, "name", []string{"Alice", "Bob"}, allocator),
		Column(tb, "age", []int64{25, 30}, allocator),
	)
}

// ColumnStrings renders every slot of a column with GetAsString. Nulls
// render as "null".
func ColumnStrings(tb testing.TB, df *dataframe.DataFrame, name string) []string {
	tb.Helper()
	s, ok := df.Column(name)
	require.True(tb, ok, "column %s should exist", name)
	out := make([]string, s.Len())
	for i := range out {
		out[i] = s.GetAsString(i)
	}
	return out
}

// AssertDataFrameEqual compares names, types and every rendered cell.
func AssertDataFrameEqual(t *testing.T, expected, actual *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, expected, "expected DataFrame should not be nil")
	require.NotNil(t, actual, "actual DataFrame should not be nil")

	assert.Equal(t, expected.Len(), actual.Len(), "DataFrame lengths should match")
	assert.Equal(t, expected.Columns(), actual.Columns(), "DataFrame columns should match")

	for _, colName := range expected.Columns() {
		expectedCol, _ := expected.Column(colName)
		actualCol, ok := actual.Column(colName)
		require.True(t, ok, "actual column %s should exist", colName)
		assert.Equal(t, expectedCol.Type(), actualCol.Type(), "column %s type should match", colName)
		assert.Equal(t, ColumnStrings(t, expected, colName), ColumnStrings(t, actual, colName),
			"column %s data should match", colName)
	}
}

// AssertDataFrameHasColumns verifies that a DataFrame has the expected columns.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Len(t, df.Columns(), len(expectedColumns), "column count should match")
	for _, col := range expectedColumns {
		assert.True(t, df.HasColumn(col), "DataFrame should have column %s", col)
	}
}

// AssertDataFrameNotEmpty verifies that a DataFrame is not empty.
func AssertDataFrameNotEmpty(t *testing.T, df *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Positive(t, df.Len(), "DataFrame should not be empty")
	assert.Positive(t, df.Width(), "DataFrame should have columns")
}

func generateNames(count int) []string {
	baseNames := []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Henry"}
	names := make([]string, count)
	for i := range count {
		names[i] = baseNames[i%len(baseNames)]
	}
	return names
}

func generateAges(count int) []int64 {
	baseAges := []int64{25, 30, 35, 28, 32, 45, 29, 38}
	ages := make([]int64, count)
	for i := range count {
		ages[i] = baseAges[i%len(baseAges)]
	}
	return ages
}

func generateDepartments(count int) []string {
	baseDepts := []string{"Engineering", "Sales", "Engineering", "Marketing", "HR", "Finance", "Engineering", "Sales"}
	departments := make([]string, count)
	for i := range count {
		departments[i] = baseDepts[i%len(baseDepts)]
	}
	return departments
}

func generateSalaries(count int) []int64 {
	baseSalaries := []int64{100000, 80000, 120000, 75000, 90000, 110000, 95000, 85000}
	salaries := make([]int64, count)
	for i := range count {
		salaries[i] = baseSalaries[i%len(baseSalaries)]
	}
	return salaries
}

func generateActiveFlags(count int) []bool {
	baseFlags := []bool{true, true, false, true, true, false, true, false}
	flags := make([]bool, count)
	for i := range count {
		flags[i] = baseFlags[i%len(baseFlags)]
	}
	return flags
}
