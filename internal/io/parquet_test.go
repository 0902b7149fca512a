package io_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/io"
	"github.com/paveg/polecat/internal/testutil"
	"github.com/paveg/polecat/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeParquetFile(t *testing.T, df *dataframe.DataFrame, opts io.ParquetOptions) string {
	t.Helper()
	var buf io.BufferSink
	require.NoError(t, io.WriteParquet(context.Background(), df, &buf, opts))
	require.Positive(t, buf.Len())

	path := filepath.Join(t.TempDir(), "frame.parquet")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestParquetRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithNulls(), testutil.WithActiveColumn())
	defer df.Release()

	codecs := []string{"snappy", "gzip", "zstd", "uncompressed", "GZIP", "Zstd"}
	for _, codec := range codecs {
		t.Run(codec, func(t *testing.T) {
			opts := io.DefaultParquetOptions()
			opts.Compression = codec
			path := writeParquetFile(t, df, opts)

			result, err := io.ReadParquet(context.Background(), []byte(path), opts, mem)
			require.NoError(t, err)
			defer result.Release()

			testutil.AssertDataFrameEqual(t, df, result)
			salary, ok := result.Column("salary")
			require.True(t, ok)
			assert.Equal(t, 1, salary.NullCount())
			assert.Equal(t, value.TypeInt64, salary.Type())
		})
	}
}

func TestParquetRowGroups(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithRowCount(25))
	defer df.Release()

	opts := io.DefaultParquetOptions()
	opts.RowGroupSize = 10
	opts.BatchSize = 4
	path := writeParquetFile(t, df, opts)

	result, err := io.ReadParquet(context.Background(), []byte(path), opts, mem)
	require.NoError(t, err)
	defer result.Release()

	testutil.AssertDataFrameEqual(t, df, result)
}

func TestParquetEmptyFrame(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.NewFrame(t,
		testutil.Column(t, "a", []int64{}, mem),
		testutil.Column(t, "b", []string{}, mem),
	)
	defer df.Release()

	path := writeParquetFile(t, df, io.DefaultParquetOptions())
	result, err := io.ReadParquet(context.Background(), []byte(path), io.DefaultParquetOptions(), mem)
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, 0, result.Len())
	assert.Equal(t, []string{"a", "b"}, result.Columns())
}

func TestScanParquet(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithRowCount(8))
	defer df.Release()

	opts := io.DefaultParquetOptions()
	opts.BatchSize = 2
	path := writeParquetFile(t, df, opts)

	lf, err := io.ScanParquet([]byte(path), opts)
	require.NoError(t, err)

	t.Run("schema without reading rows", func(t *testing.T) {
		schema, err := lf.Clone().Schema(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, schema.NumFields())
		assert.Equal(t, "name", schema.Field(0).Name)
	})

	t.Run("fetch", func(t *testing.T) {
		head, err := lf.Clone().Fetch(context.Background(), 3)
		require.NoError(t, err)
		defer head.Release()

		assert.Equal(t, 3, head.Len())
		assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, testutil.ColumnStrings(t, head, "name"))
	})

	t.Run("collect", func(t *testing.T) {
		all, err := lf.Clone().Collect(context.Background())
		require.NoError(t, err)
		defer all.Release()

		testutil.AssertDataFrameEqual(t, df, all)
	})

	t.Run("explain names the file", func(t *testing.T) {
		assert.Contains(t, lf.Explain(), path)
	})
}

func TestParquetPathErrors(t *testing.T) {
	tests := []struct {
		name string
		path []byte
	}{
		{"invalid utf8", []byte{0xff, 0xfe}},
		{"empty", []byte{}},
		{"missing file", []byte(filepath.Join(os.TempDir(), "polecat-missing.parquet"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := io.ReadParquet(context.Background(), tt.path, io.DefaultParquetOptions(), nil)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrIO))
		})
	}

	_, err := io.ScanParquet([]byte{0xc3, 0x28}, io.DefaultParquetOptions())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIO))
}

func TestWriteParquetAbort(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateTestDataFrame(t, mem, testutil.WithRowCount(100))
	defer df.Release()

	calls := 0
	sink := io.SinkFunc(func(p []byte) io.Outcome {
		calls++
		return io.Abort
	})

	err := io.WriteParquet(context.Background(), df, sink, io.DefaultParquetOptions())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSinkAborted))
	assert.True(t, stderrors.Is(err, errors.ErrIO))
	assert.Equal(t, 1, calls)
}

func TestWriteParquetUnknownCompression(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := testutil.CreateSimpleTestDataFrame(t, mem)
	defer df.Release()

	opts := io.DefaultParquetOptions()
	opts.Compression = "rot13"
	var buf io.BufferSink
	err := io.WriteParquet(context.Background(), df, &buf, opts)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIO))
	assert.Zero(t, buf.Len())
}
