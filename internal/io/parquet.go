package io

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/series"
)

// ReadParquet reads the whole Parquet file at path. path must be valid
// UTF-8.
func ReadParquet(ctx context.Context, path []byte, opts ParquetOptions, mem memory.Allocator) (*dataframe.DataFrame, error) {
	p, err := parquetPath("ReadParquet", path)
	if err != nil {
		return nil, err
	}
	return readParquet(ctx, p, -1, opts, mem)
}

// ScanParquet returns a LazyFrame over the file at path. Nothing is read
// until the plan runs; a row limit pushed into the scan stops reading once
// enough batches have been decoded.
func ScanParquet(path []byte, opts ParquetOptions) (*dataframe.LazyFrame, error) {
	p, err := parquetPath("ScanParquet", path)
	if err != nil {
		return nil, err
	}
	return dataframe.FromSource(&parquetSource{path: p, opts: opts}), nil
}

func parquetPath(op string, path []byte) (string, error) {
	if !utf8.Valid(path) {
		return "", &errors.DataFrameError{Kind: errors.KindIO, Op: op, Message: "path is not valid UTF-8"}
	}
	if len(path) == 0 {
		return "", &errors.DataFrameError{Kind: errors.KindIO, Op: op, Message: "path is empty"}
	}
	return string(path), nil
}

type parquetSource struct {
	path string
	opts ParquetOptions
}

func (s *parquetSource) Describe() string {
	return fmt.Sprintf("parquet %s", s.path)
}

func (s *parquetSource) Schema(context.Context) (*arrow.Schema, error) {
	rdr, err := file.OpenParquetFile(s.path, false)
	if err != nil {
		return nil, errors.NewIOError("ScanParquet", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.NewIOError("ScanParquet", err)
	}
	schema, err := fr.Schema()
	if err != nil {
		return nil, errors.NewIOError("ScanParquet", err)
	}
	return schema, nil
}

func (s *parquetSource) Read(ctx context.Context, limit int, mem memory.Allocator) (*dataframe.DataFrame, error) {
	return readParquet(ctx, s.path, limit, s.opts, mem)
}

// readParquet decodes record batches until limit rows are available, or
// the whole file when limit is negative.
func readParquet(ctx context.Context, path string, limit int, opts ParquetOptions, mem memory.Allocator) (*dataframe.DataFrame, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.NewIOError("ReadParquet", err)
	}
	defer rdr.Close()

	props := pqarrow.ArrowReadProperties{BatchSize: int64(opts.BatchSize)}
	fr, err := pqarrow.NewFileReader(rdr, props, mem)
	if err != nil {
		return nil, errors.NewIOError("ReadParquet", err)
	}
	schema, err := fr.Schema()
	if err != nil {
		return nil, errors.NewIOError("ReadParquet", err)
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, errors.NewIOError("ReadParquet", err)
	}
	defer rr.Release()

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	rows := 0
	for (limit < 0 || rows < limit) && rr.Next() {
		rec := rr.Record()
		rec.Retain()
		records = append(records, rec)
		rows += int(rec.NumRows())
	}
	if err := rr.Err(); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.NewIOError("ReadParquet", err)
	}
	return recordsToFrame(schema, records, limit, mem)
}

func recordsToFrame(schema *arrow.Schema, records []arrow.Record, limit int, mem memory.Allocator) (*dataframe.DataFrame, error) {
	names := make([]string, schema.NumFields())
	arrays := make([]arrow.Array, 0, schema.NumFields())
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	for i, field := range schema.Fields() {
		names[i] = field.Name
		parts := make([]arrow.Array, len(records))
		for r, rec := range records {
			parts[r] = rec.Column(i)
		}

		var col arrow.Array
		switch len(parts) {
		case 0:
			col = series.EmptyArray(field.Type, mem)
		case 1:
			col = parts[0]
			col.Retain()
		default:
			joined, err := array.Concatenate(parts, mem)
			if err != nil {
				return nil, errors.NewIOError("ReadParquet", err)
			}
			col = joined
		}
		if limit >= 0 && col.Len() > limit {
			sliced := array.NewSlice(col, 0, int64(limit))
			col.Release()
			col = sliced
		}
		arrays = append(arrays, col)
	}
	return dataframe.FromArrays(names, arrays)
}

// WriteParquet encodes df as a Parquet file and streams it to sink
func WriteParquet(ctx context.Context, df *dataframe.DataFrame, sink Sink, opts ParquetOptions) (err error) {
	codec, cerr := compressionCodec(opts.Compression)
	if cerr != nil {
		return cerr
	}
	rowGroup := opts.RowGroupSize
	if rowGroup <= 0 {
		rowGroup = df.Len()
	}
	mem := memory.NewGoAllocator()

	cols := make([]arrow.Array, df.Width())
	for i, s := range df.Series() {
		cols[i] = s.Borrow()
	}
	rec := array.NewRecord(df.Schema(), cols, int64(df.Len()))
	defer rec.Release()

	w := NewSinkWriter(sink, opts.ChunkSize).Instrument(opts.Metrics, "parquet")
	// the file writer panics when the leading magic bytes cannot be written
	defer func() {
		if r := recover(); r != nil {
			err = writeError(w, fmt.Errorf("parquet writer: %v", r))
		}
	}()
	writerProps := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithAllocator(mem),
	}
	if rowGroup > 0 {
		writerProps = append(writerProps, parquet.WithMaxRowGroupLength(int64(rowGroup)))
	}
	if opts.BatchSize > 0 {
		writerProps = append(writerProps, parquet.WithBatchSize(int64(opts.BatchSize)))
	}
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem), pqarrow.WithStoreSchema())

	fw, err := pqarrow.NewFileWriter(rec.Schema(), w, parquet.NewWriterProperties(writerProps...), arrowProps)
	if err != nil {
		return writeError(w, err)
	}

	for offset := 0; offset < df.Len(); offset += rowGroup {
		if err := ctx.Err(); err != nil {
			_ = fw.Close()
			return err
		}
		end := offset + rowGroup
		if end > df.Len() {
			end = df.Len()
		}
		part := rec.NewSlice(int64(offset), int64(end))
		werr := fw.Write(part)
		part.Release()
		if werr != nil || w.Aborted() {
			_ = fw.Close()
			return writeError(w, werr)
		}
	}
	if cerr := fw.Close(); cerr != nil || w.Aborted() {
		return writeError(w, cerr)
	}
	return nil
}

// writeError reports an abort as such even when the Parquet writer has
// replaced the sink's error with its own.
func writeError(w *SinkWriter, err error) error {
	if w.Aborted() {
		return errors.NewIOError("WriteParquet", errors.ErrSinkAborted)
	}
	return errors.NewIOError("WriteParquet", err)
}

func compressionCodec(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, &errors.DataFrameError{
		Kind:    errors.KindIO,
		Op:      "WriteParquet",
		Message: fmt.Sprintf("unknown compression %q", name),
	}
}
