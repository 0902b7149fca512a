package polecat

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/paveg/polecat/internal/config"
	"github.com/paveg/polecat/internal/dataframe"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/exchange"
	pio "github.com/paveg/polecat/internal/io"
	"github.com/paveg/polecat/internal/monitoring"
	"github.com/paveg/polecat/internal/version"
	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives output bytes in bounded chunks and may abort after any of
// them.
type Sink = pio.Sink

// SinkFunc adapts a function to a Sink.
type SinkFunc = pio.SinkFunc

// BufferSink collects everything written to it.
type BufferSink = pio.BufferSink

// Outcome is a Sink's answer to a chunk.
type Outcome = pio.Outcome

const (
	Continue = pio.Continue
	Abort    = pio.Abort
)

type (
	ParquetOptions = pio.ParquetOptions
	DisplayOptions = pio.DisplayOptions
	Config         = config.Config
)

// Error kinds, matched with errors.Is.
var (
	ErrConstruction = errors.ErrConstruction
	ErrType         = errors.ErrType
	ErrSchema       = errors.ErrSchema
	ErrIO           = errors.ErrIO
	ErrExecution    = errors.ErrExecution
	ErrSinkAborted  = errors.ErrSinkAborted
)

// DataFrameError is the error type every engine operation returns.
type DataFrameError = errors.DataFrameError

// ErrorKind classifies a DataFrameError.
type ErrorKind = errors.Kind

const (
	KindExecution    = errors.KindExecution
	KindConstruction = errors.KindConstruction
	KindType         = errors.KindType
	KindSchema       = errors.KindSchema
	KindIO           = errors.KindIO
)

// KindOf returns the kind of the first DataFrameError in err's chain.
// Errors from outside the engine are execution errors.
func KindOf(err error) ErrorKind {
	return errors.KindOf(err)
}

// ReadParquet reads a whole Parquet file with the global configuration.
func ReadParquet(ctx context.Context, path []byte) (*DataFrame, error) {
	df, err := pio.ReadParquet(ctx, path, pio.DefaultParquetOptions(), memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// ScanParquet returns a LazyFrame reading the file at path when it runs.
func ScanParquet(path []byte) (*LazyFrame, error) {
	lf, err := pio.ScanParquet(path, pio.DefaultParquetOptions())
	if err != nil {
		return nil, err
	}
	return &LazyFrame{lf: lf}, nil
}

// WriteParquet streams df as a Parquet file into sink.
func WriteParquet(ctx context.Context, df *DataFrame, sink Sink, opts ParquetOptions) error {
	return pio.WriteParquet(ctx, df.df, sink, opts)
}

// DefaultParquetOptions returns Parquet options from the global configuration.
func DefaultParquetOptions() ParquetOptions {
	return pio.DefaultParquetOptions()
}

// Show writes the text display of df into sink.
func Show(df *DataFrame, sink Sink) error {
	return pio.Show(df.df, sink, pio.DefaultDisplayOptions())
}

// Version writes the engine version string into sink.
func Version(sink Sink) error {
	_, err := pio.NewSinkWriter(sink, 0).Write([]byte(version.String()))
	return err
}

// FromRecord copies the columns of rec into a new DataFrame.
func FromRecord(rec arrow.Record) (*DataFrame, error) {
	df, err := exchange.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// ToRecord exposes df as an Arrow record. The caller releases it.
func ToRecord(df *DataFrame) arrow.Record {
	return exchange.ToRecord(df.df)
}

// SetLogger routes engine debug logs to logger. nil silences them.
func SetLogger(logger log.Logger) {
	dataframe.SetDefaultLogger(logger)
}

// EnableMetrics registers the engine collectors on reg and turns on
// MetricsCollection in the global configuration. A nil reg stops recording.
func EnableMetrics(reg prometheus.Registerer) {
	cfg := config.GetGlobalConfig()
	cfg.MetricsCollection = reg != nil
	config.SetGlobalConfig(cfg)
	if reg == nil {
		monitoring.SetGlobalMetrics(nil)
		return
	}
	monitoring.SetGlobalMetrics(monitoring.NewMetrics(reg))
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return config.NewConfig()
}

// SetConfig replaces the global configuration after validating it.
func SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// LoadConfig reads a YAML or JSON configuration file.
func LoadConfig(path string) (Config, error) {
	return config.LoadFromFile(path)
}
