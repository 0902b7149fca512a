// Package io moves DataFrames across the engine boundary: Parquet files,
// the text display dump and the host byte sinks both of them write through.
//
// Everything written to the host goes through a Sink in bounded chunks. The
// sink may abort after any chunk; the writer stops and reports an IO error
// wrapping errors.ErrSinkAborted.
package io

import (
	"github.com/paveg/polecat/internal/config"
	"github.com/paveg/polecat/internal/monitoring"
)

// ParquetOptions contains configuration options for Parquet operations
type ParquetOptions struct {
	// Compression is one of config.Compressions
	Compression string
	// BatchSize is the number of rows decoded per read batch
	BatchSize int
	// RowGroupSize is the maximum number of rows per written row group
	RowGroupSize int
	// ChunkSize bounds every sink write
	ChunkSize int
	// Metrics counts bytes written to sinks; nil uses the global metrics
	Metrics *monitoring.Metrics
}

// DefaultParquetOptions returns options from the global configuration
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptionsFromConfig(config.GetGlobalConfig())
}

// ParquetOptionsFromConfig returns options from cfg
func ParquetOptionsFromConfig(cfg config.Config) ParquetOptions {
	cfg = cfg.WithDefaults()
	return ParquetOptions{
		Compression:  cfg.ParquetCompression,
		BatchSize:    cfg.ParquetBatchSize,
		RowGroupSize: cfg.ParquetRowGroupSize,
		ChunkSize:    cfg.SinkChunkSize,
	}
}

// DisplayOptions controls Show
type DisplayOptions struct {
	// MaxRows is the number of rows shown before the middle is elided
	MaxRows int
	// MaxColWidth truncates longer cells
	MaxColWidth int
	// ChunkSize bounds every sink write
	ChunkSize int
	// Metrics counts bytes written to sinks; nil uses the global metrics
	Metrics *monitoring.Metrics
}

// DefaultDisplayOptions returns options from the global configuration
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptionsFromConfig(config.GetGlobalConfig())
}

// DisplayOptionsFromConfig returns options from cfg
func DisplayOptionsFromConfig(cfg config.Config) DisplayOptions {
	cfg = cfg.WithDefaults()
	return DisplayOptions{
		MaxRows:     cfg.DisplayMaxRows,
		MaxColWidth: cfg.DisplayMaxColWidth,
		ChunkSize:   cfg.SinkChunkSize,
	}
}
