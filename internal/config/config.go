// Package config provides configuration management for polecat query execution
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the engine configuration used by lazy execution, sinks
// and the display dump
type Config struct {
	// Parallel Processing Configuration
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"` // Minimum rows or groups to fan out
	WorkerPoolSize    int `json:"worker_pool_size" yaml:"worker_pool_size"`     // Number of worker goroutines (0 = auto-detect)
	MaxParallelism    int `json:"max_parallelism" yaml:"max_parallelism"`       // Upper bound on workers per operation

	// Query Optimization Configuration
	LimitPushdown bool `json:"limit_pushdown" yaml:"limit_pushdown"` // Push fetch limits into sources

	// Output Configuration
	SinkChunkSize       int    `json:"sink_chunk_size" yaml:"sink_chunk_size"`               // Largest write handed to a sink
	ParquetBatchSize    int    `json:"parquet_batch_size" yaml:"parquet_batch_size"`         // Rows per record batch when reading
	ParquetCompression  string `json:"parquet_compression" yaml:"parquet_compression"`       // Codec for written files
	ParquetRowGroupSize int    `json:"parquet_row_group_size" yaml:"parquet_row_group_size"` // Rows per written row group
	DisplayMaxRows      int    `json:"display_max_rows" yaml:"display_max_rows"`             // Rows shown before head/tail truncation
	DisplayMaxColWidth  int    `json:"display_max_col_width" yaml:"display_max_col_width"`   // Cell width before truncation

	// Debugging Configuration
	LogLevel          string `json:"log_level" yaml:"log_level"`                   // debug, info, warn or error
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection"` // Enable metrics collection
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultParallelThreshold   = 1000
	DefaultMaxParallelism      = 16
	DefaultSinkChunkSize       = 64 * 1024
	DefaultParquetBatchSize    = 64 * 1024
	DefaultParquetCompression  = "snappy"
	DefaultParquetRowGroupSize = 128 * 1024
	DefaultDisplayMaxRows      = 10
	DefaultDisplayMaxColWidth  = 32
	DefaultLogLevel            = "info"

	envPrefix = "POLECAT_"
)

// Compressions lists the accepted ParquetCompression values.
var Compressions = []string{"uncompressed", "snappy", "gzip", "zstd", "lz4", "brotli"}

// LogLevels lists the accepted LogLevel values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Initialize global configuration with defaults
func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		ParallelThreshold: DefaultParallelThreshold,
		WorkerPoolSize:    0, // Auto-detect
		MaxParallelism:    DefaultMaxParallelism,

		LimitPushdown: true,

		SinkChunkSize:       DefaultSinkChunkSize,
		ParquetBatchSize:    DefaultParquetBatchSize,
		ParquetCompression:  DefaultParquetCompression,
		ParquetRowGroupSize: DefaultParquetRowGroupSize,
		DisplayMaxRows:      DefaultDisplayMaxRows,
		DisplayMaxColWidth:  DefaultDisplayMaxColWidth,

		LogLevel:          DefaultLogLevel,
		MetricsCollection: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}

	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}

	if c.MaxParallelism <= 0 {
		return fmt.Errorf("MaxParallelism must be positive, got %d", c.MaxParallelism)
	}

	if c.SinkChunkSize <= 0 {
		return fmt.Errorf("SinkChunkSize must be positive, got %d", c.SinkChunkSize)
	}

	if c.ParquetBatchSize <= 0 {
		return fmt.Errorf("ParquetBatchSize must be positive, got %d", c.ParquetBatchSize)
	}

	if c.ParquetRowGroupSize <= 0 {
		return fmt.Errorf("ParquetRowGroupSize must be positive, got %d", c.ParquetRowGroupSize)
	}

	if !slices.Contains(Compressions, strings.ToLower(c.ParquetCompression)) {
		return fmt.Errorf("ParquetCompression must be one of %s, got %q", strings.Join(Compressions, ", "), c.ParquetCompression)
	}

	if c.DisplayMaxRows < 0 {
		return fmt.Errorf("DisplayMaxRows must be non-negative, got %d", c.DisplayMaxRows)
	}

	if c.DisplayMaxColWidth < 0 {
		return fmt.Errorf("DisplayMaxColWidth must be non-negative, got %d", c.DisplayMaxColWidth)
	}

	if !slices.Contains(LogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("LogLevel must be one of %s, got %q", strings.Join(LogLevels, ", "), c.LogLevel)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = defaults.MaxParallelism
	}
	if c.SinkChunkSize == 0 {
		c.SinkChunkSize = defaults.SinkChunkSize
	}
	if c.ParquetBatchSize == 0 {
		c.ParquetBatchSize = defaults.ParquetBatchSize
	}
	if c.ParquetCompression == "" {
		c.ParquetCompression = defaults.ParquetCompression
	}
	if c.ParquetRowGroupSize == 0 {
		c.ParquetRowGroupSize = defaults.ParquetRowGroupSize
	}
	if c.DisplayMaxRows == 0 {
		c.DisplayMaxRows = defaults.DisplayMaxRows
	}
	if c.DisplayMaxColWidth == 0 {
		c.DisplayMaxColWidth = defaults.DisplayMaxColWidth
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	// Boolean fields are left alone so an explicit false survives.
	return c
}

// Workers returns the number of workers an operation may use.
func (c Config) Workers() int {
	n := c.WorkerPoolSize
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, c.MaxParallelism))
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data over the defaults
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromYAML loads configuration from YAML data over the defaults
func LoadFromYAML(data []byte) (Config, error) {
	config := NewConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing YAML configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a JSON or YAML file
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		config, err = LoadFromJSON(data)
	case ".yaml", ".yml":
		config, err = LoadFromYAML(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("loading config file %s: %w", filename, err)
	}

	return config, nil
}

// LoadFromEnv loads configuration from POLECAT_* environment variables on
// top of the defaults. Unparseable values are ignored.
func LoadFromEnv() Config {
	config := NewConfig()

	envInt("PARALLEL_THRESHOLD", &config.ParallelThreshold)
	envInt("WORKER_POOL_SIZE", &config.WorkerPoolSize)
	envInt("MAX_PARALLELISM", &config.MaxParallelism)
	envBool("LIMIT_PUSHDOWN", &config.LimitPushdown)
	envInt("SINK_CHUNK_SIZE", &config.SinkChunkSize)
	envInt("PARQUET_BATCH_SIZE", &config.ParquetBatchSize)
	envString("PARQUET_COMPRESSION", &config.ParquetCompression)
	envInt("PARQUET_ROW_GROUP_SIZE", &config.ParquetRowGroupSize)
	envInt("DISPLAY_MAX_ROWS", &config.DisplayMaxRows)
	envInt("DISPLAY_MAX_COL_WIDTH", &config.DisplayMaxColWidth)
	envString("LOG_LEVEL", &config.LogLevel)
	envBool("METRICS_COLLECTION", &config.MetricsCollection)

	return config
}

func envInt(name string, dst *int) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			*dst = parsed
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(envPrefix + name); val != "" {
		*dst = strings.ToLower(val)
	}
}

// Review validates config and returns warnings about settings that will not
// behave as written on a machine with cpus processors.
func Review(config Config, cpus int) ([]string, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var warnings []string
	if config.WorkerPoolSize > 2*cpus {
		warnings = append(warnings, fmt.Sprintf("worker_pool_size %d is more than twice the %d available CPUs",
			config.WorkerPoolSize, cpus))
	}
	if config.WorkerPoolSize > config.MaxParallelism {
		warnings = append(warnings, fmt.Sprintf("worker_pool_size %d is capped at max_parallelism %d",
			config.WorkerPoolSize, config.MaxParallelism))
	}
	if !config.LimitPushdown {
		warnings = append(warnings, "limit_pushdown is off; Fetch reads whole inputs")
	}
	return warnings, nil
}
