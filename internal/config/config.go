// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package config

// Config holds all application configuration loaded from defaults, an
// optional YAML config file, and environment variables.
//
// Configuration Categories:
//
//  1. Data Flow:
//     - Input: raw song-catalog and user-activity NDJSON locations
//     - Output: star-schema Parquet destination and format options
//
//  2. Infrastructure:
//     - Warehouse: embedded DuckDB engine tuning (path, memory, threads)
//     - ObjectStore: optional S3-compatible lake for inputs and outputs
//
//  3. Execution:
//     - Pipeline: batching, malformed-record policy, table selection, dry run
//
//  4. Observability:
//     - Metrics: Prometheus exposition during a run
//     - Logging: log levels and output formats
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Input       InputConfig       `koanf:"input"`
	Warehouse   WarehouseConfig   `koanf:"warehouse"`
	Output      OutputConfig      `koanf:"output"`
	ObjectStore ObjectStoreConfig `koanf:"objectstore"` // Optional: S3-compatible staging
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// InputConfig locates the raw NDJSON datasets.
//
// Both directories are walked recursively; every *.json file found is
// treated as NDJSON (one JSON object per line). Paths may be local
// filesystem paths or s3:// URLs when the object store is enabled.
type InputConfig struct {
	// SongDir is the root of the song-catalog dataset
	// (e.g. data/song_data with files nested by song ID prefix).
	SongDir string `koanf:"song_dir"`

	// LogDir is the root of the user-activity dataset
	// (e.g. data/log_data with files nested by year/month).
	LogDir string `koanf:"log_dir"`
}

// WarehouseConfig holds the embedded DuckDB engine configuration.
type WarehouseConfig struct {
	// Path is the DuckDB database file. Empty means a transient
	// in-memory database, which is the normal mode for a batch run.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets DuckDB worker threads. 0 = use runtime.NumCPU().
	Threads int `koanf:"threads"`

	// PreserveInsertionOrder keeps DuckDB's default ordering guarantees.
	// Disabling can reduce memory pressure on large imports.
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`
}

// OutputConfig controls the Parquet destination.
type OutputConfig struct {
	// Dir is the root directory for the star schema. Each table is
	// written beneath it (songs/, artists/, users/, time/, songplays/).
	// May be a local path or an s3:// URL when the object store is enabled.
	Dir string `koanf:"dir"`

	// Compression is the Parquet codec: zstd, snappy, gzip, or uncompressed.
	Compression string `koanf:"compression"`

	// RowGroupSize is the Parquet row group size in rows.
	RowGroupSize int `koanf:"row_group_size"`

	// Overwrite allows replacing table directories that already contain
	// data from a previous run. Without it, a non-empty target fails fast.
	Overwrite bool `koanf:"overwrite"`
}

// ObjectStoreConfig holds S3-compatible object storage settings (MinIO, S3).
type ObjectStoreConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Endpoint  string `koanf:"endpoint"` // host:port, no scheme
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
}

// PipelineConfig controls run execution.
type PipelineConfig struct {
	// BatchSize is the number of staged rows per multi-row INSERT.
	BatchSize int `koanf:"batch_size"`

	// Strict aborts the run on the first malformed input record.
	// When false, malformed records are skipped, logged, and counted.
	Strict bool `koanf:"strict"`

	// MaxBadRecords aborts a non-strict run once more than this many
	// malformed records have been skipped. 0 = unlimited.
	MaxBadRecords int `koanf:"max_bad_records"`

	// DryRun executes the full read/transform path but writes no Parquet.
	DryRun bool `koanf:"dry_run"`

	// Tables selects which star-schema tables to build. Defaults to all:
	// songs, artists, users, time, songplays.
	Tables []string `koanf:"tables"`
}

// MetricsConfig controls Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled serves /metrics on Addr for the duration of the run.
	Enabled bool `koanf:"enabled"`

	// Addr is the listen address for the metrics endpoint.
	Addr string `koanf:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json, console
	Caller bool   `koanf:"caller"` // include caller file:line
}

// TableNames lists the star-schema tables in build order.
// Dimensions are built before the fact so lookups resolve.
var TableNames = []string{"songs", "artists", "users", "time", "songplays"}

// Load loads, layers, and validates the full configuration.
// It is the single entry point callers should use.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
