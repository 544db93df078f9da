// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package config

import (
	"fmt"
	"strings"
)

// validCompressions lists the Parquet codecs DuckDB's COPY accepts.
var validCompressions = map[string]bool{
	"zstd":         true,
	"snappy":       true,
	"gzip":         true,
	"uncompressed": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateInput(); err != nil {
		return err
	}

	if err := c.validateWarehouse(); err != nil {
		return err
	}

	if err := c.validateOutput(); err != nil {
		return err
	}

	if err := c.validateObjectStore(); err != nil {
		return err
	}

	if err := c.validatePipeline(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateInput checks that both datasets are configured.
func (c *Config) validateInput() error {
	if c.Input.SongDir == "" {
		return fmt.Errorf("SONG_DATA_DIR is required")
	}
	if c.Input.LogDir == "" {
		return fmt.Errorf("LOG_DATA_DIR is required")
	}
	if err := c.validateLocation(c.Input.SongDir, "SONG_DATA_DIR"); err != nil {
		return err
	}
	return c.validateLocation(c.Input.LogDir, "LOG_DATA_DIR")
}

func (c *Config) validateWarehouse() error {
	if c.Warehouse.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Warehouse.Threads)
	}
	if c.Warehouse.MaxMemory == "" {
		return fmt.Errorf("DUCKDB_MAX_MEMORY must not be empty")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	if err := c.validateLocation(c.Output.Dir, "OUTPUT_DIR"); err != nil {
		return err
	}
	if !validCompressions[strings.ToLower(c.Output.Compression)] {
		return fmt.Errorf("OUTPUT_COMPRESSION must be one of zstd, snappy, gzip, uncompressed; got %q", c.Output.Compression)
	}
	if c.Output.RowGroupSize <= 0 {
		return fmt.Errorf("OUTPUT_ROW_GROUP_SIZE must be > 0, got %d", c.Output.RowGroupSize)
	}
	return nil
}

// validateObjectStore requires connection settings when enabled, and
// requires enablement when any configured location points at s3://.
func (c *Config) validateObjectStore() error {
	if !c.ObjectStore.Enabled {
		for _, loc := range []struct{ val, name string }{
			{c.Input.SongDir, "SONG_DATA_DIR"},
			{c.Input.LogDir, "LOG_DATA_DIR"},
			{c.Output.Dir, "OUTPUT_DIR"},
		} {
			if IsObjectStoreURL(loc.val) {
				return fmt.Errorf("%s is an s3:// URL but S3_ENABLED is false", loc.name)
			}
		}
		return nil
	}

	if c.ObjectStore.Endpoint == "" {
		return fmt.Errorf("S3_ENDPOINT is required when S3_ENABLED=true")
	}
	if strings.Contains(c.ObjectStore.Endpoint, "://") {
		return fmt.Errorf("S3_ENDPOINT must be host:port without a scheme, got %q", c.ObjectStore.Endpoint)
	}
	if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENABLED=true")
	}
	if c.ObjectStore.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("ETL_BATCH_SIZE must be > 0, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.MaxBadRecords < 0 {
		return fmt.Errorf("ETL_MAX_BAD_RECORDS must be >= 0, got %d", c.Pipeline.MaxBadRecords)
	}
	if len(c.Pipeline.Tables) == 0 {
		return fmt.Errorf("ETL_TABLES must name at least one table")
	}

	known := make(map[string]bool, len(TableNames))
	for _, t := range TableNames {
		known[t] = true
	}
	for _, t := range c.Pipeline.Tables {
		if !known[t] {
			return fmt.Errorf("ETL_TABLES contains unknown table %q (valid: %s)", t, strings.Join(TableNames, ", "))
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be a valid level, got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateLocation rejects URL schemes other than s3://.
func (c *Config) validateLocation(loc, name string) error {
	if idx := strings.Index(loc, "://"); idx >= 0 && loc[:idx] != "s3" {
		return fmt.Errorf("%s has unsupported scheme %q (only s3:// or local paths)", name, loc[:idx])
	}
	return nil
}

// IsObjectStoreURL reports whether loc addresses the object store.
func IsObjectStoreURL(loc string) bool {
	return strings.HasPrefix(loc, "s3://")
}
