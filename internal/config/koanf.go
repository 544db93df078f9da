// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/astrarium/config.yaml",
	"/etc/astrarium/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			SongDir: "",
			LogDir:  "",
		},
		Warehouse: WarehouseConfig{
			Path:                   "", // transient in-memory database
			MaxMemory:              "2GB",
			Threads:                0,    // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true, // DuckDB default
		},
		Output: OutputConfig{
			Dir:          "",
			Compression:  "zstd",
			RowGroupSize: 100_000,
			Overwrite:    false,
		},
		ObjectStore: ObjectStoreConfig{
			Enabled:   false,
			Endpoint:  "",
			AccessKey: "",
			SecretKey: "",
			UseSSL:    false,
			Bucket:    "",
			Region:    "us-east-1",
		},
		Pipeline: PipelineConfig{
			BatchSize:     1000,
			Strict:        false,
			MaxBadRecords: 0, // unlimited
			DryRun:        false,
			Tables:        append([]string(nil), TableNames...),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// SONG_DATA_DIR -> input.song_dir
	// DUCKDB_MAX_MEMORY -> warehouse.max_memory
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"pipeline.tables",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - SONG_DATA_DIR -> input.song_dir
//   - LOG_DATA_DIR -> input.log_dir
//   - DUCKDB_PATH -> warehouse.path
//   - OUTPUT_DIR -> output.dir
//   - S3_ENDPOINT -> objectstore.endpoint
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Input mappings
		"song_data_dir": "input.song_dir",
		"log_data_dir":  "input.log_dir",

		// Warehouse mappings
		"duckdb_path":           "warehouse.path",
		"duckdb_max_memory":     "warehouse.max_memory",
		"duckdb_threads":        "warehouse.threads",
		"duckdb_preserve_order": "warehouse.preserve_insertion_order",

		// Output mappings
		"output_dir":            "output.dir",
		"output_compression":    "output.compression",
		"output_row_group_size": "output.row_group_size",
		"output_overwrite":      "output.overwrite",

		// Object store mappings
		"s3_enabled":    "objectstore.enabled",
		"s3_endpoint":   "objectstore.endpoint",
		"s3_access_key": "objectstore.access_key",
		"s3_secret_key": "objectstore.secret_key",
		"s3_use_ssl":    "objectstore.use_ssl",
		"s3_bucket":     "objectstore.bucket",
		"s3_region":     "objectstore.region",

		// Pipeline mappings
		"etl_batch_size":      "pipeline.batch_size",
		"etl_strict":          "pipeline.strict",
		"etl_max_bad_records": "pipeline.max_bad_records",
		"etl_dry_run":         "pipeline.dry_run",
		"etl_tables":          "pipeline.tables",

		// Metrics mappings
		"metrics_enabled": "metrics.enabled",
		"metrics_addr":    "metrics.addr",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
