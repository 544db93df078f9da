// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Warehouse.Path != "" {
		t.Errorf("Warehouse.Path = %q, want empty (in-memory)", cfg.Warehouse.Path)
	}
	if cfg.Warehouse.MaxMemory != "2GB" {
		t.Errorf("Warehouse.MaxMemory = %q, want 2GB", cfg.Warehouse.MaxMemory)
	}
	if !cfg.Warehouse.PreserveInsertionOrder {
		t.Error("Warehouse.PreserveInsertionOrder should default to true")
	}
	if cfg.Output.Compression != "zstd" {
		t.Errorf("Output.Compression = %q, want zstd", cfg.Output.Compression)
	}
	if cfg.Output.RowGroupSize != 100_000 {
		t.Errorf("Output.RowGroupSize = %d, want 100000", cfg.Output.RowGroupSize)
	}
	if cfg.Output.Overwrite {
		t.Error("Output.Overwrite should default to false")
	}
	if cfg.Pipeline.BatchSize != 1000 {
		t.Errorf("Pipeline.BatchSize = %d, want 1000", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.Strict {
		t.Error("Pipeline.Strict should default to false")
	}
	if len(cfg.Pipeline.Tables) != len(TableNames) {
		t.Errorf("Pipeline.Tables has %d entries, want %d", len(cfg.Pipeline.Tables), len(TableNames))
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		path string
	}{
		{"SONG_DATA_DIR", "input.song_dir"},
		{"LOG_DATA_DIR", "input.log_dir"},
		{"DUCKDB_PATH", "warehouse.path"},
		{"DUCKDB_MAX_MEMORY", "warehouse.max_memory"},
		{"DUCKDB_THREADS", "warehouse.threads"},
		{"OUTPUT_DIR", "output.dir"},
		{"OUTPUT_COMPRESSION", "output.compression"},
		{"OUTPUT_OVERWRITE", "output.overwrite"},
		{"S3_ENDPOINT", "objectstore.endpoint"},
		{"S3_BUCKET", "objectstore.bucket"},
		{"ETL_BATCH_SIZE", "pipeline.batch_size"},
		{"ETL_DRY_RUN", "pipeline.dry_run"},
		{"ETL_TABLES", "pipeline.tables"},
		{"METRICS_ADDR", "metrics.addr"},
		{"LOG_LEVEL", "logging.level"},
		{"RANDOM_UNRELATED_VAR", ""}, // unmapped keys are skipped
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.path {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.path)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no config file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("pipeline:\n  batch_size: 10\n"), 0o644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("pipeline:\n  batch_size: 10\n"), 0o644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	os.Clearenv()

	// Set required variables
	os.Setenv("SONG_DATA_DIR", "/data/song_data")
	os.Setenv("LOG_DATA_DIR", "/data/log_data")
	os.Setenv("OUTPUT_DIR", "/data/lake")

	// Set some custom values to override defaults
	os.Setenv("ETL_BATCH_SIZE", "500")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("OUTPUT_COMPRESSION", "snappy")
	os.Setenv("ETL_TABLES", "songs, artists")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Input.SongDir != "/data/song_data" {
		t.Errorf("Input.SongDir = %q, want /data/song_data", cfg.Input.SongDir)
	}
	if cfg.Input.LogDir != "/data/log_data" {
		t.Errorf("Input.LogDir = %q, want /data/log_data", cfg.Input.LogDir)
	}
	if cfg.Output.Dir != "/data/lake" {
		t.Errorf("Output.Dir = %q, want /data/lake", cfg.Output.Dir)
	}

	// Verify custom overrides
	if cfg.Pipeline.BatchSize != 500 {
		t.Errorf("Pipeline.BatchSize = %d, want 500", cfg.Pipeline.BatchSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Output.Compression != "snappy" {
		t.Errorf("Output.Compression = %q, want snappy", cfg.Output.Compression)
	}

	// Comma-separated env var becomes a slice
	if len(cfg.Pipeline.Tables) != 2 || cfg.Pipeline.Tables[0] != "songs" || cfg.Pipeline.Tables[1] != "artists" {
		t.Errorf("Pipeline.Tables = %v, want [songs artists]", cfg.Pipeline.Tables)
	}

	// Verify defaults are still applied for unset values
	if cfg.Warehouse.MaxMemory != "2GB" {
		t.Errorf("Warehouse.MaxMemory = %q, want 2GB (default)", cfg.Warehouse.MaxMemory)
	}
	if cfg.Output.RowGroupSize != 100_000 {
		t.Errorf("Output.RowGroupSize = %d, want 100000 (default)", cfg.Output.RowGroupSize)
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
input:
  song_dir: "/catalog/song_data"
  log_dir: "/catalog/log_data"

output:
  dir: "/catalog/lake"
  compression: "gzip"

warehouse:
  max_memory: "4GB"
  threads: 2

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Input.SongDir != "/catalog/song_data" {
		t.Errorf("Input.SongDir = %q, want /catalog/song_data", cfg.Input.SongDir)
	}
	if cfg.Output.Compression != "gzip" {
		t.Errorf("Output.Compression = %q, want gzip", cfg.Output.Compression)
	}
	if cfg.Warehouse.MaxMemory != "4GB" {
		t.Errorf("Warehouse.MaxMemory = %q, want 4GB", cfg.Warehouse.MaxMemory)
	}
	if cfg.Warehouse.Threads != 2 {
		t.Errorf("Warehouse.Threads = %d, want 2", cfg.Warehouse.Threads)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	// Verify defaults are still applied for unset values
	if cfg.Pipeline.BatchSize != 1000 {
		t.Errorf("Pipeline.BatchSize = %d, want 1000 (default)", cfg.Pipeline.BatchSize)
	}
}

// TestLoadWithKoanfEnvOverridesFile verifies ENV > File > Defaults precedence
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
input:
  song_dir: "/from-file/song_data"
  log_dir: "/from-file/log_data"

output:
  dir: "/from-file/lake"

logging:
  level: "info"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)
	os.Setenv("OUTPUT_DIR", "/from-env/lake") // Override output dir from config file
	os.Setenv("LOG_LEVEL", "error")           // Override log level from config file
	os.Setenv("DUCKDB_PATH", "/scratch/etl.duckdb")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Output.Dir != "/from-env/lake" {
		t.Errorf("Output.Dir = %q, want /from-env/lake (env override)", cfg.Output.Dir)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}
	if cfg.Warehouse.Path != "/scratch/etl.duckdb" {
		t.Errorf("Warehouse.Path = %q, want /scratch/etl.duckdb", cfg.Warehouse.Path)
	}

	// File values not overridden by env survive
	if cfg.Input.SongDir != "/from-file/song_data" {
		t.Errorf("Input.SongDir = %q, want /from-file/song_data (file value)", cfg.Input.SongDir)
	}
}

// TestLoadWithKoanfValidation verifies invalid configurations are rejected
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing song dir",
			env: map[string]string{
				"LOG_DATA_DIR": "/data/log_data",
				"OUTPUT_DIR":   "/data/lake",
			},
		},
		{
			name: "missing output dir",
			env: map[string]string{
				"SONG_DATA_DIR": "/data/song_data",
				"LOG_DATA_DIR":  "/data/log_data",
			},
		},
		{
			name: "invalid compression",
			env: map[string]string{
				"SONG_DATA_DIR":      "/data/song_data",
				"LOG_DATA_DIR":       "/data/log_data",
				"OUTPUT_DIR":         "/data/lake",
				"OUTPUT_COMPRESSION": "lzma",
			},
		},
		{
			name: "zero batch size",
			env: map[string]string{
				"SONG_DATA_DIR":  "/data/song_data",
				"LOG_DATA_DIR":   "/data/log_data",
				"OUTPUT_DIR":     "/data/lake",
				"ETL_BATCH_SIZE": "0",
			},
		},
		{
			name: "unknown table",
			env: map[string]string{
				"SONG_DATA_DIR": "/data/song_data",
				"LOG_DATA_DIR":  "/data/log_data",
				"OUTPUT_DIR":    "/data/lake",
				"ETL_TABLES":    "songs,genres",
			},
		},
		{
			name: "s3 output without object store",
			env: map[string]string{
				"SONG_DATA_DIR": "/data/song_data",
				"LOG_DATA_DIR":  "/data/log_data",
				"OUTPUT_DIR":    "s3://lake/star",
			},
		},
		{
			name: "object store enabled without endpoint",
			env: map[string]string{
				"SONG_DATA_DIR": "/data/song_data",
				"LOG_DATA_DIR":  "/data/log_data",
				"OUTPUT_DIR":    "/data/lake",
				"S3_ENABLED":    "true",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			if _, err := LoadWithKoanf(); err == nil {
				t.Error("LoadWithKoanf() expected validation error, got nil")
			}
		})
	}
}

// TestLoadWithKoanfObjectStore verifies a complete s3 configuration loads
func TestLoadWithKoanfObjectStore(t *testing.T) {
	os.Clearenv()
	os.Setenv("SONG_DATA_DIR", "s3://raw/song_data")
	os.Setenv("LOG_DATA_DIR", "s3://raw/log_data")
	os.Setenv("OUTPUT_DIR", "s3://lake/star")
	os.Setenv("S3_ENABLED", "true")
	os.Setenv("S3_ENDPOINT", "minio.local:9000")
	os.Setenv("S3_ACCESS_KEY", "minioadmin")
	os.Setenv("S3_SECRET_KEY", "minioadmin")
	os.Setenv("S3_BUCKET", "lake")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if !cfg.ObjectStore.Enabled {
		t.Error("ObjectStore.Enabled = false, want true")
	}
	if cfg.ObjectStore.Endpoint != "minio.local:9000" {
		t.Errorf("ObjectStore.Endpoint = %q, want minio.local:9000", cfg.ObjectStore.Endpoint)
	}
	if !IsObjectStoreURL(cfg.Output.Dir) {
		t.Errorf("IsObjectStoreURL(%q) = false, want true", cfg.Output.Dir)
	}
}
