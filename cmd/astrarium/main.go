// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package main is the entry point for the astrarium batch ETL.
//
// Astrarium converts a music streaming service's raw NDJSON datasets
// (a song catalog and user activity logs) into an analytics-friendly
// star schema and writes it out as partitioned Parquet.
//
// # Run Sequence
//
// The binary initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Logging: Initialize zerolog from the logging configuration
//  3. Metrics (optional): Prometheus /metrics endpoint when METRICS_ENABLED=true
//  4. Warehouse: Open an embedded DuckDB database and create the staging tables
//  5. Object store (optional): MinIO S3 client when S3_ENABLED=true
//  6. Pipeline: stage inputs, load, transform, export, verify, upload
//
// The process exits 0 on a successful run and 1 on any failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (SONG_DATA_DIR, LOG_DATA_DIR, OUTPUT_DIR, ...)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Example Usage
//
// Local directories in and out:
//
//	export SONG_DATA_DIR=./data/song_data
//	export LOG_DATA_DIR=./data/log_data
//	export OUTPUT_DIR=./lake
//	./astrarium
//
// Reading from and writing to S3-compatible storage:
//
//	export S3_ENABLED=true
//	export S3_ENDPOINT=localhost:9000
//	export S3_ACCESS_KEY=minioadmin
//	export S3_SECRET_KEY=minioadmin
//	export S3_BUCKET=lake
//	export SONG_DATA_DIR=s3://lake/raw/song_data
//	export LOG_DATA_DIR=s3://lake/raw/log_data
//	export OUTPUT_DIR=s3://lake/warehouse
//	./astrarium
//
// Dry run (load and transform, skip the Parquet export):
//
//	export ETL_DRY_RUN=true
//	./astrarium
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the run context. In-flight work stops at
// the next cancellation point and the warehouse closes cleanly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/astrarium/internal/config"
	"github.com/tomtom215/astrarium/internal/etl"
	"github.com/tomtom215/astrarium/internal/logging"
	"github.com/tomtom215/astrarium/internal/metrics"
	"github.com/tomtom215/astrarium/internal/objectstore"
	"github.com/tomtom215/astrarium/internal/warehouse"
)

func main() {
	os.Exit(run())
}

// run holds the real main body so deferred closes fire before exit.
func run() int {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("song_dir", cfg.Input.SongDir).
		Str("log_dir", cfg.Input.LogDir).
		Str("output_dir", cfg.Output.Dir).
		Str("warehouse_path", cfg.Warehouse.Path).
		Msg("Configuration loaded")

	// Cancel the run context on SIGINT/SIGTERM so the pipeline stops at
	// its next cancellation point.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional Prometheus endpoint for scraping during long runs
	if cfg.Metrics.Enabled {
		srv := metrics.StartServer(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error stopping metrics server")
			}
		}()
		logging.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics server started")
	}

	// Open the embedded DuckDB warehouse and create the staging tables
	db, err := warehouse.New(&cfg.Warehouse)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize warehouse")
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing warehouse")
		}
	}()
	logging.Info().Str("path", cfg.Warehouse.Path).Msg("Warehouse initialized")

	// Object store client for s3:// inputs and outputs (optional)
	var store *objectstore.Client
	if cfg.ObjectStore.Enabled {
		store, err = objectstore.New(ctx, &cfg.ObjectStore)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to connect to object store")
			return 1
		}
		logging.Info().
			Str("endpoint", cfg.ObjectStore.Endpoint).
			Str("bucket", cfg.ObjectStore.Bucket).
			Msg("Object store connected")
	}

	if err := etl.New(cfg, db, store).Run(ctx); err != nil {
		logging.Error().Err(err).Msg("Pipeline failed")
		return 1
	}

	return 0
}
