// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package warehouse provides the embedded DuckDB engine that performs the
// relational half of the pipeline: staging raw records, deduplicating
// dimensions, joining the fact table, and writing partitioned Parquet.
//
// # Architecture
//
// The package is organized into domain-specific files:
//
//   - warehouse.go: engine lifecycle (connection, tuning, cleanup)
//   - schema.go: staging table DDL
//   - staging.go: transactional batch inserts of raw records
//   - transform.go: star-schema builds (songs, artists, users, time, songplays)
//   - export.go: Parquet COPY export and readback verification
//   - query.go: typed row scans for verification and tests
//
// The loaders decode and validate NDJSON in Go and stage rows here; all
// set-oriented work (deduplication windows, the catalog join, timestamp
// decomposition) runs as SQL inside DuckDB. Parquet writing uses DuckDB's
// native COPY with hive-style partitioning.
package warehouse
