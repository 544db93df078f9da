// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package etl orchestrates a batch run end to end.
//
// A run moves through fixed stages:
//
//  1. stage_inputs: s3:// input locations are downloaded to local
//     staging directories; local paths pass through.
//  2. load_songs / load_events: NDJSON files are discovered, decoded,
//     validated, and batch-inserted into warehouse staging. Malformed
//     records follow the configured policy (skip and count, or abort).
//     Activity events are filtered to page == "NextSong" here.
//  3. transform: the five star-schema tables are built in SQL.
//  4. export: each table is written to partitioned Parquet, honoring
//     overwrite semantics per destination.
//  5. verify: every written table is read back; row count and column
//     set must match the warehouse.
//  6. upload: for s3 destinations, the staged lake is pushed object by
//     object; a manifest.yaml written beside the tables records what
//     the run produced.
//
// Failures abort the run at the failing stage. There is no retry and no
// partial-output guarantee; rerunning with output.overwrite replaces
// whatever a failed run left behind.
package etl
