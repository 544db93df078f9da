// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

/*
Package metrics provides Prometheus instrumentation for the ETL pipeline.

All instruments are registered with the default registry via promauto and
cover the three phases of a run:

Input:
  - etl_files_read_total, etl_lines_read_total (counters, by source)
  - etl_records_malformed_total (counter, by source and reason)
  - etl_records_filtered_total (counter, by source)
  - etl_records_staged_total (counter, by source)

Warehouse:
  - etl_batch_insert_duration_seconds (histogram, by source)
  - etl_table_rows (gauge, by table)
  - etl_rows_exported_total (counter, by table)

Pipeline:
  - etl_stage_duration_seconds (histogram, by stage)
  - etl_stage_errors_total (counter, by stage)
  - etl_runs_completed_total (counter, by outcome)

# Metrics Endpoint

A batch job has no always-on HTTP surface, so exposition is opt-in: with
metrics.enabled set, StartServer serves /metrics in Prometheus text
format for the duration of the run and is shut down before exit. This
lets a scraper or a sidecar capture progress on long backfills.

	curl http://localhost:9090/metrics
*/
package metrics
