// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Input metrics

	// FilesRead counts input NDJSON files read per source dataset.
	FilesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_files_read_total",
			Help: "Total number of input NDJSON files read",
		},
		[]string{"source"},
	)

	// LinesRead counts NDJSON lines read per source dataset, including
	// malformed and filtered lines.
	LinesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_lines_read_total",
			Help: "Total number of NDJSON lines read",
		},
		[]string{"source"},
	)

	// RecordsMalformed counts lines that failed JSON decoding or record
	// validation, by source and failure kind.
	RecordsMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_malformed_total",
			Help: "Total number of malformed or invalid input records",
		},
		[]string{"source", "reason"},
	)

	// RecordsFiltered counts well-formed records excluded by the
	// pipeline filter (activity events whose page is not NextSong).
	RecordsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_filtered_total",
			Help: "Total number of records excluded by the page filter",
		},
		[]string{"source"},
	)

	// RecordsStaged counts records successfully staged in the warehouse.
	RecordsStaged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_staged_total",
			Help: "Total number of records staged in the warehouse",
		},
		[]string{"source"},
	)

	// Warehouse metrics

	// BatchInsertDuration tracks staging batch insert latency.
	BatchInsertDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etl_batch_insert_duration_seconds",
			Help:    "Duration of staging batch inserts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// TableRows reports the row count of each built star-schema table.
	TableRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "etl_table_rows",
			Help: "Row count of each built star-schema table",
		},
		[]string{"table"},
	)

	// RowsExported counts rows written to Parquet per table.
	RowsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_rows_exported_total",
			Help: "Total number of rows exported to Parquet",
		},
		[]string{"table"},
	)

	// Pipeline metrics

	// StageDuration tracks wall time per pipeline stage
	// (load_songs, load_events, transform, export, verify, upload).
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etl_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	// StageErrors counts stage failures. A batch run aborts on the first
	// stage error, so any nonzero value marks a failed run.
	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_stage_errors_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	// RunsCompleted counts finished runs by outcome (success, failure).
	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_runs_completed_total",
			Help: "Total number of completed ETL runs by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordFileRead records one input file read for a source.
func RecordFileRead(source string) {
	FilesRead.WithLabelValues(source).Inc()
}

// RecordLines records lines read from a source file.
func RecordLines(source string, n int) {
	LinesRead.WithLabelValues(source).Add(float64(n))
}

// RecordMalformed records one malformed or invalid input record.
func RecordMalformed(source, reason string) {
	RecordsMalformed.WithLabelValues(source, reason).Inc()
}

// RecordFiltered records one record excluded by the page filter.
func RecordFiltered(source string) {
	RecordsFiltered.WithLabelValues(source).Inc()
}

// RecordBatchInsert records a staging batch insert and its latency.
func RecordBatchInsert(source string, rows int, duration time.Duration) {
	RecordsStaged.WithLabelValues(source).Add(float64(rows))
	BatchInsertDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordTableBuilt records the row count of a built star-schema table.
func RecordTableBuilt(table string, rows int64) {
	TableRows.WithLabelValues(table).Set(float64(rows))
}

// RecordExport records rows exported to Parquet for a table.
func RecordExport(table string, rows int64) {
	RowsExported.WithLabelValues(table).Add(float64(rows))
}

// RecordStage records a completed pipeline stage. Failed stages count
// toward StageErrors; the duration is observed either way.
func RecordStage(stage string, duration time.Duration, err error) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		StageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordRun records a finished run outcome.
func RecordRun(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RunsCompleted.WithLabelValues(outcome).Inc()
}
