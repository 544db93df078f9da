// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"

	"github.com/tomtom215/astrarium/internal/logging"
)

// Source dataset names used in stats, metrics labels, and the manifest.
const (
	SourceSongs  = "songs"
	SourceEvents = "events"
)

// SourceStats accumulates per-dataset load counters.
type SourceStats struct {
	// Files is the number of NDJSON files read.
	Files int64

	// Lines is the number of lines read, including malformed and
	// filtered ones.
	Lines int64

	// Malformed is the number of lines that failed JSON decoding or
	// record validation and were skipped (non-strict runs).
	Malformed int64

	// Filtered is the number of well-formed records excluded by the
	// page filter. Always zero for the song catalog.
	Filtered int64

	// Staged is the number of records inserted into the staging table.
	Staged int64
}

// RunStats aggregates everything a completed run reports: load counters,
// table row counts, stage durations, and batch insert latency
// distributions. A pipeline runs on a single goroutine, so RunStats is
// not synchronized.
type RunStats struct {
	// RunID uniquely identifies this run in logs and the manifest.
	RunID uuid.UUID

	// StartTime is when the run started.
	StartTime time.Time

	// EndTime is when the run completed (zero while running).
	EndTime time.Time

	// DryRun indicates the run skipped export, verify, and upload.
	DryRun bool

	// Sources holds per-dataset load counters.
	Sources map[string]*SourceStats

	// TableRows maps each built table to its warehouse row count.
	TableRows map[string]int64

	// ExportedRows maps each exported table to its Parquet row count
	// confirmed by readback. Empty on dry runs.
	ExportedRows map[string]int64

	// StageDurations maps pipeline stage names to wall time.
	StageDurations map[string]time.Duration

	// batchLatencies tracks staging batch insert latency per source in
	// microseconds, up to one minute per batch.
	batchLatencies map[string]*hdrhistogram.Histogram
}

// NewRunStats initializes stats for a fresh run.
func NewRunStats(dryRun bool) *RunStats {
	return &RunStats{
		RunID:     uuid.New(),
		StartTime: time.Now().UTC(),
		DryRun:    dryRun,
		Sources: map[string]*SourceStats{
			SourceSongs:  {},
			SourceEvents: {},
		},
		TableRows:      make(map[string]int64),
		ExportedRows:   make(map[string]int64),
		StageDurations: make(map[string]time.Duration),
		batchLatencies: map[string]*hdrhistogram.Histogram{
			SourceSongs:  hdrhistogram.New(1, time.Minute.Microseconds(), 3),
			SourceEvents: hdrhistogram.New(1, time.Minute.Microseconds(), 3),
		},
	}
}

// Duration returns how long the run has been going, or took.
func (s *RunStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// RecordBatch records one staging batch insert.
func (s *RunStats) RecordBatch(source string, rows int, latency time.Duration) {
	s.Sources[source].Staged += int64(rows)
	if h, ok := s.batchLatencies[source]; ok {
		// RecordValue only fails outside the histogram range; clamp
		// instead of losing the sample.
		us := latency.Microseconds()
		if us < 1 {
			us = 1
		}
		if us > time.Minute.Microseconds() {
			us = time.Minute.Microseconds()
		}
		_ = h.RecordValue(us)
	}
}

// BatchLatency holds a latency distribution summary in milliseconds.
type BatchLatency struct {
	Batches int64   `yaml:"batches"`
	P50Ms   float64 `yaml:"p50_ms"`
	P95Ms   float64 `yaml:"p95_ms"`
	P99Ms   float64 `yaml:"p99_ms"`
	MaxMs   float64 `yaml:"max_ms"`
}

// BatchLatencySummary returns the insert latency distribution for a
// source dataset. Zero-valued when no batches were recorded.
func (s *RunStats) BatchLatencySummary(source string) BatchLatency {
	h, ok := s.batchLatencies[source]
	if !ok || h.TotalCount() == 0 {
		return BatchLatency{}
	}
	return BatchLatency{
		Batches: h.TotalCount(),
		P50Ms:   float64(h.ValueAtQuantile(50)) / 1000,
		P95Ms:   float64(h.ValueAtQuantile(95)) / 1000,
		P99Ms:   float64(h.ValueAtQuantile(99)) / 1000,
		MaxMs:   float64(h.Max()) / 1000,
	}
}

// TotalMalformed sums malformed counts across sources, used to enforce
// the max_bad_records cap.
func (s *RunStats) TotalMalformed() int64 {
	var total int64
	for _, src := range s.Sources {
		total += src.Malformed
	}
	return total
}

// LogSummary emits the end-of-run stats line.
func (s *RunStats) LogSummary() {
	songs := s.Sources[SourceSongs]
	events := s.Sources[SourceEvents]

	evt := logging.Info().
		Str("run_id", s.RunID.String()).
		Bool("dry_run", s.DryRun).
		Dur("duration", s.Duration()).
		Int64("song_files", songs.Files).
		Int64("songs_staged", songs.Staged).
		Int64("event_files", events.Files).
		Int64("events_staged", events.Staged).
		Int64("events_filtered", events.Filtered).
		Int64("malformed", s.TotalMalformed())

	for table, rows := range s.TableRows {
		evt = evt.Int64("rows_"+table, rows)
	}

	lat := s.BatchLatencySummary(SourceEvents)
	if lat.Batches > 0 {
		evt = evt.Float64("event_batch_p95_ms", lat.P95Ms)
	}

	evt.Msg("Run completed")
}
