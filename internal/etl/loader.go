// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/astrarium/internal/logging"
	"github.com/tomtom215/astrarium/internal/metrics"
	"github.com/tomtom215/astrarium/internal/models"
	"github.com/tomtom215/astrarium/internal/validation"
)

// maxLineBytes bounds a single NDJSON line. Catalog and activity
// records are well under 1 MiB; anything larger is corrupt input.
const maxLineBytes = 1 << 20

// badRecordError aborts a strict run, or a non-strict run that exceeded
// the max_bad_records cap.
type badRecordError struct {
	file   string
	line   int
	reason string
	err    error
}

func (e *badRecordError) Error() string {
	return fmt.Sprintf("bad record at %s:%d (%s): %v", e.file, e.line, e.reason, e.err)
}

func (e *badRecordError) Unwrap() error { return e.err }

// loadSongs streams every catalog file into the warehouse staging table.
func (p *Pipeline) loadSongs(ctx context.Context, files []string) error {
	batch := make([]*models.SongRecord, 0, p.cfg.Pipeline.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		n, err := p.db.InsertSongBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to stage song batch: %w", err)
		}
		latency := time.Since(start)
		p.stats.RecordBatch(SourceSongs, n, latency)
		metrics.RecordBatchInsert(SourceSongs, n, latency)
		batch = batch[:0]
		return nil
	}

	for _, file := range files {
		err := p.readNDJSON(ctx, SourceSongs, file, func(line []byte, lineNo int) error {
			rec := &models.SongRecord{}
			if err := json.Unmarshal(line, rec); err != nil {
				return p.handleBadRecord(SourceSongs, file, lineNo, "decode", err)
			}
			if verr := validation.ValidateStruct(rec); verr != nil {
				return p.handleBadRecord(SourceSongs, file, lineNo, "validate", verr)
			}

			batch = append(batch, rec)
			if len(batch) >= p.cfg.Pipeline.BatchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return flush()
}

// loadEvents streams every activity file into the warehouse staging
// table. Non-play pages are filtered here rather than staged: SQL
// transforms repeat the page predicate defensively, but filtering early
// keeps the staging table proportional to actual plays.
func (p *Pipeline) loadEvents(ctx context.Context, files []string) error {
	batch := make([]*models.LogEvent, 0, p.cfg.Pipeline.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		n, err := p.db.InsertEventBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to stage event batch: %w", err)
		}
		latency := time.Since(start)
		p.stats.RecordBatch(SourceEvents, n, latency)
		metrics.RecordBatchInsert(SourceEvents, n, latency)
		batch = batch[:0]
		return nil
	}

	for _, file := range files {
		err := p.readNDJSON(ctx, SourceEvents, file, func(line []byte, lineNo int) error {
			ev := &models.LogEvent{}
			if err := json.Unmarshal(line, ev); err != nil {
				return p.handleBadRecord(SourceEvents, file, lineNo, "decode", err)
			}
			if verr := validation.ValidateStruct(ev); verr != nil {
				return p.handleBadRecord(SourceEvents, file, lineNo, "validate", verr)
			}

			if !ev.IsNextSong() {
				p.stats.Sources[SourceEvents].Filtered++
				metrics.RecordFiltered(SourceEvents)
				return nil
			}

			// Play-specific contract: a NextSong event names what was
			// played and who played it.
			if err := validatePlay(ev); err != nil {
				return p.handleBadRecord(SourceEvents, file, lineNo, "validate", err)
			}

			batch = append(batch, ev)
			if len(batch) >= p.cfg.Pipeline.BatchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return flush()
}

// validatePlay checks the cross-field requirements of a NextSong event
// that struct tags cannot express.
func validatePlay(ev *models.LogEvent) error {
	switch {
	case ev.Song == nil || *ev.Song == "":
		return fmt.Errorf("play event has no song title")
	case ev.Artist == nil || *ev.Artist == "":
		return fmt.Errorf("play event has no artist name")
	case ev.Length == nil:
		return fmt.Errorf("play event has no length")
	case !ev.UserID.Valid:
		return fmt.Errorf("play event has no user id")
	case ev.Level == "":
		return fmt.Errorf("play event has no level")
	default:
		return nil
	}
}

// readNDJSON streams one NDJSON file line by line, invoking handle for
// each non-empty line. Context cancellation is checked between lines so
// a signal interrupts a load mid-file.
func (p *Pipeline) readNDJSON(ctx context.Context, source, path string, handle func(line []byte, lineNo int) error) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from the configured input tree
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Str("file", path).Msg("Error closing input file")
		}
	}()

	p.stats.Sources[source].Files++
	metrics.RecordFileRead(source)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		p.stats.Sources[source].Lines++
		metrics.RecordLines(source, 1)

		if err := handle(line, lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	logging.Debug().
		Str("source", source).
		Str("file", path).
		Int("lines", lineNo).
		Msg("Input file loaded")

	return nil
}

// handleBadRecord applies the malformed-record policy: abort in strict
// mode, otherwise count, log, and keep going until the cap is hit.
func (p *Pipeline) handleBadRecord(source, file string, line int, reason string, cause error) error {
	if p.cfg.Pipeline.Strict {
		return &badRecordError{file: file, line: line, reason: reason, err: cause}
	}

	p.stats.Sources[source].Malformed++
	metrics.RecordMalformed(source, reason)

	logging.Warn().
		Err(cause).
		Str("source", source).
		Str("file", file).
		Int("line", line).
		Str("reason", reason).
		Msg("Skipping bad record")

	if limit := p.cfg.Pipeline.MaxBadRecords; limit > 0 && p.stats.TotalMalformed() > int64(limit) {
		return fmt.Errorf("bad record cap exceeded (%d): last at %s:%d: %w", limit, file, line, cause)
	}
	return nil
}
