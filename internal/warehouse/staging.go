// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package warehouse

import (
	"context"
	"fmt"

	"github.com/tomtom215/astrarium/internal/logging"
	"github.com/tomtom215/astrarium/internal/models"
)

// InsertSongBatch atomically stages a batch of song-catalog records.
// Uses a database transaction to ensure all-or-nothing semantics: a
// failed batch leaves the staging table untouched.
func (db *DB) InsertSongBatch(ctx context.Context, records []*models.SongRecord) (inserted int, err error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Song batch rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO staging_songs (
		num_songs, artist_id, artist_latitude, artist_longitude, artist_location,
		artist_name, song_id, title, duration, year
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare song insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx,
			rec.NumSongs,
			rec.ArtistID,
			rec.ArtistLatitude,
			rec.ArtistLongitude,
			nullIfEmpty(rec.ArtistLocation),
			rec.ArtistName,
			rec.SongID,
			rec.Title,
			rec.Duration,
			rec.Year,
		); err != nil {
			return 0, fmt.Errorf("failed to stage song %s: %w", rec.SongID, err)
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit song batch: %w", err)
	}

	return inserted, nil
}

// InsertEventBatch atomically stages a batch of activity events.
// The loader filters to NextSong events before staging; the transforms
// repeat the page predicate so the invariant holds even when rows of
// other pages are staged directly, as tests do.
func (db *DB) InsertEventBatch(ctx context.Context, events []*models.LogEvent) (inserted int, err error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Event batch rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO staging_events (
		artist, auth, first_name, gender, item_in_session, last_name, length,
		level, location, method, page, registration, session_id, song, status,
		ts, user_agent, user_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, ev := range events {
		var userID interface{}
		if ev.UserID.Valid {
			userID = ev.UserID.Int64
		}

		if _, err = stmt.ExecContext(ctx,
			ev.Artist,
			nullIfEmpty(ev.Auth),
			ev.FirstName,
			ev.Gender,
			ev.ItemInSession,
			ev.LastName,
			ev.Length,
			nullIfEmpty(ev.Level),
			ev.Location,
			nullIfEmpty(ev.Method),
			ev.Page,
			ev.Registration,
			ev.SessionID,
			ev.Song,
			ev.Status,
			ev.TS,
			ev.UserAgent,
			userID,
		); err != nil {
			return 0, fmt.Errorf("failed to stage event ts=%d session=%d: %w", ev.TS, ev.SessionID, err)
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit event batch: %w", err)
	}

	return inserted, nil
}

// StagedCounts returns the number of rows currently staged per table.
func (db *DB) StagedCounts(ctx context.Context) (songs, events int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM staging_songs").Scan(&songs); err != nil {
		return 0, 0, fmt.Errorf("failed to count staged songs: %w", err)
	}
	if err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM staging_events").Scan(&events); err != nil {
		return 0, 0, fmt.Errorf("failed to count staged events: %w", err)
	}
	return songs, events, nil
}

// nullIfEmpty maps empty strings to SQL NULL. The raw catalog encodes
// unknown locations as "" rather than null.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
