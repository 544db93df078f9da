// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package warehouse

import (
	"context"
	"fmt"

	"github.com/tomtom215/astrarium/internal/models"
)

// Songs returns the songs dimension ordered by song_id.
func (db *DB) Songs(ctx context.Context) ([]models.SongRow, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT song_id, title, artist_id, year, duration FROM songs ORDER BY song_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.SongRow
	for rows.Next() {
		var r models.SongRow
		if err := rows.Scan(&r.SongID, &r.Title, &r.ArtistID, &r.Year, &r.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan song row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Artists returns the artists dimension ordered by artist_id.
func (db *DB) Artists(ctx context.Context) ([]models.ArtistRow, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT artist_id, name, location, latitude, longitude FROM artists ORDER BY artist_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.ArtistRow
	for rows.Next() {
		var r models.ArtistRow
		if err := rows.Scan(&r.ArtistID, &r.Name, &r.Location, &r.Latitude, &r.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan artist row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Users returns the users dimension ordered by user_id.
func (db *DB) Users(ctx context.Context) ([]models.UserRow, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT user_id, first_name, last_name, gender, level FROM users ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.UserRow
	for rows.Next() {
		var r models.UserRow
		if err := rows.Scan(&r.UserID, &r.FirstName, &r.LastName, &r.Gender, &r.Level); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TimeRows returns the time dimension ordered by start_time.
func (db *DB) TimeRows(ctx context.Context) ([]models.TimeRow, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT start_time, hour, day, week, month, year, weekday FROM "time" ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query time: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.TimeRow
	for rows.Next() {
		var r models.TimeRow
		if err := rows.Scan(&r.StartTime, &r.Hour, &r.Day, &r.Week, &r.Month, &r.Year, &r.Weekday); err != nil {
			return nil, fmt.Errorf("failed to scan time row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Songplays returns the fact table ordered by songplay_id.
func (db *DB) Songplays(ctx context.Context) ([]models.SongplayRow, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT songplay_id, start_time, user_id, level, song_id, artist_id,
		        session_id, location, user_agent
		 FROM songplays ORDER BY songplay_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query songplays: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.SongplayRow
	for rows.Next() {
		var r models.SongplayRow
		if err := rows.Scan(&r.SongplayID, &r.StartTime, &r.UserID, &r.Level,
			&r.SongID, &r.ArtistID, &r.SessionID, &r.Location, &r.UserAgent); err != nil {
			return nil, fmt.Errorf("failed to scan songplay row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
