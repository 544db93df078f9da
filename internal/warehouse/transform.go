// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package warehouse

import (
	"context"
	"fmt"
)

// Star-schema table names.
const (
	TableSongs     = "songs"
	TableArtists   = "artists"
	TableUsers     = "users"
	TableTime      = "time"
	TableSongplays = "songplays"
)

// buildSongsSQL deduplicates the catalog per song_id. The window order
// makes the surviving row deterministic when a song_id repeats.
const buildSongsSQL = `
CREATE OR REPLACE TABLE songs AS
SELECT song_id, title, artist_id, year, duration
FROM staging_songs
QUALIFY row_number() OVER (PARTITION BY song_id ORDER BY title, artist_id) = 1`

// buildArtistsSQL deduplicates artists out of the denormalized catalog.
// Attributes come from the lexically-first song of each artist.
const buildArtistsSQL = `
CREATE OR REPLACE TABLE artists AS
SELECT artist_id,
       artist_name      AS name,
       artist_location  AS location,
       artist_latitude  AS latitude,
       artist_longitude AS longitude
FROM staging_songs
QUALIFY row_number() OVER (PARTITION BY artist_id ORDER BY song_id) = 1`

// buildUsersSQL keeps one row per user, last-write-wins by event time,
// so a mid-month free-to-paid upgrade surfaces the current level.
const buildUsersSQL = `
CREATE OR REPLACE TABLE users AS
SELECT user_id, first_name, last_name, gender, level
FROM staging_events
WHERE page = 'NextSong' AND user_id IS NOT NULL
QUALIFY row_number() OVER (PARTITION BY user_id ORDER BY ts DESC) = 1`

// buildTimeSQL decomposes each distinct play timestamp. Timestamps are
// canonical UTC; weekday follows DuckDB numbering (0=Sunday..6=Saturday).
const buildTimeSQL = `
CREATE OR REPLACE TABLE "time" AS
WITH stamps AS (
    SELECT DISTINCT epoch_ms(ts) AS start_time
    FROM staging_events
    WHERE page = 'NextSong'
)
SELECT start_time,
       hour(start_time)      AS hour,
       day(start_time)       AS day,
       week(start_time)      AS week,
       month(start_time)     AS month,
       year(start_time)      AS year,
       dayofweek(start_time) AS weekday
FROM stamps`

// buildSongplaysSQL produces exactly one fact row per NextSong event.
// The catalog side is pre-deduplicated on the join key so a repeated
// (title, artist, duration) in the catalog cannot fan out an event into
// multiple fact rows. Unmatched plays keep null song_id/artist_id.
// year and month are materialized for partitioned export.
const buildSongplaysSQL = `
CREATE OR REPLACE TABLE songplays AS
WITH plays AS (
    SELECT *
    FROM staging_events
    WHERE page = 'NextSong'
),
catalog AS (
    SELECT title, artist_name, duration, song_id, artist_id
    FROM staging_songs
    QUALIFY row_number() OVER (PARTITION BY title, artist_name, duration ORDER BY song_id) = 1
)
SELECT row_number() OVER (ORDER BY p.ts, p.session_id, p.item_in_session) AS songplay_id,
       epoch_ms(p.ts)           AS start_time,
       p.user_id                AS user_id,
       p.level                  AS level,
       c.song_id                AS song_id,
       c.artist_id              AS artist_id,
       p.session_id             AS session_id,
       p.location               AS location,
       p.user_agent             AS user_agent,
       year(epoch_ms(p.ts))     AS year,
       month(epoch_ms(p.ts))    AS month
FROM plays p
LEFT JOIN catalog c
       ON p.song   = c.title
      AND p.artist = c.artist_name
      AND p.length = c.duration`

// buildSQL maps each star table to its transform.
var buildSQL = map[string]string{
	TableSongs:     buildSongsSQL,
	TableArtists:   buildArtistsSQL,
	TableUsers:     buildUsersSQL,
	TableTime:      buildTimeSQL,
	TableSongplays: buildSongplaysSQL,
}

// Build materializes one star-schema table from the staging tables and
// returns its row count. Each table derives from staging alone, so
// tables can be built independently and in any order.
//
// The caller's context is honored as-is: transforms on large stages can
// legitimately run long, so no default deadline is imposed.
func (db *DB) Build(ctx context.Context, table string) (int64, error) {
	query, ok := buildSQL[table]
	if !ok {
		return 0, fmt.Errorf("unknown star-schema table %q", table)
	}

	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return 0, fmt.Errorf("failed to build %s: %w", table, err)
	}

	return db.TableCount(ctx, table)
}

// TableCount returns the row count of a warehouse table.
func (db *DB) TableCount(ctx context.Context, table string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	query := "SELECT COUNT(*) FROM " + quoteIdent(table)
	if err := db.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}
