// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Staging table names.
const (
	StagingSongs  = "staging_songs"
	StagingEvents = "staging_events"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createStagingTables creates the raw staging tables.
//
// Staging rows are raw records after Go-side decoding and validation;
// no deduplication has happened yet. Nullability mirrors the source:
// play-only fields (song, artist, length) are null on non-play events,
// and artist coordinates are null for unlocated artists.
func (db *DB) createStagingTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS staging_songs (
			num_songs        INTEGER,
			artist_id        VARCHAR NOT NULL,
			artist_latitude  DOUBLE,
			artist_longitude DOUBLE,
			artist_location  VARCHAR,
			artist_name      VARCHAR NOT NULL,
			song_id          VARCHAR NOT NULL,
			title            VARCHAR NOT NULL,
			duration         DOUBLE NOT NULL,
			year             INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS staging_events (
			artist          VARCHAR,
			auth            VARCHAR,
			first_name      VARCHAR,
			gender          VARCHAR,
			item_in_session INTEGER NOT NULL,
			last_name       VARCHAR,
			length          DOUBLE,
			level           VARCHAR,
			location        VARCHAR,
			method          VARCHAR,
			page            VARCHAR NOT NULL,
			registration    DOUBLE,
			session_id      BIGINT NOT NULL,
			song            VARCHAR,
			status          INTEGER,
			ts              BIGINT NOT NULL,
			user_agent      VARCHAR,
			user_id         BIGINT
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// TruncateStaging empties both staging tables, allowing a warehouse to
// be reused across runs without re-opening.
func (db *DB) TruncateStaging(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for _, table := range []string{StagingSongs, StagingEvents} {
		if _, err := db.conn.ExecContext(ctx, "DELETE FROM "+quoteIdent(table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// quoteIdent quotes a SQL identifier. Needed for the time dimension,
// whose name collides with the TIME type keyword.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
