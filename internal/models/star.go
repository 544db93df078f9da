// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package models

import "time"

// The star-schema row types below mirror the warehouse output tables.
// They are used by the verification readback and by tests; the actual
// transform runs inside the warehouse engine.

// SongRow is one row of the songs dimension.
type SongRow struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// ArtistRow is one row of the artists dimension.
type ArtistRow struct {
	ArtistID  string
	Name      string
	Location  *string
	Latitude  *float64
	Longitude *float64
}

// UserRow is one row of the users dimension.
type UserRow struct {
	UserID    int64
	FirstName *string
	LastName  *string
	Gender    *string
	Level     string
}

// TimeRow is one row of the time dimension. The numeric fields are the
// decomposition of StartTime; Weekday uses 0=Sunday .. 6=Saturday.
type TimeRow struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// SongplayRow is one row of the songplays fact table. SongID and
// ArtistID are nil when the played track has no catalog match.
type SongplayRow struct {
	SongplayID int64
	StartTime  time.Time
	UserID     int64
	Level      string
	SongID     *string
	ArtistID   *string
	SessionID  int64
	Location   *string
	UserAgent  *string
}
