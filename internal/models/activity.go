// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PageNextSong is the page value marking an actual song play.
// Only events with this page contribute to the songplays fact table.
const PageNextSong = "NextSong"

// LogEvent represents one raw user-activity record as it appears in the
// log_data NDJSON files. Every interaction with the player produces one
// event; only page == "NextSong" events are plays.
//
// Song, Artist, and Length are null for non-play pages (Home, Login,
// logout and so on), so they are pointers. UserID tolerates both the
// quoted and unquoted encodings seen in the wild.
// The validate tags define the structural contract the activity loader
// enforces before staging; play-specific requirements (a NextSong event
// must carry song, artist, and user) are cross-field and checked by the
// loader separately.
type LogEvent struct {
	Artist        *string  `json:"artist"`
	Auth          string   `json:"auth"`
	FirstName     *string  `json:"firstName"`
	Gender        *string  `json:"gender"`
	ItemInSession int      `json:"itemInSession" validate:"min=0"`
	LastName      *string  `json:"lastName"`
	Length        *float64 `json:"length" validate:"omitempty,gt=0"`
	Level         string   `json:"level"`
	Location      *string  `json:"location"`
	Method        string   `json:"method"`
	Page          string   `json:"page" validate:"required"`
	Registration  *float64 `json:"registration"`
	SessionID     int64    `json:"sessionId" validate:"min=0"`
	Song          *string  `json:"song"`
	Status        int      `json:"status"`
	TS            int64    `json:"ts" validate:"gt=0"`
	UserAgent     *string  `json:"userAgent"`
	UserID        UserID   `json:"userId"`
}

// IsNextSong reports whether this event is a qualifying song play.
func (e *LogEvent) IsNextSong() bool {
	return e.Page == PageNextSong
}

// StartTime converts the epoch-millisecond ts field to a canonical UTC
// timestamp. All time-dimension decomposition derives from this value.
func (e *LogEvent) StartTime() time.Time {
	return time.UnixMilli(e.TS).UTC()
}

// UserID decodes the activity stream's user identifier. Production
// exports carry it as a quoted string ("26"); some tools re-emit it as a
// bare number. Anonymous sessions carry an empty string or null, which
// leave Valid false.
type UserID struct {
	Int64 int64
	Valid bool
}

// UnmarshalJSON accepts a JSON number, a quoted integer, an empty
// string, or null.
func (u *UserID) UnmarshalJSON(data []byte) error {
	u.Int64, u.Valid = 0, false

	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("user id %q is not an integer: %w", s, err)
	}
	u.Int64, u.Valid = n, true
	return nil
}

// MarshalJSON emits the identifier as a bare number, or null when absent.
func (u UserID) MarshalJSON() ([]byte, error) {
	if !u.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, u.Int64, 10), nil
}
