// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package models

// SongRecord represents one raw song-catalog record as it appears in the
// song_data NDJSON files. Each file holds metadata for a single song plus
// its artist, so artist attributes are denormalized onto every record.
//
// Nullable numeric fields (artist coordinates) are pointers; a nil value
// means the attribute was null or absent in the source. Year 0 means the
// release year is unknown.
//
// The validate tags define the input contract the catalog loader
// enforces before staging: identifying fields present, positive
// duration, plausible coordinates.
type SongRecord struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id" validate:"required"`
	ArtistLatitude  *float64 `json:"artist_latitude" validate:"omitempty,latitude"`
	ArtistLongitude *float64 `json:"artist_longitude" validate:"omitempty,longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name" validate:"required"`
	SongID          string   `json:"song_id" validate:"required"`
	Title           string   `json:"title" validate:"required"`
	Duration        float64  `json:"duration" validate:"gt=0"`
	Year            int      `json:"year" validate:"min=0"`
}
