// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library in a thread-safe
// singleton and translates field errors into human-readable messages. The
// ETL loaders use it to reject records that decoded as valid JSON but
// violate the input contract (missing song_id, zero timestamp, and so on)
// before they reach the warehouse staging tables.
//
// # Quick Start
//
//	type SongRecord struct {
//	    SongID   string  `validate:"required"`
//	    Title    string  `validate:"required"`
//	    Duration float64 `validate:"gt=0"`
//	}
//
//	if verr := validation.ValidateStruct(&rec); verr != nil {
//	    // verr.Error() lists every failed field:
//	    //   "SongID is required; Duration must be greater than 0"
//	}
//
// # Error Types
//
// ValidationError carries one field failure (field name, tag, parameter,
// offending value, translated message). RecordValidationError aggregates
// all failures for a record and implements error.
//
// # Thread Safety
//
// The singleton validator is initialized once, caches struct reflection
// information, and is safe for concurrent use.
package validation
