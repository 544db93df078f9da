// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package models defines the data structures flowing through the pipeline:
// raw catalog and activity records as they appear in the NDJSON inputs,
// and the star-schema rows read back from the warehouse for verification.
package models
