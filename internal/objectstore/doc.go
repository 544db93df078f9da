// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package objectstore stages input and output data against an
// S3-compatible object store (MinIO, AWS S3).
//
// The pipeline itself only reads and writes the local filesystem. When a
// configured location is an s3:// URL, this package bridges the gap:
// inputs under an s3 prefix are downloaded into a local staging
// directory before loading, and Parquet produced under a local staging
// directory is uploaded object-by-object to the destination prefix after
// verification. Local paths never touch this package.
package objectstore
