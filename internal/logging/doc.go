// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package logging provides centralized zerolog-based structured logging for Astrarium.
//
// The package wraps a single global zerolog.Logger behind package-level
// helpers so every stage of the pipeline logs through the same sink with
// the same field conventions. JSON output is the production default;
// console output is available for local runs.
//
// # Quick Start
//
//	import "github.com/tomtom215/astrarium/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("stage", "songs").Int("rows", n).Msg("Dimension written")
//	logging.Error().Err(err).Msg("Export failed")
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	logging.Info().Str("table", t).Int("rows", n).Msg("written")  // Correct
//	logging.Info().Msgf("wrote %d rows to %s", n, t)              // Avoid
package logging
