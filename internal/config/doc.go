// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

// Package config provides layered configuration management for Astrarium.
//
// Configuration is loaded with Koanf v2 from three sources, in order of
// increasing priority:
//
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML file (config.yaml, or CONFIG_PATH)
//  3. Environment Variables: override any setting
//
// The loaded Config is validated before use and is immutable afterwards,
// so it is safe for concurrent reads.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Cannot load configuration")
//	}
//	wh, err := warehouse.New(cfg.Warehouse)
package config
