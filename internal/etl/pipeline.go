// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/astrarium/internal/config"
	"github.com/tomtom215/astrarium/internal/logging"
	"github.com/tomtom215/astrarium/internal/metrics"
	"github.com/tomtom215/astrarium/internal/objectstore"
	"github.com/tomtom215/astrarium/internal/warehouse"
)

// Pipeline stage names, in execution order.
const (
	StageInputs     = "stage_inputs"
	StageLoadSongs  = "load_songs"
	StageLoadEvents = "load_events"
	StageTransform  = "transform"
	StageExport     = "export"
	StageVerify     = "verify"
	StageUpload     = "upload"
)

// Pipeline executes one batch run: discover and load the raw datasets,
// build the star schema inside the warehouse, export it to partitioned
// Parquet, verify the written lake, and record a manifest.
//
// A Pipeline is single-use; construct a new one per run.
type Pipeline struct {
	cfg   *config.Config
	db    *warehouse.DB
	store *objectstore.Client // nil when the object store is disabled
	stats *RunStats

	// stagedDirs are temporary input staging directories removed when
	// the run finishes.
	stagedDirs []string
}

// New creates a pipeline. store may be nil when every configured
// location is a local path.
func New(cfg *config.Config, db *warehouse.DB, store *objectstore.Client) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		db:    db,
		store: store,
	}
}

// Stats returns the statistics of the current or completed run.
func (p *Pipeline) Stats() *RunStats {
	return p.stats
}

// Run executes the full pipeline. On any error the run aborts; partial
// output may exist and a rerun with output.overwrite replaces it.
func (p *Pipeline) Run(ctx context.Context) (runErr error) {
	p.stats = NewRunStats(p.cfg.Pipeline.DryRun)

	logging.Info().
		Str("run_id", p.stats.RunID.String()).
		Str("song_dir", p.cfg.Input.SongDir).
		Str("log_dir", p.cfg.Input.LogDir).
		Str("output_dir", p.cfg.Output.Dir).
		Bool("dry_run", p.cfg.Pipeline.DryRun).
		Strs("tables", p.cfg.Pipeline.Tables).
		Msg("Pipeline starting")

	defer func() {
		p.stats.EndTime = time.Now().UTC()
		metrics.RecordRun(runErr)

		for _, dir := range p.stagedDirs {
			if err := os.RemoveAll(dir); err != nil {
				logging.Warn().Err(err).Str("dir", dir).Msg("Failed to remove input staging directory")
			}
		}
	}()

	// A reused warehouse may hold rows from a previous run.
	if err := p.db.TruncateStaging(ctx); err != nil {
		return err
	}

	// Resolve s3 inputs to local staging directories.
	var songDir, logDir string
	err := p.runStage(StageInputs, func() error {
		var err error
		songDir, err = p.resolveInput(ctx, p.cfg.Input.SongDir)
		if err != nil {
			return err
		}
		logDir, err = p.resolveInput(ctx, p.cfg.Input.LogDir)
		return err
	})
	if err != nil {
		return err
	}

	// Load both datasets into warehouse staging.
	if err := p.runStage(StageLoadSongs, func() error {
		files, err := DiscoverFiles(songDir)
		if err != nil {
			return err
		}
		return p.loadSongs(ctx, files)
	}); err != nil {
		return err
	}

	if err := p.runStage(StageLoadEvents, func() error {
		files, err := DiscoverFiles(logDir)
		if err != nil {
			return err
		}
		return p.loadEvents(ctx, files)
	}); err != nil {
		return err
	}

	// Build the star schema.
	tables := p.cfg.Pipeline.Tables
	if err := p.runStage(StageTransform, func() error {
		for _, table := range tables {
			rows, err := p.db.Build(ctx, table)
			if err != nil {
				return err
			}
			p.stats.TableRows[table] = rows
			metrics.RecordTableBuilt(table, rows)

			logging.Info().Str("table", table).Int64("rows", rows).Msg("Table built")
		}
		return nil
	}); err != nil {
		return err
	}

	if p.cfg.Pipeline.DryRun {
		logging.Info().Msg("Dry run: skipping export, verify, and manifest")
		p.stats.LogSummary()
		return nil
	}

	// Export locally; s3 destinations go through a staging directory.
	outputRoot := p.cfg.Output.Dir
	s3Output := config.IsObjectStoreURL(outputRoot)
	if s3Output {
		staged, err := os.MkdirTemp("", "astrarium-output-*")
		if err != nil {
			return fmt.Errorf("failed to create output staging directory: %w", err)
		}
		defer func() {
			if err := os.RemoveAll(staged); err != nil {
				logging.Warn().Err(err).Str("dir", staged).Msg("Failed to remove output staging directory")
			}
		}()
		outputRoot = staged
	}

	if err := p.runStage(StageExport, func() error {
		return p.exportTables(ctx, outputRoot, tables)
	}); err != nil {
		return err
	}

	if err := p.runStage(StageVerify, func() error {
		return p.verifyTables(ctx, outputRoot, tables)
	}); err != nil {
		return err
	}

	// The manifest is written last so its presence marks a verified run.
	p.stats.EndTime = time.Now().UTC()
	if err := writeManifest(p.buildManifest(tables), outputRoot); err != nil {
		return err
	}

	if s3Output {
		if err := p.runStage(StageUpload, func() error {
			return p.uploadOutput(ctx, outputRoot)
		}); err != nil {
			return err
		}
	}

	p.stats.LogSummary()
	return nil
}

// runStage times one stage and records its outcome.
func (p *Pipeline) runStage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	p.stats.StageDurations[name] = elapsed
	metrics.RecordStage(name, elapsed, err)

	if err != nil {
		logging.Error().Err(err).Str("stage", name).Dur("elapsed", elapsed).Msg("Stage failed")
		return fmt.Errorf("stage %s: %w", name, err)
	}

	logging.Debug().Str("stage", name).Dur("elapsed", elapsed).Msg("Stage completed")
	return nil
}

// resolveInput returns a local directory for an input location,
// downloading s3 prefixes into a temporary staging directory.
func (p *Pipeline) resolveInput(ctx context.Context, location string) (string, error) {
	if !config.IsObjectStoreURL(location) {
		return location, nil
	}
	if p.store == nil {
		return "", fmt.Errorf("location %s requires the object store, which is not configured", location)
	}

	staged, err := os.MkdirTemp("", "astrarium-input-*")
	if err != nil {
		return "", fmt.Errorf("failed to create input staging directory: %w", err)
	}
	p.stagedDirs = append(p.stagedDirs, staged)

	if _, err := p.store.DownloadPrefix(ctx, location, staged); err != nil {
		return "", err
	}
	return staged, nil
}

// uploadOutput pushes the locally staged lake to the s3 destination,
// honoring overwrite semantics on the remote prefix.
func (p *Pipeline) uploadOutput(ctx context.Context, localRoot string) error {
	if p.store == nil {
		return fmt.Errorf("destination %s requires the object store, which is not configured", p.cfg.Output.Dir)
	}

	dest := p.cfg.Output.Dir

	has, err := p.store.HasObjects(ctx, dest)
	if err != nil {
		return err
	}
	if has {
		if !p.cfg.Output.Overwrite {
			return fmt.Errorf("destination %s already has objects; clear it or set output.overwrite", dest)
		}
		removed, err := p.store.RemovePrefix(ctx, dest)
		if err != nil {
			return err
		}
		logging.Info().Str("dest", dest).Int("objects", removed).Msg("Cleared previous output")
	}

	_, err = p.store.UploadDir(ctx, localRoot, dest)
	return err
}
