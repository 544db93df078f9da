// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file written beside the output tables.
const ManifestName = "manifest.yaml"

// Manifest records what a run produced. It is written last, so its
// presence marks a run that loaded, transformed, exported, and verified
// successfully.
type Manifest struct {
	RunID      string    `yaml:"run_id"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	DurationMs int64     `yaml:"duration_ms"`

	Inputs map[string]ManifestInput `yaml:"inputs"`
	Tables []ManifestTable          `yaml:"tables"`
}

// ManifestInput summarizes one source dataset.
type ManifestInput struct {
	Location  string       `yaml:"location"`
	Files     int64        `yaml:"files"`
	Lines     int64        `yaml:"lines"`
	Staged    int64        `yaml:"staged"`
	Malformed int64        `yaml:"malformed"`
	Filtered  int64        `yaml:"filtered,omitempty"`
	Latency   BatchLatency `yaml:"batch_insert_latency"`
}

// ManifestTable summarizes one exported relation.
type ManifestTable struct {
	Name        string   `yaml:"name"`
	Rows        int64    `yaml:"rows"`
	Columns     []string `yaml:"columns"`
	PartitionBy []string `yaml:"partition_by,omitempty"`
	Location    string   `yaml:"location"`
}

// buildManifest assembles the manifest from run stats.
func (p *Pipeline) buildManifest(tables []string) *Manifest {
	m := &Manifest{
		RunID:      p.stats.RunID.String(),
		StartedAt:  p.stats.StartTime,
		FinishedAt: p.stats.EndTime,
		DurationMs: p.stats.Duration().Milliseconds(),
		Inputs: map[string]ManifestInput{
			SourceSongs: {
				Location:  p.cfg.Input.SongDir,
				Files:     p.stats.Sources[SourceSongs].Files,
				Lines:     p.stats.Sources[SourceSongs].Lines,
				Staged:    p.stats.Sources[SourceSongs].Staged,
				Malformed: p.stats.Sources[SourceSongs].Malformed,
				Latency:   p.stats.BatchLatencySummary(SourceSongs),
			},
			SourceEvents: {
				Location:  p.cfg.Input.LogDir,
				Files:     p.stats.Sources[SourceEvents].Files,
				Lines:     p.stats.Sources[SourceEvents].Lines,
				Staged:    p.stats.Sources[SourceEvents].Staged,
				Malformed: p.stats.Sources[SourceEvents].Malformed,
				Filtered:  p.stats.Sources[SourceEvents].Filtered,
				Latency:   p.stats.BatchLatencySummary(SourceEvents),
			},
		},
	}

	for _, table := range tables {
		m.Tables = append(m.Tables, ManifestTable{
			Name:        table,
			Rows:        p.stats.ExportedRows[table],
			Columns:     tableColumns[table],
			PartitionBy: partitionColumns[table],
			Location:    tableDest("", table),
		})
	}

	return m
}

// writeManifest encodes the manifest as YAML beside the output tables.
func writeManifest(m *Manifest, outputRoot string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(outputRoot, ManifestName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}
