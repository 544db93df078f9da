// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package etl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomtom215/astrarium/internal/logging"
	"github.com/tomtom215/astrarium/internal/metrics"
	"github.com/tomtom215/astrarium/internal/warehouse"
)

// partitionColumns maps each star table to its Parquet partition keys.
// Unlisted tables are written as a single unpartitioned file.
var partitionColumns = map[string][]string{
	warehouse.TableSongs:     {"year", "artist_id"},
	warehouse.TableTime:      {"year", "month"},
	warehouse.TableSongplays: {"year", "month"},
}

// tableColumns lists the expected column set of each table as read back
// from Parquet, partition columns included. Used by the verifier.
var tableColumns = map[string][]string{
	warehouse.TableSongs:     {"song_id", "title", "artist_id", "year", "duration"},
	warehouse.TableArtists:   {"artist_id", "name", "location", "latitude", "longitude"},
	warehouse.TableUsers:     {"user_id", "first_name", "last_name", "gender", "level"},
	warehouse.TableTime:      {"start_time", "hour", "day", "week", "month", "year", "weekday"},
	warehouse.TableSongplays: {"songplay_id", "start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent", "year", "month"},
}

// tableDest returns the local destination for a table: a directory for
// partitioned tables, a single file otherwise.
func tableDest(outputRoot, table string) string {
	if len(partitionColumns[table]) > 0 {
		return filepath.Join(outputRoot, table)
	}
	return filepath.Join(outputRoot, table+".parquet")
}

// tableGlob returns the read_parquet glob addressing a written table.
func tableGlob(outputRoot, table string) string {
	if len(partitionColumns[table]) > 0 {
		return filepath.Join(outputRoot, table, "**", "*.parquet")
	}
	return filepath.Join(outputRoot, table+".parquet")
}

// exportTables writes each selected table to Parquet under outputRoot.
// Overwrite semantics are enforced per table before any write: with
// output.overwrite the previous output is cleared, without it a
// pre-existing destination aborts the run.
func (p *Pipeline) exportTables(ctx context.Context, outputRoot string, tables []string) error {
	if err := os.MkdirAll(outputRoot, 0o750); err != nil {
		return fmt.Errorf("failed to create output root %s: %w", outputRoot, err)
	}

	for _, table := range tables {
		dest := tableDest(outputRoot, table)

		if err := p.prepareDest(dest); err != nil {
			return err
		}

		if err := p.db.ExportParquet(ctx, table, dest, warehouse.ExportOptions{
			Compression:  p.cfg.Output.Compression,
			RowGroupSize: p.cfg.Output.RowGroupSize,
			PartitionBy:  partitionColumns[table],
			Overwrite:    p.cfg.Output.Overwrite,
		}); err != nil {
			return err
		}

		rows := p.stats.TableRows[table]
		metrics.RecordExport(table, rows)

		logging.Info().
			Str("table", table).
			Str("dest", dest).
			Int64("rows", rows).
			Strs("partition_by", partitionColumns[table]).
			Msg("Table exported")
	}

	return nil
}

// prepareDest enforces overwrite semantics for one destination path.
func (p *Pipeline) prepareDest(dest string) error {
	_, err := os.Stat(dest)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dest, err)
	}

	if !p.cfg.Output.Overwrite {
		return fmt.Errorf("destination %s already exists; clear it or set output.overwrite", dest)
	}

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dest, err)
	}
	return nil
}

// verifyTables reads each exported table back and checks row count and
// column set against the warehouse. A mismatch means the written lake
// does not reflect the transform output and the run must fail.
func (p *Pipeline) verifyTables(ctx context.Context, outputRoot string, tables []string) error {
	for _, table := range tables {
		glob := tableGlob(outputRoot, table)

		count, err := p.db.CountParquet(ctx, glob)
		if err != nil {
			return fmt.Errorf("verify %s: %w", table, err)
		}
		if want := p.stats.TableRows[table]; count != want {
			return fmt.Errorf("verify %s: parquet has %d rows, warehouse has %d", table, count, want)
		}

		cols, err := p.db.ParquetColumns(ctx, glob)
		if err != nil {
			return fmt.Errorf("verify %s: %w", table, err)
		}
		if err := compareColumnSets(table, cols, tableColumns[table]); err != nil {
			return err
		}

		p.stats.ExportedRows[table] = count
	}

	return nil
}

// compareColumnSets checks column sets ignoring order: hive partition
// columns come back last regardless of their position in the table.
func compareColumnSets(table string, got, want []string) error {
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)

	if strings.Join(g, ",") != strings.Join(w, ",") {
		return fmt.Errorf("verify %s: parquet columns %v, want %v", table, got, want)
	}
	return nil
}
