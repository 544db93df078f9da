// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// ExportOptions controls a Parquet COPY export.
type ExportOptions struct {
	// Compression is the Parquet codec (zstd, snappy, gzip, uncompressed).
	Compression string

	// RowGroupSize is the Parquet row group size in rows.
	RowGroupSize int

	// PartitionBy lists partition columns. Empty writes a single file;
	// non-empty writes a hive-partitioned directory tree.
	PartitionBy []string

	// Overwrite permits writing into a destination that already has
	// files from a previous partitioned export.
	Overwrite bool
}

// ExportParquet writes a warehouse table to dest via DuckDB's native
// COPY. With PartitionBy set, dest is a directory that receives
// key=value subdirectories; otherwise dest is a single Parquet file.
func (db *DB) ExportParquet(ctx context.Context, table, dest string, opts ExportOptions) error {
	compression := strings.ToUpper(opts.Compression)
	if compression == "" {
		compression = "ZSTD"
	}
	rowGroupSize := opts.RowGroupSize
	if rowGroupSize <= 0 {
		rowGroupSize = 100_000
	}

	copyOpts := []string{
		"FORMAT PARQUET",
		fmt.Sprintf("COMPRESSION '%s'", compression),
		fmt.Sprintf("ROW_GROUP_SIZE %d", rowGroupSize),
	}
	if len(opts.PartitionBy) > 0 {
		copyOpts = append(copyOpts, fmt.Sprintf("PARTITION_BY (%s)", strings.Join(opts.PartitionBy, ", ")))
		if opts.Overwrite {
			copyOpts = append(copyOpts, "OVERWRITE_OR_IGNORE true")
		}
	}

	query := fmt.Sprintf("COPY (SELECT * FROM %s) TO ? (%s)",
		quoteIdent(table), strings.Join(copyOpts, ", "))

	if _, err := db.conn.ExecContext(ctx, query, dest); err != nil {
		return fmt.Errorf("failed to export %s to %s: %w", table, dest, err)
	}

	return nil
}

// CountParquet returns the row count of a written Parquet dataset.
// glob may address a single file or a partitioned tree
// (e.g. out/songs/**/*.parquet); partition keys are recovered from
// the hive directory layout.
func (db *DB) CountParquet(ctx context.Context, glob string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	query := "SELECT COUNT(*) FROM read_parquet(?, hive_partitioning=true)"
	if err := db.conn.QueryRowContext(ctx, query, glob).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count parquet %s: %w", glob, err)
	}
	return count, nil
}

// ParquetColumns returns the column names of a written Parquet dataset,
// including partition columns recovered from the directory layout.
func (db *DB) ParquetColumns(ctx context.Context, glob string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := "SELECT * FROM read_parquet(?, hive_partitioning=true) LIMIT 0"
	rows, err := db.conn.QueryContext(ctx, query, glob)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet schema %s: %w", glob, err)
	}
	defer closeQuietly(rows)

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to list parquet columns %s: %w", glob, err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parquet schema %s: %w", glob, err)
	}
	return cols, nil
}
