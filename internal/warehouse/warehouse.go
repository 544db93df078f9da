// Astrarium - Music Streaming Star-Schema ETL
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/astrarium

package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/astrarium/internal/config"
	"github.com/tomtom215/astrarium/internal/logging"
)

// DB wraps the DuckDB connection and provides staging, transform, and
// export methods for the star schema.
type DB struct {
	conn *sql.DB
	cfg  *config.WarehouseConfig

	// persistent is true when the database is file-backed. In-memory
	// databases skip the checkpoint on Close.
	persistent bool
}

// New opens the warehouse engine and creates the staging schema.
//
// An empty cfg.Path opens a transient in-memory database, which is the
// normal mode for a batch run; a non-empty path opens (and creates if
// needed) a file-backed database for runs that need to spill.
func New(cfg *config.WarehouseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	persistent := path != "" && path != ":memory:"
	if !persistent {
		path = ":memory:"
	}

	// Ensure parent directory exists for a file-backed database.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	if persistent {
		dbDir := filepath.Dir(path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create warehouse directory %s: %w", dbDir, err)
			}
		}
	}

	// Build connection string with tuning options
	// preserve_insertion_order=false reduces memory usage but may change result order
	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}

	// Disable auto-install/auto-load: the pipeline only uses built-in
	// functionality (JSON decoding happens in Go, Parquet is native),
	// and auto-install can hang in restricted network environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, numThreads, cfg.MaxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}

	db := &DB{
		conn:       conn,
		cfg:        cfg,
		persistent: persistent,
	}

	db.configureConnectionPool()

	if err := db.createStagingTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize staging schema: %w", err)
	}

	logging.Debug().
		Str("path", path).
		Int("threads", numThreads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Warehouse opened")

	return db, nil
}

// configureConnectionPool applies database/sql pool settings.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Close closes the warehouse connection. File-backed databases are
// checkpointed first to flush the WAL into the main database file.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if db.persistent {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Checkpoint(ctx); err != nil {
			// Best effort - a failed checkpoint just means WAL replay on next open
			logging.Warn().Err(err).Msg("Failed to checkpoint warehouse before close")
		}
		cancel()
	}

	return db.conn.Close()
}

// Ping checks if the warehouse connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("warehouse connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Conn returns the underlying SQL database connection for callers that
// need direct query access, such as tests.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Checkpoint forces a WAL flush on a file-backed database.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// ensureContext guarantees a deadline on warehouse operations.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}

	return ctx, func() {}
}

// closeQuietly closes a resource, discarding any error.
// Used in cleanup paths where the original error takes precedence.
func closeQuietly(closer io.Closer) {
	_ = closer.Close()
}
