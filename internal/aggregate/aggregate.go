// Package aggregate maintains a queryable SQLite index over completed
// search outputs. Syncing walks an output tree and upserts one row per
// completed fit, so repeated syncs converge instead of duplicating; the
// CLI queries the index instead of re-reading result stores.
package aggregate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"caustic/internal/logging"
)

// ErrNotFound reports a query that matched no fit.
var ErrNotFound = errors.New("aggregate: fit not found")

// DB wraps the aggregate database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the aggregate database at path. Use
// ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; the driver serializes and WAL keeps readers cheap.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	d := &DB{db: db, path: path}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns where the database lives.
func (d *DB) Path() string {
	return d.path
}

// migration is one schema version step.
type migration struct {
	version int
	stmts   string
}

var migrations = []migration{
	{version: 1, stmts: `
	CREATE TABLE IF NOT EXISTS fits (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		step TEXT NOT NULL,
		dataset_tag TEXT NOT NULL,
		model_hash TEXT NOT NULL,
		max_log_likelihood REAL NOT NULL,
		log_evidence REAL,
		free_parameters INTEGER NOT NULL,
		completed_at TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		info_json TEXT NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_fits_dataset ON fits(dataset_tag);
	CREATE INDEX IF NOT EXISTS idx_fits_pipeline_step ON fits(pipeline, step);

	CREATE TABLE IF NOT EXISTS parameters (
		fit_id TEXT NOT NULL REFERENCES fits(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		value REAL NOT NULL,
		stddev REAL,
		PRIMARY KEY (fit_id, path)
	);
	`},
}

// migrate applies pending schema versions inside transactions, recording
// each in schema_migrations.
func (d *DB) migrate() error {
	if _, err := d.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := d.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmts); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
		logging.Store("Schema migration applied: v%d", m.version)
	}
	return nil
}
