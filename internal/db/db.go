// Package db keeps the SQLite index of the dataset: one row per structure with
// its availability status, one row per plane, and the history of report runs.
// The JSON dataset stays authoritative; the index is rebuilt from it.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gammasurf/gamma/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Open opens (creating if needed) the index database at path.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	// Pragmas in the connection string apply to every pooled connection
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Best-effort once the file exists
	_ = os.Chmod(path, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS structures (
		  filename    TEXT PRIMARY KEY,
		  position    INTEGER NOT NULL,
		  smiles      TEXT NOT NULL,
		  status      TEXT NOT NULL,
		  total       INTEGER NOT NULL,
		  available   INTEGER NOT NULL,
		  indexed_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_structures_status
		ON structures(status, position);

		CREATE TABLE IF NOT EXISTS planes (
		  filename       TEXT NOT NULL REFERENCES structures(filename) ON DELETE CASCADE,
		  position       INTEGER NOT NULL,
		  h              INTEGER NOT NULL,
		  k              INTEGER NOT NULL,
		  l              INTEGER NOT NULL,
		  d_spacing      TEXT,
		  distances_json TEXT NOT NULL,
		  image          TEXT,
		  available      INTEGER NOT NULL,
		  PRIMARY KEY (filename, position)
		);

		CREATE INDEX IF NOT EXISTS idx_planes_hkl
		ON planes(h, k, l);

		CREATE TABLE IF NOT EXISTS report_runs (
		  id             TEXT PRIMARY KEY,
		  dataset_path   TEXT NOT NULL,
		  output_path    TEXT NOT NULL,
		  structures     INTEGER NOT NULL,
		  all_available  INTEGER NOT NULL,
		  partial        INTEGER NOT NULL,
		  bad            INTEGER NOT NULL,
		  created_at     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_report_runs_created
		ON report_runs(created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
