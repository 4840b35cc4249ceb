package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/partbridge/internal/config"
)

// migrations[i] moves the schema from version i to i+1. Append only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS components (
	  id             TEXT PRIMARY KEY,
	  mpn            TEXT NOT NULL UNIQUE,
	  manufacturer   TEXT,
	  description    TEXT,
	  symbol_name    TEXT,
	  footprint_name TEXT,
	  has_3d_model   INTEGER NOT NULL DEFAULT 0,
	  vendor         TEXT,
	  source_url     TEXT,
	  referrer_url   TEXT,
	  created_at     INTEGER NOT NULL,
	  updated_at     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_components_updated ON components(updated_at DESC);

	CREATE TABLE IF NOT EXISTS import_log (
	  id            TEXT PRIMARY KEY,
	  component_id  TEXT,
	  action        TEXT NOT NULL,
	  source_file   TEXT,
	  error_message TEXT,
	  created_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_import_log_component
	  ON import_log(component_id, created_at DESC) WHERE component_id IS NOT NULL;`,
}

// CurrentSchemaVersion is the user_version of a fully migrated database.
var CurrentSchemaVersion = len(migrations)

// Init opens the component database at dbPath, creating it and its directory
// when missing, and brings the schema up to CurrentSchemaVersion. Every
// connection gets a 5s busy timeout and WAL journaling.
func Init(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func prepare(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", mode)
	}
	return migrate(db)
}

// migrate applies every migration past the stored user_version, each in its
// own transaction together with the version bump. A database written by a
// newer build is refused.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	for v := version; v < CurrentSchemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to set user_version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
	}
	return nil
}

// ConfigurePool applies db_max_open_conns and db_max_idle_conns. Zero leaves
// the database/sql default.
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

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion overwrites the user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
