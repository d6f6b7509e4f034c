package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 2

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    dialect TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    dialect TEXT NOT NULL,
    run_id TEXT NOT NULL REFERENCES runs(id),
    indexed_at TEXT NOT NULL,
    histograms INTEGER NOT NULL,
    issues INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS histograms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    nbins INTEGER NOT NULL,
    xmin REAL NOT NULL,
    xmax REAL NOT NULL,
    record_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_histograms_name ON histograms(name);

CREATE TABLE IF NOT EXISTS issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
    code TEXT NOT NULL,
    pointer TEXT NOT NULL,
    entry INTEGER NOT NULL,
    name TEXT NOT NULL,
    section TEXT NOT NULL,
    row_index INTEGER NOT NULL,
    col_index INTEGER NOT NULL,
    line INTEGER NOT NULL,
    message TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations[v] upgrades a version v database to v+1.
var migrations = map[int]string{
	// The decode dialect joins the skip key: the same bytes decode differently
	// under another dialect. Rows from version 1 never match and are reindexed.
	1: `ALTER TABLE files ADD COLUMN dialect TEXT NOT NULL DEFAULT ''`,
}

// InitSchema creates the catalog tables when the database is new and
// migrates older catalogs.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		// no schema_version table yet
		return createSchema(ctx, db)
	}
	if version > SchemaVersion {
		return fmt.Errorf("catalog schema version %d is newer than supported %d", version, SchemaVersion)
	}
	if version < SchemaVersion {
		if err := migrateSchema(ctx, db, version); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := recordVersion(ctx, tx, SchemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

// migrateSchema applies migrations from version up to SchemaVersion in one
// transaction.
func migrateSchema(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for v := version; v < SchemaVersion; v++ {
		stmt, ok := migrations[v]
		if !ok {
			return fmt.Errorf("no migration from schema version %d", v)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d -> %d: %w", v, v+1, err)
		}
		if err := recordVersion(ctx, tx, v+1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func recordVersion(ctx context.Context, tx *sql.Tx, version int) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		version); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
