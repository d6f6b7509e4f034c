// Package catalog records decoded histograms and decode issues in a SQLite
// database, keyed by input path and content fingerprint.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	saf "github.com/reoring/saf"
	"github.com/reoring/saf/codec"
)

// Catalog is a handle on one catalog database. It is safe for concurrent use.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path. ":memory:" is accepted.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

// BeginRun registers a new indexing run and returns its id.
func (c *Catalog) BeginRun(ctx context.Context, d saf.Dialect) (string, error) {
	id := uuid.New().String()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, dialect) VALUES (?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), d.String())
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// Unchanged reports whether path is already indexed with fingerprint fp
// under dialect d.
func (c *Catalog) Unchanged(ctx context.Context, path, fp string, d saf.Dialect) (bool, error) {
	var storedFP, storedDialect string
	err := c.db.QueryRowContext(ctx,
		`SELECT fingerprint, dialect FROM files WHERE path = ?`, path).Scan(&storedFP, &storedDialect)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return storedFP == fp && storedDialect == d.String(), nil
}

// FileResult is everything one decode produced for one input.
type FileResult struct {
	Path        string
	Fingerprint string
	Dialect     saf.Dialect
	Histograms  []saf.Histogram
	Issues      saf.Issues
}

// Store replaces whatever was recorded for r.Path with r, atomically.
func (c *Catalog) Store(ctx context.Context, runID string, r FileResult) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, r.Path); err != nil {
		return fmt.Errorf("failed to clear %s: %w", r.Path, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (path, fingerprint, dialect, run_id, indexed_at, histograms, issues) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Path, r.Fingerprint, r.Dialect.String(), runID, time.Now().UTC().Format(time.RFC3339Nano), len(r.Histograms), len(r.Issues)); err != nil {
		return fmt.Errorf("failed to record file %s: %w", r.Path, err)
	}

	for i, h := range r.Histograms {
		rec, err := json.Marshal(codec.JSONSafe(h.Record()))
		if err != nil {
			return fmt.Errorf("failed to encode %q: %w", h.Name(), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO histograms (file_path, position, name, nbins, xmin, xmax, record_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Path, i, h.Name(), h.NBins(), h.XMin(), h.XMax(), string(rec)); err != nil {
			return fmt.Errorf("failed to record %q: %w", h.Name(), err)
		}
	}

	for _, it := range r.Issues {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO issues (file_path, code, pointer, entry, name, section, row_index, col_index, line, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Path, it.Code, it.Path, it.Entry, it.Name, it.Section, it.Row, it.Column, it.Line, it.Message); err != nil {
			return fmt.Errorf("failed to record issue: %w", err)
		}
	}
	return tx.Commit()
}

// File is one indexed input.
type File struct {
	Path        string
	Fingerprint string
	Dialect     string
	RunID       string
	Histograms  int
	Issues      int
}

// Files lists indexed inputs ordered by path.
func (c *Catalog) Files(ctx context.Context) ([]File, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT path, fingerprint, dialect, run_id, histograms, issues FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Path, &f.Fingerprint, &f.Dialect, &f.RunID, &f.Histograms, &f.Issues); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Histogram is a stored histogram; Record is its structural view with
// non-finite numbers spelled as strings.
type Histogram struct {
	Position int
	Name     string
	NBins    int
	XMin     float64
	XMax     float64
	Record   map[string]any
}

// Histograms returns the histograms stored for path in document order.
func (c *Catalog) Histograms(ctx context.Context, path string) ([]Histogram, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT position, name, nbins, xmin, xmax, record_json FROM histograms WHERE file_path = ? ORDER BY position`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Histogram
	for rows.Next() {
		var (
			h   Histogram
			rec string
		)
		if err := rows.Scan(&h.Position, &h.Name, &h.NBins, &h.XMin, &h.XMax, &rec); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rec), &h.Record); err != nil {
			return nil, fmt.Errorf("corrupt record for %q: %w", h.Name, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Issue is a stored decode issue.
type Issue struct {
	Code    string
	Pointer string
	Entry   int
	Name    string
	Section string
	Row     int
	Column  int
	Line    int
	Message string
}

// Issues returns the issues stored for path in reporting order.
func (c *Catalog) Issues(ctx context.Context, path string) ([]Issue, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT code, pointer, entry, name, section, row_index, col_index, line, message FROM issues WHERE file_path = ? ORDER BY id`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Issue
	for rows.Next() {
		var it Issue
		if err := rows.Scan(&it.Code, &it.Pointer, &it.Entry, &it.Name, &it.Section, &it.Row, &it.Column, &it.Line, &it.Message); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
