// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const maxErrorLen = 512

const timestampLayout = "2006-01-02T15:04:05.000"

// SQLiteAuditor implements Auditor using a local SQLite database.
type SQLiteAuditor struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS merge_runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp   TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%f','now')),
    main_path   TEXT    NOT NULL,
    update_path TEXT    NOT NULL,
    union_paths TEXT    NOT NULL DEFAULT '',
    outcome     TEXT    NOT NULL,
    error       TEXT    NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_merge_runs_ts ON merge_runs(timestamp);
`

// DefaultDBPath returns the default audit database path.
// It checks $JSONMERGE_AUDIT_DB, then $XDG_DATA_HOME/jsonmerge/audit.db,
// then falls back to ~/.local/share/jsonmerge/audit.db.
func DefaultDBPath() string {
	if p := os.Getenv("JSONMERGE_AUDIT_DB"); p != "" {
		return p
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "jsonmerge", "audit.db")
}

// Open opens (or creates) a SQLite audit database at the given path.
// It creates the schema and configures WAL mode with a 5-second busy timeout.
func Open(dbPath string) (*SQLiteAuditor, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create directory %q: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("audit: open database %q: %w", dbPath, err)
	}

	for _, stmt := range []struct{ name, sql string }{
		{"set WAL mode", "PRAGMA journal_mode=WAL"},
		{"set busy_timeout", "PRAGMA busy_timeout=5000"},
		{"create schema", schema},
	} {
		if _, err := db.Exec(stmt.sql); err != nil {
			closeErr := db.Close()
			if closeErr != nil {
				return nil, fmt.Errorf("audit: %s: %w (also failed to close: %v)", stmt.name, err, closeErr)
			}
			return nil, fmt.Errorf("audit: %s: %w", stmt.name, err)
		}
	}

	return &SQLiteAuditor{db: db}, nil
}

// Record inserts a merge run. Nil receiver is a no-op.
func (a *SQLiteAuditor) Record(entry Run) error {
	if a == nil {
		return nil
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	// A JSON array, since a path may itself contain commas
	var unionPaths string
	if len(entry.UnionPaths) > 0 {
		raw, err := json.Marshal(entry.UnionPaths)
		if err != nil {
			return fmt.Errorf("audit: encode union paths: %w", err)
		}
		unionPaths = string(raw)
	}

	_, err := a.db.Exec(
		`INSERT INTO merge_runs (timestamp, main_path, update_path, union_paths, outcome, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(timestampLayout),
		entry.MainPath,
		entry.UpdatePath,
		unionPaths,
		entry.Outcome,
		Truncate(entry.Error, maxErrorLen),
		entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("audit: insert merge run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (a *SQLiteAuditor) Recent(limit int) ([]Run, error) {
	if a == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.Query(
		`SELECT id, timestamp, main_path, update_path, union_paths, outcome, error, duration_ms
		 FROM merge_runs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query merge runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts, unionPaths string
		if err := rows.Scan(&r.ID, &ts, &r.MainPath, &r.UpdatePath, &unionPaths, &r.Outcome, &r.Error, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("audit: scan merge run: %w", err)
		}
		r.Timestamp, err = time.Parse(timestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("audit: parse timestamp %q: %w", ts, err)
		}
		if unionPaths != "" {
			if err := json.Unmarshal([]byte(unionPaths), &r.UnionPaths); err != nil {
				return nil, fmt.Errorf("audit: decode union paths %q: %w", unionPaths, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database. Nil receiver is a no-op.
func (a *SQLiteAuditor) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}
