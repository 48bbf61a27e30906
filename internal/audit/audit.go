// Package audit persists one row per completed redaction run so an operator
// can answer "what was redacted from this file, when, and with what
// settings" after the fact. The trail is optional; an empty database path
// disables it.
package audit

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one audit row.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	InputPath  string    `json:"input_path"`
	OutputPath string    `json:"output_path"`
	DPI        int       `json:"dpi"`
	Categories string    `json:"categories"`
	Redactions int       `json:"redactions"`
	Degraded   int       `json:"degraded"`
}

// Store manages the runs table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		input_path TEXT NOT NULL,
		output_path TEXT,
		dpi INTEGER NOT NULL,
		categories TEXT NOT NULL,
		redactions INTEGER NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_input_path ON runs(input_path);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("audit: init schema: %w", err)
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// LogRun inserts one completed run. Categories are stored comma-joined.
func (s *Store) LogRun(r Run) error {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, finished_at, input_path, output_path, dpi, categories, redactions, degraded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt, r.FinishedAt, r.InputPath, r.OutputPath,
		r.DPI, r.Categories, r.Redactions, r.Degraded,
	)
	if err != nil {
		return fmt.Errorf("audit: log run: %w", err)
	}
	return nil
}

// RecentRuns returns the last limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, input_path, output_path, dpi, categories, redactions, degraded
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.InputPath, &r.OutputPath,
			&r.DPI, &r.Categories, &r.Redactions, &r.Degraded); err != nil {
			return nil, fmt.Errorf("audit: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// JoinCategories renders a kept-category list for storage.
func JoinCategories(names []string) string { return strings.Join(names, ",") }
