// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records batch runs and their per-item outcomes in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/article-engine/pkg/types"
)

// DefaultPath is the ledger location used when none is configured.
const DefaultPath = ".article-engine/ledger.db"

const defaultRecent = 10

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the run ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path, creating its parent
// directory and schema as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			topic_source TEXT,
			attempted INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			total_length INTEGER NOT NULL,
			categories TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			category TEXT,
			length INTEGER,
			file_id TEXT,
			status TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_run_id ON items(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished run and its items in one transaction. Recording
// the same run id again replaces the earlier record.
func (s *Store) Record(ctx context.Context, run types.RunSummary) error {
	if run.RunID == "" {
		return fmt.Errorf("run has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE run_id = ?`, run.RunID); err != nil {
		return fmt.Errorf("deleting old items: %w", err)
	}

	categoriesJSON, _ := json.Marshal(run.CategoryCounts())
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, topic_source, attempted, succeeded, skipped, failed, total_length, categories)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			started_at=excluded.started_at, finished_at=excluded.finished_at,
			topic_source=excluded.topic_source, attempted=excluded.attempted,
			succeeded=excluded.succeeded, skipped=excluded.skipped, failed=excluded.failed,
			total_length=excluded.total_length, categories=excluded.categories`,
		run.RunID, formatTime(run.StartedAt), formatTime(run.FinishedAt), string(run.TopicSource),
		run.Attempted, run.Succeeded, run.Skipped, run.Failed,
		run.TotalLength(), string(categoriesJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (run_id, position, title, category, length, file_id, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range run.Items {
		_, err := stmt.ExecContext(ctx,
			run.RunID, i, item.Title, item.Category, item.Length,
			item.FileID, string(item.Status), item.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting item %q: %w", item.Title, err)
		}
	}

	return tx.Commit()
}

// RunRecord is one row of run history.
type RunRecord struct {
	ID          string         `json:"id" yaml:"id"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time      `json:"finished_at" yaml:"finished_at"`
	TopicSource string         `json:"topic_source" yaml:"topic_source"`
	Attempted   int            `json:"attempted" yaml:"attempted"`
	Succeeded   int            `json:"succeeded" yaml:"succeeded"`
	Skipped     int            `json:"skipped" yaml:"skipped"`
	Failed      int            `json:"failed" yaml:"failed"`
	TotalLength int            `json:"total_length" yaml:"total_length"`
	Categories  map[string]int `json:"categories" yaml:"categories"`
}

// Recent returns up to n runs, newest first. n <= 0 uses a default of 10.
func (s *Store) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		n = defaultRecent
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, topic_source, attempted, succeeded,
			skipped, failed, total_length, categories
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r                     RunRecord
			started, finished     string
			source, categoriesRaw sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &source, &r.Attempted, &r.Succeeded,
			&r.Skipped, &r.Failed, &r.TotalLength, &categoriesRaw); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		r.TopicSource = source.String
		if categoriesRaw.Valid && categoriesRaw.String != "" {
			_ = json.Unmarshal([]byte(categoriesRaw.String), &r.Categories)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Items returns the recorded item outcomes of a run in batch order.
func (s *Store) Items(ctx context.Context, runID string) ([]types.ItemResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, category, length, file_id, status, error
		FROM items WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var out []types.ItemResult
	for rows.Next() {
		var (
			item                             types.ItemResult
			category, fileID, status, errMsg sql.NullString
			length                           sql.NullInt64
		)
		if err := rows.Scan(&item.Title, &category, &length, &fileID, &status, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Category = category.String
		item.Length = int(length.Int64)
		item.FileID = fileID.String
		item.Status = types.ItemStatus(status.String)
		item.Error = errMsg.String
		out = append(out, item)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
