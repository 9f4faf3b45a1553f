// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a local SQLite audit log of pipeline runs and of every
// book check. The reading list stays the source of truth; the ledger records
// what each run saw, including failures that never reached the list.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

const defaultHistoryLimit = 50

// Store manages the ledger database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the ledger at cfg.Path and creates the schema if
// it does not exist.
func NewStore(cfg types.LedgerConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
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
			total INTEGER NOT NULL DEFAULT 0,
			available INTEGER NOT NULL DEFAULT 0,
			pending INTEGER NOT NULL DEFAULT 0,
			not_found INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			interrupted INTEGER NOT NULL DEFAULT 0,
			notified INTEGER NOT NULL DEFAULT 0,
			notify_error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS checks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			title TEXT NOT NULL,
			author TEXT,
			outcome TEXT NOT NULL,
			status TEXT,
			confidence REAL,
			candidate_id TEXT,
			keyword TEXT,
			rationale TEXT,
			error_kind TEXT,
			error TEXT,
			checked_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_run_id ON checks(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_record_id ON checks(record_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordCheck appends one check.
func (s *Store) RecordCheck(ctx context.Context, runID string, r types.CheckResult) error {
	var status, candidate, rationale sql.NullString
	var confidence sql.NullFloat64
	if v := r.Verdict; v != nil {
		status = nullString(string(v.Status))
		candidate = nullString(v.MatchedCandidateID)
		rationale = nullString(v.Rationale)
		confidence = sql.NullFloat64{Float64: v.Confidence, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (run_id, record_id, title, author, outcome, status, confidence,
			candidate_id, keyword, rationale, error_kind, error, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.RecordID, r.Title, nullString(r.Author), string(r.Outcome), status, confidence,
		candidate, nullString(r.Keyword), rationale, nullString(r.ErrorKind), nullString(r.Error),
		formatTime(r.CheckedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting check for %s: %w", r.RecordID, err)
	}
	return nil
}

// RecordRun inserts or replaces the run row with the report's totals.
func (s *Store) RecordRun(ctx context.Context, r types.RunReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, started_at, finished_at, total, available, pending,
			not_found, skipped, failed, interrupted, notified, notify_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, formatTime(r.StartedAt), formatTime(r.FinishedAt), len(r.Results),
		r.Count(types.OutcomeAvailable), r.Count(types.OutcomePending),
		r.Count(types.OutcomeNotFound), r.Count(types.OutcomeSkipped),
		r.Count(types.OutcomeFailed), r.Interrupted, r.Notified, nullString(r.NotifyError),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.RunID, err)
	}
	return nil
}

// Entry is one check as read back from the ledger.
type Entry struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	RecordID    string    `json:"record_id" yaml:"record_id"`
	Title       string    `json:"title" yaml:"title"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	Outcome     string    `json:"outcome" yaml:"outcome"`
	Status      string    `json:"status,omitempty" yaml:"status,omitempty"`
	Confidence  float64   `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	CandidateID string    `json:"candidate_id,omitempty" yaml:"candidate_id,omitempty"`
	Keyword     string    `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	Rationale   string    `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	CheckedAt   time.Time `json:"checked_at" yaml:"checked_at"`
}

// HistoryOptions filters History.
type HistoryOptions struct {
	// Limit caps the entries returned (default 50).
	Limit int

	// Title keeps entries whose title contains this text.
	Title string

	// Outcome keeps entries with this outcome.
	Outcome string

	// RunID keeps entries of one run.
	RunID string
}

// History returns checks newest first.
func (s *Store) History(ctx context.Context, opts HistoryOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var where []string
	var args []any
	if opts.Title != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+opts.Title+"%")
	}
	if opts.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, opts.Outcome)
	}
	if opts.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, opts.RunID)
	}

	q := `SELECT run_id, record_id, title, author, outcome, status, confidence, candidate_id,
		keyword, rationale, error_kind, error, checked_at FROM checks`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY checked_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var author, status, candidate, keyword, rationale, errKind, errText sql.NullString
		var confidence sql.NullFloat64
		var checkedAt string
		if err := rows.Scan(&e.RunID, &e.RecordID, &e.Title, &author, &e.Outcome, &status,
			&confidence, &candidate, &keyword, &rationale, &errKind, &errText, &checkedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Author = author.String
		e.Status = status.String
		e.Confidence = confidence.Float64
		e.CandidateID = candidate.String
		e.Keyword = keyword.String
		e.Rationale = rationale.String
		e.ErrorKind = errKind.String
		e.Error = errText.String
		e.CheckedAt = parseTime(checkedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string    `json:"id" yaml:"id"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
	Total       int       `json:"total" yaml:"total"`
	Available   int       `json:"available" yaml:"available"`
	Pending     int       `json:"pending" yaml:"pending"`
	NotFound    int       `json:"not_found" yaml:"not_found"`
	Skipped     int       `json:"skipped" yaml:"skipped"`
	Failed      int       `json:"failed" yaml:"failed"`
	Interrupted bool      `json:"interrupted" yaml:"interrupted"`
	Notified    bool      `json:"notified" yaml:"notified"`
	NotifyError string    `json:"notify_error,omitempty" yaml:"notify_error,omitempty"`
}

// LastRun returns the most recently started run, or nil when the ledger is
// empty.
func (s *Store) LastRun(ctx context.Context) (*RunSummary, error) {
	var r RunSummary
	var started string
	var finished, notifyErr sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, total, available, pending, not_found, skipped,
			failed, interrupted, notified, notify_error
		FROM runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&r.ID, &started, &finished, &r.Total, &r.Available, &r.Pending, &r.NotFound,
		&r.Skipped, &r.Failed, &r.Interrupted, &r.Notified, &notifyErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last run: %w", err)
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished.String)
	r.NotifyError = notifyErr.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Times are stored as UTC RFC 3339 text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
