// Package history records evaluations in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded evaluation.
type Entry struct {
	ID      string
	Time    time.Time
	Session string
	// Source names the front end that performed the evaluation, e.g. "cli",
	// "tcp", "websocket" or "tui".
	Source string
	Input  string
	Output string
	// Kind is the error kind for failed evaluations and empty otherwise.
	Kind string
}

// Store is a SQLite evaluation log.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		session TEXT NOT NULL,
		source TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		kind TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts an entry, filling in its ID and time if they are unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, timestamp, session, source, input, output, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Time.UTC(), e.Session, e.Source, e.Input, e.Output, e.Kind)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}
	return nil
}

// Filter selects entries for Query.
type Filter struct {
	Session string
	Since   time.Time
	// ErrorsOnly selects failed evaluations.
	ErrorsOnly bool
	// Limit is the maximum number of entries. Zero means 50.
	Limit int
}

// Query returns matching entries, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT id, timestamp, session, source, input, output, kind FROM evaluations WHERE 1=1`
	var args []any
	if f.Session != "" {
		q += ` AND session = ?`
		args = append(args, f.Session)
	}
	if !f.Since.IsZero() {
		q += ` AND timestamp >= ?`
		args = append(args, f.Since.UTC())
	}
	if f.ErrorsOnly {
		q += ` AND kind != ''`
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += ` ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()
	var r []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Time, &e.Session, &e.Source, &e.Input, &e.Output, &e.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		r = append(r, e)
	}
	return r, rows.Err()
}

// Recent returns the latest n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	return s.Query(ctx, Filter{Limit: n})
}

// Prune deletes entries older than the given age and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE timestamp < ?`, time.Now().Add(-olderThan).UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune evaluations: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
