// Package usage persists how often each tool is invoked, per day, in SQLite.
package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Store manages SQLite persistence for tool invocation counts.
type Store struct {
	db  *sql.DB
	now func() time.Time
	// sqlite allows a single writer; serialize upserts.
	mu sync.Mutex
}

// DefaultPath returns ~/.nova/usage.db.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".nova", "usage.db"), nil
}

// Open opens (and creates if needed) the database at path. An empty path
// uses DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create usage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS tool_invocations (
			tool TEXT NOT NULL,
			date TEXT NOT NULL,
			count INTEGER DEFAULT 0,
			PRIMARY KEY (tool, date)
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// SetClock overrides time.Now; used by tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Record increments today's count for tool.
func (s *Store) Record(ctx context.Context, tool string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	upsertSQL := `
		INSERT INTO tool_invocations (tool, date, count)
		VALUES (?, ?, 1)
		ON CONFLICT(tool, date) DO UPDATE SET count = count + 1;
	`
	if _, err := s.db.ExecContext(ctx, upsertSQL, tool, s.now().Format(dateLayout)); err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Totals returns the cumulative count per tool.
func (s *Store) Totals(ctx context.Context) (map[string]int64, error) {
	return s.query(ctx, "SELECT tool, COALESCE(SUM(count), 0) FROM tool_invocations GROUP BY tool")
}

// Today returns today's count per tool.
func (s *Store) Today(ctx context.Context) (map[string]int64, error) {
	return s.query(ctx, "SELECT tool, count FROM tool_invocations WHERE date = ?", s.now().Format(dateLayout))
}

// CountOn returns the count for tool on date (YYYY-MM-DD).
func (s *Store) CountOn(ctx context.Context, tool, date string) (int64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(count, 0) FROM tool_invocations WHERE tool = ? AND date = ?",
		tool, date,
	)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get count: %w", err)
	}
	return count, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var tool string
		var n int64
		if err := rows.Scan(&tool, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[tool] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
