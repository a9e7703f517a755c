// ABOUTME: SQLite-backed chatter counter store using modernc.org/sqlite.
// ABOUTME: Increments are single-statement upserts so concurrent writes are never lost.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ChatterCount is one (name, count) row from the chatters table.
type ChatterCount struct {
	Name  string
	Count int64
}

// ChatterStore is the persistence interface handlers depend on. The SQLite
// implementation is the only one in production; tests may substitute fakes.
type ChatterStore interface {
	// ReadTopN returns up to n chatters ordered by count descending,
	// name ascending for ties.
	ReadTopN(ctx context.Context, n int) ([]ChatterCount, error)
	// UpsertIncrement adds delta to the named counter, creating it if
	// absent, and returns the new count. The read-modify-write is atomic
	// per record.
	UpsertIncrement(ctx context.Context, name string, delta int64) (int64, error)
}

// SQLiteStore implements ChatterStore over a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path, enabling WAL mode
// and creating the schema if needed. Parent directories are created.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS chatters (
			name  TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0,

			CHECK (count >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_chatters_count ON chatters(count DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReadTopN returns the top n chatters by count.
func (s *SQLiteStore) ReadTopN(ctx context.Context, n int) ([]ChatterCount, error) {
	query := `
		SELECT name, count
		FROM chatters
		ORDER BY count DESC, name ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("querying chatters: %w", err)
	}
	defer rows.Close()

	var out []ChatterCount
	for rows.Next() {
		var c ChatterCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning chatter row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chatter rows: %w", err)
	}
	return out, nil
}

// UpsertIncrement atomically adds delta to the named counter and returns the
// new value. A single INSERT ... ON CONFLICT statement keeps the
// read-modify-write atomic per record, so concurrent increments are never lost.
func (s *SQLiteStore) UpsertIncrement(ctx context.Context, name string, delta int64) (int64, error) {
	query := `
		INSERT INTO chatters (name, count) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET count = count + excluded.count
		RETURNING count
	`

	var newCount int64
	if err := s.db.QueryRowContext(ctx, query, name, delta).Scan(&newCount); err != nil {
		return 0, fmt.Errorf("incrementing chatter %q: %w", name, err)
	}

	s.logger.Debug("chatter incremented",
		"name", name,
		"delta", delta,
		"count", newCount,
	)
	return newCount, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
