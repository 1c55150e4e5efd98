// Package store provides the SQLite-backed cache for dataset catalog
// answers. Entries carry an explicit lifetime; expired rows read as absent
// and are overwritten on the next fetch.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a TTL cache keyed by (dataset, field).
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached value for (dataset, field) when a live entry
// exists. The second return is false for missing or expired entries.
func (s *Store) Get(ctx context.Context, dataset, field string, now time.Time) (float64, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, fetched_at, ttl_minutes FROM dataset_metadata WHERE dataset = ? AND field = ?`,
		dataset, field)

	var (
		value     float64
		fetchedAt int64
		ttl       int64
	)
	if err := row.Scan(&value, &fetchedAt, &ttl); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	expiry := time.Unix(fetchedAt, 0).Add(time.Duration(ttl) * time.Minute)
	if !now.Before(expiry) {
		return 0, false, nil
	}
	return value, true, nil
}

// Put inserts or replaces the cached value for (dataset, field) with the
// given lifetime.
func (s *Store) Put(ctx context.Context, dataset, field string, value float64, now time.Time, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO dataset_metadata (dataset, field, value, fetched_at, ttl_minutes) VALUES (?, ?, ?, ?, ?)`,
		dataset, field, value, now.Unix(), int64(ttl/time.Minute))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Purge deletes every expired entry and returns the number removed.
func (s *Store) Purge(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dataset_metadata WHERE fetched_at + ttl_minutes * 60 <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
