// Package store persists the connector's own small state, such as the sync
// watermarks, in an embedded SQLite file next to the connector's data.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog/log"
)

// FileName is the database file created inside the data directory.
const FileName = "connector.db"

const schema = `
CREATE TABLE IF NOT EXISTS connector_store (
    key        TEXT PRIMARY KEY,
    value      INTEGER NOT NULL,
    updated_at TEXT NOT NULL
)`

// Store is a string to integer key-value store.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the store database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Opened connector store")
	return &Store{conn: conn, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// GetInt returns the value stored under key, if any.
func (s *Store) GetInt(ctx context.Context, key string) (int64, bool, error) {
	var value int64
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM connector_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// PutInt stores value under key, replacing any previous value.
func (s *Store) PutInt(ctx context.Context, key string, value int64) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO connector_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// Entries returns every stored key and value.
func (s *Store) Entries(ctx context.Context) (map[string]int64, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT key, value FROM connector_store ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list store entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]int64)
	for rows.Next() {
		var (
			key   string
			value int64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan store entry: %w", err)
		}
		entries[key] = value
	}
	return entries, rows.Err()
}
