package splotch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the site's SQLite database: the persistent image variant
// cache and the build history.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensuring the
// data directory exists.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL with a busy timeout lets the build workers write variants while
	// the server reads them.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS image_variants (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    posts INTEGER NOT NULL,
    pages INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_at);
`)
	return err
}

// GetVariant implements imaging.Cache.
func (s *Store) GetVariant(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM image_variants WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// PutVariant implements imaging.Cache.
func (s *Store) PutVariant(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO image_variants (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Fixed width so started_at sorts as text.
const buildTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// BuildRecord is one finished build.
type BuildRecord struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Posts    int
	Pages    int
	Err      string
}

// RecordBuild stores a finished build.
func (s *Store) RecordBuild(ctx context.Context, b BuildRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO builds (id, started_at, duration_ms, posts, pages, error) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Started.UTC().Format(buildTimeLayout), b.Duration.Milliseconds(), b.Posts, b.Pages, b.Err)
	return err
}

// ListBuilds returns the most recent builds, newest first.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, duration_ms, posts, pages, error FROM builds
ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []BuildRecord
	for rows.Next() {
		var (
			b       BuildRecord
			started string
			ms      int64
		)
		if err := rows.Scan(&b.ID, &started, &ms, &b.Posts, &b.Pages, &b.Err); err != nil {
			return nil, err
		}
		if b.Started, err = time.Parse(buildTimeLayout, started); err != nil {
			return nil, fmt.Errorf("parse build time %q: %w", started, err)
		}
		b.Duration = time.Duration(ms) * time.Millisecond
		builds = append(builds, b)
	}
	return builds, rows.Err()
}
