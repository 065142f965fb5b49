// Package store persists the knowledge graph in SQLite. Every write path is
// an idempotent upsert keyed by the entity's deduplication key, so re-running
// ingestion converges instead of duplicating.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database for all pipeline persistence.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at the given path, applies the
// schema, and runs pending migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping probes store reachability. The orchestrator uses it to distinguish a
// systemic outage from a single failed write.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying *sql.DB for diagnostic queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// marshalJSON serializes a value for a JSON column, mapping empty slices and
// nil to SQL NULL.
func marshalJSON(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	str := string(data)
	if str == "null" || str == "[]" || str == "{}" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: str, Valid: true}, nil
}

// unmarshalJSON fills dst from a JSON column, leaving it untouched for NULL.
func unmarshalJSON(src sql.NullString, dst interface{}) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}
