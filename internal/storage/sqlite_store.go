package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrMissingCandidateID rejects an import row with a blank id.
	ErrMissingCandidateID = errors.New("candidate without id")
)

// SQLiteStore is the listings source, decision store, market state store and batch
// archive backed by one SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`PRAGMA busy_timeout=5000;`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
  id TEXT PRIMARY KEY,
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  zip TEXT NOT NULL DEFAULT '',
  units INTEGER,
  year_built INTEGER,
  assessed_value REAL,
  estimated_value REAL,
  data_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_city ON candidates(city, state);
CREATE INDEX IF NOT EXISTS idx_candidates_zip ON candidates(zip);

CREATE TABLE IF NOT EXISTS markets (
  user_id TEXT NOT NULL DEFAULT '',
  market_key TEXT NOT NULL,
  criteria_json TEXT NOT NULL,
  PRIMARY KEY (user_id, market_key)
);

CREATE TABLE IF NOT EXISTS decisions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  market_key TEXT NOT NULL,
  property_id TEXT NOT NULL,
  decision TEXT NOT NULL,
  snapshot_json TEXT NOT NULL,
  decided_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_user_market ON decisions(user_id, market_key, decided_at);

CREATE TABLE IF NOT EXISTS market_states (
  user_id TEXT NOT NULL,
  market_key TEXT NOT NULL,
  phase TEXT NOT NULL,
  confidence REAL NOT NULL DEFAULT 0,
  mastery_achieved_at TIMESTAMP,
  learned_json TEXT,
  production_notified INTEGER NOT NULL DEFAULT 0,
  updated_at TIMESTAMP NOT NULL,
  PRIMARY KEY (user_id, market_key)
);

CREATE TABLE IF NOT EXISTS recommendation_batches (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL DEFAULT '',
  market_key TEXT NOT NULL,
  status TEXT NOT NULL,
  generated_at TIMESTAMP NOT NULL,
  batch_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_user_market ON recommendation_batches(user_id, market_key, generated_at);
`

func (s *SQLiteStore) EnsureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
