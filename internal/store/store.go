package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS sessions (
		seq         INTEGER PRIMARY KEY,
		id          TEXT NOT NULL UNIQUE,
		discipline  TEXT NOT NULL,
		topic       TEXT NOT NULL,
		duration_ms INTEGER NOT NULL CHECK (duration_ms > 0),
		date        TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date);

	CREATE TABLE IF NOT EXISTS discipline_totals (
		discipline  TEXT PRIMARY KEY,
		position    INTEGER NOT NULL,
		total_ms    INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS topic_totals (
		discipline  TEXT NOT NULL REFERENCES discipline_totals(discipline) ON DELETE CASCADE,
		topic       TEXT NOT NULL,
		position    INTEGER NOT NULL,
		total_ms    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (discipline, topic)
	);

	CREATE TABLE IF NOT EXISTS timer_state (
		id                     INTEGER PRIMARY KEY CHECK (id = 1),
		running                INTEGER NOT NULL DEFAULT 0,
		elapsed_ns             INTEGER NOT NULL DEFAULT 0,
		last_updated           TEXT,
		discipline             TEXT NOT NULL DEFAULT '',
		topic                  TEXT NOT NULL DEFAULT '',
		custom_discipline      TEXT NOT NULL DEFAULT '',
		custom_topic           TEXT NOT NULL DEFAULT '',
		show_custom_discipline INTEGER NOT NULL DEFAULT 0,
		show_custom_topic      INTEGER NOT NULL DEFAULT 0,
		updated_at             TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('daily_goal', '7200');
	`
	_, err := s.db.Exec(ddl)
	return err
}

// migrateV2 adds the write revision other processes poll to notice changes.
func (s *Store) migrateV2() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS meta (
		id       INTEGER PRIMARY KEY CHECK (id = 1),
		revision INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO meta (id, revision) VALUES (1, 0);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/studytime/studytime.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "studytime", "studytime.db"), nil
}
