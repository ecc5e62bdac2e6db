package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Record gateway fetch runs",
		SQL: `
CREATE TABLE IF NOT EXISTS fetch_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    endpoint TEXT NOT NULL,
    method TEXT NOT NULL,
    http_status INTEGER,
    response_size_bytes INTEGER,
    duration_ms INTEGER,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error_class TEXT,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_fetch_runs_started ON fetch_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_fetch_runs_endpoint ON fetch_runs(endpoint, started_at);
`,
	},
	{
		Version:     2,
		Description: "Archive distinct response bodies per endpoint",
		SQL: `
CREATE TABLE IF NOT EXISTS raw_payloads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fetch_run_id INTEGER REFERENCES fetch_runs(id),
    endpoint TEXT NOT NULL,
    payload_hash TEXT NOT NULL,
    payload_compressed BLOB NOT NULL,
    first_seen_at TEXT NOT NULL,
    last_seen_at TEXT NOT NULL,
    hits INTEGER NOT NULL DEFAULT 1,
    UNIQUE(endpoint, payload_hash)
);

CREATE INDEX IF NOT EXISTS idx_raw_payloads_last_seen ON raw_payloads(last_seen_at);
`,
	},
	{
		Version:     3,
		Description: "Add exports table",
		SQL: `
CREATE TABLE IF NOT EXISTS exports (
    id TEXT PRIMARY KEY,
    file_name TEXT NOT NULL,
    path TEXT,
    sheet_count INTEGER NOT NULL DEFAULT 0,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    published BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_exports_created ON exports(created_at);
`,
	},
}

// Migrate brings the schema up to the latest version. Migrations run in
// order, each in its own transaction.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	current, err := s.MigrationVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	log.Printf("migrations: applying %d - %s", m.Version, m.Description)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("execute migration %d: %w", m.Version, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// MigrationVersion is the highest applied migration, or 0 for a fresh database.
func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}
