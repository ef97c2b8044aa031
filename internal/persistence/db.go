// Package persistence provides SQLite-based storage for mission records, the
// resource request audit trail and the decision log.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
	log  *slog.Logger
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, log: slog.Default().With("component", "persistence")}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS missions (
		settlement_id TEXT NOT NULL,
		mission_id TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL,
		current_task INTEGER NOT NULL,
		total_tasks INTEGER NOT NULL,
		applied_effects INTEGER NOT NULL,
		deployed_units INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL,
		last_error TEXT NOT NULL,
		completion_date TEXT NOT NULL,
		completion_message TEXT NOT NULL,
		produced_json TEXT NOT NULL,
		consumed_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (settlement_id, mission_id)
	);

	CREATE TABLE IF NOT EXISTS resource_requests (
		id TEXT PRIMARY KEY,
		settlement_id TEXT NOT NULL,
		material TEXT NOT NULL,
		quantity REAL NOT NULL,
		priority TEXT NOT NULL,
		requester TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		fulfilled_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		settlement_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		action TEXT NOT NULL,
		priority TEXT NOT NULL,
		score REAL NOT NULL,
		rationale TEXT NOT NULL,
		executed INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS colony_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_settlement ON resource_requests(settlement_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_settlement ON decisions(settlement_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO colony_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key returns "" and no error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM colony_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
