package db

import (
	"database/sql"
	"fmt"
)

// RecordsSchema creates the memory records table. It is also replayed by the
// memory gateway when a wipe drops and recreates the collection.
const RecordsSchema = `CREATE TABLE IF NOT EXISTS records (
		id         TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		source     TEXT NOT NULL,
		doc_type   TEXT NOT NULL DEFAULT '',
		embedding  BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

// RecordsIndex speeds up delete-by-source.
const RecordsIndex = `CREATE INDEX IF NOT EXISTS idx_records_source ON records(source)`

// migrations is an ordered list of SQL migration statements.
// Each entry is applied once in order. New migrations are appended at the end.
var migrations = []string{
	// Migration 0: memory records
	RecordsSchema,
	RecordsIndex,

	// Migration 2: ingestion log, one row per ingest attempt
	`CREATE TABLE IF NOT EXISTS ingestions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		source      TEXT NOT NULL,
		mime_type   TEXT NOT NULL,
		chunks      INTEGER NOT NULL DEFAULT 0,
		stored      INTEGER NOT NULL DEFAULT 0,
		error       TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingestions_created ON ingestions(created_at DESC)`,
}

// applyMigrations runs any migrations that have not yet been applied.
func applyMigrations(conn *sql.DB) error {
	// Ensure the migration tracking table exists first.
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmt := range migrations {
		var count int
		row := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, i)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", i, err)
		}
		if count > 0 {
			continue
		}

		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}

		if _, err := conn.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, i); err != nil {
			return fmt.Errorf("record migration %d: %w", i, err)
		}
	}

	return nil
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// CreateVectorTable creates the sqlite-vec virtual table holding record
// embeddings. It fails when the vec0 module is not loaded.
func CreateVectorTable(conn Execer, dimension int) error {
	stmt := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_records USING vec0(
		id TEXT PRIMARY KEY,
		embedding float[%d]
	)`, dimension)
	if _, err := conn.Exec(stmt); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	return nil
}
