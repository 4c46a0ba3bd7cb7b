// Package db opens the docbot SQLite database and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Register sqlite-vec as an auto-extension so every SQLite connection
	// opened by this process has the vec0 virtual table module available.
	vec.Auto()
}

// DefaultEmbeddingDimension matches nomic-embed-text and text-embedding-004.
const DefaultEmbeddingDimension = 768

// DB wraps a *sql.DB and exposes helpers.
type DB struct {
	conn      *sql.DB
	dimension int
	vector    bool
}

// Open opens (or creates) the SQLite database at path, applies migrations
// and creates the vec0 table for embeddings of the given dimension.
func Open(path string, dimension int) (*DB, error) {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", absPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer, multiple readers.
	conn.SetMaxOpenConns(1)

	if err := applyMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	d := &DB{conn: conn, dimension: dimension}

	// Non-fatal: sqlite-vec may not be available in all build configurations.
	// Retrieval falls back to brute-force cosine similarity over stored blobs.
	d.vector = CreateVectorTable(conn, dimension) == nil

	return d, nil
}

// Conn returns the underlying *sql.DB for use by the memory layer.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Dimension is the embedding width the vec0 table was created with.
func (d *DB) Dimension() int {
	return d.dimension
}

// VectorEnabled reports whether the vec0 table exists.
func (d *DB) VectorEnabled() bool {
	return d.vector
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping checks the connection is live.
func (d *DB) Ping() error {
	return d.conn.Ping()
}
