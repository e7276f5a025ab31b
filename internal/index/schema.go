// Package index keeps a SQLite projection of the built graph for queries.
// The TOML files under build/ stay the source of truth: the projection is
// rebuilt from them and never written back.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	id      TEXT PRIMARY KEY,
	path    TEXT NOT NULL UNIQUE,
	kind    TEXT NOT NULL DEFAULT 'file',
	title   TEXT NOT NULL DEFAULT '',
	names   TEXT NOT NULL DEFAULT '[]',
	tags    TEXT NOT NULL DEFAULT '[]',
	private INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS links (
	source  TEXT NOT NULL,
	target  TEXT NOT NULL DEFAULT '',
	ghost   TEXT NOT NULL DEFAULT '',
	alias   TEXT NOT NULL DEFAULT '',
	label   TEXT NOT NULL DEFAULT '',
	heading TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);
CREATE INDEX IF NOT EXISTS idx_links_ghost ON links(ghost);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
