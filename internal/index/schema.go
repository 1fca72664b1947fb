// Package index keeps a SQLite search index of scene documents and codex
// entries. The files stay the source of truth; the index can be rebuilt
// from them at any time with Sync.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version. A database written with
// another version is dropped and rebuilt by the next Sync.
const schemaVersion = 2

const documentsSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	scope      TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_scope_kind ON documents(scope, kind);
`

// DB is the search index database.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the index database at dsn and migrates it to the
// current schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	if version != schemaVersion {
		dropFTS(conn)
		if _, err := conn.Exec(`DROP TABLE IF EXISTS documents`); err != nil {
			return fmt.Errorf("index: drop v%d schema: %w", version, err)
		}
	}
	if _, err := conn.Exec(documentsSQL); err != nil {
		return fmt.Errorf("index: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	if version != schemaVersion {
		if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return fmt.Errorf("index: write schema version: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
