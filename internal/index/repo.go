package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Document kinds.
const (
	KindScene = "scene"
	KindCodex = "codex"
)

// DocumentRow is one indexed file. Scope is the project or series root
// the file belongs to.
type DocumentRow struct {
	Path      string
	Kind      string
	Scope     string
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult is one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Scope   string `json:"scope"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Upsert writes a document row and its full-text entry in one transaction.
func (db *DB) Upsert(d DocumentRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.Exec(`
		INSERT INTO documents (path, kind, scope, title, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind       = excluded.kind,
			scope      = excluded.scope,
			title      = excluded.title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.Kind, d.Scope, d.Title, d.Checksum, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert %s: %w", d.Path, err)
	}
	if err := ftsUpsert(tx, d.Path, d.Title, body); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a document. Deleting an unknown path is not an error.
func (db *DB) Delete(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete %s: %w", path, err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum of path, or "" when the path is
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("index: checksum %s: %w", path, err)
	}
	return cs, nil
}

// AllChecksums maps every indexed path to its stored checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, fmt.Errorf("index: all checksums: %w", err)
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed documents of kind, or of every kind
// when kind is empty.
func (db *DB) Count(kind string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT count(*) FROM documents WHERE ? = '' OR kind = ?`, kind, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Kind, &r.Scope, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
