//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func dropFTS(conn *sql.DB) {
	_, _ = conn.Exec(`DROP TABLE IF EXISTS documents_fts`)
}

func ftsUpsert(tx *sql.Tx, path, title, body string) error {
	ftsDelete(tx, path)
	_, err := tx.Exec(`INSERT INTO documents_fts (path, title, body) VALUES (?, ?, ?)`, path, title, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE path = ?`, path)
}

// matchExpr turns free text into an FTS5 expression: every word becomes a
// quoted term and all terms must match. Operators typed by the user are
// taken literally.
func matchExpr(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}

// Search runs an FTS5 query and returns hits ranked by bm25 with a
// highlighted body snippet.
func (db *DB) Search(q Query) ([]SearchResult, error) {
	expr := matchExpr(q.Text)
	if expr == "" {
		return nil, nil
	}
	cond, args := q.filter("d.")
	rows, err := db.conn.Query(`
		SELECT d.path, d.kind, d.scope, d.title,
		       snippet(documents_fts, 2, '<b>', '</b>', '...', 64)
		FROM documents_fts
		JOIN documents d ON d.path = documents_fts.path
		WHERE documents_fts MATCH ?`+cond+`
		ORDER BY rank
		LIMIT ?
	`, append(append([]any{expr}, args...), q.limit())...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
