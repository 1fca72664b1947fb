//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the body column of documents is searched with LIKE.

func initFTS(_ *sql.DB) error { return nil }

func dropFTS(_ *sql.DB) {}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// escapeLike escapes the LIKE wildcards in s; '\' is the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Search matches q.Text as a case-insensitive substring of the title or
// body, newest documents first.
func (db *DB) Search(q Query) ([]SearchResult, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, nil
	}
	like := "%" + escapeLike(text) + "%"
	cond, args := q.filter("")
	rows, err := db.conn.Query(`
		SELECT path, kind, scope, title, substr(body, 1, 200)
		FROM documents
		WHERE (title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`+cond+`
		ORDER BY updated_at DESC
		LIMIT ?
	`, append(append([]any{like, like}, args...), q.limit())...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
