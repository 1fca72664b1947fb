package index

import "strings"

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Query selects search hits. Kind and Scopes are optional filters; Scopes
// are library-relative project or series roots.
type Query struct {
	Text   string
	Kind   string
	Scopes []string
	Limit  int
}

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return defaultLimit
	case q.Limit > maxLimit:
		return maxLimit
	}
	return q.Limit
}

// filter renders the kind and scope conditions against the documents
// columns prefixed by alias.
func (q Query) filter(alias string) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	if q.Kind != "" {
		b.WriteString(" AND " + alias + "kind = ?")
		args = append(args, q.Kind)
	}
	if len(q.Scopes) > 0 {
		b.WriteString(" AND " + alias + "scope IN (?" + strings.Repeat(", ?", len(q.Scopes)-1) + ")")
		for _, s := range q.Scopes {
			args = append(args, s)
		}
	}
	return b.String(), args
}

// Searcher is what the transports need from the index. Handlers depend on
// this interface rather than *DB so they can run without SQLite in tests.
type Searcher interface {
	Search(q Query) ([]SearchResult, error)
	Count(kind string) (int, error)
}

// Verify *DB satisfies Searcher at compile time.
var _ Searcher = (*DB)(nil)
