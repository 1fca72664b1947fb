//go:build !sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestLikeSearchEscapesWildcards(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.Upsert(DocumentRow{Path: "P/manuscript/a.md", Kind: KindScene, Checksum: "1", UpdatedAt: now}, "100% certain")
	_ = db.Upsert(DocumentRow{Path: "P/manuscript/b.md", Kind: KindScene, Checksum: "2", UpdatedAt: now}, "100 percent sure")

	hits, err := db.Search(Query{Text: "100%"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Path != "P/manuscript/a.md" {
		t.Errorf("hits = %+v", hits)
	}
}
