//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{Path: "P/manuscript/fts.md", Kind: KindScene, Title: "Storm", Checksum: "f1", UpdatedAt: time.Now()}
	if err := db.Upsert(row, "Thunder rolled over the powerful northern cliffs."); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := db.Search(Query{Text: "powerful"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != row.Path || results[0].Kind != KindScene {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(DocumentRow{Path: "gone.md", Kind: KindScene, Checksum: "g", UpdatedAt: time.Now()}, "vanishing content")
	_ = db.Delete("gone.md")

	results, _ := db.Search(Query{Text: "vanishing"})
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted document still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.Upsert(DocumentRow{Path: "evo.md", Kind: KindScene, Title: "Old", Checksum: "1", UpdatedAt: now}, "original text")
	_ = db.Upsert(DocumentRow{Path: "evo.md", Kind: KindScene, Title: "New", Checksum: "2", UpdatedAt: now}, "replacement text")

	results, _ := db.Search(Query{Text: "original"})
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search(Query{Text: "replacement", Kind: KindCodex})
	if len(results) != 0 {
		t.Error("kind filter ignored")
	}
	results, _ = db.Search(Query{Text: "replacement", Kind: KindScene})
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestMatchExpr(t *testing.T) {
	cases := map[string]string{
		"old wolf": `"old" "wolf"`,
		`say "hi"`: `"say" """hi"""`,
		"NOT  a-b": `"NOT" "a-b"`,
		"   ":      ``,
	}
	for in, want := range cases {
		if got := matchExpr(in); got != want {
			t.Errorf("matchExpr(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFTS5_OperatorsAreLiteral(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(DocumentRow{Path: "P/manuscript/x.md", Kind: KindScene, Checksum: "x", UpdatedAt: time.Now()}, "well-known harbor")
	if _, err := db.Search(Query{Text: "well-known AND"}); err != nil {
		t.Fatalf("query with operators failed: %v", err)
	}
}
