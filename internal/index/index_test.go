package index

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/folio/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sceneDoc = `---
id: s1
title: The Gate
status: draft
---
The guard watched the moonlit gate.`

const codexDoc = `{"id":"e1","name":"Aldric","category":"character","description":"A weary guard captain.","aliases":["The Old Wolf"],"attributes":{"age":"52"},"createdAt":1,"updatedAt":2}`

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{Path: "P/manuscript/a.md", Kind: KindScene, Title: "A", Checksum: "abc123", UpdatedAt: time.Now()}
	if err := db.Upsert(row, "body"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cs, err := db.GetChecksum("P/manuscript/a.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	row.Checksum = "def456"
	_ = db.Upsert(row, "new body")
	if cs, _ := db.GetChecksum(row.Path); cs != "def456" {
		t.Errorf("checksum after update = %q", cs)
	}
	if n, _ := db.Count(""); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(DocumentRow{Path: "del.md", Kind: KindScene, Checksum: "x", UpdatedAt: time.Now()}, "body")
	if err := db.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
}

func TestSearchFiltersByKind(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.Upsert(DocumentRow{Path: "P/manuscript/s.md", Kind: KindScene, Title: "Gate", Checksum: "1", UpdatedAt: now}, "the lantern flickered")
	_ = db.Upsert(DocumentRow{Path: "P/codex/item/l.json", Kind: KindCodex, Title: "Lantern", Checksum: "2", UpdatedAt: now}, "an old brass lantern")

	all, err := db.Search(Query{Text: "lantern"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("results = %+v, want 2", all)
	}
	codex, _ := db.Search(Query{Text: "lantern", Kind: KindCodex})
	if len(codex) != 1 || codex[0].Kind != KindCodex || codex[0].Title != "Lantern" {
		t.Errorf("codex results = %+v", codex)
	}
	if n, _ := db.Count(KindScene); n != 1 {
		t.Errorf("scene count = %d", n)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]string{
		"Projects/book/manuscript/s1.md":             KindScene,
		"Projects/nested/book/manuscript/s1.md":      KindScene,
		"Projects/book/codex/character/e1.json":      KindCodex,
		"series/abc/codex/location/e2.json":          KindCodex,
		"series/abc/codex/relations.json":            "",
		"Projects/book/.meta/structure.json":         "",
		"Projects/book/exports/book_backup_x.json":   "",
		"Projects/book/snippets/n1.json":             "",
		"Trash/book_20240101_000000/manuscript/s.md": "",
		".meta/series.json":                          "",
	}
	for p, want := range cases {
		if got := Classify(p); got != want {
			t.Errorf("Classify(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestSyncIndexesScenesAndCodex(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("Projects/book/manuscript/s1.md", []byte(sceneDoc))
	_ = store.Write("Projects/book/codex/character/e1.json", []byte(codexDoc))
	_ = store.Write("Projects/book/.meta/project.json", []byte(`{"id":"p"}`))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n, _ := db.Count(""); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	hits, _ := db.Search(Query{Text: "moonlit", Kind: KindScene})
	if len(hits) != 1 || hits[0].Title != "The Gate" {
		t.Errorf("scene hits = %+v", hits)
	}
	hits, _ = db.Search(Query{Text: "Old Wolf", Kind: KindCodex})
	if len(hits) != 1 || hits[0].Title != "Aldric" {
		t.Errorf("codex hits = %+v", hits)
	}

	// Removing a file drops it on the next pass.
	_ = store.Delete("Projects/book/manuscript/s1.md")
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("Projects/book/manuscript/s1.md"); cs != "" {
		t.Error("stale scene kept after sync")
	}
}

func TestSyncSkipsUnparseable(t *testing.T) {
	db := testDB(t)
	store, _ := storage.NewFS(t.TempDir())
	_ = store.Write("Projects/book/codex/character/bad.json", []byte("{nope"))
	_ = store.Write("Projects/book/codex/character/e1.json", []byte(codexDoc))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n, _ := db.Count(KindCodex); n != 1 {
		t.Errorf("codex count = %d, want 1", n)
	}
}

func TestScopeOf(t *testing.T) {
	cases := map[string]string{
		"Projects/book/manuscript/s1.md":        "Projects/book",
		"Projects/a/b/manuscript/s1.md":         "Projects/a/b",
		"series/abc/codex/location/e2.json":     "series/abc",
		"Projects/book/codex/character/e1.json": "Projects/book",
		"Projects/book/.meta/project.json":      "",
	}
	for p, want := range cases {
		if got := ScopeOf(p); got != want {
			t.Errorf("ScopeOf(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestSearchFiltersByScope(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("Projects/one/manuscript/s1.md", []byte(sceneDoc))
	_ = store.Write("Projects/two/manuscript/s1.md", []byte(sceneDoc))
	_ = store.Write("series/saga/codex/character/e1.json", []byte(codexDoc))
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	hits, err := db.Search(Query{Text: "guard", Scopes: []string{"Projects/one", "series/saga"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %+v, want scene of one plus series codex", hits)
	}
	for _, h := range hits {
		if h.Scope == "Projects/two" {
			t.Errorf("hit outside scope: %+v", h)
		}
	}

	hits, _ = db.Search(Query{Text: "guard", Kind: KindScene, Scopes: []string{"Projects/two"}})
	if len(hits) != 1 || hits[0].Path != "Projects/two/manuscript/s1.md" {
		t.Errorf("scoped scene hits = %+v", hits)
	}
}

func TestSearchEmptyTextAndLimit(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	for _, p := range []string{"P/manuscript/a.md", "P/manuscript/b.md", "P/manuscript/c.md"} {
		_ = db.Upsert(DocumentRow{Path: p, Kind: KindScene, Scope: "P", Title: "t", Checksum: p, UpdatedAt: now}, "shared words")
	}
	if hits, err := db.Search(Query{Text: "   "}); err != nil || len(hits) != 0 {
		t.Errorf("blank query = %+v, %v", hits, err)
	}
	if hits, _ := db.Search(Query{Text: "shared", Limit: 2}); len(hits) != 2 {
		t.Errorf("limit ignored: %d hits", len(hits))
	}
}

func TestOpenRebuildsOldSchema(t *testing.T) {
	f, err := os.CreateTemp("", "folio-old-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Upsert(DocumentRow{Path: "P/manuscript/a.md", Kind: KindScene, Checksum: "x", UpdatedAt: time.Now()}, "body")
	if _, err := db.conn.Exec(`PRAGMA user_version = 1`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(f.Name())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if n, _ := db.Count(""); n != 0 {
		t.Errorf("count after migration = %d, want 0", n)
	}
	var v int
	_ = db.conn.QueryRow(`PRAGMA user_version`).Scan(&v)
	if v != schemaVersion {
		t.Errorf("user_version = %d, want %d", v, schemaVersion)
	}
}
