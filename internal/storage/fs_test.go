package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	content := []byte(`{"id":"p1"}`)
	if err := s.Write(".meta/project.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(".meta/project.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestDeleteMissingIsNotExist(t *testing.T) {
	s := tempLibrary(t)
	err := s.Delete("nope.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Delete missing = %v, want fs.ErrNotExist", err)
	}
}

func TestMoveDirectory(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("Projects/novel/manuscript/a.md", []byte("data"))
	if err := s.Move("Projects/novel", "Trash/novel_20240101_000000"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("Trash/novel_20240101_000000/manuscript/a.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if ok, _ := s.Exists("Projects/novel"); ok {
		t.Error("old path should not exist")
	}
}

func TestListFiltersByExtension(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("manuscript/a.md", []byte("a"))
	_ = s.Write("manuscript/sub/b.md", []byte("b"))
	_ = s.Write("manuscript/readme.txt", []byte("not md"))

	items, err := s.List("manuscript", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "manuscript/a.md" {
		t.Errorf("path = %q, want slash-separated relative path", items[0].Path)
	}
	if items[0].Checksum == "" {
		t.Error("checksum should be populated")
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempLibrary(t)
	items, err := s.List("codex", ".json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d", len(items))
	}
}

func TestReadDir(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("codex/location/l1.json", []byte("{}"))
	_ = s.Write("codex/character/c1.json", []byte("{}"))

	entries, err := s.ReadDir("codex")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "character" || !entries[0].IsDir {
		t.Fatalf("entries = %+v", entries)
	}

	missing, err := s.ReadDir("nothing-here")
	if err != nil || len(missing) != 0 {
		t.Errorf("missing dir = %v, %v", missing, err)
	}
}

func TestRemoveAllRefusesRoot(t *testing.T) {
	s := tempLibrary(t)
	if err := s.RemoveAll(""); err == nil {
		t.Error("expected refusal to remove root")
	}
	_ = s.Write("series/s1/codex/character/a.json", []byte("{}"))
	if err := s.RemoveAll("series/s1"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if ok, _ := s.Exists("series/s1"); ok {
		t.Error("series dir should be gone")
	}
	if err := s.RemoveAll("series/s1"); err != nil {
		t.Errorf("RemoveAll on missing path: %v", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("atomic.json", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, tempPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "folio-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
