package manuscript

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

func testStore(t *testing.T) (*Store, storage.Provider) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(fs, slog.New(slog.NewTextHandler(io.Discard, nil))), fs
}

const root = "Projects/novel"

func TestCreateAndLoad(t *testing.T) {
	s, _ := testStore(t)
	node := models.StructureNode{ID: "s1", Type: models.NodeScene, Title: "Opening", Order: 0, File: "s1.md"}
	if _, err := s.Create(root, node); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sc, err := s.Load(root, "s1.md")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.ID != "s1" || sc.Title != "Opening" || sc.Status != models.StatusDraft || sc.WordCount != 0 {
		t.Errorf("scene = %+v", sc)
	}
}

func TestSavePreservesMetadata(t *testing.T) {
	s, _ := testStore(t)
	node := models.StructureNode{ID: "s1", Title: "Opening", Order: 3, File: "s1.md"}
	created, _ := s.Create(root, node)
	summary := "the start"
	if _, err := s.UpdateMetadata(root, "s1.md", Update{Summary: &summary}); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}

	meta, err := s.Save(root, "s1.md", "It was a dark night.", nil, 5)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.Order != 3 || meta.Summary != "the start" || meta.WordCount != 5 {
		t.Errorf("meta = %+v", meta)
	}
	if meta.CreatedAt != created.CreatedAt {
		t.Errorf("createdAt changed: %d -> %d", created.CreatedAt, meta.CreatedAt)
	}
	if meta.UpdatedAt <= created.UpdatedAt {
		t.Errorf("updatedAt not bumped")
	}

	sc, _ := s.Load(root, "s1.md")
	if sc.Content != "It was a dark night." || sc.WordCount != 5 {
		t.Errorf("loaded = %+v", sc)
	}
}

func TestSaveReplacesBrokenFrontMatter(t *testing.T) {
	s, fs := testStore(t)
	_ = fs.Write(root+"/manuscript/s2.md", []byte("---\n: : {{\n---\nold"))
	title := "Recovered"
	meta, err := s.Save(root, "s2.md", "new", &title, 1)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.ID != "s2" || meta.Title != "Recovered" {
		t.Errorf("meta = %+v", meta)
	}
	if _, err := s.Load(root, "s2.md"); err != nil {
		t.Errorf("Load after repair: %v", err)
	}
}

func TestLoadMissingAndInvalid(t *testing.T) {
	s, fs := testStore(t)
	if _, err := s.Load(root, "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing = %v, want ErrNotFound", err)
	}
	_ = fs.Write(root+"/manuscript/bad.md", []byte("---\n: : {{\n---\nx"))
	if _, err := s.Load(root, "bad.md"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("invalid = %v, want ErrInvalidInput", err)
	}
	if _, err := s.Load(root, "../escape.md"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("traversal = %v, want ErrInvalidInput", err)
	}
}

func TestEnsurePlaceholder(t *testing.T) {
	s, _ := testStore(t)
	node := models.StructureNode{ID: "s3", Title: "Lost", Order: 1, File: "s3.md"}
	created, err := s.EnsurePlaceholder(root, node)
	if err != nil || !created {
		t.Fatalf("EnsurePlaceholder = %v, %v", created, err)
	}
	created, err = s.EnsurePlaceholder(root, node)
	if err != nil || created {
		t.Errorf("second EnsurePlaceholder = %v, %v, want false", created, err)
	}
	sc, _ := s.Load(root, "s3.md")
	if sc.Title != "Lost" || sc.Order != 1 {
		t.Errorf("placeholder = %+v", sc)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s, _ := testStore(t)
	if err := s.Delete(root, "never.md"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"prose", "It was a dark night.", "It was a dark night."},
		{"editor document",
			`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Aria "},{"type":"text","text":"woke."}]},{"type":"paragraph","content":[{"type":"text","text":"Rain."}]}]}`,
			"Aria woke.\n\nRain.\n\n"},
		{"json without content", `{"title":"x"}`, `{"title":"x"}`},
		{"broken json", `{"type":"doc"`, `{"type":"doc"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.body); got != tt.want {
				t.Errorf("PlainText = %q, want %q", got, tt.want)
			}
		})
	}
}
