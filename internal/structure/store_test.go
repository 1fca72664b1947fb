package structure

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

const root = "Projects/novel"

func testStore(t *testing.T) (*Store, storage.Provider) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(fs, manuscript.NewStore(fs, logger), logger), fs
}

func exists(t *testing.T, fs storage.Provider, p string) bool {
	t.Helper()
	ok, err := fs.Exists(p)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func TestCreateNodeOrderAndSceneFile(t *testing.T) {
	s, fs := testStore(t)
	act, err := s.CreateNode(root, models.NodeAct, "Act I", "")
	if err != nil {
		t.Fatalf("CreateNode act: %v", err)
	}
	ch, _ := s.CreateNode(root, models.NodeChapter, "Chapter 1", act.ID)
	s1, _ := s.CreateNode(root, models.NodeScene, "Scene 1", ch.ID)
	s2, err := s.CreateNode(root, models.NodeScene, "Scene 2", ch.ID)
	if err != nil {
		t.Fatalf("CreateNode scene: %v", err)
	}
	if s1.Order != 0 || s2.Order != 1 {
		t.Errorf("orders = %d, %d, want 0, 1", s1.Order, s2.Order)
	}
	if s2.File != s2.ID+".md" {
		t.Errorf("file = %q", s2.File)
	}
	if !exists(t, fs, layout.SceneFile(root, s2.File)) {
		t.Error("scene document not created")
	}
	if act.File != "" {
		t.Error("non-scene node must not carry a file")
	}

	tree, _ := s.Get(root)
	if Find(tree, s2.ID) == nil {
		t.Error("scene missing from tree")
	}
}

func TestCreateNodeRejects(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.CreateNode(root, "book", "x", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad type = %v", err)
	}
	if _, err := s.CreateNode(root, models.NodeScene, "", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty title = %v", err)
	}
	if _, err := s.CreateNode(root, models.NodeScene, "x", "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent = %v", err)
	}
}

func TestDeleteNodeRemovesOnlySubtreeFiles(t *testing.T) {
	s, fs := testStore(t)
	a1, _ := s.CreateNode(root, models.NodeAct, "Act I", "")
	in1, _ := s.CreateNode(root, models.NodeScene, "In 1", a1.ID)
	in2, _ := s.CreateNode(root, models.NodeScene, "In 2", a1.ID)
	out, _ := s.CreateNode(root, models.NodeScene, "Out", "")

	if err := s.DeleteNode(root, a1.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	for _, n := range []models.StructureNode{in1, in2} {
		if exists(t, fs, layout.SceneFile(root, n.File)) {
			t.Errorf("%s should be deleted", n.File)
		}
	}
	if !exists(t, fs, layout.SceneFile(root, out.File)) {
		t.Error("scene outside subtree was deleted")
	}
	tree, _ := s.Get(root)
	if len(tree) != 1 || tree[0].ID != out.ID {
		t.Errorf("tree = %+v", tree)
	}
}

func TestDeleteNodeToleratesMissingFiles(t *testing.T) {
	s, fs := testStore(t)
	sc, _ := s.CreateNode(root, models.NodeScene, "Gone", "")
	_ = fs.Delete(layout.SceneFile(root, sc.File))
	if err := s.DeleteNode(root, sc.ID); err != nil {
		t.Errorf("DeleteNode with missing file: %v", err)
	}
	if err := s.DeleteNode(root, sc.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestRenameNodeAndSceneFile(t *testing.T) {
	s, _ := testStore(t)
	sc, _ := s.CreateNode(root, models.NodeScene, "Old", "")
	if err := s.RenameNode(root, sc.ID, "New"); err != nil {
		t.Fatalf("RenameNode: %v", err)
	}
	tree, _ := s.Get(root)
	if tree[0].Title != "New" {
		t.Errorf("title = %q", tree[0].Title)
	}
	if err := s.RenameNode(root, "missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rename missing = %v", err)
	}
	f, err := s.SceneFile(root, sc.ID)
	if err != nil || f != sc.File {
		t.Errorf("SceneFile = %q, %v", f, err)
	}
}

func TestGetEmpty(t *testing.T) {
	s, _ := testStore(t)
	tree, err := s.Get(root)
	if err != nil || tree == nil || len(tree) != 0 {
		t.Errorf("Get on fresh project = %v, %v", tree, err)
	}
}
