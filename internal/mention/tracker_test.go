package mention

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/snippet"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/structure"
)

const root = "Projects/novel"

type fixture struct {
	codex     *codex.Manager
	structure *structure.Store
	scenes    *manuscript.Store
	snippets  *snippet.Store
	tracker   *Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		codex:    codex.NewManager(fs, logger),
		scenes:   manuscript.NewStore(fs, logger),
		snippets: snippet.NewStore(fs, logger),
	}
	f.structure = structure.NewStore(fs, f.scenes, logger)
	f.tracker = NewTracker(f.codex, f.structure, f.scenes, f.snippets, logger)
	return f
}

func (f *fixture) scene(t *testing.T, title, body string) models.StructureNode {
	t.Helper()
	sc, err := f.structure.CreateNode(root, models.NodeScene, title, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.scenes.Save(root, sc.File, body, nil, 0); err != nil {
		t.Fatal(err)
	}
	return sc
}

func TestFindMentions(t *testing.T) {
	f := newFixture(t)
	first := f.scene(t, "Opening", "Aria looked at the sea. Later ARIA slept, and the Lady dreamed.")
	second := f.scene(t, "Storm",
		`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"The wind called for aria."}]}]}`)
	f.scene(t, "Empty", "Nobody here.")

	entry, err := f.codex.Save(root, models.CodexEntry{Name: "Aria", Category: "character", Aliases: []string{"the Lady", " "}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.snippets.Save(root, models.Snippet{Title: "notes", Content: map[string]any{"text": "aria and the lady twice"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.snippets.Save(root, models.Snippet{Title: "other", Content: "unrelated"}); err != nil {
		t.Fatal(err)
	}

	found, err := f.tracker.Find(root, root, entry.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	bySource := map[string]int{}
	for _, m := range found {
		bySource[m.SourceID]++
		if m.CodexEntryID != entry.ID || m.ID == "" {
			t.Errorf("mention = %+v", m)
		}
	}
	if bySource[first.ID] != 3 {
		t.Errorf("opening mentions = %d, want 3", bySource[first.ID])
	}
	if bySource[second.ID] != 1 {
		t.Errorf("storm mentions = %d, want 1", bySource[second.ID])
	}
	if len(found) != 5 {
		t.Fatalf("mentions = %d, want 5: %+v", len(found), found)
	}

	m := found[0]
	if m.SourceType != models.MentionScene || m.SourceTitle != "Opening" || m.Position != 0 {
		t.Errorf("first mention = %+v", m)
	}
	if !strings.HasPrefix(m.Context, "...Aria looked") || !strings.HasSuffix(m.Context, "...") {
		t.Errorf("context = %q", m.Context)
	}
	if found[1].Position != strings.Index("Aria looked at the sea. Later ARIA slept", "ARIA") {
		t.Errorf("second position = %d", found[1].Position)
	}
	last := found[len(found)-1]
	if last.SourceType != models.MentionSnippet || last.SourceTitle != "notes" || last.Position != 0 {
		t.Errorf("snippet mention = %+v", last)
	}

	n, err := f.tracker.Count(root, root, entry.ID)
	if err != nil || n != 5 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestFindMentionsTrackingOff(t *testing.T) {
	f := newFixture(t)
	f.scene(t, "Opening", "Aria everywhere. Aria.")
	off := false
	entry, err := f.codex.Save(root, models.CodexEntry{Name: "Aria", Category: "character", TrackMentions: &off})
	if err != nil {
		t.Fatal(err)
	}
	found, err := f.tracker.Find(root, root, entry.ID)
	if err != nil || len(found) != 0 {
		t.Errorf("Find = %+v, %v", found, err)
	}
}

func TestFindMentionsUnknownEntry(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tracker.Find(root, root, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestExcerptKeepsRunes(t *testing.T) {
	text := strings.Repeat("é", 40) + "Aria" + strings.Repeat("ü", 40)
	pos := indexFold(text, "aria")
	if pos != 80 {
		t.Fatalf("pos = %d", pos)
	}
	got := excerpt(text, pos, 4)
	inner := strings.TrimSuffix(strings.TrimPrefix(got, "..."), "...")
	if !strings.Contains(inner, "Aria") {
		t.Errorf("excerpt = %q", got)
	}
	if !utf8.ValidString(inner) {
		t.Errorf("excerpt split a rune: %q", got)
	}
}
