package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/backup"
	"github.com/starford/folio/internal/chat"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/mention"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/snippet"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/structure"
	"github.com/starford/folio/internal/testutil"
)

type env struct {
	router http.Handler
	store  storage.Provider
	db     *index.DB
	token  string
}

// testEnv sets up a temp library, SQLite index, stores, and router.
// An empty token means auth is disabled.
func testEnv(t *testing.T, token string, events http.Handler) *env {
	t.Helper()

	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	logger := testutil.QuietLogger()
	cm := codex.NewManager(store, logger)
	lib := library.NewManager(store, cm, logger)
	scenes := manuscript.NewStore(store, logger)
	st := structure.NewStore(store, scenes, logger)
	chats := chat.NewStore(store, logger)
	snippets := snippet.NewStore(store, logger)

	d := Deps{
		Library:   lib,
		Structure: st,
		Scenes:    scenes,
		Codex:     cm,
		Chats:     chats,
		Snippets:  snippets,
		Backup:    backup.NewService(lib, st, scenes, cm, chats, snippets, logger),
		Mentions:  mention.NewTracker(cm, st, scenes, snippets, logger),
		Search:    db,
		Events:    events,
		Logger:    logger,
	}
	return &env{router: NewRouter(d, token != "", token), store: store, db: db, token: token}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, w.Body.String())
	}
	return v
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, status, w.Body.String())
	}
}

func (e *env) createProject(t *testing.T, in map[string]string) models.Project {
	t.Helper()
	w := e.do(t, http.MethodPost, "/projects", in)
	expect(t, w, http.StatusCreated)
	return decode[models.Project](t, w)
}

func (e *env) createSeries(t *testing.T, title string) models.Series {
	t.Helper()
	w := e.do(t, http.MethodPost, "/series", map[string]string{"title": title})
	expect(t, w, http.StatusCreated)
	return decode[models.Series](t, w)
}

func TestCreateAndGetProject(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "My Novel", "author": "A. Writer"})
	if p.Path != "Projects/my_novel" || p.SeriesIndex != "" {
		t.Errorf("project = %+v", p)
	}

	w := e.do(t, http.MethodGet, "/projects/"+p.ID, nil)
	expect(t, w, http.StatusOK)
	if got := decode[models.Project](t, w); got.Title != "My Novel" {
		t.Errorf("title = %q", got.Title)
	}

	w = e.do(t, http.MethodGet, "/projects", nil)
	expect(t, w, http.StatusOK)
	list := decode[map[string][]models.Project](t, w)
	if len(list["projects"]) != 1 {
		t.Errorf("projects = %+v", list)
	}
}

func TestErrorMapping(t *testing.T) {
	e := testEnv(t, "", nil)

	w := e.do(t, http.MethodGet, "/projects/missing", nil)
	expect(t, w, http.StatusNotFound)
	if body := decode[errResponse](t, w); body.Error == "" {
		t.Error("error body is empty")
	}

	expect(t, e.do(t, http.MethodPost, "/projects", map[string]string{"title": "  "}), http.StatusBadRequest)
	expect(t, e.do(t, http.MethodPost, "/projects", []byte("{bad")), http.StatusBadRequest)

	e.createProject(t, map[string]string{"title": "Twice"})
	expect(t, e.do(t, http.MethodPost, "/projects", map[string]string{"title": "Twice"}), http.StatusConflict)
}

func TestSeriesIndexConflict(t *testing.T) {
	e := testEnv(t, "", nil)
	s := e.createSeries(t, "Saga")
	one := e.createProject(t, map[string]string{"title": "One", "seriesId": s.ID})
	if one.SeriesIndex != models.DefaultSeriesIndex {
		t.Errorf("default series index = %q", one.SeriesIndex)
	}
	two := e.createProject(t, map[string]string{"title": "Two", "seriesId": s.ID, "seriesIndex": "Book 2"})

	expect(t, e.do(t, http.MethodPost, "/projects",
		map[string]string{"title": "Three", "seriesId": s.ID, "seriesIndex": "Book 1"}), http.StatusConflict)
	expect(t, e.do(t, http.MethodPatch, "/projects/"+two.ID,
		map[string]string{"seriesIndex": " Book 1 "}), http.StatusConflict)

	w := e.do(t, http.MethodGet, "/series/"+s.ID+"/projects", nil)
	expect(t, w, http.StatusOK)
	if got := decode[map[string][]models.Project](t, w)["projects"]; len(got) != 2 {
		t.Errorf("series projects = %d, want 2", len(got))
	}

	expect(t, e.do(t, http.MethodDelete, "/series/"+s.ID, nil), http.StatusConflict)
	w = e.do(t, http.MethodDelete, "/series/"+s.ID+"?cascade=true", nil)
	expect(t, w, http.StatusOK)
	if rec := decode[models.DeletedSeries](t, w); rec.OriginalID != s.ID || rec.ProjectCount != 2 {
		t.Errorf("deleted series = %+v", rec)
	}
}

func TestStructureAndScenes(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Book"})
	base := "/projects/" + p.ID

	expect(t, e.do(t, http.MethodPost, base+"/structure/nodes",
		map[string]string{"type": "chapter", "title": "Orphan", "parentId": "nope"}), http.StatusNotFound)
	expect(t, e.do(t, http.MethodPost, base+"/structure/nodes",
		map[string]string{"type": "epilogue", "title": "x"}), http.StatusBadRequest)

	w := e.do(t, http.MethodPost, base+"/structure/nodes", map[string]string{"type": "chapter", "title": "One"})
	expect(t, w, http.StatusCreated)
	ch := decode[models.StructureNode](t, w)
	w = e.do(t, http.MethodPost, base+"/structure/nodes",
		map[string]string{"type": "scene", "title": "Opening", "parentId": ch.ID})
	expect(t, w, http.StatusCreated)
	sc := decode[models.StructureNode](t, w)

	w = e.do(t, http.MethodPut, base+"/scenes/"+sc.ID, map[string]string{"content": "one two three"})
	expect(t, w, http.StatusOK)
	if meta := decode[models.SceneMeta](t, w); meta.WordCount != 3 || meta.Title != "Opening" {
		t.Errorf("meta = %+v", meta)
	}
	w = e.do(t, http.MethodPatch, base+"/scenes/"+sc.ID, map[string]string{"status": "revised"})
	expect(t, w, http.StatusOK)

	w = e.do(t, http.MethodGet, base+"/scenes/"+sc.ID, nil)
	expect(t, w, http.StatusOK)
	scene := decode[models.Scene](t, w)
	if scene.Content != "one two three" || scene.Status != "revised" {
		t.Errorf("scene = %+v", scene)
	}

	w = e.do(t, http.MethodGet, base+"/structure", nil)
	expect(t, w, http.StatusOK)
	tree := decode[map[string][]models.StructureNode](t, w)["nodes"]
	if len(tree) != 1 || len(tree[0].Children) != 1 || tree[0].Children[0].File != sc.File {
		t.Errorf("tree = %+v", tree)
	}
}

func TestDeleteNodeDropsSceneLinks(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Book"})
	base := "/projects/" + p.ID

	w := e.do(t, http.MethodPost, base+"/structure/nodes", map[string]string{"type": "scene", "title": "S"})
	expect(t, w, http.StatusCreated)
	sc := decode[models.StructureNode](t, w)

	w = e.do(t, http.MethodPost, base+"/codex/entries", map[string]string{"name": "Hero", "category": "character"})
	expect(t, w, http.StatusCreated)
	hero := decode[models.CodexEntry](t, w)
	if hero.ProjectID != p.ID {
		t.Errorf("entry projectId = %q, want %q", hero.ProjectID, p.ID)
	}
	expect(t, e.do(t, http.MethodPost, base+"/codex/scene-links",
		map[string]string{"sceneId": sc.ID, "codexId": hero.ID}), http.StatusCreated)

	expect(t, e.do(t, http.MethodDelete, base+"/structure/nodes/"+sc.ID, nil), http.StatusNoContent)

	w = e.do(t, http.MethodGet, base+"/codex/scene-links", nil)
	expect(t, w, http.StatusOK)
	if links := decode[map[string][]models.SceneCodexLink](t, w)["sceneLinks"]; len(links) != 0 {
		t.Errorf("scene links after node delete = %+v", links)
	}
}

func TestDeleteNodeReportsLinkFailure(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Broken Links"})
	base := "/projects/" + p.ID

	w := e.do(t, http.MethodPost, base+"/structure/nodes", map[string]string{"type": "scene", "title": "S"})
	expect(t, w, http.StatusCreated)
	sc := decode[models.StructureNode](t, w)
	if err := e.store.Write(layout.CodexCollection(p.Path, "scene_codex_links"), []byte("{broken")); err != nil {
		t.Fatal(err)
	}

	w = e.do(t, http.MethodDelete, base+"/structure/nodes/"+sc.ID, nil)
	expect(t, w, http.StatusInternalServerError)
	body := decode[map[string]any](t, w)
	if body["nodeDeleted"] != true || !strings.Contains(body["error"].(string), sc.ID) {
		t.Errorf("body = %+v", body)
	}
	// the node itself is gone
	expect(t, e.do(t, http.MethodDelete, base+"/structure/nodes/"+sc.ID, nil), http.StatusNotFound)
}

func TestCodexEntryLifecycle(t *testing.T) {
	e := testEnv(t, "", nil)
	s := e.createSeries(t, "Saga")
	base := "/series/" + s.ID + "/codex"

	w := e.do(t, http.MethodGet, base+"/relation-types", nil)
	expect(t, w, http.StatusOK)
	if types := decode[map[string][]models.CodexRelationType](t, w)["relationTypes"]; len(types) != 8 {
		t.Errorf("seeded relation types = %d, want 8", len(types))
	}

	a := decode[models.CodexEntry](t, e.do(t, http.MethodPost, base+"/entries", map[string]string{"name": "A", "category": "character"}))
	b := decode[models.CodexEntry](t, e.do(t, http.MethodPost, base+"/entries", map[string]string{"name": "B", "category": "location"}))
	expect(t, e.do(t, http.MethodPost, base+"/relations",
		map[string]string{"parentId": a.ID, "childId": "ghost"}), http.StatusNotFound)
	expect(t, e.do(t, http.MethodPost, base+"/relations",
		map[string]string{"parentId": a.ID, "childId": b.ID, "typeId": "rel-located-in"}), http.StatusCreated)

	w = e.do(t, http.MethodPut, base+"/entries/"+a.ID, map[string]string{"name": "A", "category": "faction"})
	expect(t, w, http.StatusOK)
	w = e.do(t, http.MethodGet, base+"/categories", nil)
	expect(t, w, http.StatusOK)

	w = e.do(t, http.MethodDelete, base+"/entries/"+a.ID, nil)
	expect(t, w, http.StatusOK)
	rep := decode[codex.CascadeReport](t, w)
	if rep.Removed(codex.StepRelations) != 1 {
		t.Errorf("report = %+v", rep)
	}
	expect(t, e.do(t, http.MethodGet, base+"/entries/"+a.ID, nil), http.StatusNotFound)
	expect(t, e.do(t, http.MethodGet, "/series/nope/codex/entries", nil), http.StatusNotFound)
}

func TestTrashAndRestore(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Draft"})

	w := e.do(t, http.MethodDelete, "/projects/"+p.ID, nil)
	expect(t, w, http.StatusOK)
	rec := decode[models.TrashedProject](t, w)
	expect(t, e.do(t, http.MethodGet, "/projects/"+p.ID, nil), http.StatusNotFound)

	w = e.do(t, http.MethodGet, "/trash", nil)
	expect(t, w, http.StatusOK)
	if items := decode[map[string][]models.TrashedProject](t, w)["trash"]; len(items) != 1 {
		t.Fatalf("trash = %+v", items)
	}

	w = e.do(t, http.MethodPost, "/trash/"+rec.TrashName+"/restore", nil)
	expect(t, w, http.StatusOK)
	if got := decode[models.Project](t, w); got.Path != p.Path {
		t.Errorf("restored to %q, want %q", got.Path, p.Path)
	}
	expect(t, e.do(t, http.MethodGet, "/projects/"+p.ID, nil), http.StatusOK)
}

func TestChatsAndSnippets(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Book"})
	base := "/projects/" + p.ID

	w := e.do(t, http.MethodPost, base+"/chats", map[string]string{})
	expect(t, w, http.StatusCreated)
	th := decode[models.ChatThread](t, w)
	if th.Name != "New Chat" {
		t.Errorf("thread name = %q", th.Name)
	}
	expect(t, e.do(t, http.MethodPost, base+"/chats/"+th.ID+"/messages",
		map[string]string{"role": "user", "content": "hi"}), http.StatusCreated)
	expect(t, e.do(t, http.MethodPost, base+"/chats/missing/messages",
		map[string]string{"role": "user", "content": "hi"}), http.StatusNotFound)
	w = e.do(t, http.MethodGet, base+"/chats/"+th.ID+"/messages", nil)
	expect(t, w, http.StatusOK)
	if msgs := decode[map[string][]models.ChatMessage](t, w)["messages"]; len(msgs) != 1 {
		t.Errorf("messages = %+v", msgs)
	}

	w = e.do(t, http.MethodPost, base+"/snippets", map[string]any{"title": "note", "content": "text"})
	expect(t, w, http.StatusCreated)
	sn := decode[models.Snippet](t, w)
	expect(t, e.do(t, http.MethodGet, base+"/snippets/"+sn.ID, nil), http.StatusOK)
	expect(t, e.do(t, http.MethodDelete, base+"/snippets/"+sn.ID, nil), http.StatusNoContent)
	expect(t, e.do(t, http.MethodDelete, base+"/snippets/"+sn.ID, nil), http.StatusNotFound)
}

func TestBackupEndpoints(t *testing.T) {
	e := testEnv(t, "", nil)
	s := e.createSeries(t, "Saga")
	p := e.createProject(t, map[string]string{"title": "One", "seriesId": s.ID})

	w := e.do(t, http.MethodGet, "/projects/"+p.ID+"/backup", nil)
	expect(t, w, http.StatusOK)
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "one_backup_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	projectBackup := w.Body.Bytes()

	w = e.do(t, http.MethodPost, "/series/"+s.ID+"/projects/import?seriesIndex=Book%202", projectBackup)
	expect(t, w, http.StatusCreated)
	if got := decode[models.Project](t, w); got.SeriesIndex != "Book 2" || got.ID == p.ID {
		t.Errorf("imported project = %+v", got)
	}

	w = e.do(t, http.MethodGet, "/series/"+s.ID+"/backup", nil)
	expect(t, w, http.StatusOK)
	w = e.do(t, http.MethodPost, "/series/import", w.Body.Bytes())
	expect(t, w, http.StatusCreated)
	if res := decode[backup.ImportResult](t, w); res.ImportedProjectCount != 2 || res.SeriesID == s.ID {
		t.Errorf("import result = %+v", res)
	}

	expect(t, e.do(t, http.MethodPost, "/series/import", projectBackup), http.StatusBadRequest)

	w = e.do(t, http.MethodPost, "/projects/"+p.ID+"/backup", nil)
	expect(t, w, http.StatusCreated)
	file := decode[map[string]string](t, w)["path"]
	if ok, _ := e.store.Exists(file); !ok {
		t.Errorf("export file %q not written", file)
	}
}

func TestMentionsAndTextExport(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Tide"})
	base := "/projects/" + p.ID

	w := e.do(t, http.MethodPost, base+"/structure/nodes", map[string]string{"type": "chapter", "title": "One"})
	expect(t, w, http.StatusCreated)
	ch := decode[models.StructureNode](t, w)
	w = e.do(t, http.MethodPost, base+"/structure/nodes",
		map[string]string{"type": "scene", "title": "Harbor", "parentId": ch.ID})
	expect(t, w, http.StatusCreated)
	sc := decode[models.StructureNode](t, w)
	expect(t, e.do(t, http.MethodPut, base+"/scenes/"+sc.ID,
		map[string]string{"content": "Mara rowed out. Old Mara never came back."}), http.StatusOK)

	w = e.do(t, http.MethodPost, base+"/codex/entries", map[string]string{"name": "Mara", "category": "character"})
	expect(t, w, http.StatusCreated)
	entry := decode[models.CodexEntry](t, w)

	w = e.do(t, http.MethodGet, base+"/mentions/"+entry.ID, nil)
	expect(t, w, http.StatusOK)
	found := decode[map[string][]models.Mention](t, w)["mentions"]
	if len(found) != 2 || found[0].SourceID != sc.ID || found[0].SourceTitle != "Harbor" {
		t.Errorf("mentions = %+v", found)
	}
	w = e.do(t, http.MethodGet, base+"/mentions/"+entry.ID+"/count", nil)
	expect(t, w, http.StatusOK)
	if n := decode[map[string]int](t, w)["count"]; n != 2 {
		t.Errorf("count = %d", n)
	}
	expect(t, e.do(t, http.MethodGet, base+"/mentions/ghost", nil), http.StatusNotFound)

	w = e.do(t, http.MethodGet, base+"/export/text", nil)
	expect(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	want := "\n## One\n\n  ### Harbor\n\nMara rowed out. Old Mara never came back.\n\n"
	if w.Body.String() != want {
		t.Errorf("text = %q, want %q", w.Body.String(), want)
	}

	w = e.do(t, http.MethodPost, base+"/export/text", nil)
	expect(t, w, http.StatusCreated)
	file := decode[map[string]string](t, w)["path"]
	if data, err := e.store.Read(file); err != nil || string(data) != want {
		t.Errorf("exported %q = %q, %v", file, data, err)
	}
}

func TestEmergencyBackupRoutes(t *testing.T) {
	e := testEnv(t, "", nil)

	w := e.do(t, http.MethodPost, "/emergency-backups", map[string]string{"sceneId": "s1", "content": "unsaved words"})
	expect(t, w, http.StatusCreated)
	saved := decode[models.EmergencyBackup](t, w)
	if saved.ID == "" || saved.ExpiresAt <= saved.Timestamp {
		t.Errorf("saved = %+v", saved)
	}
	expect(t, e.do(t, http.MethodPost, "/emergency-backups", map[string]string{"sceneId": "../x"}), http.StatusBadRequest)

	w = e.do(t, http.MethodGet, "/emergency-backups/scenes/s1", nil)
	expect(t, w, http.StatusOK)
	if got := decode[models.EmergencyBackup](t, w); got.Content != "unsaved words" {
		t.Errorf("got = %+v", got)
	}
	expect(t, e.do(t, http.MethodGet, "/emergency-backups/scenes/s2", nil), http.StatusNotFound)

	w = e.do(t, http.MethodPost, "/emergency-backups", map[string]any{
		"sceneId": "s2", "content": "old", "timestamp": 1000, "expiresAt": 2000,
	})
	expect(t, w, http.StatusCreated)
	w = e.do(t, http.MethodPost, "/emergency-backups/cleanup", nil)
	expect(t, w, http.StatusOK)
	if n := decode[map[string]int](t, w)["removed"]; n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}

	expect(t, e.do(t, http.MethodDelete, "/emergency-backups/"+saved.ID, nil), http.StatusNoContent)
	expect(t, e.do(t, http.MethodGet, "/emergency-backups/scenes/s1", nil), http.StatusNotFound)
}

func TestSearchEndpoint(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Book"})
	other := e.createProject(t, map[string]string{"title": "Other"})
	w := e.do(t, http.MethodPost, "/projects/"+p.ID+"/structure/nodes", map[string]string{"type": "scene", "title": "Harbor"})
	sc := decode[models.StructureNode](t, w)
	expect(t, e.do(t, http.MethodPut, "/projects/"+p.ID+"/scenes/"+sc.ID,
		map[string]string{"content": "gulls over the xylophonic harbor"}), http.StatusOK)

	if err := index.Sync(e.db, e.store, testutil.QuietLogger()); err != nil {
		t.Fatal(err)
	}

	w = e.do(t, http.MethodGet, "/search?q=xylophonic&kind=scene&projectId="+p.ID, nil)
	expect(t, w, http.StatusOK)
	results := decode[map[string][]index.SearchResult](t, w)["results"]
	if len(results) != 1 || results[0].Title != "Harbor" {
		t.Errorf("results = %+v", results)
	}

	w = e.do(t, http.MethodGet, "/search?q=xylophonic&projectId="+other.ID, nil)
	expect(t, w, http.StatusOK)
	if results := decode[map[string][]index.SearchResult](t, w)["results"]; len(results) != 0 {
		t.Errorf("other project results = %+v", results)
	}
	expect(t, e.do(t, http.MethodGet, "/search?q=x&projectId=nope", nil), http.StatusNotFound)

	expect(t, e.do(t, http.MethodGet, "/search", nil), http.StatusBadRequest)
	expect(t, e.do(t, http.MethodGet, "/search?q=x&kind=note", nil), http.StatusBadRequest)
}

// Auth tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := testEnv(t, "secret123", nil)
	expect(t, e.do(t, http.MethodGet, "/projects", nil), http.StatusOK)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := testEnv(t, "secret123", nil)
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := testEnv(t, "secret123", nil)
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingEvents is a minimal SSE handler: writes headers and blocks until the context is done.
var blockingEvents = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnv(t, "secret", blockingEvents)
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnv(t, "tok", blockingEvents)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

// Cover upload tests.

func uploadCover(t *testing.T, e *env, projectID string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cover.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID+"/cover", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeCover(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Covered"})
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	w := uploadCover(t, e, p.ID, png)
	expect(t, w, http.StatusCreated)
	if got := decode[models.Project](t, w); got.CoverImage != "cover.png" {
		t.Errorf("coverImage = %q", got.CoverImage)
	}

	w = e.do(t, http.MethodGet, "/projects/"+p.ID+"/cover", nil)
	expect(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), png) {
		t.Error("served cover differs from upload")
	}
}

func TestUploadCover_RejectsNonImage(t *testing.T) {
	e := testEnv(t, "", nil)
	p := e.createProject(t, map[string]string{"title": "Covered"})
	expect(t, uploadCover(t, e, p.ID, []byte("#!/bin/sh\necho hi\n")), http.StatusBadRequest)
	expect(t, e.do(t, http.MethodGet, "/projects/"+p.ID+"/cover", nil), http.StatusNotFound)
}
