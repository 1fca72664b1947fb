package collection

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/storage"
)

type rec struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func recID(r rec) string { return r.ID }

func testStore(t *testing.T) storage.Provider {
	t.Helper()
	s, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadMissingIsEmpty(t *testing.T) {
	c := New[rec](testStore(t), ".meta/things.json")
	items, err := c.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty, got %v", items)
	}
}

func TestSaveEmptyWritesArray(t *testing.T) {
	store := testStore(t)
	c := New[rec](store, "x.json")
	if err := c.Save(nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := store.Read("x.json")
	if string(data) != "[]" {
		t.Errorf("file = %q, want []", data)
	}
}

func TestLoadMalformed(t *testing.T) {
	store := testStore(t)
	_ = store.Write("bad.json", []byte("{not json"))
	_, err := New[rec](store, "bad.json").Load()
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("Load malformed = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateUpsert(t *testing.T) {
	c := New[rec](testStore(t), "r.json")
	for _, r := range []rec{{"a", "one"}, {"b", "two"}, {"a", "uno"}} {
		r := r
		if err := c.Update(func(items []rec) ([]rec, error) {
			return Upsert(items, r, recID), nil
		}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	items, _ := c.Load()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Name != "uno" {
		t.Errorf("items[0] = %+v, want replaced in place", items[0])
	}
}

func TestUpdateDetectsConcurrentWrite(t *testing.T) {
	store := testStore(t)
	c := New[rec](store, "r.json")
	_ = c.Save([]rec{{"a", "one"}})

	err := c.Update(func(items []rec) ([]rec, error) {
		// Another writer sneaks in between read and write.
		if werr := store.Write("r.json", []byte(`[{"id":"z","name":"other"}]`)); werr != nil {
			t.Fatal(werr)
		}
		return append(items, rec{"b", "two"}), nil
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("Update = %v, want ErrConflict", err)
	}
	items, _ := c.Load()
	if len(items) != 1 || items[0].ID != "z" {
		t.Errorf("conflicting update must not write, got %+v", items)
	}
}

func TestUpdateFnErrorWritesNothing(t *testing.T) {
	store := testStore(t)
	c := New[rec](store, "r.json")
	boom := errors.New("boom")
	if err := c.Update(func([]rec) ([]rec, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Update = %v", err)
	}
	if ok, _ := store.Exists("r.json"); ok {
		t.Error("file should not be created when fn fails")
	}
}

func TestUpdateSerialisesWriters(t *testing.T) {
	c := New[rec](testStore(t), "r.json")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Update(func(items []rec) ([]rec, error) {
				return append(items, rec{ID: string(rune('a' + i))}), nil
			})
		}(i)
	}
	wg.Wait()
	items, _ := c.Load()
	if len(items) != 20 {
		t.Errorf("len = %d, want 20 (lost updates)", len(items))
	}
}

func TestFilter(t *testing.T) {
	kept, removed := Filter([]rec{{"a", ""}, {"b", ""}, {"a", ""}}, func(r rec) bool { return r.ID != "a" })
	if removed != 2 || len(kept) != 1 || kept[0].ID != "b" {
		t.Errorf("Filter = %v, %d", kept, removed)
	}
}

func TestDecodeFilesPolicies(t *testing.T) {
	store := testStore(t)
	_ = store.Write("codex/character/a.json", []byte(`{"id":"a","name":"Ann"}`))
	_ = store.Write("codex/character/b.json", []byte(`{broken`))
	_ = store.Write("codex/character/c.json", []byte(`{"id":"c","name":"Cid"}`))
	paths := []string{"codex/character/a.json", "codex/character/b.json", "codex/character/c.json", "codex/character/gone.json"}

	got, err := DecodeFiles[rec](store, paths, SkipInvalid, quietLogger())
	if err != nil {
		t.Fatalf("SkipInvalid: %v", err)
	}
	if len(got) != 2 || got[1].Value.Name != "Cid" {
		t.Errorf("SkipInvalid result = %+v", got)
	}

	_, err = DecodeFiles[rec](store, paths, FailFast, quietLogger())
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("FailFast = %v, want ErrInvalidInput", err)
	}
}

func TestDocLoadFound(t *testing.T) {
	store := testStore(t)
	d := NewDoc[rec](store, "p.json")
	if _, found, err := d.Load(); err != nil || found {
		t.Fatalf("missing doc: found=%v err=%v", found, err)
	}
	if err := d.Save(rec{ID: "p"}); err != nil {
		t.Fatal(err)
	}
	v, found, err := d.Load()
	if err != nil || !found || v.ID != "p" {
		t.Errorf("Load = %+v %v %v", v, found, err)
	}
}

func TestLockerReleasesEntries(t *testing.T) {
	l := newLocker()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := l.lock("shared")
			counter++
			unlock()
			l.lock(string(rune('a'+i%26)) + "-own")()
		}(i)
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if n := l.size(); n != 0 {
		t.Errorf("live lock entries = %d after every holder released", n)
	}

	unlock := l.lock("held")
	if n := l.size(); n != 1 {
		t.Errorf("entries while held = %d", n)
	}
	unlock()
	if n := l.size(); n != 0 {
		t.Errorf("entries after release = %d", n)
	}
}
