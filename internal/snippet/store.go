// Package snippet stores free-floating project text, one JSON file per
// snippet.
package snippet

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/validate"
)

// Store reads and writes snippets.
type Store struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewStore creates a snippet store.
func NewStore(store storage.Provider, logger *slog.Logger) *Store {
	return &Store{store: store, logger: logger}
}

// List returns the snippets of a project, pinned first, then most recently
// updated. Unparsable files are skipped.
func (s *Store) List(root string) ([]models.Snippet, error) {
	files, err := s.store.List(layout.SnippetsDir(root), ".json")
	if err != nil {
		return nil, fmt.Errorf("snippet: list: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	decoded, err := collection.DecodeFiles[models.Snippet](s.store, paths, collection.SkipInvalid, s.logger)
	if err != nil {
		return nil, fmt.Errorf("snippet: list: %w", err)
	}
	out := make([]models.Snippet, 0, len(decoded))
	for _, d := range decoded {
		out = append(out, d.Value)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return out, nil
}

func (s *Store) doc(root, id string) *collection.Doc[models.Snippet] {
	return collection.NewDoc[models.Snippet](s.store, layout.SnippetFile(root, id))
}

// Get returns one snippet.
func (s *Store) Get(root, id string) (models.Snippet, error) {
	if err := validate.ID("snippet id", id); err != nil {
		return models.Snippet{}, err
	}
	sn, found, err := s.doc(root, id).Load()
	if err != nil {
		return models.Snippet{}, fmt.Errorf("snippet: get %s: %w", id, err)
	}
	if !found {
		return models.Snippet{}, fmt.Errorf("snippet: %s: %w", id, apperr.ErrNotFound)
	}
	return sn, nil
}

// Save writes a snippet, assigning an id and timestamps as needed.
func (s *Store) Save(root string, sn models.Snippet) (models.Snippet, error) {
	if sn.ID == "" {
		sn.ID = ident.New()
	}
	if err := validate.ID("snippet id", sn.ID); err != nil {
		return models.Snippet{}, err
	}
	now := stamp.Now()
	if sn.CreatedAt == 0 {
		sn.CreatedAt = now
	}
	sn.UpdatedAt = now
	if err := s.doc(root, sn.ID).Save(sn); err != nil {
		return models.Snippet{}, fmt.Errorf("snippet: save %s: %w", sn.ID, err)
	}
	return sn, nil
}

// Restore writes a snippet verbatim, keeping its timestamps.
func (s *Store) Restore(root string, sn models.Snippet) error {
	if err := validate.ID("snippet id", sn.ID); err != nil {
		return err
	}
	return s.doc(root, sn.ID).Save(sn)
}

// Delete removes a snippet.
func (s *Store) Delete(root, id string) error {
	if err := validate.ID("snippet id", id); err != nil {
		return err
	}
	if err := s.store.Delete(layout.SnippetFile(root, id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("snippet: %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("snippet: delete %s: %w", id, err)
	}
	return nil
}
