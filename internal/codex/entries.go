package codex

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/validate"
)

// Categories returns the category directories present in scope.
func (m *Manager) Categories(scope string) ([]string, error) {
	entries, err := m.store.ReadDir(layout.CodexDir(scope))
	if err != nil {
		return nil, fmt.Errorf("codex: categories: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir {
			out = append(out, e.Name)
		}
	}
	return out, nil
}

// entryPaths lists <codex>/<category>/<file>.json exactly two levels deep,
// optionally restricted to one category.
func (m *Manager) entryPaths(scope, category string) ([]string, error) {
	cats, err := m.Categories(scope)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, cat := range cats {
		if category != "" && cat != category {
			continue
		}
		files, err := m.store.ReadDir(layout.CodexCategoryDir(scope, cat))
		if err != nil {
			return nil, fmt.Errorf("codex: list %s: %w", cat, err)
		}
		for _, f := range files {
			if f.IsDir || !strings.HasSuffix(f.Name, ".json") {
				continue
			}
			out = append(out, path.Join(layout.CodexCategoryDir(scope, cat), f.Name))
		}
	}
	return out, nil
}

// List returns the entries of scope, optionally restricted to a category.
// Files that fail to parse are handled by the manager's list policy. When
// the same id is filed under several categories the most recently updated
// copy is returned; the stale copies stay on disk until the entry is saved.
func (m *Manager) List(scope, category string) ([]models.CodexEntry, error) {
	paths, err := m.entryPaths(scope, category)
	if err != nil {
		return nil, err
	}
	decoded, err := collection.DecodeFiles[models.CodexEntry](m.store, paths, m.listPolicy, m.logger)
	if err != nil {
		return nil, fmt.Errorf("codex: list: %w", err)
	}

	byID := make(map[string]models.CodexEntry, len(decoded))
	for _, d := range decoded {
		e := d.Value
		if e.ID == "" {
			if m.listPolicy == collection.FailFast {
				return nil, fmt.Errorf("codex: %s has no id: %w", d.Path, apperr.ErrInvalidInput)
			}
			m.logger.Warn("codex: skipping entry without id", slog.String("path", d.Path))
			continue
		}
		if prev, dup := byID[e.ID]; dup {
			m.logger.Debug("codex: entry filed under several categories",
				slog.String("id", e.ID), slog.String("path", d.Path))
			if prev.UpdatedAt >= e.UpdatedAt {
				continue
			}
		}
		byID[e.ID] = e
	}

	out := make([]models.CodexEntry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// locate returns every file named <id>.json under any category.
func (m *Manager) locate(scope, id string) ([]string, error) {
	cats, err := m.Categories(scope)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, cat := range cats {
		p := layout.CodexEntryFile(scope, cat, id)
		ok, err := m.store.Exists(p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get finds an entry by id in any category.
func (m *Manager) Get(scope, id string) (models.CodexEntry, error) {
	if err := validate.ID("entry id", id); err != nil {
		return models.CodexEntry{}, err
	}
	paths, err := m.locate(scope, id)
	if err != nil {
		return models.CodexEntry{}, fmt.Errorf("codex: get %s: %w", id, err)
	}
	decoded, err := collection.DecodeFiles[models.CodexEntry](m.store, paths, collection.FailFast, m.logger)
	if err != nil {
		return models.CodexEntry{}, fmt.Errorf("codex: get %s: %w", id, err)
	}
	if len(decoded) == 0 {
		return models.CodexEntry{}, fmt.Errorf("codex: entry %s: %w", id, apperr.ErrNotFound)
	}
	best := decoded[0].Value
	for _, d := range decoded[1:] {
		if d.Value.UpdatedAt > best.UpdatedAt {
			best = d.Value
		}
	}
	return best, nil
}

// Exists reports whether an entry with id is filed anywhere in scope.
func (m *Manager) Exists(scope, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	paths, err := m.locate(scope, id)
	if err != nil {
		return false, err
	}
	return len(paths) > 0, nil
}

// Save writes entry under its category and removes copies of the same id
// filed under other categories, so changing category needs no move step.
func (m *Manager) Save(scope string, entry models.CodexEntry) (models.CodexEntry, error) {
	if entry.ID == "" {
		entry.ID = ident.New()
	}
	if err := validate.ID("entry id", entry.ID); err != nil {
		return models.CodexEntry{}, err
	}
	if err := validate.CodexName(entry.Name); err != nil {
		return models.CodexEntry{}, err
	}
	if err := validate.Category(entry.Category); err != nil {
		return models.CodexEntry{}, err
	}
	normalizeEntry(&entry)
	now := stamp.Now()
	if entry.CreatedAt == 0 {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	target := layout.CodexEntryFile(scope, entry.Category, entry.ID)
	if err := collection.NewDoc[models.CodexEntry](m.store, target).Save(entry); err != nil {
		return models.CodexEntry{}, fmt.Errorf("codex: save %s: %w", entry.ID, err)
	}

	stale, err := m.locate(scope, entry.ID)
	if err != nil {
		return models.CodexEntry{}, fmt.Errorf("codex: save %s: %w", entry.ID, err)
	}
	for _, p := range stale {
		if p == target {
			continue
		}
		if err := m.store.Delete(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return models.CodexEntry{}, fmt.Errorf("codex: remove stale copy %s: %w", p, err)
		}
		m.logger.Debug("codex: removed stale copy", slog.String("id", entry.ID), slog.String("path", p))
	}
	return entry, nil
}

func normalizeEntry(e *models.CodexEntry) {
	if e.Aliases == nil {
		e.Aliases = []string{}
	}
	if e.Attributes == nil {
		e.Attributes = map[string]string{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.References == nil {
		e.References = []string{}
	}
	if e.Settings.Fields == nil {
		e.Settings.Fields = []models.CodexField{}
	}
}
