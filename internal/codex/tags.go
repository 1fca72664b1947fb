package codex

import (
	"fmt"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

// ListTags returns every tag in scope.
func (m *Manager) ListTags(scope string) ([]models.CodexTag, error) {
	items, err := m.tags(scope).Load()
	if err != nil {
		return nil, fmt.Errorf("codex: list tags: %w", err)
	}
	return items, nil
}

// SaveTag upserts a tag.
func (m *Manager) SaveTag(scope string, tag models.CodexTag) (models.CodexTag, error) {
	if strings.TrimSpace(tag.Name) == "" {
		return models.CodexTag{}, fmt.Errorf("codex: tag name is required: %w", apperr.ErrInvalidInput)
	}
	if tag.ID == "" {
		tag.ID = ident.New()
	}
	now := stamp.Now()
	if tag.CreatedAt == 0 {
		tag.CreatedAt = now
	}
	tag.UpdatedAt = now
	err := m.tags(scope).Update(func(items []models.CodexTag) ([]models.CodexTag, error) {
		return collection.Upsert(items, tag, tagID), nil
	})
	if err != nil {
		return models.CodexTag{}, fmt.Errorf("codex: save tag: %w", err)
	}
	return tag, nil
}

// DeleteTag removes a tag and every entry-tag row pointing at it. It
// returns the number of entry-tag rows dropped.
func (m *Manager) DeleteTag(scope, id string) (int, error) {
	err := m.tags(scope).Update(func(items []models.CodexTag) ([]models.CodexTag, error) {
		kept, _ := collection.Filter(items, func(t models.CodexTag) bool { return t.ID != id })
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("codex: delete tag: %w", err)
	}
	var n int
	err = m.entryTags(scope).Update(func(items []models.CodexEntryTag) ([]models.CodexEntryTag, error) {
		var kept []models.CodexEntryTag
		kept, n = collection.Filter(items, func(t models.CodexEntryTag) bool { return t.TagID != id })
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("codex: delete tag %s: entry tags: %w", id, err)
	}
	return n, nil
}

// ListEntryTags returns the entry-tag rows, all of them when entryID is empty.
func (m *Manager) ListEntryTags(scope, entryID string) ([]models.CodexEntryTag, error) {
	items, err := m.entryTags(scope).Load()
	if err != nil {
		return nil, fmt.Errorf("codex: list entry tags: %w", err)
	}
	if entryID == "" {
		return items, nil
	}
	out := []models.CodexEntryTag{}
	for _, it := range items {
		if it.EntryID == entryID {
			out = append(out, it)
		}
	}
	return out, nil
}

// SaveEntryTag attaches a tag to an entry. Both must exist. Attaching the
// same pair twice returns the existing row.
func (m *Manager) SaveEntryTag(scope string, et models.CodexEntryTag) (models.CodexEntryTag, error) {
	ok, err := m.Exists(scope, et.EntryID)
	if err != nil {
		return models.CodexEntryTag{}, err
	}
	if !ok {
		return models.CodexEntryTag{}, fmt.Errorf("codex: entry %q: %w", et.EntryID, apperr.ErrNotFound)
	}
	tags, err := m.ListTags(scope)
	if err != nil {
		return models.CodexEntryTag{}, err
	}
	if _, ok := collection.Find(tags, func(t models.CodexTag) bool { return t.ID == et.TagID }); !ok {
		return models.CodexEntryTag{}, fmt.Errorf("codex: tag %q: %w", et.TagID, apperr.ErrNotFound)
	}

	err = m.entryTags(scope).Update(func(items []models.CodexEntryTag) ([]models.CodexEntryTag, error) {
		if existing, ok := collection.Find(items, func(t models.CodexEntryTag) bool {
			return t.EntryID == et.EntryID && t.TagID == et.TagID && t.ID != et.ID
		}); ok {
			et = existing
			return items, nil
		}
		if et.ID == "" {
			et.ID = ident.New()
		}
		return collection.Upsert(items, et, entryTagID), nil
	})
	if err != nil {
		return models.CodexEntryTag{}, fmt.Errorf("codex: save entry tag: %w", err)
	}
	return et, nil
}

// DeleteEntryTag removes one entry-tag row.
func (m *Manager) DeleteEntryTag(scope, id string) error {
	return m.entryTags(scope).Update(func(items []models.CodexEntryTag) ([]models.CodexEntryTag, error) {
		kept, n := collection.Filter(items, func(t models.CodexEntryTag) bool { return t.ID != id })
		if n == 0 {
			return nil, fmt.Errorf("codex: entry tag %s: %w", id, apperr.ErrNotFound)
		}
		return kept, nil
	})
}
