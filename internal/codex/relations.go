package codex

import (
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

// ListRelations returns every relation in scope.
func (m *Manager) ListRelations(scope string) ([]models.CodexRelation, error) {
	items, err := m.relations(scope).Load()
	if err != nil {
		return nil, fmt.Errorf("codex: list relations: %w", err)
	}
	return items, nil
}

// RelationsForEntry returns the relations in which id is parent or child.
func (m *Manager) RelationsForEntry(scope, id string) ([]models.CodexRelation, error) {
	all, err := m.ListRelations(scope)
	if err != nil {
		return nil, err
	}
	out := []models.CodexRelation{}
	for _, r := range all {
		if r.ParentID == id || r.ChildID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// SaveRelation upserts rel after checking that both endpoints and the
// relation type (when set) exist.
func (m *Manager) SaveRelation(scope string, rel models.CodexRelation) (models.CodexRelation, error) {
	for _, end := range []string{rel.ParentID, rel.ChildID} {
		ok, err := m.Exists(scope, end)
		if err != nil {
			return models.CodexRelation{}, fmt.Errorf("codex: save relation: %w", err)
		}
		if !ok {
			return models.CodexRelation{}, fmt.Errorf("codex: relation endpoint %q: %w", end, apperr.ErrNotFound)
		}
	}
	if rel.TypeID != "" {
		types, err := m.ListRelationTypes(scope)
		if err != nil {
			return models.CodexRelation{}, err
		}
		if _, ok := collection.Find(types, func(t models.CodexRelationType) bool { return t.ID == rel.TypeID }); !ok {
			return models.CodexRelation{}, fmt.Errorf("codex: relation type %q: %w", rel.TypeID, apperr.ErrNotFound)
		}
	}
	if rel.ID == "" {
		rel.ID = ident.New()
	}
	now := stamp.Now()
	if rel.CreatedAt == 0 {
		rel.CreatedAt = now
	}
	rel.UpdatedAt = now

	err := m.relations(scope).Update(func(items []models.CodexRelation) ([]models.CodexRelation, error) {
		return collection.Upsert(items, rel, relationID), nil
	})
	if err != nil {
		return models.CodexRelation{}, fmt.Errorf("codex: save relation: %w", err)
	}
	return rel, nil
}

// DeleteRelation removes one relation.
func (m *Manager) DeleteRelation(scope, id string) error {
	return m.relations(scope).Update(func(items []models.CodexRelation) ([]models.CodexRelation, error) {
		kept, n := collection.Filter(items, func(r models.CodexRelation) bool { return r.ID != id })
		if n == 0 {
			return nil, fmt.Errorf("codex: relation %s: %w", id, apperr.ErrNotFound)
		}
		return kept, nil
	})
}
