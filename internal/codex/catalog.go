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

// ListTemplates returns the entry templates of scope.
func (m *Manager) ListTemplates(scope string) ([]models.CodexTemplate, error) {
	items, err := m.templates(scope).Load()
	if err != nil {
		return nil, fmt.Errorf("codex: list templates: %w", err)
	}
	return items, nil
}

// SaveTemplate upserts a template.
func (m *Manager) SaveTemplate(scope string, tpl models.CodexTemplate) (models.CodexTemplate, error) {
	if strings.TrimSpace(tpl.Name) == "" {
		return models.CodexTemplate{}, fmt.Errorf("codex: template name is required: %w", apperr.ErrInvalidInput)
	}
	if tpl.ID == "" {
		tpl.ID = ident.New()
	}
	if tpl.CreatedAt == 0 {
		tpl.CreatedAt = stamp.Now()
	}
	if tpl.Fields == nil {
		tpl.Fields = []models.TemplateField{}
	}
	err := m.templates(scope).Update(func(items []models.CodexTemplate) ([]models.CodexTemplate, error) {
		return collection.Upsert(items, tpl, templateID), nil
	})
	if err != nil {
		return models.CodexTemplate{}, fmt.Errorf("codex: save template: %w", err)
	}
	return tpl, nil
}

// DeleteTemplate removes a template. Entries keep their templateId.
func (m *Manager) DeleteTemplate(scope, id string) error {
	return m.templates(scope).Update(func(items []models.CodexTemplate) ([]models.CodexTemplate, error) {
		kept, n := collection.Filter(items, func(t models.CodexTemplate) bool { return t.ID != id })
		if n == 0 {
			return nil, fmt.Errorf("codex: template %s: %w", id, apperr.ErrNotFound)
		}
		return kept, nil
	})
}

// ListRelationTypes returns the relation type catalog of scope.
func (m *Manager) ListRelationTypes(scope string) ([]models.CodexRelationType, error) {
	items, err := m.relationTypes(scope).Load()
	if err != nil {
		return nil, fmt.Errorf("codex: list relation types: %w", err)
	}
	return items, nil
}

// SaveRelationType upserts a relation type.
func (m *Manager) SaveRelationType(scope string, rt models.CodexRelationType) (models.CodexRelationType, error) {
	if strings.TrimSpace(rt.Name) == "" {
		return models.CodexRelationType{}, fmt.Errorf("codex: relation type name is required: %w", apperr.ErrInvalidInput)
	}
	if rt.ID == "" {
		rt.ID = ident.New()
	}
	err := m.relationTypes(scope).Update(func(items []models.CodexRelationType) ([]models.CodexRelationType, error) {
		return collection.Upsert(items, rt, relationTypeID), nil
	})
	if err != nil {
		return models.CodexRelationType{}, fmt.Errorf("codex: save relation type: %w", err)
	}
	return rt, nil
}

// DeleteRelationType removes a relation type and clears typeId on every
// relation that used it. It returns the number of relations cleared.
func (m *Manager) DeleteRelationType(scope, id string) (int, error) {
	err := m.relationTypes(scope).Update(func(items []models.CodexRelationType) ([]models.CodexRelationType, error) {
		kept, _ := collection.Filter(items, func(t models.CodexRelationType) bool { return t.ID != id })
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("codex: delete relation type: %w", err)
	}
	cleared := 0
	err = m.relations(scope).Update(func(items []models.CodexRelation) ([]models.CodexRelation, error) {
		for i := range items {
			if items[i].TypeID == id {
				items[i].TypeID = ""
				items[i].UpdatedAt = stamp.Now()
				cleared++
			}
		}
		return items, nil
	})
	if err != nil {
		return 0, fmt.Errorf("codex: delete relation type %s: relations: %w", id, err)
	}
	return cleared, nil
}
