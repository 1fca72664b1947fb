package codex

import (
	"fmt"
	"log/slog"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

func builtInTemplates(now int64) []models.CodexTemplate {
	field := func(id, name, typ string) models.TemplateField {
		return models.TemplateField{ID: id, Name: name, FieldType: typ}
	}
	return []models.CodexTemplate{
		{
			ID: "template-character-basic", Name: "Basic Character", Category: "character", IsBuiltIn: true, CreatedAt: now,
			Fields: []models.TemplateField{
				field("field-age", "Age", "number"),
				field("field-personality", "Personality", "textarea"),
				field("field-backstory", "Backstory", "textarea"),
				field("field-motivation", "Motivation", "text"),
				field("field-appearance", "Physical Appearance", "textarea"),
			},
		},
		{
			ID: "template-location-basic", Name: "Basic Location", Category: "location", IsBuiltIn: true, CreatedAt: now,
			Fields: []models.TemplateField{
				field("field-description", "Description", "textarea"),
				field("field-atmosphere", "Atmosphere", "text"),
				field("field-inhabitants", "Inhabitants", "textarea"),
			},
		},
		{
			ID: "template-item-basic", Name: "Basic Item", Category: "item", IsBuiltIn: true, CreatedAt: now,
			Fields: []models.TemplateField{
				field("field-type", "Type", "text"),
				field("field-value", "Value/Importance", "text"),
				field("field-description", "Description", "textarea"),
			},
		},
	}
}

// BuiltInRelationTypes is the relation type catalog every new scope starts with.
func BuiltInRelationTypes() []models.CodexRelationType {
	rt := func(id, name, category, color string, directional, strength bool) models.CodexRelationType {
		return models.CodexRelationType{
			ID: id, Name: name, Category: category, Color: color,
			IsBuiltIn: true, IsDirectional: directional, CanHaveStrength: strength,
		}
	}
	return []models.CodexRelationType{
		rt("rel-friend", "Friend", "personal", "#4ade80", false, true),
		rt("rel-enemy", "Enemy", "personal", "#ef4444", false, true),
		rt("rel-family", "Family", "personal", "#60a5fa", false, false),
		rt("rel-romantic", "Romantic Partner", "personal", "#f472b6", false, true),
		rt("rel-mentor", "Mentor/Mentee", "professional", "#a78bfa", true, false),
		rt("rel-rival", "Rival", "personal", "#fbbf24", false, true),
		rt("rel-located-in", "Located In", "spatial", "#2dd4bf", true, false),
		rt("rel-owns", "Owns", "possession", "#818cf8", true, false),
	}
}

// Seed writes the built-in templates and relation types into scope unless
// the catalogs already exist. Existing catalogs are never overwritten.
func (m *Manager) Seed(scope string) error {
	seeded := false
	err := m.templates(scope).Doc().Update(func(cur []models.CodexTemplate, found bool) ([]models.CodexTemplate, error) {
		if found {
			return cur, nil
		}
		seeded = true
		return builtInTemplates(stamp.Now()), nil
	})
	if err != nil {
		return fmt.Errorf("codex: seed templates: %w", err)
	}
	err = m.relationTypes(scope).Doc().Update(func(cur []models.CodexRelationType, found bool) ([]models.CodexRelationType, error) {
		if found {
			return cur, nil
		}
		seeded = true
		return BuiltInRelationTypes(), nil
	})
	if err != nil {
		return fmt.Errorf("codex: seed relation types: %w", err)
	}
	if seeded {
		m.logger.Debug("codex: seeded built-in catalogs", slog.String("scope", scope))
	}
	return nil
}
