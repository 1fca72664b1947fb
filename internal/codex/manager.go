// Package codex manages a codex scope: one JSON file per entry filed by
// category, plus flat collections of relations, tags, entry tags, scene
// links, templates and relation types that must keep referring to entries
// that exist.
//
// A scope is a directory relative to the library root: a series directory,
// or a project directory for codexes that predate series.
package codex

import (
	"log/slog"

	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Collection names below <scope>/.meta.
const (
	relationsName     = "codex_relations"
	tagsName          = "codex_tags"
	entryTagsName     = "codex_entry_tags"
	sceneLinksName    = "scene_codex_links"
	templatesName     = "codex_templates"
	relationTypesName = "codex_relation_types"
)

// Manager performs codex operations against any scope.
type Manager struct {
	store      storage.Provider
	logger     *slog.Logger
	listPolicy collection.Policy
}

// Option configures a Manager.
type Option func(*Manager)

// WithListPolicy sets how List treats entry files that fail to parse.
// The default is collection.SkipInvalid.
func WithListPolicy(p collection.Policy) Option {
	return func(m *Manager) { m.listPolicy = p }
}

// NewManager creates a codex manager.
func NewManager(store storage.Provider, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{store: store, logger: logger, listPolicy: collection.SkipInvalid}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) relations(scope string) *collection.Collection[models.CodexRelation] {
	return collection.New[models.CodexRelation](m.store, layout.CodexCollection(scope, relationsName))
}

func (m *Manager) tags(scope string) *collection.Collection[models.CodexTag] {
	return collection.New[models.CodexTag](m.store, layout.CodexCollection(scope, tagsName))
}

func (m *Manager) entryTags(scope string) *collection.Collection[models.CodexEntryTag] {
	return collection.New[models.CodexEntryTag](m.store, layout.CodexCollection(scope, entryTagsName))
}

func (m *Manager) sceneLinks(scope string) *collection.Collection[models.SceneCodexLink] {
	return collection.New[models.SceneCodexLink](m.store, layout.CodexCollection(scope, sceneLinksName))
}

func (m *Manager) templates(scope string) *collection.Collection[models.CodexTemplate] {
	return collection.New[models.CodexTemplate](m.store, layout.CodexCollection(scope, templatesName))
}

func (m *Manager) relationTypes(scope string) *collection.Collection[models.CodexRelationType] {
	return collection.New[models.CodexRelationType](m.store, layout.CodexCollection(scope, relationTypesName))
}

func relationID(r models.CodexRelation) string { return r.ID }
func tagID(t models.CodexTag) string { return t.ID }
func entryTagID(t models.CodexEntryTag) string { return t.ID }
func sceneLinkID(l models.SceneCodexLink) string { return l.ID }
func templateID(t models.CodexTemplate) string { return t.ID }
func relationTypeID(t models.CodexRelationType) string { return t.ID }
