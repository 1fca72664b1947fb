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

// ListSceneLinks returns every scene link in scope.
func (m *Manager) ListSceneLinks(scope string) ([]models.SceneCodexLink, error) {
	items, err := m.sceneLinks(scope).Load()
	if err != nil {
		return nil, fmt.Errorf("codex: list scene links: %w", err)
	}
	return items, nil
}

// SceneLinksForScene returns the links of one scene.
func (m *Manager) SceneLinksForScene(scope, sceneID string) ([]models.SceneCodexLink, error) {
	all, err := m.ListSceneLinks(scope)
	if err != nil {
		return nil, err
	}
	out := []models.SceneCodexLink{}
	for _, l := range all {
		if l.SceneID == sceneID {
			out = append(out, l)
		}
	}
	return out, nil
}

// SaveSceneLink upserts a link. The codex entry must exist.
func (m *Manager) SaveSceneLink(scope string, link models.SceneCodexLink) (models.SceneCodexLink, error) {
	if strings.TrimSpace(link.SceneID) == "" {
		return models.SceneCodexLink{}, fmt.Errorf("codex: scene link needs a scene id: %w", apperr.ErrInvalidInput)
	}
	ok, err := m.Exists(scope, link.CodexID)
	if err != nil {
		return models.SceneCodexLink{}, err
	}
	if !ok {
		return models.SceneCodexLink{}, fmt.Errorf("codex: entry %q: %w", link.CodexID, apperr.ErrNotFound)
	}
	if link.ID == "" {
		link.ID = ident.New()
	}
	now := stamp.Now()
	if link.CreatedAt == 0 {
		link.CreatedAt = now
	}
	link.UpdatedAt = now
	err = m.sceneLinks(scope).Update(func(items []models.SceneCodexLink) ([]models.SceneCodexLink, error) {
		return collection.Upsert(items, link, sceneLinkID), nil
	})
	if err != nil {
		return models.SceneCodexLink{}, fmt.Errorf("codex: save scene link: %w", err)
	}
	return link, nil
}

// DeleteSceneLink removes one link.
func (m *Manager) DeleteSceneLink(scope, id string) error {
	return m.sceneLinks(scope).Update(func(items []models.SceneCodexLink) ([]models.SceneCodexLink, error) {
		kept, n := collection.Filter(items, func(l models.SceneCodexLink) bool { return l.ID != id })
		if n == 0 {
			return nil, fmt.Errorf("codex: scene link %s: %w", id, apperr.ErrNotFound)
		}
		return kept, nil
	})
}

// DropSceneLinksForScenes removes the links of the given scenes, used when
// structure nodes are deleted. It returns the number of links dropped.
func (m *Manager) DropSceneLinksForScenes(scope string, sceneIDs []string) (int, error) {
	if len(sceneIDs) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(sceneIDs))
	for _, id := range sceneIDs {
		drop[id] = struct{}{}
	}
	var n int
	err := m.sceneLinks(scope).Update(func(items []models.SceneCodexLink) ([]models.SceneCodexLink, error) {
		var kept []models.SceneCodexLink
		kept, n = collection.Filter(items, func(l models.SceneCodexLink) bool {
			_, gone := drop[l.SceneID]
			return !gone
		})
		return kept, nil
	})
	return n, err
}
