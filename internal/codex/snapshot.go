package codex

import (
	"fmt"
	"log/slog"

	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/models"
)

// Snapshot is the full content of a codex scope.
type Snapshot struct {
	Entries       []models.CodexEntry
	Relations     []models.CodexRelation
	Tags          []models.CodexTag
	EntryTags     []models.CodexEntryTag
	SceneLinks    []models.SceneCodexLink
	RelationTypes []models.CodexRelationType
}

// Snapshot reads every entry and collection of scope.
func (m *Manager) Snapshot(scope string) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Entries, err = m.List(scope, ""); err != nil {
		return snap, err
	}
	if snap.Relations, err = m.ListRelations(scope); err != nil {
		return snap, err
	}
	if snap.Tags, err = m.ListTags(scope); err != nil {
		return snap, err
	}
	if snap.EntryTags, err = m.ListEntryTags(scope, ""); err != nil {
		return snap, err
	}
	if snap.SceneLinks, err = m.ListSceneLinks(scope); err != nil {
		return snap, err
	}
	if snap.RelationTypes, err = m.ListRelationTypes(scope); err != nil {
		return snap, err
	}
	return snap, nil
}

// RestoreReport counts what Restore wrote and what it had to drop to keep
// references intact.
type RestoreReport struct {
	Entries           int `json:"entries"`
	Relations         int `json:"relations"`
	DroppedRelations  int `json:"droppedRelations"`
	ClearedTypes      int `json:"clearedTypes"`
	DroppedEntryTags  int `json:"droppedEntryTags"`
	DroppedSceneLinks int `json:"droppedSceneLinks"`
}

// Restore merges snap into scope. Entries are saved one by one; relation
// types, tags, entry tags, scene links and relations are upserted into the
// existing collections after dropping rows that would reference entries or
// tags that do not exist and clearing unknown relation types.
func (m *Manager) Restore(scope string, snap Snapshot) (RestoreReport, error) {
	var rep RestoreReport
	for _, e := range snap.Entries {
		if _, err := m.Save(scope, e); err != nil {
			return rep, fmt.Errorf("codex: restore entry %s: %w", e.ID, err)
		}
		rep.Entries++
	}

	existing, err := m.List(scope, "")
	if err != nil {
		return rep, err
	}
	entries := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		entries[e.ID] = struct{}{}
	}

	var types []models.CodexRelationType
	err = m.relationTypes(scope).Update(func(items []models.CodexRelationType) ([]models.CodexRelationType, error) {
		for _, rt := range snap.RelationTypes {
			items = collection.Upsert(items, rt, relationTypeID)
		}
		types = items
		return items, nil
	})
	if err != nil {
		return rep, fmt.Errorf("codex: restore relation types: %w", err)
	}
	typeIDs := make(map[string]struct{}, len(types))
	for _, t := range types {
		typeIDs[t.ID] = struct{}{}
	}

	var tagIDs map[string]struct{}
	err = m.tags(scope).Update(func(items []models.CodexTag) ([]models.CodexTag, error) {
		for _, t := range snap.Tags {
			items = collection.Upsert(items, t, tagID)
		}
		tagIDs = make(map[string]struct{}, len(items))
		for _, t := range items {
			tagIDs[t.ID] = struct{}{}
		}
		return items, nil
	})
	if err != nil {
		return rep, fmt.Errorf("codex: restore tags: %w", err)
	}

	err = m.entryTags(scope).Update(func(items []models.CodexEntryTag) ([]models.CodexEntryTag, error) {
		for _, et := range snap.EntryTags {
			_, okEntry := entries[et.EntryID]
			_, okTag := tagIDs[et.TagID]
			if !okEntry || !okTag {
				rep.DroppedEntryTags++
				continue
			}
			items = collection.Upsert(items, et, entryTagID)
		}
		return items, nil
	})
	if err != nil {
		return rep, fmt.Errorf("codex: restore entry tags: %w", err)
	}

	err = m.sceneLinks(scope).Update(func(items []models.SceneCodexLink) ([]models.SceneCodexLink, error) {
		for _, l := range snap.SceneLinks {
			if _, ok := entries[l.CodexID]; !ok {
				rep.DroppedSceneLinks++
				continue
			}
			items = collection.Upsert(items, l, sceneLinkID)
		}
		return items, nil
	})
	if err != nil {
		return rep, fmt.Errorf("codex: restore scene links: %w", err)
	}

	err = m.relations(scope).Update(func(items []models.CodexRelation) ([]models.CodexRelation, error) {
		for _, r := range snap.Relations {
			_, okParent := entries[r.ParentID]
			_, okChild := entries[r.ChildID]
			if !okParent || !okChild {
				rep.DroppedRelations++
				continue
			}
			if r.TypeID != "" {
				if _, ok := typeIDs[r.TypeID]; !ok {
					r.TypeID = ""
					rep.ClearedTypes++
				}
			}
			items = collection.Upsert(items, r, relationID)
			rep.Relations++
		}
		return items, nil
	})
	if err != nil {
		return rep, fmt.Errorf("codex: restore relations: %w", err)
	}

	m.logger.Info("codex: scope restored",
		slog.String("scope", scope),
		slog.Int("entries", rep.Entries),
		slog.Int("relations", rep.Relations),
		slog.Int("dropped_relations", rep.DroppedRelations))
	return rep, nil
}
