package codex

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/validate"
)

// Cascade step names, in execution order.
const (
	StepEntryFiles = "entry-files"
	StepRelations  = "relations"
	StepSceneLinks = "scene-links"
	StepEntryTags  = "entry-tags"
)

// StepResult counts the records one cascade step removed.
type StepResult struct {
	Step    string `json:"step"`
	Removed int    `json:"removed"`
}

// CascadeReport describes a completed (or partially completed) delete.
type CascadeReport struct {
	EntryID string       `json:"entryId"`
	Steps   []StepResult `json:"steps"`
}

// Removed returns the count for step, or 0 if it did not run.
func (r CascadeReport) Removed(step string) int {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.Removed
		}
	}
	return 0
}

// CascadeError reports the step at which an entry delete stopped. Steps
// already listed in Report completed; running Delete again is safe and
// finishes the remaining steps.
type CascadeError struct {
	EntryID string
	Step    string
	Report  CascadeReport
	Err     error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("codex: delete %s stopped at %s: %v", e.EntryID, e.Step, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

type cascadeStep struct {
	name string
	run  func(m *Manager, scope, id, category string) (int, error)
}

// Every step is a filter-and-rewrite and therefore idempotent.
var entryCascade = []cascadeStep{
	{StepEntryFiles, (*Manager).removeEntryFiles},
	{StepRelations, (*Manager).dropRelationsOf},
	{StepSceneLinks, (*Manager).dropSceneLinksOf},
	{StepEntryTags, (*Manager).dropEntryTagsOf},
}

// Delete removes the entry with id from every category folder (category is
// tried first) and drops every relation, scene link and entry tag that
// references it. Deleting an entry that is already gone still runs the
// remaining steps, so a failed delete can simply be repeated.
func (m *Manager) Delete(scope, id, category string) (CascadeReport, error) {
	report := CascadeReport{EntryID: id}
	if err := validate.ID("entry id", id); err != nil {
		return report, err
	}
	for _, step := range entryCascade {
		n, err := step.run(m, scope, id, category)
		if err != nil {
			m.logger.Error("codex: cascade step failed",
				slog.String("id", id), slog.String("step", step.name), slog.String("error", err.Error()))
			return report, &CascadeError{EntryID: id, Step: step.name, Report: report, Err: err}
		}
		report.Steps = append(report.Steps, StepResult{Step: step.name, Removed: n})
	}
	m.logger.Info("codex: entry deleted",
		slog.String("id", id),
		slog.Int("relations", report.Removed(StepRelations)),
		slog.Int("scene_links", report.Removed(StepSceneLinks)),
		slog.Int("entry_tags", report.Removed(StepEntryTags)))
	return report, nil
}

func (m *Manager) removeEntryFiles(scope, id, category string) (int, error) {
	var paths []string
	if category != "" && validate.Category(category) == nil {
		paths = append(paths, layout.CodexEntryFile(scope, category, id))
	}
	found, err := m.locate(scope, id)
	if err != nil {
		return 0, err
	}
	paths = append(paths, found...)

	removed := 0
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if err := m.store.Delete(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) dropRelationsOf(scope, id, _ string) (int, error) {
	var n int
	err := m.relations(scope).Update(func(items []models.CodexRelation) ([]models.CodexRelation, error) {
		var kept []models.CodexRelation
		kept, n = collection.Filter(items, func(r models.CodexRelation) bool {
			return r.ParentID != id && r.ChildID != id
		})
		return kept, nil
	})
	return n, err
}

func (m *Manager) dropSceneLinksOf(scope, id, _ string) (int, error) {
	var n int
	err := m.sceneLinks(scope).Update(func(items []models.SceneCodexLink) ([]models.SceneCodexLink, error) {
		var kept []models.SceneCodexLink
		kept, n = collection.Filter(items, func(l models.SceneCodexLink) bool { return l.CodexID != id })
		return kept, nil
	})
	return n, err
}

func (m *Manager) dropEntryTagsOf(scope, id, _ string) (int, error) {
	var n int
	err := m.entryTags(scope).Update(func(items []models.CodexEntryTag) ([]models.CodexEntryTag, error) {
		var kept []models.CodexEntryTag
		kept, n = collection.Filter(items, func(t models.CodexEntryTag) bool { return t.EntryID != id })
		return kept, nil
	})
	return n, err
}
