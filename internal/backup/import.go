package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/chat"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/structure"
	"github.com/starford/folio/internal/validate"
)

// defaultCategory files imported entries that carry no category.
const defaultCategory = "lore"

func decode(data []byte) (inDocument, error) {
	var doc inDocument
	if err := validate.BackupPayload(data); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("backup: invalid backup JSON: %w: %w", apperr.ErrInvalidInput, err)
	}
	return doc, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("backup: %s: %w", fmt.Sprintf(format, args...), apperr.ErrInvalidInput)
}

func seriesIndexOf(p *inProject) string {
	if idx := strings.TrimSpace(p.SeriesIndex); idx != "" {
		return idx
	}
	return models.DefaultSeriesIndex
}

// checkPayload validates one project payload without touching the disk.
func checkPayload(pl inPayload, where string) error {
	if pl.Project == nil {
		return malformed("%s: missing project", where)
	}
	if strings.TrimSpace(pl.Project.Title) == "" {
		return malformed("%s: missing project title", where)
	}
	for name := range pl.SceneFiles {
		if err := layout.PlainName(name); err != nil {
			return fmt.Errorf("backup: %s: scene file: %w", where, err)
		}
	}
	var bad error
	structure.Walk(pl.Nodes, func(n models.StructureNode) {
		if bad != nil {
			return
		}
		if !models.ValidNodeType(n.Type) {
			bad = malformed("%s: node %s has type %q", where, n.ID, n.Type)
			return
		}
		if n.File != "" {
			if err := layout.PlainName(n.File); err != nil {
				bad = fmt.Errorf("backup: %s: node %s: %w", where, n.ID, err)
			}
		}
	})
	if bad != nil {
		return bad
	}
	for _, sn := range pl.Snippets {
		if sn.ID == "" {
			continue
		}
		if err := validate.ID("snippet id", sn.ID); err != nil {
			return fmt.Errorf("backup: %s: %w", where, err)
		}
	}
	// thread ids become message file names
	for _, th := range pl.Chats {
		if id := strings.TrimSpace(th.ID); id != "" {
			if err := validate.ID("thread id", id); err != nil {
				return fmt.Errorf("backup: %s: chat: %w", where, err)
			}
		}
	}
	for _, msg := range pl.Messages {
		if id := strings.TrimSpace(msg.ThreadID); id != "" {
			if err := validate.ID("thread id", id); err != nil {
				return fmt.Errorf("backup: %s: message %s: %w", where, msg.ID, err)
			}
		}
	}
	return nil
}

// checkCodex validates the codex entries and fills in missing categories.
func checkCodex(entries []models.CodexEntry) error {
	for i := range entries {
		e := &entries[i]
		if e.Category == "" {
			e.Category = defaultCategory
		}
		if err := validate.ID("codex entry id", e.ID); err != nil {
			return fmt.Errorf("backup: codex entry %d: %w", i, err)
		}
		if err := validate.CodexName(e.Name); err != nil {
			return fmt.Errorf("backup: codex entry %s: %w", e.ID, err)
		}
		if err := validate.Category(e.Category); err != nil {
			return fmt.Errorf("backup: codex entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// ImportSeriesBackup recreates a series backup as a new series with new
// project ids. The whole document is validated before anything is written.
func (s *Service) ImportSeriesBackup(data []byte) (ImportResult, error) {
	doc, err := decode(data)
	if err != nil {
		return ImportResult{}, err
	}
	if doc.BackupType != TypeSeries {
		return ImportResult{}, malformed("expected a series backup, got %q", doc.BackupType)
	}
	if doc.Series == nil || doc.Series.Title == nil {
		return ImportResult{}, malformed("missing series title")
	}
	if err := validate.SeriesTitle(*doc.Series.Title); err != nil {
		return ImportResult{}, err
	}
	indexes := make(map[string]string, len(doc.Projects))
	for i, pl := range doc.Projects {
		if err := checkPayload(pl, fmt.Sprintf("project %d", i+1)); err != nil {
			return ImportResult{}, err
		}
		idx := seriesIndexOf(pl.Project)
		if other, dup := indexes[idx]; dup {
			return ImportResult{}, fmt.Errorf("backup: %q and %q share series index %q: %w",
				other, pl.Project.Title, idx, apperr.ErrConstraint)
		}
		indexes[idx] = pl.Project.Title
	}
	if err := checkCodex(doc.Codex); err != nil {
		return ImportResult{}, err
	}

	series, err := s.library.CreateSeries(library.SeriesInput{
		Title:       *doc.Series.Title,
		Description: doc.Series.Description,
		Author:      doc.Series.Author,
		Genre:       doc.Series.Genre,
		Status:      doc.Series.Status,
	})
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{SeriesID: series.ID, SeriesTitle: series.Title, ProjectIDs: []string{}}
	projectIDs := make(map[string]string, len(doc.Projects))
	ts := stamp.Compact(s.now())
	for i, pl := range doc.Projects {
		dir := fmt.Sprintf("%s_%s_%d", layout.Slugify(pl.Project.Title), ts, i+1)
		proj, err := s.restoreProject(pl, series.ID, seriesIndexOf(pl.Project), dir)
		if err != nil {
			s.logger.Error("backup: series import stopped",
				slog.String("series", series.ID), slog.Int("project", i+1), slog.String("error", err.Error()))
			return result, err
		}
		if pl.Project.ID != "" {
			projectIDs[pl.Project.ID] = proj.ID
		}
		result.ProjectIDs = append(result.ProjectIDs, proj.ID)
	}
	result.ImportedProjectCount = len(result.ProjectIDs)

	snap := remap(doc, projectIDs, nil, series.ID)
	if _, err := s.codex.Restore(layout.SeriesRoot(series.ID), snap); err != nil {
		return result, fmt.Errorf("backup: restore codex: %w", err)
	}
	s.logger.Info("backup: series imported",
		slog.String("series", series.ID), slog.Int("projects", result.ImportedProjectCount),
		slog.Int("codex_entries", len(snap.Entries)))
	return result, nil
}

// ImportProjectBackup adds a project backup to an existing series as a new
// project. Codex entries owned by the backed-up project get new ids in the
// series codex, so the original entries are left untouched. Series-shared
// rows keep their ids and are skipped when the series already has them.
func (s *Service) ImportProjectBackup(data []byte, seriesID, seriesIndex string) (models.Project, error) {
	doc, err := decode(data)
	if err != nil {
		return models.Project{}, err
	}
	if doc.BackupType != TypeProject {
		return models.Project{}, malformed("expected a project backup, got %q", doc.BackupType)
	}
	if strings.TrimSpace(seriesID) == "" {
		return models.Project{}, malformed("a target series is required")
	}
	if err := checkPayload(doc.inPayload, "project"); err != nil {
		return models.Project{}, err
	}
	if err := checkCodex(doc.Codex); err != nil {
		return models.Project{}, err
	}
	if _, err := s.library.GetSeries(seriesID); err != nil {
		return models.Project{}, err
	}
	index := strings.TrimSpace(seriesIndex)
	if index == "" {
		index = seriesIndexOf(doc.Project)
	}

	dir := fmt.Sprintf("%s_%s_1", layout.Slugify(doc.Project.Title), stamp.Compact(s.now()))
	proj, err := s.restoreProject(doc.inPayload, seriesID, index, dir)
	if err != nil {
		return models.Project{}, err
	}

	projectIDs := map[string]string{}
	if doc.Project.ID != "" {
		projectIDs[doc.Project.ID] = proj.ID
	}
	// Entries the project owns get fresh ids; series-shared ones keep theirs
	// so importing several books of one series does not copy them again.
	entryIDs := make(map[string]string, len(doc.Codex))
	for _, e := range doc.Codex {
		if strings.TrimSpace(e.ProjectID) == "" {
			entryIDs[e.ID] = e.ID
		} else {
			entryIDs[e.ID] = ident.New()
		}
	}
	scope := layout.SeriesRoot(seriesID)
	present, err := s.codex.Snapshot(scope)
	if err != nil {
		return proj, fmt.Errorf("backup: read series codex: %w", err)
	}
	snap, reused := withoutPresent(remap(doc, projectIDs, entryIDs, seriesID), present)
	if _, err := s.codex.Restore(scope, snap); err != nil {
		return proj, fmt.Errorf("backup: restore codex: %w", err)
	}
	if reused > 0 {
		s.logger.Debug("backup: shared codex rows already in series",
			slog.String("series", seriesID), slog.Int("reused", reused))
	}
	s.logger.Info("backup: project imported",
		slog.String("project", proj.ID), slog.String("series", seriesID), slog.String("path", proj.Path))
	return proj, nil
}

// restoreProject creates the project directory and writes the outline,
// scene files (plus placeholders), snippets and chats of one payload.
func (s *Service) restoreProject(pl inPayload, seriesID, index, dir string) (models.Project, error) {
	src := pl.Project
	now := stamp.Now()
	proj := models.Project{
		ID:          ident.New(),
		Title:       src.Title,
		Author:      src.Author,
		Description: src.Description,
		Archived:    src.Archived,
		Language:    src.Language,
		CoverImage:  src.CoverImage,
		SeriesID:    seriesID,
		SeriesIndex: index,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	made, err := s.library.PrepareImport(proj, dir)
	for n := 2; errors.Is(err, apperr.ErrAlreadyExists) && n <= 100; n++ {
		made, err = s.library.PrepareImport(proj, fmt.Sprintf("%s_%d", dir, n))
	}
	if err != nil {
		return models.Project{}, err
	}
	proj = made
	root := proj.Path

	if err := s.structure.Save(root, pl.Nodes); err != nil {
		return proj, err
	}
	for file, content := range pl.SceneFiles {
		if err := s.scenes.WriteRaw(root, file, []byte(content)); err != nil {
			return proj, fmt.Errorf("backup: restore scene %s: %w", file, err)
		}
	}
	placeholders := 0
	for _, n := range structure.Scenes(pl.Nodes) {
		created, err := s.scenes.EnsurePlaceholder(root, n)
		if err != nil {
			return proj, fmt.Errorf("backup: placeholder %s: %w", n.File, err)
		}
		if created {
			placeholders++
		}
	}

	for _, sn := range pl.Snippets {
		if sn.ID == "" {
			continue
		}
		created := stamp.Coerce(sn.CreatedAt, now)
		err := s.snippets.Restore(root, models.Snippet{
			ID:        sn.ID,
			ProjectID: proj.ID,
			Title:     sn.Title,
			Content:   sn.Content,
			Pinned:    sn.Pinned,
			CreatedAt: created,
			UpdatedAt: stamp.Coerce(sn.UpdatedAt, created),
		})
		if err != nil {
			return proj, fmt.Errorf("backup: restore snippet %s: %w", sn.ID, err)
		}
	}

	threads, messages := chat.Normalize(proj.ID, pl.Chats, pl.Messages)
	if err := s.chats.ReplaceAll(root, threads, messages); err != nil {
		return proj, err
	}

	s.logger.Debug("backup: project restored",
		slog.String("path", root),
		slog.Int("scenes", len(pl.SceneFiles)),
		slog.Int("placeholders", placeholders),
		slog.Int("threads", len(threads)))
	return proj, nil
}

// remap rewrites the codex of doc into the target series. Entries owned by
// a project missing from projectIDs are dropped; other project references
// that cannot be mapped are cleared. A nil entryIDs keeps every id.
// Otherwise an entry mapped to itself is series-shared, and shared tags,
// relations between shared entries and their entry tags keep their ids too.
func remap(doc inDocument, projectIDs, entryIDs map[string]string, seriesID string) codex.Snapshot {
	entryID := func(id string) string {
		if entryIDs == nil {
			return id
		}
		return entryIDs[id]
	}
	shared := func(id string) bool { return entryIDs == nil || (id != "" && entryIDs[id] == id) }
	project := func(id string) string { return projectIDs[id] }
	keep := func(id string, ok bool) string {
		if (ok || entryIDs == nil) && id != "" {
			return id
		}
		return ident.New()
	}

	var snap codex.Snapshot
	for _, e := range doc.Codex {
		if e.ProjectID != "" {
			mapped, ok := projectIDs[e.ProjectID]
			if !ok {
				continue
			}
			e.ProjectID = mapped
		}
		e.ID = entryID(e.ID)
		e.SeriesID = seriesID
		snap.Entries = append(snap.Entries, e)
	}
	for _, r := range doc.CodexRelations {
		r.ID = keep(r.ID, r.ProjectID == "" && shared(r.ParentID) && shared(r.ChildID))
		r.ParentID = entryID(r.ParentID)
		r.ChildID = entryID(r.ChildID)
		r.ProjectID = project(r.ProjectID)
		snap.Relations = append(snap.Relations, r)
	}
	tagIDs := make(map[string]string, len(doc.CodexTags))
	for _, t := range doc.CodexTags {
		old := t.ID
		t.ID = keep(t.ID, t.ProjectID == "")
		tagIDs[old] = t.ID
		t.ProjectID = project(t.ProjectID)
		snap.Tags = append(snap.Tags, t)
	}
	for _, et := range doc.CodexEntryTags {
		tag := tagIDs[et.TagID]
		et.ID = keep(et.ID, shared(et.EntryID) && tag != "" && tag == et.TagID)
		et.EntryID = entryID(et.EntryID)
		et.TagID = tag
		snap.EntryTags = append(snap.EntryTags, et)
	}
	for _, l := range doc.SceneCodexLinks {
		l.ID = keep(l.ID, false)
		l.CodexID = entryID(l.CodexID)
		l.ProjectID = project(l.ProjectID)
		snap.SceneLinks = append(snap.SceneLinks, l)
	}
	snap.RelationTypes = doc.CodexRelationTypes
	return snap
}

// withoutPresent drops the entries, tags, entry tags and relations whose id
// already exists in present, leaving the series' own copy untouched. It
// returns how many rows were dropped.
func withoutPresent(snap, present codex.Snapshot) (codex.Snapshot, int) {
	n := 0
	entries := make(map[string]bool, len(present.Entries))
	for _, e := range present.Entries {
		entries[e.ID] = true
	}
	tags := make(map[string]bool, len(present.Tags))
	for _, t := range present.Tags {
		tags[t.ID] = true
	}
	entryTags := make(map[string]bool, len(present.EntryTags))
	for _, et := range present.EntryTags {
		entryTags[et.ID] = true
	}
	relations := make(map[string]bool, len(present.Relations))
	for _, r := range present.Relations {
		relations[r.ID] = true
	}

	var out codex.Snapshot
	for _, e := range snap.Entries {
		if entries[e.ID] {
			n++
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	for _, t := range snap.Tags {
		if tags[t.ID] {
			n++
			continue
		}
		out.Tags = append(out.Tags, t)
	}
	for _, et := range snap.EntryTags {
		if entryTags[et.ID] {
			n++
			continue
		}
		out.EntryTags = append(out.EntryTags, et)
	}
	for _, r := range snap.Relations {
		if relations[r.ID] {
			n++
			continue
		}
		out.Relations = append(out.Relations, r)
	}
	out.SceneLinks = snap.SceneLinks
	out.RelationTypes = snap.RelationTypes
	return out, n
}
