package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/structure"
)

// ProjectJSON returns the backup document of the project at path.
func (s *Service) ProjectJSON(projectPath string) ([]byte, error) {
	doc, _, err := s.projectDocument(projectPath)
	if err != nil {
		return nil, err
	}
	return encode(doc)
}

// ExportProjectBackup writes the project backup into the project's exports
// directory and returns the library-relative file path.
func (s *Service) ExportProjectBackup(projectPath string) (string, error) {
	doc, proj, err := s.projectDocument(projectPath)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_backup_%s.json", layout.Slugify(proj.Title), stamp.Suffix(s.now()))
	return s.write(path.Join(layout.ExportsDir(proj.Path), name), doc)
}

// SeriesJSON returns the backup document of a series with all its projects.
func (s *Service) SeriesJSON(seriesID string) ([]byte, error) {
	doc, err := s.seriesDocument(seriesID)
	if err != nil {
		return nil, err
	}
	return encode(doc)
}

// ExportSeriesBackup writes the series backup into the series' exports
// directory and returns the library-relative file path.
func (s *Service) ExportSeriesBackup(seriesID string) (string, error) {
	doc, err := s.seriesDocument(seriesID)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_series_backup_%s.json", layout.Slugify(doc.Series.Title), stamp.Suffix(s.now()))
	return s.write(path.Join(layout.ExportsDir(layout.SeriesRoot(seriesID)), name), doc)
}

func (s *Service) write(file string, doc Document) (string, error) {
	data, err := encode(doc)
	if err != nil {
		return "", fmt.Errorf("backup: encode: %w", err)
	}
	if err := s.store.Write(file, data); err != nil {
		return "", fmt.Errorf("backup: write %s: %w", file, err)
	}
	s.logger.Info("backup: exported",
		slog.String("type", doc.BackupType), slog.String("file", file), slog.Int("bytes", len(data)))
	return file, nil
}

func (s *Service) exportedAt() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Service) projectDocument(projectPath string) (Document, models.Project, error) {
	proj, err := s.library.GetProject(projectPath)
	if err != nil {
		return Document{}, models.Project{}, err
	}
	payload, err := s.payload(proj)
	if err != nil {
		return Document{}, proj, err
	}
	snap, err := s.codex.Snapshot(library.ScopeFor(proj))
	if err != nil {
		return Document{}, proj, fmt.Errorf("backup: codex: %w", err)
	}
	doc := Document{
		Version:        Version,
		BackupType:     TypeProject,
		ExportedAt:     s.exportedAt(),
		Project:        &payload.Project,
		Nodes:          payload.Nodes,
		SceneFiles:     payload.SceneFiles,
		Snippets:       payload.Snippets,
		Chats:          payload.Chats,
		Messages:       payload.Messages,
		Codex:          snap.Entries,
		CodexRelations: snap.Relations,
	}
	return doc, proj, nil
}

func (s *Service) seriesDocument(seriesID string) (Document, error) {
	series, err := s.library.GetSeries(seriesID)
	if err != nil {
		return Document{}, err
	}
	projects, err := s.library.ProjectsInSeries(seriesID)
	if err != nil {
		return Document{}, err
	}
	payloads := make([]ProjectPayload, 0, len(projects))
	for _, p := range projects {
		pl, err := s.payload(p)
		if err != nil {
			return Document{}, err
		}
		payloads = append(payloads, pl)
	}
	snap, err := s.codex.Snapshot(layout.SeriesRoot(seriesID))
	if err != nil {
		return Document{}, fmt.Errorf("backup: codex: %w", err)
	}
	return Document{
		Version:            Version,
		BackupType:         TypeSeries,
		ExportedAt:         s.exportedAt(),
		Series:             &series,
		Projects:           payloads,
		Codex:              snap.Entries,
		CodexRelations:     snap.Relations,
		CodexTags:          snap.Tags,
		CodexEntryTags:     snap.EntryTags,
		SceneCodexLinks:    snap.SceneLinks,
		CodexRelationTypes: customTypes(snap.RelationTypes),
	}, nil
}

// customTypes leaves out the built-in relation types, which every scope
// is seeded with.
func customTypes(all []models.CodexRelationType) []models.CodexRelationType {
	var out []models.CodexRelationType
	for _, t := range all {
		if !t.IsBuiltIn {
			out = append(out, t)
		}
	}
	return out
}

func (s *Service) payload(proj models.Project) (ProjectPayload, error) {
	nodes, err := s.structure.Get(proj.Path)
	if err != nil {
		return ProjectPayload{}, fmt.Errorf("backup: %s: %w", proj.Path, err)
	}
	files := make(map[string]string)
	for _, n := range structure.Scenes(nodes) {
		data, err := s.scenes.ReadRaw(proj.Path, n.File)
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("backup: scene file missing",
				slog.String("project", proj.Path), slog.String("file", n.File))
			continue
		}
		if err != nil {
			return ProjectPayload{}, fmt.Errorf("backup: read scene %s: %w", n.File, err)
		}
		files[n.File] = string(data)
	}
	snips, err := s.snippets.List(proj.Path)
	if err != nil {
		return ProjectPayload{}, err
	}
	threads, err := s.chats.AllThreads(proj.Path)
	if err != nil {
		return ProjectPayload{}, err
	}
	messages := []models.ChatMessage{}
	for _, t := range threads {
		msgs, err := s.chats.Messages(proj.Path, t.ID)
		if err != nil {
			return ProjectPayload{}, err
		}
		messages = append(messages, msgs...)
	}
	return ProjectPayload{
		Project:    proj,
		Nodes:      nodes,
		SceneFiles: files,
		Snippets:   snips,
		Chats:      threads,
		Messages:   messages,
	}, nil
}
