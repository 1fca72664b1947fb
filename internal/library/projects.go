package library

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/validate"
)

// CreateProjectInput describes a new project. ParentDir is library-relative
// and defaults to the manager's projects directory.
type CreateProjectInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Language    string `json:"language"`
	ParentDir   string `json:"parentDir"`
	SeriesID    string `json:"seriesId"`
	SeriesIndex string `json:"seriesIndex"`
}

// ProjectUpdate is a partial project update; nil fields are left alone.
type ProjectUpdate struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
	CoverImage  *string `json:"coverImage"`
	Archived    *bool   `json:"archived"`
	SeriesID    *string `json:"seriesId"`
	SeriesIndex *string `json:"seriesIndex"`
}

// ListProjects returns every registered project, most recently updated
// first. Without a registry the projects directory is scanned instead.
func (m *Manager) ListProjects() ([]models.Project, error) {
	paths, err := m.projectPaths()
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(paths))
	for _, p := range paths {
		proj, found, err := m.projectDoc(p).Load()
		if err != nil {
			m.logger.Warn("library: skipping unreadable project",
				slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if !found {
			m.logger.Warn("library: registered project is missing", slog.String("path", p))
			continue
		}
		out = append(out, backfillProject(proj, p))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func (m *Manager) projectPaths() ([]string, error) {
	recs, found, err := m.registry().Doc().Load()
	if err != nil {
		return nil, fmt.Errorf("library: registry: %w", err)
	}
	if found {
		paths := make([]string, 0, len(recs))
		for _, r := range recs {
			paths = append(paths, r.Path)
		}
		return paths, nil
	}

	entries, err := m.store.ReadDir(m.projectsDir)
	if err != nil {
		return nil, fmt.Errorf("library: scan projects: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		p := path.Join(m.projectsDir, e.Name)
		if ok, _ := m.store.Exists(layout.ProjectFile(p)); ok {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// backfillProject applies the one-shot defaults to records written before
// the fields existed. Only projects in a series carry an index.
func backfillProject(p models.Project, dir string) models.Project {
	if p.SeriesID != "" && p.SeriesIndex == "" {
		p.SeriesIndex = models.DefaultSeriesIndex
	}
	if p.Path == "" {
		p.Path = dir
	}
	return p
}

// GetProject loads the project rooted at path.
func (m *Manager) GetProject(path string) (models.Project, error) {
	proj, found, err := m.projectDoc(path).Load()
	if err != nil {
		return models.Project{}, fmt.Errorf("library: get project: %w", err)
	}
	if !found {
		return models.Project{}, fmt.Errorf("library: project %s: %w", path, apperr.ErrNotFound)
	}
	return backfillProject(proj, path), nil
}

// ProjectByID finds a registered project by id.
func (m *Manager) ProjectByID(id string) (models.Project, error) {
	all, err := m.ListProjects()
	if err != nil {
		return models.Project{}, err
	}
	if p, ok := collection.Find(all, func(p models.Project) bool { return p.ID == id }); ok {
		return p, nil
	}
	return models.Project{}, fmt.Errorf("library: project %s: %w", id, apperr.ErrNotFound)
}

// checkSeriesIndex rejects the pair when another project (any path other
// than exclude) already holds it. Callers hold m.identity.
func (m *Manager) checkSeriesIndex(seriesID, seriesIndex, exclude string) error {
	seriesID = strings.TrimSpace(seriesID)
	seriesIndex = strings.TrimSpace(seriesIndex)
	if seriesID == "" {
		return nil
	}
	all, err := m.ListProjects()
	if err != nil {
		return err
	}
	for _, p := range all {
		if p.Path == exclude {
			continue
		}
		if strings.TrimSpace(p.SeriesID) == seriesID && strings.TrimSpace(p.SeriesIndex) == seriesIndex {
			return fmt.Errorf("library: %q is already used by %q in this series: %w",
				seriesIndex, p.Title, apperr.ErrConstraint)
		}
	}
	return nil
}

func cleanDir(dir string) (string, error) {
	c := path.Clean(strings.ReplaceAll(dir, `\`, "/"))
	if c == "." || path.IsAbs(c) || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("library: invalid directory %q: %w", dir, apperr.ErrInvalidInput)
	}
	return c, nil
}

// CreateProject creates the project directory, its metadata, an empty
// structure and a seeded codex scope, and registers it.
func (m *Manager) CreateProject(in CreateProjectInput) (models.Project, error) {
	if err := validate.ProjectTitle(in.Title); err != nil {
		return models.Project{}, err
	}
	if err := validate.Author(in.Author); err != nil {
		return models.Project{}, err
	}
	parent := in.ParentDir
	if parent == "" {
		parent = m.projectsDir
	}
	parent, err := cleanDir(parent)
	if err != nil {
		return models.Project{}, err
	}
	dir := path.Join(parent, layout.Slugify(in.Title))

	m.identity.Lock()
	defer m.identity.Unlock()

	if exists, err := m.store.Exists(dir); err != nil {
		return models.Project{}, fmt.Errorf("library: create project: %w", err)
	} else if exists {
		return models.Project{}, fmt.Errorf("library: project %q already exists at %s: %w", in.Title, dir, apperr.ErrAlreadyExists)
	}

	index := strings.TrimSpace(in.SeriesIndex)
	seriesID := strings.TrimSpace(in.SeriesID)
	if seriesID != "" {
		if _, err := m.GetSeries(seriesID); err != nil {
			return models.Project{}, err
		}
		if index == "" {
			index = models.DefaultSeriesIndex
		}
		if err := m.checkSeriesIndex(seriesID, index, ""); err != nil {
			return models.Project{}, err
		}
	}

	now := stamp.Now()
	proj := models.Project{
		ID:          ident.New(),
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Language:    in.Language,
		SeriesID:    seriesID,
		SeriesIndex: index,
		Path:        dir,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.materialize(proj); err != nil {
		return models.Project{}, err
	}
	m.logger.Info("library: project created",
		slog.String("id", proj.ID), slog.String("path", dir), slog.String("series", seriesID))
	return proj, nil
}

// materialize writes a new project directory and registers it.
func (m *Manager) materialize(proj models.Project) error {
	for _, d := range layout.ProjectDirs(proj.Path) {
		if err := m.store.MkdirAll(d); err != nil {
			return fmt.Errorf("library: create project dirs: %w", err)
		}
	}
	if err := m.projectDoc(proj.Path).Save(proj); err != nil {
		return fmt.Errorf("library: write project: %w", err)
	}
	structure := collection.New[models.StructureNode](m.store, layout.StructureFile(proj.Path))
	if err := structure.Save(nil); err != nil {
		return fmt.Errorf("library: write structure: %w", err)
	}
	if err := m.codex.Seed(ScopeFor(proj)); err != nil {
		return fmt.Errorf("library: seed codex: %w", err)
	}
	return m.register(proj)
}

// PrepareImport reserves a fresh directory below the projects directory for
// an imported project and creates it with the given metadata. The series
// index must be unique.
func (m *Manager) PrepareImport(proj models.Project, dirName string) (models.Project, error) {
	if err := layout.PlainName(dirName); err != nil {
		return models.Project{}, err
	}
	m.identity.Lock()
	defer m.identity.Unlock()

	if err := m.checkSeriesIndex(proj.SeriesID, proj.SeriesIndex, ""); err != nil {
		return models.Project{}, err
	}
	dir := path.Join(m.projectsDir, dirName)
	if exists, err := m.store.Exists(dir); err != nil {
		return models.Project{}, err
	} else if exists {
		return models.Project{}, fmt.Errorf("library: %s: %w", dir, apperr.ErrAlreadyExists)
	}
	proj.Path = dir
	if err := m.materialize(proj); err != nil {
		return models.Project{}, err
	}
	return proj, nil
}

func (m *Manager) register(proj models.Project) error {
	now := stamp.Now()
	err := m.registry().Update(func(recs []models.RegistryRecord) ([]models.RegistryRecord, error) {
		rec := models.RegistryRecord{Path: proj.Path, ProjectID: proj.ID, Title: proj.Title, AddedAt: now}
		if prev, ok := collection.Find(recs, func(r models.RegistryRecord) bool { return r.Path == proj.Path }); ok {
			rec.AddedAt = prev.AddedAt
			rec.LastOpenedAt = prev.LastOpenedAt
		}
		return collection.Upsert(recs, rec, registryPath), nil
	})
	if err != nil {
		return fmt.Errorf("library: register %s: %w", proj.Path, err)
	}
	return nil
}

func (m *Manager) unregister(path string) error {
	err := m.registry().Update(func(recs []models.RegistryRecord) ([]models.RegistryRecord, error) {
		kept, _ := collection.Filter(recs, func(r models.RegistryRecord) bool { return r.Path != path })
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("library: unregister %s: %w", path, err)
	}
	return nil
}

// UpdateProject applies upd to the project at path. Changing the series or
// the series index is checked for uniqueness first.
func (m *Manager) UpdateProject(path string, upd ProjectUpdate) (models.Project, error) {
	if upd.Title != nil {
		if err := validate.ProjectTitle(*upd.Title); err != nil {
			return models.Project{}, err
		}
	}
	if upd.Author != nil {
		if err := validate.Author(*upd.Author); err != nil {
			return models.Project{}, err
		}
	}

	m.identity.Lock()
	defer m.identity.Unlock()

	var out models.Project
	err := m.projectDoc(path).Update(func(p models.Project, found bool) (models.Project, error) {
		if !found {
			return p, fmt.Errorf("library: project %s: %w", path, apperr.ErrNotFound)
		}
		p = backfillProject(p, path)
		if upd.SeriesID != nil || upd.SeriesIndex != nil {
			sid, idx := p.SeriesID, p.SeriesIndex
			if upd.SeriesID != nil {
				sid = strings.TrimSpace(*upd.SeriesID)
			}
			if upd.SeriesIndex != nil {
				idx = strings.TrimSpace(*upd.SeriesIndex)
			}
			switch {
			case sid == "":
				idx = ""
			case idx == "":
				idx = models.DefaultSeriesIndex
			}
			if sid != "" && sid != p.SeriesID {
				if _, err := m.GetSeries(sid); err != nil {
					return p, err
				}
			}
			if err := m.checkSeriesIndex(sid, idx, path); err != nil {
				return p, err
			}
			p.SeriesID, p.SeriesIndex = sid, idx
		}
		applyProjectUpdate(&p, upd)
		p.UpdatedAt = stamp.Now()
		out = p
		return p, nil
	})
	if err != nil {
		return models.Project{}, err
	}
	if upd.Title != nil {
		if err := m.register(out); err != nil {
			return models.Project{}, err
		}
	}
	return out, nil
}

func applyProjectUpdate(p *models.Project, upd ProjectUpdate) {
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Author != nil {
		p.Author = *upd.Author
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Language != nil {
		p.Language = *upd.Language
	}
	if upd.CoverImage != nil {
		p.CoverImage = *upd.CoverImage
	}
	if upd.Archived != nil {
		p.Archived = *upd.Archived
	}
}

// ArchiveProject marks a project archived.
func (m *Manager) ArchiveProject(path string) (models.Project, error) {
	archived := true
	return m.UpdateProject(path, ProjectUpdate{Archived: &archived})
}

// OpenProject records that the project was opened and returns it.
func (m *Manager) OpenProject(path string) (models.Project, error) {
	proj, err := m.GetProject(path)
	if err != nil {
		return models.Project{}, err
	}
	now := stamp.Now()
	err = m.registry().Update(func(recs []models.RegistryRecord) ([]models.RegistryRecord, error) {
		rec, ok := collection.Find(recs, func(r models.RegistryRecord) bool { return r.Path == path })
		if !ok {
			rec = models.RegistryRecord{Path: path, ProjectID: proj.ID, Title: proj.Title, AddedAt: now}
		}
		rec.LastOpenedAt = now
		return collection.Upsert(recs, rec, registryPath), nil
	})
	if err != nil {
		return models.Project{}, fmt.Errorf("library: open %s: %w", path, err)
	}
	return proj, nil
}

// RecentProjects returns up to limit projects ordered by when they were
// last opened, restricted to the configured recent window. limit <= 0
// returns all of them.
func (m *Manager) RecentProjects(limit int) ([]models.Project, error) {
	recs, err := m.registry().Load()
	if err != nil {
		return nil, fmt.Errorf("library: recent: %w", err)
	}
	var cutoff int64
	if m.recentWindow > 0 {
		cutoff = m.now().Add(-m.recentWindow).UnixMilli()
	}
	var opened []models.RegistryRecord
	for _, r := range recs {
		if r.LastOpenedAt > 0 && r.LastOpenedAt >= cutoff {
			opened = append(opened, r)
		}
	}
	sort.SliceStable(opened, func(i, j int) bool { return opened[i].LastOpenedAt > opened[j].LastOpenedAt })

	var out []models.Project
	for _, r := range opened {
		if limit > 0 && len(out) == limit {
			break
		}
		p, err := m.GetProject(r.Path)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// DeleteProject moves the project directory into the trash and
// unregisters it.
func (m *Manager) DeleteProject(path string) (models.TrashedProject, error) {
	proj, err := m.GetProject(path)
	if err != nil {
		return models.TrashedProject{}, err
	}
	name, err := m.freeTrashName(path)
	if err != nil {
		return models.TrashedProject{}, err
	}
	if err := m.store.Move(path, layout.TrashDir+"/"+name); err != nil {
		return models.TrashedProject{}, fmt.Errorf("library: trash %s: %w", path, err)
	}
	rec := models.TrashedProject{
		TrashName:    name,
		OriginalPath: path,
		ProjectID:    proj.ID,
		Title:        proj.Title,
		SeriesID:     proj.SeriesID,
		DeletedAt:    stamp.Now(),
	}
	err = m.trash().Update(func(items []models.TrashedProject) ([]models.TrashedProject, error) {
		return append(items, rec), nil
	})
	if err != nil {
		return rec, fmt.Errorf("library: record trash %s: %w", name, err)
	}
	if err := m.unregister(path); err != nil {
		return rec, err
	}
	m.logger.Info("library: project moved to trash", slog.String("path", path), slog.String("trash", name))
	return rec, nil
}

func (m *Manager) freeTrashName(projectPath string) (string, error) {
	base := layout.TrashFolder(projectPath, stamp.Suffix(m.now()))
	name := base
	for n := 2; ; n++ {
		exists, err := m.store.Exists(layout.TrashDir + "/" + name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
}
