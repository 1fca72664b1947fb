package library

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

// ListTrash returns the trashed projects, most recently deleted first.
func (m *Manager) ListTrash() ([]models.TrashedProject, error) {
	items, err := m.trash().Load()
	if err != nil {
		return nil, fmt.Errorf("library: list trash: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DeletedAt > items[j].DeletedAt })
	return items, nil
}

func (m *Manager) trashed(name string) (models.TrashedProject, error) {
	items, err := m.trash().Load()
	if err != nil {
		return models.TrashedProject{}, fmt.Errorf("library: trash: %w", err)
	}
	rec, ok := collection.Find(items, func(t models.TrashedProject) bool { return t.TrashName == name })
	if !ok {
		return models.TrashedProject{}, fmt.Errorf("library: trash item %s: %w", name, apperr.ErrNotFound)
	}
	return rec, nil
}

func (m *Manager) forgetTrashed(name string) error {
	return m.trash().Update(func(items []models.TrashedProject) ([]models.TrashedProject, error) {
		kept, _ := collection.Filter(items, func(t models.TrashedProject) bool { return t.TrashName != name })
		return kept, nil
	})
}

// RestoreProject moves a trashed project back to its original path, or to
// "<path>_restored_<timestamp>" when that path is taken, and registers it
// again. A project whose series no longer exists comes back without one.
func (m *Manager) RestoreProject(name string) (models.Project, error) {
	rec, err := m.trashed(name)
	if err != nil {
		return models.Project{}, err
	}
	src := layout.TrashDir + "/" + name

	m.identity.Lock()
	defer m.identity.Unlock()

	proj, found, err := collection.NewDoc[models.Project](m.store, layout.ProjectFile(src)).Load()
	if err != nil {
		return models.Project{}, fmt.Errorf("library: restore %s: %w", name, err)
	}
	if !found {
		return models.Project{}, fmt.Errorf("library: restore %s: project metadata: %w", name, apperr.ErrNotFound)
	}
	proj = backfillProject(proj, rec.OriginalPath)

	if proj.SeriesID != "" {
		if _, err := m.GetSeries(proj.SeriesID); errors.Is(err, apperr.ErrNotFound) {
			m.logger.Warn("library: restored project's series is gone",
				slog.String("project", proj.ID), slog.String("series", proj.SeriesID))
			proj.SeriesID = ""
		} else if err != nil {
			return models.Project{}, err
		}
	}
	if err := m.checkSeriesIndex(proj.SeriesID, proj.SeriesIndex, ""); err != nil {
		return models.Project{}, err
	}

	target := rec.OriginalPath
	if taken, err := m.store.Exists(target); err != nil {
		return models.Project{}, err
	} else if taken {
		target = rec.OriginalPath + "_restored_" + stamp.Suffix(m.now())
	}
	if err := m.store.Move(src, target); err != nil {
		return models.Project{}, fmt.Errorf("library: restore %s: %w", name, err)
	}

	proj.Path = target
	proj.UpdatedAt = stamp.Now()
	if err := m.projectDoc(target).Save(proj); err != nil {
		return models.Project{}, fmt.Errorf("library: restore %s: %w", name, err)
	}
	if err := m.register(proj); err != nil {
		return proj, err
	}
	if err := m.forgetTrashed(name); err != nil {
		return proj, fmt.Errorf("library: restore %s: %w", name, err)
	}
	m.logger.Info("library: project restored", slog.String("trash", name), slog.String("path", target))
	return proj, nil
}

// PermanentlyDelete erases one trashed project.
func (m *Manager) PermanentlyDelete(name string) error {
	if _, err := m.trashed(name); err != nil {
		return err
	}
	if err := layout.PlainName(name); err != nil {
		return err
	}
	if err := m.store.RemoveAll(layout.TrashDir + "/" + name); err != nil {
		return fmt.Errorf("library: purge %s: %w", name, err)
	}
	return m.forgetTrashed(name)
}

// EmptyTrash erases everything in the trash and returns how many folders
// were removed.
func (m *Manager) EmptyTrash() (int, error) {
	entries, err := m.store.ReadDir(layout.TrashDir)
	if err != nil {
		return 0, fmt.Errorf("library: empty trash: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if err := m.store.RemoveAll(layout.TrashDir + "/" + e.Name); err != nil {
			return removed, fmt.Errorf("library: empty trash: %w", err)
		}
		removed++
	}
	if err := m.trash().Save(nil); err != nil {
		return removed, fmt.Errorf("library: empty trash: %w", err)
	}
	m.logger.Info("library: trash emptied", slog.Int("removed", removed))
	return removed, nil
}
