package library

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/validate"
)

// SeriesInput describes a new series.
type SeriesInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Status      string `json:"status"`
}

// SeriesUpdate is a partial series update; nil fields are left alone.
type SeriesUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Author      *string `json:"author"`
	Genre       *string `json:"genre"`
	Status      *string `json:"status"`
}

func backfillSeries(s models.Series) models.Series {
	if s.Status == "" {
		s.Status = models.DefaultSeriesStatus
	}
	return s
}

// ListSeries returns every series.
func (m *Manager) ListSeries() ([]models.Series, error) {
	items, err := m.series().Load()
	if err != nil {
		return nil, fmt.Errorf("library: list series: %w", err)
	}
	for i := range items {
		items[i] = backfillSeries(items[i])
	}
	return items, nil
}

// GetSeries returns one series.
func (m *Manager) GetSeries(id string) (models.Series, error) {
	all, err := m.ListSeries()
	if err != nil {
		return models.Series{}, err
	}
	if s, ok := collection.Find(all, func(s models.Series) bool { return s.ID == id }); ok {
		return s, nil
	}
	return models.Series{}, fmt.Errorf("library: series %s: %w", id, apperr.ErrNotFound)
}

// CreateSeries records a new series and seeds its shared codex.
func (m *Manager) CreateSeries(in SeriesInput) (models.Series, error) {
	if err := validate.SeriesTitle(in.Title); err != nil {
		return models.Series{}, err
	}
	now := stamp.Now()
	s := backfillSeries(models.Series{
		ID:          ident.New(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Author:      in.Author,
		Genre:       in.Genre,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	scope := layout.SeriesRoot(s.ID)
	if err := m.store.MkdirAll(layout.CodexDir(scope)); err != nil {
		return models.Series{}, fmt.Errorf("library: create series dir: %w", err)
	}
	if err := m.codex.Seed(scope); err != nil {
		return models.Series{}, fmt.Errorf("library: seed series codex: %w", err)
	}
	err := m.series().Update(func(items []models.Series) ([]models.Series, error) {
		return append(items, s), nil
	})
	if err != nil {
		return models.Series{}, fmt.Errorf("library: create series: %w", err)
	}
	m.logger.Info("library: series created", slog.String("id", s.ID), slog.String("title", s.Title))
	return s, nil
}

// UpdateSeries applies upd to a series.
func (m *Manager) UpdateSeries(id string, upd SeriesUpdate) (models.Series, error) {
	if upd.Title != nil {
		if err := validate.SeriesTitle(*upd.Title); err != nil {
			return models.Series{}, err
		}
	}
	var out models.Series
	err := m.series().Update(func(items []models.Series) ([]models.Series, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			s := &items[i]
			if upd.Title != nil {
				s.Title = strings.TrimSpace(*upd.Title)
			}
			if upd.Description != nil {
				s.Description = *upd.Description
			}
			if upd.Author != nil {
				s.Author = *upd.Author
			}
			if upd.Genre != nil {
				s.Genre = *upd.Genre
			}
			if upd.Status != nil {
				s.Status = *upd.Status
			}
			s.UpdatedAt = stamp.Now()
			*s = backfillSeries(*s)
			out = *s
			return items, nil
		}
		return nil, fmt.Errorf("library: series %s: %w", id, apperr.ErrNotFound)
	})
	if err != nil {
		return models.Series{}, err
	}
	return out, nil
}

// ProjectsInSeries returns the registered projects linked to a series.
func (m *Manager) ProjectsInSeries(id string) ([]models.Project, error) {
	all, err := m.ListProjects()
	if err != nil {
		return nil, err
	}
	out := []models.Project{}
	for _, p := range all {
		if p.SeriesID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

// DeleteSeries removes a series that no project links to.
func (m *Manager) DeleteSeries(id string) error {
	m.identity.Lock()
	defer m.identity.Unlock()

	if _, err := m.GetSeries(id); err != nil {
		return err
	}
	linked, err := m.ProjectsInSeries(id)
	if err != nil {
		return err
	}
	if len(linked) > 0 {
		return fmt.Errorf("library: series %s still has %d project(s): %w", id, len(linked), apperr.ErrConstraint)
	}
	return m.removeSeries(id)
}

func (m *Manager) removeSeries(id string) error {
	err := m.series().Update(func(items []models.Series) ([]models.Series, error) {
		kept, _ := collection.Filter(items, func(s models.Series) bool { return s.ID != id })
		return kept, nil
	})
	if err != nil {
		return fmt.Errorf("library: delete series: %w", err)
	}
	if err := m.store.RemoveAll(layout.SeriesRoot(id)); err != nil {
		return fmt.Errorf("library: remove series dir: %w", err)
	}
	m.logger.Info("library: series deleted", slog.String("id", id))
	return nil
}

// DeleteSeriesCascade moves every linked project to the trash, records the
// series in the deleted-series registry and removes the series with its
// shared codex.
func (m *Manager) DeleteSeriesCascade(id string) (models.DeletedSeries, error) {
	m.identity.Lock()
	defer m.identity.Unlock()

	s, err := m.GetSeries(id)
	if err != nil {
		return models.DeletedSeries{}, err
	}
	linked, err := m.ProjectsInSeries(id)
	if err != nil {
		return models.DeletedSeries{}, err
	}
	for _, p := range linked {
		if _, err := m.DeleteProject(p.Path); err != nil {
			return models.DeletedSeries{}, fmt.Errorf("library: cascade series %s: %w", id, err)
		}
	}
	rec := models.DeletedSeries{
		ID:           ident.New(),
		OriginalID:   s.ID,
		Title:        s.Title,
		Description:  s.Description,
		Author:       s.Author,
		Genre:        s.Genre,
		Status:       s.Status,
		ProjectCount: len(linked),
		DeletedAt:    stamp.Now(),
	}
	err = m.deletedSeries().Update(func(items []models.DeletedSeries) ([]models.DeletedSeries, error) {
		return append(items, rec), nil
	})
	if err != nil {
		return models.DeletedSeries{}, fmt.Errorf("library: record deleted series: %w", err)
	}
	if err := m.removeSeries(id); err != nil {
		return rec, err
	}
	return rec, nil
}

// ListDeletedSeries returns the deleted-series registry.
func (m *Manager) ListDeletedSeries() ([]models.DeletedSeries, error) {
	items, err := m.deletedSeries().Load()
	if err != nil {
		return nil, fmt.Errorf("library: deleted series: %w", err)
	}
	return items, nil
}

// RestoreDeletedSeries recreates a deleted series under a new id from its
// recorded fields. Its former codex is not recovered.
func (m *Manager) RestoreDeletedSeries(id string) (models.Series, error) {
	all, err := m.ListDeletedSeries()
	if err != nil {
		return models.Series{}, err
	}
	rec, ok := collection.Find(all, func(d models.DeletedSeries) bool { return d.ID == id })
	if !ok {
		return models.Series{}, fmt.Errorf("library: deleted series %s: %w", id, apperr.ErrNotFound)
	}
	s, err := m.CreateSeries(SeriesInput{
		Title:       rec.Title,
		Description: rec.Description,
		Author:      rec.Author,
		Genre:       rec.Genre,
		Status:      rec.Status,
	})
	if err != nil {
		return models.Series{}, err
	}
	if err := m.PurgeDeletedSeries(id); err != nil {
		return s, err
	}
	return s, nil
}

// PurgeDeletedSeries forgets a deleted-series record.
func (m *Manager) PurgeDeletedSeries(id string) error {
	return m.deletedSeries().Update(func(items []models.DeletedSeries) ([]models.DeletedSeries, error) {
		kept, n := collection.Filter(items, func(d models.DeletedSeries) bool { return d.ID != id })
		if n == 0 {
			return nil, fmt.Errorf("library: deleted series %s: %w", id, apperr.ErrNotFound)
		}
		return kept, nil
	})
}
