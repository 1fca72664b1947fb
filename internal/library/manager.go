// Package library owns the library-wide records: the project registry,
// projects, series, the project trash and the deleted-series registry.
//
// The registry is the single authority for which projects exist. "Recent
// projects" is a view over it ordered by lastOpenedAt.
package library

import (
	"log/slog"
	"sync"
	"time"

	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Manager performs project and series operations.
type Manager struct {
	store        storage.Provider
	codex        *codex.Manager
	logger       *slog.Logger
	projectsDir  string
	recentWindow time.Duration
	now          func() time.Time

	// identity serialises every change to a project's (seriesId, seriesIndex)
	// and series deletion, so a scan and the write that depends on it cannot
	// interleave with another such change.
	identity sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithProjectsDir sets the default parent directory of new projects.
func WithProjectsDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.projectsDir = dir
		}
	}
}

// WithRecentWindow limits RecentProjects to projects opened within d.
// Zero means no limit.
func WithRecentWindow(d time.Duration) Option {
	return func(m *Manager) { m.recentWindow = d }
}

// WithClock overrides the wall clock used for trash folder names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a library manager. cm seeds the codex scopes of new
// projects and series.
func NewManager(store storage.Provider, cm *codex.Manager, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		codex:       cm,
		logger:      logger,
		projectsDir: layout.ProjectsDir,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the storage provider the manager writes to.
func (m *Manager) Store() storage.Provider { return m.store }

func (m *Manager) registry() *collection.Collection[models.RegistryRecord] {
	return collection.New[models.RegistryRecord](m.store, layout.ProjectRegistry)
}

func (m *Manager) series() *collection.Collection[models.Series] {
	return collection.New[models.Series](m.store, layout.SeriesRegistry)
}

func (m *Manager) deletedSeries() *collection.Collection[models.DeletedSeries] {
	return collection.New[models.DeletedSeries](m.store, layout.DeletedSeriesRegistry)
}

func (m *Manager) trash() *collection.Collection[models.TrashedProject] {
	return collection.New[models.TrashedProject](m.store, layout.TrashRegistry)
}

func (m *Manager) projectDoc(path string) *collection.Doc[models.Project] {
	return collection.NewDoc[models.Project](m.store, layout.ProjectFile(path))
}

// ScopeFor returns the codex scope of a project: its series directory, or
// the project directory for projects outside any series.
func ScopeFor(p models.Project) string {
	if p.SeriesID != "" {
		return layout.SeriesRoot(p.SeriesID)
	}
	return p.Path
}

func registryPath(r models.RegistryRecord) string { return r.Path }
