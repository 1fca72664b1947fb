package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/backup"
	"github.com/starford/folio/internal/chat"
	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/mention"
	"github.com/starford/folio/internal/snippet"
	"github.com/starford/folio/internal/structure"
)

// Deps are the stores the API serves. Search and Events are optional.
type Deps struct {
	Library   *library.Manager
	Structure *structure.Store
	Scenes    *manuscript.Store
	Codex     *codex.Manager
	Chats     *chat.Store
	Snippets  *snippet.Store
	Backup    *backup.Service
	Mentions  *mention.Tracker
	Search    index.Searcher
	Events    http.Handler
	Logger    *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	d      Deps
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{d: d, logger: logger}
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced; the SSE
// endpoint sits behind the same check.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(RequestLogger(h.logger))
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Get("/recent", h.RecentProjects)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Use(h.withProject)
			r.Get("/", h.GetProject)
			r.Patch("/", h.UpdateProject)
			r.Delete("/", h.DeleteProject)
			r.Post("/open", h.OpenProject)
			r.Post("/archive", h.ArchiveProject)
			r.Get("/cover", h.GetCover)
			r.Post("/cover", h.UploadCover)

			r.Get("/structure", h.GetStructure)
			r.Put("/structure", h.SaveStructure)
			r.Post("/structure/nodes", h.CreateNode)
			r.Patch("/structure/nodes/{nodeID}", h.RenameNode)
			r.Delete("/structure/nodes/{nodeID}", h.DeleteNode)

			r.Get("/scenes/{sceneID}", h.GetScene)
			r.Put("/scenes/{sceneID}", h.SaveScene)
			r.Patch("/scenes/{sceneID}", h.UpdateSceneMeta)

			r.Get("/snippets", h.ListSnippets)
			r.Post("/snippets", h.SaveSnippet)
			r.Get("/snippets/{snippetID}", h.GetSnippet)
			r.Put("/snippets/{snippetID}", h.SaveSnippet)
			r.Delete("/snippets/{snippetID}", h.DeleteSnippet)

			r.Get("/chats", h.ListThreads)
			r.Post("/chats", h.CreateThread)
			r.Patch("/chats/{threadID}", h.UpdateThread)
			r.Delete("/chats/{threadID}", h.DeleteThread)
			r.Get("/chats/{threadID}/messages", h.ListMessages)
			r.Post("/chats/{threadID}/messages", h.AddMessage)
			r.Delete("/chats/{threadID}/messages/{messageID}", h.DeleteMessage)

			r.Get("/backup", h.ProjectBackup)
			r.Post("/backup", h.ExportProjectBackup)
			r.Get("/export/text", h.ManuscriptText)
			r.Post("/export/text", h.ExportManuscriptText)

			r.Get("/mentions/{entryID}", h.FindMentions)
			r.Get("/mentions/{entryID}/count", h.CountMentions)

			r.Route("/codex", h.codexRoutes)
		})
	})

	r.Route("/series", func(r chi.Router) {
		r.Get("/", h.ListSeries)
		r.Post("/", h.CreateSeries)
		r.Post("/import", h.ImportSeries)

		r.Route("/{seriesID}", func(r chi.Router) {
			r.Use(h.withSeries)
			r.Get("/", h.GetSeries)
			r.Patch("/", h.UpdateSeries)
			r.Delete("/", h.DeleteSeries)
			r.Get("/projects", h.SeriesProjects)
			r.Post("/projects/import", h.ImportProject)
			r.Get("/backup", h.SeriesBackup)
			r.Post("/backup", h.ExportSeriesBackup)

			r.Route("/codex", h.codexRoutes)
		})
	})

	r.Get("/deleted-series", h.ListDeletedSeries)
	r.Post("/deleted-series/{deletedID}/restore", h.RestoreDeletedSeries)
	r.Delete("/deleted-series/{deletedID}", h.PurgeDeletedSeries)

	r.Get("/trash", h.ListTrash)
	r.Delete("/trash", h.EmptyTrash)
	r.Post("/trash/{trashName}/restore", h.RestoreProject)
	r.Delete("/trash/{trashName}", h.PurgeProject)

	r.Route("/emergency-backups", func(r chi.Router) {
		r.Post("/", h.SaveEmergencyBackup)
		r.Post("/cleanup", h.CleanupEmergencyBackups)
		r.Get("/scenes/{sceneID}", h.GetEmergencyBackup)
		r.Delete("/{backupID}", h.DeleteEmergencyBackup)
	})

	r.Get("/search", h.Search)

	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}

// codexRoutes serves one codex scope; the scope comes from the enclosing
// project or series route.
func (h *Handler) codexRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Get("/entries", h.ListEntries)
	r.Post("/entries", h.SaveEntry)
	r.Get("/entries/{entryID}", h.GetEntry)
	r.Put("/entries/{entryID}", h.SaveEntry)
	r.Delete("/entries/{entryID}", h.DeleteEntry)

	r.Get("/relations", h.ListRelations)
	r.Post("/relations", h.SaveRelation)
	r.Delete("/relations/{id}", h.DeleteRelation)

	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.SaveTag)
	r.Delete("/tags/{id}", h.DeleteTag)

	r.Get("/entry-tags", h.ListEntryTags)
	r.Post("/entry-tags", h.SaveEntryTag)
	r.Delete("/entry-tags/{id}", h.DeleteEntryTag)

	r.Get("/scene-links", h.ListSceneLinks)
	r.Post("/scene-links", h.SaveSceneLink)
	r.Delete("/scene-links/{id}", h.DeleteSceneLink)

	r.Get("/templates", h.ListTemplates)
	r.Post("/templates", h.SaveTemplate)
	r.Delete("/templates/{id}", h.DeleteTemplate)

	r.Get("/relation-types", h.ListRelationTypes)
	r.Post("/relation-types", h.SaveRelationType)
	r.Delete("/relation-types/{id}", h.DeleteRelationType)
}
