package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

// ProjectBackup handles GET /api/projects/{projectID}/backup and streams
// the backup document as a download.
func (h *Handler) ProjectBackup(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	data, err := h.d.Backup.ProjectJSON(p.Path)
	if err != nil {
		h.writeError(w, "project backup", err)
		return
	}
	h.download(w, fmt.Sprintf("%s_backup_%s.json", layout.Slugify(p.Title), stamp.Suffix(time.Now())), data)
}

// ExportProjectBackup handles POST /api/projects/{projectID}/backup and
// writes the backup into the project's exports directory.
func (h *Handler) ExportProjectBackup(w http.ResponseWriter, r *http.Request) {
	file, err := h.d.Backup.ExportProjectBackup(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "export project backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": file})
}

// SeriesBackup handles GET /api/series/{seriesID}/backup.
func (h *Handler) SeriesBackup(w http.ResponseWriter, r *http.Request) {
	s := seriesFrom(r)
	data, err := h.d.Backup.SeriesJSON(s.ID)
	if err != nil {
		h.writeError(w, "series backup", err)
		return
	}
	h.download(w, fmt.Sprintf("%s_series_backup_%s.json", layout.Slugify(s.Title), stamp.Suffix(time.Now())), data)
}

// ExportSeriesBackup handles POST /api/series/{seriesID}/backup.
func (h *Handler) ExportSeriesBackup(w http.ResponseWriter, r *http.Request) {
	file, err := h.d.Backup.ExportSeriesBackup(seriesFrom(r).ID)
	if err != nil {
		h.writeError(w, "export series backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": file})
}

// ImportSeries handles POST /api/series/import with a series backup as
// the request body.
//
//	@Summary		Import a series backup as a new series
//	@Tags			backup
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	backup.ImportResult
//	@Failure		400	{object}	errResponse	"malformed backup"
//	@Failure		409	{object}	errResponse	"duplicate series index"
//	@Security		BearerAuth
//	@Router			/series/import [post]
func (h *Handler) ImportSeries(w http.ResponseWriter, r *http.Request) {
	data, ok := readPayload(w, r)
	if !ok {
		return
	}
	res, err := h.d.Backup.ImportSeriesBackup(data)
	if err != nil {
		h.writeError(w, "import series", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ImportProject handles POST /api/series/{seriesID}/projects/import
// [?seriesIndex=] with a project backup as the request body.
func (h *Handler) ImportProject(w http.ResponseWriter, r *http.Request) {
	data, ok := readPayload(w, r)
	if !ok {
		return
	}
	p, err := h.d.Backup.ImportProjectBackup(data, seriesFrom(r).ID, r.URL.Query().Get("seriesIndex"))
	if err != nil {
		h.writeError(w, "import project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ManuscriptText handles GET /api/projects/{projectID}/export/text and
// streams the manuscript as a plain-text download.
func (h *Handler) ManuscriptText(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	text, err := h.d.Backup.ManuscriptText(p.Path)
	if err != nil {
		h.writeError(w, "manuscript text", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		fmt.Sprintf("%s_manuscript_%s.txt", layout.Slugify(p.Title), stamp.Suffix(time.Now()))))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// ExportManuscriptText handles POST /api/projects/{projectID}/export/text
// and writes the text into the project's exports directory.
func (h *Handler) ExportManuscriptText(w http.ResponseWriter, r *http.Request) {
	file, err := h.d.Backup.ExportManuscriptText(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "export manuscript text", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": file})
}

// SaveEmergencyBackup handles POST /api/emergency-backups.
func (h *Handler) SaveEmergencyBackup(w http.ResponseWriter, r *http.Request) {
	var b models.EmergencyBackup
	if !decodeJSON(w, r, &b) {
		return
	}
	saved, err := h.d.Backup.SaveEmergencyBackup(b)
	if err != nil {
		h.writeError(w, "save emergency backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetEmergencyBackup handles GET /api/emergency-backups/scenes/{sceneID};
// 404 means the scene has no unexpired backup.
func (h *Handler) GetEmergencyBackup(w http.ResponseWriter, r *http.Request) {
	b, err := h.d.Backup.EmergencyBackup(chi.URLParam(r, "sceneID"))
	if err != nil {
		h.writeError(w, "get emergency backup", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteEmergencyBackup handles DELETE /api/emergency-backups/{backupID}.
func (h *Handler) DeleteEmergencyBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Backup.DeleteEmergencyBackup(chi.URLParam(r, "backupID")); err != nil {
		h.writeError(w, "delete emergency backup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CleanupEmergencyBackups handles POST /api/emergency-backups/cleanup.
func (h *Handler) CleanupEmergencyBackups(w http.ResponseWriter, _ *http.Request) {
	n, err := h.d.Backup.CleanupEmergencyBackups()
	if err != nil {
		h.writeError(w, "cleanup emergency backups", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *Handler) download(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across scenes and codex entries
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search query"
//	@Param			kind		query		string	false	"scene or codex"
//	@Param			projectId	query		string	false	"Only this project and its series codex"
//	@Param			seriesId	query		string	false	"Only this series and its projects"
//	@Param			limit		query		int		false	"Max results"
//	@Success		200			{object}	map[string][]index.SearchResult
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.d.Search == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index is disabled"))
		return
	}
	params := r.URL.Query()
	q := index.Query{Text: strings.TrimSpace(params.Get("q")), Kind: params.Get("kind")}
	if q.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	if q.Kind != "" && q.Kind != index.KindScene && q.Kind != index.KindCodex {
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be scene or codex"))
		return
	}
	q.Limit, _ = strconv.Atoi(params.Get("limit"))

	scopes, err := library.SearchScopes(h.d.Library, params.Get("projectId"), params.Get("seriesId"))
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	q.Scopes = scopes

	results, err := h.d.Search.Search(q)
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
