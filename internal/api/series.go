package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/library"
)

// ListSeries handles GET /api/series.
func (h *Handler) ListSeries(w http.ResponseWriter, _ *http.Request) {
	all, err := h.d.Library.ListSeries()
	if err != nil {
		h.writeError(w, "list series", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": all})
}

// CreateSeries handles POST /api/series.
func (h *Handler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var in library.SeriesInput
	if !decodeJSON(w, r, &in) {
		return
	}
	s, err := h.d.Library.CreateSeries(in)
	if err != nil {
		h.writeError(w, "create series", err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// GetSeries handles GET /api/series/{seriesID}.
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, seriesFrom(r))
}

// UpdateSeries handles PATCH /api/series/{seriesID}.
func (h *Handler) UpdateSeries(w http.ResponseWriter, r *http.Request) {
	var upd library.SeriesUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	s, err := h.d.Library.UpdateSeries(seriesFrom(r).ID, upd)
	if err != nil {
		h.writeError(w, "update series", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteSeries handles DELETE /api/series/{seriesID}. Without
// ?cascade=true a series that still has projects is refused with 409; with
// it the series is recorded as deleted and can be restored later.
func (h *Handler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	id := seriesFrom(r).ID
	if r.URL.Query().Get("cascade") == "true" {
		rec, err := h.d.Library.DeleteSeriesCascade(id)
		if err != nil {
			h.writeError(w, "delete series", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if err := h.d.Library.DeleteSeries(id); err != nil {
		h.writeError(w, "delete series", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SeriesProjects handles GET /api/series/{seriesID}/projects.
func (h *Handler) SeriesProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.d.Library.ProjectsInSeries(seriesFrom(r).ID)
	if err != nil {
		h.writeError(w, "series projects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// ListDeletedSeries handles GET /api/deleted-series.
func (h *Handler) ListDeletedSeries(w http.ResponseWriter, _ *http.Request) {
	items, err := h.d.Library.ListDeletedSeries()
	if err != nil {
		h.writeError(w, "list deleted series", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deletedSeries": items})
}

// RestoreDeletedSeries handles POST /api/deleted-series/{deletedID}/restore.
func (h *Handler) RestoreDeletedSeries(w http.ResponseWriter, r *http.Request) {
	s, err := h.d.Library.RestoreDeletedSeries(chi.URLParam(r, "deletedID"))
	if err != nil {
		h.writeError(w, "restore series", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PurgeDeletedSeries handles DELETE /api/deleted-series/{deletedID}.
func (h *Handler) PurgeDeletedSeries(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Library.PurgeDeletedSeries(chi.URLParam(r, "deletedID")); err != nil {
		h.writeError(w, "purge deleted series", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
