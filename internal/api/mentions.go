package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// FindMentions handles GET /api/projects/{projectID}/mentions/{entryID}.
//
//	@Summary		Where a codex entry's name and aliases appear in the project
//	@Tags			codex
//	@Produce		json
//	@Success		200	{object}	map[string][]models.Mention
//	@Failure		404	{object}	errResponse	"unknown entry"
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/mentions/{entryID} [get]
func (h *Handler) FindMentions(w http.ResponseWriter, r *http.Request) {
	found, err := h.d.Mentions.Find(projectFrom(r).Path, codexScope(r), chi.URLParam(r, "entryID"))
	if err != nil {
		h.writeError(w, "find mentions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mentions": found})
}

// CountMentions handles GET /api/projects/{projectID}/mentions/{entryID}/count.
func (h *Handler) CountMentions(w http.ResponseWriter, r *http.Request) {
	n, err := h.d.Mentions.Count(projectFrom(r).Path, codexScope(r), chi.URLParam(r, "entryID"))
	if err != nil {
		h.writeError(w, "count mentions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
