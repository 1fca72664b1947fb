package api

import (
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/library"
)

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects, most recently updated first
//	@Tags			projects
//	@Produce		json
//	@Param			archived	query		bool	false	"Include archived projects"
//	@Success		200			{object}	map[string][]models.Project
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.d.Library.ListProjects()
	if err != nil {
		h.writeError(w, "list projects", err)
		return
	}
	if r.URL.Query().Get("archived") != "true" {
		kept := projects[:0]
		for _, p := range projects {
			if !p.Archived {
				kept = append(kept, p)
			}
		}
		projects = kept
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// RecentProjects handles GET /api/projects/recent.
//
//	@Summary		Projects opened within the recent window
//	@Tags			projects
//	@Produce		json
//	@Param			limit	query		int	false	"Max results"
//	@Success		200		{object}	map[string][]models.Project
//	@Security		BearerAuth
//	@Router			/projects/recent [get]
func (h *Handler) RecentProjects(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	projects, err := h.d.Library.RecentProjects(limit)
	if err != nil {
		h.writeError(w, "recent projects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		library.CreateProjectInput	true	"Project to create"
//	@Success		201		{object}	models.Project
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in library.CreateProjectInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.d.Library.CreateProject(in)
	if err != nil {
		h.writeError(w, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/projects/{projectID}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, projectFrom(r))
}

// UpdateProject handles PATCH /api/projects/{projectID}.
//
//	@Summary		Partially update a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		library.ProjectUpdate	true	"Fields to change"
//	@Success		200		{object}	models.Project
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"series index already taken"
//	@Security		BearerAuth
//	@Router			/projects/{projectID} [patch]
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var upd library.ProjectUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	p, err := h.d.Library.UpdateProject(projectFrom(r).Path, upd)
	if err != nil {
		h.writeError(w, "update project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// OpenProject handles POST /api/projects/{projectID}/open.
func (h *Handler) OpenProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.d.Library.OpenProject(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "open project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ArchiveProject handles POST /api/projects/{projectID}/archive.
func (h *Handler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.d.Library.ArchiveProject(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "archive project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{projectID}. The project is
// moved to the trash, not removed.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	rec, err := h.d.Library.DeleteProject(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "delete project", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UploadCover handles POST /api/projects/{projectID}/cover
// (multipart/form-data, field "file").
func (h *Handler) UploadCover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, library.MaxCoverSize+1<<20)
	if err := r.ParseMultipartForm(library.MaxCoverSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, library.MaxCoverSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	p, err := h.d.Library.SetCover(projectFrom(r).Path, data)
	if err != nil {
		h.writeError(w, "upload cover", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetCover handles GET /api/projects/{projectID}/cover.
func (h *Handler) GetCover(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	if p.CoverImage == "" || path.Base(p.CoverImage) != p.CoverImage {
		writeJSON(w, http.StatusNotFound, errorBody("project has no cover image"))
		return
	}
	data, err := h.d.Library.Store().Read(path.Join(p.Path, p.CoverImage))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("cover image missing"))
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// ListTrash handles GET /api/trash.
func (h *Handler) ListTrash(w http.ResponseWriter, _ *http.Request) {
	items, err := h.d.Library.ListTrash()
	if err != nil {
		h.writeError(w, "list trash", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trash": items})
}

// RestoreProject handles POST /api/trash/{trashName}/restore.
func (h *Handler) RestoreProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.d.Library.RestoreProject(chi.URLParam(r, "trashName"))
	if err != nil {
		h.writeError(w, "restore project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PurgeProject handles DELETE /api/trash/{trashName}.
func (h *Handler) PurgeProject(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Library.PermanentlyDelete(chi.URLParam(r, "trashName")); err != nil {
		h.writeError(w, "purge project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmptyTrash handles DELETE /api/trash.
func (h *Handler) EmptyTrash(w http.ResponseWriter, _ *http.Request) {
	n, err := h.d.Library.EmptyTrash()
	if err != nil {
		h.writeError(w, "empty trash", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
