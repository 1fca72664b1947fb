package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/structure"
)

// GetStructure handles GET /api/projects/{projectID}/structure.
//
//	@Summary		Project outline as a tree of acts, chapters and scenes
//	@Tags			structure
//	@Produce		json
//	@Success		200	{object}	map[string][]models.StructureNode
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/structure [get]
func (h *Handler) GetStructure(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.d.Structure.Get(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "get structure", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

// SaveStructure handles PUT /api/projects/{projectID}/structure and
// replaces the whole outline (drag-and-drop reordering).
func (h *Handler) SaveStructure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nodes []models.StructureNode `json:"nodes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	root := projectFrom(r).Path
	if err := h.d.Structure.Save(root, req.Nodes); err != nil {
		h.writeError(w, "save structure", err)
		return
	}
	nodes, err := h.d.Structure.Get(root)
	if err != nil {
		h.writeError(w, "save structure", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

// CreateNode handles POST /api/projects/{projectID}/structure/nodes.
//
//	@Summary		Append an act, chapter or scene
//	@Tags			structure
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	models.StructureNode
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse	"unknown parent"
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/structure/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string `json:"type"`
		Title    string `json:"title"`
		ParentID string `json:"parentId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	node, err := h.d.Structure.CreateNode(projectFrom(r).Path, req.Type, req.Title, req.ParentID)
	if err != nil {
		h.writeError(w, "create node", err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// RenameNode handles PATCH /api/projects/{projectID}/structure/nodes/{nodeID}.
func (h *Handler) RenameNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.d.Structure.RenameNode(projectFrom(r).Path, chi.URLParam(r, "nodeID"), req.Title); err != nil {
		h.writeError(w, "rename node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNode handles DELETE /api/projects/{projectID}/structure/nodes/{nodeID}.
// Scene documents of the subtree are deleted and their codex links dropped.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	p := projectFrom(r)
	id := chi.URLParam(r, "nodeID")

	var sceneIDs []string
	if nodes, err := h.d.Structure.Get(p.Path); err == nil {
		if n := structure.Find(nodes, id); n != nil {
			for _, s := range structure.Scenes([]models.StructureNode{*n}) {
				sceneIDs = append(sceneIDs, s.ID)
			}
		}
	}

	if err := h.d.Structure.DeleteNode(p.Path, id); err != nil {
		h.writeError(w, "delete node", err)
		return
	}
	if len(sceneIDs) > 0 {
		n, err := h.d.Codex.DropSceneLinksForScenes(library.ScopeFor(p), sceneIDs)
		if err != nil {
			// The subtree is already gone; retrying the delete is a not-found.
			h.logger.Error("delete node: drop scene links failed",
				slog.String("node", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":       fmt.Sprintf("node %s deleted, but its codex scene links were not removed: %v", id, err),
				"nodeDeleted": true,
				"sceneIds":    sceneIDs,
			})
			return
		}
		if n > 0 {
			h.logger.Debug("delete node: scene links dropped", slog.String("node", id), slog.Int("count", n))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sceneFile(w http.ResponseWriter, r *http.Request) (string, bool) {
	file, err := h.d.Structure.SceneFile(projectFrom(r).Path, chi.URLParam(r, "sceneID"))
	if err != nil {
		h.writeError(w, "resolve scene", err)
		return "", false
	}
	return file, true
}

// GetScene handles GET /api/projects/{projectID}/scenes/{sceneID}.
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	file, ok := h.sceneFile(w, r)
	if !ok {
		return
	}
	scene, err := h.d.Scenes.Load(projectFrom(r).Path, file)
	if err != nil {
		h.writeError(w, "get scene", err)
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

// SaveScene handles PUT /api/projects/{projectID}/scenes/{sceneID}.
// Metadata is kept; the word count is computed when not supplied.
func (h *Handler) SaveScene(w http.ResponseWriter, r *http.Request) {
	file, ok := h.sceneFile(w, r)
	if !ok {
		return
	}
	var req struct {
		Content   string  `json:"content"`
		Title     *string `json:"title"`
		WordCount *int    `json:"wordCount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	words := manuscript.CountWords(req.Content)
	if req.WordCount != nil {
		words = *req.WordCount
	}
	meta, err := h.d.Scenes.Save(projectFrom(r).Path, file, req.Content, req.Title, words)
	if err != nil {
		h.writeError(w, "save scene", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// UpdateSceneMeta handles PATCH /api/projects/{projectID}/scenes/{sceneID}.
func (h *Handler) UpdateSceneMeta(w http.ResponseWriter, r *http.Request) {
	file, ok := h.sceneFile(w, r)
	if !ok {
		return
	}
	var upd manuscript.Update
	if !decodeJSON(w, r, &upd) {
		return
	}
	meta, err := h.d.Scenes.UpdateMetadata(projectFrom(r).Path, file, upd)
	if err != nil {
		h.writeError(w, "update scene", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// ListSnippets handles GET /api/projects/{projectID}/snippets.
func (h *Handler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Snippets.List(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "list snippets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snippets": items})
}

// GetSnippet handles GET /api/projects/{projectID}/snippets/{snippetID}.
func (h *Handler) GetSnippet(w http.ResponseWriter, r *http.Request) {
	sn, err := h.d.Snippets.Get(projectFrom(r).Path, chi.URLParam(r, "snippetID"))
	if err != nil {
		h.writeError(w, "get snippet", err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// SaveSnippet handles POST /api/projects/{projectID}/snippets and
// PUT /api/projects/{projectID}/snippets/{snippetID}.
func (h *Handler) SaveSnippet(w http.ResponseWriter, r *http.Request) {
	var sn models.Snippet
	if !decodeJSON(w, r, &sn) {
		return
	}
	if id := chi.URLParam(r, "snippetID"); id != "" {
		sn.ID = id
	}
	p := projectFrom(r)
	sn.ProjectID = p.ID
	out, err := h.d.Snippets.Save(p.Path, sn)
	if err != nil {
		h.writeError(w, "save snippet", err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

// DeleteSnippet handles DELETE /api/projects/{projectID}/snippets/{snippetID}.
func (h *Handler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Snippets.Delete(projectFrom(r).Path, chi.URLParam(r, "snippetID")); err != nil {
		h.writeError(w, "delete snippet", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
