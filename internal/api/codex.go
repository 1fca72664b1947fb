package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/models"
)

// ListCategories handles GET .../codex/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.d.Codex.Categories(codexScope(r))
	if err != nil {
		h.writeError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// ListEntries handles GET .../codex/entries.
//
//	@Summary		List codex entries of a scope
//	@Tags			codex
//	@Produce		json
//	@Param			category	query		string	false	"Only this category"
//	@Success		200			{object}	map[string][]models.CodexEntry
//	@Security		BearerAuth
//	@Router			/projects/{projectID}/codex/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.d.Codex.List(codexScope(r), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// GetEntry handles GET .../codex/entries/{entryID}.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.d.Codex.Get(codexScope(r), chi.URLParam(r, "entryID"))
	if err != nil {
		h.writeError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// SaveEntry handles POST .../codex/entries and PUT .../codex/entries/{entryID}.
// Changing the category moves the entry file.
func (h *Handler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	var e models.CodexEntry
	if !decodeJSON(w, r, &e) {
		return
	}
	if id := chi.URLParam(r, "entryID"); id != "" {
		e.ID = id
	}
	if p := projectFrom(r); p.ID != "" && e.ProjectID == "" && r.Method == http.MethodPost {
		e.ProjectID = p.ID
	}
	out, err := h.d.Codex.Save(codexScope(r), e)
	if err != nil {
		h.writeError(w, "save entry", err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

// DeleteEntry handles DELETE .../codex/entries/{entryID}. The entry's
// relations, scene links and tag assignments go with it; the response
// lists what each step removed.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	rep, err := h.d.Codex.Delete(codexScope(r), chi.URLParam(r, "entryID"), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, "delete entry", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListRelations handles GET .../codex/relations[?entryId=].
func (h *Handler) ListRelations(w http.ResponseWriter, r *http.Request) {
	scope := codexScope(r)
	var (
		rels []models.CodexRelation
		err  error
	)
	if id := r.URL.Query().Get("entryId"); id != "" {
		rels, err = h.d.Codex.RelationsForEntry(scope, id)
	} else {
		rels, err = h.d.Codex.ListRelations(scope)
	}
	if err != nil {
		h.writeError(w, "list relations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relations": rels})
}

// SaveRelation handles POST .../codex/relations.
func (h *Handler) SaveRelation(w http.ResponseWriter, r *http.Request) {
	var rel models.CodexRelation
	if !decodeJSON(w, r, &rel) {
		return
	}
	out, err := h.d.Codex.SaveRelation(codexScope(r), rel)
	if err != nil {
		h.writeError(w, "save relation", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DeleteRelation handles DELETE .../codex/relations/{id}.
func (h *Handler) DeleteRelation(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Codex.DeleteRelation(codexScope(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete relation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET .../codex/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.d.Codex.ListTags(codexScope(r))
	if err != nil {
		h.writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// SaveTag handles POST .../codex/tags.
func (h *Handler) SaveTag(w http.ResponseWriter, r *http.Request) {
	var t models.CodexTag
	if !decodeJSON(w, r, &t) {
		return
	}
	out, err := h.d.Codex.SaveTag(codexScope(r), t)
	if err != nil {
		h.writeError(w, "save tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DeleteTag handles DELETE .../codex/tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	n, err := h.d.Codex.DeleteTag(codexScope(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "delete tag", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"entryTagsRemoved": n})
}

// ListEntryTags handles GET .../codex/entry-tags[?entryId=].
func (h *Handler) ListEntryTags(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Codex.ListEntryTags(codexScope(r), r.URL.Query().Get("entryId"))
	if err != nil {
		h.writeError(w, "list entry tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entryTags": items})
}

// SaveEntryTag handles POST .../codex/entry-tags.
func (h *Handler) SaveEntryTag(w http.ResponseWriter, r *http.Request) {
	var et models.CodexEntryTag
	if !decodeJSON(w, r, &et) {
		return
	}
	out, err := h.d.Codex.SaveEntryTag(codexScope(r), et)
	if err != nil {
		h.writeError(w, "save entry tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DeleteEntryTag handles DELETE .../codex/entry-tags/{id}.
func (h *Handler) DeleteEntryTag(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Codex.DeleteEntryTag(codexScope(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete entry tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSceneLinks handles GET .../codex/scene-links[?sceneId=].
func (h *Handler) ListSceneLinks(w http.ResponseWriter, r *http.Request) {
	scope := codexScope(r)
	var (
		links []models.SceneCodexLink
		err   error
	)
	if id := r.URL.Query().Get("sceneId"); id != "" {
		links, err = h.d.Codex.SceneLinksForScene(scope, id)
	} else {
		links, err = h.d.Codex.ListSceneLinks(scope)
	}
	if err != nil {
		h.writeError(w, "list scene links", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sceneLinks": links})
}

// SaveSceneLink handles POST .../codex/scene-links.
func (h *Handler) SaveSceneLink(w http.ResponseWriter, r *http.Request) {
	var l models.SceneCodexLink
	if !decodeJSON(w, r, &l) {
		return
	}
	if p := projectFrom(r); p.ID != "" && l.ProjectID == "" {
		l.ProjectID = p.ID
	}
	out, err := h.d.Codex.SaveSceneLink(codexScope(r), l)
	if err != nil {
		h.writeError(w, "save scene link", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DeleteSceneLink handles DELETE .../codex/scene-links/{id}.
func (h *Handler) DeleteSceneLink(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Codex.DeleteSceneLink(codexScope(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete scene link", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTemplates handles GET .../codex/templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Codex.ListTemplates(codexScope(r))
	if err != nil {
		h.writeError(w, "list templates", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": items})
}

// SaveTemplate handles POST .../codex/templates.
func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.CodexTemplate
	if !decodeJSON(w, r, &t) {
		return
	}
	out, err := h.d.Codex.SaveTemplate(codexScope(r), t)
	if err != nil {
		h.writeError(w, "save template", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DeleteTemplate handles DELETE .../codex/templates/{id}.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Codex.DeleteTemplate(codexScope(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRelationTypes handles GET .../codex/relation-types.
func (h *Handler) ListRelationTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.d.Codex.ListRelationTypes(codexScope(r))
	if err != nil {
		h.writeError(w, "list relation types", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationTypes": items})
}

// SaveRelationType handles POST .../codex/relation-types.
func (h *Handler) SaveRelationType(w http.ResponseWriter, r *http.Request) {
	var rt models.CodexRelationType
	if !decodeJSON(w, r, &rt) {
		return
	}
	out, err := h.d.Codex.SaveRelationType(codexScope(r), rt)
	if err != nil {
		h.writeError(w, "save relation type", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DeleteRelationType handles DELETE .../codex/relation-types/{id}.
// Relations of that type are kept with their type cleared.
func (h *Handler) DeleteRelationType(w http.ResponseWriter, r *http.Request) {
	n, err := h.d.Codex.DeleteRelationType(codexScope(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "delete relation type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"relationsCleared": n})
}
