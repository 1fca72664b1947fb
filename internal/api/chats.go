package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/chat"
	"github.com/starford/folio/internal/models"
)

// ListThreads handles GET /api/projects/{projectID}/chats.
// Deleted threads are hidden; pinned threads come first.
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.d.Chats.ListThreads(projectFrom(r).Path)
	if err != nil {
		h.writeError(w, "list threads", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

// CreateThread handles POST /api/projects/{projectID}/chats.
func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var t models.ChatThread
	if !decodeJSON(w, r, &t) {
		return
	}
	p := projectFrom(r)
	t.ProjectID = p.ID
	out, err := h.d.Chats.CreateThread(p.Path, t)
	if err != nil {
		h.writeError(w, "create thread", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// UpdateThread handles PATCH /api/projects/{projectID}/chats/{threadID}.
func (h *Handler) UpdateThread(w http.ResponseWriter, r *http.Request) {
	var upd chat.ThreadUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	out, err := h.d.Chats.UpdateThread(projectFrom(r).Path, chi.URLParam(r, "threadID"), upd)
	if err != nil {
		h.writeError(w, "update thread", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteThread handles DELETE /api/projects/{projectID}/chats/{threadID}.
func (h *Handler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Chats.DeleteThread(projectFrom(r).Path, chi.URLParam(r, "threadID")); err != nil {
		h.writeError(w, "delete thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMessages handles GET /api/projects/{projectID}/chats/{threadID}/messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	root, id := projectFrom(r).Path, chi.URLParam(r, "threadID")
	if _, err := h.d.Chats.GetThread(root, id); err != nil {
		h.writeError(w, "list messages", err)
		return
	}
	msgs, err := h.d.Chats.Messages(root, id)
	if err != nil {
		h.writeError(w, "list messages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// AddMessage handles POST /api/projects/{projectID}/chats/{threadID}/messages.
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.ChatMessage
	if !decodeJSON(w, r, &msg) {
		return
	}
	msg.ThreadID = chi.URLParam(r, "threadID")
	out, err := h.d.Chats.AddMessage(projectFrom(r).Path, msg)
	if err != nil {
		h.writeError(w, "add message", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DeleteMessage handles DELETE /api/projects/{projectID}/chats/{threadID}/messages/{messageID}.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := h.d.Chats.DeleteMessage(projectFrom(r).Path, chi.URLParam(r, "threadID"), chi.URLParam(r, "messageID"))
	if err != nil {
		h.writeError(w, "delete message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
