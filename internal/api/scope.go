package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/models"
)

type ctxKey int

const (
	projectKey ctxKey = iota
	seriesKey
)

// withProject resolves {projectID} and stores the project in the request context.
func (h *Handler) withProject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.d.Library.ProjectByID(chi.URLParam(r, "projectID"))
		if err != nil {
			h.writeError(w, "resolve project", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), projectKey, p)))
	})
}

// withSeries resolves {seriesID} and stores the series in the request context.
func (h *Handler) withSeries(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.d.Library.GetSeries(chi.URLParam(r, "seriesID"))
		if err != nil {
			h.writeError(w, "resolve series", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), seriesKey, s)))
	})
}

func projectFrom(r *http.Request) models.Project {
	p, _ := r.Context().Value(projectKey).(models.Project)
	return p
}

func seriesFrom(r *http.Request) models.Series {
	s, _ := r.Context().Value(seriesKey).(models.Series)
	return s
}

// codexScope is the codex directory addressed by the request: the series
// of a project route, or the series of a series route.
func codexScope(r *http.Request) string {
	if p, ok := r.Context().Value(projectKey).(models.Project); ok {
		return library.ScopeFor(p)
	}
	return layout.SeriesRoot(seriesFrom(r).ID)
}
