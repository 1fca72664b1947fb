package library

import "github.com/starford/folio/internal/layout"

// SearchScopes returns the library roots a search may return hits from.
// A project sees itself and the codex of its series; a series sees its
// own codex and all of its projects. With neither id set the result is
// nil, meaning the whole library.
func SearchScopes(m *Manager, projectID, seriesID string) ([]string, error) {
	var scopes []string
	add := func(s string) {
		for _, have := range scopes {
			if have == s {
				return
			}
		}
		scopes = append(scopes, s)
	}

	if projectID != "" {
		p, err := m.ProjectByID(projectID)
		if err != nil {
			return nil, err
		}
		add(p.Path)
		add(ScopeFor(p))
	}
	if seriesID != "" {
		if _, err := m.GetSeries(seriesID); err != nil {
			return nil, err
		}
		add(layout.SeriesRoot(seriesID))
		projects, err := m.ProjectsInSeries(seriesID)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			add(p.Path)
		}
	}
	return scopes, nil
}
