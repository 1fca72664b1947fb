// Package mention finds where a codex entry's name and aliases appear in
// the scenes and snippets of a project.
package mention

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/starford/folio/internal/codex"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/snippet"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/structure"
)

// contextBytes is how much text on each side of a hit goes into Context.
const contextBytes = 50

// Tracker searches project text for codex entries.
type Tracker struct {
	codex     *codex.Manager
	structure *structure.Store
	scenes    *manuscript.Store
	snippets  *snippet.Store
	logger    *slog.Logger
}

// NewTracker creates a mention tracker over the given stores.
func NewTracker(cm *codex.Manager, st *structure.Store, scenes *manuscript.Store, snippets *snippet.Store, logger *slog.Logger) *Tracker {
	return &Tracker{codex: cm, structure: st, scenes: scenes, snippets: snippets, logger: logger}
}

// Find returns every mention of entry entryID (looked up in scope) in the
// project at root. Scenes are searched in outline order, case-insensitively,
// once per term; snippets contribute at most one mention each. Entries with
// mention tracking switched off have no mentions.
func (t *Tracker) Find(root, scope, entryID string) ([]models.Mention, error) {
	entry, err := t.codex.Get(scope, entryID)
	if err != nil {
		return nil, err
	}
	out := []models.Mention{}
	if entry.TrackMentions != nil && !*entry.TrackMentions {
		return out, nil
	}
	terms := searchTerms(entry)
	if len(terms) == 0 {
		return out, nil
	}

	nodes, err := t.structure.Get(root)
	if err != nil {
		return nil, fmt.Errorf("mention: %w", err)
	}
	for _, node := range structure.Scenes(nodes) {
		scene, err := t.scenes.Load(root, node.File)
		if err != nil {
			t.logger.Warn("mention: skipping unreadable scene",
				slog.String("file", node.File), slog.String("error", err.Error()))
			continue
		}
		title := scene.Title
		if title == "" {
			title = node.Title
		}
		text := manuscript.PlainText(scene.Content)
		for _, term := range terms {
			for _, pos := range indexAll(text, term) {
				out = append(out, models.Mention{
					ID:           ident.New(),
					CodexEntryID: entry.ID,
					SourceType:   models.MentionScene,
					SourceID:     node.ID,
					SourceTitle:  title,
					Position:     pos,
					Context:      excerpt(text, pos, len(term)),
					CreatedAt:    stamp.Now(),
				})
			}
		}
	}

	snippets, err := t.snippets.List(root)
	if err != nil {
		return nil, fmt.Errorf("mention: %w", err)
	}
	for _, sn := range snippets {
		raw, err := json.Marshal(sn.Content)
		if err != nil {
			continue
		}
		body := strings.ToLower(string(raw))
		for _, term := range terms {
			if !strings.Contains(body, strings.ToLower(term)) {
				continue
			}
			title := sn.Title
			if title == "" {
				title = "Untitled"
			}
			out = append(out, models.Mention{
				ID:           ident.New(),
				CodexEntryID: entry.ID,
				SourceType:   models.MentionSnippet,
				SourceID:     sn.ID,
				SourceTitle:  title,
				Context:      "Found in snippet: " + title,
				CreatedAt:    stamp.Now(),
			})
			break
		}
	}
	return out, nil
}

// Count returns the number of mentions Find reports.
func (t *Tracker) Count(root, scope, entryID string) (int, error) {
	found, err := t.Find(root, scope, entryID)
	if err != nil {
		return 0, err
	}
	return len(found), nil
}

// searchTerms is the entry name followed by its non-blank aliases.
func searchTerms(entry models.CodexEntry) []string {
	var terms []string
	for _, s := range append([]string{entry.Name}, entry.Aliases...) {
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}
	return terms
}

// indexAll returns the byte offsets of the non-overlapping case-insensitive
// matches of term in text.
func indexAll(text, term string) []int {
	var out []int
	for start := 0; start < len(text); {
		i := indexFold(text[start:], term)
		if i < 0 {
			break
		}
		out = append(out, start+i)
		start += i + len(term)
	}
	return out
}

// indexFold is a case-insensitive strings.Index. It compares len(term)
// bytes at each rune start, so matches keep byte offsets into s.
func indexFold(s, term string) int {
	for i := 0; i+len(term) <= len(s); {
		if strings.EqualFold(s[i:i+len(term)], term) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

// excerpt is the text around a match, widened to rune boundaries.
func excerpt(text string, pos, n int) string {
	from := pos - contextBytes
	if from < 0 {
		from = 0
	}
	to := pos + n + contextBytes
	if to > len(text) {
		to = len(text)
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return "..." + strings.TrimSpace(text[from:to]) + "..."
}
