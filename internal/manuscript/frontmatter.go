// Package manuscript reads and writes scene documents: YAML front matter
// followed by opaque editor content.
package manuscript

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
)

const delim = "---"

// frontMatter is the on-disk shape of models.SceneMeta.
type frontMatter struct {
	ID            string   `yaml:"id"`
	Title         string   `yaml:"title"`
	Order         int      `yaml:"order"`
	Status        string   `yaml:"status"`
	WordCount     int      `yaml:"wordCount"`
	POV           *string  `yaml:"pov"`
	Subtitle      *string  `yaml:"subtitle"`
	Labels        []string `yaml:"labels"`
	ExcludeFromAI bool     `yaml:"excludeFromAI"`
	Summary       string   `yaml:"summary"`
	Archived      bool     `yaml:"archived"`
	CreatedAt     string   `yaml:"createdAt"`
	UpdatedAt     string   `yaml:"updatedAt"`

	// Older documents used povCharacter.
	POVCharacter *string `yaml:"povCharacter,omitempty"`
}

// Parse splits a scene document into metadata and body. A document without
// front matter yields default metadata and the whole input as body; front
// matter that is not valid YAML is an apperr.ErrInvalidInput.
func Parse(data []byte) (models.SceneMeta, string, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return defaultMeta(), string(data), nil
	}
	var fm frontMatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return models.SceneMeta{}, "", fmt.Errorf("manuscript: front matter: %w: %w", apperr.ErrInvalidInput, err)
	}
	return fm.meta(), body, nil
}

// Encode renders meta and body as a scene document.
func Encode(meta models.SceneMeta, body string) ([]byte, error) {
	out, err := yaml.Marshal(toFrontMatter(meta))
	if err != nil {
		return nil, fmt.Errorf("manuscript: encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(out)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// splitFrontmatter separates the YAML block between leading --- delimiters
// from the body. ok is false when the document has no front matter.
func splitFrontmatter(data []byte) (block []byte, body string, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	block = rest[:idx]
	after := rest[idx+1+len(delim):]
	return block, strings.TrimLeft(string(after), "\n\r"), true
}

func defaultMeta() models.SceneMeta {
	now := stamp.Now()
	return models.SceneMeta{
		Status:    models.StatusDraft,
		Labels:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (fm frontMatter) meta() models.SceneMeta {
	m := models.SceneMeta{
		ID:            fm.ID,
		Title:         fm.Title,
		Order:         fm.Order,
		Status:        fm.Status,
		WordCount:     fm.WordCount,
		POV:           fm.POV,
		Subtitle:      fm.Subtitle,
		Labels:        fm.Labels,
		ExcludeFromAI: fm.ExcludeFromAI,
		Summary:       fm.Summary,
		Archived:      fm.Archived,
	}
	if m.Status == "" {
		m.Status = models.StatusDraft
	}
	if m.POV == nil && fm.POVCharacter != nil {
		m.POV = fm.POVCharacter
	}
	if m.Labels == nil {
		m.Labels = []string{}
	}
	// Unparsable timestamps fall back to now rather than failing the load.
	if ms, err := stamp.FromRFC3339(fm.CreatedAt); err == nil {
		m.CreatedAt = ms
	} else {
		m.CreatedAt = stamp.Now()
	}
	if ms, err := stamp.FromRFC3339(fm.UpdatedAt); err == nil {
		m.UpdatedAt = ms
	} else {
		m.UpdatedAt = stamp.Now()
	}
	return m
}

func toFrontMatter(m models.SceneMeta) frontMatter {
	labels := m.Labels
	if labels == nil {
		labels = []string{}
	}
	status := m.Status
	if status == "" {
		status = models.StatusDraft
	}
	return frontMatter{
		ID:            m.ID,
		Title:         m.Title,
		Order:         m.Order,
		Status:        status,
		WordCount:     m.WordCount,
		POV:           m.POV,
		Subtitle:      m.Subtitle,
		Labels:        labels,
		ExcludeFromAI: m.ExcludeFromAI,
		Summary:       m.Summary,
		Archived:      m.Archived,
		CreatedAt:     stamp.ToRFC3339(m.CreatedAt),
		UpdatedAt:     stamp.ToRFC3339(m.UpdatedAt),
	}
}
