package manuscript

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/stamp"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/validate"
)

// Store manages the scene documents of projects.
type Store struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewStore creates a scene store.
func NewStore(store storage.Provider, logger *slog.Logger) *Store {
	return &Store{store: store, logger: logger}
}

// Update is a partial metadata patch. Nil fields are left untouched.
type Update struct {
	Title         *string   `json:"title,omitempty"`
	Order         *int      `json:"order,omitempty"`
	Status        *string   `json:"status,omitempty"`
	POV           *string   `json:"pov,omitempty"`
	Subtitle      *string   `json:"subtitle,omitempty"`
	Labels        *[]string `json:"labels,omitempty"`
	ExcludeFromAI *bool     `json:"excludeFromAI,omitempty"`
	Summary       *string   `json:"summary,omitempty"`
	Archived      *bool     `json:"archived,omitempty"`
}

func (s *Store) path(root, file string) (string, error) {
	if err := layout.PlainName(file); err != nil {
		return "", err
	}
	return layout.SceneFile(root, file), nil
}

// ReadRaw returns the document bytes as stored.
func (s *Store) ReadRaw(root, file string) ([]byte, error) {
	p, err := s.path(root, file)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manuscript: scene %s: %w", file, apperr.ErrNotFound)
		}
		return nil, err
	}
	if len(data) > validate.MaxSceneSize {
		return nil, fmt.Errorf("manuscript: scene %s exceeds %d bytes: %w", file, validate.MaxSceneSize, apperr.ErrInvalidInput)
	}
	return data, nil
}

// WriteRaw stores document bytes verbatim.
func (s *Store) WriteRaw(root, file string, data []byte) error {
	p, err := s.path(root, file)
	if err != nil {
		return err
	}
	return s.store.Write(p, data)
}

// Exists reports whether the scene document is on disk.
func (s *Store) Exists(root, file string) (bool, error) {
	p, err := s.path(root, file)
	if err != nil {
		return false, err
	}
	return s.store.Exists(p)
}

// Load reads and parses a scene. The word count is recomputed from the body.
func (s *Store) Load(root, file string) (*models.Scene, error) {
	data, err := s.ReadRaw(root, file)
	if err != nil {
		return nil, err
	}
	meta, body, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manuscript: load %s: %w", file, err)
	}
	meta.WordCount = CountWords(body)
	return &models.Scene{SceneMeta: meta, File: file, Content: body}, nil
}

// Create writes a new scene document seeded from node.
func (s *Store) Create(root string, node models.StructureNode) (models.SceneMeta, error) {
	now := stamp.Now()
	meta := models.SceneMeta{
		ID:        node.ID,
		Title:     node.Title,
		Order:     node.Order,
		Status:    models.StatusDraft,
		Labels:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return meta, s.write(root, node.File, meta, "")
}

// EnsurePlaceholder creates an empty scene for node when its document is
// missing and reports whether it did.
func (s *Store) EnsurePlaceholder(root string, node models.StructureNode) (bool, error) {
	if node.File == "" {
		return false, nil
	}
	ok, err := s.Exists(root, node.File)
	if err != nil || ok {
		return false, err
	}
	if _, err := s.Create(root, node); err != nil {
		return false, err
	}
	return true, nil
}

// Save replaces the body of a scene while keeping its metadata. A missing
// document is created; unreadable front matter is replaced by defaults.
func (s *Store) Save(root, file, content string, title *string, wordCount int) (models.SceneMeta, error) {
	if err := validate.SceneContent(content); err != nil {
		return models.SceneMeta{}, err
	}
	if title != nil {
		if err := validate.NodeTitle(*title); err != nil {
			return models.SceneMeta{}, err
		}
	}
	meta, err := s.existingMeta(root, file)
	if err != nil {
		return models.SceneMeta{}, err
	}
	if title != nil {
		meta.Title = *title
	}
	meta.WordCount = wordCount
	meta.UpdatedAt = stamp.Now()
	return meta, s.write(root, file, meta, content)
}

// UpdateMetadata applies a partial patch to the front matter of a scene.
func (s *Store) UpdateMetadata(root, file string, upd Update) (models.SceneMeta, error) {
	data, err := s.ReadRaw(root, file)
	if err != nil {
		return models.SceneMeta{}, err
	}
	meta, body, err := Parse(data)
	if err != nil {
		return models.SceneMeta{}, fmt.Errorf("manuscript: update %s: %w", file, err)
	}
	if upd.Title != nil {
		if err := validate.NodeTitle(*upd.Title); err != nil {
			return models.SceneMeta{}, err
		}
		meta.Title = *upd.Title
	}
	if upd.Order != nil {
		meta.Order = *upd.Order
	}
	if upd.Status != nil {
		meta.Status = *upd.Status
	}
	if upd.POV != nil {
		meta.POV = upd.POV
	}
	if upd.Subtitle != nil {
		meta.Subtitle = upd.Subtitle
	}
	if upd.Labels != nil {
		meta.Labels = *upd.Labels
	}
	if upd.ExcludeFromAI != nil {
		meta.ExcludeFromAI = *upd.ExcludeFromAI
	}
	if upd.Summary != nil {
		meta.Summary = *upd.Summary
	}
	if upd.Archived != nil {
		meta.Archived = *upd.Archived
	}
	meta.UpdatedAt = stamp.Now()
	return meta, s.write(root, file, meta, body)
}

// Delete removes a scene document. A missing document is not an error.
func (s *Store) Delete(root, file string) error {
	p, err := s.path(root, file)
	if err != nil {
		return err
	}
	if err := s.store.Delete(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) existingMeta(root, file string) (models.SceneMeta, error) {
	data, err := s.ReadRaw(root, file)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		m := defaultMeta()
		m.ID = trimExt(file)
		return m, nil
	case err != nil:
		return models.SceneMeta{}, err
	}
	meta, _, err := Parse(data)
	if err != nil {
		s.logger.Warn("manuscript: replacing unreadable front matter",
			slog.String("file", file), slog.String("error", err.Error()))
		m := defaultMeta()
		m.ID = trimExt(file)
		return m, nil
	}
	return meta, nil
}

func (s *Store) write(root, file string, meta models.SceneMeta, body string) error {
	data, err := Encode(meta, body)
	if err != nil {
		return err
	}
	return s.WriteRaw(root, file, data)
}

func trimExt(file string) string {
	return strings.TrimSuffix(file, ".md")
}
