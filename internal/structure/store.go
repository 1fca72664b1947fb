package structure

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/manuscript"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/validate"
)

// Store persists project outlines. root arguments are project paths
// relative to the library root.
type Store struct {
	store  storage.Provider
	scenes *manuscript.Store
	logger *slog.Logger
}

// NewStore creates a structure store that creates and deletes scene
// documents through scenes.
func NewStore(store storage.Provider, scenes *manuscript.Store, logger *slog.Logger) *Store {
	return &Store{store: store, scenes: scenes, logger: logger}
}

func (s *Store) doc(root string) *collection.Collection[models.StructureNode] {
	return collection.New[models.StructureNode](s.store, layout.StructureFile(root))
}

// Get returns the outline of a project. A missing document is an empty outline.
func (s *Store) Get(root string) ([]models.StructureNode, error) {
	nodes, err := s.doc(root).Load()
	if err != nil {
		return nil, fmt.Errorf("structure: get: %w", err)
	}
	return Normalize(nodes), nil
}

// Save replaces the whole outline.
func (s *Store) Save(root string, nodes []models.StructureNode) error {
	if err := s.doc(root).Save(Normalize(nodes)); err != nil {
		return fmt.Errorf("structure: save: %w", err)
	}
	return nil
}

// CreateNode appends a new node under parentID (root when empty). Scene
// nodes get a document before the outline references it.
func (s *Store) CreateNode(root, nodeType, title, parentID string) (models.StructureNode, error) {
	if !models.ValidNodeType(nodeType) {
		return models.StructureNode{}, fmt.Errorf("structure: node type %q: %w", nodeType, apperr.ErrInvalidInput)
	}
	if err := validate.NodeTitle(title); err != nil {
		return models.StructureNode{}, err
	}

	var node models.StructureNode
	err := s.doc(root).Update(func(nodes []models.StructureNode) ([]models.StructureNode, error) {
		order, ok := ChildCount(nodes, parentID)
		if !ok {
			return nil, fmt.Errorf("structure: parent %s: %w", parentID, apperr.ErrNotFound)
		}
		node = models.StructureNode{
			ID:       ident.New(),
			Type:     nodeType,
			Title:    title,
			Order:    order,
			Children: []models.StructureNode{},
		}
		if nodeType == models.NodeScene {
			node.File = layout.SceneFileName(node.ID)
			if _, err := s.scenes.Create(root, node); err != nil {
				return nil, fmt.Errorf("structure: create scene document: %w", err)
			}
		}
		nodes, _ = Insert(nodes, parentID, node)
		return Normalize(nodes), nil
	})
	if err != nil {
		return models.StructureNode{}, err
	}
	return node, nil
}

// RenameNode changes a node title.
func (s *Store) RenameNode(root, id, title string) error {
	if err := validate.NodeTitle(title); err != nil {
		return err
	}
	return s.doc(root).Update(func(nodes []models.StructureNode) ([]models.StructureNode, error) {
		if !Rename(nodes, id, title) {
			return nil, fmt.Errorf("structure: node %s: %w", id, apperr.ErrNotFound)
		}
		return nodes, nil
	})
}

// DeleteNode removes a node and its subtree, then deletes every scene
// document the subtree referenced. The outline is written first so a
// failure afterwards leaves orphan documents, never dangling references.
func (s *Store) DeleteNode(root, id string) error {
	var files []string
	err := s.doc(root).Update(func(nodes []models.StructureNode) ([]models.StructureNode, error) {
		rest, removed := Remove(nodes, id)
		if removed == nil {
			return nil, fmt.Errorf("structure: node %s: %w", id, apperr.ErrNotFound)
		}
		files = CollectFiles(*removed)
		return rest, nil
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, f := range files {
		if err := s.scenes.Delete(root, f); err != nil {
			s.logger.Warn("structure: delete scene document failed",
				slog.String("file", f), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("structure: node %s removed but %d scene documents remain: %w", id, len(errs), errors.Join(errs...))
	}
	return nil
}

// SceneFile resolves the document of a scene node.
func (s *Store) SceneFile(root, sceneID string) (string, error) {
	nodes, err := s.Get(root)
	if err != nil {
		return "", err
	}
	n := Find(nodes, sceneID)
	if n == nil || n.File == "" {
		return "", fmt.Errorf("structure: scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	return n.File, nil
}
