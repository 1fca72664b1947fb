// Package structure stores the act/chapter/scene outline of a project as a
// single JSON document and provides the tree algorithms over it.
package structure

import "github.com/starford/folio/internal/models"

// Find returns a pointer to the node with id, or nil.
func Find(nodes []models.StructureNode, id string) *models.StructureNode {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
		if n := Find(nodes[i].Children, id); n != nil {
			return n
		}
	}
	return nil
}

// ChildCount returns the number of children of parentID, or of the root
// when parentID is empty. ok is false if the parent does not exist.
func ChildCount(nodes []models.StructureNode, parentID string) (n int, ok bool) {
	if parentID == "" {
		return len(nodes), true
	}
	p := Find(nodes, parentID)
	if p == nil {
		return 0, false
	}
	return len(p.Children), true
}

// Insert appends node under parentID (or at the root when empty).
// It returns false if the parent does not exist.
func Insert(nodes []models.StructureNode, parentID string, node models.StructureNode) ([]models.StructureNode, bool) {
	if parentID == "" {
		return append(nodes, node), true
	}
	p := Find(nodes, parentID)
	if p == nil {
		return nodes, false
	}
	p.Children = append(p.Children, node)
	return nodes, true
}

// Rename sets the title of the node with id and reports whether it existed.
func Rename(nodes []models.StructureNode, id, title string) bool {
	n := Find(nodes, id)
	if n == nil {
		return false
	}
	n.Title = title
	return true
}

// Remove detaches the subtree rooted at id and returns the remaining tree
// and the removed node.
func Remove(nodes []models.StructureNode, id string) ([]models.StructureNode, *models.StructureNode) {
	for i := range nodes {
		if nodes[i].ID == id {
			removed := nodes[i]
			out := make([]models.StructureNode, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			out = append(out, nodes[i+1:]...)
			return out, &removed
		}
		if children, removed := Remove(nodes[i].Children, id); removed != nil {
			nodes[i].Children = children
			return nodes, removed
		}
	}
	return nodes, nil
}

// CollectFiles returns every file reference in the subtree rooted at node,
// node itself included.
func CollectFiles(node models.StructureNode) []string {
	var out []string
	Walk([]models.StructureNode{node}, func(n models.StructureNode) {
		if n.File != "" {
			out = append(out, n.File)
		}
	})
	return out
}

// Walk visits every node depth first, parents before children.
func Walk(nodes []models.StructureNode, fn func(models.StructureNode)) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Children, fn)
	}
}

// Scenes returns every scene node with a file reference, in outline order.
func Scenes(nodes []models.StructureNode) []models.StructureNode {
	var out []models.StructureNode
	Walk(nodes, func(n models.StructureNode) {
		if n.File != "" {
			out = append(out, n)
		}
	})
	return out
}

// Normalize replaces nil child slices with empty ones so the document
// always encodes children as [].
func Normalize(nodes []models.StructureNode) []models.StructureNode {
	if nodes == nil {
		return []models.StructureNode{}
	}
	for i := range nodes {
		nodes[i].Children = Normalize(nodes[i].Children)
	}
	return nodes
}
