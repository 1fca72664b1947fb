package collection

import "github.com/starford/folio/internal/storage"

// Collection is a flat JSON array of records stored in one file.
// A missing file reads as an empty collection.
type Collection[T any] struct {
	doc *Doc[[]T]
}

// New returns a Collection stored at path.
func New[T any](store storage.Provider, path string) *Collection[T] {
	return &Collection[T]{doc: NewDoc[[]T](store, path)}
}

// Path returns the file path of the collection.
func (c *Collection[T]) Path() string { return c.doc.Path() }

// Load returns every record. Malformed JSON is an error.
func (c *Collection[T]) Load() ([]T, error) {
	items, _, err := c.doc.Load()
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Save replaces the whole collection.
func (c *Collection[T]) Save(items []T) error {
	return c.doc.Save(nonNil(items))
}

// Update runs fn over the current records and writes the result back,
// failing with apperr.ErrConflict if the file changed in between.
func (c *Collection[T]) Update(fn func([]T) ([]T, error)) error {
	return c.doc.Update(func(items []T, _ bool) ([]T, error) {
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		return nonNil(next), nil
	})
}

// Upsert replaces the record whose id matches item's, or appends item.
func Upsert[T any](items []T, item T, id func(T) string) []T {
	key := id(item)
	for i := range items {
		if id(items[i]) == key {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

// Filter keeps the records for which keep returns true and reports how
// many were dropped.
func Filter[T any](items []T, keep func(T) bool) ([]T, int) {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out, len(items) - len(out)
}

// Find returns the first record matching pred.
func Find[T any](items []T, pred func(T) bool) (T, bool) {
	for _, it := range items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Doc exposes the underlying document, for callers that need to know
// whether the file exists.
func (c *Collection[T]) Doc() *Doc[[]T] { return c.doc }
