// Package collection persists JSON documents and flat JSON-array
// collections with whole-file writes guarded by a per-path lock and a
// checksum compare-and-swap.
package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/storage"
)

// locks serialises read-modify-write cycles per file within the process.
var locks = newLocker()

// locker hands out one mutex per key. An entry lives only while someone
// holds or waits for it.
type locker struct {
	mu sync.Mutex
	m  map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newLocker() *locker {
	return &locker{m: make(map[string]*refMutex)}
}

func (l *locker) lock(key string) func() {
	l.mu.Lock()
	rm, ok := l.m[key]
	if !ok {
		rm = &refMutex{}
		l.m[key] = rm
	}
	rm.refs++
	l.mu.Unlock()

	rm.Lock()
	return func() {
		rm.Unlock()
		l.mu.Lock()
		rm.refs--
		if rm.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}

// size reports the number of live entries.
func (l *locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Doc is a single JSON value stored in one file.
type Doc[T any] struct {
	store storage.Provider
	path  string
}

// NewDoc returns a Doc stored at path (relative to the library root).
func NewDoc[T any](store storage.Provider, path string) *Doc[T] {
	return &Doc[T]{store: store, path: path}
}

// Path returns the file path of the document.
func (d *Doc[T]) Path() string { return d.path }

func (d *Doc[T]) key() string { return d.store.Root() + "\x00" + d.path }

// Load reads the document. found is false when the file does not exist.
func (d *Doc[T]) Load() (v T, found bool, err error) {
	v, sum, err := d.read()
	return v, sum != checksum.Empty, err
}

func (d *Doc[T]) read() (v T, sum string, err error) {
	data, err := d.store.Read(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, checksum.Empty, nil
		}
		return v, "", err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, "", fmt.Errorf("collection: decode %s: %w: %w", d.path, apperr.ErrInvalidInput, err)
	}
	return v, checksum.Sum(data), nil
}

// Save overwrites the document.
func (d *Doc[T]) Save(v T) error {
	unlock := locks.lock(d.key())
	defer unlock()
	return d.write(v)
}

func (d *Doc[T]) write(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("collection: encode %s: %w", d.path, err)
	}
	return d.store.Write(d.path, data)
}

// Update runs a read-modify-write cycle. fn receives the current value and
// whether the file existed. If the file changed on disk between the read
// and the write, Update returns apperr.ErrConflict and writes nothing.
func (d *Doc[T]) Update(fn func(v T, found bool) (T, error)) error {
	unlock := locks.lock(d.key())
	defer unlock()

	cur, sum, err := d.read()
	if err != nil {
		return err
	}
	next, err := fn(cur, sum != checksum.Empty)
	if err != nil {
		return err
	}
	if err := d.verify(sum); err != nil {
		return err
	}
	return d.write(next)
}

// verify re-reads the raw bytes and compares them with the checksum taken
// at the start of the cycle.
func (d *Doc[T]) verify(want string) error {
	data, err := d.store.Read(d.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if want != checksum.Empty {
			return fmt.Errorf("collection: %s removed concurrently: %w", d.path, apperr.ErrConflict)
		}
		return nil
	case err != nil:
		return err
	}
	if checksum.Sum(data) != want {
		return fmt.Errorf("collection: %s changed concurrently: %w", d.path, apperr.ErrConflict)
	}
	return nil
}
