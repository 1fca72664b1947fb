// Package storage defines the library file-system abstraction.
package storage

import "time"

// FileMeta describes one file found by List.
type FileMeta struct {
	Path      string // relative to the library root, slash separated
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// DirEntry is one child of a directory returned by ReadDir.
type DirEntry struct {
	Name  string
	IsDir bool
}

// Provider is the interface for library file operations. Every path is
// relative to the library root; paths escaping the root are rejected.
type Provider interface {
	// Root returns the absolute library root.
	Root() string
	// List returns metadata for every file under dir whose name ends in ext.
	// A missing dir yields an empty list.
	List(dir, ext string) ([]FileMeta, error)
	// ReadDir returns the direct children of dir sorted by name.
	// A missing dir yields an empty list.
	ReadDir(dir string) ([]DirEntry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// RemoveAll removes path and everything below it. Missing paths are not an error.
	RemoveAll(path string) error
	// Move renames oldPath to newPath. Works for files and directories.
	Move(oldPath, newPath string) error
	// Exists reports whether path exists.
	Exists(path string) (bool, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
}
