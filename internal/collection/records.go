package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/storage"
)

// Policy decides what DecodeFiles does with a record file that cannot be
// read or parsed.
type Policy int

const (
	// SkipInvalid logs the bad file and leaves it out of the result.
	SkipInvalid Policy = iota
	// FailFast aborts on the first bad file.
	FailFast
)

func (p Policy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "skip-invalid"
}

// Decoded pairs a record with the file it came from.
type Decoded[T any] struct {
	Path  string
	Value T
}

// DecodeFiles reads one JSON record per path. Files that vanished between
// listing and reading are ignored under either policy.
func DecodeFiles[T any](store storage.Provider, paths []string, policy Policy, logger *slog.Logger) ([]Decoded[T], error) {
	out := make([]Decoded[T], 0, len(paths))
	for _, p := range paths {
		data, err := store.Read(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if policy == FailFast {
				return nil, err
			}
			logger.Warn("collection: skipping unreadable record", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			if policy == FailFast {
				return nil, fmt.Errorf("collection: decode %s: %w: %w", p, apperr.ErrInvalidInput, err)
			}
			logger.Warn("collection: skipping malformed record", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		out = append(out, Decoded[T]{Path: p, Value: v})
	}
	return out, nil
}
