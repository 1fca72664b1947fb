// Package validate holds the input rules shared by the stores. Every
// failure wraps apperr.ErrInvalidInput.
package validate

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
)

// Limits.
const (
	MaxProjectTitle = 200
	MaxAuthor       = 200
	MaxSceneTitle   = 500
	MaxCodexName    = 300
	MaxSeriesTitle  = 200
	MaxSceneSize    = 10 << 20
	MaxJSONSize     = 5 << 20
	MaxBackupSize   = 512 << 20
)

var (
	noPathSeparators = validation.By(func(v any) error {
		if s, _ := v.(string); strings.ContainsAny(s, `/\`) {
			return errors.New("must not contain path separators")
		}
		return nil
	})
	noNullBytes = validation.By(func(v any) error {
		if s, _ := v.(string); strings.ContainsRune(s, 0) {
			return errors.New("must not contain null bytes")
		}
		return nil
	})
	noLeadingDot = validation.By(func(v any) error {
		if s, _ := v.(string); strings.HasPrefix(s, ".") {
			return errors.New("must not start with '.'")
		}
		return nil
	})
	noReservedChars = validation.By(func(v any) error {
		if s, _ := v.(string); strings.ContainsAny(s, `*?<>|:"`) {
			return errors.New(`must not contain any of * ? < > | : "`)
		}
		return nil
	})
)

func wrap(field string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %w: %w", field, err, apperr.ErrInvalidInput)
}

// ProjectTitle checks a title that also becomes a directory name.
func ProjectTitle(title string) error {
	return wrap("project title", validation.Validate(title,
		validation.Required,
		validation.RuneLength(1, MaxProjectTitle),
		noPathSeparators,
		noLeadingDot,
		noReservedChars,
		noNullBytes,
	))
}

// Author checks an optional author name.
func Author(author string) error {
	return wrap("author", validation.Validate(author,
		validation.RuneLength(0, MaxAuthor),
		noNullBytes,
	))
}

// SeriesTitle checks a series title.
func SeriesTitle(title string) error {
	return wrap("series title", validation.Validate(strings.TrimSpace(title),
		validation.Required,
		validation.RuneLength(1, MaxSeriesTitle),
		noNullBytes,
	))
}

// NodeTitle checks a structure node title.
func NodeTitle(title string) error {
	return wrap("title", validation.Validate(title,
		validation.Required,
		validation.RuneLength(1, MaxSceneTitle),
		noPathSeparators,
		noNullBytes,
	))
}

// CodexName checks a codex entry name.
func CodexName(name string) error {
	return wrap("codex name", validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, MaxCodexName),
		noNullBytes,
	))
}

// Category checks a codex category, which names a directory.
func Category(category string) error {
	return wrap("category", validation.Validate(category,
		validation.Required,
		noPathSeparators,
		noLeadingDot,
		noNullBytes,
	))
}

// ID checks a record id that may become part of a file name.
func ID(field, id string) error {
	return wrap(field, validation.Validate(id,
		validation.Required,
		noPathSeparators,
		noLeadingDot,
		noNullBytes,
	))
}

// SceneContent checks the size of scene content.
func SceneContent(content string) error {
	return wrap("scene content", validation.Validate(content,
		validation.Length(0, MaxSceneSize),
		noNullBytes,
	))
}

// BackupPayload checks the size of a backup document. Export refuses to
// write anything over the same limit, so every written backup can be read
// back.
func BackupPayload(data []byte) error {
	return backupSize(len(data))
}

func backupSize(n int) error {
	if n > MaxBackupSize {
		return fmt.Errorf("backup too large: %d bytes (max %d): %w", n, MaxBackupSize, apperr.ErrInvalidInput)
	}
	return nil
}

// JSONPayload checks the size of an imported JSON document other than a
// backup.
func JSONPayload(data []byte) error {
	if len(data) > MaxJSONSize {
		return fmt.Errorf("payload too large: %d bytes (max %d): %w", len(data), MaxJSONSize, apperr.ErrInvalidInput)
	}
	return nil
}
