package library

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// MaxCoverSize bounds a cover image upload.
const MaxCoverSize = 10 << 20 // 10 MB

var coverExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// CoverExt sniffs data and returns the file extension of a supported cover
// image type. The declared type of an upload is never trusted.
func CoverExt(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("library: empty cover image: %w", apperr.ErrInvalidInput)
	}
	if len(data) > MaxCoverSize {
		return "", fmt.Errorf("library: cover image too large: %d bytes (max %d): %w",
			len(data), MaxCoverSize, apperr.ErrInvalidInput)
	}
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	ext, ok := coverExt[detected]
	if !ok {
		return "", fmt.Errorf("library: unsupported cover image type %s: %w", detected, apperr.ErrInvalidInput)
	}
	return ext, nil
}

// SetCover stores data as the cover image of the project at projectPath
// and records its file name on the project. A previous cover of another
// type is removed.
func (m *Manager) SetCover(projectPath string, data []byte) (models.Project, error) {
	ext, err := CoverExt(data)
	if err != nil {
		return models.Project{}, err
	}
	proj, err := m.GetProject(projectPath)
	if err != nil {
		return models.Project{}, err
	}
	name := "cover" + ext
	if err := m.store.Write(path.Join(proj.Path, name), data); err != nil {
		return models.Project{}, fmt.Errorf("library: write cover: %w", err)
	}
	if old := proj.CoverImage; old != "" && old != name && path.Base(old) == old {
		if err := m.store.Delete(path.Join(proj.Path, old)); err != nil {
			m.logger.Warn("library: stale cover not removed",
				slog.String("path", proj.Path), slog.String("file", old), slog.String("error", err.Error()))
		}
	}
	return m.UpdateProject(projectPath, ProjectUpdate{CoverImage: &name})
}
