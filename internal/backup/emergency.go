package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/collection"
	"github.com/starford/folio/internal/ident"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/validate"
)

// EmergencyTTL is the lifetime of an emergency backup saved without an expiry.
const EmergencyTTL = 24 * time.Hour

func (s *Service) emergencyBackups() ([]collection.Decoded[models.EmergencyBackup], error) {
	files, err := s.store.List(layout.EmergencyBackupsDir, ".json")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return collection.DecodeFiles[models.EmergencyBackup](s.store, paths, collection.SkipInvalid, s.logger)
}

// SaveEmergencyBackup stores an unsaved copy of a scene body. A missing id,
// timestamp or expiry is filled in; the expiry defaults to EmergencyTTL
// after the timestamp.
func (s *Service) SaveEmergencyBackup(b models.EmergencyBackup) (models.EmergencyBackup, error) {
	if b.ID == "" {
		b.ID = ident.New()
	}
	if err := validate.ID("backup id", b.ID); err != nil {
		return b, err
	}
	if err := validate.ID("scene id", b.SceneID); err != nil {
		return b, err
	}
	if err := validate.SceneContent(b.Content); err != nil {
		return b, err
	}
	if b.Timestamp <= 0 {
		b.Timestamp = s.now().UnixMilli()
	}
	if b.ExpiresAt <= 0 {
		b.ExpiresAt = b.Timestamp + EmergencyTTL.Milliseconds()
	}
	if err := collection.NewDoc[models.EmergencyBackup](s.store, layout.EmergencyBackupFile(b.ID)).Save(b); err != nil {
		return b, fmt.Errorf("backup: save emergency backup %s: %w", b.ID, err)
	}
	return b, nil
}

// EmergencyBackup returns the newest unexpired backup of a scene.
func (s *Service) EmergencyBackup(sceneID string) (models.EmergencyBackup, error) {
	if err := validate.ID("scene id", sceneID); err != nil {
		return models.EmergencyBackup{}, err
	}
	all, err := s.emergencyBackups()
	if err != nil {
		return models.EmergencyBackup{}, fmt.Errorf("backup: emergency backups: %w", err)
	}
	now := s.now().UnixMilli()
	var (
		best  models.EmergencyBackup
		found bool
	)
	for _, d := range all {
		b := d.Value
		if b.SceneID != sceneID || b.ExpiresAt <= now {
			continue
		}
		if !found || b.Timestamp > best.Timestamp {
			best, found = b, true
		}
	}
	if !found {
		return best, fmt.Errorf("backup: emergency backup for scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	return best, nil
}

// DeleteEmergencyBackup removes one backup. A missing backup is not an error.
func (s *Service) DeleteEmergencyBackup(id string) error {
	if err := validate.ID("backup id", id); err != nil {
		return err
	}
	if err := s.store.Delete(layout.EmergencyBackupFile(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("backup: delete emergency backup %s: %w", id, err)
	}
	return nil
}

// CleanupEmergencyBackups removes every expired backup and returns how many
// were removed. Unreadable files are left alone.
func (s *Service) CleanupEmergencyBackups() (int, error) {
	all, err := s.emergencyBackups()
	if err != nil {
		return 0, fmt.Errorf("backup: emergency backups: %w", err)
	}
	now := s.now().UnixMilli()
	n := 0
	for _, d := range all {
		if d.Value.ExpiresAt > now {
			continue
		}
		if err := s.store.Delete(d.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("backup: emergency cleanup",
				slog.String("path", d.Path), slog.String("error", err.Error()))
			continue
		}
		n++
	}
	if n > 0 {
		s.logger.Info("backup: expired emergency backups removed", slog.Int("count", n))
	}
	return n, nil
}
