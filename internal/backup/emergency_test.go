package backup

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/layout"
	"github.com/starford/folio/internal/models"
)

func TestEmergencyBackupLifecycle(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	first, err := f.svc.SaveEmergencyBackup(models.EmergencyBackup{SceneID: "s1", Content: "draft one"})
	if err != nil {
		t.Fatalf("SaveEmergencyBackup: %v", err)
	}
	if first.ID == "" || first.Timestamp != now.UnixMilli() {
		t.Errorf("backup = %+v", first)
	}
	if first.ExpiresAt != first.Timestamp+EmergencyTTL.Milliseconds() {
		t.Errorf("expiresAt = %d", first.ExpiresAt)
	}

	now = now.Add(time.Minute)
	second, err := f.svc.SaveEmergencyBackup(models.EmergencyBackup{SceneID: "s1", Content: "draft two"})
	if err != nil {
		t.Fatal(err)
	}
	short, err := f.svc.SaveEmergencyBackup(models.EmergencyBackup{
		SceneID:   "s2",
		Content:   "brief",
		ExpiresAt: now.UnixMilli() + 1000,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.EmergencyBackup("s1")
	if err != nil || got.ID != second.ID || got.Content != "draft two" {
		t.Errorf("EmergencyBackup(s1) = %+v, %v", got, err)
	}
	if _, err := f.svc.EmergencyBackup("s9"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown scene: %v", err)
	}
	if _, err := f.svc.SaveEmergencyBackup(models.EmergencyBackup{SceneID: "a/b"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("unsafe scene id: %v", err)
	}

	if err := f.store.Write(layout.EmergencyBackupFile("broken"), []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Second)
	if _, err := f.svc.EmergencyBackup("s2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expired backup returned: %v", err)
	}
	n, err := f.svc.CleanupEmergencyBackups()
	if err != nil || n != 1 {
		t.Fatalf("cleanup = %d, %v; want 1", n, err)
	}
	if ok, _ := f.store.Exists(layout.EmergencyBackupFile(short.ID)); ok {
		t.Error("expired backup file still present")
	}
	if ok, _ := f.store.Exists(layout.EmergencyBackupFile("broken")); !ok {
		t.Error("unreadable backup file was removed")
	}

	if err := f.svc.DeleteEmergencyBackup(second.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteEmergencyBackup(second.ID); err != nil {
		t.Errorf("deleting a missing backup: %v", err)
	}
	got, err = f.svc.EmergencyBackup("s1")
	if err != nil || got.ID != first.ID {
		t.Errorf("after delete = %+v, %v", got, err)
	}

	now = now.Add(EmergencyTTL)
	if n, err := f.svc.CleanupEmergencyBackups(); err != nil || n != 1 {
		t.Errorf("second cleanup = %d, %v; want 1", n, err)
	}
}
