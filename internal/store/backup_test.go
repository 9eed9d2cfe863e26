package store

import (
	"testing"
	"time"

	"github.com/dukerupert/lifeos/internal/database"
	"github.com/dukerupert/lifeos/internal/model"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBackupStore(db)
}

func TestBackupCreate(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("lifeos/backup-1.json.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusPending)
	}

	got, err := bs.GetByKey("lifeos/backup-1.json.enc")
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if got == nil || got.ID != b.ID {
		t.Errorf("get by key = %+v, want id %d", got, b.ID)
	}
}

func TestBackupUpdateStatus(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, _ := bs.Create("k1")

	if err := bs.UpdateStatus(b.ID, model.BackupStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusUploading {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusUploading)
	}

	if err := bs.UpdateStatus(b.ID, model.BackupStatusFailed, "upload failed"); err != nil {
		t.Fatalf("update status with error: %v", err)
	}
	got, _ = bs.GetByID(b.ID)
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusFailed)
	}
	if got.Error != "upload failed" {
		t.Errorf("error = %q, want %q", got.Error, "upload failed")
	}
}

func TestBackupCompletedAndLatest(t *testing.T) {
	bs := setupBackupTestDB(t)

	if latest, err := bs.LatestCompleted(); err != nil || latest != nil {
		t.Fatalf("latest on empty = %v, %v", latest, err)
	}

	b1, _ := bs.Create("k1")
	b2, _ := bs.Create("k2")
	bs.UpdateCompleted(b1.ID, 100, 3)
	bs.UpdateCompleted(b2.ID, 200, 14)

	latest, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != b2.ID {
		t.Fatalf("latest = %+v, want id %d", latest, b2.ID)
	}
	if latest.SizeBytes != 200 || latest.Entries != 14 {
		t.Errorf("size/entries = %d/%d, want 200/14", latest.SizeBytes, latest.Entries)
	}
	if latest.CompletedAt == nil {
		t.Error("expected completed_at set")
	}
}

func TestBackupListAndDeleteOlderThan(t *testing.T) {
	bs := setupBackupTestDB(t)

	bs.Create("k1")
	bs.Create("k2")

	list, err := bs.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ObjectKey != "k2" {
		t.Errorf("first = %q, want most recent %q", list[0].ObjectKey, "k2")
	}

	keys, err := bs.DeleteOlderThan(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("deleted keys = %v, want 2", keys)
	}
	list, _ = bs.List(10)
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}

func TestBackupNotFound(t *testing.T) {
	bs := setupBackupTestDB(t)

	got, err := bs.GetByID(999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for non-existent backup")
	}
}
