package store

import (
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/model"
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

	b, err := bs.Create("backup-2026-03-01T030000Z.db.enc", "backups/backup-2026-03-01T030000Z.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusPending)
	}
	if b.SizeBytes != 0 {
		t.Errorf("size_bytes = %d, want 0", b.SizeBytes)
	}
}

func TestBackupUpdateStatus(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, _ := bs.Create("f.db.enc", "backups/f.db.enc")
	if err := bs.UpdateStatus(b.ID, model.BackupStatusFailed, "s3 unreachable"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusFailed)
	}
	if got.ErrorMessage != "s3 unreachable" {
		t.Errorf("error_message = %q, want %q", got.ErrorMessage, "s3 unreachable")
	}
}

func TestBackupUpdateCompleted(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, _ := bs.Create("f.db.enc", "backups/f.db.enc")
	if err := bs.UpdateCompleted(b.ID, 4096); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusCompleted)
	}
	if got.SizeBytes != 4096 {
		t.Errorf("size_bytes = %d, want 4096", got.SizeBytes)
	}
	if got.CompletedAt == nil {
		t.Error("expected non-nil completed_at")
	}
}

func TestBackupList(t *testing.T) {
	bs := setupBackupTestDB(t)

	bs.Create("a.db.enc", "backups/a.db.enc")
	bs.Create("b.db.enc", "backups/b.db.enc")

	list, err := bs.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}

	limited, _ := bs.List(1)
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestBackupLatestCompleted(t *testing.T) {
	bs := setupBackupTestDB(t)

	none, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if none != nil {
		t.Error("expected nil with no completed backups")
	}

	first, _ := bs.Create("a.db.enc", "backups/a.db.enc")
	bs.UpdateCompleted(first.ID, 100)
	pending, _ := bs.Create("b.db.enc", "backups/b.db.enc")
	_ = pending

	got, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a completed backup")
	}
	if got.ID != first.ID {
		t.Errorf("id = %d, want %d", got.ID, first.ID)
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, _ := bs.Create("old.db.enc", "backups/old.db.enc")
	bs.UpdateCompleted(b.ID, 100)

	keys, err := bs.DeleteOlderThan(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("len(keys) = %d, want 1", len(keys))
	}
	if keys[0] != "backups/old.db.enc" {
		t.Errorf("key = %q, want %q", keys[0], "backups/old.db.enc")
	}

	got, _ := bs.GetByID(b.ID)
	if got != nil {
		t.Error("expected nil after delete")
	}
}
