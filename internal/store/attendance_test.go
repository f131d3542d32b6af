package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

func setupAttendanceTestDB(t *testing.T) (*AttendanceStore, *ChurchStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAttendanceStore(db), NewChurchStore(db)
}

func TestAttendanceCreate(t *testing.T) {
	as, cs := setupAttendanceTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	week := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	wa, err := as.Create(church.ID, week, 120)
	if err != nil {
		t.Fatalf("create attendance: %v", err)
	}
	if wa.AttendanceCount != 120 {
		t.Errorf("attendance_count = %d, want 120", wa.AttendanceCount)
	}
	if wa.ChurchID != church.ID {
		t.Errorf("church_id = %d, want %d", wa.ChurchID, church.ID)
	}
}

func TestAttendanceDuplicateWeek(t *testing.T) {
	as, cs := setupAttendanceTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	week := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := as.Create(church.ID, week, 120); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Same calendar date at a different clock time is still the same week.
	_, err := as.Create(church.ID, week.Add(5*time.Hour), 130)
	if !errors.Is(err, ErrDuplicateWeek) {
		t.Errorf("err = %v, want ErrDuplicateWeek", err)
	}
}

func TestAttendanceSameWeekDifferentChurch(t *testing.T) {
	as, cs := setupAttendanceTestDB(t)

	a, _ := cs.Create("Iglesia A", "")
	b, _ := cs.Create("Iglesia B", "")
	week := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := as.Create(a.ID, week, 100); err != nil {
		t.Fatalf("create for church a: %v", err)
	}
	if _, err := as.Create(b.ID, week, 80); err != nil {
		t.Errorf("create for church b: %v", err)
	}
}

func TestAttendanceListScoped(t *testing.T) {
	as, cs := setupAttendanceTestDB(t)

	a, _ := cs.Create("Iglesia A", "")
	b, _ := cs.Create("Iglesia B", "")
	as.Create(a.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 100)
	as.Create(a.ID, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), 110)
	as.Create(b.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 50)

	rows, err := as.List(tenant.ForChurch(a.ID))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
}

func TestAttendanceUpdate(t *testing.T) {
	as, cs := setupAttendanceTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := as.Create(church.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 120)

	updated, err := as.Update(created.ID, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), 95)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AttendanceCount != 95 {
		t.Errorf("attendance_count = %d, want 95", updated.AttendanceCount)
	}
}

func TestAttendanceDelete(t *testing.T) {
	as, cs := setupAttendanceTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := as.Create(church.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 120)

	if err := as.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wa, err := as.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if wa != nil {
		t.Error("expected nil after delete")
	}
}
