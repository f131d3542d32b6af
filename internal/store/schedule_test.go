package store

import (
	"testing"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

func setupScheduleTestDB(t *testing.T) (*ScheduleStore, *ChurchStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewScheduleStore(db), NewChurchStore(db)
}

func TestScheduleCreate(t *testing.T) {
	ss, cs := setupScheduleTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	s, err := ss.Create(church.ID, "Culto Dominical", 0, "10:00", 120)
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if s.Title != "Culto Dominical" {
		t.Errorf("title = %q, want %q", s.Title, "Culto Dominical")
	}
	if s.Weekday != 0 {
		t.Errorf("weekday = %d, want 0", s.Weekday)
	}
	if s.StartTime != "10:00" {
		t.Errorf("start_time = %q, want %q", s.StartTime, "10:00")
	}
	if s.DurationMinutes != 120 {
		t.Errorf("duration_minutes = %d, want 120", s.DurationMinutes)
	}
	if !s.Active {
		t.Error("expected active = true on a new schedule")
	}
}

func TestScheduleListActiveOnly(t *testing.T) {
	ss, cs := setupScheduleTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	ss.Create(church.ID, "Culto Dominical", 0, "10:00", 120)
	midweek, _ := ss.Create(church.ID, "Estudio Biblico", 3, "19:00", 90)
	ss.Update(midweek.ID, "Estudio Biblico", 3, "19:00", 90, false)

	active, err := ss.List(tenant.ForChurch(church.ID), true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want 1", len(active))
	}

	all, err := ss.List(tenant.ForChurch(church.ID), false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
}

func TestScheduleListScoped(t *testing.T) {
	ss, cs := setupScheduleTestDB(t)

	a, _ := cs.Create("Iglesia A", "")
	b, _ := cs.Create("Iglesia B", "")
	ss.Create(a.ID, "Culto A", 0, "10:00", 120)
	ss.Create(b.ID, "Culto B", 0, "11:00", 120)

	schedules, err := ss.List(tenant.ForChurch(a.ID), false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(schedules) != 1 {
		t.Fatalf("len(schedules) = %d, want 1", len(schedules))
	}
	if schedules[0].Title != "Culto A" {
		t.Errorf("title = %q, want %q", schedules[0].Title, "Culto A")
	}
}

func TestScheduleUpdate(t *testing.T) {
	ss, cs := setupScheduleTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := ss.Create(church.ID, "Old", 0, "10:00", 120)

	updated, err := ss.Update(created.ID, "New", 6, "18:30", 60, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "New" || updated.Weekday != 6 || updated.StartTime != "18:30" {
		t.Errorf("got %q/%d/%q, want New/6/18:30", updated.Title, updated.Weekday, updated.StartTime)
	}
}

func TestScheduleDelete(t *testing.T) {
	ss, cs := setupScheduleTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := ss.Create(church.ID, "Culto", 0, "10:00", 120)

	if err := ss.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s, err := ss.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if s != nil {
		t.Error("expected nil after delete")
	}
}
