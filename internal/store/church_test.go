package store

import (
	"testing"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

func setupChurchTestDB(t *testing.T) *ChurchStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChurchStore(db)
}

func TestChurchCreate(t *testing.T) {
	cs := setupChurchTestDB(t)

	c, err := cs.Create("Iglesia Central", "Bienvenidos")
	if err != nil {
		t.Fatalf("create church: %v", err)
	}
	if c.Name != "Iglesia Central" {
		t.Errorf("name = %q, want %q", c.Name, "Iglesia Central")
	}
	if c.LoginTitle != "Bienvenidos" {
		t.Errorf("login_title = %q, want %q", c.LoginTitle, "Bienvenidos")
	}
	if c.MembershipCount != 0 || c.AvgWeeklyAttendance != 0 {
		t.Error("expected zero derived counters on a new church")
	}
}

func TestChurchGetByIDNotFound(t *testing.T) {
	cs := setupChurchTestDB(t)

	c, err := cs.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if c != nil {
		t.Error("expected nil for nonexistent church")
	}
}

func TestChurchListScoped(t *testing.T) {
	cs := setupChurchTestDB(t)

	a, _ := cs.Create("Iglesia A", "")
	if _, err := cs.Create("Iglesia B", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := cs.List(tenant.Unrestricted())
	if err != nil {
		t.Fatalf("list unrestricted: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}

	scoped, err := cs.List(tenant.ForChurch(a.ID))
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped) != 1 {
		t.Fatalf("len(scoped) = %d, want 1", len(scoped))
	}
	if scoped[0].ID != a.ID {
		t.Errorf("scoped[0].ID = %d, want %d", scoped[0].ID, a.ID)
	}
}

func TestChurchListIDs(t *testing.T) {
	cs := setupChurchTestDB(t)

	a, _ := cs.Create("Iglesia A", "")
	b, _ := cs.Create("Iglesia B", "")

	ids, err := cs.ListIDs()
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2", len(ids))
	}
	found := map[int64]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[a.ID] || !found[b.ID] {
		t.Errorf("ids = %v, want both %d and %d", ids, a.ID, b.ID)
	}
}

func TestChurchUpdate(t *testing.T) {
	cs := setupChurchTestDB(t)

	created, _ := cs.Create("Old Name", "")
	updated, err := cs.Update(created.ID, "New Name", "New Title")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("name = %q, want %q", updated.Name, "New Name")
	}
	if updated.LoginTitle != "New Title" {
		t.Errorf("login_title = %q, want %q", updated.LoginTitle, "New Title")
	}
}

func TestChurchUpdateLogo(t *testing.T) {
	cs := setupChurchTestDB(t)

	created, _ := cs.Create("Iglesia Central", "")
	updated, err := cs.UpdateLogo(created.ID, "logos/abc123.png")
	if err != nil {
		t.Fatalf("update logo: %v", err)
	}
	if updated.LogoPath != "logos/abc123.png" {
		t.Errorf("logo_path = %q, want %q", updated.LogoPath, "logos/abc123.png")
	}
}

func TestChurchDelete(t *testing.T) {
	cs := setupChurchTestDB(t)

	created, _ := cs.Create("Iglesia Central", "")
	if err := cs.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	c, err := cs.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if c != nil {
		t.Error("expected nil after delete")
	}
}
