package store

import (
	"errors"
	"testing"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

func setupUserTestDB(t *testing.T) (*UserStore, *ChurchStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db), NewChurchStore(db)
}

func TestUserCreate(t *testing.T) {
	us, cs := setupUserTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	u, err := us.Create("pastor@example.com", "hash", "Pastor Juan", 2, &church.ID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "pastor@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "pastor@example.com")
	}
	if u.RoleID != 2 {
		t.Errorf("role_id = %d, want 2", u.RoleID)
	}
	if u.ChurchID == nil || *u.ChurchID != church.ID {
		t.Errorf("church_id = %v, want %d", u.ChurchID, church.ID)
	}
	if !u.Active {
		t.Error("expected active = true on a new user")
	}
}

func TestUserCreateSuperAdminNoChurch(t *testing.T) {
	us, _ := setupUserTestDB(t)

	u, err := us.Create("admin@example.com", "hash", "Admin", 1, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ChurchID != nil {
		t.Errorf("church_id = %v, want nil", u.ChurchID)
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	us, cs := setupUserTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	if _, err := us.Create("pastor@example.com", "hash", "Uno", 2, &church.ID); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := us.Create("pastor@example.com", "hash", "Dos", 3, &church.ID)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	us, cs := setupUserTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := us.Create("pastor@example.com", "hash", "Pastor", 2, &church.ID)

	u, err := us.GetByEmail("pastor@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != created.ID {
		t.Errorf("id = %d, want %d", u.ID, created.ID)
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	us, _ := setupUserTestDB(t)

	u, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent email")
	}
}

func TestUserListScoped(t *testing.T) {
	us, cs := setupUserTestDB(t)

	a, _ := cs.Create("Iglesia A", "")
	b, _ := cs.Create("Iglesia B", "")
	us.Create("a1@example.com", "hash", "A1", 2, &a.ID)
	us.Create("a2@example.com", "hash", "A2", 3, &a.ID)
	us.Create("b1@example.com", "hash", "B1", 2, &b.ID)

	users, err := us.List(tenant.ForChurch(a.ID))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
}

func TestUserUpdate(t *testing.T) {
	us, cs := setupUserTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := us.Create("old@example.com", "hash", "Old", 3, &church.ID)

	updated, err := us.Update(created.ID, "new@example.com", "New", 4, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Errorf("email = %q, want %q", updated.Email, "new@example.com")
	}
	if updated.RoleID != 4 {
		t.Errorf("role_id = %d, want 4", updated.RoleID)
	}
	if updated.Active {
		t.Error("expected active = false after update")
	}
}

func TestUserSetPassword(t *testing.T) {
	us, cs := setupUserTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := us.Create("pastor@example.com", "oldhash", "Pastor", 2, &church.ID)

	if err := us.SetPassword(created.ID, "newhash"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	u, _ := us.GetByID(created.ID)
	if u.PasswordHash != "newhash" {
		t.Errorf("password_hash = %q, want %q", u.PasswordHash, "newhash")
	}
}

func TestUserDelete(t *testing.T) {
	us, cs := setupUserTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := us.Create("pastor@example.com", "hash", "Pastor", 2, &church.ID)

	if err := us.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	u, err := us.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if u != nil {
		t.Error("expected nil after delete")
	}
}
