package store

import (
	"testing"

	"github.com/ebenavides/ekklesia/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestSettingsGetMissing(t *testing.T) {
	s := setupSettingsTestDB(t)

	v, err := s.Get("nonexistent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "" {
		t.Errorf("value = %q, want empty", v)
	}
}

func TestSettingsSetAndGet(t *testing.T) {
	s := setupSettingsTestDB(t)

	if err := s.Set(SettingLicenseKey, "EK-1111-2222-3333-4444"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := s.Get(SettingLicenseKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "EK-1111-2222-3333-4444" {
		t.Errorf("value = %q, want %q", v, "EK-1111-2222-3333-4444")
	}
}

func TestSettingsSetOverwrites(t *testing.T) {
	s := setupSettingsTestDB(t)

	s.Set("k", "first")
	if err := s.Set("k", "second"); err != nil {
		t.Fatalf("second set: %v", err)
	}
	v, _ := s.Get("k")
	if v != "second" {
		t.Errorf("value = %q, want %q", v, "second")
	}
}

func TestSettingsGetAll(t *testing.T) {
	s := setupSettingsTestDB(t)

	s.Set("a", "1")
	s.Set("b", "2")

	all, err := s.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if all["a"] != "1" || all["b"] != "2" {
		t.Errorf("all = %v, want a=1 b=2", all)
	}
}

func TestSettingsGetInt(t *testing.T) {
	s := setupSettingsTestDB(t)

	got, err := s.GetInt(SettingBackupRetention, 30)
	if err != nil {
		t.Fatalf("get int fallback: %v", err)
	}
	if got != 30 {
		t.Errorf("fallback = %d, want 30", got)
	}

	s.Set(SettingBackupRetention, "7")
	got, err = s.GetInt(SettingBackupRetention, 30)
	if err != nil {
		t.Fatalf("get int: %v", err)
	}
	if got != 7 {
		t.Errorf("value = %d, want 7", got)
	}
}

func TestSettingsGetBool(t *testing.T) {
	s := setupSettingsTestDB(t)

	got, err := s.GetBool(SettingBackupEnabled, false)
	if err != nil {
		t.Fatalf("get bool fallback: %v", err)
	}
	if got {
		t.Error("fallback = true, want false")
	}

	s.Set(SettingBackupEnabled, "true")
	got, err = s.GetBool(SettingBackupEnabled, false)
	if err != nil {
		t.Fatalf("get bool: %v", err)
	}
	if !got {
		t.Error("value = false, want true")
	}
}
