package store

import (
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/database"
)

func setupPushTestDB(t *testing.T) (*PushStore, *UserStore, *ChurchStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db), NewUserStore(db), NewChurchStore(db)
}

func pushTestUser(t *testing.T, us *UserStore, cs *ChurchStore) (int64, int64) {
	t.Helper()
	church, err := cs.Create("Iglesia Central", "")
	if err != nil {
		t.Fatalf("create church: %v", err)
	}
	u, err := us.Create("pastor@example.com", "hash", "Pastor", 2, &church.ID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID, church.ID
}

func TestPushCreateSubscription(t *testing.T) {
	ps, us, cs := setupPushTestDB(t)
	userID, churchID := pushTestUser(t, us, cs)

	sub, err := ps.CreateSubscription(userID, churchID, "https://push.example/ep1", "p256dh", "auth", "Telefono")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.Endpoint != "https://push.example/ep1" {
		t.Errorf("endpoint = %q, want %q", sub.Endpoint, "https://push.example/ep1")
	}
	if sub.DeviceName != "Telefono" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Telefono")
	}
}

func TestPushCreateSubscriptionUpsertsByEndpoint(t *testing.T) {
	ps, us, cs := setupPushTestDB(t)
	userID, churchID := pushTestUser(t, us, cs)

	first, _ := ps.CreateSubscription(userID, churchID, "https://push.example/ep1", "old-key", "old-auth", "Viejo")
	second, err := ps.CreateSubscription(userID, churchID, "https://push.example/ep1", "new-key", "new-auth", "Nuevo")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d (same endpoint row)", second.ID, first.ID)
	}
	if second.P256dhKey != "new-key" {
		t.Errorf("p256dh_key = %q, want %q", second.P256dhKey, "new-key")
	}

	subs, _ := ps.ListByUser(userID)
	if len(subs) != 1 {
		t.Errorf("len(subs) = %d, want 1", len(subs))
	}
}

func TestPushDeleteSubscriptionChurchGuard(t *testing.T) {
	ps, us, cs := setupPushTestDB(t)
	userID, churchID := pushTestUser(t, us, cs)

	sub, _ := ps.CreateSubscription(userID, churchID, "https://push.example/ep1", "k", "a", "")

	// A different church must not be able to delete the row.
	if err := ps.DeleteSubscription(sub.ID, churchID+1); err != nil {
		t.Fatalf("delete with wrong church: %v", err)
	}
	if got, _ := ps.GetByID(sub.ID, churchID); got == nil {
		t.Fatal("subscription deleted by wrong church")
	}

	if err := ps.DeleteSubscription(sub.ID, churchID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := ps.GetByID(sub.ID, churchID); got != nil {
		t.Error("expected nil after delete")
	}
}

func TestPushPreferenceDefaultEnabled(t *testing.T) {
	ps, us, cs := setupPushTestDB(t)
	userID, _ := pushTestUser(t, us, cs)

	enabled, err := ps.IsPreferenceEnabled(userID, "event_reminder")
	if err != nil {
		t.Fatalf("is preference enabled: %v", err)
	}
	if !enabled {
		t.Error("expected default enabled = true")
	}
}

func TestPushSetPreference(t *testing.T) {
	ps, us, cs := setupPushTestDB(t)
	userID, churchID := pushTestUser(t, us, cs)

	if err := ps.SetPreference(userID, churchID, "event_reminder", false); err != nil {
		t.Fatalf("set preference: %v", err)
	}
	enabled, _ := ps.IsPreferenceEnabled(userID, "event_reminder")
	if enabled {
		t.Error("expected enabled = false after opting out")
	}

	// Upsert flips it back.
	if err := ps.SetPreference(userID, churchID, "event_reminder", true); err != nil {
		t.Fatalf("set preference again: %v", err)
	}
	enabled, _ = ps.IsPreferenceEnabled(userID, "event_reminder")
	if !enabled {
		t.Error("expected enabled = true after opting back in")
	}

	prefs, err := ps.GetPreferences(userID)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if len(prefs) != 1 {
		t.Errorf("len(prefs) = %d, want 1", len(prefs))
	}
}

func TestPushSentDedup(t *testing.T) {
	ps, us, cs := setupPushTestDB(t)
	_, churchID := pushTestUser(t, us, cs)

	sent, err := ps.WasSent(churchID, "event_reminder", "42", 60)
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("expected not sent before recording")
	}

	if err := ps.RecordSent(churchID, "event_reminder", "42", 60); err != nil {
		t.Fatalf("record sent: %v", err)
	}
	// Recording the same tuple twice is a no-op.
	if err := ps.RecordSent(churchID, "event_reminder", "42", 60); err != nil {
		t.Fatalf("record sent again: %v", err)
	}

	sent, _ = ps.WasSent(churchID, "event_reminder", "42", 60)
	if !sent {
		t.Error("expected sent after recording")
	}

	// A different lead time is a distinct notification.
	sent, _ = ps.WasSent(churchID, "event_reminder", "42", 1440)
	if sent {
		t.Error("expected not sent for a different lead time")
	}
}

func TestPushCleanupSent(t *testing.T) {
	ps, us, cs := setupPushTestDB(t)
	_, churchID := pushTestUser(t, us, cs)

	ps.RecordSent(churchID, "event_reminder", "42", 60)
	if err := ps.CleanupSent(time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("cleanup sent: %v", err)
	}

	sent, _ := ps.WasSent(churchID, "event_reminder", "42", 60)
	if sent {
		t.Error("expected record removed by cleanup")
	}
}
