package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ebenavides/ekklesia/internal/billing/database"
	"github.com/ebenavides/ekklesia/internal/billing/model"
	"github.com/ebenavides/ekklesia/internal/billing/store"
)

func setupWaitlistTest(t *testing.T) (*WaitlistHandler, *store.WaitlistStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open billing database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ws := store.NewWaitlistStore(db)
	return NewWaitlistHandler(ws, slog.New(slog.DiscardHandler)), ws
}

func postWaitlist(h *WaitlistHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/waitlist", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Join(rec, req)
	return rec
}

func TestWaitlistJoinConference(t *testing.T) {
	h, ws := setupWaitlistTest(t)

	rec := postWaitlist(h, `{"email":"obispo@conferencia.example","congregation_name":"Conferencia del Este"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	count, _ := ws.CountForPlan(model.PlanConference)
	if count != 1 {
		t.Errorf("conference signups = %d, want 1 (plan defaults to conference)", count)
	}
}

func TestWaitlistRejectsSelfServePlan(t *testing.T) {
	h, _ := setupWaitlistTest(t)

	rec := postWaitlist(h, `{"email":"pastor@iglesia.example","plan":"distrito"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d for a plan sold through checkout", rec.Code, http.StatusConflict)
	}
}

func TestWaitlistRejectsBadEmail(t *testing.T) {
	h, _ := setupWaitlistTest(t)

	rec := postWaitlist(h, `{"email":"not-an-email"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
