package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ebenavides/ekklesia/internal/auth"
	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/stats"
	"github.com/ebenavides/ekklesia/internal/store"
)

type memberTestEnv struct {
	mux         *http.ServeMux
	churchStore *store.ChurchStore
	memberStore *store.MemberStore
}

func setupMemberHandlerTest(t *testing.T) memberTestEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cs := store.NewChurchStore(db)
	ms := store.NewMemberStore(db)
	ps := store.NewPositionStore(db)
	logger := slog.New(slog.DiscardHandler)
	hooks := stats.NewHooks(stats.NewRecalculator(db), store.NewRecalcTaskStore(db), logger)
	h := NewMemberHandler(ms, ps, cs, hooks, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/members/{id}", h.Update)
	return memberTestEnv{mux: mux, churchStore: cs, memberStore: ms}
}

func doUpdate(t *testing.T, env memberTestEnv, ac auth.AuthContext, memberID int64, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest("PUT", fmt.Sprintf("/api/members/%d", memberID), bytes.NewReader(payload))
	req = req.WithContext(auth.WithAuth(req.Context(), ac))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func TestMemberUpdateCrossTenantMove(t *testing.T) {
	env := setupMemberHandlerTest(t)

	origin, _ := env.churchStore.Create("Iglesia Origen", "")
	dest, _ := env.churchStore.Create("Iglesia Destino", "")
	m, _ := env.memberStore.Create(origin.ID, store.MemberParams{Name: "Se muda"})

	rec := doUpdate(t, env, auth.AuthContext{UserID: 1, Role: auth.RoleSuperAdmin}, m.ID,
		map[string]any{"name": "Se muda", "church_id": dest.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var got model.Member
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ChurchID != dest.ID {
		t.Errorf("church_id = %d, want %d", got.ChurchID, dest.ID)
	}

	gotOrigin, _ := env.churchStore.GetByID(origin.ID)
	gotDest, _ := env.churchStore.GetByID(dest.ID)
	if gotOrigin.MembershipCount != 0 {
		t.Errorf("origin membership_count = %d, want 0", gotOrigin.MembershipCount)
	}
	if gotDest.MembershipCount != 1 {
		t.Errorf("destination membership_count = %d, want 1", gotDest.MembershipCount)
	}
}

func TestMemberUpdateMoveToUnknownChurch(t *testing.T) {
	env := setupMemberHandlerTest(t)

	origin, _ := env.churchStore.Create("Iglesia Origen", "")
	m, _ := env.memberStore.Create(origin.ID, store.MemberParams{Name: "A"})

	rec := doUpdate(t, env, auth.AuthContext{UserID: 1, Role: auth.RoleSuperAdmin}, m.ID,
		map[string]any{"name": "A", "church_id": int64(99999)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMemberUpdateChurchBoundPrincipalCannotMove(t *testing.T) {
	env := setupMemberHandlerTest(t)

	origin, _ := env.churchStore.Create("Iglesia Origen", "")
	dest, _ := env.churchStore.Create("Iglesia Destino", "")
	m, _ := env.memberStore.Create(origin.ID, store.MemberParams{Name: "A"})

	pastor := auth.AuthContext{UserID: 2, Role: auth.RolePastor, ChurchID: &origin.ID}
	rec := doUpdate(t, env, pastor, m.ID, map[string]any{"name": "A", "church_id": dest.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	got, _ := env.memberStore.GetByID(m.ID)
	if got.ChurchID != origin.ID {
		t.Errorf("church_id = %d, want unchanged %d", got.ChurchID, origin.ID)
	}
}
