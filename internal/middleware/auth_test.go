package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/auth"
	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/store"
)

func setupAuthMiddleware(t *testing.T) (*auth.TokenIssuer, *store.UserStore, *store.ChurchStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return issuer, store.NewUserStore(db), store.NewChurchStore(db)
}

func TestRequireAuthNoToken(t *testing.T) {
	issuer, users, _ := setupAuthMiddleware(t)

	handler := RequireAuth(issuer, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	issuer, users, _ := setupAuthMiddleware(t)

	handler := RequireAuth(issuer, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	_, users, churches := setupAuthMiddleware(t)
	expired := auth.NewTokenIssuer("test-secret", -time.Minute)

	church, err := churches.Create("Iglesia Central", "")
	if err != nil {
		t.Fatalf("create church: %v", err)
	}
	user, err := users.Create("pastor@example.com", "hash", "Pastor", auth.RolePastor.ID, &church.ID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := expired.Issue(user.ID, user.Email, user.RoleID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	verifier := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := RequireAuth(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthInactiveAccount(t *testing.T) {
	issuer, users, churches := setupAuthMiddleware(t)

	church, err := churches.Create("Iglesia Central", "")
	if err != nil {
		t.Fatalf("create church: %v", err)
	}
	user, err := users.Create("pastor@example.com", "hash", "Pastor", auth.RolePastor.ID, &church.ID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.Update(user.ID, user.Email, user.Name, user.RoleID, false); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}

	token, err := issuer.Issue(user.ID, user.Email, user.RoleID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := RequireAuth(issuer, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthPopulatesPrincipal(t *testing.T) {
	issuer, users, churches := setupAuthMiddleware(t)

	church, err := churches.Create("Iglesia Central", "")
	if err != nil {
		t.Fatalf("create church: %v", err)
	}
	user, err := users.Create("pastor@example.com", "hash", "Pastor", auth.RolePastor.ID, &church.ID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := issuer.Issue(user.ID, user.Email, user.RoleID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var got auth.AuthContext
	handler := RequireAuth(issuer, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %d, want %d", got.UserID, user.ID)
	}
	if got.Role.ID != auth.RolePastor.ID {
		t.Errorf("Role.ID = %d, want %d", got.Role.ID, auth.RolePastor.ID)
	}
	if got.ChurchID == nil || *got.ChurchID != church.ID {
		t.Errorf("ChurchID = %v, want %d", got.ChurchID, church.ID)
	}
}

func TestRequireRoles(t *testing.T) {
	called := false
	handler := RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, auth.RolePastor)

	// Allowed role
	churchID := int64(1)
	ctx := auth.WithAuth(httptest.NewRequest("POST", "/api/members", nil).Context(), auth.AuthContext{
		UserID: 1, Role: auth.RolePastor, ChurchID: &churchID,
	})
	req := httptest.NewRequest("POST", "/api/members", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if !called {
		t.Error("pastor should reach handler")
	}

	// Disallowed role
	called = false
	ctx = auth.WithAuth(httptest.NewRequest("POST", "/api/members", nil).Context(), auth.AuthContext{
		UserID: 2, Role: auth.RoleTreasurer, ChurchID: &churchID,
	})
	req = httptest.NewRequest("POST", "/api/members", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if called {
		t.Error("treasurer should not reach handler")
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Cross-tenant role bypasses any list
	called = false
	ctx = auth.WithAuth(httptest.NewRequest("POST", "/api/members", nil).Context(), auth.AuthContext{
		UserID: 3, Role: auth.RoleSuperAdmin,
	})
	req = httptest.NewRequest("POST", "/api/members", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if !called {
		t.Error("superadmin should bypass the allow-list")
	}
}
