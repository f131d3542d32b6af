package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ebenavides/ekklesia/internal/auth"
	"github.com/ebenavides/ekklesia/internal/store"
)

// RequireAuth validates the bearer token, resolves the account, and
// attaches the principal to the request context. Missing, invalid, or
// expired tokens and inactive accounts are all 401; the request never
// reaches a handler.
func RequireAuth(issuer *auth.TokenIssuer, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.GetByID(userID)
			if err != nil || user == nil {
				unauthorized(w, "account not found")
				return
			}
			if !user.Active {
				unauthorized(w, "account disabled")
				return
			}

			role, ok := auth.RoleByID(user.RoleID)
			if !ok {
				unauthorized(w, "account has no valid role")
				return
			}

			ac := auth.AuthContext{
				UserID:   user.ID,
				Email:    user.Email,
				Role:     role,
				ChurchID: user.ChurchID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects with 403 unless the principal's role is in the
// allow-list. The cross-tenant role passes every list. 403 is distinct
// from 401 so clients can tell "not logged in" from "not permitted".
func RequireRoles(h http.HandlerFunc, roles ...auth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			unauthorized(w, "not authenticated")
			return
		}
		if ac.Role.CrossTenant {
			h(w, r)
			return
		}
		for _, role := range roles {
			if ac.Role.ID == role.ID {
				h(w, r)
				return
			}
		}
		forbidden(w, "role not permitted")
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Websocket clients cannot set headers; allow a query token there.
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func forbidden(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusForbidden, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
