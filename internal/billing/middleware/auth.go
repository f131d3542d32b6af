// Package middleware guards the billing service's account routes. The
// main application has its own JWT middleware; billing sessions are
// cookie-backed because they are created by a magic link, not a login
// form.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/ebenavides/ekklesia/internal/billing/handler"
	"github.com/ebenavides/ekklesia/internal/billing/store"
)

const sessionCookieName = "billing_session"

// RequireAuth validates the session cookie and puts the account id on the
// request context. Anything without a live session is a JSON 401.
func RequireAuth(sessions *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(handler.WithAccountID(r.Context(), sess.AccountID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
