// Package handler implements the billing service's JSON API: magic-link
// login, the account dashboard, Stripe checkout, the webhook sink, plan
// listing, license validation, and the waitlist.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type accountKey struct{}

// WithAccountID stores the authenticated account id in the context.
func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, accountKey{}, accountID)
}

// AccountIDFromContext returns the authenticated account id, 0 when the
// request carried no session.
func AccountIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(accountKey{}).(int64)
	return id
}
