package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ebenavides/ekklesia/internal/auth"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// principal returns the authenticated principal and its tenant scope. The
// auth middleware guarantees presence on protected routes.
func principal(r *http.Request) (auth.AuthContext, tenant.Scope) {
	ac, _ := auth.FromContext(r.Context())
	return ac, tenant.ScopeFor(ac)
}

// targetChurch resolves which church a write applies to: the principal's
// own church, or an explicit church_id when the principal is cross-tenant.
// Returns 0 when neither is available.
func targetChurch(ac auth.AuthContext, explicit *int64) int64 {
	if ac.Role.CrossTenant {
		if explicit != nil {
			return *explicit
		}
		return 0
	}
	if ac.ChurchID != nil {
		return *ac.ChurchID
	}
	return 0
}
