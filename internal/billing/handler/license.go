package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ebenavides/ekklesia/internal/billing/store"
)

type LicenseHandler struct {
	licenses *store.LicenseKeyStore
}

func NewLicenseHandler(licenses *store.LicenseKeyStore) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

type validateRequest struct {
	Key string `json:"key"`
	// Churches is how many congregations the caller currently manages.
	// District and conference deployments report more than one.
	Churches int `json:"churches"`
}

type validateResponse struct {
	Valid       bool     `json:"valid"`
	Plan        string   `json:"plan,omitempty"`
	Features    []string `json:"features,omitempty"`
	ChurchLimit int      `json:"church_limit,omitempty"`
	ExpiresAt   *string  `json:"expires_at,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// Validate checks a license key against expiry and the tier's church
// limit. The first successful validation stamps the key activated.
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Key == "" {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Reason: "not_found"})
		return
	}

	lk, err := h.licenses.GetByKey(strings.ToUpper(strings.TrimSpace(req.Key)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lk == nil {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Reason: "not_found"})
		return
	}

	if lk.ExpiresAt != nil && lk.ExpiresAt.Before(time.Now().UTC()) {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Reason: "expired"})
		return
	}

	// ChurchLimit 0 means unlimited.
	if lk.ChurchLimit > 0 && req.Churches > lk.ChurchLimit {
		writeJSON(w, http.StatusOK, validateResponse{
			Valid:       false,
			Plan:        lk.Plan,
			ChurchLimit: lk.ChurchLimit,
			Reason:      "church_limit_exceeded",
		})
		return
	}

	if err := h.licenses.MarkActivated(lk.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var features []string
	if lk.Features != "" {
		features = strings.Split(lk.Features, ",")
	}

	resp := validateResponse{
		Valid:       true,
		Plan:        lk.Plan,
		Features:    features,
		ChurchLimit: lk.ChurchLimit,
	}
	if lk.ExpiresAt != nil {
		s := lk.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	writeJSON(w, http.StatusOK, resp)
}
