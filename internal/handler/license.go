package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ebenavides/ekklesia/internal/license"
)

type LicenseHandler struct {
	client *license.Client
	logger *slog.Logger
}

func NewLicenseHandler(client *license.Client, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{client: client, logger: logger.With("handler", "license")}
}

// Get returns the current license status.
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    h.client.Status(),
		"free_tier": h.client.IsFreeTier(),
	})
}

// Update sets or clears the instance license key.
func (h *LicenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.client.SetKey(r.Context(), req.Key); err != nil {
		h.logger.Error("set license key", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update license key"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    h.client.Status(),
		"free_tier": h.client.IsFreeTier(),
	})
}
