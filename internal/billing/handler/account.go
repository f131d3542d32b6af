package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ebenavides/ekklesia/internal/billing/model"
	"github.com/ebenavides/ekklesia/internal/billing/store"
)

type AccountHandler struct {
	accounts      *store.AccountStore
	subscriptions *store.SubscriptionStore
	licenseKeys   *store.LicenseKeyStore
	logger        *slog.Logger
}

func NewAccountHandler(accounts *store.AccountStore, subscriptions *store.SubscriptionStore, licenseKeys *store.LicenseKeyStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts:      accounts,
		subscriptions: subscriptions,
		licenseKeys:   licenseKeys,
		logger:        logger,
	}
}

// Get assembles the dashboard: the account, its newest subscription, the
// license key, and the resolved plan so the client need not carry the
// catalog.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByID(AccountIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("get account", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if account == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sub, _ := h.subscriptions.GetByAccountID(account.ID)

	var license *model.LicenseKey
	var plan *model.Plan
	if sub != nil {
		license, _ = h.licenseKeys.GetBySubscriptionID(sub.ID)
		if p, ok := model.PlanByID(sub.Plan); ok {
			plan = &p
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":      account,
		"subscription": sub,
		"license_key":  license,
		"plan":         plan,
	})
}

// Update lets the account rename its congregation.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CongregationName string `json:"congregation_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.CongregationName)
	if name == "" {
		writeError(w, http.StatusBadRequest, "congregation_name is required")
		return
	}

	accountID := AccountIDFromContext(r.Context())
	if err := h.accounts.UpdateCongregationName(accountID, name); err != nil {
		h.logger.Error("update congregation name", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	account, err := h.accounts.GetByID(accountID)
	if err != nil || account == nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, account)
}
