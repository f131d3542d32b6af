package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ebenavides/ekklesia/internal/billing/model"
	"github.com/ebenavides/ekklesia/internal/billing/store"
	billingstripe "github.com/ebenavides/ekklesia/internal/billing/stripe"
)

type CheckoutHandler struct {
	stripe   *billingstripe.Client
	accounts *store.AccountStore
	logger   *slog.Logger
}

func NewCheckoutHandler(sc *billingstripe.Client, accounts *store.AccountStore, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{stripe: sc, accounts: accounts, logger: logger}
}

// Start begins checkout for a self-serve plan. Plans sold by hand are
// pointed at the waitlist instead.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan     string `json:"plan"`
		Interval string `json:"interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Plan == "" {
		req.Plan = model.PlanCongregation
	}

	plan, ok := model.PlanByID(req.Plan)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown plan")
		return
	}
	if !plan.SelfServe {
		writeError(w, http.StatusConflict, "plan is not self-serve, join the waitlist")
		return
	}

	account, err := h.accounts.GetByID(AccountIDFromContext(r.Context()))
	if err != nil || account == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	customerID := ""
	if account.StripeCustomerID != nil {
		customerID = *account.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = h.stripe.CreateCustomer(account.Email, account.CongregationName)
		if err != nil {
			h.logger.Error("create stripe customer", "error", err)
			writeError(w, http.StatusInternalServerError, "unable to start checkout")
			return
		}
		if err := h.accounts.UpdateStripeCustomerID(account.ID, customerID); err != nil {
			h.logger.Error("save stripe customer id", "error", err)
		}
	}

	priceID, err := h.stripe.PriceFor(plan.ID, req.Interval)
	if err != nil {
		h.logger.Error("resolve price", "plan", plan.ID, "interval", req.Interval, "error", err)
		writeError(w, http.StatusConflict, "plan is not available for purchase")
		return
	}

	url, err := h.stripe.CreateCheckoutSession(customerID, plan.ID, priceID)
	if err != nil {
		h.logger.Error("create checkout session", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to start checkout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal opens the Stripe billing portal for an account that has bought
// before.
func (h *CheckoutHandler) Portal(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByID(AccountIDFromContext(r.Context()))
	if err != nil || account == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if account.StripeCustomerID == nil {
		writeError(w, http.StatusBadRequest, "no billing history for this account")
		return
	}

	returnURL := r.Header.Get("Referer")
	if returnURL == "" {
		returnURL = "/account"
	}

	url, err := h.stripe.CreateBillingPortalSession(*account.StripeCustomerID, returnURL)
	if err != nil {
		h.logger.Error("create billing portal session", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to open billing portal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
