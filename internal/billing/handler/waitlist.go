package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ebenavides/ekklesia/internal/billing/model"
	"github.com/ebenavides/ekklesia/internal/billing/store"
)

type WaitlistHandler struct {
	waitlist *store.WaitlistStore
	logger   *slog.Logger
}

func NewWaitlistHandler(ws *store.WaitlistStore, logger *slog.Logger) *WaitlistHandler {
	return &WaitlistHandler{waitlist: ws, logger: logger}
}

// Join signs a congregation up for a tier that is not sold self-serve.
// Signing up twice with the same email and plan is a no-op.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email            string `json:"email"`
		Plan             string `json:"plan"`
		CongregationName string `json:"congregation_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	if req.Plan == "" {
		req.Plan = model.PlanConference
	}
	plan, ok := model.PlanByID(req.Plan)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown plan")
		return
	}
	if plan.SelfServe {
		writeError(w, http.StatusConflict, "plan can be bought directly, no waitlist needed")
		return
	}

	if err := h.waitlist.Join(req.Email, plan.ID, strings.TrimSpace(req.CongregationName)); err != nil {
		h.logger.Error("waitlist join", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to join waitlist")
		return
	}

	h.logger.Info("waitlist signup", "email", req.Email, "plan", plan.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined", "plan": plan.ID})
}
