package handler

import (
	"net/http"

	"github.com/ebenavides/ekklesia/internal/billing/model"
)

type PlansHandler struct{}

func NewPlansHandler() *PlansHandler {
	return &PlansHandler{}
}

// List returns the plan catalog for the pricing page.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": model.Plans()})
}
