package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type PositionHandler struct {
	positionStore *store.PositionStore
	memberStore   *store.MemberStore
	logger        *slog.Logger
}

func NewPositionHandler(ps *store.PositionStore, ms *store.MemberStore, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positionStore: ps, memberStore: ms, logger: logger}
}

type positionRequest struct {
	Name     string `json:"name"`
	Active   *bool  `json:"active"`
	ChurchID *int64 `json:"church_id"`
}

func (h *PositionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	churchID := targetChurch(ac, req.ChurchID)
	if churchID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	position, err := h.positionStore.Create(churchID, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrDuplicatePosition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "position name already exists"})
			return
		}
		h.logger.Error("create position", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create position"})
		return
	}

	writeJSON(w, http.StatusCreated, position)
}

func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	activeOnly := r.URL.Query().Get("active") == "true"
	positions, err := h.positionStore.List(scope, activeOnly)
	if err != nil {
		h.logger.Error("list positions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list positions"})
		return
	}
	if positions == nil {
		positions = []model.MinisterialPosition{}
	}

	writeJSON(w, http.StatusOK, positions)
}

func (h *PositionHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	position, err := h.positionStore.Update(existing.ID, req.Name, active)
	if err != nil {
		if errors.Is(err, store.ErrDuplicatePosition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "position name already exists"})
			return
		}
		h.logger.Error("update position", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update position"})
		return
	}

	writeJSON(w, http.StatusOK, position)
}

// Delete removes a position, or deactivates it instead when members still
// hold it so their assignment history stays readable.
func (h *PositionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	refs, err := h.memberStore.CountReferencingPosition(existing.ID)
	if err != nil {
		h.logger.Error("count position members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete position"})
		return
	}

	if refs > 0 {
		if err := h.positionStore.Deactivate(existing.ID); err != nil {
			h.logger.Error("deactivate position", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate position"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "position is held by members and was deactivated instead",
			"members": refs,
		})
		return
	}

	if err := h.positionStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete position", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete position"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PositionHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.MinisterialPosition, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	position, err := h.positionStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get position"})
		return nil, false
	}
	if position == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "position not found"})
		return nil, false
	}
	if !scope.Allows(position.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return position, true
}
