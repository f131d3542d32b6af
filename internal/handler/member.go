package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ebenavides/ekklesia/internal/export"
	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/stats"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type MemberHandler struct {
	memberStore   *store.MemberStore
	positionStore *store.PositionStore
	churchStore   *store.ChurchStore
	hooks         *stats.Hooks
	logger        *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, ps *store.PositionStore, cs *store.ChurchStore, hooks *stats.Hooks, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{memberStore: ms, positionStore: ps, churchStore: cs, hooks: hooks, logger: logger}
}

type memberRequest struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	BirthDate   *string `json:"birth_date"`
	Baptized    bool    `json:"baptized"`
	BaptismDate *string `json:"baptism_date"`
	ChurchRole  *string `json:"church_role"`
	PositionID  *int64  `json:"position_id"`
	ChurchID    *int64  `json:"church_id"`
}

var validChurchRoles = map[string]bool{
	model.RoleOrdainedPreacher:   true,
	model.RoleUnordainedPreacher: true,
	model.RoleOrdainedDeacon:     true,
	model.RoleUnordainedDeacon:   true,
}

// resolve validates a decoded request against the target church. Writes
// the error response itself on failure.
func (h *MemberHandler) resolve(w http.ResponseWriter, req *memberRequest, churchID int64) (store.MemberParams, bool) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return store.MemberParams{}, false
	}

	p := store.MemberParams{
		Name:     req.Name,
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Baptized: req.Baptized,
	}

	if req.BirthDate != nil && *req.BirthDate != "" {
		t, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "birth_date must be YYYY-MM-DD format"})
			return store.MemberParams{}, false
		}
		p.BirthDate = &t
	}
	if req.BaptismDate != nil && *req.BaptismDate != "" {
		t, err := time.Parse("2006-01-02", *req.BaptismDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "baptism_date must be YYYY-MM-DD format"})
			return store.MemberParams{}, false
		}
		p.BaptismDate = &t
	}

	if req.ChurchRole != nil && *req.ChurchRole != "" {
		if !validChurchRoles[*req.ChurchRole] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid church_role"})
			return store.MemberParams{}, false
		}
		p.ChurchRole = req.ChurchRole
	}

	if req.PositionID != nil {
		pos, err := h.positionStore.GetByID(*req.PositionID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check position"})
			return store.MemberParams{}, false
		}
		if pos == nil || pos.ChurchID != churchID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "position not found"})
			return store.MemberParams{}, false
		}
		p.PositionID = req.PositionID
	}

	return p, true
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	churchID := targetChurch(ac, req.ChurchID)
	if churchID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
		return
	}

	p, ok := h.resolve(w, &req, churchID)
	if !ok {
		return
	}

	member, err := h.memberStore.Create(churchID, p)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create member"})
		return
	}

	h.hooks.MemberCreated(member)
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	members, err := h.memberStore.List(scope)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}
	if members == nil {
		members = []model.Member{}
	}

	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	member, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	before, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// Only cross-tenant principals may move a member to another church.
	churchID := before.ChurchID
	if scope.IsUnrestricted() && req.ChurchID != nil && *req.ChurchID != before.ChurchID {
		dest, err := h.churchStore.GetByID(*req.ChurchID)
		if err != nil {
			h.logger.Error("check destination church", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update member"})
			return
		}
		if dest == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church not found"})
			return
		}
		churchID = dest.ID
	}

	p, ok := h.resolve(w, &req, churchID)
	if !ok {
		return
	}

	after, err := h.memberStore.Update(before.ID, churchID, p)
	if err != nil {
		h.logger.Error("update member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update member"})
		return
	}

	h.hooks.MemberUpdated(before, after)
	writeJSON(w, http.StatusOK, after)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	member, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	if err := h.memberStore.Delete(member.ID); err != nil {
		h.logger.Error("delete member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete member"})
		return
	}

	h.hooks.MemberDeleted(member)
	w.WriteHeader(http.StatusNoContent)
}

// Export streams the church membership roll as an XLSX workbook.
func (h *MemberHandler) Export(w http.ResponseWriter, r *http.Request) {
	ac, scope := principal(r)

	var explicit *int64
	if raw := r.URL.Query().Get("church_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid church_id"})
			return
		}
		explicit = &id
	}

	churchID := targetChurch(ac, explicit)
	if churchID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
		return
	}
	scope = tenant.ForChurch(churchID)

	church, err := h.churchStore.GetByID(churchID)
	if err != nil || church == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load church"})
		return
	}

	members, err := h.memberStore.List(scope)
	if err != nil {
		h.logger.Error("export members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}

	data, err := export.MembersXLSX(church.Name, members)
	if err != nil {
		h.logger.Error("build member workbook", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build export"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="members-%s.xlsx"`, time.Now().Format("2006-01-02")))
	w.Write(data)
}

// fetch loads the member from the path id and enforces visibility: unknown
// ids read as not found, rows in another church as forbidden.
func (h *MemberHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.Member, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	member, err := h.memberStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get member"})
		return nil, false
	}
	if member == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return nil, false
	}
	if !scope.Allows(member.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return member, true
}
