package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/push"
	"github.com/ebenavides/ekklesia/internal/stats"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

const maxLogoSize = 2 << 20

type ChurchHandler struct {
	churchStore *store.ChurchStore
	recalc      *stats.Recalculator
	pushSched   *push.Scheduler
	uploadDir   string
	logger      *slog.Logger
}

// NewChurchHandler wires the church routes. pushSched may be nil when web
// push is not configured.
func NewChurchHandler(cs *store.ChurchStore, recalc *stats.Recalculator, pushSched *push.Scheduler, uploadDir string, logger *slog.Logger) *ChurchHandler {
	return &ChurchHandler{churchStore: cs, recalc: recalc, pushSched: pushSched, uploadDir: uploadDir, logger: logger}
}

type churchRequest struct {
	Name       string `json:"name"`
	LoginTitle string `json:"login_title"`
}

// List returns every church. Reachable only by cross-tenant accounts.
func (h *ChurchHandler) List(w http.ResponseWriter, r *http.Request) {
	churches, err := h.churchStore.List(tenant.Unrestricted())
	if err != nil {
		h.logger.Error("list churches", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list churches"})
		return
	}
	if churches == nil {
		churches = []model.Church{}
	}

	writeJSON(w, http.StatusOK, churches)
}

// Create registers a church without a pastor account. Reachable only by
// cross-tenant accounts.
func (h *ChurchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req churchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.LoginTitle == "" {
		req.LoginTitle = req.Name
	}

	church, err := h.churchStore.Create(req.Name, req.LoginTitle)
	if err != nil {
		h.logger.Error("create church", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create church"})
		return
	}

	writeJSON(w, http.StatusCreated, church)
}

func (h *ChurchHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	church, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, church)
}

func (h *ChurchHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req churchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.LoginTitle == "" {
		req.LoginTitle = req.Name
	}

	church, err := h.churchStore.Update(existing.ID, req.Name, req.LoginTitle)
	if err != nil {
		h.logger.Error("update church", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update church"})
		return
	}

	writeJSON(w, http.StatusOK, church)
}

// Delete removes a church and everything it owns. Reachable only by
// cross-tenant accounts.
func (h *ChurchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	church, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	if err := h.churchStore.Delete(church.ID); err != nil {
		h.logger.Error("delete church", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete church"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the derived counters of a church.
func (h *ChurchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	church, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, model.ChurchStats{
		MembershipCount:       church.MembershipCount,
		AvgWeeklyAttendance:   church.AvgWeeklyAttendance,
		FaithDecisionsYear:    church.FaithDecisionsYear,
		FaithDecisionsRefYear: church.FaithDecisionsRefYear,
		OrdainedPreachers:     church.OrdainedPreachers,
		UnordainedPreachers:   church.UnordainedPreachers,
		OrdainedDeacons:       church.OrdainedDeacons,
		UnordainedDeacons:     church.UnordainedDeacons,
	})
}

// Recalculate recomputes the derived counters from scratch, either all of
// them or one named kind.
func (h *ChurchHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	church, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req struct {
		Kind string `json:"kind"`
		Year *int   `json:"year"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}
	if req.Kind == "" {
		req.Kind = model.RecalcAll
	}

	if err := h.recalc.Run(church.ID, req.Kind, req.Year); err != nil {
		h.logger.Error("manual recalculation", "church_id", church.ID, "kind", req.Kind, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "recalculation failed"})
		return
	}

	updated, err := h.churchStore.GetByID(church.ID)
	if err != nil || updated == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load church"})
		return
	}

	if h.pushSched != nil {
		h.pushSched.NotifyStatsRefreshed(church.ID)
	}

	writeJSON(w, http.StatusOK, updated)
}

// UploadLogo stores a church logo image and records its path.
func (h *ChurchHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	church, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoSize)
	file, header, err := r.FormFile("logo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "logo field is required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported image type"})
		return
	}

	storedName := uuid.NewString() + ext
	dest := filepath.Join(h.uploadDir, storedName)

	out, err := os.Create(dest)
	if err != nil {
		h.logger.Error("create logo file", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store logo"})
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dest)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store logo"})
		return
	}

	// Drop the previous logo file, if any.
	if church.LogoPath != "" {
		os.Remove(filepath.Join(h.uploadDir, filepath.Base(church.LogoPath)))
	}

	updated, err := h.churchStore.UpdateLogo(church.ID, "/uploads/"+storedName)
	if err != nil {
		os.Remove(dest)
		h.logger.Error("update logo path", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store logo"})
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// fetch resolves the church addressed by the request. Routes without an
// id path segment address the principal's own church.
func (h *ChurchHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.Church, bool) {
	var id int64
	if raw := r.PathValue("id"); raw == "" {
		id = scope.ChurchID()
		if id == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no church for this account"})
			return nil, false
		}
	} else {
		var err error
		id, err = parseIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return nil, false
		}
	}

	church, err := h.churchStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get church"})
		return nil, false
	}
	if church == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "church not found"})
		return nil, false
	}
	if !scope.Allows(church.ID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return church, true
}
