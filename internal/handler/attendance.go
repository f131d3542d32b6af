package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/stats"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type AttendanceHandler struct {
	attendanceStore *store.AttendanceStore
	hooks           *stats.Hooks
	logger          *slog.Logger
}

func NewAttendanceHandler(as *store.AttendanceStore, hooks *stats.Hooks, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendanceStore: as, hooks: hooks, logger: logger}
}

type attendanceRequest struct {
	Week            string `json:"week"`
	AttendanceCount int    `json:"attendance_count"`
	ChurchID        *int64 `json:"church_id"`
}

func (h *AttendanceHandler) parse(w http.ResponseWriter, req *attendanceRequest) (time.Time, bool) {
	week, err := time.Parse("2006-01-02", req.Week)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "week must be YYYY-MM-DD format"})
		return time.Time{}, false
	}
	if req.AttendanceCount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "attendance_count must not be negative"})
		return time.Time{}, false
	}
	return week, true
}

func (h *AttendanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	churchID := targetChurch(ac, req.ChurchID)
	if churchID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
		return
	}

	week, ok := h.parse(w, &req)
	if !ok {
		return
	}

	record, err := h.attendanceStore.Create(churchID, week, req.AttendanceCount)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateWeek) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "attendance already recorded for this week"})
			return
		}
		h.logger.Error("create weekly attendance", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record attendance"})
		return
	}

	h.hooks.WeeklyAttendanceChanged(churchID)
	writeJSON(w, http.StatusCreated, record)
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	records, err := h.attendanceStore.List(scope)
	if err != nil {
		h.logger.Error("list weekly attendance", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list attendance"})
		return
	}
	if records == nil {
		records = []model.WeeklyAttendance{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	week, ok := h.parse(w, &req)
	if !ok {
		return
	}

	record, err := h.attendanceStore.Update(existing.ID, week, req.AttendanceCount)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateWeek) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "attendance already recorded for this week"})
			return
		}
		h.logger.Error("update weekly attendance", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update attendance"})
		return
	}

	h.hooks.WeeklyAttendanceChanged(existing.ChurchID)
	writeJSON(w, http.StatusOK, record)
}

func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	if err := h.attendanceStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete weekly attendance", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete attendance"})
		return
	}

	h.hooks.WeeklyAttendanceChanged(existing.ChurchID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttendanceHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.WeeklyAttendance, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	record, err := h.attendanceStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get attendance"})
		return nil, false
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "attendance record not found"})
		return nil, false
	}
	if !scope.Allows(record.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return record, true
}
