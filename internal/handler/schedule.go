package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

var startTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type ScheduleHandler struct {
	scheduleStore *store.ScheduleStore
	logger        *slog.Logger
}

func NewScheduleHandler(ss *store.ScheduleStore, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleStore: ss, logger: logger}
}

type scheduleRequest struct {
	Title           string `json:"title"`
	Weekday         int    `json:"weekday"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          *bool  `json:"active"`
	ChurchID        *int64 `json:"church_id"`
}

func (h *ScheduleHandler) validate(w http.ResponseWriter, req *scheduleRequest) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return false
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weekday must be 0 (Sunday) through 6 (Saturday)"})
		return false
	}
	if !startTimePattern.MatchString(req.StartTime) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_time must be HH:MM format"})
		return false
	}
	if req.DurationMinutes <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duration_minutes must be positive"})
		return false
	}
	return true
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	churchID := targetChurch(ac, req.ChurchID)
	if churchID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
		return
	}

	if !h.validate(w, &req) {
		return
	}

	schedule, err := h.scheduleStore.Create(churchID, req.Title, req.Weekday, req.StartTime, req.DurationMinutes)
	if err != nil {
		h.logger.Error("create schedule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create schedule"})
		return
	}

	writeJSON(w, http.StatusCreated, schedule)
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	activeOnly := r.URL.Query().Get("active") == "true"
	schedules, err := h.scheduleStore.List(scope, activeOnly)
	if err != nil {
		h.logger.Error("list schedules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list schedules"})
		return
	}
	if schedules == nil {
		schedules = []model.ServiceSchedule{}
	}

	writeJSON(w, http.StatusOK, schedules)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if !h.validate(w, &req) {
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	schedule, err := h.scheduleStore.Update(existing.ID, req.Title, req.Weekday, req.StartTime, req.DurationMinutes, active)
	if err != nil {
		h.logger.Error("update schedule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update schedule"})
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	if err := h.scheduleStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete schedule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete schedule"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.ServiceSchedule, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	schedule, err := h.scheduleStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get schedule"})
		return nil, false
	}
	if schedule == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "schedule not found"})
		return nil, false
	}
	if !scope.Allows(schedule.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return schedule, true
}
