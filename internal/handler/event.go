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
	"github.com/ebenavides/ekklesia/internal/recurrence"
	"github.com/ebenavides/ekklesia/internal/stats"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
	"github.com/ebenavides/ekklesia/internal/websocket"
)

type EventHandler struct {
	eventStore    *store.EventStore
	memberStore   *store.MemberStore
	scheduleStore *store.ScheduleStore
	churchStore   *store.ChurchStore
	hooks         *stats.Hooks
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewEventHandler(
	es *store.EventStore,
	ms *store.MemberStore,
	ss *store.ScheduleStore,
	cs *store.ChurchStore,
	hooks *stats.Hooks,
	hub *websocket.Hub,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		eventStore:    es,
		memberStore:   ms,
		scheduleStore: ss,
		churchStore:   cs,
		hooks:         hooks,
		hub:           hub,
		logger:        logger,
	}
}

type eventRequest struct {
	Title           string `json:"title"`
	EventType       string `json:"event_type"`
	StartsAt        string `json:"starts_at"`
	EndsAt          string `json:"ends_at"`
	PreacherID      *int64 `json:"preacher_id"`
	WorshipLeaderID *int64 `json:"worship_leader_id"`
	SingerID        *int64 `json:"singer_id"`
	ReminderMinutes *int   `json:"reminder_minutes"`
	ChurchID        *int64 `json:"church_id"`
}

// resolve validates a decoded request for the target church. Role
// assignments must point at members of the same church.
func (h *EventHandler) resolve(w http.ResponseWriter, req *eventRequest, churchID int64) (store.EventParams, bool) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return store.EventParams{}, false
	}

	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		eventType = model.EventTypeService
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "starts_at must be RFC3339 format"})
		return store.EventParams{}, false
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ends_at must be RFC3339 format"})
		return store.EventParams{}, false
	}
	if !startsAt.Before(endsAt) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "starts_at must be before ends_at"})
		return store.EventParams{}, false
	}

	if req.ReminderMinutes != nil && *req.ReminderMinutes <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reminder_minutes must be positive"})
		return store.EventParams{}, false
	}

	for _, ref := range []struct {
		name string
		id   *int64
	}{
		{"preacher_id", req.PreacherID},
		{"worship_leader_id", req.WorshipLeaderID},
		{"singer_id", req.SingerID},
	} {
		if ref.id == nil {
			continue
		}
		member, err := h.memberStore.GetByID(*ref.id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check member"})
			return store.EventParams{}, false
		}
		if member == nil || member.ChurchID != churchID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": ref.name + " member not found"})
			return store.EventParams{}, false
		}
	}

	return store.EventParams{
		Title:           req.Title,
		EventType:       eventType,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		PreacherID:      req.PreacherID,
		WorshipLeaderID: req.WorshipLeaderID,
		SingerID:        req.SingerID,
		ReminderMinutes: req.ReminderMinutes,
	}, true
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req eventRequest
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

	event, err := h.eventStore.Create(churchID, p)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create event"})
		return
	}

	h.hub.Broadcast(churchID, websocket.Message{Type: "event_created", Payload: event})
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	var events []model.Event
	var err error
	if startStr != "" || endStr != "" {
		start, perr := parseFlexibleTime(startStr)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be RFC3339 or YYYY-MM-DD format"})
			return
		}
		end, perr := parseFlexibleTime(endStr)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be RFC3339 or YYYY-MM-DD format"})
			return
		}
		events, err = h.eventStore.ListByRange(scope, start, end)
	} else {
		events, err = h.eventStore.List(scope)
	}
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	event, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	p, ok := h.resolve(w, &req, existing.ChurchID)
	if !ok {
		return
	}

	event, err := h.eventStore.Update(existing.ID, p)
	if err != nil {
		h.logger.Error("update event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update event"})
		return
	}

	h.hub.Broadcast(event.ChurchID, websocket.Message{Type: "event_updated", Payload: event})
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	event, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	if err := h.eventStore.Delete(event.ID); err != nil {
		h.logger.Error("delete event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete event"})
		return
	}

	h.hooks.EventDeleted(event)
	h.hub.Broadcast(event.ChurchID, websocket.Message{Type: "event_deleted", Payload: map[string]int64{"id": event.ID}})
	w.WriteHeader(http.StatusNoContent)
}

type attendeeRequest struct {
	MemberID          int64 `json:"member_id"`
	Attended          bool  `json:"attended"`
	MadeFaithDecision bool  `json:"made_faith_decision"`
}

// ReplaceRoster replaces the full attendance roll of an event. The roll and
// the event counters move together in one transaction; the response carries
// the recomputed counters.
func (h *EventHandler) ReplaceRoster(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	event, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req struct {
		Attendees []attendeeRequest `json:"attendees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	attendees := make([]store.AttendeeParams, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		member, err := h.memberStore.GetByID(a.MemberID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check member"})
			return
		}
		if member == nil || member.ChurchID != event.ChurchID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("member %d not found", a.MemberID)})
			return
		}
		attendees = append(attendees, store.AttendeeParams{
			MemberID:          a.MemberID,
			Attended:          a.Attended,
			MadeFaithDecision: a.MadeFaithDecision,
		})
	}

	updated, err := h.eventStore.ReplaceRoster(event.ID, attendees)
	if err != nil {
		h.logger.Error("replace roster", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save attendance"})
		return
	}

	h.hooks.RosterReplaced(updated)
	h.hub.Broadcast(updated.ChurchID, websocket.Message{Type: "attendance_updated", Payload: updated})
	writeJSON(w, http.StatusOK, updated)
}

func (h *EventHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	event, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	attendees, err := h.eventStore.ListAttendees(event.ID)
	if err != nil {
		h.logger.Error("list attendees", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list attendees"})
		return
	}
	if attendees == nil {
		attendees = []model.EventAttendee{}
	}

	writeJSON(w, http.StatusOK, attendees)
}

// CalendarPDF renders one month of events and recurring services as a PDF.
func (h *EventHandler) CalendarPDF(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	churchID := targetChurch(ac, nil)
	if cross := r.URL.Query().Get("church_id"); cross != "" && ac.Role.CrossTenant {
		id, err := strconv.ParseInt(cross, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid church_id"})
			return
		}
		churchID = id
	}
	if churchID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
		return
	}

	now := time.Now()
	year := now.Year()
	month := int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, _ = strconv.Atoi(raw); year < 1900 || year > 2200 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
			return
		}
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		if month, _ = strconv.Atoi(raw); month < 1 || month > 12 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month"})
			return
		}
	}

	church, err := h.churchStore.GetByID(churchID)
	if err != nil || church == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load church"})
		return
	}

	scope := tenant.ForChurch(churchID)
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	events, err := h.eventStore.ListByRange(scope, monthStart, monthEnd)
	if err != nil {
		h.logger.Error("calendar events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}

	schedules, err := h.scheduleStore.List(scope, true)
	if err != nil {
		h.logger.Error("calendar schedules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list schedules"})
		return
	}

	services := recurrence.ExpandMonth(schedules, year, time.Month(month))

	data, err := export.CalendarPDF(church.Name, year, time.Month(month), events, services)
	if err != nil {
		h.logger.Error("build calendar pdf", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build calendar"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="calendar-%04d-%02d.pdf"`, year, month))
	w.Write(data)
}

func (h *EventHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.Event, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	event, err := h.eventStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get event"})
		return nil, false
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return nil, false
	}
	if !scope.Allows(event.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return event, true
}

func parseFlexibleTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
