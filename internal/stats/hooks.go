package stats

import (
	"log/slog"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
)

// Hooks couples entity mutations to the recalculations they require.
// The happy path runs inline so handlers can return fresh values; a
// failure never propagates to the caller; it is logged and enqueued as an
// outbox task for the worker to retry.
type Hooks struct {
	recalc *Recalculator
	tasks  *store.RecalcTaskStore
	logger *slog.Logger
}

func NewHooks(recalc *Recalculator, tasks *store.RecalcTaskStore, logger *slog.Logger) *Hooks {
	return &Hooks{recalc: recalc, tasks: tasks, logger: logger}
}

func (h *Hooks) MemberCreated(m *model.Member) {
	h.run(m.ChurchID, model.RecalcMembership, nil)
	if m.ChurchRole != nil {
		h.run(m.ChurchID, model.RecalcRoleCounts, nil)
	}
}

func (h *Hooks) MemberUpdated(before, after *model.Member) {
	roleChanged := !strPtrEqual(before.ChurchRole, after.ChurchRole)
	churchChanged := before.ChurchID != after.ChurchID

	switch {
	case roleChanged && churchChanged:
		h.run(before.ChurchID, model.RecalcRoleCounts, nil)
		h.run(after.ChurchID, model.RecalcRoleCounts, nil)
		h.run(before.ChurchID, model.RecalcMembership, nil)
		h.run(after.ChurchID, model.RecalcMembership, nil)
	case roleChanged:
		h.run(after.ChurchID, model.RecalcRoleCounts, nil)
	case churchChanged:
		h.run(before.ChurchID, model.RecalcMembership, nil)
		h.run(after.ChurchID, model.RecalcMembership, nil)
	}
}

func (h *Hooks) MemberDeleted(m *model.Member) {
	h.run(m.ChurchID, model.RecalcMembership, nil)
	if m.ChurchRole != nil {
		h.run(m.ChurchID, model.RecalcRoleCounts, nil)
	}
}

// EventDeleted runs after the event and its cascade-deleted attendee rows
// are gone.
func (h *Hooks) EventDeleted(e *model.Event) {
	year := e.StartsAt.UTC().Year()
	h.run(e.ChurchID, model.RecalcFaithDecisions, &year)
}

// RosterReplaced runs after the transactional roster swap committed. The
// event's own counters were already updated inside that transaction; only
// the church-level yearly count is derived here, best-effort.
func (h *Hooks) RosterReplaced(e *model.Event) {
	year := e.StartsAt.UTC().Year()
	h.run(e.ChurchID, model.RecalcFaithDecisions, &year)
}

func (h *Hooks) WeeklyAttendanceChanged(churchID int64) {
	h.run(churchID, model.RecalcWeeklyAverage, nil)
}

func (h *Hooks) run(churchID int64, kind string, year *int) {
	err := h.recalc.Run(churchID, kind, year)
	recalcTotal.WithLabelValues(kind, statusLabel(err)).Inc()
	if err == nil {
		return
	}

	h.logger.Error("recalculation failed, enqueueing retry",
		"church_id", churchID, "kind", kind, "error", err)
	if _, qerr := h.tasks.Enqueue(churchID, kind, year); qerr != nil {
		// The hourly sweep remains the backstop when even the enqueue
		// fails.
		h.logger.Error("enqueue recalc task", "church_id", churchID, "kind", kind, "error", qerr)
	}
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
