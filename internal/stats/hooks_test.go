package stats

import (
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
)

func setupHooksTest(t *testing.T) (*Hooks, *sql.DB, *store.ChurchStore, *store.RecalcTaskStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tasks := store.NewRecalcTaskStore(db)
	hooks := NewHooks(NewRecalculator(db), tasks, slog.New(slog.DiscardHandler))
	return hooks, db, store.NewChurchStore(db), tasks
}

// poisonRoleCounters writes a sentinel into a role counter so a test can
// tell whether the role derivation ran.
func poisonRoleCounters(t *testing.T, db *sql.DB, churchID int64) {
	t.Helper()
	if _, err := db.Exec(`UPDATE churches SET ordained_preachers = 99 WHERE id = ?`, churchID); err != nil {
		t.Fatalf("poison counters: %v", err)
	}
}

func TestHooksMemberCreatedWithRole(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	ms := store.NewMemberStore(db)
	role := model.RoleOrdainedPreacher
	m, _ := ms.Create(church.ID, store.MemberParams{Name: "A", ChurchRole: &role})

	hooks.MemberCreated(m)

	got, _ := cs.GetByID(church.ID)
	if got.MembershipCount != 1 {
		t.Errorf("membership_count = %d, want 1", got.MembershipCount)
	}
	if got.OrdainedPreachers != 1 {
		t.Errorf("ordained_preachers = %d, want 1", got.OrdainedPreachers)
	}
}

func TestHooksMemberCreatedWithoutRoleSkipsRoleCounts(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	poisonRoleCounters(t, db, church.ID)

	ms := store.NewMemberStore(db)
	m, _ := ms.Create(church.ID, store.MemberParams{Name: "A"})
	hooks.MemberCreated(m)

	got, _ := cs.GetByID(church.ID)
	if got.MembershipCount != 1 {
		t.Errorf("membership_count = %d, want 1", got.MembershipCount)
	}
	if got.OrdainedPreachers != 99 {
		t.Errorf("ordained_preachers = %d, want untouched sentinel 99", got.OrdainedPreachers)
	}
}

func TestHooksMemberUpdatedRoleChange(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	ms := store.NewMemberStore(db)
	before, _ := ms.Create(church.ID, store.MemberParams{Name: "A"})

	role := model.RoleUnordainedDeacon
	after, _ := ms.Update(before.ID, church.ID, store.MemberParams{Name: "A", ChurchRole: &role})
	hooks.MemberUpdated(before, after)

	got, _ := cs.GetByID(church.ID)
	if got.UnordainedDeacons != 1 {
		t.Errorf("unordained_deacons = %d, want 1", got.UnordainedDeacons)
	}
}

func TestHooksMemberUpdatedNoChangeRunsNothing(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	poisonRoleCounters(t, db, church.ID)

	ms := store.NewMemberStore(db)
	before, _ := ms.Create(church.ID, store.MemberParams{Name: "A"})
	after, _ := ms.Update(before.ID, church.ID, store.MemberParams{Name: "A", Phone: "555"})
	hooks.MemberUpdated(before, after)

	got, _ := cs.GetByID(church.ID)
	if got.MembershipCount != 0 {
		t.Errorf("membership_count = %d, want 0 (no derivation ran)", got.MembershipCount)
	}
	if got.OrdainedPreachers != 99 {
		t.Errorf("ordained_preachers = %d, want untouched sentinel 99", got.OrdainedPreachers)
	}
}

func TestHooksMemberUpdatedChurchMoveRecountsBoth(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	origin, _ := cs.Create("Iglesia Origen", "")
	dest, _ := cs.Create("Iglesia Destino", "")
	ms := store.NewMemberStore(db)

	ms.Create(origin.ID, store.MemberParams{Name: "Permanece"})
	before, _ := ms.Create(origin.ID, store.MemberParams{Name: "Se muda"})

	after, _ := ms.Update(before.ID, dest.ID, store.MemberParams{Name: "Se muda"})
	hooks.MemberUpdated(before, after)

	gotOrigin, _ := cs.GetByID(origin.ID)
	gotDest, _ := cs.GetByID(dest.ID)
	if gotOrigin.MembershipCount != 1 {
		t.Errorf("origin membership_count = %d, want 1", gotOrigin.MembershipCount)
	}
	if gotDest.MembershipCount != 1 {
		t.Errorf("destination membership_count = %d, want 1", gotDest.MembershipCount)
	}
}

func TestHooksMemberUpdatedChurchAndRoleChange(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	origin, _ := cs.Create("Iglesia Origen", "")
	dest, _ := cs.Create("Iglesia Destino", "")
	ms := store.NewMemberStore(db)

	role := model.RoleOrdainedPreacher
	before, _ := ms.Create(origin.ID, store.MemberParams{Name: "Predicador", ChurchRole: &role})
	if _, err := NewRecalculator(db).RoleCounts(origin.ID); err != nil {
		t.Fatalf("seed role counts: %v", err)
	}

	newRole := model.RoleOrdainedDeacon
	after, _ := ms.Update(before.ID, dest.ID, store.MemberParams{Name: "Predicador", ChurchRole: &newRole})
	hooks.MemberUpdated(before, after)

	gotOrigin, _ := cs.GetByID(origin.ID)
	gotDest, _ := cs.GetByID(dest.ID)
	if gotOrigin.MembershipCount != 0 || gotOrigin.OrdainedPreachers != 0 {
		t.Errorf("origin = %d members / %d preachers, want 0/0",
			gotOrigin.MembershipCount, gotOrigin.OrdainedPreachers)
	}
	if gotDest.MembershipCount != 1 || gotDest.OrdainedDeacons != 1 {
		t.Errorf("destination = %d members / %d deacons, want 1/1",
			gotDest.MembershipCount, gotDest.OrdainedDeacons)
	}
}

func TestHooksMemberDeleted(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	ms := store.NewMemberStore(db)
	role := model.RoleOrdainedPreacher
	m, _ := ms.Create(church.ID, store.MemberParams{Name: "A", ChurchRole: &role})
	hooks.MemberCreated(m)

	ms.Delete(m.ID)
	hooks.MemberDeleted(m)

	got, _ := cs.GetByID(church.ID)
	if got.MembershipCount != 0 {
		t.Errorf("membership_count = %d, want 0", got.MembershipCount)
	}
	if got.OrdainedPreachers != 0 {
		t.Errorf("ordained_preachers = %d, want 0", got.OrdainedPreachers)
	}
}

func TestHooksEventDeletedRecountsFaithDecisions(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	ms := store.NewMemberStore(db)
	es := store.NewEventStore(db)

	start := time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)
	event, _ := es.Create(church.ID, store.EventParams{
		Title: "Culto", EventType: "culto", StartsAt: start, EndsAt: start.Add(2 * time.Hour),
	})
	m, _ := ms.Create(church.ID, store.MemberParams{Name: "A"})
	es.ReplaceRoster(event.ID, []store.AttendeeParams{{MemberID: m.ID, Attended: true, MadeFaithDecision: true}})
	hooks.RosterReplaced(event)

	got, _ := cs.GetByID(church.ID)
	if got.FaithDecisionsYear != 1 {
		t.Fatalf("faith_decisions_year = %d, want 1", got.FaithDecisionsYear)
	}

	es.Delete(event.ID)
	hooks.EventDeleted(event)

	got, _ = cs.GetByID(church.ID)
	if got.FaithDecisionsYear != 0 {
		t.Errorf("faith_decisions_year = %d, want 0 after delete", got.FaithDecisionsYear)
	}
	if got.FaithDecisionsRefYear != 2026 {
		t.Errorf("ref_year = %d, want 2026 (event start year)", got.FaithDecisionsRefYear)
	}
}

func TestHooksWeeklyAttendanceChanged(t *testing.T) {
	hooks, db, cs, _ := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	as := store.NewAttendanceStore(db)
	as.Create(church.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 40)

	hooks.WeeklyAttendanceChanged(church.ID)

	got, _ := cs.GetByID(church.ID)
	if got.AvgWeeklyAttendance != 40 {
		t.Errorf("avg_weekly_attendance = %d, want 40", got.AvgWeeklyAttendance)
	}
}

func TestHooksFailureEnqueuesRetry(t *testing.T) {
	hooks, _, cs, tasks := setupHooksTest(t)

	church, _ := cs.Create("Iglesia Central", "")
	hooks.run(church.ID, "bogus_kind", nil)

	pending, err := tasks.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1 enqueued retry", pending)
	}

	due, _ := tasks.ListDue(time.Now().Add(time.Minute), 10)
	if len(due) != 1 || due[0].Kind != "bogus_kind" {
		t.Fatalf("due tasks = %+v, want the failed kind", due)
	}
	if due[0].ChurchID != church.ID {
		t.Errorf("task church = %d, want %d", due[0].ChurchID, church.ID)
	}
}
