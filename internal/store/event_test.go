package store

import (
	"testing"
	"time"

	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

func setupEventTestDB(t *testing.T) (*EventStore, *ChurchStore, *MemberStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEventStore(db), NewChurchStore(db), NewMemberStore(db)
}

func testEventParams(title string, start time.Time) EventParams {
	return EventParams{
		Title:     title,
		EventType: "culto",
		StartsAt:  start,
		EndsAt:    start.Add(2 * time.Hour),
	}
}

func TestEventCreate(t *testing.T) {
	es, cs, _ := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e, err := es.Create(church.ID, testEventParams("Culto Dominical", start))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if e.Title != "Culto Dominical" {
		t.Errorf("title = %q, want %q", e.Title, "Culto Dominical")
	}
	if !e.StartsAt.Equal(start) {
		t.Errorf("starts_at = %v, want %v", e.StartsAt, start)
	}
	if e.AttendeesCount != 0 || e.FaithDecisions != 0 {
		t.Error("expected zero counters on a new event")
	}
}

func TestEventListByRange(t *testing.T) {
	es, cs, _ := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	es.Create(church.ID, testEventParams("Marzo", time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)))
	es.Create(church.ID, testEventParams("Abril", time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)))

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	events, err := es.ListByRange(tenant.ForChurch(church.ID), start, end)
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Title != "Marzo" {
		t.Errorf("title = %q, want %q", events[0].Title, "Marzo")
	}
}

func TestEventReplaceRosterCounters(t *testing.T) {
	es, cs, ms := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	event, _ := es.Create(church.ID, testEventParams("Culto", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	var members []int64
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		m, err := ms.Create(church.ID, MemberParams{Name: name})
		if err != nil {
			t.Fatalf("create member: %v", err)
		}
		members = append(members, m.ID)
	}

	roster := []AttendeeParams{
		{MemberID: members[0], Attended: true, MadeFaithDecision: true},
		{MemberID: members[1], Attended: true, MadeFaithDecision: true},
		{MemberID: members[2], Attended: true},
		{MemberID: members[3], Attended: true},
		{MemberID: members[4], Attended: false},
	}
	updated, err := es.ReplaceRoster(event.ID, roster)
	if err != nil {
		t.Fatalf("replace roster: %v", err)
	}
	if updated.AttendeesCount != 5 {
		t.Errorf("attendees_count = %d, want 5", updated.AttendeesCount)
	}
	if updated.FaithDecisions != 2 {
		t.Errorf("faith_decisions = %d, want 2", updated.FaithDecisions)
	}
}

func TestEventReplaceRosterDuplicateLastWins(t *testing.T) {
	es, cs, ms := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	event, _ := es.Create(church.ID, testEventParams("Culto", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	m, _ := ms.Create(church.ID, MemberParams{Name: "Repetido"})

	updated, err := es.ReplaceRoster(event.ID, []AttendeeParams{
		{MemberID: m.ID, Attended: true, MadeFaithDecision: true},
		{MemberID: m.ID, Attended: true, MadeFaithDecision: false},
	})
	if err != nil {
		t.Fatalf("replace roster: %v", err)
	}
	if updated.AttendeesCount != 1 {
		t.Errorf("attendees_count = %d, want 1", updated.AttendeesCount)
	}
	if updated.FaithDecisions != 0 {
		t.Errorf("faith_decisions = %d, want 0 (last entry wins)", updated.FaithDecisions)
	}

	attendees, err := es.ListAttendees(event.ID)
	if err != nil {
		t.Fatalf("list attendees: %v", err)
	}
	if len(attendees) != 1 {
		t.Fatalf("len(attendees) = %d, want 1", len(attendees))
	}
	if attendees[0].MadeFaithDecision {
		t.Error("expected made_faith_decision = false from last entry")
	}
}

func TestEventReplaceRosterAtomic(t *testing.T) {
	es, cs, ms := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	event, _ := es.Create(church.ID, testEventParams("Culto", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	m, _ := ms.Create(church.ID, MemberParams{Name: "Valido"})

	if _, err := es.ReplaceRoster(event.ID, []AttendeeParams{
		{MemberID: m.ID, Attended: true},
	}); err != nil {
		t.Fatalf("seed roster: %v", err)
	}

	// A nonexistent member violates the foreign key; the whole replace
	// must roll back and keep the original roster.
	_, err := es.ReplaceRoster(event.ID, []AttendeeParams{
		{MemberID: m.ID, Attended: true},
		{MemberID: 99999, Attended: true},
	})
	if err == nil {
		t.Fatal("expected error for nonexistent member")
	}

	attendees, err := es.ListAttendees(event.ID)
	if err != nil {
		t.Fatalf("list attendees: %v", err)
	}
	if len(attendees) != 1 {
		t.Fatalf("len(attendees) = %d, want 1 (original roster)", len(attendees))
	}
	current, _ := es.GetByID(event.ID)
	if current.AttendeesCount != 1 {
		t.Errorf("attendees_count = %d, want 1 after rollback", current.AttendeesCount)
	}
}

func TestEventReplaceRosterEmptyClears(t *testing.T) {
	es, cs, ms := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	event, _ := es.Create(church.ID, testEventParams("Culto", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	m, _ := ms.Create(church.ID, MemberParams{Name: "Uno"})

	es.ReplaceRoster(event.ID, []AttendeeParams{{MemberID: m.ID, Attended: true, MadeFaithDecision: true}})

	updated, err := es.ReplaceRoster(event.ID, nil)
	if err != nil {
		t.Fatalf("replace with empty roster: %v", err)
	}
	if updated.AttendeesCount != 0 || updated.FaithDecisions != 0 {
		t.Errorf("counters = %d/%d, want 0/0 after clearing", updated.AttendeesCount, updated.FaithDecisions)
	}
}

func TestEventUpdate(t *testing.T) {
	es, cs, _ := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := es.Create(church.ID, testEventParams("Old Title", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	p := testEventParams("New Title", time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC))
	updated, err := es.Update(created.ID, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "New Title" {
		t.Errorf("title = %q, want %q", updated.Title, "New Title")
	}
}

func TestEventDelete(t *testing.T) {
	es, cs, _ := setupEventTestDB(t)

	church, _ := cs.Create("Iglesia Central", "")
	created, _ := es.Create(church.ID, testEventParams("Culto", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	if err := es.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	e, err := es.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if e != nil {
		t.Error("expected nil after delete")
	}
}
