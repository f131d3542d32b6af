package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, church_id, title, event_type, starts_at, ends_at,
	preacher_id, worship_leader_id, singer_id, reminder_minutes,
	attendees_count, faith_decisions, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var preacherID, worshipLeaderID, singerID sql.NullInt64
	var reminderMinutes sql.NullInt64

	err := scanner.Scan(
		&e.ID, &e.ChurchID, &e.Title, &e.EventType, &e.StartsAt, &e.EndsAt,
		&preacherID, &worshipLeaderID, &singerID, &reminderMinutes,
		&e.AttendeesCount, &e.FaithDecisions, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if preacherID.Valid {
		e.PreacherID = &preacherID.Int64
	}
	if worshipLeaderID.Valid {
		e.WorshipLeaderID = &worshipLeaderID.Int64
	}
	if singerID.Valid {
		e.SingerID = &singerID.Int64
	}
	if reminderMinutes.Valid {
		m := int(reminderMinutes.Int64)
		e.ReminderMinutes = &m
	}
	return &e, nil
}

// EventParams carries the writable event fields.
type EventParams struct {
	Title           string
	EventType       string
	StartsAt        time.Time
	EndsAt          time.Time
	PreacherID      *int64
	WorshipLeaderID *int64
	SingerID        *int64
	ReminderMinutes *int
}

func (s *EventStore) Create(churchID int64, p EventParams) (*model.Event, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (church_id, title, event_type, starts_at, ends_at,
		 preacher_id, worship_leader_id, singer_id, reminder_minutes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		churchID, p.Title, p.EventType, p.StartsAt.UTC(), p.EndsAt.UTC(),
		nullInt(p.PreacherID), nullInt(p.WorshipLeaderID), nullInt(p.SingerID), nullIntVal(p.ReminderMinutes),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) List(scope tenant.Scope) ([]model.Event, error) {
	cond, args := scope.Where("church_id")
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE `+cond+` ORDER BY starts_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListByRange returns scoped events overlapping [start, end).
func (s *EventStore) ListByRange(scope tenant.Scope, start, end time.Time) ([]model.Event, error) {
	cond, args := scope.Where("church_id")
	args = append(args, end.UTC(), start.UTC())
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE `+cond+` AND starts_at < ? AND ends_at > ?
		 ORDER BY starts_at ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by range: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListUpcomingWithReminders returns events with a reminder whose reminder
// moment falls within [now, windowEnd). Used by the push scheduler.
func (s *EventStore) ListUpcomingWithReminders(now, windowEnd time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE reminder_minutes IS NOT NULL
		   AND datetime(starts_at, '-' || reminder_minutes || ' minutes') >= ?
		   AND datetime(starts_at, '-' || reminder_minutes || ' minutes') < ?
		 ORDER BY starts_at ASC`,
		now.UTC(), windowEnd.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events with reminders: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(id int64, p EventParams) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, event_type = ?, starts_at = ?, ends_at = ?,
		 preacher_id = ?, worship_leader_id = ?, singer_id = ?, reminder_minutes = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		p.Title, p.EventType, p.StartsAt.UTC(), p.EndsAt.UTC(),
		nullInt(p.PreacherID), nullInt(p.WorshipLeaderID), nullInt(p.SingerID), nullIntVal(p.ReminderMinutes), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// AttendeeParams is one attendance-roll entry in a roster replace.
type AttendeeParams struct {
	MemberID          int64
	Attended          bool
	MadeFaithDecision bool
}

// ReplaceRoster swaps the full attendance roll of an event in one
// transaction: delete all rows, insert the new set, recompute the event's
// own counters from the inserted rows. Duplicate member ids within the
// batch collapse to the last entry. Any failure rolls the whole thing back,
// leaving the original roster intact.
func (s *EventStore) ReplaceRoster(eventID int64, attendees []AttendeeParams) (*model.Event, error) {
	// Last entry wins for a member listed twice in the same batch.
	seen := make(map[int64]int, len(attendees))
	deduped := attendees[:0]
	for _, a := range attendees {
		if i, ok := seen[a.MemberID]; ok {
			deduped[i] = a
			continue
		}
		seen[a.MemberID] = len(deduped)
		deduped = append(deduped, a)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM event_attendees WHERE event_id = ?`, eventID); err != nil {
		return nil, fmt.Errorf("clear roster: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO event_attendees (event_id, member_id, attended, made_faith_decision) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	attendeesCount := 0
	faithDecisions := 0
	for _, a := range deduped {
		if _, err := stmt.Exec(eventID, a.MemberID, boolInt(a.Attended), boolInt(a.MadeFaithDecision)); err != nil {
			return nil, fmt.Errorf("insert attendee %d: %w", a.MemberID, err)
		}
		attendeesCount++
		if a.MadeFaithDecision {
			faithDecisions++
		}
	}

	if _, err := tx.Exec(
		`UPDATE events SET attendees_count = ?, faith_decisions = ?, updated_at = datetime('now') WHERE id = ?`,
		attendeesCount, faithDecisions, eventID,
	); err != nil {
		return nil, fmt.Errorf("update event counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit roster: %w", err)
	}
	return s.GetByID(eventID)
}

func (s *EventStore) ListAttendees(eventID int64) ([]model.EventAttendee, error) {
	rows, err := s.db.Query(
		`SELECT id, event_id, member_id, attended, made_faith_decision
		 FROM event_attendees WHERE event_id = ? ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []model.EventAttendee
	for rows.Next() {
		var a model.EventAttendee
		var attended, decision int
		if err := rows.Scan(&a.ID, &a.EventID, &a.MemberID, &attended, &decision); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		a.Attended = attended != 0
		a.MadeFaithDecision = decision != 0
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

func nullIntVal(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
