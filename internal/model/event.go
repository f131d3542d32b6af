package model

import "time"

// EventTypeService is the privileged service type; faith decisions and
// attendance statistics are primarily gathered at these events.
const EventTypeService = "Culto"

type Event struct {
	ID              int64     `json:"id"`
	ChurchID        int64     `json:"church_id"`
	Title           string    `json:"title"`
	EventType       string    `json:"event_type"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	PreacherID      *int64    `json:"preacher_id"`
	WorshipLeaderID *int64    `json:"worship_leader_id"`
	SingerID        *int64    `json:"singer_id"`
	ReminderMinutes *int      `json:"reminder_minutes"`

	// Derived from the attendance roll, written only by roster replace.
	AttendeesCount int `json:"attendees_count"`
	FaithDecisions int `json:"faith_decisions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EventAttendee struct {
	ID                int64 `json:"id"`
	EventID           int64 `json:"event_id"`
	MemberID          int64 `json:"member_id"`
	Attended          bool  `json:"attended"`
	MadeFaithDecision bool  `json:"made_faith_decision"`
}
