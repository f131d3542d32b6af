package model

import "time"

// Recalculation kinds carried by outbox tasks.
const (
	RecalcMembership     = "membership_count"
	RecalcRoleCounts     = "role_counts"
	RecalcWeeklyAverage  = "weekly_average"
	RecalcFaithDecisions = "faith_decisions"
	RecalcAll            = "all"
)

type RecalcTask struct {
	ID            int64      `json:"id"`
	ChurchID      int64      `json:"church_id"`
	Kind          string     `json:"kind"`
	Year          *int       `json:"year"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastError     string     `json:"last_error"`
	DoneAt        *time.Time `json:"done_at"`
	CreatedAt     time.Time  `json:"created_at"`
}
