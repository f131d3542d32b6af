package model

import "time"

// ServiceSchedule is a recurring weekly service (weekday 0 = Sunday).
// StartTime is a wall-clock "HH:MM" string.
type ServiceSchedule struct {
	ID              int64     `json:"id"`
	ChurchID        int64     `json:"church_id"`
	Title           string    `json:"title"`
	Weekday         int       `json:"weekday"`
	StartTime       string    `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}
