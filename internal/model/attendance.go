package model

import "time"

type WeeklyAttendance struct {
	ID              int64     `json:"id"`
	ChurchID        int64     `json:"church_id"`
	Week            time.Time `json:"week"`
	AttendanceCount int       `json:"attendance_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
