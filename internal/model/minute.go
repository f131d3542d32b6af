package model

import "time"

type Minute struct {
	ID          int64     `json:"id"`
	ChurchID    int64     `json:"church_id"`
	MeetingDate time.Time `json:"meeting_date"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Motion struct {
	ID           int64  `json:"id"`
	MinuteID     int64  `json:"minute_id"`
	Description  string `json:"description"`
	Approved     bool   `json:"approved"`
	VotesInFavor int    `json:"votes_in_favor"`
	VotesAgainst int    `json:"votes_against"`
}

type MotionVoter struct {
	ID       int64 `json:"id"`
	MotionID int64 `json:"motion_id"`
	MemberID int64 `json:"member_id"`
	InFavor  bool  `json:"in_favor"`
}

type MinuteFile struct {
	ID          int64     `json:"id"`
	MinuteID    int64     `json:"minute_id"`
	FileName    string    `json:"file_name"`
	StoredName  string    `json:"stored_name"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
