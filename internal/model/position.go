package model

import "time"

type MinisterialPosition struct {
	ID        int64     `json:"id"`
	ChurchID  int64     `json:"church_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
