package model

import "time"

// Legacy church role labels counted into the Church role counters.
const (
	RoleOrdainedPreacher   = "Predicador Ordenado"
	RoleUnordainedPreacher = "Predicador No Ordenado"
	RoleOrdainedDeacon     = "Diácono Ordenado"
	RoleUnordainedDeacon   = "Diácono No Ordenado"
)

type Member struct {
	ID          int64      `json:"id"`
	ChurchID    int64      `json:"church_id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	BirthDate   *time.Time `json:"birth_date"`
	Baptized    bool       `json:"baptized"`
	BaptismDate *time.Time `json:"baptism_date"`
	ChurchRole  *string    `json:"church_role"`
	PositionID  *int64     `json:"position_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
