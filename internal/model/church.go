package model

import "time"

type Church struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	LoginTitle string `json:"login_title"`
	LogoPath   string `json:"logo_path"`

	// Derived counters, written only by the stats recalculator.
	MembershipCount       int `json:"membership_count"`
	AvgWeeklyAttendance   int `json:"avg_weekly_attendance"`
	FaithDecisionsYear    int `json:"faith_decisions_year"`
	FaithDecisionsRefYear int `json:"faith_decisions_ref_year"`
	OrdainedPreachers     int `json:"ordained_preachers"`
	UnordainedPreachers   int `json:"unordained_preachers"`
	OrdainedDeacons       int `json:"ordained_deacons"`
	UnordainedDeacons     int `json:"unordained_deacons"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChurchStats is the derived-counter slice of a Church, returned by the
// stats endpoints without the identity fields.
type ChurchStats struct {
	MembershipCount       int `json:"membership_count"`
	AvgWeeklyAttendance   int `json:"avg_weekly_attendance"`
	FaithDecisionsYear    int `json:"faith_decisions_year"`
	FaithDecisionsRefYear int `json:"faith_decisions_ref_year"`
	OrdainedPreachers     int `json:"ordained_preachers"`
	UnordainedPreachers   int `json:"unordained_preachers"`
	OrdainedDeacons       int `json:"ordained_deacons"`
	UnordainedDeacons     int `json:"unordained_deacons"`
}
