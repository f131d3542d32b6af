// Package stats maintains the derived counters on a church record. Every
// derivation recomputes from scratch off the child tables, never by
// incremental patching, so a redundant or lost run can only leave a value
// one generation stale, never internally inconsistent.
package stats

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
)

// Recalculator owns the derived fields on churches. Nothing else writes
// them.
type Recalculator struct {
	db  *sql.DB
	now func() time.Time
}

func NewRecalculator(db *sql.DB) *Recalculator {
	return &Recalculator{db: db, now: time.Now}
}

// MembershipCount recounts the church's member rows and persists the total.
// Returns the stored value.
func (r *Recalculator) MembershipCount(churchID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM members WHERE church_id = ?`, churchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}

	_, err = r.db.Exec(
		`UPDATE churches SET membership_count = ?, updated_at = datetime('now') WHERE id = ?`,
		count, churchID,
	)
	if err != nil {
		return 0, fmt.Errorf("write membership count: %w", err)
	}
	return count, nil
}

// AverageWeeklyAttendance recomputes the mean attendance over the church's
// weekly rows, 0 when none. Rounding is half away from zero (math.Round):
// a mean of 2.5 stores 3, a mean of -0.5 would store -1 (counts are
// non-negative, so the negative case cannot occur in practice).
func (r *Recalculator) AverageWeeklyAttendance(churchID int64) (int, error) {
	var avg float64
	err := r.db.QueryRow(
		`SELECT COALESCE(AVG(attendance_count), 0) FROM weekly_attendance WHERE church_id = ?`,
		churchID,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average weekly attendance: %w", err)
	}

	rounded := int(math.Round(avg))
	_, err = r.db.Exec(
		`UPDATE churches SET avg_weekly_attendance = ?, updated_at = datetime('now') WHERE id = ?`,
		rounded, churchID,
	)
	if err != nil {
		return 0, fmt.Errorf("write average weekly attendance: %w", err)
	}
	return rounded, nil
}

// RoleCountSet is the four ministerial-role counters written atomically.
type RoleCountSet struct {
	OrdainedPreachers   int `json:"ordained_preachers"`
	UnordainedPreachers int `json:"unordained_preachers"`
	OrdainedDeacons     int `json:"ordained_deacons"`
	UnordainedDeacons   int `json:"unordained_deacons"`
}

// RoleCounts groups the church's members by church_role and maps the fixed
// legacy labels onto the four counters. Labels outside the fixed set and
// members without a role contribute nothing. All four counters are written
// in one statement.
func (r *Recalculator) RoleCounts(churchID int64) (RoleCountSet, error) {
	rows, err := r.db.Query(
		`SELECT church_role, COUNT(*) FROM members
		 WHERE church_id = ? AND church_role IS NOT NULL
		 GROUP BY church_role`,
		churchID,
	)
	if err != nil {
		return RoleCountSet{}, fmt.Errorf("group members by role: %w", err)
	}
	defer rows.Close()

	var set RoleCountSet
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return RoleCountSet{}, fmt.Errorf("scan role count: %w", err)
		}
		switch role {
		case model.RoleOrdainedPreacher:
			set.OrdainedPreachers = count
		case model.RoleUnordainedPreacher:
			set.UnordainedPreachers = count
		case model.RoleOrdainedDeacon:
			set.OrdainedDeacons = count
		case model.RoleUnordainedDeacon:
			set.UnordainedDeacons = count
		}
	}
	if err := rows.Err(); err != nil {
		return RoleCountSet{}, err
	}

	_, err = r.db.Exec(
		`UPDATE churches SET ordained_preachers = ?, unordained_preachers = ?,
		 ordained_deacons = ?, unordained_deacons = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		set.OrdainedPreachers, set.UnordainedPreachers, set.OrdainedDeacons, set.UnordainedDeacons, churchID,
	)
	if err != nil {
		return RoleCountSet{}, fmt.Errorf("write role counts: %w", err)
	}
	return set, nil
}

// FaithDecisionsForYear counts attendance-roll faith decisions at the
// church's events whose start falls in the given calendar year, and stores
// both the count and the reference year. Changing the year recomputes from
// scratch; no per-year history is kept.
func (r *Recalculator) FaithDecisionsForYear(churchID int64, year int) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM event_attendees ea
		 JOIN events e ON ea.event_id = e.id
		 WHERE e.church_id = ? AND ea.made_faith_decision = 1
		   AND CAST(strftime('%Y', e.starts_at) AS INTEGER) = ?`,
		churchID, year,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faith decisions: %w", err)
	}

	_, err = r.db.Exec(
		`UPDATE churches SET faith_decisions_year = ?, faith_decisions_ref_year = ?, updated_at = datetime('now') WHERE id = ?`,
		count, year, churchID,
	)
	if err != nil {
		return 0, fmt.Errorf("write faith decisions: %w", err)
	}
	return count, nil
}

// CurrentYear returns the recalculator's notion of the current calendar
// year (UTC).
func (r *Recalculator) CurrentYear() int {
	return r.now().UTC().Year()
}

// RecalculateAll re-derives every counter for one church, faith decisions
// for the current year.
func (r *Recalculator) RecalculateAll(churchID int64) error {
	if _, err := r.MembershipCount(churchID); err != nil {
		return err
	}
	if _, err := r.RoleCounts(churchID); err != nil {
		return err
	}
	if _, err := r.AverageWeeklyAttendance(churchID); err != nil {
		return err
	}
	if _, err := r.FaithDecisionsForYear(churchID, r.CurrentYear()); err != nil {
		return err
	}
	return nil
}

// Run executes one recalculation by outbox kind.
func (r *Recalculator) Run(churchID int64, kind string, year *int) error {
	switch kind {
	case model.RecalcMembership:
		_, err := r.MembershipCount(churchID)
		return err
	case model.RecalcRoleCounts:
		_, err := r.RoleCounts(churchID)
		return err
	case model.RecalcWeeklyAverage:
		_, err := r.AverageWeeklyAttendance(churchID)
		return err
	case model.RecalcFaithDecisions:
		y := r.CurrentYear()
		if year != nil {
			y = *year
		}
		_, err := r.FaithDecisionsForYear(churchID, y)
		return err
	case model.RecalcAll:
		return r.RecalculateAll(churchID)
	default:
		return fmt.Errorf("unknown recalculation kind %q", kind)
	}
}
