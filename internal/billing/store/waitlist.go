package store

import (
	"database/sql"
	"fmt"

	"github.com/ebenavides/ekklesia/internal/billing/model"
)

type WaitlistStore struct {
	db *sql.DB
}

func NewWaitlistStore(db *sql.DB) *WaitlistStore {
	return &WaitlistStore{db: db}
}

// Join records interest in a plan that is not self-serve. Signing up
// twice for the same plan is a no-op; the congregation name from the
// first signup wins.
func (s *WaitlistStore) Join(email, plan, congregationName string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO waitlist (email, plan, congregation_name) VALUES (?, ?, ?)`,
		email, plan, congregationName,
	)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	return nil
}

// ListForPlan returns a plan's signups oldest first, the order sales
// works through them.
func (s *WaitlistStore) ListForPlan(plan string) ([]model.WaitlistEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, email, plan, congregation_name, created_at FROM waitlist
		 WHERE plan = ? ORDER BY created_at ASC, id ASC`,
		plan,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	var entries []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.Email, &e.Plan, &e.CongregationName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountForPlan reports how many signups a plan has collected.
func (s *WaitlistStore) CountForPlan(plan string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM waitlist WHERE plan = ?`, plan).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return count, nil
}
