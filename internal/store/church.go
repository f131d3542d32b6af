package store

import (
	"database/sql"
	"fmt"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type ChurchStore struct {
	db *sql.DB
}

func NewChurchStore(db *sql.DB) *ChurchStore {
	return &ChurchStore{db: db}
}

const churchCols = `id, name, login_title, logo_path,
	membership_count, avg_weekly_attendance, faith_decisions_year, faith_decisions_ref_year,
	ordained_preachers, unordained_preachers, ordained_deacons, unordained_deacons,
	created_at, updated_at`

func scanChurch(scanner interface{ Scan(...any) error }) (*model.Church, error) {
	var c model.Church
	err := scanner.Scan(
		&c.ID, &c.Name, &c.LoginTitle, &c.LogoPath,
		&c.MembershipCount, &c.AvgWeeklyAttendance, &c.FaithDecisionsYear, &c.FaithDecisionsRefYear,
		&c.OrdainedPreachers, &c.UnordainedPreachers, &c.OrdainedDeacons, &c.UnordainedDeacons,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChurchStore) Create(name, loginTitle string) (*model.Church, error) {
	result, err := s.db.Exec(
		`INSERT INTO churches (name, login_title) VALUES (?, ?)`,
		name, loginTitle,
	)
	if err != nil {
		return nil, fmt.Errorf("insert church: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChurchStore) GetByID(id int64) (*model.Church, error) {
	row := s.db.QueryRow(`SELECT `+churchCols+` FROM churches WHERE id = ?`, id)
	c, err := scanChurch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get church: %w", err)
	}
	return c, nil
}

// List returns the churches visible in the given scope, name order.
func (s *ChurchStore) List(scope tenant.Scope) ([]model.Church, error) {
	cond, args := scope.Where("id")
	rows, err := s.db.Query(
		`SELECT `+churchCols+` FROM churches WHERE `+cond+` ORDER BY name ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list churches: %w", err)
	}
	defer rows.Close()

	var churches []model.Church
	for rows.Next() {
		c, err := scanChurch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan church: %w", err)
		}
		churches = append(churches, *c)
	}
	return churches, rows.Err()
}

// ListIDs returns every church id. Used by the sweep and background loops.
func (s *ChurchStore) ListIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT id FROM churches ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list church ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan church id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update sets the user-editable fields only. Derived counters are owned by
// the stats recalculator and cannot be written through this path.
func (s *ChurchStore) Update(id int64, name, loginTitle string) (*model.Church, error) {
	_, err := s.db.Exec(
		`UPDATE churches SET name = ?, login_title = ?, updated_at = datetime('now') WHERE id = ?`,
		name, loginTitle, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update church: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChurchStore) UpdateLogo(id int64, logoPath string) (*model.Church, error) {
	_, err := s.db.Exec(
		`UPDATE churches SET logo_path = ?, updated_at = datetime('now') WHERE id = ?`,
		logoPath, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update church logo: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChurchStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM churches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete church: %w", err)
	}
	return nil
}
