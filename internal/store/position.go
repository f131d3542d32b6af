package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

// ErrDuplicatePosition is returned when a church already has a position with
// the same name.
var ErrDuplicatePosition = errors.New("position name already exists for this church")

type PositionStore struct {
	db *sql.DB
}

func NewPositionStore(db *sql.DB) *PositionStore {
	return &PositionStore{db: db}
}

const positionCols = `id, church_id, name, active, created_at`

func scanPosition(scanner interface{ Scan(...any) error }) (*model.MinisterialPosition, error) {
	var p model.MinisterialPosition
	var active int
	err := scanner.Scan(&p.ID, &p.ChurchID, &p.Name, &active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Active = active != 0
	return &p, nil
}

func (s *PositionStore) Create(churchID int64, name string) (*model.MinisterialPosition, error) {
	result, err := s.db.Exec(
		`INSERT INTO ministerial_positions (church_id, name) VALUES (?, ?)`,
		churchID, name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePosition
		}
		return nil, fmt.Errorf("insert position: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PositionStore) GetByID(id int64) (*model.MinisterialPosition, error) {
	row := s.db.QueryRow(`SELECT `+positionCols+` FROM ministerial_positions WHERE id = ?`, id)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

func (s *PositionStore) List(scope tenant.Scope, activeOnly bool) ([]model.MinisterialPosition, error) {
	cond, args := scope.Where("church_id")
	query := `SELECT ` + positionCols + ` FROM ministerial_positions WHERE ` + cond
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var positions []model.MinisterialPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func (s *PositionStore) Update(id int64, name string, active bool) (*model.MinisterialPosition, error) {
	_, err := s.db.Exec(
		`UPDATE ministerial_positions SET name = ?, active = ? WHERE id = ?`,
		name, boolInt(active), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePosition
		}
		return nil, fmt.Errorf("update position: %w", err)
	}
	return s.GetByID(id)
}

// Deactivate soft-deletes a position, keeping member references intact.
func (s *PositionStore) Deactivate(id int64) error {
	_, err := s.db.Exec(`UPDATE ministerial_positions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate position: %w", err)
	}
	return nil
}

// Delete hard-deletes a position. Callers must deactivate instead when the
// position is still referenced by members.
func (s *PositionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM ministerial_positions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}
