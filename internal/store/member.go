package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, church_id, name, phone, email, birth_date, baptized, baptism_date,
	church_role, position_id, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var birthDate, baptismDate sql.NullTime
	var baptized int
	var churchRole sql.NullString
	var positionID sql.NullInt64

	err := scanner.Scan(
		&m.ID, &m.ChurchID, &m.Name, &m.Phone, &m.Email, &birthDate, &baptized, &baptismDate,
		&churchRole, &positionID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Baptized = baptized != 0
	if birthDate.Valid {
		m.BirthDate = &birthDate.Time
	}
	if baptismDate.Valid {
		m.BaptismDate = &baptismDate.Time
	}
	if churchRole.Valid {
		m.ChurchRole = &churchRole.String
	}
	if positionID.Valid {
		m.PositionID = &positionID.Int64
	}
	return &m, nil
}

// MemberParams carries the writable member fields.
type MemberParams struct {
	Name        string
	Phone       string
	Email       string
	BirthDate   *time.Time
	Baptized    bool
	BaptismDate *time.Time
	ChurchRole  *string
	PositionID  *int64
}

func (s *MemberStore) Create(churchID int64, p MemberParams) (*model.Member, error) {
	result, err := s.db.Exec(
		`INSERT INTO members (church_id, name, phone, email, birth_date, baptized, baptism_date, church_role, position_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		churchID, p.Name, p.Phone, p.Email, nullTime(p.BirthDate), boolInt(p.Baptized),
		nullTime(p.BaptismDate), nullString(p.ChurchRole), nullInt(p.PositionID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) List(scope tenant.Scope) ([]model.Member, error) {
	cond, args := scope.Where("church_id")
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members WHERE `+cond+` ORDER BY name ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListWithRole returns the scoped members that hold any church role or an
// active catalog position. Used for role-targeted notifications.
func (s *MemberStore) ListWithRole(scope tenant.Scope) ([]model.Member, error) {
	cond, args := scope.Where("church_id")
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM members
		 WHERE `+cond+` AND (church_role IS NOT NULL OR position_id IS NOT NULL)
		 ORDER BY name ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list members with role: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Update rewrites all writable fields, optionally moving the member to a new
// church. Aggregate maintenance is the caller's responsibility.
func (s *MemberStore) Update(id, churchID int64, p MemberParams) (*model.Member, error) {
	_, err := s.db.Exec(
		`UPDATE members SET church_id = ?, name = ?, phone = ?, email = ?, birth_date = ?,
		 baptized = ?, baptism_date = ?, church_role = ?, position_id = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		churchID, p.Name, p.Phone, p.Email, nullTime(p.BirthDate), boolInt(p.Baptized),
		nullTime(p.BaptismDate), nullString(p.ChurchRole), nullInt(p.PositionID), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// CountReferencingPosition reports how many members point at a catalog
// position. Positions stay referenced-but-inactive instead of being deleted.
func (s *MemberStore) CountReferencingPosition(positionID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM members WHERE position_id = ?`, positionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members referencing position: %w", err)
	}
	return count, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
