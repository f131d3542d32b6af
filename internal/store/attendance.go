package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

// ErrDuplicateWeek is returned when a church already has an attendance row
// for the given week. Callers surface it as a conflict, not a validation
// failure.
var ErrDuplicateWeek = errors.New("weekly attendance already recorded for this week")

type AttendanceStore struct {
	db *sql.DB
}

func NewAttendanceStore(db *sql.DB) *AttendanceStore {
	return &AttendanceStore{db: db}
}

const attendanceCols = `id, church_id, week, attendance_count, created_at, updated_at`

func scanWeeklyAttendance(scanner interface{ Scan(...any) error }) (*model.WeeklyAttendance, error) {
	var wa model.WeeklyAttendance
	err := scanner.Scan(&wa.ID, &wa.ChurchID, &wa.Week, &wa.AttendanceCount, &wa.CreatedAt, &wa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &wa, nil
}

func (s *AttendanceStore) Create(churchID int64, week time.Time, count int) (*model.WeeklyAttendance, error) {
	result, err := s.db.Exec(
		`INSERT INTO weekly_attendance (church_id, week, attendance_count) VALUES (?, ?, ?)`,
		churchID, weekDate(week), count,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateWeek
		}
		return nil, fmt.Errorf("insert weekly attendance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AttendanceStore) GetByID(id int64) (*model.WeeklyAttendance, error) {
	row := s.db.QueryRow(`SELECT `+attendanceCols+` FROM weekly_attendance WHERE id = ?`, id)
	wa, err := scanWeeklyAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly attendance: %w", err)
	}
	return wa, nil
}

func (s *AttendanceStore) List(scope tenant.Scope) ([]model.WeeklyAttendance, error) {
	cond, args := scope.Where("church_id")
	rows, err := s.db.Query(
		`SELECT `+attendanceCols+` FROM weekly_attendance WHERE `+cond+` ORDER BY week DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list weekly attendance: %w", err)
	}
	defer rows.Close()

	var records []model.WeeklyAttendance
	for rows.Next() {
		wa, err := scanWeeklyAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weekly attendance: %w", err)
		}
		records = append(records, *wa)
	}
	return records, rows.Err()
}

func (s *AttendanceStore) Update(id int64, week time.Time, count int) (*model.WeeklyAttendance, error) {
	_, err := s.db.Exec(
		`UPDATE weekly_attendance SET week = ?, attendance_count = ?, updated_at = datetime('now') WHERE id = ?`,
		weekDate(week), count, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateWeek
		}
		return nil, fmt.Errorf("update weekly attendance: %w", err)
	}
	return s.GetByID(id)
}

func (s *AttendanceStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM weekly_attendance WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete weekly attendance: %w", err)
	}
	return nil
}

// weekDate normalizes a week identifier to its date component in UTC.
func weekDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
