package store

import (
	"database/sql"
	"fmt"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleCols = `id, church_id, title, weekday, start_time, duration_minutes, active, created_at`

func scanSchedule(scanner interface{ Scan(...any) error }) (*model.ServiceSchedule, error) {
	var sch model.ServiceSchedule
	var active int
	err := scanner.Scan(&sch.ID, &sch.ChurchID, &sch.Title, &sch.Weekday, &sch.StartTime, &sch.DurationMinutes, &active, &sch.CreatedAt)
	if err != nil {
		return nil, err
	}
	sch.Active = active != 0
	return &sch, nil
}

func (s *ScheduleStore) Create(churchID int64, title string, weekday int, startTime string, durationMinutes int) (*model.ServiceSchedule, error) {
	result, err := s.db.Exec(
		`INSERT INTO service_schedules (church_id, title, weekday, start_time, duration_minutes) VALUES (?, ?, ?, ?, ?)`,
		churchID, title, weekday, startTime, durationMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ScheduleStore) GetByID(id int64) (*model.ServiceSchedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleCols+` FROM service_schedules WHERE id = ?`, id)
	sch, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sch, nil
}

func (s *ScheduleStore) List(scope tenant.Scope, activeOnly bool) ([]model.ServiceSchedule, error) {
	cond, args := scope.Where("church_id")
	query := `SELECT ` + scheduleCols + ` FROM service_schedules WHERE ` + cond
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY weekday ASC, start_time ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.ServiceSchedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *sch)
	}
	return schedules, rows.Err()
}

func (s *ScheduleStore) Update(id int64, title string, weekday int, startTime string, durationMinutes int, active bool) (*model.ServiceSchedule, error) {
	_, err := s.db.Exec(
		`UPDATE service_schedules SET title = ?, weekday = ?, start_time = ?, duration_minutes = ?, active = ? WHERE id = ?`,
		title, weekday, startTime, durationMinutes, boolInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return s.GetByID(id)
}

func (s *ScheduleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM service_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
