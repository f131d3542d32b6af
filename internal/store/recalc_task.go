package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
)

// RecalcTaskStore is the durable outbox for failed aggregate
// recalculations. Tasks are claimed by due time and retried with growing
// delay until they succeed or exhaust their attempts.
type RecalcTaskStore struct {
	db *sql.DB
}

func NewRecalcTaskStore(db *sql.DB) *RecalcTaskStore {
	return &RecalcTaskStore{db: db}
}

const recalcTaskCols = `id, church_id, kind, year, attempts, next_attempt_at, last_error, done_at, created_at`

func scanRecalcTask(scanner interface{ Scan(...any) error }) (*model.RecalcTask, error) {
	var t model.RecalcTask
	var year sql.NullInt64
	var doneAt sql.NullTime
	err := scanner.Scan(&t.ID, &t.ChurchID, &t.Kind, &year, &t.Attempts, &t.NextAttemptAt, &t.LastError, &doneAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		t.Year = &y
	}
	if doneAt.Valid {
		t.DoneAt = &doneAt.Time
	}
	return &t, nil
}

// Enqueue records a pending recalculation, due immediately.
func (s *RecalcTaskStore) Enqueue(churchID int64, kind string, year *int) (*model.RecalcTask, error) {
	var y sql.NullInt64
	if year != nil {
		y = sql.NullInt64{Int64: int64(*year), Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO recalc_tasks (church_id, kind, year) VALUES (?, ?, ?)`,
		churchID, kind, y,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue recalc task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RecalcTaskStore) GetByID(id int64) (*model.RecalcTask, error) {
	row := s.db.QueryRow(`SELECT `+recalcTaskCols+` FROM recalc_tasks WHERE id = ?`, id)
	t, err := scanRecalcTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recalc task: %w", err)
	}
	return t, nil
}

// ListDue returns up to limit unfinished tasks whose next attempt is due.
func (s *RecalcTaskStore) ListDue(now time.Time, limit int) ([]model.RecalcTask, error) {
	rows, err := s.db.Query(
		`SELECT `+recalcTaskCols+` FROM recalc_tasks
		 WHERE done_at IS NULL AND next_attempt_at <= ?
		 ORDER BY next_attempt_at ASC LIMIT ?`,
		now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due recalc tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.RecalcTask
	for rows.Next() {
		t, err := scanRecalcTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recalc task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// MarkDone closes a task after a successful recalculation.
func (s *RecalcTaskStore) MarkDone(id int64) error {
	_, err := s.db.Exec(`UPDATE recalc_tasks SET done_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark recalc task done: %w", err)
	}
	return nil
}

// Reschedule records a failed attempt and pushes the next one out.
func (s *RecalcTaskStore) Reschedule(id int64, nextAttemptAt time.Time, lastError string) error {
	_, err := s.db.Exec(
		`UPDATE recalc_tasks SET attempts = attempts + 1, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		nextAttemptAt.UTC(), lastError, id,
	)
	if err != nil {
		return fmt.Errorf("reschedule recalc task: %w", err)
	}
	return nil
}

// CountPending returns the number of unfinished tasks.
func (s *RecalcTaskStore) CountPending() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM recalc_tasks WHERE done_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending recalc tasks: %w", err)
	}
	return count, nil
}

// DeleteCompleted prunes finished tasks older than the cutoff.
func (s *RecalcTaskStore) DeleteCompleted(before time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM recalc_tasks WHERE done_at IS NOT NULL AND done_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete completed recalc tasks: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
