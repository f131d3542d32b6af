package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type MinuteStore struct {
	db *sql.DB
}

func NewMinuteStore(db *sql.DB) *MinuteStore {
	return &MinuteStore{db: db}
}

const minuteCols = `id, church_id, meeting_date, title, content, created_at, updated_at`
const motionCols = `id, minute_id, description, approved, votes_in_favor, votes_against`

func scanMinute(scanner interface{ Scan(...any) error }) (*model.Minute, error) {
	var m model.Minute
	err := scanner.Scan(&m.ID, &m.ChurchID, &m.MeetingDate, &m.Title, &m.Content, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMotion(scanner interface{ Scan(...any) error }) (*model.Motion, error) {
	var m model.Motion
	var approved int
	err := scanner.Scan(&m.ID, &m.MinuteID, &m.Description, &approved, &m.VotesInFavor, &m.VotesAgainst)
	if err != nil {
		return nil, err
	}
	m.Approved = approved != 0
	return &m, nil
}

func (s *MinuteStore) Create(churchID int64, meetingDate time.Time, title, content string) (*model.Minute, error) {
	result, err := s.db.Exec(
		`INSERT INTO minutes (church_id, meeting_date, title, content) VALUES (?, ?, ?, ?)`,
		churchID, meetingDate.UTC(), title, content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert minute: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MinuteStore) GetByID(id int64) (*model.Minute, error) {
	row := s.db.QueryRow(`SELECT `+minuteCols+` FROM minutes WHERE id = ?`, id)
	m, err := scanMinute(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get minute: %w", err)
	}
	return m, nil
}

func (s *MinuteStore) List(scope tenant.Scope) ([]model.Minute, error) {
	cond, args := scope.Where("church_id")
	rows, err := s.db.Query(
		`SELECT `+minuteCols+` FROM minutes WHERE `+cond+` ORDER BY meeting_date DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list minutes: %w", err)
	}
	defer rows.Close()

	var minutes []model.Minute
	for rows.Next() {
		m, err := scanMinute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan minute: %w", err)
		}
		minutes = append(minutes, *m)
	}
	return minutes, rows.Err()
}

func (s *MinuteStore) Update(id int64, meetingDate time.Time, title, content string) (*model.Minute, error) {
	_, err := s.db.Exec(
		`UPDATE minutes SET meeting_date = ?, title = ?, content = ?, updated_at = datetime('now') WHERE id = ?`,
		meetingDate.UTC(), title, content, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update minute: %w", err)
	}
	return s.GetByID(id)
}

func (s *MinuteStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM minutes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete minute: %w", err)
	}
	return nil
}

func (s *MinuteStore) CreateMotion(minuteID int64, description string, approved bool) (*model.Motion, error) {
	result, err := s.db.Exec(
		`INSERT INTO motions (minute_id, description, approved) VALUES (?, ?, ?)`,
		minuteID, description, boolInt(approved),
	)
	if err != nil {
		return nil, fmt.Errorf("insert motion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetMotion(id)
}

func (s *MinuteStore) GetMotion(id int64) (*model.Motion, error) {
	row := s.db.QueryRow(`SELECT `+motionCols+` FROM motions WHERE id = ?`, id)
	m, err := scanMotion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get motion: %w", err)
	}
	return m, nil
}

func (s *MinuteStore) ListMotions(minuteID int64) ([]model.Motion, error) {
	rows, err := s.db.Query(
		`SELECT `+motionCols+` FROM motions WHERE minute_id = ? ORDER BY id ASC`,
		minuteID,
	)
	if err != nil {
		return nil, fmt.Errorf("list motions: %w", err)
	}
	defer rows.Close()

	var motions []model.Motion
	for rows.Next() {
		m, err := scanMotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan motion: %w", err)
		}
		motions = append(motions, *m)
	}
	return motions, rows.Err()
}

func (s *MinuteStore) UpdateMotion(id int64, description string, approved bool) (*model.Motion, error) {
	_, err := s.db.Exec(
		`UPDATE motions SET description = ?, approved = ? WHERE id = ?`,
		description, boolInt(approved), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update motion: %w", err)
	}
	return s.GetMotion(id)
}

func (s *MinuteStore) DeleteMotion(id int64) error {
	_, err := s.db.Exec(`DELETE FROM motions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete motion: %w", err)
	}
	return nil
}

// VoterParams is one entry in a motion voter list replace.
type VoterParams struct {
	MemberID int64
	InFavor  bool
}

// ReplaceVoters swaps a motion's voter list and recomputes its vote tallies
// in one transaction. A member listed twice collapses to the last entry.
func (s *MinuteStore) ReplaceVoters(motionID int64, voters []VoterParams) (*model.Motion, error) {
	seen := make(map[int64]int, len(voters))
	deduped := voters[:0]
	for _, v := range voters {
		if i, ok := seen[v.MemberID]; ok {
			deduped[i] = v
			continue
		}
		seen[v.MemberID] = len(deduped)
		deduped = append(deduped, v)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM motion_voters WHERE motion_id = ?`, motionID); err != nil {
		return nil, fmt.Errorf("clear voters: %w", err)
	}

	inFavor := 0
	against := 0
	for _, v := range deduped {
		if _, err := tx.Exec(
			`INSERT INTO motion_voters (motion_id, member_id, in_favor) VALUES (?, ?, ?)`,
			motionID, v.MemberID, boolInt(v.InFavor),
		); err != nil {
			return nil, fmt.Errorf("insert voter %d: %w", v.MemberID, err)
		}
		if v.InFavor {
			inFavor++
		} else {
			against++
		}
	}

	if _, err := tx.Exec(
		`UPDATE motions SET votes_in_favor = ?, votes_against = ? WHERE id = ?`,
		inFavor, against, motionID,
	); err != nil {
		return nil, fmt.Errorf("update motion tallies: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit voters: %w", err)
	}
	return s.GetMotion(motionID)
}

func (s *MinuteStore) ListVoters(motionID int64) ([]model.MotionVoter, error) {
	rows, err := s.db.Query(
		`SELECT id, motion_id, member_id, in_favor FROM motion_voters WHERE motion_id = ? ORDER BY id ASC`,
		motionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list voters: %w", err)
	}
	defer rows.Close()

	var voters []model.MotionVoter
	for rows.Next() {
		var v model.MotionVoter
		var inFavor int
		if err := rows.Scan(&v.ID, &v.MotionID, &v.MemberID, &inFavor); err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		v.InFavor = inFavor != 0
		voters = append(voters, v)
	}
	return voters, rows.Err()
}

func (s *MinuteStore) AddFile(minuteID int64, fileName, storedName string, sizeBytes int64, contentType string) (*model.MinuteFile, error) {
	result, err := s.db.Exec(
		`INSERT INTO minute_files (minute_id, file_name, stored_name, size_bytes, content_type) VALUES (?, ?, ?, ?, ?)`,
		minuteID, fileName, storedName, sizeBytes, contentType,
	)
	if err != nil {
		return nil, fmt.Errorf("insert minute file: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetFile(id)
}

func (s *MinuteStore) GetFile(id int64) (*model.MinuteFile, error) {
	row := s.db.QueryRow(
		`SELECT id, minute_id, file_name, stored_name, size_bytes, content_type, created_at
		 FROM minute_files WHERE id = ?`,
		id,
	)
	var f model.MinuteFile
	err := row.Scan(&f.ID, &f.MinuteID, &f.FileName, &f.StoredName, &f.SizeBytes, &f.ContentType, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get minute file: %w", err)
	}
	return &f, nil
}

func (s *MinuteStore) ListFiles(minuteID int64) ([]model.MinuteFile, error) {
	rows, err := s.db.Query(
		`SELECT id, minute_id, file_name, stored_name, size_bytes, content_type, created_at
		 FROM minute_files WHERE minute_id = ? ORDER BY created_at ASC`,
		minuteID,
	)
	if err != nil {
		return nil, fmt.Errorf("list minute files: %w", err)
	}
	defer rows.Close()

	var files []model.MinuteFile
	for rows.Next() {
		var f model.MinuteFile
		if err := rows.Scan(&f.ID, &f.MinuteID, &f.FileName, &f.StoredName, &f.SizeBytes, &f.ContentType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan minute file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *MinuteStore) DeleteFile(id int64) error {
	_, err := s.db.Exec(`DELETE FROM minute_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete minute file: %w", err)
	}
	return nil
}
