package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
)

// Reset codes are durable single-use credentials: they survive process
// restarts and are shared across instances, unlike an in-process map.
const resetCodeTTL = 15 * time.Minute

type ResetCodeStore struct {
	db *sql.DB
}

func NewResetCodeStore(db *sql.DB) *ResetCodeStore {
	return &ResetCodeStore{db: db}
}

const resetCodeCols = `id, code, user_id, expires_at, used_at, attempts, created_at`

func scanResetCode(scanner interface{ Scan(...any) error }) (*model.ResetCode, error) {
	var rc model.ResetCode
	var usedAt sql.NullTime
	err := scanner.Scan(&rc.ID, &rc.Code, &rc.UserID, &rc.ExpiresAt, &usedAt, &rc.Attempts, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		rc.UsedAt = &usedAt.Time
	}
	return &rc, nil
}

// generateCode returns a 6-digit numeric code (100000–999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a new 6-digit code with a 15-minute expiry. Any previous
// pending codes for the same user are invalidated first.
func (s *ResetCodeStore) Create(userID int64) (*model.ResetCode, error) {
	_, err := s.db.Exec(
		`UPDATE reset_codes SET used_at = datetime('now') WHERE user_id = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous codes: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(resetCodeTTL)

	result, err := s.db.Exec(
		`INSERT INTO reset_codes (code, user_id, expires_at) VALUES (?, ?, ?)`,
		code, userID, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reset code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+resetCodeCols+` FROM reset_codes WHERE id = ?`, id)
	return scanResetCode(row)
}

// GetByUserAndCode returns the matching pending code, or nil when the code
// is wrong, expired, or already used.
func (s *ResetCodeStore) GetByUserAndCode(userID int64, code string) (*model.ResetCode, error) {
	row := s.db.QueryRow(
		`SELECT `+resetCodeCols+` FROM reset_codes
		 WHERE user_id = ? AND code = ? AND expires_at > datetime('now') AND used_at IS NULL`,
		userID, code,
	)
	rc, err := scanResetCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reset code: %w", err)
	}
	return rc, nil
}

// GetLatestByUser returns the most recent pending code for a user.
func (s *ResetCodeStore) GetLatestByUser(userID int64) (*model.ResetCode, error) {
	row := s.db.QueryRow(
		`SELECT `+resetCodeCols+` FROM reset_codes
		 WHERE user_id = ? AND expires_at > datetime('now') AND used_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
	)
	rc, err := scanResetCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest reset code: %w", err)
	}
	return rc, nil
}

// IncrementAttempts bumps the attempt count and returns the new value.
func (s *ResetCodeStore) IncrementAttempts(id int64) (int, error) {
	_, err := s.db.Exec(`UPDATE reset_codes SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}

	var attempts int
	err = s.db.QueryRow(`SELECT attempts FROM reset_codes WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

func (s *ResetCodeStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE reset_codes SET used_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reset code used: %w", err)
	}
	return nil
}

func (s *ResetCodeStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reset_codes WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired reset codes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
