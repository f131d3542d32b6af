package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ebenavides/ekklesia/internal/billing/model"
)

// renewalGrace keeps a license working past its paid period while a
// renewal invoice settles or a deployment sits offline.
const renewalGrace = 7 * 24 * time.Hour

type LicenseKeyStore struct {
	db *sql.DB
}

func NewLicenseKeyStore(db *sql.DB) *LicenseKeyStore {
	return &LicenseKeyStore{db: db}
}

const licenseKeyCols = `id, account_id, subscription_id, key, plan, features,
	church_limit, activated_at, expires_at, created_at, updated_at`

func scanLicenseKey(scanner interface{ Scan(...any) error }) (*model.LicenseKey, error) {
	var lk model.LicenseKey
	var activatedAt, expiresAt sql.NullTime
	err := scanner.Scan(
		&lk.ID, &lk.AccountID, &lk.SubscriptionID, &lk.Key, &lk.Plan,
		&lk.Features, &lk.ChurchLimit, &activatedAt, &expiresAt, &lk.CreatedAt, &lk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if activatedAt.Valid {
		lk.ActivatedAt = &activatedAt.Time
	}
	if expiresAt.Valid {
		lk.ExpiresAt = &expiresAt.Time
	}
	return &lk, nil
}

const keyAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// newKey builds an EK-XXXX-XXXX-XXXX-XXXX key from an alphabet without
// the characters support calls confuse (0/O, 1/I/L).
func newKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	var b strings.Builder
	b.WriteString("EK")
	for i, c := range raw {
		if i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(keyAlphabet[int(c)%len(keyAlphabet)])
	}
	return b.String(), nil
}

// Issue creates a license key for a subscription, snapshotting the plan's
// feature set and church limit.
func (s *LicenseKeyStore) Issue(accountID, subscriptionID int64, plan model.Plan) (*model.LicenseKey, error) {
	key, err := newKey()
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO license_keys (account_id, subscription_id, key, plan, features, church_limit)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		accountID, subscriptionID, key, plan.ID, plan.FeatureList(), plan.ChurchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("insert license key: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LicenseKeyStore) GetByID(id int64) (*model.LicenseKey, error) {
	row := s.db.QueryRow(`SELECT `+licenseKeyCols+` FROM license_keys WHERE id = ?`, id)
	return s.one(row, "get license key")
}

func (s *LicenseKeyStore) GetByKey(key string) (*model.LicenseKey, error) {
	row := s.db.QueryRow(`SELECT `+licenseKeyCols+` FROM license_keys WHERE key = ?`, key)
	return s.one(row, "get license key by key")
}

func (s *LicenseKeyStore) GetBySubscriptionID(subscriptionID int64) (*model.LicenseKey, error) {
	row := s.db.QueryRow(
		`SELECT `+licenseKeyCols+` FROM license_keys WHERE subscription_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		subscriptionID,
	)
	return s.one(row, "get license key by subscription")
}

func (s *LicenseKeyStore) one(row *sql.Row, op string) (*model.LicenseKey, error) {
	lk, err := scanLicenseKey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lk, nil
}

// MarkActivated stamps the first successful validation. Later validations
// leave the original timestamp alone.
func (s *LicenseKeyStore) MarkActivated(id int64) error {
	_, err := s.db.Exec(
		`UPDATE license_keys SET activated_at = datetime('now'), updated_at = datetime('now')
		 WHERE id = ? AND activated_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark license key activated: %w", err)
	}
	return nil
}

// ExtendThrough moves the expiry to the paid period's end plus the
// renewal grace.
func (s *LicenseKeyStore) ExtendThrough(id int64, periodEnd time.Time) error {
	_, err := s.db.Exec(
		`UPDATE license_keys SET expires_at = ?, updated_at = datetime('now') WHERE id = ?`,
		periodEnd.UTC().Add(renewalGrace), id,
	)
	if err != nil {
		return fmt.Errorf("extend license key: %w", err)
	}
	return nil
}

// RevokeAt hard-stops the key at the given time, grace included or not as
// the caller decides.
func (s *LicenseKeyStore) RevokeAt(id int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE license_keys SET expires_at = ?, updated_at = datetime('now') WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("revoke license key: %w", err)
	}
	return nil
}

func (s *LicenseKeyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM license_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete license key: %w", err)
	}
	return nil
}
