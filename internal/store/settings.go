package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Instance-wide settings keys. Tenant data never lives here.
const (
	SettingLicenseKey      = "license_key"
	SettingBackupEnabled   = "backup_enabled"
	SettingBackupRetention = "backup_retention_days"
)

// SettingsStore is a small key/value table for instance configuration that
// has to survive restarts but does not deserve its own schema.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the stored value, or "" when the key was never set.
func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) GetAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// GetInt parses the value as an integer, falling back when unset or
// malformed.
func (s *SettingsStore) GetInt(key string, fallback int) (int, error) {
	value, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

func (s *SettingsStore) GetBool(key string, fallback bool) (bool, error) {
	value, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if value == "" {
		return fallback, nil
	}
	return value == "true" || value == "1", nil
}
