// Package store persists the billing service's accounts, subscriptions,
// license keys, sessions and waitlist in its own SQLite database,
// separate from any congregation's application data.
package store

import (
	"database/sql"
	"fmt"

	"github.com/ebenavides/ekklesia/internal/billing/model"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountCols = `id, email, congregation_name, stripe_customer_id, created_at, updated_at`

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	var customerID sql.NullString
	err := scanner.Scan(&a.ID, &a.Email, &a.CongregationName, &customerID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		a.StripeCustomerID = &customerID.String
	}
	return &a, nil
}

func (s *AccountStore) Create(email, congregationName string) (*model.Account, error) {
	result, err := s.db.Exec(
		`INSERT INTO accounts (email, congregation_name) VALUES (?, ?)`,
		email, congregationName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetOrCreateByEmail returns the account for an email, creating an empty
// one on first contact. Both the login flow and the checkout webhook go
// through here, so whichever happens first owns the row.
func (s *AccountStore) GetOrCreateByEmail(email string) (*model.Account, error) {
	a, err := s.GetByEmail(email)
	if err != nil || a != nil {
		return a, err
	}
	return s.Create(email, "")
}

func (s *AccountStore) GetByID(id int64) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(email string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (s *AccountStore) UpdateCongregationName(id int64, name string) error {
	_, err := s.db.Exec(
		`UPDATE accounts SET congregation_name = ?, updated_at = datetime('now') WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("update congregation name: %w", err)
	}
	return nil
}

func (s *AccountStore) UpdateStripeCustomerID(id int64, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE accounts SET stripe_customer_id = ?, updated_at = datetime('now') WHERE id = ?`,
		customerID, id,
	)
	if err != nil {
		return fmt.Errorf("update stripe customer id: %w", err)
	}
	return nil
}

func (s *AccountStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
