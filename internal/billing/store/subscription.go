package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ebenavides/ekklesia/internal/billing/model"
)

type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionCols = `id, account_id, stripe_subscription_id, plan, status,
	current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.Subscription, error) {
	var sub model.Subscription
	var stripeID sql.NullString
	var periodEnd sql.NullTime
	var cancelFlag int
	err := scanner.Scan(
		&sub.ID, &sub.AccountID, &stripeID, &sub.Plan, &sub.Status,
		&periodEnd, &cancelFlag, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stripeID.Valid {
		sub.StripeSubscriptionID = &stripeID.String
	}
	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	sub.CancelAtPeriodEnd = cancelFlag != 0
	return &sub, nil
}

// Create records a new subscription for a plan, active until Stripe says
// otherwise.
func (s *SubscriptionStore) Create(accountID int64, plan string) (*model.Subscription, error) {
	result, err := s.db.Exec(
		`INSERT INTO subscriptions (account_id, plan) VALUES (?, ?)`,
		accountID, plan,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *SubscriptionStore) GetByID(id int64) (*model.Subscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionCols+` FROM subscriptions WHERE id = ?`, id)
	return s.one(row, "get subscription")
}

// GetByAccountID returns the account's newest subscription.
func (s *SubscriptionStore) GetByAccountID(accountID int64) (*model.Subscription, error) {
	row := s.db.QueryRow(
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		accountID,
	)
	return s.one(row, "get subscription by account")
}

func (s *SubscriptionStore) GetByStripeID(stripeSubID string) (*model.Subscription, error) {
	row := s.db.QueryRow(
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE stripe_subscription_id = ?`,
		stripeSubID,
	)
	return s.one(row, "get subscription by stripe id")
}

func (s *SubscriptionStore) one(row *sql.Row, op string) (*model.Subscription, error) {
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func (s *SubscriptionStore) SetStripeID(id int64, stripeSubID string) error {
	_, err := s.db.Exec(
		`UPDATE subscriptions SET stripe_subscription_id = ?, updated_at = datetime('now') WHERE id = ?`,
		stripeSubID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe subscription id: %w", err)
	}
	return nil
}

func (s *SubscriptionStore) SetStatus(id int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE subscriptions SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set subscription status: %w", err)
	}
	return nil
}

func (s *SubscriptionStore) SetPeriodEnd(id int64, periodEnd time.Time) error {
	_, err := s.db.Exec(
		`UPDATE subscriptions SET current_period_end = ?, updated_at = datetime('now') WHERE id = ?`,
		periodEnd.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set period end: %w", err)
	}
	return nil
}

// ApplyStripeState writes the fields a subscription webhook carries in
// one statement, so a partially applied event cannot leave status and
// cancel flag disagreeing.
func (s *SubscriptionStore) ApplyStripeState(id int64, status string, cancelAtPeriodEnd bool) error {
	flag := 0
	if cancelAtPeriodEnd {
		flag = 1
	}
	_, err := s.db.Exec(
		`UPDATE subscriptions SET status = ?, cancel_at_period_end = ?, updated_at = datetime('now') WHERE id = ?`,
		status, flag, id,
	)
	if err != nil {
		return fmt.Errorf("apply stripe state: %w", err)
	}
	return nil
}

func (s *SubscriptionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}
