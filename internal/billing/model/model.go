// Package model holds the billing service's persisted types. Accounts
// belong to the congregation that signed up, not to an individual user;
// one account carries at most one live subscription and license key.
package model

import "time"

type Account struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	CongregationName string    `json:"congregation_name"`
	StripeCustomerID *string   `json:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Subscription struct {
	ID                   int64      `json:"id"`
	AccountID            int64      `json:"account_id"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
	Plan                 string     `json:"plan"`
	Status               string     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// LicenseKey is what a deployment presents to unlock its plan.
// ChurchLimit is frozen at issue time from the plan catalog; a catalog
// change only affects keys issued afterwards.
type LicenseKey struct {
	ID             int64      `json:"id"`
	AccountID      int64      `json:"account_id"`
	SubscriptionID int64      `json:"subscription_id"`
	Key            string     `json:"key"`
	Plan           string     `json:"plan"`
	Features       string     `json:"features"`
	ChurchLimit    int        `json:"church_limit"`
	ActivatedAt    *time.Time `json:"activated_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	AccountID int64     `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type WaitlistEntry struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Plan             string    `json:"plan"`
	CongregationName string    `json:"congregation_name"`
	CreatedAt        time.Time `json:"created_at"`
}
