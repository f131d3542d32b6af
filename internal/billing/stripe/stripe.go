// Package stripe wraps the Stripe SDK behind the few calls the billing
// service makes. Price ids are configured per plan and interval; the
// chosen plan rides checkout metadata so the webhook can issue the right
// license tier.
package stripe

import (
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/billingportal/session"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrNoPriceForPlan is returned when a plan/interval pair has no
// configured Stripe price.
var ErrNoPriceForPlan = errors.New("no stripe price configured for plan")

// PriceTable maps plan id to monthly and annual Stripe price ids. A plan
// missing here cannot be bought through checkout.
type PriceTable map[string]PlanPrices

type PlanPrices struct {
	Monthly string
	Annual  string
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	Prices        PriceTable
	SuccessURL    string
	CancelURL     string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CreateCustomer registers the congregation with Stripe and returns the
// customer id.
func (c *Client) CreateCustomer(email, congregationName string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if congregationName != "" {
		params.Name = stripe.String(congregationName)
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// PriceFor resolves the configured price for a plan and interval.
// Interval "annual" selects the yearly price; anything else is monthly.
func (c *Client) PriceFor(plan, interval string) (string, error) {
	prices, ok := c.cfg.Prices[plan]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoPriceForPlan, plan)
	}
	price := prices.Monthly
	if interval == "annual" {
		price = prices.Annual
	}
	if price == "" {
		return "", fmt.Errorf("%w: %s/%s", ErrNoPriceForPlan, plan, interval)
	}
	return price, nil
}

// CreateCheckoutSession starts a subscription checkout for a plan and
// returns the hosted page URL. The plan id is attached as metadata so
// the completion webhook knows which tier to provision.
func (c *Client) CreateCheckoutSession(customerID, plan, priceID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(c.cfg.SuccessURL),
		CancelURL:           stripe.String(c.cfg.CancelURL),
	}
	params.AddMetadata("plan", plan)

	sess, err := checksession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreateBillingPortalSession returns a portal URL where the account can
// change payment details or cancel.
func (c *Client) CreateBillingPortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// ConstructWebhookEvent verifies the signature and parses the event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
