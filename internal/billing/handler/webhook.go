package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/ebenavides/ekklesia/internal/billing/model"
	"github.com/ebenavides/ekklesia/internal/billing/store"
	billingstripe "github.com/ebenavides/ekklesia/internal/billing/stripe"
)

// WebhookHandler provisions and maintains licenses from Stripe events.
// Checkout completion issues a key on the tier carried in the session
// metadata; later invoice and subscription events move status and expiry.
type WebhookHandler struct {
	stripe        *billingstripe.Client
	accounts      *store.AccountStore
	subscriptions *store.SubscriptionStore
	licenses      *store.LicenseKeyStore
	logger        *slog.Logger
}

func NewWebhookHandler(
	sc *billingstripe.Client,
	accounts *store.AccountStore,
	subscriptions *store.SubscriptionStore,
	licenses *store.LicenseKeyStore,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		stripe:        sc,
		accounts:      accounts,
		subscriptions: subscriptions,
		licenses:      licenses,
		logger:        logger,
	}
}

func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.stripe.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	case "invoice.paid":
		h.handleInvoicePaid(event)
	case "invoice.payment_failed":
		h.handleInvoicePaymentFailed(event)
	case "customer.subscription.updated":
		h.handleSubscriptionEvent(event, false)
	case "customer.subscription.deleted":
		h.handleSubscriptionEvent(event, true)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}

	email := sess.CustomerDetails.Email
	if email == "" {
		h.logger.Error("checkout session missing email")
		return
	}

	plan, ok := model.PlanByID(sess.Metadata["plan"])
	if !ok {
		// Sessions created before plans carried metadata default to the
		// smallest tier.
		plan, _ = model.PlanByID(model.PlanCongregation)
	}

	account, err := h.accounts.GetOrCreateByEmail(email)
	if err != nil {
		h.logger.Error("get or create account", "email", email, "error", err)
		return
	}
	if sess.Customer != nil {
		if err := h.accounts.UpdateStripeCustomerID(account.ID, sess.Customer.ID); err != nil {
			h.logger.Error("update stripe customer id", "error", err)
		}
	}

	sub, err := h.subscriptions.Create(account.ID, plan.ID)
	if err != nil {
		h.logger.Error("create subscription", "error", err)
		return
	}
	if sess.Subscription != nil {
		if err := h.subscriptions.SetStripeID(sub.ID, sess.Subscription.ID); err != nil {
			h.logger.Error("set stripe subscription id", "error", err)
		}
	}

	lk, err := h.licenses.Issue(account.ID, sub.ID, plan)
	if err != nil {
		h.logger.Error("issue license key", "error", err)
		return
	}

	h.logger.Info("checkout completed",
		"email", email, "plan", plan.ID, "license_key_id", lk.ID)
}

// subscriptionIDFromInvoice digs the stripe subscription id out of the
// invoice's parent.
func subscriptionIDFromInvoice(invoice stripe.Invoice) string {
	if invoice.Parent != nil &&
		invoice.Parent.SubscriptionDetails != nil &&
		invoice.Parent.SubscriptionDetails.Subscription != nil {
		return invoice.Parent.SubscriptionDetails.Subscription.ID
	}
	return ""
}

func (h *WebhookHandler) handleInvoicePaid(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("unmarshal invoice", "error", err)
		return
	}

	subID := subscriptionIDFromInvoice(invoice)
	if subID == "" {
		return
	}

	sub, err := h.subscriptions.GetByStripeID(subID)
	if err != nil || sub == nil {
		h.logger.Error("subscription for invoice.paid not found", "stripe_id", subID, "error", err)
		return
	}

	periodEnd := time.Unix(invoice.PeriodEnd, 0).UTC()
	if err := h.subscriptions.SetStatus(sub.ID, "active"); err != nil {
		h.logger.Error("set subscription active", "error", err)
	}
	if err := h.subscriptions.SetPeriodEnd(sub.ID, periodEnd); err != nil {
		h.logger.Error("set subscription period end", "error", err)
	}

	lk, err := h.licenses.GetBySubscriptionID(sub.ID)
	if err != nil || lk == nil {
		return
	}
	if err := h.licenses.ExtendThrough(lk.ID, periodEnd); err != nil {
		h.logger.Error("extend license key", "error", err)
	}
}

func (h *WebhookHandler) handleInvoicePaymentFailed(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("unmarshal invoice", "error", err)
		return
	}

	subID := subscriptionIDFromInvoice(invoice)
	if subID == "" {
		return
	}

	sub, err := h.subscriptions.GetByStripeID(subID)
	if err != nil || sub == nil {
		return
	}
	if err := h.subscriptions.SetStatus(sub.ID, "past_due"); err != nil {
		h.logger.Error("set subscription past_due", "error", err)
	}
}

// handleSubscriptionEvent applies updated and deleted events. Deletion
// also stops the license: at Stripe's cancel_at when given, otherwise the
// key runs out its grace from now.
func (h *WebhookHandler) handleSubscriptionEvent(event stripe.Event, deleted bool) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		h.logger.Error("unmarshal subscription", "error", err)
		return
	}

	sub, err := h.subscriptions.GetByStripeID(stripeSub.ID)
	if err != nil || sub == nil {
		return
	}

	status := string(stripeSub.Status)
	if deleted {
		status = "canceled"
	}
	if err := h.subscriptions.ApplyStripeState(sub.ID, status, stripeSub.CancelAtPeriodEnd); err != nil {
		h.logger.Error("apply subscription state", "status", status, "error", err)
	}
	if !deleted {
		return
	}

	lk, err := h.licenses.GetBySubscriptionID(sub.ID)
	if err != nil || lk == nil {
		return
	}
	if stripeSub.CancelAt > 0 {
		err = h.licenses.RevokeAt(lk.ID, time.Unix(stripeSub.CancelAt, 0))
	} else {
		err = h.licenses.ExtendThrough(lk.ID, time.Now())
	}
	if err != nil {
		h.logger.Error("stop license key on cancel", "error", err)
	}
}
