// Package server wires the billing service's stores, Stripe client and
// handlers into one router. It runs as its own process against its own
// database; deployments only ever talk to it through the license
// validation endpoint.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ebenavides/ekklesia/internal/billing/handler"
	"github.com/ebenavides/ekklesia/internal/billing/middleware"
	"github.com/ebenavides/ekklesia/internal/billing/store"
	billingstripe "github.com/ebenavides/ekklesia/internal/billing/stripe"
	"github.com/ebenavides/ekklesia/internal/email"
	sharedmw "github.com/ebenavides/ekklesia/internal/middleware"
)

// Rate limit policies for the unauthenticated surface. Login is the
// tightest: every call sends an email. License validation is looser
// because every deployment phones home on a timer.
var (
	loginPolicy    = sharedmw.Policy{Limit: 5, Window: time.Minute}
	signupPolicy   = sharedmw.Policy{Limit: 10, Window: time.Minute}
	validatePolicy = sharedmw.Policy{Limit: 30, Window: time.Minute}
)

type Server struct {
	db                *sql.DB
	accountStore      *store.AccountStore
	subscriptionStore *store.SubscriptionStore
	licenseKeyStore   *store.LicenseKeyStore
	sessionStore      *store.SessionStore
	waitlistStore     *store.WaitlistStore
	webhookH          *handler.WebhookHandler
	checkoutH         *handler.CheckoutHandler
	authH             *handler.AuthHandler
	accountH          *handler.AccountHandler
	waitlistH         *handler.WaitlistHandler
	licenseH          *handler.LicenseHandler
	plansH            *handler.PlansHandler
	stripeClient      *billingstripe.Client
	rateLimiter       *sharedmw.RateLimiter
	logger            *slog.Logger
}

type Config struct {
	Stripe      billingstripe.Config
	BaseURL     string
	EmailClient *email.Client
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	accountStore := store.NewAccountStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)
	licenseKeyStore := store.NewLicenseKeyStore(db)
	sessionStore := store.NewSessionStore(db)
	waitlistStore := store.NewWaitlistStore(db)

	var stripeClient *billingstripe.Client
	if cfg.Stripe.SecretKey != "" {
		stripeClient = billingstripe.NewClient(cfg.Stripe)
	}

	var webhookH *handler.WebhookHandler
	var checkoutH *handler.CheckoutHandler
	if stripeClient != nil {
		webhookH = handler.NewWebhookHandler(stripeClient, accountStore, subscriptionStore, licenseKeyStore, logger.With("component", "webhook"))
		checkoutH = handler.NewCheckoutHandler(stripeClient, accountStore, logger.With("component", "checkout"))
	}

	authH := handler.NewAuthHandler(accountStore, sessionStore, cfg.EmailClient, cfg.BaseURL, logger.With("component", "auth"))
	accountH := handler.NewAccountHandler(accountStore, subscriptionStore, licenseKeyStore, logger.With("component", "account"))
	waitlistH := handler.NewWaitlistHandler(waitlistStore, logger.With("component", "waitlist"))
	licenseH := handler.NewLicenseHandler(licenseKeyStore)
	plansH := handler.NewPlansHandler()

	return &Server{
		db:                db,
		accountStore:      accountStore,
		subscriptionStore: subscriptionStore,
		licenseKeyStore:   licenseKeyStore,
		sessionStore:      sessionStore,
		waitlistStore:     waitlistStore,
		webhookH:          webhookH,
		checkoutH:         checkoutH,
		authH:             authH,
		accountH:          accountH,
		waitlistH:         waitlistH,
		licenseH:          licenseH,
		plansH:            plansH,
		stripeClient:      stripeClient,
		rateLimiter:       sharedmw.NewRateLimiter(),
		logger:            logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *sharedmw.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthCheck)
	mux.HandleFunc("GET /plans", s.plansH.List)

	// Public auth and signup routes, rate-limited per client address
	mux.HandleFunc("POST /login", s.rateLimited(loginPolicy, s.authH.Login))
	mux.HandleFunc("GET /auth/verify", s.authH.Verify)
	mux.HandleFunc("POST /waitlist", s.rateLimited(signupPolicy, s.waitlistH.Join))
	mux.HandleFunc("POST /api/license/validate", s.rateLimited(validatePolicy, s.licenseH.Validate))

	// Stripe webhook, verified by signature rather than session
	if s.webhookH != nil {
		mux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripeWebhook)
	}

	authMw := middleware.RequireAuth(s.sessionStore)
	mux.Handle("POST /logout", authMw(http.HandlerFunc(s.authH.Logout)))
	mux.Handle("GET /account", authMw(http.HandlerFunc(s.accountH.Get)))
	mux.Handle("PUT /account", authMw(http.HandlerFunc(s.accountH.Update)))

	if s.checkoutH != nil {
		mux.Handle("POST /api/checkout", authMw(http.HandlerFunc(s.checkoutH.Start)))
		mux.Handle("POST /api/billing-portal", authMw(http.HandlerFunc(s.checkoutH.Portal)))
	}

	return sharedmw.RequestLogger(s.logger)(mux)
}

func (s *Server) rateLimited(p sharedmw.Policy, h http.HandlerFunc) http.HandlerFunc {
	rl := sharedmw.RateLimit(s.rateLimiter, sharedmw.RealIP, p)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
