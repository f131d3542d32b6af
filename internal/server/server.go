package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ebenavides/ekklesia/internal/auth"
	"github.com/ebenavides/ekklesia/internal/backup"
	"github.com/ebenavides/ekklesia/internal/email"
	"github.com/ebenavides/ekklesia/internal/handler"
	"github.com/ebenavides/ekklesia/internal/license"
	"github.com/ebenavides/ekklesia/internal/middleware"
	"github.com/ebenavides/ekklesia/internal/push"
	"github.com/ebenavides/ekklesia/internal/stats"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/whatsapp"
	ws "github.com/ebenavides/ekklesia/internal/websocket"
)

// Config carries everything the server needs beyond the open database.
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
	UploadDir   string

	AppBaseURL    string
	PostmarkToken string
	PostmarkFrom  string

	WhatsAppToken   string
	WhatsAppPhoneID string

	Push    push.Config
	Backup  backup.Config
	License license.Config
}

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authH         *handler.AuthHandler
	memberH       *handler.MemberHandler
	eventH        *handler.EventHandler
	attendanceH   *handler.AttendanceHandler
	minuteH       *handler.MinuteHandler
	positionH     *handler.PositionHandler
	scheduleH     *handler.ScheduleHandler
	churchH       *handler.ChurchHandler
	userH         *handler.UserHandler
	pushH         *handler.PushHandler
	notificationH *handler.NotificationHandler
	backupH       *handler.BackupHandler
	licenseH      *handler.LicenseHandler

	issuer      *auth.TokenIssuer
	userStore   *store.UserStore
	rateLimiter *middleware.RateLimiter
	uploadDir   string

	worker        *stats.Worker
	sweeper       *stats.Sweeper
	pushScheduler *push.Scheduler
	backupManager *backup.Manager
	licenseClient *license.Client

	logger *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiry)

	userStore := store.NewUserStore(db)
	churchStore := store.NewChurchStore(db)
	memberStore := store.NewMemberStore(db)
	eventStore := store.NewEventStore(db)
	attendanceStore := store.NewAttendanceStore(db)
	minuteStore := store.NewMinuteStore(db)
	positionStore := store.NewPositionStore(db)
	scheduleStore := store.NewScheduleStore(db)
	resetCodeStore := store.NewResetCodeStore(db)
	taskStore := store.NewRecalcTaskStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)
	pushStore := store.NewPushStore(db)

	recalc := stats.NewRecalculator(db)
	hooks := stats.NewHooks(recalc, taskStore, logger.With("component", "stats"))
	worker := stats.NewWorker(taskStore, recalc, logger.With("component", "stats_worker"))
	sweeper := stats.NewSweeper(churchStore, recalc, resetCodeStore, taskStore, logger.With("component", "sweeper"))

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.PostmarkFrom, cfg.AppBaseURL)
	waClient := whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneID, logger.With("component", "whatsapp"))

	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, settingsStore, logger)

	licenseCfg := cfg.License
	if licenseCfg.ChurchCount == nil {
		licenseCfg.ChurchCount = func() (int, error) {
			ids, err := churchStore.ListIDs()
			return len(ids), err
		}
	}
	licenseClient := license.NewClient(licenseCfg, settingsStore, logger)

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, eventStore, scheduleStore)
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push"))
	}

	return &Server{
		db:  db,
		hub: hub,

		authH:         handler.NewAuthHandler(userStore, churchStore, resetCodeStore, emailClient, issuer, logger.With("component", "auth")),
		memberH:       handler.NewMemberHandler(memberStore, positionStore, churchStore, hooks, logger.With("component", "member")),
		eventH:        handler.NewEventHandler(eventStore, memberStore, scheduleStore, churchStore, hooks, hub, logger.With("component", "event")),
		attendanceH:   handler.NewAttendanceHandler(attendanceStore, hooks, logger.With("component", "attendance")),
		minuteH:       handler.NewMinuteHandler(minuteStore, memberStore, cfg.UploadDir, logger.With("component", "minute")),
		positionH:     handler.NewPositionHandler(positionStore, memberStore, logger.With("component", "position")),
		scheduleH:     handler.NewScheduleHandler(scheduleStore, logger.With("component", "schedule")),
		churchH:       handler.NewChurchHandler(churchStore, recalc, pushSched, cfg.UploadDir, logger.With("component", "church")),
		userH:         handler.NewUserHandler(userStore, churchStore, emailClient, logger.With("component", "user")),
		pushH:         pushH,
		notificationH: handler.NewNotificationHandler(memberStore, waClient, logger.With("component", "notification")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger),
		licenseH:      handler.NewLicenseHandler(licenseClient, logger),

		issuer:      issuer,
		userStore:   userStore,
		rateLimiter: middleware.NewRateLimiter(),
		uploadDir:   cfg.UploadDir,

		worker:        worker,
		sweeper:       sweeper,
		pushScheduler: pushSched,
		backupManager: backupMgr,
		licenseClient: licenseClient,

		logger: logger,
	}
}

// Worker returns the outbox retry worker.
func (s *Server) Worker() *stats.Worker { return s.worker }

// Sweeper returns the hourly full-recompute sweeper.
func (s *Server) Sweeper() *stats.Sweeper { return s.sweeper }

// PushScheduler returns the reminder scheduler, nil when push is not
// configured.
func (s *Server) PushScheduler() *push.Scheduler { return s.pushScheduler }

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager { return s.backupManager }

// LicenseClient returns the license client.
func (s *Server) LicenseClient() *license.Client { return s.licenseClient }

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter { return s.rateLimiter }

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/password/forgot", s.rateLimited(s.authH.ForgotPassword))
	outerMux.HandleFunc("POST /api/password/reset", s.rateLimited(s.authH.ResetPassword))
	outerMux.HandleFunc("GET /healthz", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.Handler())
	outerMux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir))))

	// Everything else needs a valid token and a live account.
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(http.HandlerFunc(ws.HandleWebSocket(s.hub))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// authPolicy throttles the credential endpoints per client address.
var authPolicy = middleware.Policy{Limit: 10, Window: time.Minute}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, authPolicy)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRoles(h, auth.RolePastor, auth.RoleSecretary)
	}
	crossTenant := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRoles(h)
	}

	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me/password", s.authH.ChangePassword)

	// Members
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("GET /api/members/export", s.memberH.Export)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.HandleFunc("POST /api/members", admin(s.memberH.Create))
	mux.HandleFunc("PUT /api/members/{id}", admin(s.memberH.Update))
	mux.HandleFunc("DELETE /api/members/{id}", admin(s.memberH.Delete))

	// Events and rosters
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/calendar", s.eventH.CalendarPDF)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("GET /api/events/{id}/attendees", s.eventH.ListAttendees)
	mux.HandleFunc("POST /api/events", admin(s.eventH.Create))
	mux.HandleFunc("PUT /api/events/{id}", admin(s.eventH.Update))
	mux.HandleFunc("DELETE /api/events/{id}", admin(s.eventH.Delete))
	mux.HandleFunc("PUT /api/events/{id}/attendees", admin(s.eventH.ReplaceRoster))

	// Weekly attendance; treasurers record counts too.
	treasurer := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRoles(h, auth.RolePastor, auth.RoleSecretary, auth.RoleTreasurer)
	}
	mux.HandleFunc("GET /api/attendance", s.attendanceH.List)
	mux.HandleFunc("POST /api/attendance", treasurer(s.attendanceH.Create))
	mux.HandleFunc("PUT /api/attendance/{id}", treasurer(s.attendanceH.Update))
	mux.HandleFunc("DELETE /api/attendance/{id}", treasurer(s.attendanceH.Delete))

	// Minutes, motions, voters, files
	mux.HandleFunc("GET /api/minutes", s.minuteH.List)
	mux.HandleFunc("GET /api/minutes/{id}", s.minuteH.Get)
	mux.HandleFunc("POST /api/minutes", admin(s.minuteH.Create))
	mux.HandleFunc("PUT /api/minutes/{id}", admin(s.minuteH.Update))
	mux.HandleFunc("DELETE /api/minutes/{id}", admin(s.minuteH.Delete))
	mux.HandleFunc("POST /api/minutes/{id}/motions", admin(s.minuteH.CreateMotion))
	mux.HandleFunc("PUT /api/motions/{id}", admin(s.minuteH.UpdateMotion))
	mux.HandleFunc("DELETE /api/motions/{id}", admin(s.minuteH.DeleteMotion))
	mux.HandleFunc("GET /api/motions/{id}/voters", s.minuteH.ListVoters)
	mux.HandleFunc("PUT /api/motions/{id}/voters", admin(s.minuteH.ReplaceVoters))
	mux.HandleFunc("GET /api/minutes/{id}/files", s.minuteH.ListFiles)
	mux.HandleFunc("POST /api/minutes/{id}/files", admin(s.minuteH.UploadFile))
	mux.HandleFunc("GET /api/files/{id}", s.minuteH.DownloadFile)
	mux.HandleFunc("DELETE /api/files/{id}", admin(s.minuteH.DeleteFile))

	// Ministerial positions
	mux.HandleFunc("GET /api/positions", s.positionH.List)
	mux.HandleFunc("POST /api/positions", admin(s.positionH.Create))
	mux.HandleFunc("PUT /api/positions/{id}", admin(s.positionH.Update))
	mux.HandleFunc("DELETE /api/positions/{id}", admin(s.positionH.Delete))

	// Service schedules
	mux.HandleFunc("GET /api/schedules", s.scheduleH.List)
	mux.HandleFunc("POST /api/schedules", admin(s.scheduleH.Create))
	mux.HandleFunc("PUT /api/schedules/{id}", admin(s.scheduleH.Update))
	mux.HandleFunc("DELETE /api/schedules/{id}", admin(s.scheduleH.Delete))

	// Own church; the same handlers serve the id routes below.
	mux.HandleFunc("GET /api/church", s.churchH.Get)
	mux.HandleFunc("PUT /api/church", admin(s.churchH.Update))
	mux.HandleFunc("POST /api/church/logo", admin(s.churchH.UploadLogo))
	mux.HandleFunc("GET /api/church/stats", s.churchH.Stats)
	mux.HandleFunc("POST /api/church/recalculate", admin(s.churchH.Recalculate))

	// Cross-tenant church administration
	mux.HandleFunc("GET /api/churches", crossTenant(s.churchH.List))
	mux.HandleFunc("POST /api/churches", crossTenant(s.churchH.Create))
	mux.HandleFunc("GET /api/churches/{id}", crossTenant(s.churchH.Get))
	mux.HandleFunc("PUT /api/churches/{id}", crossTenant(s.churchH.Update))
	mux.HandleFunc("DELETE /api/churches/{id}", crossTenant(s.churchH.Delete))
	mux.HandleFunc("GET /api/churches/{id}/stats", crossTenant(s.churchH.Stats))
	mux.HandleFunc("POST /api/churches/{id}/recalculate", crossTenant(s.churchH.Recalculate))
	mux.HandleFunc("POST /api/churches/{id}/logo", crossTenant(s.churchH.UploadLogo))

	// Account administration
	pastor := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRoles(h, auth.RolePastor)
	}
	mux.HandleFunc("GET /api/users", pastor(s.userH.List))
	mux.HandleFunc("GET /api/users/{id}", pastor(s.userH.Get))
	mux.HandleFunc("POST /api/users", pastor(s.userH.Create))
	mux.HandleFunc("PUT /api/users/{id}", pastor(s.userH.Update))
	mux.HandleFunc("DELETE /api/users/{id}", pastor(s.userH.Delete))
	mux.HandleFunc("POST /api/users/{id}/password", pastor(s.userH.ResetPassword))

	// Role-targeted WhatsApp messages
	mux.HandleFunc("POST /api/notifications/role", admin(s.notificationH.SendWhatsApp))

	// Web push
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/preferences", s.pushH.GetPreferences)
		mux.HandleFunc("PUT /api/push/preferences", s.pushH.UpdatePreferences)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	// Instance administration
	mux.HandleFunc("GET /api/license", s.licenseH.Get)
	mux.HandleFunc("PUT /api/license", crossTenant(s.licenseH.Update))
	mux.HandleFunc("POST /api/backup/run", crossTenant(s.backupH.Run))
	mux.HandleFunc("GET /api/backup/runs", crossTenant(s.backupH.List))
	mux.HandleFunc("GET /api/backup/status", crossTenant(s.backupH.Status))
}
