package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebenavides/ekklesia/internal/backup"
	"github.com/ebenavides/ekklesia/internal/database"
	"github.com/ebenavides/ekklesia/internal/license"
	"github.com/ebenavides/ekklesia/internal/logging"
	"github.com/ebenavides/ekklesia/internal/push"
	"github.com/ebenavides/ekklesia/internal/server"
)

func main() {
	logger := logging.Setup("ekklesia", os.Getenv("EKKLESIA_LOG_LEVEL"))

	port := envOr("EKKLESIA_PORT", "8080")
	dbPath := envOr("EKKLESIA_DB_PATH", "ekklesia.db")
	uploadDir := envOr("EKKLESIA_UPLOAD_DIR", "uploads")

	jwtSecret := os.Getenv("EKKLESIA_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("EKKLESIA_JWT_SECRET is required")
		os.Exit(1)
	}

	tokenExpiry := 24 * time.Hour
	if raw := os.Getenv("EKKLESIA_TOKEN_EXPIRY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid EKKLESIA_TOKEN_EXPIRY", "value", raw, "error", err)
			os.Exit(1)
		}
		tokenExpiry = d
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Error("create upload dir", "dir", uploadDir, "error", err)
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		JWTSecret:   jwtSecret,
		TokenExpiry: tokenExpiry,
		UploadDir:   uploadDir,

		AppBaseURL:    envOr("EKKLESIA_BASE_URL", "http://localhost:"+port),
		PostmarkToken: os.Getenv("EKKLESIA_POSTMARK_TOKEN"),
		PostmarkFrom:  os.Getenv("EKKLESIA_POSTMARK_FROM"),

		WhatsAppToken:   os.Getenv("EKKLESIA_WHATSAPP_TOKEN"),
		WhatsAppPhoneID: os.Getenv("EKKLESIA_WHATSAPP_PHONE_ID"),

		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("EKKLESIA_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("EKKLESIA_VAPID_PRIVATE_KEY"),
		},
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("EKKLESIA_S3_ENDPOINT"),
				Bucket:    os.Getenv("EKKLESIA_S3_BUCKET"),
				Region:    envOr("EKKLESIA_S3_REGION", "us-east-1"),
				AccessKey: os.Getenv("EKKLESIA_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("EKKLESIA_S3_SECRET_KEY"),
			},
			DBPath:     dbPath,
			Passphrase: os.Getenv("EKKLESIA_BACKUP_PASSPHRASE"),
		},
		License: license.Config{
			ValidationURL: os.Getenv("EKKLESIA_LICENSE_URL"),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Worker().Start(ctx)
	defer srv.Worker().Stop()

	if err := srv.Sweeper().Start(); err != nil {
		logger.Error("start sweeper", "error", err)
		os.Exit(1)
	}
	defer srv.Sweeper().Stop()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	srv.LicenseClient().Start(ctx)
	defer srv.LicenseClient().Stop()

	// Drop stale rate-limit windows so the map does not grow unbounded.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("ekklesia listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
