package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ebenavides/ekklesia/internal/store"
)

// Config holds license validation configuration. ChurchCount reports how
// many congregations this deployment manages; the billing service
// compares it against the plan's limit.
type Config struct {
	ValidationURL string
	CheckInterval time.Duration
	GracePeriod   time.Duration
	ChurchCount   func() (int, error)
}

// Status represents the current license status.
type Status struct {
	Valid       bool      `json:"valid"`
	Plan        string    `json:"plan"`
	Features    []string  `json:"features"`
	ChurchLimit int       `json:"church_limit,omitempty"`
	ExpiresAt   string    `json:"expires_at,omitempty"`
	Warning     string    `json:"warning,omitempty"`
	LastChecked time.Time `json:"last_checked"`
	Offline     bool      `json:"offline"`
}

type validateRequest struct {
	Key      string `json:"key"`
	Churches int    `json:"churches"`
}

type validateResponse struct {
	Valid       bool     `json:"valid"`
	Plan        string   `json:"plan,omitempty"`
	Features    []string `json:"features,omitempty"`
	ChurchLimit int      `json:"church_limit,omitempty"`
	ExpiresAt   *string  `json:"expires_at,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// Client validates this instance's license key against the billing
// service. The key is persisted in app settings so it survives
// restarts; without a key the instance runs in free-tier mode.
type Client struct {
	mu         sync.RWMutex
	cfg        Config
	key        string
	status     Status
	settings   *store.SettingsStore
	httpClient *http.Client
	logger     *slog.Logger
	stopCh     chan struct{}
	stopped    chan struct{}
}

// NewClient creates a license client, loading any persisted key.
func NewClient(cfg Config, settings *store.SettingsStore, logger *slog.Logger) *Client {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 24 * time.Hour
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = 7 * 24 * time.Hour
	}
	if cfg.ValidationURL == "" {
		cfg.ValidationURL = "https://ekklesia.app/api/license/validate"
	}

	c := &Client{
		cfg:      cfg,
		settings: settings,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logger.With("component", "license"),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}

	if settings != nil {
		key, err := settings.Get(store.SettingLicenseKey)
		if err != nil {
			c.logger.Error("load license key", "error", err)
		}
		c.key = key
	}
	if c.key == "" {
		c.status = Status{Valid: false, Plan: "free"}
	}

	return c
}

// Validate performs an immediate validation against the billing service.
func (c *Client) Validate(ctx context.Context) error {
	c.mu.RLock()
	key := c.key
	url := c.cfg.ValidationURL
	c.mu.RUnlock()

	if key == "" {
		c.mu.Lock()
		c.status = Status{Valid: false, Plan: "free", LastChecked: time.Now()}
		c.mu.Unlock()
		return nil
	}

	churches := 1
	if c.cfg.ChurchCount != nil {
		if n, err := c.cfg.ChurchCount(); err != nil {
			c.logger.Warn("count churches for validation", "error", err)
		} else {
			churches = n
		}
	}

	body, err := json.Marshal(validateRequest{Key: key, Churches: churches})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Keep the last known status while the server is unreachable.
		c.mu.Lock()
		c.status.Offline = true
		c.status.Warning = "unable to reach license server"
		c.mu.Unlock()
		return fmt.Errorf("validate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.mu.Lock()
		c.status.Offline = true
		c.status.Warning = fmt.Sprintf("license server returned %d", resp.StatusCode)
		c.mu.Unlock()
		return fmt.Errorf("validate: status %d", resp.StatusCode)
	}

	var vr validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.mu.Lock()
	c.status = Status{
		Valid:       vr.Valid,
		Plan:        vr.Plan,
		Features:    vr.Features,
		ChurchLimit: vr.ChurchLimit,
		LastChecked: time.Now(),
	}
	if vr.ExpiresAt != nil {
		c.status.ExpiresAt = *vr.ExpiresAt
	}
	if !vr.Valid && vr.Reason != "" {
		c.status.Warning = "license " + vr.Reason
	}
	c.mu.Unlock()

	return nil
}

// HasFeature reports whether a feature is available under the current
// license, honoring the offline grace period.
func (c *Client) HasFeature(feature string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.status.Valid {
		if c.status.Offline && !c.status.LastChecked.IsZero() &&
			time.Since(c.status.LastChecked) < c.cfg.GracePeriod {
			return c.hasFeatureInList(feature)
		}
		return false
	}

	if !c.status.LastChecked.IsZero() &&
		time.Since(c.status.LastChecked) > c.cfg.GracePeriod {
		return false
	}

	return c.hasFeatureInList(feature)
}

func (c *Client) hasFeatureInList(feature string) bool {
	for _, f := range c.status.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Status returns the current cached license status.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// IsFreeTier returns true if no license key is configured.
func (c *Client) IsFreeTier() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key == ""
}

// SetKey persists a new license key and validates it immediately.
func (c *Client) SetKey(ctx context.Context, key string) error {
	c.mu.Lock()
	c.key = key
	settings := c.settings
	if key == "" {
		c.status = Status{Valid: false, Plan: "free", LastChecked: time.Now()}
	}
	c.mu.Unlock()

	if settings != nil {
		if err := settings.Set(store.SettingLicenseKey, key); err != nil {
			return fmt.Errorf("persist license key: %w", err)
		}
	}
	if key == "" {
		return nil
	}
	return c.Validate(ctx)
}

// Start begins the background validation loop.
func (c *Client) Start(ctx context.Context) {
	if err := c.Validate(ctx); err != nil {
		c.logger.Warn("initial license validation failed", "error", err)
	}

	go func() {
		defer close(c.stopped)
		ticker := time.NewTicker(c.cfg.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.Validate(ctx); err != nil {
					c.logger.Warn("license validation failed", "error", err)
				}
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the background validation loop.
func (c *Client) Stop() {
	close(c.stopCh)
	<-c.stopped
}
