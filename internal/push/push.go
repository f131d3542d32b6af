package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ebenavides/ekklesia/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// defaultTTL is how long the push service queues a message for an
// offline device when the payload does not say otherwise.
const defaultTTL = 86400

// Payload is the JSON sent to the push service. TTL rides alongside for
// the transport and is not part of the notification body.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
	TTL   int    `json:"-"`
}

// EventReminderPayload announces an event starting in the given number
// of minutes. It expires with the event: a reminder delivered after the
// start is worse than none.
func EventReminderPayload(eventID int64, title string, minutes int) Payload {
	return Payload{
		Title: "Recordatorio de evento",
		Body:  fmt.Sprintf("%s comienza en %d minutos", title, minutes),
		URL:   "/events",
		Tag:   fmt.Sprintf("event-%d", eventID),
		TTL:   minutes * 60,
	}
}

// ServicesTodayPayload is the morning digest for a day's scheduled
// services. It stops being deliverable by evening.
func ServicesTodayPayload(today []model.ServiceSchedule) Payload {
	body := fmt.Sprintf("%d servicios hoy", len(today))
	if len(today) == 1 {
		body = fmt.Sprintf("Servicio hoy: %s a las %s", today[0].Title, today[0].StartTime)
	}
	return Payload{
		Title: "Servicios de hoy",
		Body:  body,
		URL:   "/calendar",
		Tag:   "services-today",
		TTL:   43200,
	}
}

// StatsRefreshedPayload announces recalculated church counters.
func StatsRefreshedPayload() Payload {
	return Payload{
		Title: "Estadísticas actualizadas",
		Body:  "Las estadísticas de la iglesia fueron recalculadas",
		URL:   "/dashboard",
		Tag:   "stats-refreshed",
		TTL:   3600,
	}
}

// TestPayload is what the settings page's test button sends. Short
// lived, the user is looking at the screen.
func TestPayload() Payload {
	return Payload{
		Title: "Notificación de prueba",
		Body:  "¡Las notificaciones están funcionando!",
		URL:   "/settings",
		Tag:   "test",
		TTL:   300,
	}
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// Service handles sending web push notifications.
type Service struct {
	publicKey  string
	privateKey string
}

// NewService creates a new push service with VAPID keys.
func NewService(publicKey, privateKey string) *Service {
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
	}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send sends a push notification to a subscription.
func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ttl := payload.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      "mailto:noreply@ekklesia.app",
		TTL:             ttl,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())

	return publicKey, privateKey, nil
}
