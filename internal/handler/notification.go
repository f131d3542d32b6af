package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/whatsapp"
)

type NotificationHandler struct {
	memberStore *store.MemberStore
	waClient    *whatsapp.Client
	logger      *slog.Logger
}

func NewNotificationHandler(ms *store.MemberStore, wa *whatsapp.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{memberStore: ms, waClient: wa, logger: logger}
}

type whatsappBroadcastRequest struct {
	Message    string `json:"message"`
	ChurchRole string `json:"church_role"`
}

// SendWhatsApp sends a text to every member with a phone number, optionally
// narrowed to one legacy church role. Individual failures do not abort the
// broadcast; the response reports sent and failed counts.
func (h *NotificationHandler) SendWhatsApp(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	if !h.waClient.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "whatsapp is not configured"})
		return
	}

	var req whatsappBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if req.ChurchRole != "" && !validChurchRoles[req.ChurchRole] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid church_role"})
		return
	}

	members, err := h.memberStore.List(scope)
	if err != nil {
		h.logger.Error("list members for broadcast", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
		return
	}

	sent, failed, skipped := 0, 0, 0
	for _, m := range members {
		if req.ChurchRole != "" && (m.ChurchRole == nil || *m.ChurchRole != req.ChurchRole) {
			continue
		}
		phone := normalizePhone(m.Phone)
		if phone == "" {
			skipped++
			continue
		}
		if _, err := h.waClient.SendText(phone, req.Message); err != nil {
			h.logger.Error("whatsapp send", "member_id", m.ID, "error", err)
			failed++
			continue
		}
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"sent":    sent,
		"failed":  failed,
		"skipped": skipped,
	})
}

// normalizePhone strips formatting characters. Returns "" when no digits
// remain.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
