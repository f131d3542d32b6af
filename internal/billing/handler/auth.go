package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ebenavides/ekklesia/internal/billing/store"
	"github.com/ebenavides/ekklesia/internal/email"
)

const sessionCookieName = "billing_session"

type AuthHandler struct {
	accounts *store.AccountStore
	sessions *store.SessionStore
	mailer   *email.Client
	baseURL  string
	logger   *slog.Logger
}

func NewAuthHandler(accounts *store.AccountStore, sessions *store.SessionStore, mailer *email.Client, baseURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		mailer:   mailer,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Login mails a magic link. The response is the same whether or not the
// email had an account, so the endpoint cannot be used for enumeration.
// A congregation name on the first login names the new account.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email            string `json:"email"`
		CongregationName string `json:"congregation_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	account, err := h.accounts.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("look up account", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to process request")
		return
	}
	if account == nil {
		account, err = h.accounts.Create(req.Email, strings.TrimSpace(req.CongregationName))
		if err != nil {
			h.logger.Error("create account", "error", err)
			writeError(w, http.StatusInternalServerError, "unable to process request")
			return
		}
	}

	sess, err := h.sessions.Create(account.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to process request")
		return
	}

	if h.mailer != nil && h.mailer.Configured() {
		if err := h.mailer.SendLoginLink(account.Email, sess.Token); err != nil {
			h.logger.Error("send login link", "error", err)
		}
	} else {
		h.logger.Info("login link issued without mailer", "email", account.Email, "token", sess.Token)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Verify turns a magic-link token into the session cookie and sends the
// browser to the account dashboard.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "invalid or expired link")
		return
	}

	sess, err := h.sessions.GetByToken(token)
	if err != nil || sess == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired link")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(store.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.baseURL+"/account", http.StatusSeeOther)
}

// Logout drops the session row and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(cookie.Value); err == nil && sess != nil {
			h.sessions.Delete(sess.ID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
