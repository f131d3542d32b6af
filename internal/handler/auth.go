package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ebenavides/ekklesia/internal/auth"
	"github.com/ebenavides/ekklesia/internal/email"
	"github.com/ebenavides/ekklesia/internal/store"
)

const (
	maxCodeAttempts   = 5
	minPasswordLength = 8
)

type AuthHandler struct {
	userStore      *store.UserStore
	churchStore    *store.ChurchStore
	resetCodeStore *store.ResetCodeStore
	emailClient    *email.Client
	issuer         *auth.TokenIssuer
	logger         *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	cs *store.ChurchStore,
	rcs *store.ResetCodeStore,
	ec *email.Client,
	issuer *auth.TokenIssuer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:      us,
		churchStore:    cs,
		resetCodeStore: rcs,
		emailClient:    ec,
		issuer:         issuer,
		logger:         logger,
	}
}

type loginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// Register bootstraps a new church together with its pastor account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChurchName string `json:"church_name"`
		LoginTitle string `json:"login_title"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.ChurchName = strings.TrimSpace(req.ChurchName)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.ChurchName == "" || req.Name == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_name, name and email are required"})
		return
	}
	if len(req.Password) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	loginTitle := req.LoginTitle
	if loginTitle == "" {
		loginTitle = req.ChurchName
	}

	church, err := h.churchStore.Create(req.ChurchName, loginTitle)
	if err != nil {
		h.logger.Error("create church", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create church"})
		return
	}

	user, err := h.userStore.Create(req.Email, string(hash), req.Name, auth.RolePastor.ID, &church.ID)
	if err != nil {
		if err == store.ErrDuplicateEmail {
			// Remove the just-created church so a retry starts clean.
			h.churchStore.Delete(church.ID)
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		h.logger.Error("create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email, user.RoleID)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, loginResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	// Same response for an unknown email, a wrong password and a disabled
	// account, to prevent user enumeration.
	if user == nil || !user.Active {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email, user.RoleID)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Me returns the authenticated account and its church.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load account"})
		return
	}

	resp := map[string]any{"user": user, "role": ac.Role.Name}
	if user.ChurchID != nil {
		church, err := h.churchStore.GetByID(*user.ChurchID)
		if err == nil && church != nil {
			resp["church"] = church
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ForgotPassword emails a reset code. The response never reveals whether
// the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	defer writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the account exists, a reset code has been sent",
	})

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("forgot password lookup", "error", err)
		return
	}
	if user == nil || !user.Active {
		return
	}

	rc, err := h.resetCodeStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create reset code", "error", err)
		return
	}

	if err := h.emailClient.SendResetCode(user.Email, user.Name, rc.Code); err != nil {
		h.logger.Error("send reset code", "error", err)
	}
}

// validateResetCode checks the latest code for the user, tracking attempts
// and expiry. Returns an error message on failure, empty string on success.
func (h *AuthHandler) validateResetCode(userID int64, code string) string {
	latest, err := h.resetCodeStore.GetLatestByUser(userID)
	if err != nil {
		h.logger.Error("reset code lookup", "error", err)
		return "internal error"
	}
	if latest == nil {
		return "code has expired or already been used"
	}

	if latest.Attempts >= maxCodeAttempts {
		h.resetCodeStore.MarkUsed(latest.ID)
		return "too many incorrect attempts, request a new code"
	}

	if latest.Code != code {
		newAttempts, err := h.resetCodeStore.IncrementAttempts(latest.ID)
		if err != nil {
			h.logger.Error("increment attempts", "error", err)
		}
		if newAttempts >= maxCodeAttempts {
			h.resetCodeStore.MarkUsed(latest.ID)
			return "too many incorrect attempts, request a new code"
		}
		return "incorrect code"
	}

	if err := h.resetCodeStore.MarkUsed(latest.ID); err != nil {
		h.logger.Error("mark code used", "error", err)
		return "internal error"
	}
	return ""
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and code are required"})
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("reset password lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if user == nil {
		// Indistinguishable from a wrong code.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "incorrect code"})
		return
	}

	if msg := h.validateResetCode(user.ID, req.Code); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if err := h.userStore.SetPassword(user.ID, string(hash)); err != nil {
		h.logger.Error("set password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// ChangePassword updates the caller's own password after verifying the
// current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	user, err := h.userStore.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load account"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "current password is incorrect"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if err := h.userStore.SetPassword(user.ID, string(hash)); err != nil {
		h.logger.Error("set password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
