package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ebenavides/ekklesia/internal/auth"
	"github.com/ebenavides/ekklesia/internal/email"
	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

type UserHandler struct {
	userStore   *store.UserStore
	churchStore *store.ChurchStore
	emailClient *email.Client
	logger      *slog.Logger
}

func NewUserHandler(us *store.UserStore, cs *store.ChurchStore, ec *email.Client, logger *slog.Logger) *UserHandler {
	return &UserHandler{userStore: us, churchStore: cs, emailClient: ec, logger: logger}
}

type userRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Active   *bool  `json:"active"`
	ChurchID *int64 `json:"church_id"`
}

// resolveRole maps the request role name and checks the caller may grant
// it. Only cross-tenant accounts can mint other cross-tenant accounts.
func resolveRole(w http.ResponseWriter, ac auth.AuthContext, name string) (auth.Role, bool) {
	role, ok := auth.RoleByName(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return auth.Role{}, false
	}
	if role.CrossTenant && !ac.Role.CrossTenant {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot grant this role"})
		return auth.Role{}, false
	}
	return role, true
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and name are required"})
		return
	}
	if len(req.Password) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	role, ok := resolveRole(w, ac, req.Role)
	if !ok {
		return
	}

	var churchID *int64
	if !role.CrossTenant {
		id := targetChurch(ac, req.ChurchID)
		if id == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
			return
		}
		churchID = &id
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	user, err := h.userStore.Create(req.Email, string(hash), req.Name, role.ID, churchID)
	if err != nil {
		if err == store.ErrDuplicateEmail {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		h.logger.Error("create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	// Welcome email is best effort; account creation already succeeded.
	if churchID != nil && h.emailClient.Configured() {
		if church, err := h.churchStore.GetByID(*churchID); err == nil && church != nil {
			if err := h.emailClient.SendWelcome(user.Email, user.Name, church.Name); err != nil {
				h.logger.Error("send welcome email", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	users, err := h.userStore.List(scope)
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
		return
	}
	if users == nil {
		users = []model.User{}
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	user, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and name are required"})
		return
	}

	role, ok := resolveRole(w, ac, req.Role)
	if !ok {
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}
	// An account cannot deactivate itself.
	if existing.ID == ac.UserID && !active {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot deactivate your own account"})
		return
	}

	user, err := h.userStore.Update(existing.ID, req.Email, req.Name, role.ID, active)
	if err != nil {
		if err == store.ErrDuplicateEmail {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		h.logger.Error("update user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update account"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, scope := principal(r)

	user, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	if user.ID == ac.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot delete your own account"})
		return
	}

	if err := h.userStore.Delete(user.ID); err != nil {
		h.logger.Error("delete user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete account"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword sets a new password on another account in the caller's
// church, for when a user is locked out and email reset is not an option.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	user, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
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

// fetch loads the user in the path. Cross-tenant accounts are visible only
// to other cross-tenant accounts.
func (h *UserHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.User, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	user, err := h.userStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get account"})
		return nil, false
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return nil, false
	}
	if user.ChurchID == nil {
		if !scope.IsUnrestricted() {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return nil, false
		}
	} else if !scope.Allows(*user.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return user, true
}
