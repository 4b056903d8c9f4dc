// Package http provides the JSON API handlers and routing of the site CMS.
package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/middleware"
	"github.com/atinyakov/ukarch-cms/internal/models"
	"github.com/atinyakov/ukarch-cms/internal/service"
)

// AuthService defines the session operations required by the handlers.
type AuthService interface {
	// Login verifies credentials and opens a session.
	Login(ctx context.Context, identifier, password string) (*service.LoginResult, error)
	// Logout destroys the session behind token, if any.
	Logout(ctx context.Context, token string) error
	// Check resolves token to a principal; nil means not authenticated.
	Check(ctx context.Context, token string) (*models.Principal, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	ChangeProfile(ctx context.Context, userID int64, username, email string) (*models.PublicUser, error)
}

// ResetService defines the forgot-password operations.
type ResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth    AuthService
	Reset   ResetService
	Cookies CookieConfig
	Log     *zap.Logger
}

// LoginRequest is the body of POST /api/auth/login. Username may also be an email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ChangeProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

const forgotPasswordMessage = "if the email exists, a password reset link has been sent"

// Login handles POST /api/auth/login and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, h.Log, apperr.ErrBadRequest)
		return
	}

	res, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Cookies.set(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": res.User})
}

// Logout handles POST /api/auth/logout. It succeeds without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context(), sessionToken(r)); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.Cookies.clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Check handles GET /api/auth/check.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	p, err := h.Auth.Check(r.Context(), sessionToken(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": p.User})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		writeError(w, h.Log, apperr.ErrUnauthorized)
		return
	}
	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, h.Log, apperr.ErrBadRequest)
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), p.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password changed"})
}

// ChangeProfile handles POST /api/auth/change-profile.
func (h *AuthHandler) ChangeProfile(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		writeError(w, h.Log, apperr.ErrUnauthorized)
		return
	}
	var req ChangeProfileRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Email == "" {
		writeError(w, h.Log, apperr.ErrBadRequest)
		return
	}

	u, err := h.Auth.ChangeProfile(r.Context(), p.User.ID, req.Username, req.Email)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "profile updated", "user": u})
}

// ForgotPassword handles POST /api/auth/forgot-password. The response does
// not reveal whether the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Reset.RequestReset(r.Context(), req.Email); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": forgotPasswordMessage})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Reset.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password changed"})
}
