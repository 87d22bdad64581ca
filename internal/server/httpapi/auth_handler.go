package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contacthub/contacthub/internal/common"
	"github.com/contacthub/contacthub/internal/server/models"
	"github.com/contacthub/contacthub/internal/server/services"
)

const minPasswordLength = 6

// AuthService is the slice of the user service the auth endpoints need.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	ConfirmEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// AuthHandler serves registration, login, and the token lifecycle endpoints.
type AuthHandler struct {
	svc AuthService

	// lockoutWindow feeds the Retry-After header on throttled logins.
	lockoutWindow time.Duration
}

func NewAuthHandler(svc AuthService, lockoutWindow time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, lockoutWindow: lockoutWindow}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Verified  bool   `json:"verified"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Verified:  u.Verified,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func toTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if req.Username == "" || !looksLikeEmail(req.Email) {
		writeValidationError(w, "username and a valid email are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, "password is too short")
		return
	}

	u, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// ConfirmEmail handles GET /api/auth/confirmed_email/{token}.
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.svc.ConfirmEmail(r.Context(), token); err != nil {
		writeLinkError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "email confirmed")
}

type emailRequest struct {
	Email string `json:"email"`
}

// RequestEmail handles POST /api/auth/request_email, re-sending the
// confirmation link. The response is the same whether or not the address is
// registered.
func (h *AuthHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil || !looksLikeEmail(req.Email) {
		writeValidationError(w, "a valid email is required")
		return
	}
	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "check your email for confirmation")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrTooManyAttempts) {
			w.Header().Set("Retry-After", strconv.Itoa(int(h.lockoutWindow.Seconds())))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/token/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeValidationError(w, "refresh_token is required")
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(pair))
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeValidationError(w, "refresh_token is required")
		return
	}
	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

// ResetPassword handles POST /api/auth/reset_password, mailing the reset
// link.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil || !looksLikeEmail(req.Email) {
		writeValidationError(w, "a valid email is required")
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "check your email for the reset link")
}

type confirmResetRequest struct {
	Password string `json:"password"`
}

// ConfirmResetPassword handles POST /api/auth/confirm_reset_password/{token}.
// The new password travels in the body; the emailed link only identifies the
// reset.
func (h *AuthHandler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req confirmResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, "password is too short")
		return
	}
	if err := h.svc.ConfirmPasswordReset(r.Context(), token, req.Password); err != nil {
		writeLinkError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "password has been reset")
}

func looksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1
}
