package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/auth-service/internal/service"
	"github.com/utafrali/auth-service/pkg/validator"
)

// refreshCookieName is the cookie that carries the refresh token for browser
// clients. It is httpOnly; script code never sees the refresh token.
const refreshCookieName = "refreshToken"

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service       *service.AuthService
	logger        *slog.Logger
	refreshExpiry time.Duration
	secureCookies bool
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, refreshExpiry time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		service:       svc,
		logger:        logger,
		refreshExpiry: refreshExpiry,
		secureCookies: secureCookies,
	}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the JSON request body for logout and token refresh. The
// token may come from the body or from the refresh cookie, so no field is
// required here.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// --- Response types ---

// AuthResponse wraps user data with tokens.
type AuthResponse struct {
	User   any `json:"user"`
	Tokens any `json:"tokens"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}

	user, tokens, err := h.service.Register(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	writeJSON(w, http.StatusCreated, response{
		Data: AuthResponse{
			User:   user,
			Tokens: tokens,
		},
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}

	user, tokens, err := h.service.Login(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	writeJSON(w, http.StatusOK, response{
		Data: AuthResponse{
			User:   user,
			Tokens: tokens,
		},
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFromRequest(w, r)

	if err := h.service.Logout(r.Context(), token); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "logged_out"}})
}

// Refresh handles POST /api/v1/auth/refresh and GET /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFromRequest(w, r)

	user, tokens, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	writeJSON(w, http.StatusOK, response{
		Data: AuthResponse{
			User:   user,
			Tokens: tokens,
		},
	})
}

// refreshTokenFromRequest extracts the refresh token from the JSON body if
// one is present, falling back to the refresh cookie. A missing token is
// returned as "" and rejected by the service, not the transport.
func (h *AuthHandler) refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) string {
	if r.Body != nil && r.Method != http.MethodGet {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil || errors.Is(err, io.EOF) {
			if req.RefreshToken != "" {
				return req.RefreshToken
			}
		}
	}

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/v1/auth",
		MaxAge:   int(h.refreshExpiry.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
