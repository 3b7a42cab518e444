package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"admithub/internal/config"
	"admithub/internal/middleware"
	"admithub/internal/response"
	"admithub/internal/services"

	"go.uber.org/zap"
)

// AuthController handles authentication API endpoints
type AuthController struct {
	services        *services.ServiceCollection
	authConfig      *config.AuthConfig
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewAuthController creates a new authentication controller
func NewAuthController(
	sc *services.ServiceCollection,
	authConfig *config.AuthConfig,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *AuthController {
	return &AuthController{
		services:        sc,
		authConfig:      authConfig,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// ===============================
// AUTHENTICATION ENDPOINTS
// ===============================

// Register handles user registration - POST /api/v1/auth/register
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "register")

	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid request body", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	authResp, err := c.services.AuthService.Register(ctx, &req)
	if err != nil {
		logger.Warn("Registration failed", zap.Error(err))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("User registered",
		zap.Int64("user_id", authResp.User.ID),
		zap.String("email", authResp.User.Email),
	)

	c.setSessionCookie(w, r, authResp.SessionToken, authResp.ExpiresAt)
	c.responseBuilder.WriteCreated(w, r, authResp)
}

// Login handles user authentication - POST /api/v1/auth/login
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "login")

	var req services.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid request body", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	authResp, err := c.services.AuthService.Login(ctx, &req)
	if err != nil {
		logger.Warn("Login failed", zap.Error(err), zap.String("email", req.Email))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("User logged in", zap.Int64("user_id", authResp.User.ID))

	c.setSessionCookie(w, r, authResp.SessionToken, authResp.ExpiresAt)
	c.responseBuilder.WriteSuccess(w, r, authResp)
}

// Logout handles session termination - POST /api/v1/auth/logout
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "logout")

	sessionToken := c.getSessionToken(r)
	if sessionToken == "" {
		logger.Warn("No session token provided for logout")
		c.responseBuilder.WriteError(w, r, services.NewValidationError("no session token provided", nil))
		return
	}

	if err := c.services.AuthService.Logout(ctx, sessionToken); err != nil {
		logger.Warn("Logout failed", zap.Error(err))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.clearSessionCookie(w, r)
	logger.Info("User logged out")

	c.responseBuilder.WriteSuccess(w, r, map[string]string{"message": "Logout successful"})
}

// ===============================
// HELPER METHODS
// ===============================

func (c *AuthController) requestLogger(r *http.Request, endpoint string) *zap.Logger {
	return c.logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("endpoint", endpoint),
	)
}

// getSessionToken extracts the session token from header, cookie or form
func (c *AuthController) getSessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if cookie, err := r.Cookie(c.authConfig.SessionName); err == nil {
		return cookie.Value
	}

	return r.FormValue("session_token")
}

func (c *AuthController) setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	if token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.authConfig.SessionName,
		Value:    token,
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
		Path:     "/",
	})
}

func (c *AuthController) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.authConfig.SessionName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
		Path:     "/",
	})
}
