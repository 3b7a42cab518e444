package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"admithub/internal/cache"
	"admithub/internal/contextutils"
	"admithub/internal/models"
	"admithub/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthConfig holds authentication middleware configuration
type AuthConfig struct {
	JWTSecret   string        `json:"jwt_secret"`
	SessionName string        `json:"session_name"`

	CacheUserData bool          `json:"cache_user_data"`
	UserCacheTTL  time.Duration `json:"user_cache_ttl"`

	LogFailedAuth bool `json:"log_failed_auth"`
}

// DefaultAuthConfig returns production-ready authentication configuration
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		SessionName:   "admithub_session",
		CacheUserData: true,
		UserCacheTTL:  15 * time.Minute,
		LogFailedAuth: true,
	}
}

// AuthResult represents the result of authentication
type AuthResult struct {
	Authenticated bool
	User          *models.User
	SessionID     string
	TokenType     string
	ExpiresAt     time.Time
	Error         string
}

// AuthContext holds authentication context for requests
type AuthContext struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	SessionID  string    `json:"session_id"`
	AuthMethod string    `json:"auth_method"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsAdmin reports whether the authenticated user holds an admin role
func (ac *AuthContext) IsAdmin() bool {
	return ac.Role == models.RoleAdmin || ac.Role == models.RoleSuperAdmin
}

// AuthMiddleware provides JWT and session authentication
type AuthMiddleware struct {
	config      *AuthConfig
	cache       cache.Cache
	sessionRepo repositories.SessionRepository
	userRepo    repositories.UserRepository
	logger      *zap.Logger
}

// NewAuthMiddleware creates authentication middleware
func NewAuthMiddleware(
	config *AuthConfig,
	cache cache.Cache,
	sessionRepo repositories.SessionRepository,
	userRepo repositories.UserRepository,
	logger *zap.Logger,
) (*AuthMiddleware, error) {
	if config == nil {
		config = DefaultAuthConfig()
	}
	if config.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &AuthMiddleware{
		config:      config,
		cache:       cache,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		logger:      logger,
	}, nil
}

// ===============================
// MAIN AUTHENTICATION MIDDLEWARE
// ===============================

// Authenticate resolves the caller's identity from JWT or session token
func (am *AuthMiddleware) Authenticate(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestLogger := GetRequestLogger(ctx)

			authResult := am.authenticateRequest(r)

			if authResult.Authenticated {
				authCtx := &AuthContext{
					UserID:     authResult.User.ID,
					Email:      authResult.User.Email,
					Role:       authResult.User.Role,
					SessionID:  authResult.SessionID,
					AuthMethod: authResult.TokenType,
					ExpiresAt:  authResult.ExpiresAt,
				}

				ctx = context.WithValue(ctx, AuthContextKey, authCtx)
				ctx = context.WithValue(ctx, UserKey, authResult.User)
				ctx = contextutils.WithUserID(ctx, authResult.User.ID)

				go am.updateUserActivity(context.Background(), authResult.User.ID)

				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if required {
				if am.config.LogFailedAuth {
					requestLogger.Warn("Authentication required but failed",
						zap.String("error", authResult.Error),
						zap.String("path", r.URL.Path),
					)
				}
				am.writeAuthError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth requires authentication for the endpoint
func (am *AuthMiddleware) RequireAuth() func(http.Handler) http.Handler {
	return am.Authenticate(true)
}

// OptionalAuth provides optional authentication for the endpoint
func (am *AuthMiddleware) OptionalAuth() func(http.Handler) http.Handler {
	return am.Authenticate(false)
}

// ===============================
// AUTHORIZATION MIDDLEWARE
// ===============================

// RequireRole requires one of the given user roles
func (am *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil {
				am.writeAuthError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			hasRole := false
			for _, role := range roles {
				if authCtx.Role == role {
					hasRole = true
					break
				}
			}

			if !hasRole {
				GetRequestLogger(r.Context()).Warn("Insufficient role",
					zap.Int64("user_id", authCtx.UserID),
					zap.String("role", authCtx.Role),
					zap.Strings("required_roles", roles),
				)
				am.writeAuthError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin requires an admin or super-admin role
func (am *AuthMiddleware) RequireAdmin() func(http.Handler) http.Handler {
	return am.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
}

// RequireSuperAdmin requires the super-admin role
func (am *AuthMiddleware) RequireSuperAdmin() func(http.Handler) http.Handler {
	return am.RequireRole(models.RoleSuperAdmin)
}

// ===============================
// AUTHENTICATION METHODS
// ===============================

// authenticateRequest attempts JWT first, then session token
func (am *AuthMiddleware) authenticateRequest(r *http.Request) *AuthResult {
	if result := am.authenticateJWT(r); result.Authenticated {
		return result
	}

	if result := am.authenticateSession(r); result.Authenticated {
		return result
	}

	return &AuthResult{
		Authenticated: false,
		Error:         "No valid authentication found",
	}
}

// authenticateJWT handles bearer token authentication
func (am *AuthMiddleware) authenticateJWT(r *http.Request) *AuthResult {
	tokenString := extractBearerToken(r)
	if tokenString == "" {
		return &AuthResult{Authenticated: false, Error: "No bearer token"}
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(am.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return &AuthResult{Authenticated: false, Error: "Invalid JWT token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return &AuthResult{Authenticated: false, Error: "Invalid JWT claims"}
	}

	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return &AuthResult{Authenticated: false, Error: "Invalid user ID in JWT"}
	}
	userID := int64(userIDFloat)

	user, err := am.getUserFromCacheOrDB(r.Context(), userID)
	if err != nil || user == nil {
		return &AuthResult{Authenticated: false, Error: "User not found"}
	}
	if !user.IsActive {
		return &AuthResult{Authenticated: false, Error: "User account is inactive"}
	}

	var expiresAt time.Time
	if exp, ok := claims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(exp), 0)
	}

	return &AuthResult{
		Authenticated: true,
		User:          user,
		TokenType:     "jwt",
		ExpiresAt:     expiresAt,
	}
}

// authenticateSession handles session-based authentication via cookie
func (am *AuthMiddleware) authenticateSession(r *http.Request) *AuthResult {
	cookie, err := r.Cookie(am.config.SessionName)
	if err != nil || cookie.Value == "" {
		return &AuthResult{Authenticated: false, Error: "No session cookie"}
	}
	sessionToken := cookie.Value

	ctx := r.Context()
	session, err := am.sessionRepo.GetByToken(ctx, sessionToken)
	if err != nil {
		return &AuthResult{Authenticated: false, Error: "Session lookup failed"}
	}
	if session == nil || session.IsExpired() {
		return &AuthResult{Authenticated: false, Error: "Session expired or not found"}
	}

	user, err := am.getUserFromCacheOrDB(ctx, session.UserID)
	if err != nil || user == nil {
		return &AuthResult{Authenticated: false, Error: "User not found"}
	}
	if !user.IsActive {
		return &AuthResult{Authenticated: false, Error: "User account is inactive"}
	}

	go am.refreshSessionActivity(context.Background(), sessionToken)

	return &AuthResult{
		Authenticated: true,
		User:          user,
		SessionID:     sessionToken,
		TokenType:     "session",
		ExpiresAt:     session.ExpiresAt,
	}
}

// extractBearerToken parses the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// ===============================
// HELPER METHODS
// ===============================

// getUserFromCacheOrDB gets user from cache or database
func (am *AuthMiddleware) getUserFromCacheOrDB(ctx context.Context, userID int64) (*models.User, error) {
	cacheKey := fmt.Sprintf("user:%d", userID)

	if am.config.CacheUserData {
		if cachedUser, found := am.cache.Get(ctx, cacheKey); found {
			if user, ok := cachedUser.(*models.User); ok {
				return user, nil
			}
		}
	}

	user, err := am.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if am.config.CacheUserData && user != nil {
		if err := am.cache.Set(ctx, cacheKey, user, am.config.UserCacheTTL); err != nil {
			am.logger.Warn("Failed to cache user", zap.Error(err), zap.Int64("user_id", userID))
		}
	}

	return user, nil
}

// updateUserActivity updates the user's last seen timestamp
func (am *AuthMiddleware) updateUserActivity(ctx context.Context, userID int64) {
	if err := am.userRepo.UpdateLastSeen(ctx, userID); err != nil {
		am.logger.Warn("Failed to update user last seen", zap.Error(err), zap.Int64("user_id", userID))
	}
}

// refreshSessionActivity refreshes session activity timestamp
func (am *AuthMiddleware) refreshSessionActivity(ctx context.Context, sessionToken string) {
	if err := am.sessionRepo.Touch(ctx, sessionToken); err != nil {
		am.logger.Warn("Failed to refresh session activity", zap.Error(err))
	}
}

// writeAuthError writes authentication error response
func (am *AuthMiddleware) writeAuthError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	errType := "AUTHENTICATION_ERROR"
	if statusCode == http.StatusForbidden {
		errType = "AUTHORIZATION_ERROR"
	}

	fmt.Fprintf(w, `{"success":false,"error":{"type":"%s","message":"%s"},"timestamp":%d}`,
		errType, message, time.Now().Unix())
}

// ===============================
// CONTEXT HELPERS
// ===============================

type contextKey string

const (
	AuthContextKey contextKey = "auth_context"
	UserKey        contextKey = "user"
)

// GetAuthContext extracts auth context from request context
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) int64 {
	return contextutils.GetUserID(ctx)
}

// GetUser extracts user from request context
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}
