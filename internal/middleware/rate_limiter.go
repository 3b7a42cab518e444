package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"admithub/internal/cache"

	"go.uber.org/zap"
)

// RateLimiterConfig holds rate limiting configuration
type RateLimiterConfig struct {
	Enabled           bool   `json:"enabled"`
	FailureMode       string `json:"failure_mode"` // "allow" or "deny" on cache failures
	HeadersEnabled    bool   `json:"headers_enabled"`
	TrustForwardedFor bool   `json:"trust_forwarded_for"`

	DefaultIPLimit   int           `json:"default_ip_limit"`
	DefaultUserLimit int           `json:"default_user_limit"`
	DefaultWindow    time.Duration `json:"default_window"`

	EndpointLimits map[string]*EndpointLimit `json:"endpoint_limits"`

	WhitelistedIPs []string `json:"whitelisted_ips"`
}

// EndpointLimit defines rate limits for specific endpoints
type EndpointLimit struct {
	Method string        `json:"method"`
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

// DefaultRateLimiterConfig returns production-ready rate limiting configuration
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Enabled:           true,
		FailureMode:       "allow",
		HeadersEnabled:    true,
		TrustForwardedFor: true,
		DefaultIPLimit:    1000,
		DefaultUserLimit:  5000,
		DefaultWindow:     1 * time.Hour,
		EndpointLimits: map[string]*EndpointLimit{
			// Credential endpoints are more restrictive
			"/api/v1/auth/login": {
				Method: http.MethodPost,
				Limit:  10,
				Window: 15 * time.Minute,
			},
			"/api/v1/auth/register": {
				Method: http.MethodPost,
				Limit:  5,
				Window: 15 * time.Minute,
			},
			"/api/v1/applications/video": {
				Method: http.MethodPost,
				Limit:  20,
				Window: 1 * time.Hour,
			},
		},
		WhitelistedIPs: []string{"127.0.0.1", "::1"},
	}
}

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
	LimitKey   string
}

// RateLimiter provides cache-backed request rate limiting
type RateLimiter struct {
	cache  cache.Cache
	config *RateLimiterConfig
	logger *zap.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cache cache.Cache, config *RateLimiterConfig, logger *zap.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	return &RateLimiter{
		cache:  cache,
		config: config,
		logger: logger,
	}
}

// RateLimit creates rate limiting middleware
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			if limiter.isWhitelisted(clientIP) {
				next.ServeHTTP(w, r)
				return
			}

			result := limiter.check(r, clientIP)

			if limiter.config.HeadersEnabled {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
			}

			if !result.Allowed {
				GetRequestLogger(r.Context()).Warn("Rate limit exceeded",
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
					zap.String("limit_key", result.LimitKey),
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"success":false,"error":{"type":"RATE_LIMIT_ERROR","message":"Rate limit exceeded"},"timestamp":%d}`,
					time.Now().Unix())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check applies the tightest limit matching the request
func (rl *RateLimiter) check(r *http.Request, clientIP string) *RateLimitResult {
	limit := rl.config.DefaultIPLimit
	window := rl.config.DefaultWindow
	key := fmt.Sprintf("ratelimit:ip:%s", clientIP)

	// Authenticated users are limited per user, not per IP
	if userID := GetUserID(r.Context()); userID != 0 {
		limit = rl.config.DefaultUserLimit
		key = fmt.Sprintf("ratelimit:user:%d", userID)
	}

	// Endpoint-specific limits win over defaults
	if endpointLimit, ok := rl.config.EndpointLimits[r.URL.Path]; ok && endpointLimit.Method == r.Method {
		limit = endpointLimit.Limit
		window = endpointLimit.Window
		key = fmt.Sprintf("ratelimit:endpoint:%s:%s:%s", r.Method, r.URL.Path, clientIP)
	}

	return rl.consume(r, key, limit, window)
}

// consume increments the fixed-window counter for key
func (rl *RateLimiter) consume(r *http.Request, key string, limit int, window time.Duration) *RateLimitResult {
	ctx := r.Context()
	windowStart := time.Now().Truncate(window)
	windowKey := fmt.Sprintf("%s:%d", key, windowStart.Unix())
	resetTime := windowStart.Add(window)

	count, err := rl.cache.Increment(ctx, windowKey, 1)
	if err != nil {
		rl.logger.Warn("Rate limit cache failure",
			zap.Error(err),
			zap.String("key", windowKey),
		)
		// Cache down: fail open or closed per config
		allowed := rl.config.FailureMode != "deny"
		return &RateLimitResult{Allowed: allowed, Limit: limit, Remaining: 0, ResetTime: resetTime, LimitKey: key}
	}

	if count == 1 {
		if err := rl.cache.SetTTL(ctx, windowKey, window); err != nil {
			rl.logger.Warn("Failed to set rate limit TTL", zap.Error(err), zap.String("key", windowKey))
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		ResetTime:  resetTime,
		RetryAfter: time.Until(resetTime),
		LimitKey:   key,
	}
}

func (rl *RateLimiter) isWhitelisted(ip string) bool {
	for _, whitelisted := range rl.config.WhitelistedIPs {
		if ip == whitelisted {
			return true
		}
	}
	return false
}
