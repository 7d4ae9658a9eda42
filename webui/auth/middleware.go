// Package auth provides the optional password gate for the ADEI Explorer.
// This file contains the auth middleware organism that composes the
// session, rate limiting, and password verification molecules.
package auth

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"adei_backend/core"
	"adei_backend/logging"
	"adei_backend/webui"
)

// Default configuration for the auth middleware.
const (
	// DefaultRateLimitAttempts is the default number of failed attempts before blocking.
	DefaultRateLimitAttempts = 5

	// DefaultRateLimitWindowMinutes is the default time window for counting attempts.
	DefaultRateLimitWindowMinutes = 1

	// DefaultRateLimitBlockMinutes is the default block duration after max attempts.
	DefaultRateLimitBlockMinutes = 5

	// DefaultSessionTTL is the default session duration.
	DefaultSessionTTL = 24 * time.Hour
)

// AuthMiddleware is an organism that guards the Explorer behind a single
// shared password. It satisfies webui.AuthProvider.
//
// Organism composition:
//   - Password hash (from password.go molecule) for credential verification
//   - webui.SessionStore for login sessions
//   - webui.RateLimiter for brute force protection
//
// The password comes from the WEBUI_PWD setting; when it is unset the
// server skips this middleware entirely.
type AuthMiddleware struct {
	passwordHash string
	sessions     *webui.SessionStore
	rateLimiter  *webui.RateLimiter
	log          *logging.Logger
	cookieConfig CookieConfig
}

// Config holds configuration options for the AuthMiddleware.
type Config struct {
	// SessionTTL is how long sessions remain valid (default: 24 hours)
	SessionTTL time.Duration

	// RateLimitAttempts is failed attempts before blocking (default: 5)
	RateLimitAttempts int

	// RateLimitWindowMinutes is the time window for counting attempts (default: 1)
	RateLimitWindowMinutes int

	// RateLimitBlockMinutes is how long to block after max attempts (default: 5)
	RateLimitBlockMinutes int

	// SecureCookies sets the Secure flag on cookies (true for HTTPS)
	SecureCookies bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SessionTTL:             DefaultSessionTTL,
		RateLimitAttempts:      DefaultRateLimitAttempts,
		RateLimitWindowMinutes: DefaultRateLimitWindowMinutes,
		RateLimitBlockMinutes:  DefaultRateLimitBlockMinutes,
		SecureCookies:          false,
	}
}

// NewAuthMiddleware creates a new AuthMiddleware with default configuration.
// The plaintext password is hashed with bcrypt and discarded.
func NewAuthMiddleware(password string, log *logging.Logger) (*AuthMiddleware, error) {
	return NewAuthMiddlewareWithConfig(password, log, DefaultConfig())
}

// NewAuthMiddlewareWithConfig creates a new AuthMiddleware with custom
// configuration for rate limits, session duration and cookie security.
func NewAuthMiddlewareWithConfig(password string, log *logging.Logger, cfg Config) (*AuthMiddleware, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logging.NewNopLogger()
	}

	sessions := webui.NewSessionStore(cfg.SessionTTL)
	rateLimiter := webui.NewRateLimiter(
		cfg.RateLimitAttempts,
		cfg.RateLimitWindowMinutes,
		cfg.RateLimitBlockMinutes,
	)

	cookieConfig := DefaultCookieConfig()
	cookieConfig.Secure = cfg.SecureCookies
	cookieConfig.MaxAge = DurationToSeconds(cfg.SessionTTL)

	return &AuthMiddleware{
		passwordHash: hash,
		sessions:     sessions,
		rateLimiter:  rateLimiter,
		log:          log.Named("auth"),
		cookieConfig: cookieConfig,
	}, nil
}

// Middleware wraps the given handler with authentication. Requests without
// a valid session receive a 401 Unauthorized response; the JSON API and
// WebSocket endpoints use this variant.
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.hasValidSession(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PageMiddleware wraps the given handler with authentication. Requests
// without a valid session are redirected to the login page; browser-facing
// routes use this variant.
func (m *AuthMiddleware) PageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.hasValidSession(r) {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hasValidSession reports whether the request carries a live session cookie.
func (m *AuthMiddleware) hasValidSession(r *http.Request) bool {
	sessionID, err := ParseSessionCookieDefault(r)
	if err != nil {
		m.log.Debugw("no session cookie", "path", r.URL.Path, "ip", getClientIP(r))
		return false
	}

	if _, err := m.sessions.Get(sessionID); err != nil {
		m.log.Debugw("invalid session", "path", r.URL.Path, "ip", getClientIP(r), "error", err.Error())
		return false
	}

	return true
}

// CheckRateLimit checks if an IP address is allowed to attempt
// authentication. When rate limited it writes a 429 Too Many Requests
// response with a Retry-After header and returns false.
func (m *AuthMiddleware) CheckRateLimit(w http.ResponseWriter, ip string) bool {
	allowed, remaining := m.rateLimiter.Allow(ip)
	if !allowed {
		m.log.Warnw("login rate limit exceeded", "ip", ip, "remaining", remaining.String())
		w.Header().Set("Retry-After", formatRetryAfter(remaining))
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return false
	}
	return true
}

// RecordFailedAttempt records a failed authentication attempt for rate limiting.
func (m *AuthMiddleware) RecordFailedAttempt(ip string) {
	m.rateLimiter.RecordAttempt(ip)
	m.log.Infow("failed authentication attempt",
		"ip", ip,
		"attempts", m.rateLimiter.GetAttemptCount(ip),
	)
}

// ResetRateLimit resets the rate limit counter for an IP after successful login.
func (m *AuthMiddleware) ResetRateLimit(ip string) {
	m.rateLimiter.Reset(ip)
}

// VerifyPassword checks if the provided password matches the stored hash.
// Returns nil if the password is correct, ErrPasswordMismatch otherwise.
func (m *AuthMiddleware) VerifyPassword(password string) error {
	return VerifyPassword(password, m.passwordHash)
}

// CreateSession creates a new authenticated session and the cookie that
// should be set on the response.
func (m *AuthMiddleware) CreateSession() (core.Session, *http.Cookie, error) {
	session, err := m.sessions.Create()
	if err != nil {
		m.log.Errorw("session creation failed", "error", err.Error())
		return core.Session{}, nil, err
	}

	cookie, err := NewSessionCookie(session.ID, m.cookieConfig)
	if err != nil {
		m.log.Errorw("session cookie creation failed", "error", err.Error())
		return core.Session{}, nil, err
	}

	m.log.Infow("session created",
		"session_id", truncateSessionID(session.ID),
		"expires_at", session.ExpiresAt,
	)

	return session, cookie, nil
}

// DestroySession removes a session and returns a cookie that clears the
// client cookie. Called during logout; non-existent sessions are a no-op.
func (m *AuthMiddleware) DestroySession(sessionID string) *http.Cookie {
	m.sessions.Delete(sessionID)
	m.log.Infow("session destroyed", "session_id", truncateSessionID(sessionID))
	return ClearSessionCookieDefault()
}

// GetSession retrieves a session by ID.
// Returns webui.ErrSessionNotFound or webui.ErrSessionExpired when invalid.
func (m *AuthMiddleware) GetSession(sessionID string) (core.Session, error) {
	return m.sessions.Get(sessionID)
}

// StartCleanup starts the background tickers that expire stale sessions
// and rate limit records. Runs until the context is cancelled.
func (m *AuthMiddleware) StartCleanup(ctx context.Context) {
	m.sessions.StartCleanupTicker(ctx, 10*time.Minute)
	m.rateLimiter.StartCleanupTicker(ctx, 5*time.Minute)
}

// SessionStore returns the underlying session store.
func (m *AuthMiddleware) SessionStore() *webui.SessionStore {
	return m.sessions
}

// RateLimiter returns the underlying rate limiter.
func (m *AuthMiddleware) RateLimiter() *webui.RateLimiter {
	return m.rateLimiter
}

// getClientIP extracts the client IP address from the request.
// Checks X-Forwarded-For and X-Real-IP headers first for proxy support.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs; use the first one
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr, stripping the port if present
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}

// formatRetryAfter formats a duration as seconds for the Retry-After header.
func formatRetryAfter(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
