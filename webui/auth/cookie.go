// Package auth provides the optional password gate for the ADEI Explorer.
// This file contains the session cookie builder molecule.
package auth

import (
	"errors"
	"net/http"
	"time"
)

// Cookie configuration defaults
const (
	// DefaultCookieMaxAge is the default session duration (24 hours)
	DefaultCookieMaxAge = 24 * 60 * 60 // seconds

	// DefaultCookiePath is the path for which the cookie is valid
	DefaultCookiePath = "/"

	// SessionCookieName is the default name for session cookies
	SessionCookieName = "session_id"
)

// ErrNoCookie is returned when the requested cookie is not present in the request.
var ErrNoCookie = errors.New("cookie not found")

// ErrEmptyCookieName is returned when attempting to create a cookie with an empty name.
var ErrEmptyCookieName = errors.New("cookie name cannot be empty")

// ErrEmptySessionID is returned when attempting to create a session cookie with an empty ID.
var ErrEmptySessionID = errors.New("session ID cannot be empty")

// CookieConfig holds configuration for session cookies.
type CookieConfig struct {
	// Name is the cookie name (default: "session_id")
	Name string

	// MaxAge is the cookie lifetime in seconds (default: 24 hours)
	// Set to -1 to delete the cookie, 0 for session cookie (browser close)
	MaxAge int

	// Secure restricts the cookie to HTTPS transports
	Secure bool

	// HTTPOnly prevents JavaScript access to the cookie
	HTTPOnly bool

	// SameSite controls cross-site request behavior
	SameSite http.SameSite

	// Path restricts the cookie to a specific URL path
	Path string
}

// DefaultCookieConfig returns a CookieConfig with secure defaults:
// HTTPOnly, SameSite Strict, valid site-wide for 24 hours.
//
// Secure is false by default; enable it when serving over HTTPS.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     SessionCookieName,
		MaxAge:   DefaultCookieMaxAge,
		Secure:   false,
		HTTPOnly: true,
		SameSite: http.SameSiteStrictMode,
		Path:     DefaultCookiePath,
	}
}

// NewSessionCookie creates a session cookie carrying the given session ID,
// configured from cfg.
//
// Returns ErrEmptySessionID if sessionID is empty, ErrEmptyCookieName if
// cfg.Name is empty.
func NewSessionCookie(sessionID string, cfg CookieConfig) (*http.Cookie, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if cfg.Name == "" {
		return nil, ErrEmptyCookieName
	}

	return &http.Cookie{
		Name:     cfg.Name,
		Value:    sessionID,
		Path:     cfg.Path,
		MaxAge:   cfg.MaxAge,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}, nil
}

// ParseSessionCookie extracts the session ID from a request cookie.
//
// Returns ErrNoCookie if the cookie doesn't exist, ErrEmptyCookieName if
// name is empty.
func ParseSessionCookie(r *http.Request, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyCookieName
	}

	cookie, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNoCookie
		}
		return "", err
	}

	return cookie.Value, nil
}

// ParseSessionCookieDefault extracts the session ID using the default
// cookie name.
func ParseSessionCookieDefault(r *http.Request) (string, error) {
	return ParseSessionCookie(r, SessionCookieName)
}

// ClearSessionCookie creates a cookie that instructs the browser to delete
// the named cookie. Used during logout.
//
// Returns ErrEmptyCookieName if name is empty.
func ClearSessionCookie(name string) (*http.Cookie, error) {
	if name == "" {
		return nil, ErrEmptyCookieName
	}

	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     DefaultCookiePath,
		MaxAge:   -1, // Delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// ClearSessionCookieDefault creates a clear cookie using the default
// cookie name.
func ClearSessionCookieDefault() *http.Cookie {
	// Can't error with the default name
	cookie, _ := ClearSessionCookie(SessionCookieName)
	return cookie
}

// DurationToSeconds converts a time.Duration to cookie MaxAge seconds.
// Keeps cookie expiry aligned with the session store TTL.
func DurationToSeconds(d time.Duration) int {
	return int(d.Seconds())
}
