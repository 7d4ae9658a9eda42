// Package auth provides the optional password gate for the ADEI Explorer.
// This file contains the login handler covering both GET (render form)
// and POST (authenticate) requests for the /login endpoint.
package auth

import (
	"net/http"
	"net/url"
	"time"

	"adei_backend/webui"
)

// Login handler configuration
const (
	// FailedLoginDelay is the delay added after a failed login attempt
	// to slow down brute force attacks and blunt timing measurements.
	FailedLoginDelay = 1 * time.Second

	// SuccessRedirect is the path to redirect to after successful login.
	SuccessRedirect = "/"

	// LoginPath is the path for the login page.
	LoginPath = "/login"
)

// LoginHandler returns the handler for the /login endpoint.
//
// GET renders the login form, showing the error named in the query
// parameter if present. POST authenticates:
//  1. Checks the rate limit for the client IP
//  2. Verifies the submitted password against the stored hash
//  3. On success: creates a session, sets the cookie, redirects to the app
//  4. On failure: sleeps FailedLoginDelay, records the attempt, redirects
//     back with an error
func (m *AuthMiddleware) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			m.handleLoginGET(w, r)
		case http.MethodPost:
			m.handleLoginPOST(w, r)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleLoginGET renders the login form page.
func (m *AuthMiddleware) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	// Already logged in users go straight to the app
	if sessionID, err := ParseSessionCookieDefault(r); err == nil {
		if _, err := m.GetSession(sessionID); err == nil {
			http.Redirect(w, r, SuccessRedirect, http.StatusFound)
			return
		}
	}

	webui.HandleLoginPage(w, r)
}

// handleLoginPOST handles the form submission for authentication.
func (m *AuthMiddleware) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)

	if !m.CheckRateLimit(w, clientIP) {
		// 429 already sent
		return
	}

	if err := r.ParseForm(); err != nil {
		m.log.Debugw("login form parse failed", "ip", clientIP, "error", err.Error())
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	password := r.FormValue("password")
	if password == "" {
		time.Sleep(FailedLoginDelay)
		redirectWithError(w, r, "Password is required")
		return
	}

	if err := m.VerifyPassword(password); err != nil {
		m.RecordFailedAttempt(clientIP)
		m.log.Infow("authentication failed", "ip", clientIP)

		// Slow down brute force attempts
		time.Sleep(FailedLoginDelay)

		redirectWithError(w, r, "Invalid password")
		return
	}

	_, cookie, err := m.CreateSession()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	m.ResetRateLimit(clientIP)
	http.SetCookie(w, cookie)

	m.log.Infow("authentication successful", "ip", clientIP)

	// 303 See Other prevents form resubmission on refresh
	http.Redirect(w, r, SuccessRedirect, http.StatusSeeOther)
}

// redirectWithError redirects to the login page with an error message
// passed as a query parameter for the form to display.
func redirectWithError(w http.ResponseWriter, r *http.Request, errMsg string) {
	http.Redirect(w, r, LoginPath+"?error="+url.QueryEscape(errMsg), http.StatusSeeOther)
}
