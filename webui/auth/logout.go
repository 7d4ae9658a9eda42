// Package auth provides the optional password gate for the ADEI Explorer.
// This file contains the logout handler that clears sessions and cookies.
package auth

import (
	"net/http"
)

// LogoutHandler returns the handler for the /logout endpoint.
//
// The handler destroys the session named by the cookie, clears the cookie
// and redirects to the login page. It accepts GET for plain logout links
// and POST for forms, and is idempotent: logging out without a valid
// session still redirects cleanly.
func (m *AuthMiddleware) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		if sessionID, err := ParseSessionCookieDefault(r); err == nil {
			m.DestroySession(sessionID)
		}

		http.SetCookie(w, ClearSessionCookieDefault())

		// 302 for GET links, 303 for POST so the browser will not resubmit
		redirectCode := http.StatusFound
		if r.Method == http.MethodPost {
			redirectCode = http.StatusSeeOther
		}

		http.Redirect(w, r, LoginPath, redirectCode)
	}
}

// truncateSessionID returns a truncated session ID for safe logging.
// Shows only the first 8 characters followed by "..." for privacy.
func truncateSessionID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID + "..."
	}
	return sessionID[:8] + "..."
}
