package auth

import (
	"net/http"
	"time"

	"github.com/whynot-innovations/portal/internal/apperror"
)

// SessionCookieName is the cookie that marks a browser as signed in.
const SessionCookieName = "wn_session"

// SessionMaxAge is how long the browser keeps the session cookie.
const SessionMaxAge = 7 * 24 * time.Hour

// SetSession stores the raw ID token in the session cookie.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: scripts cannot read the token
//   - Secure: HTTPS only (disabled in local development)
//   - SameSite=Lax: sent on top-level navigation, not on cross-site POSTs
//   - Path=/: the whole site sees it
//
// The cookie's presence is all the route gate checks. Its value is never
// trusted for a mutation; endpoints verify the bearer token themselves.
func SetSession(w http.ResponseWriter, token string, secure bool) error {
	if token == "" {
		return apperror.ValidationFailed("idToken", "ID token is required")
	}
	http.SetCookie(w, sessionCookie(token, int(SessionMaxAge.Seconds()), secure))
	return nil
}

// ClearSession overwrites the session cookie with an empty, already-expired
// value. It always succeeds, signed in or not.
func ClearSession(w http.ResponseWriter, secure bool) {
	// net/http writes "Max-Age=0" for any negative MaxAge.
	http.SetCookie(w, sessionCookie("", -1, secure))
}

// SessionToken returns the session cookie's value if one is present.
func SessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func sessionCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
