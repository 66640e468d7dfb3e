package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// Gate returns middleware that keeps signed-out browsers away from the
// protected areas of the site.
//
// A request whose path is one of prefixes, or lies under one of them, must
// carry a non-empty session cookie; otherwise the browser is redirected to
// loginPath with the original path in the "next" query parameter. The
// check is presence only. Signature and expiry are the business of the
// endpoints that act on the token, so an invalid cookie passes the gate.
func Gate(prefixes []string, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProtected(r.URL.Path, prefixes) {
				if _, ok := SessionToken(r); !ok {
					http.Redirect(w, r, LoginRedirect(loginPath, r.URL.Path), http.StatusTemporaryRedirect)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRedirect builds the login URL carrying the return-to path.
func LoginRedirect(loginPath, returnTo string) string {
	return loginPath + "?" + url.Values{"next": {returnTo}}.Encode()
}

// isProtected matches whole path segments: "/app" protects "/app" and
// "/app/x" but not "/apples".
func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// ErrNoBearerToken is returned when a request carries no usable
// Authorization header.
var ErrNoBearerToken = errors.New("auth: bearer token required")

// BearerToken extracts the token from "Authorization: Bearer <token>".
// Mutation endpoints take their identity only from this token, never from a
// user ID supplied in the body or query.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoBearerToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoBearerToken
	}
	return token, nil
}
