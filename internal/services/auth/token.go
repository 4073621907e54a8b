package auth

import (
	"net/http"
	"strings"
)

// SessionCookie is the cookie name browsers carry the token in
const SessionCookie = "session"

// TokenFromRequest extracts a session token from the Authorization header
// or the session cookie. With allowQuery the ?token= parameter is also
// accepted, for websocket clients that cannot set headers.
func TokenFromRequest(r *http.Request, allowQuery bool) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}
