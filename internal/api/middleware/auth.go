package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/apierr"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

// AdminTokenHeader carries the operator token for admin routes
const AdminTokenHeader = "X-Admin-Token"

// SessionVerifier resolves a session token to its user
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*auth.Identity, error)
}

// Auth rejects requests without a valid session and stores the caller's
// identity in the request context
func Auth(sessions SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r, false)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			identity, err := sessions.VerifySession(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// AdminToken guards operator routes. An empty token disables them.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				apierr.WriteError(w, apierr.NewNotFoundError("Admin routes are disabled"))
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				apierr.WriteError(w, apierr.NewForbiddenError("Invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a context carrying identity
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// GetIdentity returns the authenticated user from the request context
func GetIdentity(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityContextKey).(*auth.Identity)
	return identity
}

// MustGetIdentity returns the authenticated user or panics
func MustGetIdentity(ctx context.Context) *auth.Identity {
	identity := GetIdentity(ctx)
	if identity == nil {
		panic("no identity in context - auth middleware not applied?")
	}
	return identity
}
