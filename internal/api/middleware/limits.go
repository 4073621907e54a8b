package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/apierr"
)

// RateLimitByIP limits each client address to requests per window. A
// non-positive limit disables limiting.
func RateLimitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			apierr.WriteError(w, apierr.NewRateLimitedError())
		}),
	)
}

// CORS allows browser collaborators on the listed origins. No origins means
// any origin, without credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowCredentials := len(origins) > 0
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", AdminTokenHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	})
}
