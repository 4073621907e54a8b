package middleware

import (
	"log/slog"
	"net/http"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/apierr"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/middleware"
)

// Recovery turns handler panics into a JSON INTERNAL_ERROR response
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
