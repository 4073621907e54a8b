package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/handler"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/middleware"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api/response"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/metrics"
	sharedmw "github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/middleware"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/markers"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger           *slog.Logger
	AuthService      *auth.Service
	MarkerController *markers.Controller
	Metrics          *metrics.Metrics

	CORSOrigins    []string
	AuthRateLimit  int
	AuthRateWindow time.Duration
	// AdminToken enables /admin routes; empty disables them
	AdminToken string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Metrics)
	markerHandler := handler.NewMarkerHandler(cfg.MarkerController)

	authMiddleware := middleware.Auth(cfg.AuthService)
	rateLimit := middleware.RateLimitByIP(cfg.AuthRateLimit, cfg.AuthRateWindow)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(sharedmw.Logging(cfg.Logger, cfg.Metrics))

	// Credential routes, rate limited per client address
	public := api.PathPrefix("/auth").Subrouter()
	public.Use(rateLimit)
	public.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	public.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	public.HandleFunc("/recovery/verify", authHandler.VerifyRecovery).Methods(http.MethodPost)

	session := api.PathPrefix("/auth").Subrouter()
	session.Use(authMiddleware)
	session.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	session.HandleFunc("/session", authHandler.Session).Methods(http.MethodGet)
	session.HandleFunc("/totp/enable", authHandler.EnableTOTP).Methods(http.MethodPost)
	session.HandleFunc("/totp/verify", authHandler.VerifyTOTP).Methods(http.MethodPost)

	markerRoutes := api.PathPrefix("/markers").Subrouter()
	markerRoutes.Use(authMiddleware)
	markerRoutes.HandleFunc("", markerHandler.List).Methods(http.MethodGet)
	markerRoutes.HandleFunc("", markerHandler.Add).Methods(http.MethodPost)
	markerRoutes.HandleFunc("/{id}", markerHandler.Remove).Methods(http.MethodDelete)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminToken(cfg.AdminToken))
	admin.HandleFunc("/markers", markerHandler.Clear).Methods(http.MethodDelete)

	api.HandleFunc("/hub/status", markerHandler.HubStatus).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return middleware.CORS(cfg.CORSOrigins)(r)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
