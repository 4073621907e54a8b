package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/config"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/clock"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/random"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/metrics"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/middleware"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/realtime"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/markers"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/memory"
	redisstorage "github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/redis"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/sqlstore"
)

// App contains all wired application components
type App struct {
	Storage storage.Storage
	Clock   clock.Clock
	Metrics *metrics.Metrics

	AuthService      *auth.Service
	Hub              *realtime.Hub
	MarkerController *markers.Controller
	RealtimeHandler  *realtime.Handler

	// Router serves the REST surface and /metrics
	Router http.Handler
	// RealtimeRouter serves the websocket endpoint on its own listener
	RealtimeRouter http.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger. If nil, logs are discarded.
	Logger *slog.Logger

	// StorageType is one of the config.Storage* values; empty means memory
	StorageType string
	// RedisConfig is required for redis storage
	RedisConfig *redisstorage.Config
	// SQLConfig is required for sqlite and postgres storage
	SQLConfig *sqlstore.Config

	AuthConfig   auth.Config
	HubConfig    realtime.Config
	MarkerConfig markers.Config

	RequireSession bool
	AllowedOrigins []string
	RealtimePath   string

	CORSOrigins    []string
	AuthRateLimit  int
	AuthRateWindow time.Duration
	AdminToken     string
}

// FromConfig translates loaded server configuration into factory Config
func FromConfig(c *config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:      logger,
		StorageType: c.Storage.Type,
		AuthConfig: auth.Config{
			SessionDuration: c.Auth.SessionDuration,
			TOTPIssuer:      c.Auth.TOTPIssuer,
			TOTPSkew:        c.Auth.TOTPSkew,
			BcryptCost:      c.Auth.BcryptCost,
		},
		HubConfig: realtime.Config{
			SendBuffer:        c.Realtime.SendBuffer,
			MaxMessageSize:    c.Realtime.MaxMessageSize,
			MessagesPerSecond: c.Realtime.MessagesPerSecond,
			Burst:             c.Realtime.Burst,
		},
		MarkerConfig: markers.Config{
			MapWidth:     c.Map.Width,
			MapHeight:    c.Map.Height,
			RealtimePort: c.Realtime.Port,
		},
		RequireSession: c.Realtime.RequireSession,
		AllowedOrigins: c.Realtime.AllowedOrigins,
		RealtimePath:   c.Realtime.Path,
		CORSOrigins:    c.Security.CORSOrigins,
		AuthRateLimit:  c.Security.AuthRateLimit,
		AuthRateWindow: c.Security.AuthRateWindow,
		AdminToken:     c.Security.AdminToken,
	}

	switch c.Storage.Type {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.Storage.RedisURL
		if c.Storage.KeyPrefix != "" {
			redisCfg.KeyPrefix = c.Storage.KeyPrefix
		}
		cfg.RedisConfig = &redisCfg
	case config.StorageSQLite, config.StoragePostgres:
		cfg.SQLConfig = &sqlstore.Config{
			Dialect:      sqlstore.Dialect(c.Storage.Type), // config validates the type
			DSN:          c.Storage.DSN,
			MaxOpenConns: c.Storage.MaxOpenConns,
		}
	}
	return cfg
}

// New opens storage and wires every service
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.MarkerConfig.RealtimePort == 0 {
		cfg.MarkerConfig.RealtimePort = markers.DefaultConfig().RealtimePort
	}

	return newWithDependencies(store, clock.New(), random.New(), metrics.New(), cfg, logger), nil
}

func openStorage(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageType {
	case "", config.StorageMemory:
		return memory.New(), nil
	case config.StorageRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		store, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageSQLite, config.StoragePostgres:
		if cfg.SQLConfig == nil {
			return nil, fmt.Errorf("SQLConfig required when StorageType is %s", cfg.StorageType)
		}
		store, err := sqlstore.Open(ctx, *cfg.SQLConfig, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q", cfg.StorageType)
	}
}

// newWithDependencies wires an App around the given dependencies (useful
// for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, m *metrics.Metrics, cfg Config, logger *slog.Logger) *App {
	authService := auth.New(store, clk, rnd, cfg.AuthConfig, logger)
	hub := realtime.NewHub(cfg.HubConfig, clk, m, logger)
	controller := markers.NewController(store, hub, clk, cfg.MarkerConfig, m, logger)
	hub.SetMarkerHandler(controller.HandleMarkerEvent)

	realtimeHandler := realtime.NewHandler(hub, authService, realtime.HandlerConfig{
		RequireSession: cfg.RequireSession,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:           logger,
		AuthService:      authService,
		MarkerController: controller,
		Metrics:          m,
		CORSOrigins:      cfg.CORSOrigins,
		AuthRateLimit:    cfg.AuthRateLimit,
		AuthRateWindow:   cfg.AuthRateWindow,
		AdminToken:       cfg.AdminToken,
	})

	path := cfg.RealtimePath
	if path == "" {
		path = "/"
	}
	rt := mux.NewRouter()
	rt.Use(middleware.Logging(logger.With(slog.String("listener", "realtime")), nil))
	rt.Handle(path, realtimeHandler).Methods(http.MethodGet)

	return &App{
		Storage:          store,
		Clock:            clk,
		Metrics:          m,
		AuthService:      authService,
		Hub:              hub,
		MarkerController: controller,
		RealtimeHandler:  realtimeHandler,
		Router:           router,
		RealtimeRouter:   rt,
	}
}

// Close releases storage
func (a *App) Close() error {
	return a.Storage.Close()
}
