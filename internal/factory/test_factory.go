package factory

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/mocks"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/metrics"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/markers"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/memory"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// TestOption adjusts the Config a TestApp is built with
type TestOption func(*Config)

// WithRequireSession makes the real-time endpoint demand a session
func WithRequireSession() TestOption {
	return func(c *Config) { c.RequireSession = true }
}

// WithAdminToken enables the admin routes
func WithAdminToken(token string) TestOption {
	return func(c *Config) { c.AdminToken = token }
}

// WithLogger replaces the discarding test logger
func WithLogger(logger *slog.Logger) TestOption {
	return func(c *Config) { c.Logger = logger }
}

// NewTestApp creates an App on memory storage with a mock clock set to
// 2024-01-01 12:00 UTC. Rate limiting is off and bcrypt runs at minimum
// cost.
func NewTestApp(opts ...TestOption) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	cfg := Config{
		Logger:       testutil.NopLogger(),
		AuthConfig:   authCfg,
		MarkerConfig: markers.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mockRandom := mocks.NewMockRandom()
	app := newWithDependencies(store, mockClock, mockRandom, metrics.New(), cfg, cfg.Logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
