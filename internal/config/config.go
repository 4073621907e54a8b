// Package config loads server configuration in three layers: built-in
// defaults, an optional YAML file, then TACMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "TACMAP_"
	// ConfigPathEnvVar names a YAML config file explicitly
	ConfigPathEnvVar = "TACMAP_CONFIG"
)

// DefaultConfigPaths are searched when TACMAP_CONFIG is unset
var DefaultConfigPaths = []string{"config.yaml", "/etc/tacmap/config.yaml"}

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the complete server configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Storage  StorageConfig  `koanf:"storage"`
	Auth     AuthConfig     `koanf:"auth"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Map      MapConfig      `koanf:"map"`
}

// ServerConfig is the REST listener
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RealtimeConfig is the websocket listener and hub
type RealtimeConfig struct {
	Host              string   `koanf:"host"`
	Port              int      `koanf:"port"`
	Path              string   `koanf:"path"`
	RequireSession    bool     `koanf:"require_session"`
	AllowedOrigins    []string `koanf:"allowed_origins"`
	SendBuffer        int      `koanf:"send_buffer"`
	MaxMessageSize    int64    `koanf:"max_message_size"`
	MessagesPerSecond float64  `koanf:"messages_per_second"`
	Burst             int      `koanf:"burst"`
}

// StorageConfig selects and connects the persistence backend
type StorageConfig struct {
	Type         string `koanf:"type"`
	RedisURL     string `koanf:"redis_url"`
	KeyPrefix    string `koanf:"key_prefix"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// AuthConfig controls sessions and two-factor enrolment
type AuthConfig struct {
	SessionDuration time.Duration `koanf:"session_duration"`
	TOTPIssuer      string        `koanf:"totp_issuer"`
	TOTPSkew        uint          `koanf:"totp_skew"`
	ReapInterval    time.Duration `koanf:"reap_interval"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
}

// SecurityConfig covers CORS, rate limits and the operator token
type SecurityConfig struct {
	CORSOrigins    []string      `koanf:"cors_origins"`
	AuthRateLimit  int           `koanf:"auth_rate_limit"`
	AuthRateWindow time.Duration `koanf:"auth_rate_window"`
	AdminToken     string        `koanf:"admin_token"`
}

// LoggingConfig selects level and format
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MapConfig is the playable map extent in map units
type MapConfig struct {
	Width  float64 `koanf:"width"`
	Height float64 `koanf:"height"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Realtime: RealtimeConfig{
			Port:              8765,
			Path:              "/",
			SendBuffer:        256,
			MaxMessageSize:    64 << 10,
			MessagesPerSecond: 20,
			Burst:             40,
		},
		Storage: StorageConfig{
			Type:      StorageMemory,
			KeyPrefix: "tacmap",
		},
		Auth: AuthConfig{
			SessionDuration: 60 * 24 * time.Hour,
			TOTPIssuer:      "Arma Reforger Tactical Map",
			TOTPSkew:        2,
			ReapInterval:    time.Hour,
		},
		Security: SecurityConfig{
			AuthRateLimit:  10,
			AuthRateWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Map: MapConfig{
			Width:  8000,
			Height: 8000,
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

// Load builds the configuration: defaults, then the YAML file if one is
// found, then environment variables. The result is validated.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps TACMAP_SECTION_SOME_KEY to section.some_key. The
// section is everything up to the first underscore.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}

var sliceConfigPaths = []string{
	"realtime.allowed_origins",
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for list settings
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	if !validPort(c.Server.Port) {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !validPort(c.Realtime.Port) {
		errs = append(errs, fmt.Errorf("realtime.port %d out of range", c.Realtime.Port))
	}
	if c.Server.Port != 0 && c.Server.Port == c.Realtime.Port && c.Server.Host == c.Realtime.Host {
		errs = append(errs, errors.New("server.port and realtime.port must differ"))
	}
	if !strings.HasPrefix(c.Realtime.Path, "/") {
		errs = append(errs, fmt.Errorf("realtime.path %q must start with /", c.Realtime.Path))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for redis storage"))
		}
	case StorageSQLite, StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for %s storage", c.Storage.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}

	if c.Auth.SessionDuration <= 0 {
		errs = append(errs, errors.New("auth.session_duration must be positive"))
	}
	if c.Auth.TOTPSkew == 0 {
		errs = append(errs, errors.New("auth.totp_skew must be at least 1 time step"))
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		errs = append(errs, errors.New("map.width and map.height must be positive"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Port 0 asks the OS for a free port.
func validPort(p int) bool {
	return p >= 0 && p <= 65535
}
