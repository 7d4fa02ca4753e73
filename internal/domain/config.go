package domain

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Auth settings
	Auth AuthConfig `json:"auth"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// AuthConfig holds token and login settings.
type AuthConfig struct {
	// JWTSecret signs access tokens. Required; startup fails without it.
	JWTSecret string `json:"-"`

	// AccessTokenTTL bounds token lifetime.
	AccessTokenTTL time.Duration `json:"accessTokenTTL"`

	// MaxLoginAttempts per LoginWindow before login is refused.
	MaxLoginAttempts int           `json:"maxLoginAttempts"`
	LoginWindow      time.Duration `json:"loginWindow"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the baseline configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:              "postgres",
			MaxConnectAttempts:  3,
			ConnectRetryBackoff: 5 * time.Second,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Auth: AuthConfig{
			AccessTokenTTL:   time.Hour,
			MaxLoginAttempts: 10,
			LoginWindow:      15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "mealplanner",
		},
	}
}

// FromEnv builds a configuration from defaults overlaid with process
// environment. Secrets have no defaults: a missing JWT_SECRET_KEY is a
// startup error, never an empty credential.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisAddr = v
		cfg.Cache.RedisPassword = os.Getenv("REDIS_PASSWORD")
		cfg.Cache.EnableTwoPhase = true
		cfg.Cache.LocalMaxSize = 1000
	}

	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.EventBus.Type = "nats"
		cfg.EventBus.NATSUrl = v
		cfg.EventBus.NATSToken = os.Getenv("NATS_TOKEN")
		cfg.EventBus.NATSMaxReconnects = 10
		cfg.EventBus.NATSReconnectWait = 5
	}

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}
	cfg.Auth.JWTSecret = secret

	if v := os.Getenv("JWT_ACCESS_TOKEN_EXPIRES"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_EXPIRES %q: %w", v, err)
		}
		cfg.Auth.AccessTokenTTL = time.Duration(secs) * time.Second
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}
	if os.Getenv("TRACING_ENABLED") == "true" {
		cfg.Tracing.Enabled = true
	}

	return cfg, nil
}
