// Package config provides configuration management for the catalog server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultStoreBackend    = BackendMemory
	DefaultRedisKeyPrefix  = "catalog"
	DefaultCORSOrigins     = "*"
)

// Environment variable names.
const (
	EnvServerPort         = "APP_SERVER_PORT"
	EnvLogLevel           = "APP_LOG_LEVEL"
	EnvShutdownTimeout    = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled     = "APP_METRICS_ENABLED"
	EnvStoreBackend       = "APP_STORE_BACKEND"
	EnvDatabaseURL        = "APP_DATABASE_URL"
	EnvRedisURL           = "APP_REDIS_URL"
	EnvRedisKeyPrefix     = "APP_REDIS_KEY_PREFIX"
	EnvCORSAllowedOrigins = "APP_CORS_ALLOWED_ORIGINS"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// CORSAllowedOrigins lists allowed origins; "*" allows any.
	CORSAllowedOrigins []string

	// Storage settings.
	StoreBackend   string
	DatabaseURL    string
	RedisURL       string
	RedisKeyPrefix string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreBackend    = errors.New("store backend must be one of: memory, postgres, redis")
	ErrMissingDatabaseURL     = errors.New("database URL must be set when store backend is postgres")
	ErrMissingRedisURL        = errors.New("redis URL must be set when store backend is redis")
	ErrInvalidRedisKeyPrefix  = errors.New("redis key prefix must not be empty")
	ErrInvalidCORSOrigins     = errors.New("at least one CORS origin must be allowed")
)

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory, if present, is read first;
// variables already set in the environment take priority over it.
func Load() (*Config, error) {
	return load(".env")
}

func load(dotenvFiles ...string) (*Config, error) {
	if err := loadDotEnv(dotenvFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:         DefaultServerPort,
		LogLevel:           DefaultLogLevel,
		ShutdownTimeout:    DefaultShutdownTimeout,
		MetricsEnabled:     DefaultMetricsEnabled,
		CORSAllowedOrigins: splitList(DefaultCORSOrigins),
		StoreBackend:       DefaultStoreBackend,
		RedisKeyPrefix:     DefaultRedisKeyPrefix,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads each existing file. Missing files are skipped; a file
// that exists but cannot be parsed is an error. godotenv never overrides
// variables that are already present.
func loadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadStoreEnv()

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val, ok := os.LookupEnv(EnvCORSAllowedOrigins); ok {
		c.CORSAllowedOrigins = splitList(val)
	}

	return nil
}

// loadStoreEnv loads storage backend environment variables.
func (c *Config) loadStoreEnv() {
	if val := os.Getenv(EnvStoreBackend); val != "" {
		c.StoreBackend = strings.ToLower(val)
	}

	if val := os.Getenv(EnvDatabaseURL); val != "" {
		c.DatabaseURL = val
	}

	if val := os.Getenv(EnvRedisURL); val != "" {
		c.RedisURL = val
	}

	if val, ok := os.LookupEnv(EnvRedisKeyPrefix); ok {
		c.RedisKeyPrefix = val
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.CORSAllowedOrigins) == 0 {
		return ErrInvalidCORSOrigins
	}

	return nil
}

// validateStore validates backend-specific requirements.
func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
		if strings.TrimSpace(c.RedisKeyPrefix) == "" {
			return ErrInvalidRedisKeyPrefix
		}
	default:
		return ErrInvalidStoreBackend
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
