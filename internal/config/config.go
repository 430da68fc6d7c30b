package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration (Postgres: audit log, template suggestions)
	Database DatabaseConfig

	// Redis configuration (generation result cache)
	Redis RedisConfig

	// ClickHouse configuration (analytics executor)
	ClickHouse ClickHouseConfig

	// Authentication configuration
	Auth AuthConfig

	// Server configuration
	Server ServerConfig

	// Query generation configuration
	Query QueryConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Database, d.Username, d.Password, d.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// AuthConfig holds authentication and authorization configuration
type AuthConfig struct {
	JWTSecret      string
	JWTExpiry      time.Duration
	APIKeyCost     int
	RateLimit      int
	AllowAnonymous bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port    string
	GinMode string
}

// QueryConfig holds query generation configuration
type QueryConfig struct {
	Timeout           time.Duration
	DefaultCacheTTL   time.Duration
	EnableGuardrails  bool
	EnableCHQL        bool
	ExecutorRowLimit  int
	SuggestionEnabled bool
}

// Loader handles loading configuration from various sources
type Loader struct {
	provider SecretProvider
}

// NewLoader creates a new configuration loader with the given secret provider
func NewLoader(provider SecretProvider) *Loader {
	return &Loader{
		provider: provider,
	}
}

// NewDefaultLoader creates a loader with the default provider chain:
// 1. Kubernetes secrets (if available)
// 2. File-based secrets (if available)
// 3. Environment variables (fallback)
func NewDefaultLoader() *Loader {
	providers := []SecretProvider{
		NewK8sProvider("", ""),
		NewFileProvider("/var/secrets"),
		NewEnvProvider(),
	}

	return &Loader{
		provider: NewChainProvider(providers...),
	}
}

// Load loads the complete configuration
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}

	cfg.Database = DatabaseConfig{
		Host:     l.getString(ctx, "DB_HOST", "localhost"),
		Port:     l.getString(ctx, "DB_PORT", "5432"),
		Database: l.getString(ctx, "DB_NAME", "impactlens"),
		Username: l.getString(ctx, "DB_USER", "impactlens"),
		Password: l.getString(ctx, "DB_PASSWORD", ""),
		SSLMode:  l.getString(ctx, "DB_SSLMODE", "disable"),
	}

	cfg.Redis = RedisConfig{
		Addr:     l.getString(ctx, "REDIS_ADDR", "localhost:6379"),
		Password: l.getString(ctx, "REDIS_PASSWORD", ""),
		DB:       l.getInt(ctx, "REDIS_DB", 0),
	}

	cfg.ClickHouse = ClickHouseConfig{
		Addr:     l.getString(ctx, "CLICKHOUSE_ADDR", "localhost:9000"),
		Database: l.getString(ctx, "CLICKHOUSE_DB", "impactlens"),
		Username: l.getString(ctx, "CLICKHOUSE_USER", "default"),
		Password: l.getString(ctx, "CLICKHOUSE_PASSWORD", ""),
		Timeout:  l.getDuration(ctx, "CLICKHOUSE_TIMEOUT", 30*time.Second),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:      l.getString(ctx, "JWT_SECRET", ""),
		JWTExpiry:      l.getDuration(ctx, "JWT_EXPIRY", 24*time.Hour),
		APIKeyCost:     l.getInt(ctx, "API_KEY_BCRYPT_COST", 10),
		RateLimit:      l.getInt(ctx, "RATE_LIMIT", 100),
		AllowAnonymous: l.getBool(ctx, "ALLOW_ANONYMOUS", false),
	}

	cfg.Server = ServerConfig{
		Port:    l.getString(ctx, "PORT", "8080"),
		GinMode: l.getString(ctx, "GIN_MODE", "release"),
	}

	cfg.Query = QueryConfig{
		Timeout:           l.getDuration(ctx, "QUERY_TIMEOUT", 30*time.Second),
		DefaultCacheTTL:   l.getDuration(ctx, "CACHE_TTL", 5*time.Minute),
		EnableGuardrails:  l.getBool(ctx, "ENABLE_GUARDRAILS", true),
		EnableCHQL:        l.getBool(ctx, "ENABLE_CHQL", true),
		ExecutorRowLimit:  l.getInt(ctx, "EXECUTOR_ROW_LIMIT", 10000),
		SuggestionEnabled: l.getBool(ctx, "SUGGESTIONS_ENABLED", true),
	}

	return cfg, nil
}

// Validate checks that required settings are present for serving traffic
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" && !c.Auth.AllowAnonymous {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Database.Password == "" && c.Database.SSLMode != "disable" {
		missing = append(missing, "DB_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Helper methods for retrieving and parsing configuration values

func (l *Loader) getString(ctx context.Context, key, defaultValue string) string {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}

func (l *Loader) getBool(ctx context.Context, key string, defaultValue bool) bool {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func (l *Loader) getInt(ctx context.Context, key string, defaultValue int) int {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func (l *Loader) getDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
