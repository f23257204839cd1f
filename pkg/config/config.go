package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the action bot.
type Config struct {
	AppEnv  string `mapstructure:"app_env"`
	Version string `mapstructure:"version"`

	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

// BotConfig describes the Telegram transport.
type BotConfig struct {
	Token          string        `mapstructure:"token" validate:"required"`
	Mode           string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	WebhookURL     string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	WebhookListen  string        `mapstructure:"webhook_listen"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DefaultLocale  string        `mapstructure:"default_locale" validate:"omitempty,oneof=en ru"`
	ServiceName    string        `mapstructure:"service_name"`
}

// ServerConfig configures the health/metrics HTTP server.
type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"required"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name" validate:"required"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns PostgreSQL DSN based on config values.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port for the redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig controls action cache lifetimes.
type CacheConfig struct {
	AllActionsTTL  time.Duration `mapstructure:"all_actions_ttl"`
	ActionTTL      time.Duration `mapstructure:"action_ttl"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	WizardTTL      time.Duration `mapstructure:"wizard_ttl"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig controls error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"omitempty,min=0,max=1"`
	Environment string  `mapstructure:"environment"`
}

// RateLimitRule is a single limit expressed as count per window.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RateLimitConfig configures update throttling.
type RateLimitConfig struct {
	Enabled   bool                     `mapstructure:"enabled"`
	Backend   string                   `mapstructure:"backend" validate:"omitempty,oneof=memory redis"`
	Whitelist []int64                  `mapstructure:"whitelist"`
	Global    RateLimitRule            `mapstructure:"global"`
	PerUser   RateLimitRule            `mapstructure:"per_user"`
	Commands  map[string]RateLimitRule `mapstructure:"commands"`
}

// AdminConfig names the bot owner; extra admins live in the admins table.
type AdminConfig struct {
	OwnerID int64 `mapstructure:"owner_id"`
}

// JobsConfig configures asynq workers.
type JobsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Concurrency   int    `mapstructure:"concurrency"`
	WarmCacheSpec string `mapstructure:"warm_cache_spec"`
}

// IsProduction reports whether the bot runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
