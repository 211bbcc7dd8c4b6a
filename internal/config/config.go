package config

import "time"

// Store drivers accepted by StoreDriver.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	HistorySize        int    `mapstructure:"history_size" yaml:"history_size"`
	WelcomeMessage     string `mapstructure:"welcome_message" yaml:"welcome_message"`
	CloseOnAuthFailure bool   `mapstructure:"close_on_auth_failure" yaml:"close_on_auth_failure"`

	AllowedOrigins     []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxMessageBytes    int64    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	StoreDriver  string `mapstructure:"store_driver" yaml:"store_driver"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	RedisURL     string `mapstructure:"redis_url" yaml:"redis_url"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3010",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		JWTSecret:          "change-me",
		JWTIssuer:          "rapidchat",
		JWTAudience:        "rapidchat",
		TokenTTL:           time.Hour,
		HistorySize:        100,
		WelcomeMessage:     "Welcome to RapidChat",
		CloseOnAuthFailure: true,
		AllowedOrigins:     []string{"*"},
		MaxMessageBytes:    1 << 16,
		RateLimitPerMinute: 120,
		StoreDriver:        StoreMemory,
		DatabasePath:       "rapidchat.db",
		RedisURL:           "redis://localhost:6379/0",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Boolean fields are not merged since their zero value is meaningful.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.StoreDriver != "" {
		c.StoreDriver = other.StoreDriver
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RedisURL != "" {
		c.RedisURL = other.RedisURL
	}
}
