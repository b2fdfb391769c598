// Package config provides configuration types for the fulfild server.
//
// Configuration is file-based (fulfild.yaml) with environment variable
// overrides. Three storage backends are supported: in-memory (default),
// SQLite for single-node durability, and Redis for shared state.
package config

import "github.com/spf13/viper"

// Config is the top-level configuration for fulfild.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Session configures session lifecycle behavior.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Storage configures the session store backend.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// DevMode enables development features (verbose logging, etc).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
// Only plain HTTP is supported (use a reverse proxy for TLS).
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// SessionConfig configures session lifecycle behavior.
type SessionConfig struct {
	// TTL is the duration before sessions expire (e.g., "20m", "1h").
	// Defaults to "20m" if not specified.
	TTL string `yaml:"ttl" mapstructure:"ttl" validate:"omitempty"`

	// CleanupInterval is how often expired sessions are swept from the
	// store (e.g., "5m"). Expiry is enforced on access regardless; the
	// sweep only reclaims memory and disk. Defaults to "5m".
	CleanupInterval string `yaml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"omitempty"`
}

// StorageConfig configures the session store backend.
type StorageConfig struct {
	// Backend selects the session store implementation.
	// Valid values: "memory", "sqlite", "redis". Defaults to "memory".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,storage_backend"`

	// SQLitePath is the database file path for the sqlite backend.
	// Defaults to "fulfild.db" in the working directory.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`

	// Redis configures the redis backend connection.
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the Redis connection for the redis backend.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	// Defaults to "localhost:6379".
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`

	// Password is the Redis AUTH password. Optional.
	Password string `yaml:"password" mapstructure:"password"`

	// DB is the Redis database number. Defaults to 0.
	DB int `yaml:"db" mapstructure:"db" validate:"omitempty,min=0"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Server defaults. Bind to localhost only; users who need network
	// access must explicitly set http_addr: ":8080" or "0.0.0.0:8080".
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Session.TTL == "" {
		c.Session.TTL = "20m"
	}
	if c.Session.CleanupInterval == "" {
		c.Session.CleanupInterval = "5m"
	}

	// Storage defaults. viper.IsSet distinguishes "not set" from an
	// explicit empty string in YAML/env.
	if c.Storage.Backend == "" && !viper.IsSet("storage.backend") {
		c.Storage.Backend = "memory"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "fulfild.db"
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}

	if c.DevMode {
		c.Server.LogLevel = "debug"
	}
}
