// Package config defines the top-level configuration for the cluster
// streaming service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CRYPTOCLUSTER_* environment
// variables.
type Config struct {
	Binance  BinanceConfig  `toml:"binance"`
	History  HistoryConfig  `toml:"history"`
	Cluster  ClusterConfig  `toml:"cluster"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// BinanceConfig holds the exchange API endpoints.
type BinanceConfig struct {
	BaseURL   string `toml:"base_url"`
	StreamURL string `toml:"stream_url"`
}

// HistoryConfig tunes the historical backfill.
type HistoryConfig struct {
	KlineLimit int      `toml:"kline_limit"`
	TradeLimit int      `toml:"trade_limit"`
	RefreshTTL duration `toml:"refresh_ttl"`
}

// ClusterConfig tunes the volume-profile derivation.
type ClusterConfig struct {
	Levels int `toml:"levels"`
}

// RedisConfig holds Redis connection parameters for the write-through
// candle cache.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	TTL        duration `toml:"ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters for the candle
// archive.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Binance: BinanceConfig{
			BaseURL:   "https://api.binance.com",
			StreamURL: "wss://stream.binance.com:9443",
		},
		History: HistoryConfig{
			KlineLimit: 1000,
			TradeLimit: 500,
			RefreshTTL: duration{5 * time.Minute},
		},
		Cluster: ClusterConfig{
			Levels: 10,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TTL:        duration{time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "cryptocluster",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Server: ServerConfig{
			Port: 8000,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies and returns a single
// error listing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Binance.BaseURL) == "" {
		errs = append(errs, "binance: base_url must not be empty")
	}
	if strings.TrimSpace(c.Binance.StreamURL) == "" {
		errs = append(errs, "binance: stream_url must not be empty")
	}

	if c.History.KlineLimit <= 0 {
		errs = append(errs, "history: kline_limit must be > 0")
	}
	if c.History.TradeLimit <= 0 {
		errs = append(errs, "history: trade_limit must be > 0")
	}
	if c.History.RefreshTTL.Duration <= 0 {
		errs = append(errs, "history: refresh_ttl must be > 0")
	}

	if c.Cluster.Levels <= 0 {
		errs = append(errs, "cluster: levels must be > 0")
	}

	if c.Redis.Enabled {
		if strings.TrimSpace(c.Redis.Addr) == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.TTL.Duration <= 0 {
			errs = append(errs, "redis: ttl must be > 0 when enabled")
		}
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if strings.TrimSpace(c.Postgres.Host) == "" {
			errs = append(errs, "postgres: host or dsn must be set when enabled")
		}
		if strings.TrimSpace(c.Postgres.Database) == "" {
			errs = append(errs, "postgres: database must be set when enabled")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log_level: unsupported level %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
