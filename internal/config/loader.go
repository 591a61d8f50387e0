package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CRYPTOCLUSTER_* environment variable overrides,
// and returns the final Config. A missing file is not an error; the defaults
// plus environment are used. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CRYPTOCLUSTER_* environment variables
// and overwrites the corresponding Config fields when a variable is set.
// This lets operators inject secrets at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Binance ──
	setStr(&cfg.Binance.BaseURL, "CRYPTOCLUSTER_BINANCE_BASE_URL")
	setStr(&cfg.Binance.StreamURL, "CRYPTOCLUSTER_BINANCE_STREAM_URL")

	// ── History ──
	setInt(&cfg.History.KlineLimit, "CRYPTOCLUSTER_HISTORY_KLINE_LIMIT")
	setInt(&cfg.History.TradeLimit, "CRYPTOCLUSTER_HISTORY_TRADE_LIMIT")
	setDuration(&cfg.History.RefreshTTL, "CRYPTOCLUSTER_HISTORY_REFRESH_TTL")

	// ── Cluster ──
	setInt(&cfg.Cluster.Levels, "CRYPTOCLUSTER_CLUSTER_LEVELS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CRYPTOCLUSTER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CRYPTOCLUSTER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CRYPTOCLUSTER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CRYPTOCLUSTER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CRYPTOCLUSTER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CRYPTOCLUSTER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CRYPTOCLUSTER_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.TTL, "CRYPTOCLUSTER_REDIS_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "CRYPTOCLUSTER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CRYPTOCLUSTER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CRYPTOCLUSTER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CRYPTOCLUSTER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CRYPTOCLUSTER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CRYPTOCLUSTER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CRYPTOCLUSTER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CRYPTOCLUSTER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CRYPTOCLUSTER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CRYPTOCLUSTER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CRYPTOCLUSTER_POSTGRES_RUN_MIGRATIONS")

	// ── Server ──
	setInt(&cfg.Server.Port, "CRYPTOCLUSTER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CRYPTOCLUSTER_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "CRYPTOCLUSTER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
