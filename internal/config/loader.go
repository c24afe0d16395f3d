package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LOBSIM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LOBSIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject credentials at run time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Data ──
	setStr(&cfg.Data.Asset, "LOBSIM_DATA_ASSET")
	setStr(&cfg.Data.MessagesPath, "LOBSIM_DATA_MESSAGES_PATH")
	setStr(&cfg.Data.SnapshotsPath, "LOBSIM_DATA_SNAPSHOTS_PATH")
	setInt64(&cfg.Data.PriceScale, "LOBSIM_DATA_PRICE_SCALE")

	// ── Latency ──
	setDuration(&cfg.Latency.Mean, "LOBSIM_LATENCY_MEAN")
	setDuration(&cfg.Latency.Stddev, "LOBSIM_LATENCY_STDDEV")
	setInt64(&cfg.Latency.Seed, "LOBSIM_LATENCY_SEED")

	// ── Engine ──
	setFloat64(&cfg.Engine.InitialCash, "LOBSIM_ENGINE_INITIAL_CASH")

	// ── Strategy ──
	setStr(&cfg.Strategy.Name, "LOBSIM_STRATEGY_NAME")
	setFloat64(&cfg.Strategy.Imbalance.Threshold, "LOBSIM_STRATEGY_IMBALANCE_THRESHOLD")
	setInt64(&cfg.Strategy.Imbalance.MaxSpreadTicks, "LOBSIM_STRATEGY_IMBALANCE_MAX_SPREAD_TICKS")
	setInt64(&cfg.Strategy.Imbalance.Size, "LOBSIM_STRATEGY_IMBALANCE_SIZE")
	setInt64(&cfg.Strategy.Imbalance.TakeProfitTicks, "LOBSIM_STRATEGY_IMBALANCE_TAKE_PROFIT_TICKS")
	setInt64(&cfg.Strategy.Imbalance.StopLossTicks, "LOBSIM_STRATEGY_IMBALANCE_STOP_LOSS_TICKS")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "LOBSIM_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "LOBSIM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LOBSIM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LOBSIM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LOBSIM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LOBSIM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LOBSIM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LOBSIM_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LOBSIM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LOBSIM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LOBSIM_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LOBSIM_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LOBSIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LOBSIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LOBSIM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LOBSIM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LOBSIM_REDIS_MAX_RETRIES")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "LOBSIM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LOBSIM_S3_REGION")
	setStr(&cfg.S3.Bucket, "LOBSIM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LOBSIM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LOBSIM_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "LOBSIM_S3_FORCE_PATH_STYLE")

	// ── Top-level ──
	setStr(&cfg.Mode, "LOBSIM_MODE")
	setStr(&cfg.LogLevel, "LOBSIM_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
