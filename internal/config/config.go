// Package config defines the top-level configuration for the simulator and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LOBSIM_* environment variables.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Latency  LatencyConfig  `toml:"latency"`
	Engine   EngineConfig   `toml:"engine"`
	Strategy StrategyConfig `toml:"strategy"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DataConfig locates the input message dump and the snapshot series.
type DataConfig struct {
	// Asset is the instrument symbol, e.g. "AKBNK.E".
	Asset string `toml:"asset"`

	// MessagesPath is the raw message dump CSV. Prefix with "s3://" to read
	// from object storage instead of the local filesystem.
	MessagesPath string `toml:"messages_path"`

	// SnapshotsPath is where the reconstructed snapshot series is written in
	// replay mode and read from in backtest mode.
	SnapshotsPath string `toml:"snapshots_path"`

	// PriceScale is the number of price ticks per currency unit.
	PriceScale int64 `toml:"price_scale"`
}

// LatencyConfig parameterizes the order transmission delay model.
type LatencyConfig struct {
	Mean   duration `toml:"mean"`
	Stddev duration `toml:"stddev"`
	// Seed fixes the delay sequence; zero seeds from the current time.
	Seed int64 `toml:"seed"`
}

// EngineConfig holds matching engine parameters.
type EngineConfig struct {
	InitialCash float64 `toml:"initial_cash"`
}

// StrategyConfig selects and parameterizes the strategy under test.
type StrategyConfig struct {
	Name      string          `toml:"name"`
	Imbalance ImbalanceConfig `toml:"imbalance"`
}

// ImbalanceConfig holds parameters for the imbalance strategy.
type ImbalanceConfig struct {
	Threshold       float64 `toml:"threshold"`
	MaxSpreadTicks  int64   `toml:"max_spread_ticks"`
	Size            int64   `toml:"size"`
	TakeProfitTicks int64   `toml:"take_profit_ticks"`
	StopLossTicks   int64   `toml:"stop_loss_ticks"`
}

// PostgresConfig holds PostgreSQL connection parameters for run persistence.
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

// RedisConfig holds Redis connection parameters for the live book cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "50ms" or "1.5s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
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
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Data: DataConfig{
			Asset:         "AKBNK.E",
			MessagesPath:  "data/messages.csv",
			SnapshotsPath: "data/snapshots.csv",
			PriceScale:    100,
		},
		Latency: LatencyConfig{
			Mean:   duration{40 * time.Millisecond},
			Stddev: duration{10 * time.Millisecond},
			Seed:   0,
		},
		Engine: EngineConfig{
			InitialCash: 100_000,
		},
		Strategy: StrategyConfig{
			Name: "imbalance",
			Imbalance: ImbalanceConfig{
				Threshold:       0.6,
				MaxSpreadTicks:  5,
				Size:            10,
				TakeProfitTicks: 4,
				StopLossTicks:   2,
			},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "lobsim",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "",
			Region:         "us-east-1",
			Bucket:         "lobsim-data",
			ForcePathStyle: true,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"replay":   true,
	"backtest": true,
	"full":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: replay, backtest, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Data.Asset == "" {
		errs = append(errs, "data: asset must not be empty")
	}
	if c.Data.PriceScale <= 0 {
		errs = append(errs, "data: price_scale must be > 0")
	}
	needsMessages := c.Mode == "replay" || c.Mode == "full"
	if needsMessages && c.Data.MessagesPath == "" {
		errs = append(errs, "data: messages_path is required for mode "+c.Mode)
	}
	if c.Mode == "backtest" && c.Data.SnapshotsPath == "" {
		errs = append(errs, "data: snapshots_path is required for mode backtest")
	}

	if c.Latency.Mean.Duration <= 0 {
		errs = append(errs, "latency: mean must be > 0")
	}
	if c.Latency.Stddev.Duration < 0 {
		errs = append(errs, "latency: stddev must be >= 0")
	}

	if c.Engine.InitialCash <= 0 {
		errs = append(errs, "engine: initial_cash must be > 0")
	}

	if c.Strategy.Name == "" {
		errs = append(errs, "strategy: name must not be empty")
	}
	if c.Strategy.Name == "imbalance" {
		if c.Strategy.Imbalance.Threshold <= 0 || c.Strategy.Imbalance.Threshold >= 1 {
			errs = append(errs, "strategy.imbalance: threshold must be in (0, 1)")
		}
		if c.Strategy.Imbalance.Size <= 0 {
			errs = append(errs, "strategy.imbalance: size must be > 0")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	usesS3 := strings.HasPrefix(c.Data.MessagesPath, "s3://") || strings.HasPrefix(c.Data.SnapshotsPath, "s3://")
	if usesS3 && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty when an s3:// path is configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
