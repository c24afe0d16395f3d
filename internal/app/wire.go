package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/ekinoksoz/lobsim/internal/blob/s3"
	"github.com/ekinoksoz/lobsim/internal/cache/redis"
	"github.com/ekinoksoz/lobsim/internal/config"
	"github.com/ekinoksoz/lobsim/internal/domain"
	"github.com/ekinoksoz/lobsim/internal/store/postgres"
	"github.com/ekinoksoz/lobsim/internal/strategy"
)

// Dependencies bundles everything the application modes need beyond the core
// engine: run persistence, the live book cache, blob storage, and the
// strategy registry. Optional members are nil when their backend is disabled.
type Dependencies struct {
	RunStore      *postgres.RunStore
	SnapshotCache *redis.SnapshotCache

	BlobReader domain.BlobReader
	BlobWriter domain.BlobWriter

	Strategies *strategy.Registry
}

// isS3Path reports whether a configured data path points at object storage.
func isS3Path(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// needsS3 returns true when any configured data path lives in object storage.
func needsS3(cfg *config.Config) bool {
	return isS3Path(cfg.Data.MessagesPath) || isS3Path(cfg.Data.SnapshotsPath)
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (run persistence) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.RunStore = postgres.NewRunStore(pgClient.Pool())
	}

	// --- Redis (live top-of-book cache) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.SnapshotCache = redis.NewSnapshotCache(redisClient)
	}

	// --- S3 (remote message dumps and snapshot archives) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Strategies ---
	reg := strategy.NewRegistry()
	reg.Register("imbalance", strategy.NewImbalance(strategy.ImbalanceConfig{
		Threshold:       cfg.Strategy.Imbalance.Threshold,
		MaxSpreadTicks:  cfg.Strategy.Imbalance.MaxSpreadTicks,
		Size:            cfg.Strategy.Imbalance.Size,
		TakeProfitTicks: cfg.Strategy.Imbalance.TakeProfitTicks,
		StopLossTicks:   cfg.Strategy.Imbalance.StopLossTicks,
	}, logger))
	deps.Strategies = reg

	return deps, cleanup, nil
}
