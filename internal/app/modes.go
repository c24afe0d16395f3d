package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ekinoksoz/lobsim/internal/domain"
	"github.com/ekinoksoz/lobsim/internal/engine"
	"github.com/ekinoksoz/lobsim/internal/feed"
	"github.com/ekinoksoz/lobsim/internal/latency"
	"github.com/ekinoksoz/lobsim/internal/reconstruct"
)

// ReplayMode reconstructs the book from the raw message dump and writes the
// snapshot series, optionally publishing each snapshot to the Redis cache as
// it is finalized.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting replay mode",
		slog.String("messages", a.cfg.Data.MessagesPath),
		slog.String("snapshots", a.cfg.Data.SnapshotsPath),
	)

	_, err := a.replay(ctx, deps, func(ctx context.Context, snap domain.Snapshot) error {
		return nil
	})
	return err
}

// BacktestMode runs the configured strategy against an existing snapshot
// series.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backtest mode",
		slog.String("snapshots", a.cfg.Data.SnapshotsPath),
		slog.String("strategy", a.cfg.Strategy.Name),
	)

	in, err := a.openInput(ctx, deps, a.cfg.Data.SnapshotsPath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	sr, err := feed.NewSnapshotReader(in, a.cfg.Data.PriceScale)
	if err != nil {
		return fmt.Errorf("app: open snapshot series: %w", err)
	}
	snaps, err := sr.ReadAll()
	if err != nil {
		return fmt.Errorf("app: read snapshot series: %w", err)
	}

	eng, err := a.buildEngine(deps)
	if err != nil {
		return err
	}
	if err := eng.AddData(snaps); err != nil {
		return err
	}

	result, err := eng.Run(ctx)
	if err != nil {
		return err
	}
	return a.finishRun(ctx, deps, result)
}

// FullMode pipelines reconstruction and backtest: messages stream through the
// reconstructor, finalized snapshots are teed to the snapshot series and the
// Redis cache, and the engine consumes them as they arrive.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.String("messages", a.cfg.Data.MessagesPath),
		slog.String("strategy", a.cfg.Strategy.Name),
	)

	eng, err := a.buildEngine(deps)
	if err != nil {
		return err
	}

	engCh := make(chan domain.Snapshot, 256)
	var result domain.RunResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = eng.RunStream(gctx, engCh)
		return err
	})
	g.Go(func() error {
		defer close(engCh)
		_, err := a.replay(gctx, deps, func(ctx context.Context, snap domain.Snapshot) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case engCh <- snap:
				return nil
			}
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return a.finishRun(ctx, deps, result)
}

// replay streams the message dump through the reconstructor. Every finalized
// snapshot is written to the snapshot series, published to the cache when
// enabled, and handed to sink. It returns the number of snapshots emitted.
func (a *App) replay(ctx context.Context, deps *Dependencies, sink func(context.Context, domain.Snapshot) error) (int, error) {
	in, err := a.openInput(ctx, deps, a.cfg.Data.MessagesPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	mr, err := feed.NewMessageReader(in, a.cfg.Data.PriceScale, a.logger)
	if err != nil {
		return 0, fmt.Errorf("app: open message dump: %w", err)
	}

	out, flushOut, err := a.openOutput(ctx, deps, a.cfg.Data.SnapshotsPath)
	if err != nil {
		return 0, err
	}
	sw := feed.NewSnapshotWriter(out, a.cfg.Data.PriceScale)

	rec := reconstruct.New(a.cfg.Data.Asset, a.logger)
	msgCh := make(chan domain.Message, 1024)
	snapCh := make(chan domain.Snapshot, 256)

	emitted := 0
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mr.Stream(gctx, msgCh)
	})
	g.Go(func() error {
		return rec.Run(gctx, msgCh, snapCh)
	})
	g.Go(func() error {
		for snap := range snapCh {
			if err := sw.Write(snap); err != nil {
				return err
			}
			if deps.SnapshotCache != nil {
				if err := deps.SnapshotCache.Publish(gctx, snap); err != nil {
					a.logger.WarnContext(gctx, "snapshot cache publish failed",
						slog.String("error", err.Error()))
				}
			}
			if err := sink(gctx, snap); err != nil {
				return err
			}
			emitted++
		}
		return sw.Flush()
	})

	if err := g.Wait(); err != nil {
		return emitted, err
	}
	if err := flushOut(); err != nil {
		return emitted, err
	}

	a.logger.InfoContext(ctx, "replay finished",
		slog.Int("snapshots", emitted),
		slog.Int("skipped_rows", mr.Skipped()),
	)
	return emitted, nil
}

// buildEngine assembles the matching engine with the configured strategy and
// latency model attached.
func (a *App) buildEngine(deps *Dependencies) (*engine.Engine, error) {
	seed := a.cfg.Latency.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	lat := latency.New(a.cfg.Latency.Mean.Duration, a.cfg.Latency.Stddev.Duration, seed)

	eng := engine.New(engine.Config{
		Ticker:      a.cfg.Data.Asset,
		InitialCash: decimal.NewFromFloat(a.cfg.Engine.InitialCash),
		PriceScale:  a.cfg.Data.PriceScale,
	}, lat, a.logger)

	strat, err := deps.Strategies.Get(a.cfg.Strategy.Name)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	eng.AddStrategy(strat)
	return eng, nil
}

// finishRun logs the run summary and persists it when a run store is wired.
func (a *App) finishRun(ctx context.Context, deps *Dependencies, result domain.RunResult) error {
	a.logger.InfoContext(ctx, "backtest complete",
		slog.String("run_id", result.RunID),
		slog.String("strategy", result.Strategy),
		slog.String("initial_cash", result.InitialCash.String()),
		slog.String("final_equity", result.FinalEquity.String()),
		slog.Int64("final_position", result.FinalPosition),
		slog.Int("executions", len(result.Executions)),
		slog.Int("trades", len(result.Trades)),
	)

	if deps.RunStore != nil {
		if err := deps.RunStore.SaveRun(ctx, result); err != nil {
			return fmt.Errorf("app: persist run: %w", err)
		}
		a.logger.InfoContext(ctx, "run persisted", slog.String("run_id", result.RunID))
	}
	return nil
}

// openInput opens a configured data path for reading, from object storage
// for s3:// paths and the local filesystem otherwise.
func (a *App) openInput(ctx context.Context, deps *Dependencies, path string) (io.ReadCloser, error) {
	if isS3Path(path) {
		if deps.BlobReader == nil {
			return nil, fmt.Errorf("app: %s requires object storage but none is wired", path)
		}
		rc, err := deps.BlobReader.Get(ctx, strings.TrimPrefix(path, "s3://"))
		if err != nil {
			return nil, fmt.Errorf("app: open %s: %w", path, err)
		}
		return rc, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: open %s: %w", path, err)
	}
	return f, nil
}

// openOutput opens a configured data path for writing and returns the writer
// plus a flush function to call once writing is complete. S3 targets are
// buffered in memory and uploaded on flush.
func (a *App) openOutput(ctx context.Context, deps *Dependencies, path string) (io.Writer, func() error, error) {
	if isS3Path(path) {
		if deps.BlobWriter == nil {
			return nil, nil, fmt.Errorf("app: %s requires object storage but none is wired", path)
		}
		buf := &bytes.Buffer{}
		flush := func() error {
			key := strings.TrimPrefix(path, "s3://")
			if err := deps.BlobWriter.PutMultipart(ctx, key, buf, 0); err != nil {
				return fmt.Errorf("app: upload %s: %w", path, err)
			}
			return nil
		}
		return buf, flush, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("app: create %s: %w", path, err)
	}
	return f, f.Close, nil
}
