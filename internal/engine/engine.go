// Package engine drives the discrete-event backtest: it walks the snapshot
// sequence in timestamp order, reviews open positions against their exit
// triggers, fills waiting strategy orders against top-of-book liquidity, and
// invokes the strategy once per timestep.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekinoksoz/lobsim/internal/domain"
	"github.com/ekinoksoz/lobsim/internal/latency"
	"github.com/ekinoksoz/lobsim/internal/strategy"
)

// Config holds the engine parameters.
type Config struct {
	Ticker      string
	InitialCash decimal.Decimal
	// PriceScale converts price ticks to currency (ticks per unit).
	PriceScale int64
}

// Engine is the matching engine. Single-threaded and deterministic: one
// logical thread advances in strictly increasing snapshot time, and each
// timestep is resolved atomically before the strategy observes it.
type Engine struct {
	cfg     Config
	lat     *latency.Model
	logger  *slog.Logger
	account *Account

	strat strategy.Strategy
	data  []domain.Snapshot

	current time.Time

	// Last nonzero top-of-book prices seen so far; used for mark-to-market
	// and final position valuation.
	lastBid int64
	lastAsk int64
}

// New creates an Engine with an empty account.
func New(cfg Config, lat *latency.Model, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		lat:     lat,
		logger:  logger.With(slog.String("component", "engine"), slog.String("ticker", cfg.Ticker)),
		account: NewAccount(cfg.Ticker, cfg.InitialCash, cfg.PriceScale),
	}
}

// Account exposes the engine's ledger for inspection and result reporting.
func (e *Engine) Account() *Account { return e.account }

// AddData attaches the snapshot sequence to replay. The sequence must be
// time-ordered with unique timestamps; fill eligibility depends on monotonic
// time, so an unordered source is rejected outright.
func (e *Engine) AddData(snaps []domain.Snapshot) error {
	for i := 1; i < len(snaps); i++ {
		if !snaps[i].Time.After(snaps[i-1].Time) {
			return fmt.Errorf("engine: snapshot sequence not strictly time-ordered at index %d", i)
		}
	}
	e.data = snaps
	return nil
}

// AddStrategy attaches the strategy invoked every timestep.
func (e *Engine) AddStrategy(s strategy.Strategy) {
	e.strat = s
}

// ---- strategy.Account implementation ----

// SubmitOrder stamps the order with the current simulation time plus one
// latency sample and registers it. The delay is drawn exactly once here and
// never recomputed, so an order can never fill against book state older than
// its arrival at the exchange.
func (e *Engine) SubmitOrder(o *domain.Order) uint64 {
	o.SubmittedAt = e.current
	o.VisibleAt = e.lat.VisibleAt(e.current)
	return e.account.submit(o)
}

// DeleteOrder submits a delete order targeting a previous submission.
func (e *Engine) DeleteOrder(targetID uint64) uint64 {
	return e.SubmitOrder(&domain.Order{Kind: domain.DeleteOrder, TargetID: targetID})
}

// Cash implements strategy.Account.
func (e *Engine) Cash() decimal.Decimal { return e.account.Cash() }

// Position implements strategy.Account.
func (e *Engine) Position() int64 { return e.account.Position() }

// WaitingOrders implements strategy.Account.
func (e *Engine) WaitingOrders() []*domain.Order { return e.account.WaitingOrders() }

// OpenPositions implements strategy.Account.
func (e *Engine) OpenPositions() []*domain.Trade { return e.account.OpenPositions() }

var _ strategy.Account = (*Engine)(nil)

// ---- run loop ----

// Run replays the snapshot sequence and returns the run result. It fails
// fast with ErrNoStrategy/ErrNoData before the event loop starts.
func (e *Engine) Run(ctx context.Context) (domain.RunResult, error) {
	if e.strat == nil {
		return domain.RunResult{}, fmt.Errorf("engine: %w: attach one with AddStrategy before Run", domain.ErrNoStrategy)
	}
	if len(e.data) == 0 {
		return domain.RunResult{}, fmt.Errorf("engine: %w: attach snapshots with AddData before Run", domain.ErrNoData)
	}

	if err := e.strat.Init(ctx); err != nil {
		return domain.RunResult{}, fmt.Errorf("engine: strategy init: %w", err)
	}
	defer func() { _ = e.strat.Close() }()

	started := time.Now()
	e.logger.InfoContext(ctx, "run starting",
		slog.String("strategy", e.strat.Name()),
		slog.Int("snapshots", len(e.data)),
		slog.String("initial_cash", e.cfg.InitialCash.String()),
	)

	for _, snap := range e.data {
		if err := ctx.Err(); err != nil {
			return domain.RunResult{}, err
		}
		e.step(ctx, snap)
	}

	result := e.result(started)
	e.logger.InfoContext(ctx, "run finished",
		slog.String("final_cash", result.FinalCash.String()),
		slog.Int64("final_position", result.FinalPosition),
		slog.String("final_equity", result.FinalEquity.String()),
		slog.Int("executions", len(result.Executions)),
	)
	return result, nil
}

// Step processes a single snapshot outside a full Run. Used by the streaming
// mode, where snapshots arrive over a channel.
func (e *Engine) Step(ctx context.Context, snap domain.Snapshot) {
	e.step(ctx, snap)
}

func (e *Engine) step(ctx context.Context, snap domain.Snapshot) {
	e.current = snap.Time
	if p := snap.BestBid().Price; p != 0 {
		e.lastBid = p
	}
	if p := snap.BestAsk().Price; p != 0 {
		e.lastAsk = p
	}

	e.reviewPositions(snap)
	e.fillOrders(snap)

	if err := e.strat.OnSnapshot(ctx, snap, e); err != nil {
		e.logger.WarnContext(ctx, "strategy callback failed",
			slog.Time("ts", snap.Time),
			slog.String("error", err.Error()),
		)
	}
}

// reviewPositions checks every open trade against its exit triggers at the
// currently offered exit price: the ask for longs, the bid for shorts.
// Comparisons are inclusive, so the boundary tick triggers the exit. Closes
// are bounded by the opposing top-of-book quantity; the unclosed remainder
// stays open and is reviewed again next timestep.
func (e *Engine) reviewPositions(snap domain.Snapshot) {
	for _, tr := range e.account.OpenPositions() {
		var offered domain.Level
		var hit bool
		if tr.Side == domain.Bid {
			offered = snap.BestAsk()
			hit = (tr.StopLoss > 0 && offered.Price <= tr.StopLoss) ||
				(tr.TakeProfit > 0 && offered.Price >= tr.TakeProfit)
		} else {
			offered = snap.BestBid()
			hit = (tr.StopLoss > 0 && offered.Price >= tr.StopLoss) ||
				(tr.TakeProfit > 0 && offered.Price <= tr.TakeProfit)
		}
		if offered.Price == 0 || !hit {
			continue
		}
		closed := e.account.closeTrade(tr, offered.Price, offered.Qty, e.current, e.lastBid, e.lastAsk)
		if closed > 0 {
			e.logger.Debug("position exit",
				slog.Uint64("trade_id", tr.ID),
				slog.Int64("price", offered.Price),
				slog.Int64("qty", closed),
				slog.Int64("remaining", tr.ActiveSize()),
			)
		}
	}
}

// fillOrders attempts every waiting order that has become visible by the
// current timestep. Market orders fill against the opposing top of book and
// are deferred, never rejected, when no liquidity is offered. Limit orders
// additionally require the offered price to satisfy the limit. Delete orders
// remove their target without any price interaction.
func (e *Engine) fillOrders(snap domain.Snapshot) {
	for _, o := range e.account.WaitingOrders() {
		if o.VisibleAt.After(e.current) {
			continue
		}

		if o.Kind == domain.DeleteOrder {
			if !e.account.markDeleted(o.TargetID) {
				e.logger.Warn("delete order target not found", slog.Uint64("target_id", o.TargetID))
			}
			o.Deleted = true
			continue
		}

		var offered domain.Level
		if o.Side == domain.Bid {
			offered = snap.BestAsk()
		} else {
			offered = snap.BestBid()
		}
		if offered.Price == 0 || offered.Qty == 0 {
			continue
		}

		if o.Kind == domain.LimitOrder {
			if o.Side == domain.Bid && offered.Price > o.LimitPrice {
				continue
			}
			if o.Side == domain.Ask && offered.Price < o.LimitPrice {
				continue
			}
		}

		qty := o.Waiting()
		if offered.Qty < qty {
			qty = offered.Qty
		}
		if trade := e.account.openTrade(o, offered.Price, qty, e.current, e.lastBid, e.lastAsk); trade != nil {
			e.logger.Debug("order fill",
				slog.Uint64("order_id", o.ID),
				slog.Uint64("trade_id", trade.ID),
				slog.Int64("price", offered.Price),
				slog.Int64("qty", trade.Size),
				slog.Int64("waiting", o.Waiting()),
			)
		}
	}
}

// Result computes the final run result, marking any remaining position to
// the last nonzero bid/ask observed across the whole sequence.
func (e *Engine) result(started time.Time) domain.RunResult {
	return domain.RunResult{
		RunID:         uuid.NewString(),
		Asset:         e.cfg.Ticker,
		Strategy:      e.strat.Name(),
		InitialCash:   e.account.InitialCash(),
		FinalCash:     e.account.Cash(),
		FinalPosition: e.account.Position(),
		AssetValue:    e.account.assetValue(e.lastBid, e.lastAsk),
		FinalEquity:   e.account.MarkToMarket(e.lastBid, e.lastAsk),
		Executions:    e.account.Executions(),
		Trades:        e.account.Trades(),
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
}

// RunStream consumes snapshots from a channel, processing each as one
// timestep. It is the downstream half of the pipelined build-then-replay
// mode; determinism is preserved because the reconstructor only emits a
// snapshot once its timestamp is final.
func (e *Engine) RunStream(ctx context.Context, in <-chan domain.Snapshot) (domain.RunResult, error) {
	if e.strat == nil {
		return domain.RunResult{}, fmt.Errorf("engine: %w: attach one with AddStrategy before Run", domain.ErrNoStrategy)
	}
	if err := e.strat.Init(ctx); err != nil {
		return domain.RunResult{}, fmt.Errorf("engine: strategy init: %w", err)
	}
	defer func() { _ = e.strat.Close() }()

	started := time.Now()
	steps := 0
	for {
		select {
		case <-ctx.Done():
			return domain.RunResult{}, ctx.Err()
		case snap, ok := <-in:
			if !ok {
				if steps == 0 {
					return domain.RunResult{}, fmt.Errorf("engine: %w: snapshot stream was empty", domain.ErrNoData)
				}
				return e.result(started), nil
			}
			e.step(ctx, snap)
			steps++
		}
	}
}
