package strategy

import (
	"context"
	"log/slog"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

// ImbalanceConfig configures the order-book-imbalance strategy.
type ImbalanceConfig struct {
	// Threshold on (bid1qty-ask1qty)/(bid1qty+ask1qty); a reading above it
	// is a buy signal, below the negative a sell signal.
	Threshold float64

	// MaxSpreadTicks gates trading: no signal when ask1-bid1 exceeds it.
	MaxSpreadTicks int64

	// Size is the order size in lots.
	Size int64

	// TakeProfitTicks/StopLossTicks offset the entry price to set exit
	// triggers on the opened trade.
	TakeProfitTicks int64
	StopLossTicks   int64
}

// Imbalance trades top-of-book volume imbalance: heavy bid-side resting
// volume is read as buying pressure and vice versa.
type Imbalance struct {
	cfg    ImbalanceConfig
	logger *slog.Logger
}

// NewImbalance creates an imbalance strategy.
func NewImbalance(cfg ImbalanceConfig, logger *slog.Logger) *Imbalance {
	return &Imbalance{cfg: cfg, logger: logger.With(slog.String("strategy", "imbalance"))}
}

// Name returns the strategy identifier.
func (s *Imbalance) Name() string { return "imbalance" }

// Init implements Strategy.
func (s *Imbalance) Init(ctx context.Context) error { return nil }

// Close implements Strategy.
func (s *Imbalance) Close() error { return nil }

// Signal computes the trade signal for a snapshot: +1 buy, -1 sell, 0 none.
func (s *Imbalance) Signal(snap domain.Snapshot) int {
	bid, ask := snap.BestBid(), snap.BestAsk()
	if bid.Qty+ask.Qty == 0 {
		return 0
	}
	if bid.Price > 0 && ask.Price > 0 && ask.Price-bid.Price > s.cfg.MaxSpreadTicks {
		return 0
	}
	obi := float64(bid.Qty-ask.Qty) / float64(bid.Qty+ask.Qty)
	switch {
	case obi > s.cfg.Threshold:
		return 1
	case obi < -s.cfg.Threshold:
		return -1
	default:
		return 0
	}
}

// OnSnapshot submits a market order with exit offsets when the imbalance
// signal fires and the account is not already holding in that direction.
func (s *Imbalance) OnSnapshot(ctx context.Context, snap domain.Snapshot, acct Account) error {
	sig := s.Signal(snap)
	if sig == 0 {
		return nil
	}

	pos := acct.Position()
	if (sig > 0 && pos > 0) || (sig < 0 && pos < 0) {
		return nil
	}

	side := domain.Bid
	entry := snap.BestAsk().Price // buys lift the ask
	if sig < 0 {
		side = domain.Ask
		entry = snap.BestBid().Price
	}
	if entry == 0 {
		return nil
	}

	order := &domain.Order{
		Ticker: snap.Asset,
		Side:   side,
		Size:   s.cfg.Size,
		Kind:   domain.MarketOrder,
	}
	if sig > 0 {
		order.TakeProfit = entry + s.cfg.TakeProfitTicks
		order.StopLoss = entry - s.cfg.StopLossTicks
	} else {
		order.TakeProfit = entry - s.cfg.TakeProfitTicks
		order.StopLoss = entry + s.cfg.StopLossTicks
	}

	id := acct.SubmitOrder(order)
	s.logger.DebugContext(ctx, "imbalance order submitted",
		slog.Uint64("order_id", id),
		slog.Int("signal", sig),
		slog.String("side", side.String()),
		slog.Int64("ref_price", entry),
	)
	return nil
}
