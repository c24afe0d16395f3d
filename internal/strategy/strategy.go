// Package strategy defines the contract between the matching engine and
// trading strategies, plus the strategies shipped with the simulator.
package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

// Account is the strategy-facing view of the ledger. It is handed to the
// strategy on every timestep; all mutation goes through order submission, so
// a strategy can never corrupt book or ledger state directly.
type Account interface {
	// SubmitOrder queues an order for future timesteps. The engine assigns
	// the ID and latency-stamps the visibility time; the assigned ID is
	// returned.
	SubmitOrder(o *domain.Order) uint64

	// DeleteOrder submits a delete for a previously submitted order.
	DeleteOrder(targetID uint64) uint64

	Cash() decimal.Decimal
	Position() int64
	WaitingOrders() []*domain.Order
	OpenPositions() []*domain.Trade
}

// Strategy is the capability interface a trading strategy implements. The
// engine invokes OnSnapshot once per timestep, after positions and waiting
// orders have been resolved for that timestep.
type Strategy interface {
	Name() string
	Init(ctx context.Context) error
	OnSnapshot(ctx context.Context, snap domain.Snapshot, acct Account) error
	Close() error
}
