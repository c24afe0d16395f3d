package strategy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func topSnap(bidPx, bidQty, askPx, askQty int64) domain.Snapshot {
	s := domain.Snapshot{Time: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), Asset: "AKBNK.E"}
	s.Bids[0] = domain.Level{Price: bidPx, Qty: bidQty}
	s.Asks[0] = domain.Level{Price: askPx, Qty: askQty}
	return s
}

func TestImbalanceSignal(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{
		Threshold:      0.6,
		MaxSpreadTicks: 3,
		Size:           10,
	}, discard())

	tests := []struct {
		name string
		snap domain.Snapshot
		want int
	}{
		{"heavy bid side", topSnap(100, 90, 101, 10), 1},
		{"heavy ask side", topSnap(100, 10, 101, 90), -1},
		{"balanced book", topSnap(100, 50, 101, 50), 0},
		{"exactly at threshold is no signal", topSnap(100, 80, 101, 20), 0},
		{"wide spread gates signal", topSnap(100, 90, 105, 10), 0},
		{"empty book", topSnap(0, 0, 0, 0), 0},
		{"one-sided book buys", topSnap(100, 90, 0, 0), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Signal(tc.snap); got != tc.want {
				t.Errorf("Signal = %d, want %d", got, tc.want)
			}
		})
	}
}

// fakeAccount records submissions for callback tests.
type fakeAccount struct {
	position int64
	orders   []*domain.Order
}

func (a *fakeAccount) SubmitOrder(o *domain.Order) uint64 {
	a.orders = append(a.orders, o)
	return uint64(len(a.orders))
}
func (a *fakeAccount) DeleteOrder(targetID uint64) uint64 { return 0 }
func (a *fakeAccount) Cash() decimal.Decimal              { return decimal.Zero }
func (a *fakeAccount) Position() int64                    { return a.position }
func (a *fakeAccount) WaitingOrders() []*domain.Order     { return nil }
func (a *fakeAccount) OpenPositions() []*domain.Trade     { return nil }

func TestImbalanceOnSnapshotSubmitsWithExits(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{
		Threshold:       0.6,
		MaxSpreadTicks:  3,
		Size:            10,
		TakeProfitTicks: 4,
		StopLossTicks:   2,
	}, discard())

	acct := &fakeAccount{}
	if err := s.OnSnapshot(context.Background(), topSnap(100, 90, 101, 10), acct); err != nil {
		t.Fatal(err)
	}
	if len(acct.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(acct.orders))
	}

	o := acct.orders[0]
	if o.Side != domain.Bid || o.Kind != domain.MarketOrder || o.Size != 10 {
		t.Errorf("order = %+v", o)
	}
	// Entry reference is the ask (101): TP above, SL below.
	if o.TakeProfit != 105 || o.StopLoss != 99 {
		t.Errorf("exits = (TP %d, SL %d), want (105, 99)", o.TakeProfit, o.StopLoss)
	}
}

func TestImbalanceHoldsWhenAlreadyPositioned(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{
		Threshold:      0.6,
		MaxSpreadTicks: 3,
		Size:           10,
	}, discard())

	acct := &fakeAccount{position: 10}
	if err := s.OnSnapshot(context.Background(), topSnap(100, 90, 101, 10), acct); err != nil {
		t.Fatal(err)
	}
	if len(acct.orders) != 0 {
		t.Fatalf("already-long account re-entered: %d orders", len(acct.orders))
	}

	// An opposite signal while long is still taken.
	if err := s.OnSnapshot(context.Background(), topSnap(100, 10, 101, 90), acct); err != nil {
		t.Fatal(err)
	}
	if len(acct.orders) != 1 {
		t.Fatalf("opposite signal ignored: %d orders", len(acct.orders))
	}
	if acct.orders[0].Side != domain.Ask {
		t.Errorf("order side = %v, want Ask", acct.orders[0].Side)
	}
}
