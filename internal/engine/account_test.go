package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

func TestAccountSignedFlows(t *testing.T) {
	a := NewAccount("AKBNK.E", decimal.NewFromInt(1000), 1)
	now := base

	long := &domain.Order{Side: domain.Bid, Size: 4, Kind: domain.MarketOrder}
	a.submit(long)
	tr := a.openTrade(long, 100, 4, now, 100, 101)
	if tr == nil {
		t.Fatal("openTrade returned nil")
	}
	// Buy: cash -= 4*100.
	if want := decimal.NewFromInt(600); !a.Cash().Equal(want) {
		t.Fatalf("cash after open = %s, want %s", a.Cash(), want)
	}
	if a.Position() != 4 {
		t.Fatalf("position = %d, want 4", a.Position())
	}

	closed := a.closeTrade(tr, 110, 10, now.Add(time.Second), 110, 111)
	if closed != 4 {
		t.Fatalf("closed = %d, want 4", closed)
	}
	// Sell to close: cash += 4*110.
	if want := decimal.NewFromInt(1040); !a.Cash().Equal(want) {
		t.Fatalf("cash after close = %s, want %s", a.Cash(), want)
	}
	if a.Position() != 0 {
		t.Fatalf("position = %d, want 0", a.Position())
	}
}

func TestAccountShortFlows(t *testing.T) {
	a := NewAccount("AKBNK.E", decimal.NewFromInt(1000), 1)

	short := &domain.Order{Side: domain.Ask, Size: 3, Kind: domain.MarketOrder}
	a.submit(short)
	tr := a.openTrade(short, 100, 3, base, 100, 101)

	// Short sale: cash += 3*100.
	if want := decimal.NewFromInt(1300); !a.Cash().Equal(want) {
		t.Fatalf("cash after short open = %s, want %s", a.Cash(), want)
	}
	if a.Position() != -3 {
		t.Fatalf("position = %d, want -3", a.Position())
	}

	a.closeTrade(tr, 90, 5, base.Add(time.Second), 90, 91)
	// Buy back: cash -= 3*90, net profit 30.
	if want := decimal.NewFromInt(1030); !a.Cash().Equal(want) {
		t.Fatalf("cash after cover = %s, want %s", a.Cash(), want)
	}
}

func TestAccountMarkToMarket(t *testing.T) {
	a := NewAccount("AKBNK.E", decimal.NewFromInt(1000), 1)

	long := &domain.Order{Side: domain.Bid, Size: 2, Kind: domain.MarketOrder}
	a.submit(long)
	a.openTrade(long, 100, 2, base, 100, 101)

	short := &domain.Order{Side: domain.Ask, Size: 1, Kind: domain.MarketOrder}
	a.submit(short)
	a.openTrade(short, 100, 1, base, 100, 101)

	// cash = 1000 - 200 + 100 = 900; longs at bid 95, short at ask 105.
	got := a.MarkToMarket(95, 105)
	want := decimal.NewFromInt(900 + 2*95 - 1*105)
	if !got.Equal(want) {
		t.Fatalf("mark to market = %s, want %s", got, want)
	}
}

func TestAccountPriceScale(t *testing.T) {
	// Scale 100: prices are hundredths of a currency unit.
	a := NewAccount("AKBNK.E", decimal.NewFromInt(1000), 100)

	o := &domain.Order{Side: domain.Bid, Size: 10, Kind: domain.MarketOrder}
	a.submit(o)
	a.openTrade(o, 2550, 10, base, 2550, 2551) // 25.50 each

	if want := decimal.NewFromInt(745); !a.Cash().Equal(want) {
		t.Fatalf("cash = %s, want %s", a.Cash(), want)
	}
}

func TestAccountExecutionLog(t *testing.T) {
	a := NewAccount("AKBNK.E", decimal.NewFromInt(1000), 1)

	o := &domain.Order{Side: domain.Bid, Size: 5, Kind: domain.MarketOrder}
	a.submit(o)
	tr := a.openTrade(o, 100, 2, base, 100, 101)
	a.closeTrade(tr, 104, 2, base.Add(time.Second), 104, 105)

	execs := a.Executions()
	if len(execs) != 2 {
		t.Fatalf("executions = %d, want 2", len(execs))
	}
	if execs[0].Qty != 2 || execs[1].Qty != -2 {
		t.Errorf("signed qtys = (%d, %d), want (2, -2)", execs[0].Qty, execs[1].Qty)
	}
	// Each record carries post-execution balances.
	if execs[0].Position != 2 || execs[1].Position != 0 {
		t.Errorf("positions = (%d, %d), want (2, 0)", execs[0].Position, execs[1].Position)
	}

	// Order has 3 lots still waiting; trade IDs are independent of order IDs.
	if o.Waiting() != 3 {
		t.Errorf("waiting = %d, want 3", o.Waiting())
	}
	if o.ID != 1 || tr.ID != 1 {
		t.Errorf("ids: order=%d trade=%d, want independent sequences both starting at 1", o.ID, tr.ID)
	}
}

func TestWaitingOrdersSubmissionOrder(t *testing.T) {
	a := NewAccount("AKBNK.E", decimal.NewFromInt(1000), 1)

	first := &domain.Order{Side: domain.Bid, Size: 1, Kind: domain.MarketOrder}
	second := &domain.Order{Side: domain.Ask, Size: 1, Kind: domain.MarketOrder}
	a.submit(first)
	a.submit(second)

	got := a.WaitingOrders()
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("waiting orders not in submission order")
	}

	a.markDeleted(first.ID)
	got = a.WaitingOrders()
	if len(got) != 1 || got[0] != second {
		t.Fatalf("deleted order still waiting")
	}
}
