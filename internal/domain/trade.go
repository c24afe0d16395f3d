package domain

import "time"

// TradeClose records one (possibly partial) close of a trade.
type TradeClose struct {
	Price int64
	Qty   int64
	Time  time.Time
}

// Trade is a position opened by a fill. A Bid-side trade is a long position,
// an Ask-side trade a short. Partial closes accumulate in Closes; the trade
// is terminal once ActiveSize reaches zero.
type Trade struct {
	ID       uint64
	Ticker   string
	Side     Side
	Size     int64 // opening size
	Price    int64 // opening price
	OpenedAt time.Time

	StopLoss   int64 // zero disables
	TakeProfit int64 // zero disables

	Closes []TradeClose
}

// ActiveSize returns the quantity still open.
func (t *Trade) ActiveSize() int64 {
	closed := int64(0)
	for _, c := range t.Closes {
		closed += c.Qty
	}
	return t.Size - closed
}

// Open reports whether the trade still has active quantity.
func (t *Trade) Open() bool { return t.ActiveSize() > 0 }

// Close closes up to available lots at price, bounded by the active size,
// and returns the quantity actually closed.
func (t *Trade) Close(price, available int64, tm time.Time) int64 {
	qty := t.ActiveSize()
	if available < qty {
		qty = available
	}
	if qty <= 0 {
		return 0
	}
	t.Closes = append(t.Closes, TradeClose{Price: price, Qty: qty, Time: tm})
	return qty
}
