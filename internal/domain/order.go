package domain

import "time"

// OrderKind is the tagged variant of a strategy order.
type OrderKind uint8

const (
	MarketOrder OrderKind = iota
	LimitOrder
	DeleteOrder
)

// String returns a human-readable kind name.
func (k OrderKind) String() string {
	switch k {
	case MarketOrder:
		return "market"
	case LimitOrder:
		return "limit"
	default:
		return "delete"
	}
}

// Fill records a single (possibly partial) execution of a strategy order.
type Fill struct {
	Price int64
	Qty   int64
	Time  time.Time
}

// Order is an order submitted by a strategy to the matching engine.
//
// Lifecycle: created by the strategy, invisible to matching until VisibleAt
// (submission time plus simulated latency), eligible while Waiting() > 0 and
// not deleted, terminal once fully filled or deleted. A deleted order keeps
// its already-executed quantity.
type Order struct {
	ID     uint64
	Ticker string
	Side   Side
	Size   int64
	Kind   OrderKind

	LimitPrice int64  // LimitOrder only
	TargetID   uint64 // DeleteOrder only

	// StopLoss/TakeProfit are carried onto the trades this order opens.
	// Zero disables the respective trigger.
	StopLoss   int64
	TakeProfit int64

	SubmittedAt time.Time
	VisibleAt   time.Time

	Deleted bool
	Fills   []Fill
}

// Executed returns the total filled quantity.
func (o *Order) Executed() int64 {
	var total int64
	for _, f := range o.Fills {
		total += f.Qty
	}
	return total
}

// Waiting returns the quantity still waiting to be filled.
func (o *Order) Waiting() int64 {
	return o.Size - o.Executed()
}

// Terminal reports whether the order can no longer fill. A delete order has
// no quantity of its own; it is pending until it has been applied.
func (o *Order) Terminal() bool {
	if o.Kind == DeleteOrder {
		return o.Deleted
	}
	return o.Deleted || o.Waiting() <= 0
}

// Execute appends a fill record, clamping qty to the waiting quantity.
// It returns the quantity actually filled.
func (o *Order) Execute(price, qty int64, t time.Time) int64 {
	if w := o.Waiting(); qty > w {
		qty = w
	}
	if qty <= 0 {
		return 0
	}
	o.Fills = append(o.Fills, Fill{Price: price, Qty: qty, Time: t})
	return qty
}
