package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

// Account is the ledger for one strategy/asset pair: cash, submitted orders,
// trades, and the execution log. It is owned and mutated exclusively by the
// engine; strategies see it through the strategy.Account interface.
type Account struct {
	ticker     string
	priceScale int64

	initialCash decimal.Decimal
	cash        decimal.Decimal

	orders   []*domain.Order
	ordersBy map[uint64]*domain.Order

	trades []*domain.Trade

	executions []domain.Execution

	orderIDs *domain.IDGenerator
	tradeIDs *domain.IDGenerator
}

// NewAccount returns an empty account holding initialCash.
func NewAccount(ticker string, initialCash decimal.Decimal, priceScale int64) *Account {
	if priceScale <= 0 {
		priceScale = 1
	}
	return &Account{
		ticker:      ticker,
		priceScale:  priceScale,
		initialCash: initialCash,
		cash:        initialCash,
		ordersBy:    make(map[uint64]*domain.Order),
		orderIDs:    domain.NewIDGenerator("order"),
		tradeIDs:    domain.NewIDGenerator("trade"),
	}
}

// Cash returns the current cash balance.
func (a *Account) Cash() decimal.Decimal { return a.cash }

// InitialCash returns the balance the account started with.
func (a *Account) InitialCash() decimal.Decimal { return a.initialCash }

// Position returns the signed open quantity: long trades count positive,
// shorts negative.
func (a *Account) Position() int64 {
	var pos int64
	for _, t := range a.trades {
		if t.Side == domain.Bid {
			pos += t.ActiveSize()
		} else {
			pos -= t.ActiveSize()
		}
	}
	return pos
}

// WaitingOrders returns non-terminal orders in submission order. Submission
// order is iteration order everywhere in the engine, which keeps replays
// deterministic.
func (a *Account) WaitingOrders() []*domain.Order {
	var out []*domain.Order
	for _, o := range a.orders {
		if !o.Terminal() {
			out = append(out, o)
		}
	}
	return out
}

// OpenPositions returns trades with active quantity, in opening order.
func (a *Account) OpenPositions() []*domain.Trade {
	var out []*domain.Trade
	for _, t := range a.trades {
		if t.Open() {
			out = append(out, t)
		}
	}
	return out
}

// Order returns a submitted order by ID.
func (a *Account) Order(id uint64) (*domain.Order, bool) {
	o, ok := a.ordersBy[id]
	return o, ok
}

// Trades returns every trade opened during the run.
func (a *Account) Trades() []*domain.Trade { return a.trades }

// Executions returns the time-ordered execution log.
func (a *Account) Executions() []domain.Execution { return a.executions }

// submit assigns an ID and registers the order. Timestamps are stamped by
// the engine before submission.
func (a *Account) submit(o *domain.Order) uint64 {
	o.ID = a.orderIDs.Next()
	if o.Ticker == "" {
		o.Ticker = a.ticker
	}
	a.orders = append(a.orders, o)
	a.ordersBy[o.ID] = o
	return o.ID
}

// markDeleted flags an order as deleted. Already-executed quantity stands.
func (a *Account) markDeleted(id uint64) bool {
	o, ok := a.ordersBy[id]
	if !ok {
		return false
	}
	o.Deleted = true
	return true
}

// openTrade fills order o for up to qty lots at price, opening a trade that
// carries the order's exit triggers, and applies the signed cash flow.
func (a *Account) openTrade(o *domain.Order, price, qty int64, t time.Time, markBid, markAsk int64) *domain.Trade {
	filled := o.Execute(price, qty, t)
	if filled <= 0 {
		return nil
	}

	trade := &domain.Trade{
		ID:         a.tradeIDs.Next(),
		Ticker:     o.Ticker,
		Side:       o.Side,
		Size:       filled,
		Price:      price,
		OpenedAt:   t,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
	}
	a.trades = append(a.trades, trade)

	signed := filled
	if o.Side == domain.Ask {
		signed = -filled
	}
	a.apply(t, price, signed, markBid, markAsk)
	return trade
}

// closeTrade closes up to available lots of a trade at price and applies the
// signed cash flow of the exit. It returns the quantity closed.
func (a *Account) closeTrade(trade *domain.Trade, price, available int64, t time.Time, markBid, markAsk int64) int64 {
	closed := trade.Close(price, available, t)
	if closed <= 0 {
		return 0
	}

	// Closing a long sells, closing a short buys back.
	signed := -closed
	if trade.Side == domain.Ask {
		signed = closed
	}
	a.apply(t, price, signed, markBid, markAsk)
	return closed
}

// apply books one execution: cash -= signed*price, then logs the record with
// the resulting balances.
func (a *Account) apply(t time.Time, price, signedQty int64, markBid, markAsk int64) {
	a.cash = a.cash.Sub(domain.Notional(price, signedQty, a.priceScale))
	a.executions = append(a.executions, domain.Execution{
		Time:         t,
		Price:        price,
		Qty:          signedQty,
		Cash:         a.cash,
		Position:     a.Position(),
		MarkToMarket: a.MarkToMarket(markBid, markAsk),
	})
}

// MarkToMarket values the account at the given top-of-book prices: cash plus
// open longs at the bid, minus open shorts at the ask.
func (a *Account) MarkToMarket(bid, ask int64) decimal.Decimal {
	value := a.cash
	for _, tr := range a.trades {
		active := tr.ActiveSize()
		if active <= 0 {
			continue
		}
		if tr.Side == domain.Bid {
			value = value.Add(domain.Notional(bid, active, a.priceScale))
		} else {
			value = value.Sub(domain.Notional(ask, active, a.priceScale))
		}
	}
	return value
}

// assetValue is the position component of MarkToMarket on its own.
func (a *Account) assetValue(bid, ask int64) decimal.Decimal {
	return a.MarkToMarket(bid, ask).Sub(a.cash)
}
