package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Execution is one entry in the run's execution log. Qty is signed: positive
// for buys, negative for sells. Cash, Position, and MarkToMarket are the
// account values immediately after the execution was applied.
type Execution struct {
	Time         time.Time
	Price        int64
	Qty          int64
	Cash         decimal.Decimal
	Position     int64
	MarkToMarket decimal.Decimal
}

// RunResult summarises a completed backtest run.
type RunResult struct {
	RunID    string
	Asset    string
	Strategy string

	InitialCash decimal.Decimal
	FinalCash   decimal.Decimal

	// FinalPosition is the signed open quantity at the end of the run;
	// AssetValue marks it to the last nonzero bid (longs) or ask (shorts).
	FinalPosition int64
	AssetValue    decimal.Decimal
	FinalEquity   decimal.Decimal

	Executions []Execution
	Trades     []*Trade

	StartedAt  time.Time
	FinishedAt time.Time
}

// Notional converts a price in ticks and a quantity in lots to a currency
// amount, dividing out the configured price scale.
func Notional(price, qty, priceScale int64) decimal.Decimal {
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(qty)).
		Div(decimal.NewFromInt(priceScale))
}
