// Package latency models one-way order transmission delay. The matching
// engine stamps every submitted order with submit time plus a sampled delay,
// which is what prevents fills against book state that predates the order's
// arrival at the exchange.
package latency

import (
	"math/rand"
	"time"
)

// Model draws strictly-positive delays from a normal distribution. The rand
// source is injected so backtests are reproducible for a fixed seed.
type Model struct {
	mean   float64 // nanoseconds
	stddev float64 // nanoseconds
	rng    *rand.Rand
}

// New returns a Model sampling from Normal(mean, stddev).
func New(mean, stddev time.Duration, seed int64) *Model {
	return &Model{
		mean:   float64(mean),
		stddev: float64(stddev),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Sample draws one delay, resampling until it is strictly positive. A
// non-positive draw is an internal retry, never surfaced to callers.
func (m *Model) Sample() time.Duration {
	for {
		d := m.rng.NormFloat64()*m.stddev + m.mean
		if d > 0 {
			return time.Duration(d)
		}
	}
}

// VisibleAt returns the earliest time an order submitted at t can be seen by
// the exchange. Called exactly once per order, at submission.
func (m *Model) VisibleAt(t time.Time) time.Time {
	return t.Add(m.Sample())
}
