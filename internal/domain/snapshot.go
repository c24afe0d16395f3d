package domain

import "time"

// SnapshotDepth is the number of price levels reported per side.
const SnapshotDepth = 3

// Level is a single price+quantity entry in a snapshot.
type Level struct {
	Price int64
	Qty   int64
}

// Zero reports whether the level slot is unoccupied.
func (l Level) Zero() bool { return l.Price == 0 && l.Qty == 0 }

// BookOrder is one resting order in a snapshot's compact book listing.
type BookOrder struct {
	Side    Side
	Price   int64
	Qty     int64
	OrderID uint64
}

// Snapshot is a point-in-time view of the reconstructed book: the top three
// levels per side, the resting orders at those levels, and the execution that
// happened at this exact timestamp, if any. Snapshots own copies of the data
// they report; they never alias live book state.
type Snapshot struct {
	Time  time.Time
	Asset string

	Bids [SnapshotDepth]Level // descending by price
	Asks [SnapshotDepth]Level // ascending by price

	// Depth lists every resting order at the reported levels, bids first.
	Depth []BookOrder

	// LastExecPrice/Qty describe the execution recorded at Time, or (0,0).
	LastExecPrice int64
	LastExecQty   int64
}

// BestBid returns the top bid level.
func (s Snapshot) BestBid() Level { return s.Bids[0] }

// BestAsk returns the top ask level.
func (s Snapshot) BestAsk() Level { return s.Asks[0] }
