package book

import (
	"fmt"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

type orderKey struct {
	id   uint64
	side domain.Side
}

// Book is the reconstructed limit order book for one asset. It is
// single-writer: only the reconstructor mutates it, so no locking is needed.
type Book struct {
	bids *levelTree
	asks *levelTree

	// orders indexes every resting order by (id, side) for O(1) lookup on
	// Delete/Reduce. At most one resting order per key at any time.
	orders map[orderKey]*RestingOrder

	seq uint64
}

// New returns an empty Book.
func New() *Book {
	return &Book{
		bids:   newLevelTree(),
		asks:   newLevelTree(),
		orders: make(map[orderKey]*RestingOrder),
	}
}

func (b *Book) tree(side domain.Side) *levelTree {
	if side == domain.Bid {
		return b.bids
	}
	return b.asks
}

// Levels returns the number of distinct price levels on a side.
func (b *Book) Levels(side domain.Side) int { return b.tree(side).Size() }

// Add places a new resting order at the tail of the FIFO queue for price,
// creating the level if absent. It returns domain.ErrDuplicateOrder without
// touching state when id is already live on that side.
func (b *Book) Add(id uint64, side domain.Side, price, qty int64) error {
	key := orderKey{id: id, side: side}
	if _, ok := b.orders[key]; ok {
		return fmt.Errorf("add order %d side %s: %w", id, side, domain.ErrDuplicateOrder)
	}

	b.seq++
	o := &RestingOrder{ID: id, Side: side, Price: price, Qty: qty, Seq: b.seq}
	b.tree(side).GetOrCreate(price).enqueue(o)
	b.orders[key] = o
	return nil
}

// Delete removes a resting order from its level, dropping the level when it
// becomes empty. It returns domain.ErrUnknownOrder when id is not resting on
// that side; callers are expected to log and continue.
func (b *Book) Delete(id uint64, side domain.Side) error {
	key := orderKey{id: id, side: side}
	o, ok := b.orders[key]
	if !ok {
		return fmt.Errorf("delete order %d side %s: %w", id, side, domain.ErrUnknownOrder)
	}

	tree := b.tree(side)
	lvl := tree.Find(o.Price)
	lvl.unlink(o)
	if lvl.Empty() {
		tree.Remove(lvl.Price)
	}
	delete(b.orders, key)
	return nil
}

// Reduce decrements a resting order's quantity (an execution against it).
// When the remaining quantity drops to zero or below, the order is fully
// deleted. It returns the order's resting price so the caller can enrich the
// execution record, and domain.ErrUnknownOrder when id is absent.
func (b *Book) Reduce(id uint64, side domain.Side, qty int64) (price int64, err error) {
	key := orderKey{id: id, side: side}
	o, ok := b.orders[key]
	if !ok {
		return 0, fmt.Errorf("reduce order %d side %s: %w", id, side, domain.ErrUnknownOrder)
	}

	price = o.Price
	if o.Qty-qty <= 0 {
		return price, b.Delete(id, side)
	}

	b.tree(side).Find(o.Price).reduce(o, qty)
	return price, nil
}

// TopLevels returns up to n levels in price priority order: descending for
// bids, ascending for asks. It never mutates state.
func (b *Book) TopLevels(side domain.Side, n int) []domain.Level {
	out := make([]domain.Level, 0, n)
	visit := func(l *Level) bool {
		out = append(out, domain.Level{Price: l.Price, Qty: l.AggQty})
		return len(out) < n
	}
	if side == domain.Bid {
		b.bids.WalkDesc(visit)
	} else {
		b.asks.WalkAsc(visit)
	}
	return out
}

// OrdersAt returns the resting orders at the top n levels of a side in
// price-then-time priority, as snapshot copies.
func (b *Book) OrdersAt(side domain.Side, n int) []domain.BookOrder {
	var out []domain.BookOrder
	levels := 0
	visit := func(l *Level) bool {
		for o := l.Head(); o != nil; o = o.Next() {
			out = append(out, domain.BookOrder{
				Side:    o.Side,
				Price:   o.Price,
				Qty:     o.Qty,
				OrderID: o.ID,
			})
		}
		levels++
		return levels < n
	}
	if side == domain.Bid {
		b.bids.WalkDesc(visit)
	} else {
		b.asks.WalkAsc(visit)
	}
	return out
}
