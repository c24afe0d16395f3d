// Package book implements the reconstructed limit order book: bid and ask
// sides as red/black trees of price levels, each level a FIFO queue of
// resting orders with a cached aggregate quantity.
package book

import "github.com/ekinoksoz/lobsim/internal/domain"

// RestingOrder is an order sitting on the book. It is owned exclusively by
// the level it rests at and linked intrusively into the level's FIFO queue.
type RestingOrder struct {
	ID    uint64
	Side  domain.Side
	Price int64
	Qty   int64

	// Seq is the book-wide insertion sequence, giving time priority among
	// orders at the same price.
	Seq uint64

	next *RestingOrder
	prev *RestingOrder
}

// Next returns the order behind this one in the FIFO queue, read-only.
func (o *RestingOrder) Next() *RestingOrder { return o.next }

// Level is a FIFO queue of resting orders at a single price.
type Level struct {
	Price int64

	head *RestingOrder
	tail *RestingOrder

	// AggQty caches the sum of resting quantities at this level.
	AggQty     int64
	OrderCount int
}

func (l *Level) enqueue(o *RestingOrder) {
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	l.AggQty += o.Qty
	l.OrderCount++
}

// unlink removes o from the queue. The caller guarantees o belongs to l.
func (l *Level) unlink(o *RestingOrder) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil

	l.AggQty -= o.Qty
	l.OrderCount--
}

// reduce lowers o's resting quantity by qty, keeping the aggregate in sync.
func (l *Level) reduce(o *RestingOrder, qty int64) {
	o.Qty -= qty
	l.AggQty -= qty
}

// Empty reports whether the level holds no orders.
func (l *Level) Empty() bool { return l.head == nil }

// Head returns the first order in time priority, read-only.
func (l *Level) Head() *RestingOrder { return l.head }
