// Package reconstruct replays raw book messages into a Book and emits
// point-in-time snapshots, one per distinct timestamp.
package reconstruct

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ekinoksoz/lobsim/internal/book"
	"github.com/ekinoksoz/lobsim/internal/domain"
)

// Reconstructor applies an ordered stream of Add/Delete/Execute messages to a
// Book. After every message it produces a snapshot at the message's sequence
// time; messages sharing a timestamp collapse to a single snapshot carrying
// the final state.
type Reconstructor struct {
	asset  string
	book   *book.Book
	logger *slog.Logger

	snaps []domain.Snapshot

	// Execution recorded at lastExecTime, folded into the snapshot emitted
	// for that exact timestamp.
	lastExecTime  time.Time
	lastExecPrice int64
	lastExecQty   int64

	skipped int
}

// New returns a Reconstructor for one asset.
func New(asset string, logger *slog.Logger) *Reconstructor {
	return &Reconstructor{
		asset:  asset,
		book:   book.New(),
		logger: logger.With(slog.String("component", "reconstructor"), slog.String("asset", asset)),
	}
}

// Book exposes the underlying book, read-only by convention. The build phase
// owns all mutation.
func (r *Reconstructor) Book() *book.Book { return r.book }

// Skipped returns the number of messages dropped as unknown or duplicate.
func (r *Reconstructor) Skipped() int { return r.skipped }

// OnMessage applies one message and records the resulting snapshot. Unknown
// and duplicate order references are logged and skipped: the source stream
// may reference orders outside the replay window, and aborting the replay for
// them would discard an otherwise consistent book.
func (r *Reconstructor) OnMessage(ctx context.Context, msg domain.Message) {
	var err error
	switch msg.Kind {
	case domain.MsgAdd:
		err = r.book.Add(msg.OrderID, msg.Side, msg.Price, msg.Qty)
	case domain.MsgDelete:
		err = r.book.Delete(msg.OrderID, msg.Side)
	case domain.MsgExecute:
		var restingPrice int64
		restingPrice, err = r.book.Reduce(msg.OrderID, msg.Side, msg.Qty)
		if err == nil {
			r.lastExecTime = msg.SeqTime
			r.lastExecPrice = restingPrice
			r.lastExecQty = msg.Qty
		}
	}

	if err != nil {
		if errors.Is(err, domain.ErrUnknownOrder) || errors.Is(err, domain.ErrDuplicateOrder) {
			r.skipped++
			r.logger.WarnContext(ctx, "skipping unreplayable message",
				slog.String("kind", msg.Kind.String()),
				slog.Uint64("order_id", msg.OrderID),
				slog.String("error", err.Error()),
			)
		} else {
			r.logger.ErrorContext(ctx, "message replay failed",
				slog.Uint64("order_id", msg.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	r.record(msg.SeqTime)
}

// record captures the book state at t, replacing the previous snapshot when
// it carries the same timestamp.
func (r *Reconstructor) record(t time.Time) {
	snap := r.snapshotAt(t)
	if n := len(r.snaps); n > 0 && r.snaps[n-1].Time.Equal(t) {
		r.snaps[n-1] = snap
		return
	}
	r.snaps = append(r.snaps, snap)
}

func (r *Reconstructor) snapshotAt(t time.Time) domain.Snapshot {
	snap := domain.Snapshot{Time: t, Asset: r.asset}

	for i, l := range r.book.TopLevels(domain.Bid, domain.SnapshotDepth) {
		snap.Bids[i] = l
	}
	for i, l := range r.book.TopLevels(domain.Ask, domain.SnapshotDepth) {
		snap.Asks[i] = l
	}

	snap.Depth = append(
		r.book.OrdersAt(domain.Bid, domain.SnapshotDepth),
		r.book.OrdersAt(domain.Ask, domain.SnapshotDepth)...,
	)

	if r.lastExecTime.Equal(t) {
		snap.LastExecPrice = r.lastExecPrice
		snap.LastExecQty = r.lastExecQty
	}
	return snap
}

// Snapshots returns the time-ordered, timestamp-unique snapshot sequence.
func (r *Reconstructor) Snapshots() []domain.Snapshot { return r.snaps }

// Run consumes messages from in until it closes or the context is cancelled,
// streaming each finalized snapshot to out. A snapshot for timestamp t is
// final once a message with a later timestamp arrives, so downstream never
// observes a half-applied timestep.
func (r *Reconstructor) Run(ctx context.Context, in <-chan domain.Message, out chan<- domain.Snapshot) error {
	defer close(out)

	emitted := 0
	flushTo := func(n int) error {
		for ; emitted < n; emitted++ {
			select {
			case out <- r.snaps[emitted]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return flushTo(len(r.snaps))
			}
			r.OnMessage(ctx, msg)
			// Everything before the current (still replaceable) snapshot
			// is final.
			if err := flushTo(len(r.snaps) - 1); err != nil {
				return err
			}
		}
	}
}
