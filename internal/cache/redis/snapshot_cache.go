package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

// historyLen caps the per-asset snapshot history list.
const historyLen = 1000

// SnapshotCache publishes reconstructed snapshots to Redis.
//
// Key schema:
//
//	lob:{asset}:top     - hash with bid{1..3}px/qty, ask{1..3}px/qty, ts
//	lob:{asset}:history - list of "ts|bid1px|bid1qty|ask1px|ask1qty",
//	                      newest first, capped at historyLen entries
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func topKey(asset string) string     { return "lob:" + asset + ":top" }
func historyKey(asset string) string { return "lob:" + asset + ":history" }

// Publish replaces the top-of-book hash for the snapshot's asset and appends
// a compact history entry, trimming the history to its cap. Both writes go
// through one pipeline so a reader never sees the hash and the history out
// of step.
func (sc *SnapshotCache) Publish(ctx context.Context, snap domain.Snapshot) error {
	fields := map[string]any{
		"ts": strconv.FormatInt(snap.Time.UnixNano(), 10),
	}
	for i := 0; i < domain.SnapshotDepth; i++ {
		n := strconv.Itoa(i + 1)
		fields["bid"+n+"px"] = strconv.FormatInt(snap.Bids[i].Price, 10)
		fields["bid"+n+"qty"] = strconv.FormatInt(snap.Bids[i].Qty, 10)
		fields["ask"+n+"px"] = strconv.FormatInt(snap.Asks[i].Price, 10)
		fields["ask"+n+"qty"] = strconv.FormatInt(snap.Asks[i].Qty, 10)
	}

	entry := fmt.Sprintf("%d|%d|%d|%d|%d",
		snap.Time.UnixNano(),
		snap.BestBid().Price, snap.BestBid().Qty,
		snap.BestAsk().Price, snap.BestAsk().Qty,
	)

	pipe := sc.rdb.TxPipeline()
	pipe.HSet(ctx, topKey(snap.Asset), fields)
	pipe.LPush(ctx, historyKey(snap.Asset), entry)
	pipe.LTrim(ctx, historyKey(snap.Asset), 0, historyLen-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish snapshot %s: %w", snap.Asset, err)
	}
	return nil
}

// Top reads the current top-of-book for an asset. It returns
// domain.ErrNotFound when nothing has been published yet.
func (sc *SnapshotCache) Top(ctx context.Context, asset string) (domain.Snapshot, error) {
	fields, err := sc.rdb.HGetAll(ctx, topKey(asset)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, fmt.Errorf("redis: get top %s: %w", asset, err)
	}
	if len(fields) == 0 {
		return domain.Snapshot{}, fmt.Errorf("redis: top %s: %w", asset, domain.ErrNotFound)
	}

	snap := domain.Snapshot{Asset: asset}
	if ns, err := strconv.ParseInt(fields["ts"], 10, 64); err == nil {
		snap.Time = time.Unix(0, ns)
	}
	parse := func(name string) int64 {
		v, _ := strconv.ParseInt(fields[name], 10, 64)
		return v
	}
	for i := 0; i < domain.SnapshotDepth; i++ {
		n := strconv.Itoa(i + 1)
		snap.Bids[i] = domain.Level{Price: parse("bid" + n + "px"), Qty: parse("bid" + n + "qty")}
		snap.Asks[i] = domain.Level{Price: parse("ask" + n + "px"), Qty: parse("ask" + n + "qty")}
	}
	return snap, nil
}

// Clear removes the published state for an asset, typically before a fresh
// replay of the same instrument.
func (sc *SnapshotCache) Clear(ctx context.Context, asset string) error {
	if err := sc.rdb.Del(ctx, topKey(asset), historyKey(asset)).Err(); err != nil {
		return fmt.Errorf("redis: clear %s: %w", asset, err)
	}
	return nil
}
