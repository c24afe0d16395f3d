package feed

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const messagesCSV = `network_time,bist_time,msg_type,asset,side,price,que_loc,qty,order_id
2026-03-02 10:00:00.000000001,2026-03-02 10:00:00.000000002,A,AKBNK.E,B,25.50,1,100,11
2026-03-02 10:00:01,2026-03-02 10:00:01,A,AKBNK.E,S,25.60,1,50,12
2026-03-02 10:00:02,2026-03-02 10:00:02,X,AKBNK.E,B,25.50,1,10,13
2026-03-02 10:00:03,2026-03-02 10:00:03,E,AKBNK.E,S,25.60,1,not-a-number,12
2026-03-02 10:00:04,2026-03-02 10:00:04,D,AKBNK.E,B,25.50,1,100,11
`

func TestMessageReader(t *testing.T) {
	mr, err := NewMessageReader(strings.NewReader(messagesCSV), 100, discard())
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := mr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// Rows 3 (unknown msg_type) and 4 (bad qty) are dropped.
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if mr.Skipped() != 2 {
		t.Errorf("skipped = %d, want 2", mr.Skipped())
	}

	first := msgs[0]
	if first.Kind != domain.MsgAdd || first.Side != domain.Bid {
		t.Errorf("first message kind/side = %v/%v", first.Kind, first.Side)
	}
	if first.Price != 2550 {
		t.Errorf("price = %d ticks, want 2550", first.Price)
	}
	if first.Qty != 100 || first.OrderID != 11 {
		t.Errorf("qty/order_id = %d/%d", first.Qty, first.OrderID)
	}
	wantSeq := time.Date(2026, 3, 2, 10, 0, 0, 2, time.UTC)
	if !first.SeqTime.Equal(wantSeq) {
		t.Errorf("seq time = %v, want %v", first.SeqTime, wantSeq)
	}

	if last := msgs[2]; last.Kind != domain.MsgDelete {
		t.Errorf("last message kind = %v, want delete", last.Kind)
	}
}

func TestMessageReaderMissingColumns(t *testing.T) {
	_, err := NewMessageReader(strings.NewReader("network_time,msg_type\n"), 100, discard())
	var se *domain.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	if len(se.Missing) == 0 {
		t.Fatal("SchemaError lists no missing columns")
	}
}

func TestMessageReaderPriceFinerThanScale(t *testing.T) {
	csv := "network_time,bist_time,msg_type,asset,side,price,que_loc,qty,order_id\n" +
		"2026-03-02 10:00:00,2026-03-02 10:00:00,A,AKBNK.E,B,25.505,1,100,11\n"
	mr, err := NewMessageReader(strings.NewReader(csv), 100, discard())
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := mr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// A sub-tick price cannot be represented; the row is dropped.
	if len(msgs) != 0 || mr.Skipped() != 1 {
		t.Fatalf("messages/skipped = %d/%d, want 0/1", len(msgs), mr.Skipped())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := domain.Snapshot{
		Time:  time.Date(2026, 3, 2, 10, 0, 1, 500000000, time.UTC),
		Asset: "AKBNK.E",
		Bids: [domain.SnapshotDepth]domain.Level{
			{Price: 2550, Qty: 100},
			{Price: 2549, Qty: 40},
		},
		Asks: [domain.SnapshotDepth]domain.Level{
			{Price: 2551, Qty: 60},
		},
		Depth: []domain.BookOrder{
			{Side: domain.Bid, Price: 2550, Qty: 100, OrderID: 11},
			{Side: domain.Bid, Price: 2549, Qty: 40, OrderID: 12},
			{Side: domain.Ask, Price: 2551, Qty: 60, OrderID: 13},
		},
		LastExecPrice: 2550,
		LastExecQty:   10,
	}

	var buf bytes.Buffer
	sw := NewSnapshotWriter(&buf, 100)
	if err := sw.WriteAll([]domain.Snapshot{snap}); err != nil {
		t.Fatal(err)
	}

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	for _, col := range []string{"Date", "Asset", "bid1qty", "bid1px", "ask3qty", "Mold Package"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing column %q: %s", col, header)
		}
	}
	if !strings.Contains(buf.String(), "A-B-25.5-100-11;A-B-25.49-40-12;A-S-25.51-60-13") {
		t.Errorf("compact listing not serialized as expected:\n%s", buf.String())
	}

	sr, err := NewSnapshotReader(&buf, 100)
	if err != nil {
		t.Fatal(err)
	}
	got, err := sr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(got))
	}

	rt := got[0]
	if !rt.Time.Equal(snap.Time) || rt.Asset != snap.Asset {
		t.Errorf("time/asset = %v/%s", rt.Time, rt.Asset)
	}
	if rt.Bids != snap.Bids || rt.Asks != snap.Asks {
		t.Errorf("levels round trip mismatch:\ngot  %+v %+v\nwant %+v %+v", rt.Bids, rt.Asks, snap.Bids, snap.Asks)
	}
	if len(rt.Depth) != len(snap.Depth) {
		t.Fatalf("depth entries = %d, want %d", len(rt.Depth), len(snap.Depth))
	}
	for i := range snap.Depth {
		if rt.Depth[i] != snap.Depth[i] {
			t.Errorf("depth[%d] = %+v, want %+v", i, rt.Depth[i], snap.Depth[i])
		}
	}
	if rt.LastExecPrice != 2550 || rt.LastExecQty != 10 {
		t.Errorf("last exec = (%d, %d), want (2550, 10)", rt.LastExecPrice, rt.LastExecQty)
	}
}

func TestSnapshotReaderMissingColumnsFatal(t *testing.T) {
	csv := "Date,Asset,bid1qty,bid1px\n2026-03-02 10:00:00,AKBNK.E,1,25.50\n"
	_, err := NewSnapshotReader(strings.NewReader(csv), 100)
	var se *domain.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	for _, col := range []string{"ask1px", "Mold Package"} {
		found := false
		for _, m := range se.Missing {
			if m == col {
				found = true
			}
		}
		if !found {
			t.Errorf("SchemaError.Missing lacks %q: %v", col, se.Missing)
		}
	}
}

func TestSnapshotReaderToleratesMissingExecColumns(t *testing.T) {
	// A series produced by an older tool without the execution columns
	// still loads, with zero last-execution fields.
	csv := "Date,Asset,bid1qty,bid1px,bid2qty,bid2px,bid3qty,bid3px,ask1px,ask1qty,ask2px,ask2qty,ask3px,ask3qty,Mold Package\n" +
		"2026-03-02 10:00:00,AKBNK.E,100,25.50,0,0,0,0,25.51,60,0,0,0,0,A-B-25.5-100-11\n"
	sr, err := NewSnapshotReader(strings.NewReader(csv), 100)
	if err != nil {
		t.Fatal(err)
	}
	got, err := sr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got[0].LastExecPrice != 0 || got[0].LastExecQty != 0 {
		t.Errorf("last exec = (%d, %d), want zeros", got[0].LastExecPrice, got[0].LastExecQty)
	}
	if got[0].BestBid() != (domain.Level{Price: 2550, Qty: 100}) {
		t.Errorf("best bid = %+v", got[0].BestBid())
	}
}
