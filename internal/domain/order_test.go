package domain

import (
	"testing"
	"time"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestOrderExecuteClampsToWaiting(t *testing.T) {
	o := &Order{Side: Bid, Size: 10, Kind: MarketOrder}

	if got := o.Execute(100, 4, base); got != 4 {
		t.Fatalf("first fill = %d, want 4", got)
	}
	if o.Waiting() != 6 {
		t.Fatalf("waiting = %d, want 6", o.Waiting())
	}

	// Offered more than remains; clamp to 6.
	if got := o.Execute(101, 9, base.Add(time.Second)); got != 6 {
		t.Fatalf("second fill = %d, want 6", got)
	}
	if !o.Terminal() {
		t.Fatal("fully filled order not terminal")
	}
	if got := o.Execute(102, 1, base.Add(2*time.Second)); got != 0 {
		t.Fatalf("fill on terminal order = %d, want 0", got)
	}
	if len(o.Fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(o.Fills))
	}
}

func TestOrderDeletedKeepsExecuted(t *testing.T) {
	o := &Order{Side: Ask, Size: 10, Kind: LimitOrder, LimitPrice: 100}
	o.Execute(100, 3, base)
	o.Deleted = true

	if !o.Terminal() {
		t.Fatal("deleted order not terminal")
	}
	if o.Executed() != 3 {
		t.Fatalf("executed = %d, want 3 preserved after delete", o.Executed())
	}
}

func TestDeleteOrderPendingUntilApplied(t *testing.T) {
	o := &Order{Kind: DeleteOrder, TargetID: 7}
	if o.Terminal() {
		t.Fatal("unapplied delete order already terminal")
	}
	o.Deleted = true
	if !o.Terminal() {
		t.Fatal("applied delete order not terminal")
	}
}

func TestTradeCloseBounds(t *testing.T) {
	tr := &Trade{Side: Bid, Size: 10, Price: 100, OpenedAt: base}

	if got := tr.Close(105, 4, base.Add(time.Second)); got != 4 {
		t.Fatalf("first close = %d, want 4", got)
	}
	if tr.ActiveSize() != 6 {
		t.Fatalf("active = %d, want 6", tr.ActiveSize())
	}

	// Available liquidity exceeds the remainder; close only what is open.
	if got := tr.Close(106, 100, base.Add(2*time.Second)); got != 6 {
		t.Fatalf("second close = %d, want 6", got)
	}
	if tr.Open() {
		t.Fatal("fully closed trade still open")
	}
	if got := tr.Close(107, 1, base.Add(3*time.Second)); got != 0 {
		t.Fatalf("close on flat trade = %d, want 0", got)
	}
}

func TestSideAndKindCodes(t *testing.T) {
	if Bid.String() != "B" || Ask.String() != "S" {
		t.Errorf("side codes = %s/%s", Bid, Ask)
	}
	if Bid.Opposite() != Ask || Ask.Opposite() != Bid {
		t.Error("Opposite not symmetric")
	}

	for code, want := range map[string]MsgKind{"A": MsgAdd, "D": MsgDelete, "E": MsgExecute} {
		got, err := ParseMsgKind(code)
		if err != nil || got != want {
			t.Errorf("ParseMsgKind(%q) = %v, %v", code, got, err)
		}
	}
	if _, err := ParseMsgKind("Q"); err == nil {
		t.Error("unknown msg kind accepted")
	}
	if _, err := ParseSide("X"); err == nil {
		t.Error("unknown side accepted")
	}
}
