package latency

import (
	"testing"
	"time"
)

func TestSampleStrictlyPositive(t *testing.T) {
	// Mean of zero forces roughly half the raw draws negative; every
	// returned sample must still be positive.
	m := New(0, 10*time.Millisecond, 1)
	for i := 0; i < 10_000; i++ {
		if d := m.Sample(); d <= 0 {
			t.Fatalf("sample %d = %v, want > 0", i, d)
		}
	}
}

func TestSampleDeterministicForSeed(t *testing.T) {
	a := New(40*time.Millisecond, 10*time.Millisecond, 99)
	b := New(40*time.Millisecond, 10*time.Millisecond, 99)
	for i := 0; i < 1000; i++ {
		if da, db := a.Sample(), b.Sample(); da != db {
			t.Fatalf("draw %d: %v != %v", i, da, db)
		}
	}

	c := New(40*time.Millisecond, 10*time.Millisecond, 100)
	same := true
	for i := 0; i < 10; i++ {
		if a.Sample() != c.Sample() {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical delay sequences")
	}
}

func TestVisibleAtAfterSubmission(t *testing.T) {
	m := New(40*time.Millisecond, 10*time.Millisecond, 5)
	submit := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 1000; i++ {
		if v := m.VisibleAt(submit); !v.After(submit) {
			t.Fatalf("VisibleAt = %v, not after %v", v, submit)
		}
	}
}

func TestZeroStddevIsConstant(t *testing.T) {
	m := New(25*time.Millisecond, 0, 3)
	for i := 0; i < 100; i++ {
		if d := m.Sample(); d != 25*time.Millisecond {
			t.Fatalf("sample = %v, want 25ms", d)
		}
	}
}
