package book

import (
	"math/rand"
	"sort"
	"testing"
)

func collectAsc(t *levelTree) []int64 {
	var out []int64
	t.WalkAsc(func(l *Level) bool {
		out = append(out, l.Price)
		return true
	})
	return out
}

func TestTreeInsertWalkSorted(t *testing.T) {
	tr := newLevelTree()
	rng := rand.New(rand.NewSource(42))

	prices := rng.Perm(200)
	for _, p := range prices {
		tr.GetOrCreate(int64(p + 1))
	}
	if tr.Size() != 200 {
		t.Fatalf("size = %d, want 200", tr.Size())
	}

	got := collectAsc(tr)
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }) {
		t.Fatalf("WalkAsc not sorted: %v", got)
	}
	if got[0] != 1 || got[len(got)-1] != 200 {
		t.Fatalf("range = [%d, %d], want [1, 200]", got[0], got[len(got)-1])
	}

	var desc []int64
	tr.WalkDesc(func(l *Level) bool {
		desc = append(desc, l.Price)
		return true
	})
	for i := range desc {
		if desc[i] != got[len(got)-1-i] {
			t.Fatalf("WalkDesc[%d] = %d, want %d", i, desc[i], got[len(got)-1-i])
		}
	}
}

func TestTreeGetOrCreateIdempotent(t *testing.T) {
	tr := newLevelTree()
	a := tr.GetOrCreate(100)
	b := tr.GetOrCreate(100)
	if a != b {
		t.Fatal("GetOrCreate returned distinct levels for the same price")
	}
	if tr.Size() != 1 {
		t.Fatalf("size = %d, want 1", tr.Size())
	}
}

func TestTreeRemove(t *testing.T) {
	tr := newLevelTree()
	rng := rand.New(rand.NewSource(7))

	const n = 500
	for _, p := range rng.Perm(n) {
		tr.GetOrCreate(int64(p))
	}

	// Remove a random half and check order is preserved throughout.
	removed := map[int64]bool{}
	for _, p := range rng.Perm(n)[:n/2] {
		tr.Remove(int64(p))
		removed[int64(p)] = true
	}
	if tr.Size() != n/2 {
		t.Fatalf("size = %d, want %d", tr.Size(), n/2)
	}

	got := collectAsc(tr)
	var want []int64
	for p := int64(0); p < n; p++ {
		if !removed[p] {
			want = append(want, p)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("walk length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walk[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTreeMinMax(t *testing.T) {
	tr := newLevelTree()
	if tr.Min() != nil || tr.Max() != nil {
		t.Fatal("Min/Max of empty tree should be nil")
	}

	for _, p := range []int64{50, 10, 90, 30, 70} {
		tr.GetOrCreate(p)
	}
	if tr.Min().Price != 10 {
		t.Errorf("Min = %d, want 10", tr.Min().Price)
	}
	if tr.Max().Price != 90 {
		t.Errorf("Max = %d, want 90", tr.Max().Price)
	}

	tr.Remove(10)
	tr.Remove(90)
	if tr.Min().Price != 30 || tr.Max().Price != 70 {
		t.Errorf("after removals Min/Max = %d/%d, want 30/70", tr.Min().Price, tr.Max().Price)
	}
}

func TestTreeWalkEarlyStop(t *testing.T) {
	tr := newLevelTree()
	for p := int64(1); p <= 10; p++ {
		tr.GetOrCreate(p)
	}

	var seen []int64
	tr.WalkAsc(func(l *Level) bool {
		seen = append(seen, l.Price)
		return len(seen) < 3
	})
	if len(seen) != 3 || seen[2] != 3 {
		t.Fatalf("early stop walk = %v, want [1 2 3]", seen)
	}
}
