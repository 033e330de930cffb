package book

import "testing"

func ladderPrices(l *ladder) []Price {
	out := make([]Price, 0, len(l.levels))
	for _, lvl := range l.levels {
		out = append(out, lvl.price)
	}
	return out
}

func TestLadder_BidOrdering(t *testing.T) {
	l := newLadder(true)
	for _, p := range []Price{100, 105, 95, 102} {
		l.upsert(p)
	}

	want := []Price{105, 102, 100, 95}
	got := ladderPrices(l)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bid ladder = %v, want %v", got, want)
		}
	}
	if l.best().price != 105 {
		t.Errorf("best bid = %d, want 105", l.best().price)
	}
}

func TestLadder_AskOrdering(t *testing.T) {
	l := newLadder(false)
	for _, p := range []Price{100, 95, 105, 98} {
		l.upsert(p)
	}

	want := []Price{95, 98, 100, 105}
	got := ladderPrices(l)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ask ladder = %v, want %v", got, want)
		}
	}
	if l.best().price != 95 {
		t.Errorf("best ask = %d, want 95", l.best().price)
	}
}

func TestLadder_UpsertReusesExistingLevel(t *testing.T) {
	l := newLadder(true)
	a := l.upsert(100)
	b := l.upsert(100)
	if a != b {
		t.Error("upsert of an existing price created a second level")
	}
	if l.depth() != 1 {
		t.Errorf("depth = %d, want 1", l.depth())
	}
}

func TestLadder_RemoveDropsLevel(t *testing.T) {
	l := newLadder(false)
	l.upsert(100)
	l.upsert(101)

	l.remove(100)
	if l.depth() != 1 {
		t.Fatalf("depth = %d, want 1", l.depth())
	}
	if l.get(100) != nil {
		t.Error("removed level still reachable by price")
	}
	if l.best().price != 101 {
		t.Errorf("best = %d, want 101", l.best().price)
	}

	l.remove(101)
	if !l.empty() || l.best() != nil {
		t.Error("ladder not empty after removing all levels")
	}
}
