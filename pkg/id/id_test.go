package id

import (
	"bytes"
	"math"
	"sync"
	"testing"
	"time"
)

func withClock(t *testing.T, fn func() int64) {
	t.Helper()
	NowMs = fn
	t.Cleanup(func() { NowMs = func() int64 { return time.Now().UnixMilli() } })
}

func TestOrderingMonotonic(t *testing.T) {
	withClock(t, func() int64 { return 1000 })
	g := NewGenerator()

	a := g.Next()
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a<b, got %s %s", a, b)
	}
	if a.String() != "1000-0" || b.String() != "1000-1" {
		t.Fatalf("unexpected ids %s %s", a, b)
	}
}

func TestClockRegressionGuard(t *testing.T) {
	now := int64(1000)
	withClock(t, func() int64 { return now })
	g := NewGenerator()

	a := g.Next() // uses 1000
	now = 900     // clock went backwards
	b := g.Next() // should still be > a
	if a.Compare(b) >= 0 {
		t.Fatalf("expected b>a despite clock regression")
	}
	if b.Ms != 1000 {
		t.Fatalf("expected pin to last ms, got %s", b)
	}
}

func TestSequenceOverflowRollsIntoNextMs(t *testing.T) {
	withClock(t, func() int64 { return 2000 })
	g := NewGenerator()
	g.Restore(ID{Ms: 2000, Seq: math.MaxUint64})

	got := g.Next()
	if got != (ID{Ms: 2001}) {
		t.Fatalf("got %s, want 2001-0", got)
	}
}

func TestRestoreNeverLowers(t *testing.T) {
	withClock(t, func() int64 { return 10 })
	g := NewGenerator()
	g.Restore(ID{Ms: 50, Seq: 3})
	g.Restore(ID{Ms: 20})
	if next := g.Next(); next != (ID{Ms: 50, Seq: 4}) {
		t.Fatalf("got %s, want 50-4", next)
	}
}

func TestConcurrentNextDistinct(t *testing.T) {
	withClock(t, func() int64 { return 5000 })
	g := NewGenerator()
	const n = 200
	var mu sync.Mutex
	seen := make(map[ID]struct{}, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := g.Next()
			mu.Lock()
			seen[v] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d distinct ids, got %d", n, len(seen))
	}
}

func TestParseAndBytesOrdering(t *testing.T) {
	a, err := Parse("1526919030474-55")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.String() != "1526919030474-55" {
		t.Fatalf("round trip: %s", a)
	}
	b, _ := Parse("1526919030474-56")
	if bytes.Compare(a.Bytes(), b.Bytes()) >= 0 {
		t.Fatalf("byte order should follow id order")
	}
	if back, ok := FromBytes(a.Bytes()); !ok || back != a {
		t.Fatalf("FromBytes mismatch: %v %v", back, ok)
	}
	for _, bad := range []string{"", "abc", "1-x", "-1"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseBound(t *testing.T) {
	lo, _ := ParseBound("-", false)
	hi, _ := ParseBound("+", true)
	if lo != Min || hi != Max {
		t.Fatalf("special bounds: %v %v", lo, hi)
	}
	end, err := ParseBound("100", true)
	if err != nil || end.Ms != 100 || end.Seq != math.MaxUint64 {
		t.Fatalf("bare end bound: %v %v", end, err)
	}
	start, _ := ParseBound("100", false)
	if start != (ID{Ms: 100}) {
		t.Fatalf("bare start bound: %v", start)
	}
}

func TestNextPrev(t *testing.T) {
	tests := []struct {
		in, next, prev ID
	}{
		{ID{Ms: 5, Seq: 1}, ID{Ms: 5, Seq: 2}, ID{Ms: 5, Seq: 0}},
		{ID{Ms: 5}, ID{Ms: 5, Seq: 1}, ID{Ms: 4, Seq: math.MaxUint64}},
		{Min, ID{Seq: 1}, Min},
		{Max, Max, ID{Ms: math.MaxUint64, Seq: math.MaxUint64 - 1}},
	}
	for _, tt := range tests {
		if got := tt.in.Next(); got != tt.next {
			t.Fatalf("%s.Next() = %s, want %s", tt.in, got, tt.next)
		}
		if got := tt.in.Prev(); got != tt.prev {
			t.Fatalf("%s.Prev() = %s, want %s", tt.in, got, tt.prev)
		}
	}
}
