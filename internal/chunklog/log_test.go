package chunklog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage/local"
	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

func newTestLog(t *testing.T, opts Options) *Log {
	t.Helper()
	st, err := local.Open(local.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, opts)
}

func chunk(s string) Payload { return Payload{FieldAudioChunk: s} }

func mustParse(t *testing.T, s string) id.ID {
	t.Helper()
	v, err := id.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestTwelveChunksCapTen(t *testing.T) {
	l := newTestLog(t, Options{MaxLen: 10, ExactTrim: true})
	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		if _, err := l.Append(ctx, chunk(fmt.Sprintf("chunk%d", i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	recs, err := l.ReadRecent(ctx, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 10 {
		t.Fatalf("got %d records", len(recs))
	}
	for i, r := range recs {
		if want := fmt.Sprintf("chunk%d", 12-i); r.Chunk() != want {
			t.Fatalf("record %d = %q, want %q", i, r.Chunk(), want)
		}
	}
	if n, _ := l.Len(ctx); n != 10 {
		t.Fatalf("len = %d", n)
	}

	gone := map[string]bool{recs[9].ID: true, recs[8].ID: true}
	n, err := l.Delete(ctx, []string{recs[9].ID, recs[8].ID})
	if err != nil || n != 2 {
		t.Fatalf("delete chunk3 and chunk4: n=%d err=%v", n, err)
	}
	after, err := l.ReadRecent(ctx, 10)
	if err != nil {
		t.Fatalf("read after delete: %v", err)
	}
	if len(after) != 8 {
		t.Fatalf("got %d records after delete, want 8", len(after))
	}
	for i, r := range after {
		if gone[r.ID] {
			t.Fatalf("deleted record %s still returned", r.ID)
		}
		if want := fmt.Sprintf("chunk%d", 12-i); r.Chunk() != want {
			t.Fatalf("record %d = %q, want %q", i, r.Chunk(), want)
		}
	}
}

func TestReadRecentLeavesLogUnchanged(t *testing.T) {
	l := newTestLog(t, Options{MaxLen: 10, ExactTrim: true})
	ctx := context.Background()
	for i := 1; i <= 6; i++ {
		if _, err := l.Append(ctx, chunk(fmt.Sprintf("chunk%d", i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	snapshot := func() (int64, []Record) {
		n, err := l.Len(ctx)
		if err != nil {
			t.Fatalf("len: %v", err)
		}
		all, err := l.ReadRange(ctx, RangeOptions{})
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		return n, all
	}
	lenBefore, before := snapshot()
	for _, count := range []int{1, 3, 10, 50} {
		if _, err := l.ReadRecent(ctx, count); err != nil {
			t.Fatalf("read %d: %v", count, err)
		}
	}
	lenAfter, after := snapshot()
	if lenBefore != lenAfter || len(before) != len(after) {
		t.Fatalf("len changed: %d/%d records before, %d/%d after", lenBefore, len(before), lenAfter, len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].Chunk() != after[i].Chunk() {
			t.Fatalf("record %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestStoreClosedMidTrafficIsUnavailable(t *testing.T) {
	st, err := local.Open(local.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	l := New(st, Options{MaxLen: 10})
	ctx := context.Background()
	start := make(chan struct{})
	errs := make(chan error, 8*100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			<-start
			for i := 0; i < 100; i++ {
				var err error
				if g%2 == 0 {
					_, err = l.Append(ctx, chunk("x"))
				} else {
					_, err = l.ReadRecent(ctx, 10)
				}
				if err != nil {
					errs <- err
				}
			}
		}(g)
	}
	close(start)
	_ = st.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, storage.ErrClosed) {
			t.Fatalf("unexpected error %v", err)
		}
	}
}

func TestIDsIncreaseAndRecentIsNewestFirst(t *testing.T) {
	l := newTestLog(t, Options{})
	ctx := context.Background()
	var prev id.ID
	for i := 0; i < 20; i++ {
		s, err := l.Append(ctx, chunk("x"))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		cur := mustParse(t, s)
		if !prev.Less(cur) {
			t.Fatalf("id %s not greater than %s", cur, prev)
		}
		prev = cur
	}
	recs, _ := l.ReadRecent(ctx, 5)
	for i := 1; i < len(recs); i++ {
		if !mustParse(t, recs[i].ID).Less(mustParse(t, recs[i-1].ID)) {
			t.Fatalf("records not newest-first: %s then %s", recs[i-1].ID, recs[i].ID)
		}
	}
	if recs[0].ID != prev.String() {
		t.Fatalf("newest = %s, want %s", recs[0].ID, prev)
	}
}

func TestApproximateTrimStaysWithinSlack(t *testing.T) {
	l := newTestLog(t, Options{MaxLen: 10})
	ctx := context.Background()
	for i := 0; i < 250; i++ {
		if _, err := l.Append(ctx, chunk("x")); err != nil {
			t.Fatalf("append: %v", err)
		}
		n, _ := l.Len(ctx)
		if n > 10+99 {
			t.Fatalf("len %d after %d appends exceeds slack", n, i+1)
		}
	}
}

func TestDeleteSemantics(t *testing.T) {
	l := newTestLog(t, Options{})
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		s, _ := l.Append(ctx, chunk(fmt.Sprintf("c%d", i)))
		ids = append(ids, s)
	}

	n, err := l.Delete(ctx, []string{ids[0], ids[1], "1-0"})
	if err != nil || n != 2 {
		t.Fatalf("delete n=%d err=%v", n, err)
	}
	if n, err := l.Delete(ctx, []string{ids[0], ids[1]}); err != nil || n != 0 {
		t.Fatalf("repeat delete n=%d err=%v", n, err)
	}
	recs, _ := l.ReadRecent(ctx, 10)
	if len(recs) != 1 || recs[0].ID != ids[2] {
		t.Fatalf("unexpected remainder %+v", recs)
	}
}

func TestInvalidRequests(t *testing.T) {
	st := &fakeStore{}
	l := New(st, Options{})
	ctx := context.Background()

	if _, err := l.ReadRecent(ctx, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("count 0: %v", err)
	}
	if _, err := l.Delete(ctx, nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty delete: %v", err)
	}
	if _, err := l.Delete(ctx, []string{"abc"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("malformed delete: %v", err)
	}
	if _, err := l.ReadRange(ctx, RangeOptions{Start: "zzz"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad bound: %v", err)
	}
	if _, err := l.Append(ctx, Payload{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty payload: %v", err)
	}
	if st.calls != 0 {
		t.Fatalf("store called %d times for invalid input", st.calls)
	}
}

func TestStoreFailuresAreUnavailable(t *testing.T) {
	l := New(&fakeStore{err: errors.New("connection refused")}, Options{})
	ctx := context.Background()

	if _, err := l.Append(ctx, chunk("x")); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("append: %v", err)
	}
	if _, err := l.ReadRecent(ctx, 10); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("read: %v", err)
	}
	if _, err := l.Delete(ctx, []string{"1-1"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("delete: %v", err)
	}
}

func TestCallsAreBoundedByTimeout(t *testing.T) {
	l := New(&fakeStore{block: true}, Options{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := l.Append(context.Background(), chunk("x"))
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unavailable deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("call took %v", elapsed)
	}
}

func TestConcurrentProducersKeepOwnOrder(t *testing.T) {
	l := newTestLog(t, Options{MaxLen: 1000, ExactTrim: true})
	ctx := context.Background()
	const producers, perProducer = 8, 25

	var wg sync.WaitGroup
	results := make([][]string, producers)
	errs := make(chan error, producers)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s, err := l.Append(ctx, chunk(fmt.Sprintf("p%d-%d", p, i)))
				if err != nil {
					errs <- err
					return
				}
				results[p] = append(results[p], s)
			}
		}(p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("append: %v", err)
	}

	seen := make(map[string]struct{})
	for p, ids := range results {
		for i, s := range ids {
			if _, dup := seen[s]; dup {
				t.Fatalf("duplicate id %s", s)
			}
			seen[s] = struct{}{}
			if i > 0 && !mustParse(t, ids[i-1]).Less(mustParse(t, s)) {
				t.Fatalf("producer %d order broken at %d", p, i)
			}
		}
	}
	if n, _ := l.Len(ctx); n != producers*perProducer {
		t.Fatalf("len = %d", n)
	}
}

func TestPayloadPreservedAndRange(t *testing.T) {
	l := newTestLog(t, Options{})
	ctx := context.Background()
	payload := "héllo 🎵 \x00\x01 raw"
	var ids []string
	for _, s := range []string{payload, "b", "c"} {
		v, _ := l.Append(ctx, chunk(s))
		ids = append(ids, v)
	}
	recs, err := l.ReadRange(ctx, RangeOptions{Start: ids[0], End: ids[1]})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(recs) != 2 || recs[0].Chunk() != payload || recs[1].Chunk() != "b" {
		t.Fatalf("unexpected range %+v", recs)
	}
}

func TestTrimBefore(t *testing.T) {
	l := newTestLog(t, Options{})
	ctx := context.Background()
	_, _ = l.Append(ctx, chunk("old"))
	n, err := l.TrimBefore(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("trim n=%d err=%v", n, err)
	}
}

// fakeStore fails, blocks, or counts calls.
type fakeStore struct {
	err   error
	block bool
	calls int
}

func (f *fakeStore) op(ctx context.Context) error {
	f.calls++
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeStore) Append(ctx context.Context, _ string, _ map[string]string, _ storage.Trim) (string, error) {
	return "", f.op(ctx)
}
func (f *fakeStore) Range(ctx context.Context, _, _, _ string, _ int) ([]storage.Entry, error) {
	return nil, f.op(ctx)
}
func (f *fakeStore) RevRange(ctx context.Context, _, _, _ string, _ int) ([]storage.Entry, error) {
	return nil, f.op(ctx)
}
func (f *fakeStore) Del(ctx context.Context, _ string, _ []string) (int, error) { return 0, f.op(ctx) }
func (f *fakeStore) Len(ctx context.Context, _ string) (int64, error)           { return 0, f.op(ctx) }
func (f *fakeStore) TrimStream(ctx context.Context, _ string, _ storage.Trim) (int, error) {
	return 0, f.op(ctx)
}
func (f *fakeStore) Ping(ctx context.Context) error { return f.op(ctx) }
func (f *fakeStore) Close() error                   { return nil }
