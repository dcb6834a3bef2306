package eventlog

import (
	"context"
	"testing"

	pebblestore "github.com/gauthamkulal77/audio-pipeline/internal/storage/pebble"
	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

func openTestDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func newTestLog(t *testing.T, opts Options) *Log {
	t.Helper()
	db := openTestDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "audio_stream", opts)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func chunks(vals ...string) []Fields {
	out := make([]Fields, len(vals))
	for i, v := range vals {
		out[i] = Fields{"audioChunk": v}
	}
	return out
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	l := newTestLog(t, Options{})
	ids, trimmed, err := l.Append(context.Background(), chunks("a", "b"), Limit{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(ids) != 2 || trimmed != 0 {
		t.Fatalf("want 2 ids and no trim, got %d/%d", len(ids), trimmed)
	}
	if !ids[0].Less(ids[1]) {
		t.Fatalf("expected increasing ids: %v", ids)
	}
	if l.Len() != 2 {
		t.Fatalf("len = %d", l.Len())
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db := openTestDB(t, dir)
	l, _ := OpenLog(db, "audio_stream", Options{})
	ids, _, err := l.Append(ctx, chunks("a", "b", "c"), Limit{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	// emptying the stream must not let ids be reissued
	if _, err := l.Delete(ctx, ids); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = db.Close()

	db = openTestDB(t, dir)
	t.Cleanup(func() { _ = db.Close() })
	l, err = OpenLog(db, "audio_stream", Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("len after reopen = %d", l.Len())
	}
	next, _, err := l.Append(ctx, chunks("d"), Limit{})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if !ids[2].Less(next[0]) {
		t.Fatalf("id %s reissued at or below %s", next[0], ids[2])
	}
}

func TestDeleteIgnoresMissingAndDuplicates(t *testing.T) {
	l := newTestLog(t, Options{})
	ctx := context.Background()
	ids, _, _ := l.Append(ctx, chunks("a", "b", "c"), Limit{})

	n, err := l.Delete(ctx, []id.ID{ids[0], ids[0], {Ms: 1, Seq: 1}})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	if n, _ := l.Delete(ctx, []id.ID{ids[0]}); n != 0 {
		t.Fatalf("repeat delete removed %d", n)
	}
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
}

func TestStreamsAreIsolated(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	a, _ := OpenLog(db, "a", Options{})
	b, _ := OpenLog(db, "b", Options{})
	ctx := context.Background()
	_, _, _ = a.Append(ctx, chunks("1", "2"), Limit{})
	_, _, _ = b.Append(ctx, chunks("x"), Limit{})

	items, err := b.Read(ReadOptions{Start: id.Min, End: id.Max})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 1 || items[0].Fields["audioChunk"] != "x" {
		t.Fatalf("unexpected items in b: %+v", items)
	}
}
