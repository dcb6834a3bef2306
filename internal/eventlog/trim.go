package eventlog

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

// trimInBatch deletes the oldest entries visible through b that violate limit,
// given total entries. maxDelete > 0 caps how many are removed.
func (l *Log) trimInBatch(b *pebble.Batch, total int64, limit Limit, maxDelete int) (trimRange, error) {
	var rng trimRange
	byLen := limit.excess(total)
	if byLen == 0 && limit.MinID.IsZero() {
		return rng, nil
	}
	low, high := entryBounds(l.stream)
	iter, err := b.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: high})
	if err != nil {
		return rng, err
	}
	var victims [][]byte
	for ok := iter.First(); ok; ok = iter.Next() {
		if maxDelete > 0 && len(victims) >= maxDelete {
			break
		}
		entry := idFromKey(iter.Key())
		if int64(len(victims)) >= byLen && !entry.Less(limit.MinID) {
			break
		}
		victims = append(victims, append([]byte(nil), iter.Key()...))
		if rng.n == 0 {
			rng.first = entry
		}
		rng.last = entry
		rng.n++
	}
	if err := iter.Close(); err != nil {
		return trimRange{}, err
	}
	for _, k := range victims {
		if err := b.Delete(k, nil); err != nil {
			return trimRange{}, err
		}
	}
	return rng, nil
}

// Trim applies limit to the stored entries and returns how many were removed.
func (l *Log) Trim(ctx context.Context, limit Limit) (int, error) {
	return l.trimStep(ctx, limit, 0)
}

func (l *Log) trimStep(ctx context.Context, limit Limit, maxDelete int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewIndexedBatch()
	defer b.Close()
	rng, err := l.trimInBatch(b, l.length, limit, maxDelete)
	if err != nil || rng.n == 0 {
		return 0, err
	}
	total := l.length - int64(rng.n)
	if err := l.putMeta(b, total); err != nil {
		return 0, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	l.length = total
	rng.emit(l)
	return rng.n, nil
}

// TrimOlderThan deletes entries whose id timestamp is below cutoffMs.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int, throttle time.Duration) (int, error) {
	if cutoffMs <= 0 {
		return 0, nil
	}
	return l.TrimBefore(ctx, id.ID{Ms: uint64(cutoffMs)}, batchLimit, throttle)
}

// TrimBefore deletes entries with ids below minID. Deletes are committed in
// batches of up to batchLimit keys with an optional throttle between commits
// so appends can interleave.
func (l *Log) TrimBefore(ctx context.Context, minID id.ID, batchLimit int, throttle time.Duration) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	if minID.IsZero() {
		return 0, nil
	}
	limit := Limit{MinID: minID}
	deleted := 0
	for {
		n, err := l.trimStep(ctx, limit, batchLimit)
		deleted += n
		if err != nil || n < batchLimit {
			return deleted, err
		}
		if throttle > 0 {
			select {
			case <-ctx.Done():
				return deleted, ctx.Err()
			case <-time.After(throttle):
			}
		}
	}
}
