package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/gauthamkulal77/audio-pipeline/internal/storage/pebble"
	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

// TrimChunk is the granularity of approximate trims.
const TrimChunk = 100

// Limit bounds a stream. Zero values disable the corresponding rule.
type Limit struct {
	// MaxLen caps the number of entries.
	MaxLen int64
	// Approx trims only whole chunks of TrimChunk entries.
	Approx bool
	// MinID evicts every entry with a lower id.
	MinID id.ID
}

func (lim Limit) excess(total int64) int64 {
	if lim.MaxLen <= 0 || total <= lim.MaxLen {
		return 0
	}
	n := total - lim.MaxLen
	if lim.Approx {
		n -= n % TrimChunk
	}
	return n
}

// Options configures a Log.
type Options struct {
	Compress bool
	Hook     TrimHook
}

// Log provides append-only operations for one stream.
type Log struct {
	db       *pebblestore.DB
	stream   string
	compress bool
	hook     TrimHook

	mu     sync.Mutex
	gen    *id.Generator
	length int64
}

// OpenLog initializes a Log and loads the last id and length from metadata.
func OpenLog(db *pebblestore.DB, stream string, opts Options) (*Log, error) {
	l := &Log{db: db, stream: stream, compress: opts.Compress, hook: opts.Hook, gen: id.NewGenerator()}
	if l.hook == nil {
		l.hook = noopHook{}
	}
	meta, err := db.Get(KeyMeta(stream))
	switch {
	case err == nil && len(meta) >= 24:
		last, _ := id.FromBytes(meta[:16])
		l.gen.Restore(last)
		l.length = int64(binary.BigEndian.Uint64(meta[16:24]))
	case err != nil && !errors.Is(err, pebble.ErrNotFound):
		return nil, err
	}
	return l, nil
}

// Stream returns the stream name.
func (l *Log) Stream() string { return l.stream }

// Len returns the number of stored entries.
func (l *Log) Len() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.length
}

// LastID returns the highest id ever issued, including deleted entries.
func (l *Log) LastID() id.ID { return l.gen.Last() }

// Append writes recs and applies limit in one atomic batch. It returns the
// assigned ids and the number of entries trimmed.
func (l *Log) Append(ctx context.Context, recs []Fields, limit Limit) ([]id.ID, int, error) {
	if len(recs) == 0 {
		return nil, 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewIndexedBatch()
	defer b.Close()

	ids := make([]id.ID, len(recs))
	for i, r := range recs {
		ids[i] = l.gen.Next()
		if err := b.Set(KeyEntry(l.stream, ids[i]), EncodeRecord(r, l.compress), nil); err != nil {
			return nil, 0, err
		}
	}
	total := l.length + int64(len(recs))
	rng, err := l.trimInBatch(b, total, limit, 0)
	if err != nil {
		return nil, 0, err
	}
	total -= int64(rng.n)
	if err := l.putMeta(b, total); err != nil {
		return nil, 0, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, 0, err
	}
	l.length = total
	rng.emit(l)
	return ids, rng.n, nil
}

// Delete removes the given ids. Missing and duplicate ids are ignored. It
// returns the number of entries removed.
func (l *Log) Delete(ctx context.Context, ids []id.ID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seen := make(map[id.ID]struct{}, len(ids))
	removed := 0
	for _, v := range ids {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		key := KeyEntry(l.stream, v)
		if _, err := l.db.Get(key); err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				continue
			}
			return 0, err
		}
		if err := b.Delete(key, nil); err != nil {
			return 0, err
		}
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	total := l.length - int64(removed)
	if err := l.putMeta(b, total); err != nil {
		return 0, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	l.length = total
	return removed, nil
}

func (l *Log) putMeta(b *pebble.Batch, length int64) error {
	var meta [24]byte
	copy(meta[:16], l.gen.Last().Bytes())
	binary.BigEndian.PutUint64(meta[16:], uint64(length))
	return b.Set(KeyMeta(l.stream), meta[:], nil)
}
