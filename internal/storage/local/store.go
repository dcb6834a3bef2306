// Package local implements storage.Store on the embedded event log.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gauthamkulal77/audio-pipeline/internal/eventlog"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
	pebblestore "github.com/gauthamkulal77/audio-pipeline/internal/storage/pebble"
	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

// Options configures the embedded store.
type Options struct {
	DataDir       string
	InMemory      bool
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Compress      bool
	Metrics       pebblestore.MetricsHook
	TrimHook      eventlog.TrimHook
}

// Store keeps one event log per stream key in a shared Pebble database.
// Every operation holds the read side of life until it returns, so Close
// waits for in-flight calls and later calls fail with storage.ErrClosed.
type Store struct {
	db   *pebblestore.DB
	opts Options

	life   sync.RWMutex
	closed bool

	mu   sync.Mutex
	logs map[string]*eventlog.Log
}

var (
	_ storage.Store     = (*Store)(nil)
	_ storage.Compactor = (*Store)(nil)
)

// Open opens or creates the database described by opts.
func Open(opts Options) (*Store, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		InMemory:      opts.InMemory,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, opts: opts, logs: make(map[string]*eventlog.Log)}, nil
}

// acquire returns the log for key with the read lock held. Callers must
// call release once they are done with the log.
func (s *Store) acquire(key string) (l *eventlog.Log, release func(), err error) {
	s.life.RLock()
	if s.closed {
		s.life.RUnlock()
		return nil, nil, storage.ErrClosed
	}
	l, err = s.stream(key)
	if err != nil {
		s.life.RUnlock()
		return nil, nil, err
	}
	return l, s.life.RUnlock, nil
}

func (s *Store) stream(key string) (*eventlog.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[key]; ok {
		return l, nil
	}
	l, err := eventlog.OpenLog(s.db, key, eventlog.Options{Compress: s.opts.Compress, Hook: s.opts.TrimHook})
	if err != nil {
		return nil, err
	}
	s.logs[key] = l
	return l, nil
}

func toLimit(t storage.Trim) (eventlog.Limit, error) {
	limit := eventlog.Limit{MaxLen: t.MaxLen, Approx: t.Approx}
	if t.MinID != "" {
		minID, err := id.Parse(t.MinID)
		if err != nil {
			return limit, fmt.Errorf("%w: %q", storage.ErrInvalidID, t.MinID)
		}
		limit.MinID = minID
	}
	return limit, nil
}

func (s *Store) Append(ctx context.Context, key string, fields map[string]string, trim storage.Trim) (string, error) {
	l, release, err := s.acquire(key)
	if err != nil {
		return "", err
	}
	defer release()
	limit, err := toLimit(trim)
	if err != nil {
		return "", err
	}
	ids, _, err := l.Append(ctx, []eventlog.Fields{fields}, limit)
	if err != nil {
		return "", err
	}
	return ids[0].String(), nil
}

func (s *Store) Range(ctx context.Context, key, start, end string, count int) ([]storage.Entry, error) {
	return s.read(ctx, key, start, end, count, false)
}

func (s *Store) RevRange(ctx context.Context, key, end, start string, count int) ([]storage.Entry, error) {
	return s.read(ctx, key, start, end, count, true)
}

func (s *Store) read(ctx context.Context, key, start, end string, count int, reverse bool) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lo, err := id.ParseBound(start, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidID, start)
	}
	hi, err := id.ParseBound(end, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidID, end)
	}
	l, release, err := s.acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()
	items, err := l.Read(eventlog.ReadOptions{Start: lo, End: hi, Limit: count, Reverse: reverse})
	if err != nil {
		return nil, err
	}
	out := make([]storage.Entry, len(items))
	for i, it := range items {
		out[i] = storage.Entry{ID: it.ID.String(), Fields: it.Fields}
	}
	return out, nil
}

func (s *Store) Del(ctx context.Context, key string, ids []string) (int, error) {
	parsed := make([]id.ID, 0, len(ids))
	for _, raw := range ids {
		v, err := id.Parse(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", storage.ErrInvalidID, raw)
		}
		parsed = append(parsed, v)
	}
	l, release, err := s.acquire(key)
	if err != nil {
		return 0, err
	}
	defer release()
	return l.Delete(ctx, parsed)
}

func (s *Store) Len(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l, release, err := s.acquire(key)
	if err != nil {
		return 0, err
	}
	defer release()
	return l.Len(), nil
}

func (s *Store) TrimStream(ctx context.Context, key string, trim storage.Trim) (int, error) {
	l, release, err := s.acquire(key)
	if err != nil {
		return 0, err
	}
	defer release()
	limit, err := toLimit(trim)
	if err != nil {
		return 0, err
	}
	if trim.MaxLen == 0 && !limit.MinID.IsZero() {
		// age-based eviction can touch many entries; let appends interleave
		return l.TrimBefore(ctx, limit.MinID, 1024, 0)
	}
	return l.Trim(ctx, limit)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.life.RLock()
	defer s.life.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

// Compact asks Pebble to compact the whole keyspace, reclaiming trimmed entries.
func (s *Store) Compact() error {
	s.life.RLock()
	defer s.life.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return s.db.CompactRange([]byte{0x00}, []byte{0xff})
}

func (s *Store) Close() error {
	s.life.Lock()
	defer s.life.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
