package chunklog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gauthamkulal77/audio-pipeline/internal/metrics"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
	"github.com/gauthamkulal77/audio-pipeline/pkg/id"
)

// FieldAudioChunk is the payload field holding the chunk content.
const FieldAudioChunk = "audioChunk"

const (
	DefaultKey     = "audio_stream"
	DefaultMaxLen  = 500
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrStoreUnavailable wraps every backend failure, including timeouts.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidRequest reports caller input that was rejected before reaching the store.
	ErrInvalidRequest = errors.New("invalid request")
)

// Payload is the field map stored with a record.
type Payload map[string]string

// Record is one log entry.
type Record struct {
	ID      string
	Payload Payload
}

// Chunk returns the audioChunk field.
func (r Record) Chunk() string { return r.Payload[FieldAudioChunk] }

// Options configures a Log.
type Options struct {
	Key       string
	MaxLen    int64
	ExactTrim bool
	Timeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.MaxLen <= 0 {
		o.MaxLen = DefaultMaxLen
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// TrimMode renders the trim strategy as it appears in XADD.
func (o Options) TrimMode() string {
	if o.ExactTrim {
		return "="
	}
	return "~"
}

// Log is safe for concurrent use; ordering and atomicity come from the store.
type Log struct {
	store storage.Store
	opts  Options
}

func New(store storage.Store, opts Options) *Log {
	return &Log{store: store, opts: opts.withDefaults()}
}

func (l *Log) Options() Options { return l.opts }

// call runs fn under the per-call timeout and classifies its error.
func (l *Log) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()
	timer := prometheus.NewTimer(metrics.StoreOpDuration.WithLabelValues(op))
	err := fn(ctx)
	timer.ObserveDuration()
	if err == nil {
		return nil
	}
	metrics.StoreErrors.WithLabelValues(op).Inc()
	if errors.Is(err, storage.ErrInvalidID) {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidRequest, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Append adds payload at the tail and trims the log to MaxLen. It returns
// the assigned id.
func (l *Log) Append(ctx context.Context, payload Payload) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("append: %w: empty payload", ErrInvalidRequest)
	}
	trim := storage.Trim{MaxLen: l.opts.MaxLen, Approx: !l.opts.ExactTrim}
	var newID string
	err := l.call(ctx, "append", func(ctx context.Context) error {
		var err error
		newID, err = l.store.Append(ctx, l.opts.Key, payload, trim)
		return err
	})
	return newID, err
}

// ReadRecent returns up to count records, newest first.
func (l *Log) ReadRecent(ctx context.Context, count int) ([]Record, error) {
	if count <= 0 {
		return nil, fmt.Errorf("read: %w: count must be positive, got %d", ErrInvalidRequest, count)
	}
	return l.ReadRange(ctx, RangeOptions{Count: count, Reverse: true})
}

// RangeOptions selects an inclusive sub-range. Empty bounds mean "-" and "+".
type RangeOptions struct {
	Start   string
	End     string
	Count   int // 0 = unlimited
	Reverse bool
}

// ReadRange returns records between Start and End, oldest first unless Reverse.
func (l *Log) ReadRange(ctx context.Context, opts RangeOptions) ([]Record, error) {
	if opts.Start == "" {
		opts.Start = "-"
	}
	if opts.End == "" {
		opts.End = "+"
	}
	if opts.Count < 0 {
		return nil, fmt.Errorf("read: %w: negative count", ErrInvalidRequest)
	}
	if _, err := id.ParseBound(opts.Start, false); err != nil {
		return nil, fmt.Errorf("read: %w: start %q", ErrInvalidRequest, opts.Start)
	}
	if _, err := id.ParseBound(opts.End, true); err != nil {
		return nil, fmt.Errorf("read: %w: end %q", ErrInvalidRequest, opts.End)
	}

	var entries []storage.Entry
	err := l.call(ctx, "read", func(ctx context.Context) error {
		var err error
		if opts.Reverse {
			entries, err = l.store.RevRange(ctx, l.opts.Key, opts.End, opts.Start, opts.Count)
		} else {
			entries, err = l.store.Range(ctx, l.opts.Key, opts.Start, opts.End, opts.Count)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = Record{ID: e.ID, Payload: e.Fields}
	}
	return out, nil
}

// Delete removes the given ids and returns how many existed. Unknown ids are
// ignored; malformed ids reject the whole request.
func (l *Log) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("delete: %w: no ids", ErrInvalidRequest)
	}
	for _, raw := range ids {
		if _, err := id.Parse(raw); err != nil {
			return 0, fmt.Errorf("delete: %w: malformed id %q", ErrInvalidRequest, raw)
		}
	}
	var n int
	err := l.call(ctx, "delete", func(ctx context.Context) error {
		var err error
		n, err = l.store.Del(ctx, l.opts.Key, ids)
		return err
	})
	return n, err
}

// Len returns the current number of records.
func (l *Log) Len(ctx context.Context) (int64, error) {
	var n int64
	err := l.call(ctx, "len", func(ctx context.Context) error {
		var err error
		n, err = l.store.Len(ctx, l.opts.Key)
		return err
	})
	return n, err
}

// TrimBefore evicts records older than cutoff and returns how many were removed.
func (l *Log) TrimBefore(ctx context.Context, cutoff time.Time) (int, error) {
	minID := id.ID{Ms: uint64(cutoff.UnixMilli())}.String()
	var n int
	err := l.call(ctx, "trim", func(ctx context.Context) error {
		var err error
		n, err = l.store.TrimStream(ctx, l.opts.Key, storage.Trim{MinID: minID, Approx: !l.opts.ExactTrim})
		return err
	})
	return n, err
}

// Ping checks that the store is reachable.
func (l *Log) Ping(ctx context.Context) error {
	return l.call(ctx, "ping", l.store.Ping)
}
