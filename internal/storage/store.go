// Package storage defines the stream store the chunk log is written to.
//
// Two backends implement Store: storage/redis talks to a Redis server with
// stream commands, storage/local keeps streams in an embedded Pebble database.
package storage

import (
	"context"
	"errors"
)

// Entry is one stream record.
type Entry struct {
	ID     string
	Fields map[string]string
}

// Trim bounds a stream on append or on demand. Zero values disable a rule.
type Trim struct {
	// MaxLen caps the stream length.
	MaxLen int64
	// Approx allows the store to keep a few extra entries when that is cheaper.
	Approx bool
	// MinID evicts entries with a lower id.
	MinID string
}

// Store is the subset of stream operations the service depends on.
// Range bounds follow XRANGE: "-" and "+" are the open ends, explicit ids
// are inclusive.
type Store interface {
	// Append adds one entry with a store-assigned id and applies trim.
	Append(ctx context.Context, key string, fields map[string]string, trim Trim) (string, error)
	// Range returns up to count entries from start to end, oldest first.
	Range(ctx context.Context, key, start, end string, count int) ([]Entry, error)
	// RevRange returns up to count entries from end down to start, newest first.
	RevRange(ctx context.Context, key, end, start string, count int) ([]Entry, error)
	// Del removes ids and returns how many existed.
	Del(ctx context.Context, key string, ids []string) (int, error)
	Len(ctx context.Context, key string) (int64, error)
	// TrimStream applies trim outside of an append and returns entries removed.
	TrimStream(ctx context.Context, key string, trim Trim) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	// ErrInvalidID reports a malformed stream id or range bound.
	ErrInvalidID = errors.New("storage: invalid stream id")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage: closed")
)

// PoolStats describes a connection pool.
type PoolStats struct {
	Active int `json:"active"`
	Idle   int `json:"idle"`
}

// Pooled is implemented by stores that hold a connection pool.
type Pooled interface {
	PoolStats() PoolStats
}

// Compactor is implemented by stores that can reclaim space of removed
// entries on demand.
type Compactor interface {
	Compact() error
}
