// Package redis implements storage.Store on Redis streams using a redigo
// connection pool.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
)

// Options configures the connection pool.
type Options struct {
	URL         string
	MaxIdle     int
	MaxActive   int
	IdleTimeout time.Duration
	DialTimeout time.Duration
}

// Store issues stream commands over pooled connections.
type Store struct {
	pool *redis.Pool
}

var _ storage.Store = (*Store)(nil)

// New builds a pooled client. No connection is made until the first command.
func New(opts Options) *Store {
	if opts.MaxIdle <= 0 {
		opts.MaxIdle = 8
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	url := opts.URL
	dialTimeout := opts.DialTimeout
	return &Store{pool: &redis.Pool{
		MaxIdle:     opts.MaxIdle,
		MaxActive:   opts.MaxActive,
		IdleTimeout: opts.IdleTimeout,
		Wait:        opts.MaxActive > 0,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialURLContext(ctx, url, redis.DialConnectTimeout(dialTimeout))
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}}
}

func (s *Store) do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	reply, err := redis.DoContext(conn, ctx, cmd, args...)
	return reply, translate(err)
}

// translate maps server-side id errors onto storage.ErrInvalidID.
func translate(err error) error {
	var rerr redis.Error
	if errors.As(err, &rerr) && strings.Contains(strings.ToLower(string(rerr)), "invalid stream id") {
		return fmt.Errorf("%w: %s", storage.ErrInvalidID, string(rerr))
	}
	return err
}

func trimArgs(args []interface{}, strategy string, approx bool, threshold interface{}) []interface{} {
	op := "="
	if approx {
		op = "~"
	}
	return append(args, strategy, op, threshold)
}

func (s *Store) Append(ctx context.Context, key string, fields map[string]string, trim storage.Trim) (string, error) {
	args := []interface{}{key}
	if trim.MaxLen > 0 {
		args = trimArgs(args, "MAXLEN", trim.Approx, trim.MaxLen)
	} else if trim.MinID != "" {
		args = trimArgs(args, "MINID", trim.Approx, trim.MinID)
	}
	args = append(args, "*")
	for k, v := range fields {
		args = append(args, k, v)
	}
	newID, err := redis.String(s.do(ctx, "XADD", args...))
	if err != nil {
		return "", err
	}
	if trim.MaxLen > 0 && trim.MinID != "" {
		// XADD accepts a single trim strategy
		if _, err := s.TrimStream(ctx, key, storage.Trim{MinID: trim.MinID, Approx: trim.Approx}); err != nil {
			return newID, err
		}
	}
	return newID, nil
}

func (s *Store) Range(ctx context.Context, key, start, end string, count int) ([]storage.Entry, error) {
	return s.rangeCmd(ctx, "XRANGE", key, start, end, count)
}

func (s *Store) RevRange(ctx context.Context, key, end, start string, count int) ([]storage.Entry, error) {
	return s.rangeCmd(ctx, "XREVRANGE", key, end, start, count)
}

func (s *Store) rangeCmd(ctx context.Context, cmd, key, from, to string, count int) ([]storage.Entry, error) {
	args := []interface{}{key, from, to}
	if count > 0 {
		args = append(args, "COUNT", count)
	}
	return parseEntries(s.do(ctx, cmd, args...))
}

// parseEntries decodes an XRANGE reply: [[id, [field, value, ...]], ...].
func parseEntries(reply interface{}, err error) ([]storage.Entry, error) {
	rows, err := redis.Values(reply, err)
	if err != nil {
		return nil, err
	}
	out := make([]storage.Entry, 0, len(rows))
	for _, row := range rows {
		parts, err := redis.Values(row, nil)
		if err != nil || len(parts) != 2 {
			return nil, fmt.Errorf("redis: unexpected stream entry %v", row)
		}
		entryID, err := redis.String(parts[0], nil)
		if err != nil {
			return nil, err
		}
		fields, err := redis.StringMap(parts[1], nil)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.Entry{ID: entryID, Fields: fields})
	}
	return out, nil
}

func (s *Store) Del(ctx context.Context, key string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, key)
	for _, v := range ids {
		args = append(args, v)
	}
	return redis.Int(s.do(ctx, "XDEL", args...))
}

func (s *Store) Len(ctx context.Context, key string) (int64, error) {
	return redis.Int64(s.do(ctx, "XLEN", key))
}

func (s *Store) TrimStream(ctx context.Context, key string, trim storage.Trim) (int, error) {
	removed := 0
	if trim.MaxLen > 0 {
		n, err := redis.Int(s.do(ctx, "XTRIM", trimArgs([]interface{}{key}, "MAXLEN", trim.Approx, strconv.FormatInt(trim.MaxLen, 10))...))
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if trim.MinID != "" {
		n, err := redis.Int(s.do(ctx, "XTRIM", trimArgs([]interface{}{key}, "MINID", trim.Approx, trim.MinID)...))
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	pong, err := redis.String(s.do(ctx, "PING"))
	if err != nil {
		return err
	}
	if pong != "PONG" {
		return fmt.Errorf("redis: unexpected PING reply %q", pong)
	}
	return nil
}

// PoolStats reports pool usage.
func (s *Store) PoolStats() storage.PoolStats {
	st := s.pool.Stats()
	return storage.PoolStats{Active: st.ActiveCount, Idle: st.IdleCount}
}

func (s *Store) Close() error { return s.pool.Close() }
