package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gauthamkulal77/audio-pipeline/internal/chunklog"
	cfgpkg "github.com/gauthamkulal77/audio-pipeline/internal/config"
	"github.com/gauthamkulal77/audio-pipeline/internal/metrics"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage/local"
	pebblestore "github.com/gauthamkulal77/audio-pipeline/internal/storage/pebble"
	redisstore "github.com/gauthamkulal77/audio-pipeline/internal/storage/redis"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

// ErrStartup is returned when the backing store cannot be opened or reached.
var ErrStartup = errors.New("startup failed")

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Store overrides the backend selected by Config.
	Store storage.Store
}

// Runtime owns the backing store and the chunk log shared by all services.
type Runtime struct {
	config cfgpkg.Config
	logger logpkg.Logger
	store  storage.Store
	log    *chunklog.Log

	closeOnce sync.Once
	closeErr  error
}

// Open builds the store, verifies it is reachable and returns a Runtime.
// Failures wrap ErrStartup.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	logger = logger.WithComponent("runtime")

	store := opts.Store
	if store == nil {
		var err error
		store, err = OpenStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStartup, err)
		}
	}

	l := chunklog.New(store, chunklog.Options{
		Key:       cfg.Stream.Key,
		MaxLen:    cfg.Stream.MaxLen,
		ExactTrim: cfg.ExactTrim(),
		Timeout:   cfg.Store.Timeout,
	})
	if err := l.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}
	logger.Info("store ready",
		logpkg.Str("backend", cfg.Store.Backend),
		logpkg.Str("stream", l.Options().Key),
		logpkg.Int64("max_len", l.Options().MaxLen),
		logpkg.Str("trim", l.Options().TrimMode()))
	return &Runtime{config: cfg, logger: logger, store: store, log: l}, nil
}

// OpenStore builds the backend selected by cfg.Store.Backend without
// contacting it.
func OpenStore(cfg cfgpkg.Config) (storage.Store, error) {
	switch cfg.Store.Backend {
	case cfgpkg.BackendEmbedded:
		fsync, err := pebblestore.ParseFsyncMode(cfg.Store.Fsync)
		if err != nil {
			return nil, err
		}
		return local.Open(local.Options{
			DataDir:  cfg.Store.DataDir,
			InMemory: cfg.Store.InMemory,
			Fsync:    fsync,
			Compress: cfg.Store.Compress,
			Metrics:  metrics.PebbleHook{},
			TrimHook: metrics.TrimHook{},
		})
	case cfgpkg.BackendRedis, "":
		return redisstore.New(redisstore.Options{
			URL:         cfg.Store.RedisURL,
			MaxIdle:     cfg.Store.PoolMaxIdle,
			MaxActive:   cfg.Store.PoolMaxActive,
			DialTimeout: cfg.Store.Timeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// Close closes the backing store. It is safe to call more than once.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() { r.closeErr = r.store.Close() })
	return r.closeErr
}

// CheckHealth pings the backing store.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	return r.log.Ping(ctx)
}

// Log returns the shared chunk log.
func (r *Runtime) Log() *chunklog.Log { return r.log }

// Store exposes the backing store (internal use only).
func (r *Runtime) Store() storage.Store { return r.store }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the root logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// RunRetention evicts records older than the configured retention until ctx
// is done. It returns immediately when retention is disabled.
func (r *Runtime) RunRetention(ctx context.Context) {
	retention := r.config.Stream.Retention
	if retention <= 0 {
		return
	}
	interval := retention / 10
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.enforceRetention(ctx, now.Add(-retention))
		}
	}
}

func (r *Runtime) enforceRetention(ctx context.Context, cutoff time.Time) int {
	n, err := r.log.TrimBefore(ctx, cutoff)
	if err != nil {
		r.logger.Warn("retention trim failed", logpkg.Err(err))
		return 0
	}
	if n > 0 {
		r.logger.Info("retention trim", logpkg.Int("evicted", n), logpkg.Str("cutoff", cutoff.UTC().Format(time.RFC3339)))
	}
	return n
}
