package serverrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	cfgpkg "github.com/gauthamkulal77/audio-pipeline/internal/config"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	httpserver "github.com/gauthamkulal77/audio-pipeline/internal/server/http"
	respserver "github.com/gauthamkulal77/audio-pipeline/internal/server/resp"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

// Options carries command-line input. Non-zero fields override the config
// file and the environment.
type Options struct {
	ConfigPath  string
	DotenvFiles []string

	Port      int
	Backend   string
	RedisURL  string
	DataDir   string
	InMemory  bool
	LogLevel  string
	LogFormat string
}

// LoadConfig resolves the configuration: defaults, then the config file,
// then dotenv files and the environment, then opts.
func LoadConfig(opts Options) (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(opts.ConfigPath)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	if err := cfgpkg.FromEnv(&cfg, opts.DotenvFiles...); err != nil {
		return cfgpkg.Config{}, fmt.Errorf("environment: %w", err)
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if opts.RedisURL != "" {
		cfg.Store.RedisURL = opts.RedisURL
	}
	if opts.DataDir != "" {
		cfg.Store.DataDir = opts.DataDir
	}
	if opts.InMemory {
		cfg.Store.InMemory = true
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if cfg.Store.Backend == cfgpkg.BackendEmbedded && cfg.Store.DataDir == "" && !cfg.Store.InMemory {
		cfg.Store.DataDir = filepath.Join(cfgpkg.DefaultDataDir(), "store")
	}
	if err := cfg.Validate(); err != nil {
		return cfgpkg.Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the process logger from cfg, falling back to text at
// info level when cfg is unusable.
func NewLogger(cfg cfgpkg.LogConfig) logpkg.Logger {
	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Level, Format: cfg.Format, Redact: cfg.Redact})
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		logger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	// Pebble and net/http write through the standard logger.
	logpkg.RedirectStdLog(logger)
	return logger
}

// Run opens the runtime, serves HTTP and enforces retention until ctx is
// cancelled or a signal arrives. A store that cannot be reached returns an
// error wrapping runtime.ErrStartup before anything listens.
func Run(ctx context.Context, cfg cfgpkg.Config, logger logpkg.Logger) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.Open(sctx, runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting audio log server",
		logpkg.Str("http", cfg.Addr()),
		logpkg.Str("backend", cfg.Store.Backend),
		logpkg.Str("stream", cfg.Stream.Key),
		logpkg.Int64("max_len", cfg.Stream.MaxLen),
		logpkg.Duration("retention", cfg.Stream.Retention),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	hsrv := httpserver.New(rt, logger)
	runCtx, cancel := context.WithCancel(sctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(runCtx, cfg.Addr()); err != nil && runCtx.Err() == nil {
			errCh <- fmt.Errorf("http: %w", err)
			cancel()
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.RunRetention(runCtx)
	}()

	<-runCtx.Done()
	hsrv.Close()
	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
	}
	logger.Info("audio log server stopped")
	return nil
}

// ServeStore exposes the embedded store over the Redis protocol on
// cfg.Server.RESPAddr so Redis clients can point REDIS_URL at it.
func ServeStore(ctx context.Context, cfg cfgpkg.Config, logger logpkg.Logger) error {
	if cfg.Store.Backend != cfgpkg.BackendEmbedded {
		return fmt.Errorf("store serve needs the %s backend, got %q", cfgpkg.BackendEmbedded, cfg.Store.Backend)
	}
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := runtime.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", runtime.ErrStartup, err)
	}
	defer store.Close()
	logger.Info("serving embedded store", logpkg.Str("addr", cfg.Server.RESPAddr), logpkg.Str("data_dir", cfg.Store.DataDir))
	return respserver.New(store, logger).ListenAndServe(sctx, cfg.Server.RESPAddr)
}

// CompactStore compacts the embedded store in place. The server must not be
// running against the same directory.
func CompactStore(cfg cfgpkg.Config, logger logpkg.Logger) error {
	store, err := runtime.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	c, ok := store.(storage.Compactor)
	if !ok {
		return errors.New("backend does not support compaction")
	}
	logger.Info("compacting store", logpkg.Str("data_dir", cfg.Store.DataDir))
	return c.Compact()
}
