package ingestsvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gauthamkulal77/audio-pipeline/internal/chunklog"
	"github.com/gauthamkulal77/audio-pipeline/internal/metrics"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

// Conn tracks one producer connection. It is used by a single goroutine.
type Conn struct {
	ID       string
	Remote   string
	Opened   time.Time
	Received int64
	Failed   int64
}

// Result is the outcome of handling one message.
type Result struct {
	ID  string
	Err error
}

func (r Result) OK() bool { return r.Err == nil }

type Service struct {
	log    *chunklog.Log
	logger logpkg.Logger

	mu    sync.Mutex
	conns map[string]*Conn
}

// New returns a Service appending to the runtime's chunk log.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = rt.Logger()
	}
	return &Service{log: rt.Log(), logger: logger.WithComponent("ingest"), conns: make(map[string]*Conn)}
}

// Open registers a new producer connection.
func (s *Service) Open(remote string) *Conn {
	c := &Conn{ID: uuid.NewString(), Remote: remote, Opened: time.Now()}
	s.mu.Lock()
	s.conns[c.ID] = c
	s.mu.Unlock()
	metrics.IngestConnections.Inc()
	s.logger.Info("producer connected", logpkg.Str(logpkg.ConnIDKey, c.ID), logpkg.Str("remote", remote))
	return c
}

// Handle appends msg as one record. Failures are logged and returned in the
// Result; they never close the connection.
func (s *Service) Handle(ctx context.Context, c *Conn, msg []byte) Result {
	c.Received++
	metrics.IngestMessages.Inc()
	metrics.IngestBytes.Add(float64(len(msg)))

	newID, err := s.log.Append(ctx, chunklog.Payload{chunklog.FieldAudioChunk: string(msg)})
	if err != nil {
		c.Failed++
		metrics.IngestFailures.Inc()
		s.logger.With(
			logpkg.Str(logpkg.ConnIDKey, c.ID),
			logpkg.Int("bytes", len(msg)),
			logpkg.Err(err),
		).Error("ingest.append failed")
		return Result{Err: err}
	}
	s.logger.With(
		logpkg.Str(logpkg.ConnIDKey, c.ID),
		logpkg.Str("id", newID),
		logpkg.Int("bytes", len(msg)),
	).Debug("ingest.append")
	return Result{ID: newID}
}

// Close unregisters c.
func (s *Service) Close(c *Conn) {
	s.mu.Lock()
	_, ok := s.conns[c.ID]
	delete(s.conns, c.ID)
	s.mu.Unlock()
	if !ok {
		return
	}
	metrics.IngestConnections.Dec()
	s.logger.Info("producer disconnected",
		logpkg.Str(logpkg.ConnIDKey, c.ID),
		logpkg.Int64("received", c.Received),
		logpkg.Int64("failed", c.Failed),
		logpkg.Duration("open_for", time.Since(c.Opened)))
}

// Active returns the number of open connections.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
