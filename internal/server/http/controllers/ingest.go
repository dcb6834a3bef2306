package controllers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	ingestsvc "github.com/gauthamkulal77/audio-pipeline/internal/services/ingest"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

// MaxMessageBytes caps a single producer message.
const MaxMessageBytes = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 << 10,
	WriteBufferSize: 4 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// IngestController accepts producer WebSocket connections. Every text or
// binary message becomes one record; nothing is written back.
type IngestController struct {
	svc    *ingestsvc.Service
	logger logpkg.Logger

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	closing bool
	// handlers counts read loops that may still append.
	handlers sync.WaitGroup
}

func NewIngestController(svc *ingestsvc.Service, logger logpkg.Logger) *IngestController {
	return &IngestController{svc: svc, logger: logger.WithComponent("http.ingest"), conns: make(map[*websocket.Conn]struct{})}
}

// RegisterRoutes registers /ws. Upgrades on / are dispatched by the
// general controller.
func (c *IngestController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", instrument("ws", c.handleWS))
}

func (c *IngestController) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		c.logger.Warn("websocket upgrade failed", logpkg.Str("remote", r.RemoteAddr), logpkg.Err(err))
		return
	}
	conn.SetReadLimit(MaxMessageBytes)
	if !c.track(conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer c.untrack(conn)

	pc := c.svc.Open(r.RemoteAddr)
	defer c.svc.Close(pc)

	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Warn("producer read failed", logpkg.Str(logpkg.ConnIDKey, pc.ID), logpkg.Err(err))
			}
			return
		}
		// Failures are logged by the service; the connection stays up.
		_ = c.svc.Handle(ctx, pc, msg)
	}
}

// track registers conn and reports false once CloseAll has started.
func (c *IngestController) track(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return false
	}
	c.conns[conn] = struct{}{}
	c.handlers.Add(1)
	return true
}

func (c *IngestController) untrack(conn *websocket.Conn) {
	c.mu.Lock()
	delete(c.conns, conn)
	c.mu.Unlock()
	_ = conn.Close()
	c.handlers.Done()
}

// CloseAll closes every open producer connection and waits for their read
// loops to return, so no append outlives it. Later upgrades are refused.
func (c *IngestController) CloseAll() {
	c.mu.Lock()
	c.closing = true
	for conn := range c.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	c.mu.Unlock()
	c.handlers.Wait()
}

// Active reports how many producer read loops are running.
func (c *IngestController) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}
