package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/gauthamkulal77/audio-pipeline/internal/metrics"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	"github.com/gauthamkulal77/audio-pipeline/internal/ui"
)

// GeneralController handles the dashboard, health and metrics endpoints.
type GeneralController struct {
	rt     *runtime.Runtime
	ingest *IngestController
	static http.Handler
}

// NewGeneralController creates a new general controller. WebSocket
// upgrades on the root path are handed to ingest.
func NewGeneralController(rt *runtime.Runtime, ingest *IngestController) *GeneralController {
	return &GeneralController{rt: rt, ingest: ingest, static: http.FileServer(ui.FS())}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", c.handleRoot)
	mux.HandleFunc("/v1/healthz", instrument("healthz", c.handleHealth))
	mux.Handle("/metrics", metrics.Handler())
}

// handleRoot upgrades producer connections and serves the dashboard
// otherwise.
func (c *GeneralController) handleRoot(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		instrument("ws", c.ingest.handleWS)(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if r.URL.Path != "/" {
		c.static.ServeHTTP(w, r)
		return
	}
	page, err := ui.Index()
	if err != nil {
		writeText(w, http.StatusInternalServerError, "dashboard unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleHealth returns 200 {"status":"ok"} when the store answers and 503
// otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
