package controllers

import (
	"net/http"

	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	deletionsvc "github.com/gauthamkulal77/audio-pipeline/internal/services/deletion"
	ingestsvc "github.com/gauthamkulal77/audio-pipeline/internal/services/ingest"
	querysvc "github.com/gauthamkulal77/audio-pipeline/internal/services/query"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

// Services bundles the business services exposed over HTTP.
type Services struct {
	Ingest   *ingestsvc.Service
	Query    *querysvc.Service
	Deletion *deletionsvc.Service
}

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	records *RecordsController
	ingest  *IngestController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, svcs Services, logger logpkg.Logger) *ControllerRegistry {
	ingest := NewIngestController(svcs.Ingest, logger)
	return &ControllerRegistry{
		general: NewGeneralController(rt, ingest),
		records: NewRecordsController(rt, svcs.Query, svcs.Deletion, svcs.Ingest),
		ingest:  ingest,
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
//
// The root path serves the dashboard and accepts WebSocket producers.
// /data and /delete are the dashboard endpoints; everything else lives
// under /v1 except /metrics.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.records.RegisterRoutes(mux)
	r.ingest.RegisterRoutes(mux)
}

// Shutdown closes hijacked producer connections, which http.Server.Shutdown
// does not track, and returns once their handlers have stopped appending.
func (r *ControllerRegistry) Shutdown() {
	r.ingest.CloseAll()
}

// ActiveProducers reports producer connections still being served.
func (r *ControllerRegistry) ActiveProducers() int {
	return r.ingest.Active()
}
