package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gauthamkulal77/audio-pipeline/internal/chunklog"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	deletionsvc "github.com/gauthamkulal77/audio-pipeline/internal/services/deletion"
	ingestsvc "github.com/gauthamkulal77/audio-pipeline/internal/services/ingest"
	querysvc "github.com/gauthamkulal77/audio-pipeline/internal/services/query"
	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
)

const maxDeleteBody = 1 << 20

// RecordsController serves reads and deletions of the chunk log.
//
// /data and /delete keep the response bodies the dashboard expects; the
// /v1 routes are the richer API.
type RecordsController struct {
	rt       *runtime.Runtime
	query    *querysvc.Service
	deletion *deletionsvc.Service
	ingest   *ingestsvc.Service
}

func NewRecordsController(rt *runtime.Runtime, query *querysvc.Service, deletion *deletionsvc.Service, ingest *ingestsvc.Service) *RecordsController {
	return &RecordsController{rt: rt, query: query, deletion: deletion, ingest: ingest}
}

// RegisterRoutes registers record routes with the given mux.
func (c *RecordsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/data", instrument("data", c.handleData))
	mux.HandleFunc("/delete", instrument("delete", c.handleDelete))
	mux.HandleFunc("/v1/records", instrument("records", c.handleRecords))
	mux.HandleFunc("/v1/stats", instrument("stats", c.handleStats))
}

// handleData returns previews of the newest records, newest first.
func (c *RecordsController) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	previews, err := c.query.Recent(r.Context(), querysvc.DefaultRecent)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Error fetching data")
		return
	}
	writeJSON(w, previews)
}

// handleDelete removes the ids in {"ids": [...]}.
func (c *RecordsController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDeleteBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "No entry IDs provided.")
		return
	}
	ids, err := deletionsvc.ParseRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No entry IDs provided.")
		return
	}
	n, err := c.deletion.Delete(r.Context(), ids)
	switch {
	case errors.Is(err, chunklog.ErrInvalidRequest):
		// Malformed ids are rejected before XDEL. Letting Redis refuse
		// them would surface as a 500 store failure instead.
		writeError(w, http.StatusBadRequest, "Invalid entry ID.")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to delete entries.")
		return
	}
	writeJSON(w, map[string]string{"message": fmt.Sprintf("Successfully deleted %d entries.", n)})
}

// handleRecords searches a range:
// /v1/records?start=&end=&limit=&reverse=&filter=
func (c *RecordsController) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	page, err := c.query.Search(r.Context(), querysvc.SearchOptions{
		Start:   q.Get("start"),
		End:     q.Get("end"),
		Limit:   parseLimit(q.Get("limit")),
		Reverse: parseBool(q.Get("reverse")),
		Filter:  q.Get("filter"),
	})
	switch {
	case errors.Is(err, chunklog.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to read records")
		return
	}
	writeJSON(w, page)
}

type statsResp struct {
	Stream    string `json:"stream"`
	Length    int64  `json:"length"`
	MaxLen    int64  `json:"max_len"`
	Trim      string `json:"trim"`
	Producers int    `json:"producers"`

	Pool *storage.PoolStats `json:"pool,omitempty"`
}

func (c *RecordsController) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	n, err := c.rt.Log().Len(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read stats")
		return
	}
	opts := c.rt.Log().Options()
	resp := statsResp{
		Stream:    opts.Key,
		Length:    n,
		MaxLen:    opts.MaxLen,
		Trim:      opts.TrimMode(),
		Producers: c.ingest.Active(),
	}
	if p, ok := c.rt.Store().(storage.Pooled); ok {
		st := p.PoolStats()
		resp.Pool = &st
	}
	writeJSON(w, resp)
}
