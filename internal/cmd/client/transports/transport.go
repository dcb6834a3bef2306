// Package transports provides the client side of the audio log API for
// the CLI.
package transports

import "context"

// Preview is one record as the server projects it.
type Preview struct {
	ID           string `json:"id"`
	ChunkPreview string `json:"chunkPreview"`
}

// SearchRequest mirrors the /v1/records query parameters.
type SearchRequest struct {
	Start   string
	End     string
	Limit   int
	Reverse bool
	Filter  string
}

// Page is one search result.
type Page struct {
	Items   []Preview `json:"items"`
	Next    string    `json:"next,omitempty"`
	Scanned int       `json:"scanned"`
}

// PoolStats reports the server's store connection pool, when it has one.
type PoolStats struct {
	Active int `json:"active"`
	Idle   int `json:"idle"`
}

// Stats describes the stream.
type Stats struct {
	Stream    string     `json:"stream"`
	Length    int64      `json:"length"`
	MaxLen    int64      `json:"max_len"`
	Trim      string     `json:"trim"`
	Producers int        `json:"producers"`
	Pool      *PoolStats `json:"pool,omitempty"`
}

// RecordsTransport abstracts the read and delete surface used by the CLI.
type RecordsTransport interface {
	Recent(ctx context.Context) ([]Preview, error)
	Search(ctx context.Context, req SearchRequest) (Page, error)
	Delete(ctx context.Context, ids []string) (message string, err error)
	Stats(ctx context.Context) (Stats, error)
}

// Producer streams chunks to the server. Sends are fire-and-forget.
type Producer interface {
	Send(ctx context.Context, chunk []byte) error
	Close() error
}
