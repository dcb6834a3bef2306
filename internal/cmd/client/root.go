package client

import (
	"github.com/spf13/cobra"

	transports "github.com/gauthamkulal77/audio-pipeline/internal/cmd/client/transports"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

func getTransport(baseURL BaseURLFunc) transports.RecordsTransport {
	return transports.NewHTTPTransport(baseURL(), nil)
}

// NewRoot constructs a root Cobra command for the client.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "audiolog",
		Short: "Audio log client commands",
	}
	root.AddCommand(NewRecordsCommand(baseURL))
	root.AddCommand(NewIngestCommand(baseURL))
	return root
}
