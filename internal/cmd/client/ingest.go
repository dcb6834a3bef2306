package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	transports "github.com/gauthamkulal77/audio-pipeline/internal/cmd/client/transports"
)

// NewIngestCommand constructs the `ingest` command group.
func NewIngestCommand(baseURL BaseURLFunc) *cobra.Command {
	ingestCmd := &cobra.Command{Use: "ingest", Short: "Produce audio chunks"}
	ingestCmd.AddCommand(newIngestSendCommand(baseURL))
	return ingestCmd
}

// newIngestSendCommand constructs `ingest send`: it streams a file or
// stdin to the server. With --lines each line is one chunk; otherwise the
// input is cut into --chunk-size pieces.
func newIngestSendCommand(baseURL BaseURLFunc) *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Stream a file or stdin as chunks over WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			size, _ := cmd.Flags().GetInt("chunk-size")
			lines, _ := cmd.Flags().GetBool("lines")
			binary, _ := cmd.Flags().GetBool("binary")
			interval, _ := cmd.Flags().GetDuration("interval")
			if size <= 0 {
				return errors.New("--chunk-size must be positive")
			}

			var in io.Reader = cmd.InOrStdin()
			if path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			p, err := transports.DialProducer(cmd.Context(), baseURL(), binary)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			n, bytesSent, err := sendChunks(cmd, p, in, size, lines, interval)
			closeErr := p.Close()
			if err != nil {
				return err
			}
			_, _ = okColor.Fprintf(cmd.OutOrStdout(), "sent %d chunks (%d bytes)\n", n, bytesSent)
			return closeErr
		},
	}
	sendCmd.Flags().StringP("file", "f", "", "Input file (default stdin)")
	sendCmd.Flags().Int("chunk-size", 4096, "Bytes per chunk")
	sendCmd.Flags().Bool("lines", false, "Send one chunk per input line")
	sendCmd.Flags().Bool("binary", false, "Send binary frames instead of text")
	sendCmd.Flags().Duration("interval", 0, "Pause between chunks, to simulate a live source")
	return sendCmd
}

func sendChunks(cmd *cobra.Command, p transports.Producer, in io.Reader, size int, lines bool, interval time.Duration) (int, int, error) {
	ctx := cmd.Context()
	var n, total int
	send := func(chunk []byte) error {
		if err := p.Send(ctx, chunk); err != nil {
			return err
		}
		n++
		total += len(chunk)
		if interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		return nil
	}

	if lines {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for sc.Scan() {
			if err := send(sc.Bytes()); err != nil {
				return n, total, err
			}
		}
		return n, total, sc.Err()
	}

	buf := make([]byte, size)
	for {
		k, err := io.ReadFull(in, buf)
		if k > 0 {
			if serr := send(buf[:k]); serr != nil {
				return n, total, serr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, total, nil
		}
		if err != nil {
			return n, total, err
		}
	}
}
