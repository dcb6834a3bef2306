package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	transports "github.com/gauthamkulal77/audio-pipeline/internal/cmd/client/transports"
)

var (
	idColor   = color.New(color.FgCyan)
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
)

// NewRecordsCommand constructs the `records` command group.
func NewRecordsCommand(baseURL BaseURLFunc) *cobra.Command {
	recordsCmd := &cobra.Command{Use: "records", Short: "Read and delete records"}
	recordsCmd.AddCommand(
		newRecordsListCommand(baseURL),
		newRecordsSearchCommand(baseURL),
		newRecordsDeleteCommand(baseURL),
		newRecordsStatsCommand(baseURL),
	)
	return recordsCmd
}

func printPreviews(w io.Writer, items []transports.Preview) {
	for _, it := range items {
		_, _ = idColor.Fprintf(w, "%-24s", it.ID)
		_, _ = fmt.Fprintf(w, " %s\n", it.ChunkPreview)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newRecordsListCommand constructs `records list`: the newest records.
func newRecordsListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			items, err := getTransport(baseURL).Recent(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			printPreviews(cmd.OutOrStdout(), items)
			return nil
		},
	}
	listCmd.Flags().Bool("json", false, "Print raw JSON")
	return listCmd
}

// newRecordsSearchCommand constructs `records search`.
func newRecordsSearchCommand(baseURL BaseURLFunc) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search a range of records, optionally with a CEL filter",
		Example: `  audiolog records search --start - --limit 20
  audiolog records search --reverse --filter 'size > 1024'
  audiolog records search --filter 'now_ms - ts_ms < 60000' --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			limit, _ := cmd.Flags().GetInt("limit")
			reverse, _ := cmd.Flags().GetBool("reverse")
			filter, _ := cmd.Flags().GetString("filter")
			all, _ := cmd.Flags().GetBool("all")
			asJSON, _ := cmd.Flags().GetBool("json")

			t := getTransport(baseURL)
			req := transports.SearchRequest{Start: start, End: end, Limit: limit, Reverse: reverse, Filter: filter}
			for {
				page, err := t.Search(cmd.Context(), req)
				if err != nil {
					return err
				}
				if asJSON {
					if err := printJSON(cmd.OutOrStdout(), page); err != nil {
						return err
					}
				} else {
					printPreviews(cmd.OutOrStdout(), page.Items)
				}
				if !all || page.Next == "" {
					if page.Next != "" && !asJSON {
						flag := "start"
						if reverse {
							flag = "end"
						}
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "more: --%s %s\n", flag, page.Next)
					}
					return nil
				}
				if reverse {
					req.End = page.Next
				} else {
					req.Start = page.Next
				}
			}
		},
	}
	searchCmd.Flags().String("start", "", "Start id, inclusive (default -)")
	searchCmd.Flags().String("end", "", "End id, inclusive (default +)")
	searchCmd.Flags().Int("limit", 0, "Page size (server default 100, max 1000)")
	searchCmd.Flags().Bool("reverse", false, "Newest first")
	searchCmd.Flags().String("filter", "", "CEL filter over id, ts_ms, seq, size, text, json, fields, now_ms")
	searchCmd.Flags().Bool("all", false, "Follow pages until the range is exhausted")
	searchCmd.Flags().Bool("json", false, "Print raw JSON pages")
	return searchCmd
}

// newRecordsDeleteCommand constructs `records delete ID...`.
func newRecordsDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete records by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := getTransport(baseURL).Delete(cmd.Context(), args)
			if err != nil {
				var apiErr *transports.APIError
				if errors.As(err, &apiErr) {
					_, _ = failColor.Fprintln(cmd.ErrOrStderr(), apiErr.Message)
				}
				return err
			}
			_, _ = okColor.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

// newRecordsStatsCommand constructs `records stats`.
func newRecordsStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stream length and limits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			st, err := getTransport(baseURL).Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "stream:    %s\n", st.Stream)
			_, _ = fmt.Fprintf(out, "length:    %d\n", st.Length)
			_, _ = fmt.Fprintf(out, "max_len:   %s%d\n", st.Trim, st.MaxLen)
			_, _ = fmt.Fprintf(out, "producers: %d\n", st.Producers)
			if st.Pool != nil {
				_, _ = fmt.Fprintf(out, "pool:      %d active, %d idle\n", st.Pool.Active, st.Pool.Idle)
			}
			return nil
		},
	}
	statsCmd.Flags().Bool("json", false, "Print raw JSON")
	return statsCmd
}
