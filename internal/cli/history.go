package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// historyEntry is one row of the history listing.
type historyEntry struct {
	Index      int     `json:"index"`
	Input      string  `json:"input"`
	Output     *string `json:"output"`
	OutputSize int64   `json:"output_size,omitempty"`
	Current    bool    `json:"current,omitempty"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List processed files, oldest first",
	Long: `List the history records in the order they were added. The last row is
what "pct v" without a path will show. The SIZE column is the current size
of the output file, "-" when there is no output or it no longer exists.`,
	Example: `  pct history
  pct history --json`,
	Args: cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		s, err := openHistory(cmd.Context(), false)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer s.Close()

		records := s.Records()
		entries := make([]historyEntry, len(records))
		for i, r := range records {
			entries[i] = historyEntry{
				Index:   i + 1,
				Input:   r.Input,
				Output:  r.Output,
				Current: i == len(records)-1,
			}
			if r.HasOutput() {
				if fi, err := os.Stat(r.OutputPath()); err == nil {
					entries[i].OutputSize = fi.Size()
				}
			}
		}

		if jsonOutput {
			return writeJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintf(os.Stderr, "No history in %s.\n", s.Path())
			return nil
		}

		tbl := NewTable(os.Stdout, "#", "INPUT", "OUTPUT", "SIZE")
		for _, e := range entries {
			idx := strconv.Itoa(e.Index)
			if e.Current {
				idx = tbl.Bold(idx + "*")
			}
			output, size := "-", "-"
			if e.Output != nil {
				output = *e.Output
			}
			if e.OutputSize > 0 {
				size = humanize.Bytes(uint64(e.OutputSize))
			}
			tbl.Row(idx, truncate(e.Input, tbl.Width()/3), truncate(output, tbl.Width()/3), size)
		}
		return tbl.Flush()
	}),
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

// writeJSON writes v to stdout as indented JSON.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
