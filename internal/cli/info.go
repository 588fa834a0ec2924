package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/scbrown/pct/internal/engine"
	"github.com/scbrown/pct/internal/history"
	"github.com/scbrown/pct/internal/pcd"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show the size and attributes of a point cloud",
	Long: `Report the point count, fields and attributes of a point cloud file.

PCD files are read directly. Other formats are loaded through Open3D.`,
	Example: `  pct info scan.pcd
  pct info scan.ply --json`,
	Args: cobra.ExactArgs(1),
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := history.CheckPath(path); err != nil {
			return err
		}

		sum, err := pcd.Inspect(path)
		if errors.Is(err, pcd.ErrUnsupported) {
			eng := newEngine(cfg)
			defer eng.Close()
			sum, err = eng.Inspect(cmd.Context(), path)
		}
		if err != nil {
			return fmt.Errorf("inspect %s: %w", path, err)
		}

		if jsonOutput {
			return writeJSON(sum)
		}
		return printSummary(path, sum)
	}),
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printSummary(path string, sum engine.Summary) error {
	tbl := NewTable(os.Stdout)
	tbl.Row(tbl.Bold("File:"), path)
	if fi, err := os.Stat(path); err == nil {
		tbl.Row(tbl.Bold("Size:"), humanize.Bytes(uint64(fi.Size())))
	}
	tbl.Row(tbl.Bold("Points:"), humanize.Comma(int64(sum.Points)))
	if sum.Width > 0 {
		tbl.Row(tbl.Bold("Layout:"), strconv.Itoa(sum.Width)+" x "+strconv.Itoa(sum.Height))
	}
	if len(sum.Fields) > 0 {
		tbl.Row(tbl.Bold("Fields:"), strings.Join(sum.Fields, " "))
	}
	tbl.Row(tbl.Bold("Colors:"), yesNo(sum.HasColors))
	tbl.Row(tbl.Bold("Normals:"), yesNo(sum.HasNormals))
	return tbl.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
