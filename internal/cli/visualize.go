package cli

import (
	"fmt"

	"github.com/scbrown/pct/internal/engine"
	"github.com/scbrown/pct/internal/history"
	"github.com/scbrown/pct/internal/model"
	"github.com/spf13/cobra"
)

var visualizeCmd = &cobra.Command{
	Use:   "v [path]",
	Short: "Open a point cloud in the viewer",
	Long: `Open a point cloud in the interactive viewer and block until the window
is closed.

With a path, the path must exist; it is recorded in the history and shown.
Without one, the most recent history entry is shown: its output if that file
still exists, otherwise its input. Viewing from history does not change it.`,
	Example: `  pct v scan.ply
  pct d scan.ply scan_down.ply && pct v`,
	Args: cobra.MaximumNArgs(1),
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var path string
		if len(args) == 1 {
			path = args[0]
			if err := recordView(cmd, path); err != nil {
				return err
			}
		} else {
			s, err := openHistory(ctx, false)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			path, err = s.ResolveLatest()
			s.Close()
			if err != nil {
				return err
			}
		}

		logger.Debug("showing", "path", path)
		eng := newEngine(cfg)
		defer eng.Close()
		if err := eng.Show(ctx, engine.NewCloud(path)); err != nil {
			return fmt.Errorf("show %s: %w", path, err)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(visualizeCmd)
}

// recordView appends {path, null} to the history. The lock is released
// before the viewer opens.
func recordView(cmd *cobra.Command, path string) error {
	if err := history.CheckPath(path); err != nil {
		return err
	}
	s, err := openHistory(cmd.Context(), true)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer s.Close()
	if err := s.Append(model.ViewRecord(path)); err != nil {
		return err
	}
	return s.Persist(cmd.Context())
}
