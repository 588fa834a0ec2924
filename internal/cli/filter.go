package cli

import (
	"context"
	"fmt"

	"github.com/scbrown/pct/internal/engine"
	"github.com/spf13/cobra"
)

var (
	neighbors int
	stdRatio  float64
)

var filterCmd = &cobra.Command{
	Use:   "f <input> <output>",
	Short: "Remove statistical outliers from a point cloud",
	Long: `Drop points whose mean distance to their nearest neighbors is more than
ratio standard deviations above the average for the whole cloud.`,
	Example: `  pct f scan.ply scan_clean.ply
  pct f scan.ply scan_clean.ply -n 50 -r 1.5`,
	Args: cobra.ExactArgs(2),
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		if neighbors < 1 {
			return fmt.Errorf("--neighbors must be at least 1, got %d", neighbors)
		}
		if err := checkPositive("ratio", stdRatio); err != nil {
			return err
		}
		return process(cmd.Context(), args[0], args[1], func(ctx context.Context, eng engine.Engine, in engine.Cloud) (engine.Cloud, error) {
			out, err := eng.RemoveStatisticalOutliers(ctx, in, neighbors, stdRatio)
			if err != nil {
				return engine.Cloud{}, fmt.Errorf("remove outliers: %w", err)
			}
			return out, nil
		})
	}),
}

func init() {
	filterCmd.Flags().IntVarP(&neighbors, "neighbors", "n", 20, "neighbors considered for each point's mean distance")
	filterCmd.Flags().Float64VarP(&stdRatio, "ratio", "r", 2.0, "standard deviation ratio above which a point is dropped")
	rootCmd.AddCommand(filterCmd)
}
