package cli

import (
	"context"
	"fmt"

	"github.com/scbrown/pct/internal/engine"
	"github.com/spf13/cobra"
)

var (
	epsilon   float64
	minPoints float64
)

var clusterCmd = &cobra.Command{
	Use:   "c <input> <output>",
	Short: "Cluster a point cloud with DBSCAN",
	Long: `Group points with DBSCAN and write the cloud coloured by cluster to output.
Noise points are black. The number of clusters is printed on stdout.

--minimum is a point count; fractional values are truncated.`,
	Example: `  pct c objects.ply clusters.ply
  pct c objects.ply clusters.ply -e 0.05 -m 20`,
	Args: cobra.ExactArgs(2),
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		if err := checkPositive("epsilon", epsilon); err != nil {
			return err
		}
		minimum := int(minPoints)
		if minimum < 1 {
			return fmt.Errorf("--minimum must be at least 1, got %v", minPoints)
		}
		var count int
		err := process(cmd.Context(), args[0], args[1], func(ctx context.Context, eng engine.Engine, in engine.Cloud) (engine.Cloud, error) {
			out, n, err := eng.Cluster(ctx, in, epsilon, minimum)
			if err != nil {
				return engine.Cloud{}, fmt.Errorf("cluster: %w", err)
			}
			count = n
			return out, nil
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]int{"clusters": count})
		}
		fmt.Printf("point cloud has %d clusters\n", count)
		return nil
	}),
}

func init() {
	clusterCmd.Flags().Float64VarP(&epsilon, "epsilon", "e", 1, "neighbourhood radius")
	clusterCmd.Flags().Float64VarP(&minPoints, "minimum", "m", 10, "minimum points to form a cluster")
	rootCmd.AddCommand(clusterCmd)
}
