package cli

import (
	"context"
	"fmt"

	"github.com/scbrown/pct/internal/engine"
	"github.com/spf13/cobra"
)

var voxelSize float64

var downsampleCmd = &cobra.Command{
	Use:   "d <input> <output>",
	Short: "Voxel downsample a point cloud",
	Long: `Replace the points inside each voxel with their centroid and write the
smaller cloud to output. Larger voxels give sparser clouds.`,
	Example: `  pct d scan.ply scan_down.ply
  pct d scan.pcd scan_down.ply -v 0.1`,
	Args: cobra.ExactArgs(2),
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		if err := checkPositive("voxel_size", voxelSize); err != nil {
			return err
		}
		return process(cmd.Context(), args[0], args[1], func(ctx context.Context, eng engine.Engine, in engine.Cloud) (engine.Cloud, error) {
			out, err := eng.Downsample(ctx, in, voxelSize)
			if err != nil {
				return engine.Cloud{}, fmt.Errorf("downsample: %w", err)
			}
			return out, nil
		})
	}),
}

func init() {
	downsampleCmd.Flags().Float64VarP(&voxelSize, "voxel_size", "v", 0.05, "voxel edge length")
	rootCmd.AddCommand(downsampleCmd)
}
