package cli

import (
	"context"
	"fmt"

	"github.com/scbrown/pct/internal/engine"
	"github.com/spf13/cobra"
)

var (
	distance    float64
	inliersPath string
)

var segmentCmd = &cobra.Command{
	Use:   "s <input> <output>",
	Short: "Segment the dominant plane out of a point cloud",
	Long: `Fit a plane with RANSAC and write the points off the plane to output.
Points within distance of the plane are its inliers; pass --inliers to save
them too, painted red. The plane equation is printed on stdout.

-dt is accepted as a shorthand for --distance.`,
	Example: `  pct s room.ply room_objects.ply
  pct s room.ply room_objects.ply -dt 0.02 --inliers floor.ply`,
	Args: cobra.ExactArgs(2),
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		if err := checkPositive("distance", distance); err != nil {
			return err
		}
		var plane engine.Plane
		err := process(cmd.Context(), args[0], args[1], func(ctx context.Context, eng engine.Engine, in engine.Cloud) (engine.Cloud, error) {
			seg, err := eng.SegmentPlane(ctx, in, distance)
			if err != nil {
				return engine.Cloud{}, fmt.Errorf("segment plane: %w", err)
			}
			if inliersPath != "" {
				if err := eng.Write(ctx, seg.Inliers, inliersPath); err != nil {
					return engine.Cloud{}, fmt.Errorf("write %s: %w", inliersPath, err)
				}
				logger.Info("wrote", "path", inliersPath, "points", "inliers")
			}
			plane = seg.Plane
			return seg.Outliers, nil
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(plane)
		}
		fmt.Printf("Plane equation: %s\n", plane)
		return nil
	}),
}

func init() {
	segmentCmd.Flags().Float64Var(&distance, "distance", 0.25, "maximum distance from the plane for an inlier")
	segmentCmd.Flags().StringVar(&inliersPath, "inliers", "", "also write the plane's points to this file")
	rootCmd.AddCommand(segmentCmd)
}
