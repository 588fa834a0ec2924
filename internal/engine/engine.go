// Package engine is the boundary to the point-cloud library. Every
// geometric operation (voxel downsampling, outlier statistics, RANSAC,
// DBSCAN, viewing) happens behind the Engine interface; pct only moves
// file paths and parameters across it.
package engine

import (
	"context"
	"fmt"
)

// Cloud is an opaque handle to a point cloud the library can load.
type Cloud struct {
	path string
}

// NewCloud wraps a file the library can read as a Cloud.
func NewCloud(path string) Cloud {
	return Cloud{path: path}
}

// Path returns the file holding the cloud.
func (c Cloud) Path() string {
	return c.path
}

// Plane holds the coefficients of ax + by + cz + d = 0.
type Plane struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
}

func (p Plane) String() string {
	return fmt.Sprintf("%.2fx + %.2fy + %.2fz + %.2f = 0", p.A, p.B, p.C, p.D)
}

// Segmentation is the result of fitting a plane to a cloud.
type Segmentation struct {
	Plane    Plane
	Inliers  Cloud // Points on the plane, painted red.
	Outliers Cloud // Everything else.
}

// Summary describes a point cloud file.
type Summary struct {
	Points     int      `json:"points"`
	Fields     []string `json:"fields,omitempty"`
	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	HasColors  bool     `json:"has_colors"`
	HasNormals bool     `json:"has_normals"`
}

// Engine is the point-cloud library as seen by pct. All calls block until
// the library returns; Show blocks until the viewer window is closed.
type Engine interface {
	// Read opens the point cloud stored at path.
	Read(ctx context.Context, path string) (Cloud, error)

	// Write stores c at path, converting formats by extension.
	Write(ctx context.Context, c Cloud, path string) error

	// Downsample replaces the points in each voxel of the given edge length
	// with their centroid.
	Downsample(ctx context.Context, c Cloud, voxelSize float64) (Cloud, error)

	// RemoveStatisticalOutliers drops points whose mean distance to their
	// neighbors exceeds ratio standard deviations of the cloud average.
	RemoveStatisticalOutliers(ctx context.Context, c Cloud, neighbors int, ratio float64) (Cloud, error)

	// SegmentPlane fits a plane with RANSAC using the given inlier distance.
	SegmentPlane(ctx context.Context, c Cloud, distance float64) (Segmentation, error)

	// Cluster labels points with DBSCAN and colours them by label, noise in
	// black. It returns the coloured cloud and the number of clusters.
	Cluster(ctx context.Context, c Cloud, epsilon float64, minPoints int) (Cloud, int, error)

	// Show opens the interactive viewer on clouds.
	Show(ctx context.Context, clouds ...Cloud) error

	// Inspect reports the size and attributes of the cloud at path.
	Inspect(ctx context.Context, path string) (Summary, error)

	// Close releases intermediate clouds.
	Close() error
}
