// Package enginetest provides an in-memory engine.Engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/scbrown/pct/internal/engine"
)

// Call is one recorded engine invocation.
type Call struct {
	Op   string
	Args []string
}

func (c Call) String() string {
	return c.Op + "(" + strings.Join(c.Args, ", ") + ")"
}

// Fake records every call. Derived clouds are virtual paths; Write creates
// a real file at the destination so later existence checks see it.
type Fake struct {
	Calls    []Call
	Shown    [][]string
	Plane    engine.Plane
	Clusters int
	Summary  engine.Summary

	// Errs maps an op name ("read", "write", "downsample", ...) to the error
	// that op returns.
	Errs map[string]error

	Closed bool
}

func (f *Fake) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Errs[op]
}

// Ops returns the op names in call order.
func (f *Fake) Ops() []string {
	ops := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		ops[i] = c.Op
	}
	return ops
}

func derived(op string, c engine.Cloud) engine.Cloud {
	return engine.NewCloud(op + ":" + c.Path())
}

func (f *Fake) Read(ctx context.Context, path string) (engine.Cloud, error) {
	if err := f.record("read", path); err != nil {
		return engine.Cloud{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return engine.Cloud{}, fmt.Errorf("read cloud: %w", err)
	}
	return engine.NewCloud(path), nil
}

func (f *Fake) Write(ctx context.Context, c engine.Cloud, path string) error {
	if err := f.record("write", c.Path(), path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("ply\ncomment "+c.Path()+"\n"), 0o644)
}

func (f *Fake) Downsample(ctx context.Context, c engine.Cloud, voxelSize float64) (engine.Cloud, error) {
	if err := f.record("downsample", c.Path(), fmt.Sprint(voxelSize)); err != nil {
		return engine.Cloud{}, err
	}
	return derived("downsample", c), nil
}

func (f *Fake) RemoveStatisticalOutliers(ctx context.Context, c engine.Cloud, neighbors int, ratio float64) (engine.Cloud, error) {
	if err := f.record("filter", c.Path(), fmt.Sprint(neighbors), fmt.Sprint(ratio)); err != nil {
		return engine.Cloud{}, err
	}
	return derived("filter", c), nil
}

func (f *Fake) SegmentPlane(ctx context.Context, c engine.Cloud, distance float64) (engine.Segmentation, error) {
	if err := f.record("segment", c.Path(), fmt.Sprint(distance)); err != nil {
		return engine.Segmentation{}, err
	}
	return engine.Segmentation{
		Plane:    f.Plane,
		Inliers:  derived("inliers", c),
		Outliers: derived("outliers", c),
	}, nil
}

func (f *Fake) Cluster(ctx context.Context, c engine.Cloud, epsilon float64, minPoints int) (engine.Cloud, int, error) {
	if err := f.record("cluster", c.Path(), fmt.Sprint(epsilon), fmt.Sprint(minPoints)); err != nil {
		return engine.Cloud{}, 0, err
	}
	return derived("cluster", c), f.Clusters, nil
}

func (f *Fake) Show(ctx context.Context, clouds ...engine.Cloud) error {
	paths := make([]string, len(clouds))
	for i, c := range clouds {
		paths[i] = c.Path()
	}
	if err := f.record("show", paths...); err != nil {
		return err
	}
	f.Shown = append(f.Shown, paths)
	return nil
}

func (f *Fake) Inspect(ctx context.Context, path string) (engine.Summary, error) {
	if err := f.record("inspect", path); err != nil {
		return engine.Summary{}, err
	}
	return f.Summary, nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

var _ engine.Engine = (*Fake)(nil)
