package engine

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

//go:embed bridge.py
var bridgeScript string

// ransacN is the number of points sampled per RANSAC hypothesis.
const ransacN = 3

// stderrTail is how many trailing stderr lines are kept in error messages.
const stderrTail = 5

// Open3D drives the Open3D library through a Python subprocess, one process
// per operation. Intermediate clouds are written as PLY files to a scratch
// directory that Close removes.
type Open3D struct {
	python     string
	iterations int
	logger     *log.Logger

	scratch string
	seq     int
}

// NewOpen3D returns an engine that runs python with the embedded bridge.
// iterations bounds RANSAC plane fitting. A nil logger discards output.
func NewOpen3D(python string, iterations int, logger *log.Logger) *Open3D {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Open3D{python: python, iterations: iterations, logger: logger}
}

type request struct {
	Op         string   `json:"op"`
	Input      string   `json:"input,omitempty"`
	Inputs     []string `json:"inputs,omitempty"`
	Output     string   `json:"output,omitempty"`
	Inliers    string   `json:"inliers,omitempty"`
	VoxelSize  float64  `json:"voxel_size,omitempty"`
	Neighbors  int      `json:"neighbors,omitempty"`
	Ratio      float64  `json:"ratio,omitempty"`
	Distance   float64  `json:"distance,omitempty"`
	RANSACN    int      `json:"ransac_n,omitempty"`
	Iterations int      `json:"iterations,omitempty"`
	Epsilon    float64  `json:"epsilon,omitempty"`
	MinPoints  int      `json:"min_points,omitempty"`
}

type response struct {
	Points     int       `json:"points"`
	Inliers    int       `json:"inliers"`
	Plane      []float64 `json:"plane"`
	Clusters   int       `json:"clusters"`
	HasColors  bool      `json:"has_colors"`
	HasNormals bool      `json:"has_normals"`
	Error      string    `json:"error"`
}

// Read checks that path exists. The library loads it lazily in the next
// operation, so a malformed file is reported there.
func (o *Open3D) Read(ctx context.Context, path string) (Cloud, error) {
	if _, err := os.Stat(path); err != nil {
		return Cloud{}, fmt.Errorf("read cloud: %w", err)
	}
	return NewCloud(path), nil
}

// Write stores c at path. PLY to PLY is a plain copy; anything else goes
// through the library so the format follows the extension.
func (o *Open3D) Write(ctx context.Context, c Cloud, path string) error {
	if c.path == path {
		return nil
	}
	if strings.EqualFold(filepath.Ext(c.path), ".ply") && strings.EqualFold(filepath.Ext(path), ".ply") {
		return copyFile(c.path, path)
	}
	_, err := o.run(ctx, request{Op: "convert", Input: c.path, Output: path})
	return err
}

func (o *Open3D) Downsample(ctx context.Context, c Cloud, voxelSize float64) (Cloud, error) {
	out, err := o.tempCloud("downsample")
	if err != nil {
		return Cloud{}, err
	}
	if _, err := o.run(ctx, request{Op: "downsample", Input: c.path, Output: out, VoxelSize: voxelSize}); err != nil {
		return Cloud{}, err
	}
	return NewCloud(out), nil
}

func (o *Open3D) RemoveStatisticalOutliers(ctx context.Context, c Cloud, neighbors int, ratio float64) (Cloud, error) {
	out, err := o.tempCloud("filter")
	if err != nil {
		return Cloud{}, err
	}
	if _, err := o.run(ctx, request{Op: "outliers", Input: c.path, Output: out, Neighbors: neighbors, Ratio: ratio}); err != nil {
		return Cloud{}, err
	}
	return NewCloud(out), nil
}

func (o *Open3D) SegmentPlane(ctx context.Context, c Cloud, distance float64) (Segmentation, error) {
	outliers, err := o.tempCloud("outliers")
	if err != nil {
		return Segmentation{}, err
	}
	inliers, err := o.tempCloud("inliers")
	if err != nil {
		return Segmentation{}, err
	}
	resp, err := o.run(ctx, request{
		Op:         "segment",
		Input:      c.path,
		Output:     outliers,
		Inliers:    inliers,
		Distance:   distance,
		RANSACN:    ransacN,
		Iterations: o.iterations,
	})
	if err != nil {
		return Segmentation{}, err
	}
	if len(resp.Plane) != 4 {
		return Segmentation{}, fmt.Errorf("open3d segment: got %d plane coefficients, want 4", len(resp.Plane))
	}
	return Segmentation{
		Plane:    Plane{A: resp.Plane[0], B: resp.Plane[1], C: resp.Plane[2], D: resp.Plane[3]},
		Inliers:  NewCloud(inliers),
		Outliers: NewCloud(outliers),
	}, nil
}

func (o *Open3D) Cluster(ctx context.Context, c Cloud, epsilon float64, minPoints int) (Cloud, int, error) {
	out, err := o.tempCloud("cluster")
	if err != nil {
		return Cloud{}, 0, err
	}
	resp, err := o.run(ctx, request{Op: "cluster", Input: c.path, Output: out, Epsilon: epsilon, MinPoints: minPoints})
	if err != nil {
		return Cloud{}, 0, err
	}
	return NewCloud(out), resp.Clusters, nil
}

func (o *Open3D) Show(ctx context.Context, clouds ...Cloud) error {
	if len(clouds) == 0 {
		return errors.New("show: no clouds")
	}
	paths := make([]string, len(clouds))
	for i, c := range clouds {
		paths[i] = c.path
	}
	_, err := o.run(ctx, request{Op: "show", Inputs: paths})
	return err
}

func (o *Open3D) Inspect(ctx context.Context, path string) (Summary, error) {
	resp, err := o.run(ctx, request{Op: "info", Input: path})
	if err != nil {
		return Summary{}, err
	}
	return Summary{Points: resp.Points, HasColors: resp.HasColors, HasNormals: resp.HasNormals}, nil
}

// Close removes the scratch directory.
func (o *Open3D) Close() error {
	if o.scratch == "" {
		return nil
	}
	err := os.RemoveAll(o.scratch)
	o.scratch = ""
	return err
}

// tempCloud returns a fresh PLY path in the scratch directory.
func (o *Open3D) tempCloud(name string) (string, error) {
	if o.scratch == "" {
		dir, err := os.MkdirTemp("", "pct-*")
		if err != nil {
			return "", fmt.Errorf("create scratch dir: %w", err)
		}
		o.scratch = dir
	}
	o.seq++
	return filepath.Join(o.scratch, fmt.Sprintf("%02d_%s.ply", o.seq, name)), nil
}

// run executes one bridge request. Library output on stderr is forwarded to
// the debug log and its tail is attached to failures.
func (o *Open3D) run(ctx context.Context, req request) (response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return response{}, fmt.Errorf("encode %s request: %w", req.Op, err)
	}
	o.logger.Debug("open3d", "op", req.Op, "input", req.Input, "output", req.Output)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.python, "-c", bridgeScript)
	cmd.Stdin = bytes.NewReader(body)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	var lines []string
	sc := bufio.NewScanner(&stderr)
	for sc.Scan() {
		line := sc.Text()
		o.logger.Debug(line, "op", req.Op)
		lines = append(lines, line)
	}
	if len(lines) > stderrTail {
		lines = lines[len(lines)-stderrTail:]
	}

	var resp response
	decodeErr := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp)
	switch {
	case decodeErr == nil && resp.Error != "":
		return response{}, fmt.Errorf("open3d %s: %s", req.Op, resp.Error)
	case runErr != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, fmt.Errorf("open3d %s: %w", req.Op, ctxErr)
		}
		if len(lines) > 0 {
			return response{}, fmt.Errorf("open3d %s: %w: %s", req.Op, runErr, strings.Join(lines, "; "))
		}
		return response{}, fmt.Errorf("open3d %s: %w", req.Op, runErr)
	case decodeErr != nil:
		return response{}, fmt.Errorf("open3d %s: decode response: %w", req.Op, decodeErr)
	}
	return resp, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

var _ Engine = (*Open3D)(nil)
