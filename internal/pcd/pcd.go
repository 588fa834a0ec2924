// Package pcd reads PCD headers natively, so inspecting a PCD file does not
// need the Open3D bridge.
package pcd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seqsense/pcgol/pc"
	"github.com/scbrown/pct/internal/engine"
)

// ErrUnsupported is returned for files that are not PCD.
var ErrUnsupported = errors.New("not a PCD file")

// Inspect summarizes the PCD file at path.
func Inspect(path string) (engine.Summary, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pcd") {
		return engine.Summary{}, ErrUnsupported
	}
	f, err := os.Open(path)
	if err != nil {
		return engine.Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cloud, err := pc.Unmarshal(bufio.NewReader(f))
	if err != nil {
		return engine.Summary{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return summarize(cloud), nil
}

func summarize(cloud *pc.PointCloud) engine.Summary {
	s := engine.Summary{
		Points: cloud.Points,
		Fields: append([]string(nil), cloud.Fields...),
		Width:  cloud.Width,
		Height: cloud.Height,
	}
	for _, f := range cloud.Fields {
		switch f {
		case "rgb", "rgba":
			s.HasColors = true
		case "normal_x":
			s.HasNormals = true
		}
	}
	return s
}
