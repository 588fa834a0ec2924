package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/scbrown/pct/internal/config"
	"github.com/scbrown/pct/internal/engine"
	"github.com/scbrown/pct/internal/engine/enginetest"
	"github.com/scbrown/pct/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// captureStdout redirects os.Stdout while fn runs and returns what was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// resetFlags restores every flag in the command tree to its default, since
// the package-level flag variables outlive a single Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setupCLI runs the test in an empty working directory with an empty config
// and a fake engine, which it returns.
func setupCLI(t *testing.T) *enginetest.Fake {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	oldConfig, oldEngine := configPath, newEngine
	configPath = filepath.Join(t.TempDir(), "config.toml")
	fake := &enginetest.Fake{}
	newEngine = func(*config.Config) engine.Engine { return fake }
	t.Cleanup(func() {
		configPath, newEngine = oldConfig, oldEngine
		cfg = &config.Config{}
		logger.SetLevel(log.InfoLevel)
	})
	return fake
}

// runCLI executes pct with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	rootCmd.SetArgs(normalizeArgs(args))
	var err error
	out := captureStdout(t, func() {
		err = rootCmd.ExecuteContext(context.Background())
	})
	return out, err
}

// touch creates a placeholder point cloud file.
func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("ply\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeHistory writes records to the default history file.
func writeHistory(t *testing.T, records ...model.Record) {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(".pct_history.json", data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// readHistory decodes the default history file.
func readHistory(t *testing.T) []model.Record {
	t.Helper()
	data, err := os.ReadFile(".pct_history.json")
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	return records
}
