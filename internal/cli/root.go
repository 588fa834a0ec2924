// Package cli defines the cobra command tree for the pct CLI.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/scbrown/pct/internal/config"
	"github.com/scbrown/pct/internal/engine"
	"github.com/scbrown/pct/internal/history"
	"github.com/spf13/cobra"
)

var (
	historyPath string
	jsonOutput  bool
	verbose     bool
	clearConfig bool
)

// cfg is the loaded configuration; PersistentPreRunE replaces it.
var cfg = &config.Config{}

// logger writes operational messages to stderr. Command results go to stdout.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	Prefix:          "pct",
})

// newEngine builds the point-cloud engine for a command, settable for testing.
var newEngine = func(c *config.Config) engine.Engine {
	return engine.NewOpen3D(c.PythonOrDefault(), c.RANSACIterationsOrDefault(), logger)
}

// rootCmd is the top-level pct command.
var rootCmd = &cobra.Command{
	Use:   "pct",
	Short: "Point cloud tool - downsample, filter, segment, cluster and view point clouds",
	Long: `pct runs point-cloud operations from the Open3D library on files and keeps
a history of what it processed, so "pct v" with no argument reopens the most
recent result.

The history is a JSON file (.pct_history.json in the working directory by
default, configurable via --history or pct config history_path). Every
processing command appends one {input, output} record; "pct v <path>" appends
a record for the viewed path. Use --clear-config to empty it.

Open3D is reached through a Python interpreter (pct config python), which must
be able to import open3d.`,
	Example: `  # Downsample, then view the result
  pct d house.ply house_down.ply -v 0.1
  pct v

  # Remove outliers, find the floor, cluster what is left
  pct f house_down.ply house_clean.ply -n 20 -r 2.0
  pct s house_clean.ply house_objects.ply -dt 0.25 --inliers floor.ply
  pct c house_objects.ply house_clusters.ply -e 1 -m 10

  # Forget everything
  pct --clear-config`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		c, err := config.LoadFrom(configPath)
		if err != nil {
			logger.Warn("ignoring config", "path", configPath, "err", err)
			c = &config.Config{}
		}
		cfg = c
		if cfg.HistoryPath != "" && !cmd.Flags().Changed("history") {
			historyPath = cfg.HistoryPath
		}
		if cfg.DefaultFormat == "json" && !cmd.Flags().Changed("json") {
			jsonOutput = true
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if clearConfig {
			return runClearConfig(cmd.Context())
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", history.DefaultPath, "path to the history file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log bridge calls and library output")
	rootCmd.PersistentFlags().BoolVar(&clearConfig, "clear-config", false, "clear the history and exit without running a command")
}

// runE wraps a subcommand so that --clear-config replaces it.
func runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if clearConfig {
			return runClearConfig(cmd.Context())
		}
		return fn(cmd, args)
	}
}

// openHistory opens the configured history. Mutating callers pass lock=true
// and hold the store until they have persisted.
func openHistory(ctx context.Context, lock bool) (*history.Store, error) {
	return history.Open(ctx, history.Options{
		Path:    historyPath,
		Backend: cfg.HistoryBackend,
		Lock:    lock,
	})
}

// runClearConfig empties the history and persists it. An unreadable history
// is replaced rather than reported, since discarding it is the intent.
func runClearConfig(ctx context.Context) error {
	s, err := history.Open(ctx, history.Options{
		Path:     historyPath,
		Backend:  cfg.HistoryBackend,
		Lock:     true,
		Truncate: true,
	})
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer s.Close()

	s.Clear()
	if err := s.Persist(ctx); err != nil {
		return err
	}
	fmt.Printf("Cleared history %s\n", s.Path())
	return nil
}

// legacyShorthands maps multi-letter single-dash flags, which pflag cannot
// parse, to their long forms.
var legacyShorthands = map[string]string{
	"-dt": "--distance",
}

// normalizeArgs rewrites legacy shorthands up to the first "--".
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "--" {
			copy(out[i:], args[i:])
			break
		}
		name, value, hasValue := strings.Cut(a, "=")
		if long, ok := legacyShorthands[name]; ok {
			a = long
			if hasValue {
				a += "=" + value
			}
		}
		out[i] = a
	}
	return out
}

// Execute runs the root command with os.Args. SIGINT and SIGTERM cancel the
// running operation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	return rootCmd.ExecuteContext(ctx)
}
