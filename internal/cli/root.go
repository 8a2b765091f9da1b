// Package cli implements the taskdb command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/timeutil"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
	jsonOut bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// newRootCmd builds the command tree. Building it resets the global flag
// values to their defaults.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskdb",
		Short: "Inspect and maintain the local task database",
		Long: `taskdb owns the lifetime of the local task database: it loads the
configuration, opens the store, and exposes maintenance operations.

Quick start:
  taskdb config init          Write a default config file
  taskdb migrate status       Show applied and pending schema versions
  taskdb stats                Show tables, size and row counts
  taskdb summary              Show list totals, overdue tasks, agenda and labels
  taskdb dirty                List rows waiting for sync
  taskdb check                Run a smoke test against a scratch database`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/taskdb/config.yaml)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides database.path)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")

	// Add subcommands
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newDirtyCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}

// configPath resolves the --config flag.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return model.DefaultConfigPath()
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the slog handler described by cfg. Unknown levels fall
// back to info.
func newLogger(cfg model.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore loads the configuration and opens the database it names. Logs
// go to the command's stderr. The caller closes the store.
func openStore(ctx context.Context, cmd *cobra.Command, extra ...store.Option) (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	opts := []store.Option{
		store.WithLogger(logger),
		store.WithOpTimeout(cfg.Database.OpTimeout),
		store.WithBusyTimeout(cfg.Database.BusyTimeout),
	}
	opts = append(opts, extra...)

	s := store.New(cfg.Database.Path, opts...)
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	return s, nil
}

// closeStore closes s, reporting a failure on stderr.
func closeStore(cmd *cobra.Command, s *store.SQLiteStore) {
	if err := s.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: closing database: %v\n", err)
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// formatTime renders epoch milliseconds in local time, or "-" for nil.
func formatTime(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return timeutil.ToTime(*ms).Local().Format(time.DateTime)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
