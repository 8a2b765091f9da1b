package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage taskdb configuration.

Configuration is loaded with this priority:
  1. Command-line flags (--db, --verbose)
  2. Environment variables (TASKDB_DATABASE_PATH, TASKDB_LOG_LEVEL, ...)
  3. The config file (~/.config/taskdb/config.yaml or --config)
  4. Built-in defaults

Subcommands:
  show        Show the effective configuration
  init        Write a config file with the defaults`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

// configView is the printable form of AppConfig; durations render as
// strings like "5s".
func configView(cfg *model.AppConfig) map[string]any {
	return map[string]any{
		"database": map[string]any{
			"path":         cfg.Database.Path,
			"op_timeout":   cfg.Database.OpTimeout.String(),
			"busy_timeout": cfg.Database.BusyTimeout.String(),
		},
		"log": map[string]any{
			"level":  cfg.Log.Level,
			"format": cfg.Log.Format,
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			view := configView(cfg)
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), view)
			}

			data, err := yaml.Marshal(view)
			if err != nil {
				return fmt.Errorf("encode yaml: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", configPath(), data)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Long: `Write the effective configuration (defaults plus any environment or flag
overrides) to the config file.

Examples:
  taskdb config init                       # ~/.config/taskdb/config.yaml
  taskdb config init --config ./dev.yaml   # somewhere else
  taskdb config init --db :memory: --force # overwrite with an in-memory db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat config %s: %w", path, err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := model.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}
