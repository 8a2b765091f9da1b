package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/theme"
)

// newMigrateCmd creates the migrate command
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert schema migrations",
		Long: `Apply or revert schema migrations. Each version runs in its own
transaction; a failed step leaves the schema at the last committed version.

Commands:
  status    Show the applied and latest versions
  up        Apply pending migrations
  down      Revert migrations above a version`,
	}

	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())

	return cmd
}

type migrateStatus struct {
	Path    string `json:"path"`
	Current int    `json:"current"`
	Latest  int    `json:"latest"`
	Pending int    `json:"pending"`
}

// withMigrator opens the configured database without auto-migrating and
// hands its Migrator to fn.
func withMigrator(cmd *cobra.Command, fn func(s *store.SQLiteStore, m *store.Migrator) error) error {
	s, err := openStore(cmd.Context(), cmd, store.WithoutAutoMigrate())
	if err != nil {
		return err
	}
	defer closeStore(cmd, s)

	m, err := s.Migrator()
	if err != nil {
		return err
	}
	return fn(s, m)
}

func printMigrateStatus(cmd *cobra.Command, s *store.SQLiteStore, m *store.Migrator) error {
	current, err := m.CurrentVersion(cmd.Context())
	if err != nil {
		return err
	}
	st := migrateStatus{
		Path:    s.Path(),
		Current: current,
		Latest:  m.LatestVersion(),
		Pending: max(m.LatestVersion()-current, 0),
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), st)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, theme.HeaderStyle.Render("Schema"))
	fmt.Fprintln(out, theme.Table(
		[]string{"database", "current", "latest", "pending"},
		[][]string{{st.Path, strconv.Itoa(st.Current), strconv.Itoa(st.Latest), strconv.Itoa(st.Pending)}},
	))
	return nil
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied and latest schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(s *store.SQLiteStore, m *store.Migrator) error {
				return printMigrateStatus(cmd, s, m)
			})
		},
	}
}

func newMigrateUpCmd() *cobra.Command {
	var to int

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long: `Apply pending migrations up to the latest version, or up to --to.

Examples:
  taskdb migrate up          # latest
  taskdb migrate up --to 2   # stop after version 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(s *store.SQLiteStore, m *store.Migrator) error {
				target := m.LatestVersion()
				if cmd.Flags().Changed("to") {
					target = to
				}
				if err := m.MigrateTo(cmd.Context(), target); err != nil {
					return err
				}
				return printMigrateStatus(cmd, s, m)
			})
		},
	}

	cmd.Flags().IntVar(&to, "to", 0, "target version (default latest)")

	return cmd
}

func newMigrateDownCmd() *cobra.Command {
	var to int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations above a version",
		Long: `Revert applied migrations newer than --to, newest first. Reverting to 0
drops every table.

Examples:
  taskdb migrate down --to 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(s *store.SQLiteStore, m *store.Migrator) error {
				if err := m.RollbackTo(cmd.Context(), to); err != nil {
					return err
				}
				return printMigrateStatus(cmd, s, m)
			})
		},
	}

	cmd.Flags().IntVar(&to, "to", 0, "version to keep")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
