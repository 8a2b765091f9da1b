package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newResetCmd creates the reset command
func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and rebuild the schema",
		Long: `Drop every table in the configured database and re-run all migrations.
All lists, tasks, labels and subtasks are lost. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset destroys all data; re-run with --yes to confirm")
			}

			s, err := openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore(cmd, s)

			if err := s.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", s.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm data loss")

	return cmd
}
