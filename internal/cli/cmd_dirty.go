package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/theme"
)

// dirtyRow is one pending change as a sync client would see it.
type dirtyRow struct {
	Entity    string `json:"entity"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Version   int64  `json:"version"`
	UpdatedAt int64  `json:"updated_at"`
	Deleted   bool   `json:"deleted"`
}

func toDirtyRow(entity, title string, m model.SyncMeta) dirtyRow {
	return dirtyRow{
		Entity:    entity,
		ID:        m.ID,
		Title:     title,
		Version:   m.Version,
		UpdatedAt: m.UpdatedAt,
		Deleted:   m.IsDeleted(),
	}
}

// collectDirty reads every entity's dirty queue, lists first so parents
// precede children.
func collectDirty(ctx context.Context, s store.Store) ([]dirtyRow, error) {
	var rows []dirtyRow

	lists, err := s.GetDirtyLists(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		rows = append(rows, toDirtyRow("list", l.Name, l.SyncMeta))
	}

	tasks, err := s.GetDirtyTasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		rows = append(rows, toDirtyRow("task", t.Title, t.SyncMeta))
	}

	labels, err := s.GetDirtyLabels(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		rows = append(rows, toDirtyRow("label", l.Name, l.SyncMeta))
	}

	subtasks, err := s.GetDirtySubtasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range subtasks {
		rows = append(rows, toDirtyRow("subtask", st.Title, st.SyncMeta))
	}

	return rows, nil
}

// markCleanFn returns the MarkClean operation for an entity name.
func markCleanFn(s store.Store, entity string) (func(context.Context, string, *int64) (bool, error), error) {
	switch entity {
	case "list", "lists":
		return s.MarkListClean, nil
	case "task", "tasks":
		return s.MarkTaskClean, nil
	case "label", "labels":
		return s.MarkLabelClean, nil
	case "subtask", "subtasks":
		return s.MarkSubtaskClean, nil
	default:
		return nil, fmt.Errorf("%w: unknown entity %q (want list, task, label or subtask)", store.ErrInvalidInput, entity)
	}
}

// newDirtyCmd creates the dirty command
func newDirtyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirty",
		Short: "List rows waiting for sync",
		Long: `List every row whose dirty flag is set, oldest change first within each
entity. These are the rows a synchronizer would push.

Examples:
  taskdb dirty
  taskdb dirty --json
  taskdb dirty clean task 3f1c... --version 4
  taskdb dirty clean --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore(cmd, s)

			rows, err := collectDirty(cmd.Context(), s)
			if err != nil {
				return err
			}
			if jsonOut {
				if rows == nil {
					rows = []dirtyRow{}
				}
				return printJSON(cmd.OutOrStdout(), rows)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, theme.HelpStyle.Render("Nothing to sync."))
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				state := ""
				if r.Deleted {
					state = "deleted"
				}
				table = append(table, []string{
					r.Entity,
					r.ID,
					truncate(r.Title, 30),
					strconv.FormatInt(r.Version, 10),
					formatTime(&r.UpdatedAt),
					state,
				})
			}
			fmt.Fprintln(out, theme.Table([]string{"entity", "id", "title", "version", "updated", ""}, table))
			fmt.Fprintf(out, "%d dirty row(s)\n", len(rows))
			return nil
		},
	}

	cmd.AddCommand(newDirtyCleanCmd())

	return cmd
}

func newDirtyCleanCmd() *cobra.Command {
	var (
		version int64
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "clean [entity id]",
		Short: "Clear the dirty flag after a successful push",
		Long: `Clear the dirty flag on one row, optionally pinning the version the remote
acknowledged. With --all every dirty row is cleaned at its current version.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore(cmd, s)

			out := cmd.OutOrStdout()
			if all {
				rows, err := collectDirty(ctx, s)
				if err != nil {
					return err
				}
				cleaned := 0
				for _, r := range rows {
					mark, err := markCleanFn(s, r.Entity)
					if err != nil {
						return err
					}
					ok, err := mark(ctx, r.ID, nil)
					if err != nil {
						return fmt.Errorf("clean %s %s: %w", r.Entity, r.ID, err)
					}
					if ok {
						cleaned++
					}
				}
				fmt.Fprintf(out, "Cleaned %d row(s)\n", cleaned)
				return nil
			}

			mark, err := markCleanFn(s, args[0])
			if err != nil {
				return err
			}
			var pin *int64
			if cmd.Flags().Changed("version") {
				pin = &version
			}
			ok, err := mark(ctx, args[1], pin)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s %s", store.ErrNotFound, args[0], args[1])
			}
			fmt.Fprintf(out, "Cleaned %s %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().Int64Var(&version, "version", 0, "pin the row to this acknowledged version")
	cmd.Flags().BoolVar(&all, "all", false, "clean every dirty row")

	return cmd
}
