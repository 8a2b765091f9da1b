package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/theme"
)

// entityCounts is one row of the stats table.
type entityCounts struct {
	Entity string `json:"entity"`
	Live   int    `json:"live"`
	Total  int    `json:"total"`
	Dirty  int    `json:"dirty"`
}

type statsReport struct {
	Path     string         `json:"path"`
	Version  int            `json:"version"`
	DBSize   int64          `json:"db_size"`
	Tables   []string       `json:"tables"`
	Entities []entityCounts `json:"entities"`
}

// countFns pairs a counter with a dirty-queue reader for one entity.
type countFns struct {
	name  string
	count func(ctx context.Context, includeDeleted bool) (int, error)
	dirty func(ctx context.Context) (int, error)
}

func dirtyLen[T any](get func(context.Context) ([]T, error)) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		rows, err := get(ctx)
		return len(rows), err
	}
}

func entityCounters(s store.Store) []countFns {
	return []countFns{
		{"lists", s.CountLists, dirtyLen(s.GetDirtyLists)},
		{"tasks", s.CountTasks, dirtyLen(s.GetDirtyTasks)},
		{"labels", s.CountLabels, dirtyLen(s.GetDirtyLabels)},
		{"subtasks", s.CountSubtasks, dirtyLen(s.GetDirtySubtasks)},
	}
}

func collectStats(ctx context.Context, s *store.SQLiteStore) (statsReport, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return statsReport{}, err
	}
	report := statsReport{
		Path:    s.Path(),
		Version: st.Version,
		DBSize:  st.DBSize,
		Tables:  st.Tables,
	}

	for _, c := range entityCounters(s) {
		row := entityCounts{Entity: c.name}
		if row.Live, err = c.count(ctx, false); err != nil {
			return statsReport{}, fmt.Errorf("count %s: %w", c.name, err)
		}
		if row.Total, err = c.count(ctx, true); err != nil {
			return statsReport{}, fmt.Errorf("count %s: %w", c.name, err)
		}
		if row.Dirty, err = c.dirty(ctx); err != nil {
			return statsReport{}, fmt.Errorf("dirty %s: %w", c.name, err)
		}
		report.Entities = append(report.Entities, row)
	}
	return report, nil
}

// newStatsCmd creates the stats command
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tables, size and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore(cmd, s)

			report, err := collectStats(cmd.Context(), s)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.HeaderStyle.Render("Database"))
			fmt.Fprintf(out, "  path:    %s\n", report.Path)
			fmt.Fprintf(out, "  schema:  v%d\n", report.Version)
			fmt.Fprintf(out, "  size:    %s\n", humanize.IBytes(uint64(report.DBSize)))
			fmt.Fprintf(out, "  tables:  %s\n", strings.Join(report.Tables, ", "))
			fmt.Fprintln(out)

			rows := make([][]string, 0, len(report.Entities))
			for _, e := range report.Entities {
				rows = append(rows, []string{
					e.Entity,
					strconv.Itoa(e.Live),
					strconv.Itoa(e.Total - e.Live),
					strconv.Itoa(e.Dirty),
				})
			}
			fmt.Fprintln(out, theme.Table([]string{"entity", "live", "deleted", "dirty"}, rows))
			return nil
		},
	}
}
