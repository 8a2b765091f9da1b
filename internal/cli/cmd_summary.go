package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/theme"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/timeutil"
)

type summaryReport struct {
	Lists   []model.ListSummary `json:"lists"`
	Overdue []model.Task        `json:"overdue"`
	Agenda  []model.Task        `json:"agenda"`
	Labels  []model.LabelUsage  `json:"labels"`
}

// agendaWindow spans whole local days: today through today+days-1.
func agendaWindow(now time.Time, days int) (start, end int64, err error) {
	if days < 1 {
		return 0, 0, fmt.Errorf("%w: --days must be at least 1, got %d", store.ErrInvalidInput, days)
	}
	start = timeutil.StartOfDay(now)
	last := time.UnixMilli(timeutil.AddDays(start, days-1, now.Location())).In(now.Location())
	return start, timeutil.EndOfDay(last), nil
}

// statusFilter keeps the named statuses, or every unfinished task when none
// are given.
func statusFilter(raw []string) (func(model.TaskStatus) bool, error) {
	if len(raw) == 0 {
		return model.TaskStatus.Active, nil
	}
	want := make(map[model.TaskStatus]bool, len(raw))
	for _, r := range raw {
		st, err := model.ParseTaskStatus(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrInvalidInput, err)
		}
		want[st] = true
	}
	return func(st model.TaskStatus) bool { return want[st] }, nil
}

func taskRows(tasks []model.Task, now time.Time) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = humanize.RelTime(timeutil.ToTime(*t.DueDate), now, "ago", "from now")
		}
		rows = append(rows, []string{
			truncate(t.Title, 40),
			theme.StatusStyle(t.Status).Render(string(t.Status)),
			theme.PriorityStyle(t.Priority).Render(strconv.Itoa(t.Priority)),
			due,
		})
	}
	return rows
}

// newSummaryCmd creates the summary command
func newSummaryCmd() *cobra.Command {
	var (
		days     int
		statuses []string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show per-list task counts, overdue tasks, the agenda and label usage",
		Long: `Show per-list task counts, overdue tasks, tasks due in the next few days
and label usage. The agenda lists unfinished tasks unless --status names the
statuses to keep.

Examples:
  taskdb summary
  taskdb summary --days 7
  taskdb summary --status done --status blocked`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			start, end, err := agendaWindow(now, days)
			if err != nil {
				return err
			}
			keep, err := statusFilter(statuses)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore(cmd, s)

			var report summaryReport
			if report.Lists, err = s.GetListSummaries(ctx); err != nil {
				return err
			}
			if report.Overdue, err = s.GetOverdueTasks(ctx); err != nil {
				return err
			}
			due, err := s.GetAgenda(ctx, start, end)
			if err != nil {
				return err
			}
			report.Agenda = make([]model.Task, 0, len(due))
			for _, t := range due {
				if keep(t.Status) {
					report.Agenda = append(report.Agenda, t)
				}
			}
			if report.Labels, err = s.GetLabelsWithTaskCounts(ctx); err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.HeaderStyle.Render("Lists"))
			if len(report.Lists) == 0 {
				fmt.Fprintln(out, theme.HelpStyle.Render("  no lists"))
			} else {
				rows := make([][]string, 0, len(report.Lists))
				for _, l := range report.Lists {
					rows = append(rows, []string{
						truncate(l.Name, 30),
						strconv.Itoa(l.TaskCount),
						strconv.Itoa(l.CompletedCount),
						formatTime(&l.UpdatedAt),
					})
				}
				fmt.Fprintln(out, theme.Table([]string{"list", "tasks", "done", "updated"}, rows))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.HeaderStyle.Render(fmt.Sprintf("Overdue (%d)", len(report.Overdue))))
			if len(report.Overdue) > 0 {
				fmt.Fprintln(out, theme.Table([]string{"task", "status", "priority", "due"}, taskRows(report.Overdue, now)))
			}

			fmt.Fprintln(out)
			header := "Today"
			if days > 1 {
				header = fmt.Sprintf("Next %d days", days)
			}
			fmt.Fprintln(out, theme.HeaderStyle.Render(fmt.Sprintf("%s (%d)", header, len(report.Agenda))))
			if len(report.Agenda) > 0 {
				fmt.Fprintln(out, theme.Table([]string{"task", "status", "priority", "due"}, taskRows(report.Agenda, now)))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.HeaderStyle.Render("Labels"))
			if len(report.Labels) == 0 {
				fmt.Fprintln(out, theme.HelpStyle.Render("  no labels"))
				return nil
			}
			rows := make([][]string, 0, len(report.Labels))
			for _, l := range report.Labels {
				rows = append(rows, []string{truncate(l.Name, 30), strconv.Itoa(l.TaskCount)})
			}
			fmt.Fprintln(out, theme.Table([]string{"label", "tasks"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 1, "agenda length in days, starting today")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "agenda statuses to show (todo, in_progress, blocked, done)")

	return cmd
}
