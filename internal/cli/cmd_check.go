package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/store"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/theme"
	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/timeutil"
)

type checkResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// checkStep runs one probe against the scratch store. A returned error fails
// the step; the string is an optional detail shown on success.
type checkStep struct {
	name string
	run  func(ctx context.Context, s store.Store, st *checkState) (string, error)
}

// checkState carries ids between steps.
type checkState struct {
	list  *model.List
	task  *model.Task
	label *model.Label
	subs  []*model.Subtask
}

var errCheck = errors.New("check failed")

func failf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errCheck}, args...)...)
}

var checkSteps = []checkStep{
	{"create list and task", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		var err error
		if st.list, err = s.CreateList(ctx, model.ListInput{Name: "Work"}); err != nil {
			return "", err
		}
		if st.task, err = s.CreateTask(ctx, model.TaskInput{
			ListID:  st.list.ID,
			Title:   "Report",
			DueDate: timeutil.Ptr(timeutil.EndOfDay(time.Now())),
		}); err != nil {
			return "", err
		}
		if st.task.Version != 0 || !st.task.Dirty {
			return "", failf("new task has version %d dirty %v", st.task.Version, st.task.Dirty)
		}
		return st.task.ID, nil
	}},
	{"empty update is a no-op", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		got, err := s.UpdateTask(ctx, st.task.ID, model.TaskPatch{})
		if err != nil {
			return "", err
		}
		if got.Version != st.task.Version {
			return "", failf("version moved from %d to %d", st.task.Version, got.Version)
		}
		return "", nil
	}},
	{"agenda covers today", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		now := time.Now()
		due, err := s.GetAgenda(ctx, timeutil.StartOfDay(now), timeutil.EndOfDay(now))
		if err != nil {
			return "", err
		}
		if len(due) != 1 || due[0].ID != st.task.ID {
			return "", failf("agenda holds %d tasks, want the new task", len(due))
		}
		return "", nil
	}},
	{"reject task without live list", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		_, err := s.CreateTask(ctx, model.TaskInput{ListID: "missing", Title: "orphan"})
		if !errors.Is(err, store.ErrForeignKey) {
			return "", failf("got %v, want foreign key error", err)
		}
		return "", nil
	}},
	{"label links are idempotent", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		var err error
		if st.label, err = s.CreateLabel(ctx, model.LabelInput{Name: "urgent"}); err != nil {
			return "", err
		}
		for range 2 {
			if err := s.SetTaskLabels(ctx, st.task.ID, []string{st.label.ID}); err != nil {
				return "", err
			}
		}
		if added, err := s.AddLabelToTask(ctx, st.task.ID, st.label.ID); err != nil || added {
			return "", failf("second add returned added=%v err=%v", added, err)
		}
		labels, err := s.GetLabelsForTask(ctx, st.task.ID)
		if err != nil {
			return "", err
		}
		if len(labels) != 1 {
			return "", failf("task carries %d labels, want 1", len(labels))
		}
		return "", nil
	}},
	{"fractional move lands between", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		for _, title := range []string{"a", "b", "c"} {
			sub, err := s.AddSubtask(ctx, st.task.ID, title)
			if err != nil {
				return "", err
			}
			st.subs = append(st.subs, sub)
		}
		a, b, c := st.subs[0], st.subs[1], st.subs[2]
		moved, err := s.MoveSubtask(ctx, model.SubtaskMove{SubtaskID: c.ID, AfterID: a.ID, BeforeID: b.ID})
		if err != nil {
			return "", err
		}
		if *moved.SortOrder <= *a.SortOrder || *moved.SortOrder >= *b.SortOrder {
			return "", failf("key %v not between %v and %v", *moved.SortOrder, *a.SortOrder, *b.SortOrder)
		}
		return fmt.Sprintf("sort_order %g", *moved.SortOrder), nil
	}},
	{"complete task bumps version", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		done, err := s.MarkTaskDone(ctx, st.task.ID)
		if err != nil {
			return "", err
		}
		if done.Status != model.TaskStatusDone || done.CompletedAt == nil {
			return "", failf("status %s completed_at %v", done.Status, done.CompletedAt)
		}
		if done.Version != st.task.Version+1 {
			return "", failf("version %d, want %d", done.Version, st.task.Version+1)
		}
		return fmt.Sprintf("version %d", done.Version), nil
	}},
	{"soft delete and restore", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		if _, err := s.DeleteTask(ctx, st.task.ID); err != nil {
			return "", err
		}
		if _, err := s.GetTaskByID(ctx, st.task.ID); !errors.Is(err, store.ErrNotFound) {
			return "", failf("deleted task still visible: %v", err)
		}
		if _, err := s.RestoreTask(ctx, st.task.ID); err != nil {
			return "", err
		}
		got, err := s.GetTaskByID(ctx, st.task.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("version %d", got.Version), nil
	}},
	{"mark clean drains the queue", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		rows, err := collectDirty(ctx, s)
		if err != nil {
			return "", err
		}
		for _, r := range rows {
			mark, err := markCleanFn(s, r.Entity)
			if err != nil {
				return "", err
			}
			if _, err := mark(ctx, r.ID, nil); err != nil {
				return "", err
			}
		}
		left, err := collectDirty(ctx, s)
		if err != nil {
			return "", err
		}
		if len(left) != 0 {
			return "", failf("%d dirty rows remain", len(left))
		}
		return fmt.Sprintf("%d rows", len(rows)), nil
	}},
	{"hard delete removes links", func(ctx context.Context, s store.Store, st *checkState) (string, error) {
		if _, err := s.HardDeleteLabel(ctx, st.label.ID); err != nil {
			return "", err
		}
		labels, err := s.GetLabelsForTask(ctx, st.task.ID)
		if err != nil {
			return "", err
		}
		if len(labels) != 0 {
			return "", failf("%d links survived", len(labels))
		}
		return "", nil
	}},
}

// runChecks executes every step in order, stopping at the first failure.
func runChecks(ctx context.Context, s store.Store) []checkResult {
	st := &checkState{}
	results := make([]checkResult, 0, len(checkSteps))
	for _, step := range checkSteps {
		detail, err := step.run(ctx, s, st)
		if err != nil {
			results = append(results, checkResult{Name: step.name, Detail: err.Error()})
			break
		}
		results = append(results, checkResult{Name: step.name, OK: true, Detail: detail})
	}
	return results
}

// newCheckCmd creates the check command
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a smoke test against a scratch database",
		Long: `Open a private in-memory database with the configured settings, apply
every migration, and exercise the repositories end to end. The configured
database is never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s := store.New(store.MemoryPath,
				store.WithLogger(newLogger(cfg.Log, cmd.ErrOrStderr())),
				store.WithOpTimeout(cfg.Database.OpTimeout))
			if err := s.Init(cmd.Context()); err != nil {
				return err
			}
			defer closeStore(cmd, s)

			results := runChecks(cmd.Context(), s)
			failed := len(results) < len(checkSteps) || !results[len(results)-1].OK

			if jsonOut {
				if err := printJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, r := range results {
					line := fmt.Sprintf("%-4s %s", theme.Check(r.OK), r.Name)
					if r.Detail != "" {
						line += " " + theme.HelpStyle.Render("("+r.Detail+")")
					}
					fmt.Fprintln(out, line)
				}
			}

			if failed {
				return errCheck
			}
			return nil
		},
	}
}
