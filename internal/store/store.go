package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

// TaskFilter controls filtering and pagination for task queries. The zero
// value matches every live task.
type TaskFilter struct {
	ListID           *string
	LabelID          *string            // tasks carrying this label
	Statuses         []model.TaskStatus // any of these statuses
	ExcludeCompleted bool               // drop status done
	Priority         *int
	DueFrom          *int64 // due_date >= DueFrom
	DueTo            *int64 // due_date <= DueTo
	DueBefore        *int64 // due_date < DueBefore
	Query            *string
	IncludeDeleted   bool
	Limit            int
	Offset           int
}

func (f TaskFilter) validate() error {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return invalid("task", "query", "", "unknown status "+string(st))
		}
	}
	if f.Priority != nil && !model.ValidPriority(*f.Priority) {
		return invalid("task", "query", "", "priority outside 0..3")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return invalid("task", "query", "", "limit and offset must not be negative")
	}
	return nil
}

// Store defines the local persistence interface for lists, tasks, labels
// and subtasks together with their sync bookkeeping.
type Store interface {
	// === Lifecycle ===

	Init(ctx context.Context) error
	Close() error
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error
	Stats(ctx context.Context) (Stats, error)
	Reset(ctx context.Context) error

	// === Lists ===

	CreateList(ctx context.Context, in model.ListInput) (*model.List, error)
	UpdateList(ctx context.Context, id string, patch model.ListPatch) (*model.List, error)
	DeleteList(ctx context.Context, id string) (bool, error)
	RestoreList(ctx context.Context, id string) (bool, error)
	HardDeleteList(ctx context.Context, id string) (bool, error)
	GetListByID(ctx context.Context, id string) (*model.List, error)
	GetLists(ctx context.Context, includeDeleted bool) ([]model.List, error)
	GetDirtyLists(ctx context.Context) ([]model.List, error)
	MarkListClean(ctx context.Context, id string, version *int64) (bool, error)
	CountLists(ctx context.Context, includeDeleted bool) (int, error)
	GetListSummaries(ctx context.Context) ([]model.ListSummary, error)
	SearchLists(ctx context.Context, query string) ([]model.List, error)

	// === Tasks ===

	CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
	RestoreTask(ctx context.Context, id string) (bool, error)
	HardDeleteTask(ctx context.Context, id string) (bool, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, includeDeleted bool) ([]model.Task, error)
	GetDirtyTasks(ctx context.Context) ([]model.Task, error)
	MarkTaskClean(ctx context.Context, id string, version *int64) (bool, error)
	CountTasks(ctx context.Context, includeDeleted bool) (int, error)
	QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	CountMatchingTasks(ctx context.Context, filter TaskFilter) (int, error)
	GetTasksByList(ctx context.Context, listID string, includeCompleted bool) ([]model.Task, error)
	GetOverdueTasks(ctx context.Context) ([]model.Task, error)
	GetAgenda(ctx context.Context, start, end int64) ([]model.Task, error)
	SearchTasks(ctx context.Context, query string) ([]model.Task, error)
	MarkTaskDone(ctx context.Context, id string) (*model.Task, error)
	ReopenTask(ctx context.Context, id string) (*model.Task, error)
	CountTasksByList(ctx context.Context, listID string) (int, error)

	// === Labels ===

	CreateLabel(ctx context.Context, in model.LabelInput) (*model.Label, error)
	UpdateLabel(ctx context.Context, id string, patch model.LabelPatch) (*model.Label, error)
	DeleteLabel(ctx context.Context, id string) (bool, error)
	RestoreLabel(ctx context.Context, id string) (bool, error)
	HardDeleteLabel(ctx context.Context, id string) (bool, error)
	GetLabelByID(ctx context.Context, id string) (*model.Label, error)
	GetLabels(ctx context.Context, includeDeleted bool) ([]model.Label, error)
	GetDirtyLabels(ctx context.Context) ([]model.Label, error)
	MarkLabelClean(ctx context.Context, id string, version *int64) (bool, error)
	CountLabels(ctx context.Context, includeDeleted bool) (int, error)
	GetLabelByName(ctx context.Context, name string) (*model.Label, error)
	SearchLabels(ctx context.Context, query string) ([]model.Label, error)
	GetUnusedLabels(ctx context.Context) ([]model.Label, error)
	GetLabelsWithTaskCounts(ctx context.Context) ([]model.LabelUsage, error)

	// === Subtasks ===

	CreateSubtask(ctx context.Context, in model.SubtaskInput) (*model.Subtask, error)
	UpdateSubtask(ctx context.Context, id string, patch model.SubtaskPatch) (*model.Subtask, error)
	DeleteSubtask(ctx context.Context, id string) (bool, error)
	RestoreSubtask(ctx context.Context, id string) (bool, error)
	HardDeleteSubtask(ctx context.Context, id string) (bool, error)
	GetSubtaskByID(ctx context.Context, id string) (*model.Subtask, error)
	GetSubtasks(ctx context.Context, includeDeleted bool) ([]model.Subtask, error)
	GetDirtySubtasks(ctx context.Context) ([]model.Subtask, error)
	MarkSubtaskClean(ctx context.Context, id string, version *int64) (bool, error)
	CountSubtasks(ctx context.Context, includeDeleted bool) (int, error)
	GetSubtasksByTask(ctx context.Context, taskID string) ([]model.Subtask, error)
	AddSubtask(ctx context.Context, taskID, title string) (*model.Subtask, error)
	ToggleSubtaskDone(ctx context.Context, id string) (*model.Subtask, error)
	GetSubtaskStats(ctx context.Context, taskID string) (model.SubtaskStats, error)
	DeleteSubtasksByTask(ctx context.Context, taskID string) (int64, error)
	MoveSubtask(ctx context.Context, move model.SubtaskMove) (*model.Subtask, error)
	RebalanceSubtasks(ctx context.Context, taskID string) (int, error)

	// === Task labels ===

	AddLabelToTask(ctx context.Context, taskID, labelID string) (bool, error)
	RemoveLabelFromTask(ctx context.Context, taskID, labelID string) (bool, error)
	SetTaskLabels(ctx context.Context, taskID string, labelIDs []string) error
	GetLabelsForTask(ctx context.Context, taskID string) ([]model.Label, error)
	GetTasksByLabel(ctx context.Context, labelID string) ([]model.Task, error)
}

var _ Store = (*SQLiteStore)(nil)
