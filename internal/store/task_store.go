package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

const insertTaskQuery = `
	INSERT INTO tasks (
		id, list_id, title, description, status, priority,
		start_date, due_date, completed_at,
		created_at, updated_at, version, dirty, deleted_at
	) VALUES (
		:id, :list_id, :title, :description, :status, :priority,
		:start_date, :due_date, :completed_at,
		:created_at, :updated_at, :version, :dirty, :deleted_at
	)`

// CreateTask inserts a new task into a live list. An empty status defaults
// to todo; a task created as done gets completed_at stamped.
func (s *SQLiteStore) CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	title, err := cleanName(tasksTable, "create", "", "title", in.Title)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.TaskStatusTodo
	}
	if err := validateTaskFields(in.Status, in.Priority, "create", ""); err != nil {
		return nil, err
	}

	now := s.now()
	task := model.Task{
		SyncMeta:    model.SyncMeta{ID: newID(), CreatedAt: now, UpdatedAt: now, Dirty: true},
		ListID:      in.ListID,
		Title:       title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		CompletedAt: in.CompletedAt,
	}
	if task.Status == model.TaskStatusDone && task.CompletedAt == nil {
		task.CompletedAt = &now
	}

	var out *model.Task
	err = s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := requireLive(ctx, tx, listsTable, task.ListID, "task", "create", task.ID); err != nil {
			return err
		}
		created, err := insertRow[model.Task](ctx, tx, tasksTable, insertTaskQuery, task, task.ID)
		out = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTask writes the fields set in patch. Moving the task to another list
// requires that list to be live.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	if patch.IsEmpty() {
		return s.GetTaskByID(ctx, id)
	}
	var u updateSet
	if patch.Title.Set {
		title, err := cleanName(tasksTable, "update", id, "title", patch.Title.Value)
		if err != nil {
			return nil, err
		}
		u.set("title", title)
	}
	if patch.Status.Set && !patch.Status.Value.Valid() {
		return nil, invalid("task", "update", id, fmt.Sprintf("unknown status %q", patch.Status.Value))
	}
	if patch.Priority.Set && !model.ValidPriority(patch.Priority.Value) {
		return nil, invalid("task", "update", id, fmt.Sprintf("priority %d outside 0..3", patch.Priority.Value))
	}
	setField(&u, "list_id", patch.ListID)
	setField(&u, "description", patch.Description)
	setField(&u, "status", patch.Status)
	setField(&u, "priority", patch.Priority)
	setField(&u, "start_date", patch.StartDate)
	setField(&u, "due_date", patch.DueDate)
	setField(&u, "completed_at", patch.CompletedAt)

	var check func(tx *sqlx.Tx) error
	if patch.ListID.Set {
		check = func(tx *sqlx.Tx) error {
			return requireLive(ctx, tx, listsTable, patch.ListID.Value, "task", "update", id)
		}
	}
	return updateRow[model.Task](ctx, s, tasksTable, id, &u, check)
}

// MarkTaskDone sets status done and stamps completed_at.
func (s *SQLiteStore) MarkTaskDone(ctx context.Context, id string) (*model.Task, error) {
	now := s.now()
	return s.UpdateTask(ctx, id, model.TaskPatch{
		Status:      model.Some(model.TaskStatusDone),
		CompletedAt: model.SomePtr(now),
	})
}

// ReopenTask moves a task back to todo and clears completed_at.
func (s *SQLiteStore) ReopenTask(ctx context.Context, id string) (*model.Task, error) {
	return s.UpdateTask(ctx, id, model.TaskPatch{
		Status:      model.Some(model.TaskStatusTodo),
		CompletedAt: model.Clear[int64](),
	})
}

// DeleteTask soft-deletes a task. Subtasks and label links are kept.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return softDelete(ctx, db, tasksTable, id, s.now())
}

// RestoreTask clears the deleted mark. The task's list must be live.
func (s *SQLiteStore) RestoreTask(ctx context.Context, id string) (bool, error) {
	var restored bool
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		task, err := getAny[model.Task](ctx, tx, tasksTable, "restore", id)
		if err != nil {
			return err
		}
		if !task.IsDeleted() {
			return nil
		}
		if err := requireLive(ctx, tx, listsTable, task.ListID, "task", "restore", id); err != nil {
			return err
		}
		restored, err = restore(ctx, tx, tasksTable, id, s.now())
		return err
	})
	return restored, err
}

// HardDeleteTask physically removes a task together with its label links
// and subtasks.
func (s *SQLiteStore) HardDeleteTask(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := Modify(ctx, tx, "DELETE FROM task_labels WHERE task_id = ?", id); err != nil {
			return tasksTable.wrap("hard delete", id, err)
		}
		if _, err := Modify(ctx, tx, "DELETE FROM subtasks WHERE task_id = ?", id); err != nil {
			return tasksTable.wrap("hard delete", id, err)
		}
		var err error
		removed, err = hardDeleteRow(ctx, tx, tasksTable, id)
		return err
	})
	return removed, err
}

// GetTaskByID returns a live task.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getLive[model.Task](ctx, db, tasksTable, "get", id)
}

// GetTasks returns tasks ordered by due date (undated last), then priority,
// then age.
func (s *SQLiteStore) GetTasks(ctx context.Context, includeDeleted bool) ([]model.Task, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getAll[model.Task](ctx, db, tasksTable, includeDeleted)
}

// GetDirtyTasks returns tasks with unsynced changes, oldest change first.
func (s *SQLiteStore) GetDirtyTasks(ctx context.Context) ([]model.Task, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getDirty[model.Task](ctx, db, tasksTable)
}

// MarkTaskClean clears the dirty flag, optionally pinning the version.
func (s *SQLiteStore) MarkTaskClean(ctx context.Context, id string, version *int64) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return markClean(ctx, db, tasksTable, id, version)
}

// CountTasks returns the number of tasks.
func (s *SQLiteStore) CountTasks(ctx context.Context, includeDeleted bool) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	return count(ctx, db, tasksTable, includeDeleted)
}

// QueryTasks returns tasks matching the filter.
func (s *SQLiteStore) QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	if err := filter.validate(); err != nil {
		return nil, err
	}
	query, args := buildTaskQuery("SELECT tasks.*", filter)
	query += " ORDER BY tasks.due_date IS NULL, tasks.due_date, tasks.priority DESC, tasks.created_at"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	tasks, err := QueryAll[model.Task](ctx, db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// CountMatchingTasks returns the number of tasks matching the filter,
// ignoring Limit and Offset.
func (s *SQLiteStore) CountMatchingTasks(ctx context.Context, filter TaskFilter) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	if err := filter.validate(); err != nil {
		return 0, err
	}
	query, args := buildTaskQuery("SELECT COUNT(*)", filter)

	var n int
	if err := sqlx.GetContext(ctx, db, &n, query, args...); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", stmtErr(query, err))
	}
	return n, nil
}

// GetTasksByList returns the live tasks of a list.
func (s *SQLiteStore) GetTasksByList(ctx context.Context, listID string, includeCompleted bool) ([]model.Task, error) {
	return s.QueryTasks(ctx, TaskFilter{ListID: &listID, ExcludeCompleted: !includeCompleted})
}

// GetOverdueTasks returns live, unfinished tasks whose due date has passed.
func (s *SQLiteStore) GetOverdueTasks(ctx context.Context) ([]model.Task, error) {
	before := s.now()
	return s.QueryTasks(ctx, TaskFilter{DueBefore: &before, ExcludeCompleted: true})
}

// GetAgenda returns live tasks due within [start, end], epoch milliseconds.
func (s *SQLiteStore) GetAgenda(ctx context.Context, start, end int64) ([]model.Task, error) {
	if end < start {
		return nil, invalid("task", "agenda", "", "end precedes start")
	}
	return s.QueryTasks(ctx, TaskFilter{DueFrom: &start, DueTo: &end})
}

// SearchTasks returns live tasks whose title or description contains query.
func (s *SQLiteStore) SearchTasks(ctx context.Context, query string) ([]model.Task, error) {
	return s.QueryTasks(ctx, TaskFilter{Query: &query})
}

// CountTasksByList returns the number of live tasks in a list.
func (s *SQLiteStore) CountTasksByList(ctx context.Context, listID string) (int, error) {
	return s.CountMatchingTasks(ctx, TaskFilter{ListID: &listID})
}

func validateTaskFields(status model.TaskStatus, priority int, op, id string) error {
	if !status.Valid() {
		return invalid("task", op, id, fmt.Sprintf("unknown status %q", status))
	}
	if !model.ValidPriority(priority) {
		return invalid("task", op, id, fmt.Sprintf("priority %d outside 0..3", priority))
	}
	return nil
}

// buildTaskQuery constructs the SQL query and args for a TaskFilter.
func buildTaskQuery(selectClause string, filter TaskFilter) (string, []any) {
	var conditions []string
	var args []any

	from := " FROM tasks"
	if filter.LabelID != nil {
		from += " INNER JOIN task_labels ON tasks.id = task_labels.task_id"
		conditions = append(conditions, "task_labels.label_id = ?")
		args = append(args, *filter.LabelID)
	}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "tasks.deleted_at IS NULL")
	}
	if filter.ListID != nil {
		conditions = append(conditions, "tasks.list_id = ?")
		args = append(args, *filter.ListID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		conditions = append(conditions,
			"tasks.status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ExcludeCompleted {
		conditions = append(conditions, "tasks.status != ?")
		args = append(args, model.TaskStatusDone)
	}
	if filter.Priority != nil {
		conditions = append(conditions, "tasks.priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, "tasks.due_date >= ?")
		args = append(args, *filter.DueFrom)
	}
	if filter.DueTo != nil {
		conditions = append(conditions, "tasks.due_date <= ?")
		args = append(args, *filter.DueTo)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "tasks.due_date < ?")
		args = append(args, *filter.DueBefore)
	}
	if filter.Query != nil && strings.TrimSpace(*filter.Query) != "" {
		conditions = append(conditions,
			`(tasks.title LIKE ? ESCAPE '\' OR tasks.description LIKE ? ESCAPE '\')`)
		q := likePattern(*filter.Query)
		args = append(args, q, q)
	}

	query := selectClause + from
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query, args
}
