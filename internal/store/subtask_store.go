package store

import (
	"context"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

const insertSubtaskQuery = `
	INSERT INTO subtasks (
		id, task_id, title, done, sort_order,
		created_at, updated_at, version, dirty, deleted_at
	) VALUES (
		:id, :task_id, :title, :done, :sort_order,
		:created_at, :updated_at, :version, :dirty, :deleted_at
	)`

// CreateSubtask inserts a subtask under a live task. A nil SortOrder places
// it after every keyed sibling.
func (s *SQLiteStore) CreateSubtask(ctx context.Context, in model.SubtaskInput) (*model.Subtask, error) {
	title, err := cleanName(subtasksTable, "create", "", "title", in.Title)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := model.Subtask{
		SyncMeta:  model.SyncMeta{ID: newID(), CreatedAt: now, UpdatedAt: now, Dirty: true},
		TaskID:    in.TaskID,
		Title:     title,
		Done:      in.Done,
		SortOrder: in.SortOrder,
	}

	var out *model.Subtask
	err = s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		created, err := createSubtask(ctx, tx, sub)
		out = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func createSubtask(ctx context.Context, tx *sqlx.Tx, sub model.Subtask) (*model.Subtask, error) {
	if err := requireLive(ctx, tx, tasksTable, sub.TaskID, "subtask", "create", sub.ID); err != nil {
		return nil, err
	}
	return insertRow[model.Subtask](ctx, tx, subtasksTable, insertSubtaskQuery, sub, sub.ID)
}

// AddSubtask appends a subtask at the end of its task's ordering.
func (s *SQLiteStore) AddSubtask(ctx context.Context, taskID, title string) (*model.Subtask, error) {
	clean, err := cleanName(subtasksTable, "create", "", "title", title)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := model.Subtask{
		SyncMeta: model.SyncMeta{ID: newID(), CreatedAt: now, UpdatedAt: now, Dirty: true},
		TaskID:   taskID,
		Title:    clean,
	}

	var out *model.Subtask
	err = s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		tail, err := tailSortOrder(ctx, tx, taskID, "")
		if err != nil {
			return subtasksTable.wrap("create", sub.ID, err)
		}
		sub.SortOrder = &tail
		created, err := createSubtask(ctx, tx, sub)
		out = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSubtask writes the fields set in patch.
func (s *SQLiteStore) UpdateSubtask(ctx context.Context, id string, patch model.SubtaskPatch) (*model.Subtask, error) {
	if patch.IsEmpty() {
		return s.GetSubtaskByID(ctx, id)
	}
	var u updateSet
	if patch.Title.Set {
		title, err := cleanName(subtasksTable, "update", id, "title", patch.Title.Value)
		if err != nil {
			return nil, err
		}
		u.set("title", title)
	}
	if patch.Done.Set {
		u.set("done", boolToInt(patch.Done.Value))
	}
	setField(&u, "sort_order", patch.SortOrder)

	return updateRow[model.Subtask](ctx, s, subtasksTable, id, &u, nil)
}

// ToggleSubtaskDone flips the done flag.
func (s *SQLiteStore) ToggleSubtaskDone(ctx context.Context, id string) (*model.Subtask, error) {
	u := updateSet{cols: []string{"done = CASE WHEN done = 0 THEN 1 ELSE 0 END"}}
	return updateRow[model.Subtask](ctx, s, subtasksTable, id, &u, nil)
}

// DeleteSubtask soft-deletes a subtask.
func (s *SQLiteStore) DeleteSubtask(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return softDelete(ctx, db, subtasksTable, id, s.now())
}

// DeleteSubtasksByTask soft-deletes every live subtask of a task and
// returns how many changed.
func (s *SQLiteStore) DeleteSubtasksByTask(ctx context.Context, taskID string) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	n, err := Modify(ctx, db, `
		UPDATE subtasks
		SET deleted_at = ?, updated_at = ?, version = version + 1, dirty = 1
		WHERE task_id = ? AND deleted_at IS NULL`,
		now, now, taskID)
	if err != nil {
		return 0, subtasksTable.wrap("delete", taskID, err)
	}
	return n, nil
}

// RestoreSubtask clears the deleted mark. The parent task must be live.
func (s *SQLiteStore) RestoreSubtask(ctx context.Context, id string) (bool, error) {
	var restored bool
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		sub, err := getAny[model.Subtask](ctx, tx, subtasksTable, "restore", id)
		if err != nil {
			return err
		}
		if !sub.IsDeleted() {
			return nil
		}
		if err := requireLive(ctx, tx, tasksTable, sub.TaskID, "subtask", "restore", id); err != nil {
			return err
		}
		restored, err = restore(ctx, tx, subtasksTable, id, s.now())
		return err
	})
	return restored, err
}

// HardDeleteSubtask physically removes a subtask.
func (s *SQLiteStore) HardDeleteSubtask(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return hardDeleteRow(ctx, db, subtasksTable, id)
}

// GetSubtaskByID returns a live subtask.
func (s *SQLiteStore) GetSubtaskByID(ctx context.Context, id string) (*model.Subtask, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getLive[model.Subtask](ctx, db, subtasksTable, "get", id)
}

// GetSubtasks returns subtasks in position order.
func (s *SQLiteStore) GetSubtasks(ctx context.Context, includeDeleted bool) ([]model.Subtask, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getAll[model.Subtask](ctx, db, subtasksTable, includeDeleted)
}

// GetSubtasksByTask returns the live subtasks of a task in position order.
func (s *SQLiteStore) GetSubtasksByTask(ctx context.Context, taskID string) ([]model.Subtask, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return selectWhere[model.Subtask](ctx, db, subtasksTable,
		"task_id = ? AND deleted_at IS NULL", taskID)
}

// GetDirtySubtasks returns subtasks with unsynced changes, oldest change
// first.
func (s *SQLiteStore) GetDirtySubtasks(ctx context.Context) ([]model.Subtask, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getDirty[model.Subtask](ctx, db, subtasksTable)
}

// MarkSubtaskClean clears the dirty flag, optionally pinning the version.
func (s *SQLiteStore) MarkSubtaskClean(ctx context.Context, id string, version *int64) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return markClean(ctx, db, subtasksTable, id, version)
}

// CountSubtasks returns the number of subtasks.
func (s *SQLiteStore) CountSubtasks(ctx context.Context, includeDeleted bool) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	return count(ctx, db, subtasksTable, includeDeleted)
}

// GetSubtaskStats summarizes the live subtasks of a task. CompletionRate is
// a percentage rounded to two decimals.
func (s *SQLiteStore) GetSubtaskStats(ctx context.Context, taskID string) (model.SubtaskStats, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return model.SubtaskStats{}, err
	}

	const query = `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN done = 1 THEN 1 END) AS completed,
			COUNT(CASE WHEN done = 0 THEN 1 END) AS pending
		FROM subtasks
		WHERE task_id = ? AND deleted_at IS NULL`

	var st model.SubtaskStats
	if err := sqlx.GetContext(ctx, db, &st, query, taskID); err != nil {
		return model.SubtaskStats{}, subtasksTable.wrap("stats", taskID, stmtErr(query, err))
	}
	if st.Total > 0 {
		st.CompletionRate = math.Round(float64(st.Completed)/float64(st.Total)*100*100) / 100
	}
	return st, nil
}
