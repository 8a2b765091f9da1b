package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

// AddLabelToTask links a live label to a live task. It reports false when
// the link already existed.
func (s *SQLiteStore) AddLabelToTask(ctx context.Context, taskID, labelID string) (bool, error) {
	var added bool
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		added, err = linkLabel(ctx, tx, taskID, labelID, "add")
		return err
	})
	return added, err
}

// RemoveLabelFromTask deletes a link. It reports false when there was none.
func (s *SQLiteStore) RemoveLabelFromTask(ctx context.Context, taskID, labelID string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	n, err := Modify(ctx, db,
		"DELETE FROM task_labels WHERE task_id = ? AND label_id = ?", taskID, labelID)
	if err != nil {
		return false, &EntityError{Entity: "task label", Op: "remove", ID: taskID + "/" + labelID, Err: err}
	}
	return n > 0, nil
}

// SetTaskLabels replaces all label links of a task in one transaction.
// Duplicate ids collapse; any missing or deleted id aborts the whole change.
func (s *SQLiteStore) SetTaskLabels(ctx context.Context, taskID string, labelIDs []string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := requireLive(ctx, tx, tasksTable, taskID, "task label", "set", taskID); err != nil {
			return err
		}

		// Remove existing associations.
		if _, err := Modify(ctx, tx, "DELETE FROM task_labels WHERE task_id = ?", taskID); err != nil {
			return &EntityError{Entity: "task label", Op: "set", ID: taskID, Err: err}
		}

		// Insert new associations.
		for _, labelID := range labelIDs {
			if _, err := linkLabel(ctx, tx, taskID, labelID, "set"); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetLabelsForTask returns the live labels linked to a task, by name.
func (s *SQLiteStore) GetLabelsForTask(ctx context.Context, taskID string) ([]model.Label, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	labels, err := QueryAll[model.Label](ctx, db, `
		SELECT l.* FROM labels l
		INNER JOIN task_labels tl ON l.id = tl.label_id
		WHERE tl.task_id = ? AND l.deleted_at IS NULL
		ORDER BY l.name`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying labels for task %s: %w", taskID, err)
	}
	return labels, nil
}

// GetTasksByLabel returns the live tasks carrying a label.
func (s *SQLiteStore) GetTasksByLabel(ctx context.Context, labelID string) ([]model.Task, error) {
	return s.QueryTasks(ctx, TaskFilter{LabelID: &labelID})
}

// linkLabel validates both endpoints and inserts the pair, ignoring an
// existing row.
func linkLabel(ctx context.Context, tx *sqlx.Tx, taskID, labelID, op string) (bool, error) {
	id := taskID + "/" + labelID
	if err := requireLive(ctx, tx, tasksTable, taskID, "task label", op, id); err != nil {
		return false, err
	}
	if err := requireLive(ctx, tx, labelsTable, labelID, "task label", op, id); err != nil {
		return false, err
	}
	n, err := Modify(ctx, tx,
		"INSERT OR IGNORE INTO task_labels (task_id, label_id) VALUES (?, ?)", taskID, labelID)
	if err != nil {
		return false, &EntityError{Entity: "task label", Op: op, ID: id, Err: err}
	}
	return n > 0, nil
}
