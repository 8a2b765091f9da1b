package store

import (
	"context"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

// MinSortGap is the smallest distance between two neighbor keys that still
// leaves room for a midpoint. Below it the task's subtasks are renumbered.
const MinSortGap = 1e-9

// MoveSubtask repositions a subtask among its siblings using fractional
// keys. With both neighbors the key is their midpoint; with only BeforeID it
// is one less than that sibling; with only AfterID one more; with neither the
// subtask goes to the tail. A missing neighbor key reads as 0.
func (s *SQLiteStore) MoveSubtask(ctx context.Context, mv model.SubtaskMove) (*model.Subtask, error) {
	if mv.SubtaskID == "" {
		return nil, invalid("subtask", "move", "", "subtask id is required")
	}
	if mv.BeforeID == mv.SubtaskID || mv.AfterID == mv.SubtaskID {
		return nil, invalid("subtask", "move", mv.SubtaskID, "a subtask cannot be its own neighbor")
	}
	if mv.BeforeID != "" && mv.BeforeID == mv.AfterID {
		return nil, invalid("subtask", "move", mv.SubtaskID, "before and after must differ")
	}

	var out *model.Subtask
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		sub, err := getLive[model.Subtask](ctx, tx, subtasksTable, "move", mv.SubtaskID)
		if err != nil {
			return err
		}
		now := s.now()

		key, err := moveKey(ctx, tx, sub, mv)
		if err != nil {
			return err
		}
		if key == nil {
			// Neighbors too close: renumber the other siblings, then retry.
			if _, err := rebalance(ctx, tx, sub.TaskID, sub.ID, now); err != nil {
				return err
			}
			if key, err = moveKey(ctx, tx, sub, mv); err != nil {
				return err
			}
			if key == nil {
				return invalid("subtask", "move", sub.ID, "no room between neighbors after rebalance")
			}
		}

		if _, err := Modify(ctx, tx, `
			UPDATE subtasks
			SET sort_order = ?, updated_at = ?, version = version + 1, dirty = 1
			WHERE id = ? AND deleted_at IS NULL`,
			*key, now, sub.ID); err != nil {
			return subtasksTable.wrap("move", sub.ID, err)
		}

		out, err = getLive[model.Subtask](ctx, tx, subtasksTable, "move", sub.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("subtask moved",
		"id", out.ID,
		"task_id", out.TaskID,
		"sort_order", *out.SortOrder,
	)
	return out, nil
}

// RebalanceSubtasks renumbers the live subtasks of a task 1..n in their
// current order and returns how many rows changed.
func (s *SQLiteStore) RebalanceSubtasks(ctx context.Context, taskID string) (int, error) {
	var changed int
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := requireLive(ctx, tx, tasksTable, taskID, "subtask", "rebalance", ""); err != nil {
			return err
		}
		var err error
		changed, err = rebalance(ctx, tx, taskID, "", s.now())
		return err
	})
	return changed, err
}

// moveKey computes the new key for sub. It returns nil when both neighbors
// are given but no representable key lies strictly between them.
func moveKey(ctx context.Context, tx *sqlx.Tx, sub *model.Subtask, mv model.SubtaskMove) (*float64, error) {
	var before, after *model.Subtask
	var err error
	if mv.BeforeID != "" {
		if before, err = sibling(ctx, tx, sub, mv.BeforeID); err != nil {
			return nil, err
		}
	}
	if mv.AfterID != "" {
		if after, err = sibling(ctx, tx, sub, mv.AfterID); err != nil {
			return nil, err
		}
	}

	var key float64
	switch {
	case before != nil && after != nil:
		var ok bool
		key, ok = midpoint(sortKey(after), sortKey(before))
		if !ok {
			return nil, nil
		}
	case before != nil:
		key = sortKey(before) - 1
	case after != nil:
		key = sortKey(after) + 1
	default:
		if key, err = tailSortOrder(ctx, tx, sub.TaskID, sub.ID); err != nil {
			return nil, subtasksTable.wrap("move", sub.ID, err)
		}
	}
	return &key, nil
}

// sibling loads a live subtask of the same task as sub.
func sibling(ctx context.Context, tx *sqlx.Tx, sub *model.Subtask, id string) (*model.Subtask, error) {
	n, err := QueryFirst[model.Subtask](ctx, tx,
		"SELECT * FROM subtasks WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return nil, subtasksTable.wrap("move", sub.ID, err)
	}
	if n == nil || n.TaskID != sub.TaskID {
		return nil, invalid("subtask", "move", sub.ID, "neighbor "+id+" is not a live sibling")
	}
	return n, nil
}

// midpoint returns the key halfway between a and b, and whether it lies
// strictly between them with at least MinSortGap of room.
func midpoint(a, b float64) (float64, bool) {
	lo, hi := math.Min(a, b), math.Max(a, b)
	mid := lo + (hi-lo)/2
	if hi-lo < MinSortGap {
		return mid, false
	}
	return mid, mid > lo && mid < hi
}

func sortKey(sub *model.Subtask) float64 {
	if sub.SortOrder == nil {
		return 0
	}
	return *sub.SortOrder
}

// tailSortOrder returns one past the largest key among the task's live
// subtasks, skipping exclude.
func tailSortOrder(ctx context.Context, q sqlx.QueryerContext, taskID, exclude string) (float64, error) {
	const query = `
		SELECT COALESCE(MAX(sort_order), 0) FROM subtasks
		WHERE task_id = ? AND deleted_at IS NULL AND id != ?`
	var maxOrder float64
	if err := sqlx.GetContext(ctx, q, &maxOrder, query, taskID, exclude); err != nil {
		return 0, stmtErr(query, err)
	}
	return maxOrder + 1, nil
}

// rebalance renumbers the task's live subtasks 1..n in display order,
// skipping exclude. Only rows whose key changes are touched.
func rebalance(ctx context.Context, tx *sqlx.Tx, taskID, exclude string, now int64) (int, error) {
	subs, err := selectWhere[model.Subtask](ctx, tx, subtasksTable,
		"task_id = ? AND deleted_at IS NULL AND id != ?", taskID, exclude)
	if err != nil {
		return 0, subtasksTable.wrap("rebalance", taskID, err)
	}

	changed := 0
	for i, sub := range subs {
		key := float64(i + 1)
		if sub.SortOrder != nil && *sub.SortOrder == key {
			continue
		}
		if _, err := Modify(ctx, tx, `
			UPDATE subtasks
			SET sort_order = ?, updated_at = ?, version = version + 1, dirty = 1
			WHERE id = ?`,
			key, now, sub.ID); err != nil {
			return changed, subtasksTable.wrap("rebalance", sub.ID, err)
		}
		changed++
	}
	return changed, nil
}
