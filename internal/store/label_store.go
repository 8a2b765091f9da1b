package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

const insertLabelQuery = `
	INSERT INTO labels (id, name, color, created_at, updated_at, version, dirty, deleted_at)
	VALUES (:id, :name, :color, :created_at, :updated_at, :version, :dirty, :deleted_at)`

// CreateLabel inserts a new label. The name must not be used by another
// live label.
func (s *SQLiteStore) CreateLabel(ctx context.Context, in model.LabelInput) (*model.Label, error) {
	name, err := cleanName(labelsTable, "create", "", "name", in.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	label := model.Label{
		SyncMeta: model.SyncMeta{ID: newID(), CreatedAt: now, UpdatedAt: now, Dirty: true},
		Name:     name,
		Color:    in.Color,
	}

	var out *model.Label
	err = s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := checkLabelName(ctx, tx, name, "", "create"); err != nil {
			return err
		}
		created, err := insertRow[model.Label](ctx, tx, labelsTable, insertLabelQuery, label, label.ID)
		out = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLabel writes the fields set in patch.
func (s *SQLiteStore) UpdateLabel(ctx context.Context, id string, patch model.LabelPatch) (*model.Label, error) {
	if patch.IsEmpty() {
		return s.GetLabelByID(ctx, id)
	}
	var u updateSet
	var check func(tx *sqlx.Tx) error
	if patch.Name.Set {
		name, err := cleanName(labelsTable, "update", id, "name", patch.Name.Value)
		if err != nil {
			return nil, err
		}
		u.set("name", name)
		check = func(tx *sqlx.Tx) error {
			return checkLabelName(ctx, tx, name, id, "update")
		}
	}
	setField(&u, "color", patch.Color)

	return updateRow[model.Label](ctx, s, labelsTable, id, &u, check)
}

// DeleteLabel soft-deletes a label. Its task links are kept until a hard
// delete.
func (s *SQLiteStore) DeleteLabel(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return softDelete(ctx, db, labelsTable, id, s.now())
}

// RestoreLabel clears the deleted mark. It fails with ErrUniqueConstraint
// when a live label has taken the name in the meantime.
func (s *SQLiteStore) RestoreLabel(ctx context.Context, id string) (bool, error) {
	var restored bool
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		label, err := getAny[model.Label](ctx, tx, labelsTable, "restore", id)
		if err != nil {
			return err
		}
		if !label.IsDeleted() {
			return nil
		}
		if err := checkLabelName(ctx, tx, label.Name, id, "restore"); err != nil {
			return err
		}
		restored, err = restore(ctx, tx, labelsTable, id, s.now())
		return err
	})
	return restored, err
}

// HardDeleteLabel physically removes a label and its task links.
func (s *SQLiteStore) HardDeleteLabel(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := Modify(ctx, tx, "DELETE FROM task_labels WHERE label_id = ?", id); err != nil {
			return labelsTable.wrap("hard delete", id, err)
		}
		var err error
		removed, err = hardDeleteRow(ctx, tx, labelsTable, id)
		return err
	})
	return removed, err
}

// GetLabelByID returns a live label.
func (s *SQLiteStore) GetLabelByID(ctx context.Context, id string) (*model.Label, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getLive[model.Label](ctx, db, labelsTable, "get", id)
}

// GetLabels returns labels ordered by name.
func (s *SQLiteStore) GetLabels(ctx context.Context, includeDeleted bool) ([]model.Label, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getAll[model.Label](ctx, db, labelsTable, includeDeleted)
}

// GetDirtyLabels returns labels with unsynced changes, oldest change first.
func (s *SQLiteStore) GetDirtyLabels(ctx context.Context) ([]model.Label, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getDirty[model.Label](ctx, db, labelsTable)
}

// MarkLabelClean clears the dirty flag, optionally pinning the version.
func (s *SQLiteStore) MarkLabelClean(ctx context.Context, id string, version *int64) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return markClean(ctx, db, labelsTable, id, version)
}

// CountLabels returns the number of labels.
func (s *SQLiteStore) CountLabels(ctx context.Context, includeDeleted bool) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	return count(ctx, db, labelsTable, includeDeleted)
}

// GetLabelByName returns the live label with exactly this name.
func (s *SQLiteStore) GetLabelByName(ctx context.Context, name string) (*model.Label, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	label, err := QueryFirst[model.Label](ctx, db,
		"SELECT * FROM labels WHERE name = ? AND deleted_at IS NULL", name)
	if err != nil {
		return nil, labelsTable.wrap("get", name, err)
	}
	if label == nil {
		return nil, notFound("label", "get", name)
	}
	return label, nil
}

// SearchLabels returns live labels whose name contains query.
func (s *SQLiteStore) SearchLabels(ctx context.Context, query string) ([]model.Label, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return selectWhere[model.Label](ctx, db, labelsTable,
		`deleted_at IS NULL AND name LIKE ? ESCAPE '\'`, likePattern(query))
}

// GetUnusedLabels returns live labels attached to no live task.
func (s *SQLiteStore) GetUnusedLabels(ctx context.Context) ([]model.Label, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return selectWhere[model.Label](ctx, db, labelsTable, `
		deleted_at IS NULL AND NOT EXISTS (
			SELECT 1 FROM task_labels tl
			INNER JOIN tasks t ON t.id = tl.task_id
			WHERE tl.label_id = labels.id AND t.deleted_at IS NULL
		)`)
}

// GetLabelsWithTaskCounts returns live labels with the number of live tasks
// carrying each.
func (s *SQLiteStore) GetLabelsWithTaskCounts(ctx context.Context) ([]model.LabelUsage, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT l.*, COUNT(t.id) AS task_count
		FROM labels l
		LEFT JOIN task_labels tl ON tl.label_id = l.id
		LEFT JOIN tasks t ON t.id = tl.task_id AND t.deleted_at IS NULL
		WHERE l.deleted_at IS NULL
		GROUP BY l.id
		ORDER BY l.name`

	out, err := QueryAll[model.LabelUsage](ctx, db, query)
	if err != nil {
		return nil, fmt.Errorf("querying label usage: %w", err)
	}
	return out, nil
}

// checkLabelName rejects a name already held by another live label.
func checkLabelName(ctx context.Context, q sqlx.QueryerContext, name, exceptID, op string) error {
	const query = "SELECT COUNT(*) FROM labels WHERE name = ? AND id != ? AND deleted_at IS NULL"
	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, name, exceptID); err != nil {
		return labelsTable.wrap(op, exceptID, stmtErr(query, err))
	}
	if n > 0 {
		return &EntityError{
			Entity: "label",
			Op:     op,
			ID:     exceptID,
			Detail: fmt.Sprintf("name %q already in use", name),
			Err:    ErrUniqueConstraint,
		}
	}
	return nil
}
