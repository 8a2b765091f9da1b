package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

const insertListQuery = `
	INSERT INTO lists (id, name, color, created_at, updated_at, version, dirty, deleted_at)
	VALUES (:id, :name, :color, :created_at, :updated_at, :version, :dirty, :deleted_at)`

// CreateList inserts a new list and returns the stored row.
func (s *SQLiteStore) CreateList(ctx context.Context, in model.ListInput) (*model.List, error) {
	name, err := cleanName(listsTable, "create", "", "name", in.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	list := model.List{
		SyncMeta: model.SyncMeta{ID: newID(), CreatedAt: now, UpdatedAt: now, Dirty: true},
		Name:     name,
		Color:    in.Color,
	}

	var out *model.List
	err = s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		created, err := insertRow[model.List](ctx, tx, listsTable, insertListQuery, list, list.ID)
		out = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateList writes the fields set in patch.
func (s *SQLiteStore) UpdateList(ctx context.Context, id string, patch model.ListPatch) (*model.List, error) {
	if patch.IsEmpty() {
		return s.GetListByID(ctx, id)
	}
	var u updateSet
	if patch.Name.Set {
		name, err := cleanName(listsTable, "update", id, "name", patch.Name.Value)
		if err != nil {
			return nil, err
		}
		u.set("name", name)
	}
	setField(&u, "color", patch.Color)

	return updateRow[model.List](ctx, s, listsTable, id, &u, nil)
}

// DeleteList soft-deletes a list. Its tasks are left as they are.
func (s *SQLiteStore) DeleteList(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return softDelete(ctx, db, listsTable, id, s.now())
}

// RestoreList clears the deleted mark on a list.
func (s *SQLiteStore) RestoreList(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return restore(ctx, db, listsTable, id, s.now())
}

// HardDeleteList physically removes a list. It is refused while any task,
// deleted or not, still belongs to the list.
func (s *SQLiteStore) HardDeleteList(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var tasks int
		if err := tx.GetContext(ctx, &tasks,
			"SELECT COUNT(*) FROM tasks WHERE list_id = ?", id); err != nil {
			return listsTable.wrap("hard delete", id, err)
		}
		if tasks > 0 {
			return &EntityError{
				Entity: "list",
				Op:     "hard delete",
				ID:     id,
				Detail: fmt.Sprintf("%d tasks still reference it", tasks),
				Err:    ErrForeignKey,
			}
		}
		var err error
		removed, err = hardDeleteRow(ctx, tx, listsTable, id)
		return err
	})
	return removed, err
}

// GetListByID returns a live list.
func (s *SQLiteStore) GetListByID(ctx context.Context, id string) (*model.List, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getLive[model.List](ctx, db, listsTable, "get", id)
}

// GetLists returns lists, newest first.
func (s *SQLiteStore) GetLists(ctx context.Context, includeDeleted bool) ([]model.List, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getAll[model.List](ctx, db, listsTable, includeDeleted)
}

// GetDirtyLists returns lists with unsynced changes, oldest change first.
func (s *SQLiteStore) GetDirtyLists(ctx context.Context) ([]model.List, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return getDirty[model.List](ctx, db, listsTable)
}

// MarkListClean clears the dirty flag, optionally pinning the version.
func (s *SQLiteStore) MarkListClean(ctx context.Context, id string, version *int64) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	return markClean(ctx, db, listsTable, id, version)
}

// CountLists returns the number of lists.
func (s *SQLiteStore) CountLists(ctx context.Context, includeDeleted bool) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	return count(ctx, db, listsTable, includeDeleted)
}

// GetListSummaries returns live lists with their live task counts.
func (s *SQLiteStore) GetListSummaries(ctx context.Context) ([]model.ListSummary, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT l.*,
			COUNT(t.id) AS task_count,
			COALESCE(SUM(CASE WHEN t.status = 'done' THEN 1 ELSE 0 END), 0) AS completed_count
		FROM lists l
		LEFT JOIN tasks t ON t.list_id = l.id AND t.deleted_at IS NULL
		WHERE l.deleted_at IS NULL
		GROUP BY l.id
		ORDER BY l.created_at DESC`

	out, err := QueryAll[model.ListSummary](ctx, db, query)
	if err != nil {
		return nil, fmt.Errorf("querying list summaries: %w", err)
	}
	return out, nil
}

// SearchLists returns live lists whose name contains query.
func (s *SQLiteStore) SearchLists(ctx context.Context, query string) ([]model.List, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return selectWhere[model.List](ctx, db, listsTable,
		`deleted_at IS NULL AND name LIKE ? ESCAPE '\'`, likePattern(query))
}
