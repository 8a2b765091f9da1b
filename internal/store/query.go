package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/model"
)

// Execute runs a statement on a handle or transaction.
func Execute(ctx context.Context, e sqlx.ExecerContext, query string, args ...any) (sql.Result, error) {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, stmtErr(query, err)
	}
	return res, nil
}

// Insert runs an INSERT and returns the last inserted rowid.
func Insert(ctx context.Context, e sqlx.ExecerContext, query string, args ...any) (int64, error) {
	res, err := Execute(ctx, e, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, stmtErr(query, err)
	}
	return id, nil
}

// Modify runs an UPDATE or DELETE and returns the number of affected rows.
func Modify(ctx context.Context, e sqlx.ExecerContext, query string, args ...any) (int64, error) {
	res, err := Execute(ctx, e, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, stmtErr(query, err)
	}
	return n, nil
}

// QueryFirst returns the first row of query, or nil when there is none.
func QueryFirst[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*T, error) {
	var v T
	err := sqlx.GetContext(ctx, q, &v, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, stmtErr(query, err)
	}
	return &v, nil
}

// QueryAll returns every row of query. The result is never nil.
func QueryAll[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]T, error) {
	out := []T{}
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, stmtErr(query, err)
	}
	return out, nil
}

// entityTable describes one soft-deletable table.
type entityTable struct {
	name   string
	entity string
	order  string
}

var (
	listsTable    = entityTable{name: "lists", entity: "list", order: "created_at DESC"}
	tasksTable    = entityTable{name: "tasks", entity: "task", order: "due_date IS NULL, due_date, priority DESC, created_at"}
	labelsTable   = entityTable{name: "labels", entity: "label", order: "name"}
	subtasksTable = entityTable{name: "subtasks", entity: "subtask", order: "sort_order IS NULL, sort_order, created_at"}
)

// wrap attaches entity context to err unless it already carries some.
func (t entityTable) wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EntityError
	if errors.As(err, &ee) {
		return err
	}
	return &EntityError{Entity: t.entity, Op: op, ID: id, Err: err}
}

// getLive loads a non-deleted row by id.
func getLive[T any](ctx context.Context, q sqlx.QueryerContext, t entityTable, op, id string) (*T, error) {
	row, err := QueryFirst[T](ctx, q,
		"SELECT * FROM "+t.name+" WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return nil, t.wrap(op, id, err)
	}
	if row == nil {
		return nil, notFound(t.entity, op, id)
	}
	return row, nil
}

// getAny loads a row by id whether or not it is deleted.
func getAny[T any](ctx context.Context, q sqlx.QueryerContext, t entityTable, op, id string) (*T, error) {
	row, err := QueryFirst[T](ctx, q, "SELECT * FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return nil, t.wrap(op, id, err)
	}
	if row == nil {
		return nil, notFound(t.entity, op, id)
	}
	return row, nil
}

// selectWhere lists rows matching where in the table's default order.
func selectWhere[T any](ctx context.Context, q sqlx.QueryerContext, t entityTable, where string, args ...any) ([]T, error) {
	query := "SELECT * FROM " + t.name
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + t.order
	rows, err := QueryAll[T](ctx, q, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.name, err)
	}
	return rows, nil
}

func getAll[T any](ctx context.Context, q sqlx.QueryerContext, t entityTable, includeDeleted bool) ([]T, error) {
	if includeDeleted {
		return selectWhere[T](ctx, q, t, "")
	}
	return selectWhere[T](ctx, q, t, "deleted_at IS NULL")
}

// getDirty returns every changed row, deleted ones included, oldest change
// first.
func getDirty[T any](ctx context.Context, q sqlx.QueryerContext, t entityTable) ([]T, error) {
	rows, err := QueryAll[T](ctx, q,
		"SELECT * FROM "+t.name+" WHERE dirty = 1 ORDER BY updated_at ASC, id")
	if err != nil {
		return nil, fmt.Errorf("querying dirty %s: %w", t.name, err)
	}
	return rows, nil
}

func count(ctx context.Context, q sqlx.QueryerContext, t entityTable, includeDeleted bool) (int, error) {
	query := "SELECT COUNT(*) FROM " + t.name
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	var n int
	if err := sqlx.GetContext(ctx, q, &n, query); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.name, stmtErr(query, err))
	}
	return n, nil
}

// softDelete stamps deleted_at on a live row. It reports whether a row
// changed, so deleting twice is harmless.
func softDelete(ctx context.Context, e sqlx.ExecerContext, t entityTable, id string, now int64) (bool, error) {
	n, err := Modify(ctx, e, `
		UPDATE `+t.name+`
		SET deleted_at = ?, updated_at = ?, version = version + 1, dirty = 1
		WHERE id = ? AND deleted_at IS NULL`,
		now, now, id)
	if err != nil {
		return false, t.wrap("delete", id, err)
	}
	return n > 0, nil
}

func restore(ctx context.Context, e sqlx.ExecerContext, t entityTable, id string, now int64) (bool, error) {
	n, err := Modify(ctx, e, `
		UPDATE `+t.name+`
		SET deleted_at = NULL, updated_at = ?, version = version + 1, dirty = 1
		WHERE id = ? AND deleted_at IS NOT NULL`,
		now, id)
	if err != nil {
		return false, t.wrap("restore", id, err)
	}
	return n > 0, nil
}

// markClean clears the dirty flag. A non-nil version pins the row to a
// server-confirmed version but never lowers it.
func markClean(ctx context.Context, e sqlx.ExecerContext, t entityTable, id string, version *int64) (bool, error) {
	var (
		n   int64
		err error
	)
	if version == nil {
		n, err = Modify(ctx, e, "UPDATE "+t.name+" SET dirty = 0 WHERE id = ?", id)
	} else {
		if *version < 0 {
			return false, invalid(t.entity, "mark clean", id, "version must not be negative")
		}
		n, err = Modify(ctx, e,
			"UPDATE "+t.name+" SET dirty = 0, version = MAX(version, ?) WHERE id = ?",
			*version, id)
	}
	if err != nil {
		return false, t.wrap("mark clean", id, err)
	}
	return n > 0, nil
}

func hardDeleteRow(ctx context.Context, e sqlx.ExecerContext, t entityTable, id string) (bool, error) {
	n, err := Modify(ctx, e, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return false, t.wrap("hard delete", id, err)
	}
	return n > 0, nil
}

// requireLive checks that a referenced parent row exists and is not deleted.
// The returned error describes the child operation and wraps ErrForeignKey.
func requireLive(
	ctx context.Context,
	q sqlx.QueryerContext,
	parent entityTable,
	parentID string,
	entity, op, id string,
) error {
	query := "SELECT COUNT(*) FROM " + parent.name + " WHERE id = ? AND deleted_at IS NULL"
	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, parentID); err != nil {
		return &EntityError{Entity: entity, Op: op, ID: id, Err: stmtErr(query, err)}
	}
	if n == 0 {
		return &EntityError{
			Entity: entity,
			Op:     op,
			ID:     id,
			Detail: fmt.Sprintf("%s %s does not exist or is deleted", parent.entity, parentID),
			Err:    ErrForeignKey,
		}
	}
	return nil
}

// updateSet accumulates the SET clause of a partial update.
type updateSet struct {
	cols []string
	args []any
}

// setField adds col when o is set.
func setField[T any](u *updateSet, col string, o model.Opt[T]) {
	if !o.Set {
		return
	}
	u.set(col, o.Value)
}

func (u *updateSet) set(col string, v any) {
	u.cols = append(u.cols, col+" = ?")
	u.args = append(u.args, v)
}

func (u *updateSet) empty() bool {
	return len(u.cols) == 0
}

// touch records a local mutation: new updated_at, version bump, dirty.
func (u *updateSet) touch(now int64) {
	u.set("updated_at", now)
	u.cols = append(u.cols, "version = version + 1", "dirty = 1")
}

// apply writes the accumulated columns to a live row.
func (u *updateSet) apply(ctx context.Context, e sqlx.ExecerContext, t entityTable, id string) (int64, error) {
	query := "UPDATE " + t.name + " SET " + strings.Join(u.cols, ", ") +
		" WHERE id = ? AND deleted_at IS NULL"
	return Modify(ctx, e, query, append(u.args, id)...)
}

// updateRow runs a partial update in one transaction: check the row is live,
// run check (parent validation and the like), write, and re-read. An empty
// set returns the current row unchanged.
func updateRow[T any](
	ctx context.Context,
	s *SQLiteStore,
	t entityTable,
	id string,
	u *updateSet,
	check func(tx *sqlx.Tx) error,
) (*T, error) {
	var out *T
	err := s.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		cur, err := getLive[T](ctx, tx, t, "update", id)
		if err != nil {
			return err
		}
		if u.empty() {
			out = cur
			return nil
		}
		if check != nil {
			if err := check(tx); err != nil {
				return err
			}
		}
		u.touch(s.now())
		if _, err := u.apply(ctx, tx, t, id); err != nil {
			return t.wrap("update", id, err)
		}
		out, err = getLive[T](ctx, tx, t, "update", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// insertRow inserts a model struct with named parameters and re-reads it.
func insertRow[T any](ctx context.Context, tx *sqlx.Tx, t entityTable, query string, row any, id string) (*T, error) {
	if _, err := sqlx.NamedExecContext(ctx, tx, query, row); err != nil {
		return nil, t.wrap("create", id, stmtErr(query, err))
	}
	return getLive[T](ctx, tx, t, "create", id)
}

// cleanName trims a user-supplied name and rejects blanks.
func cleanName(t entityTable, op, id, field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(t.entity, op, id, field+" must not be empty")
	}
	return v, nil
}

// likePattern builds a case-insensitive substring pattern.
func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(q))
	return "%" + q + "%"
}
