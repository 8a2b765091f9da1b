package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openRaw(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	s := New(MemoryPath, append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(func() { s.Close() })
	return s
}

func tableExists(t *testing.T, s *SQLiteStore, name string) bool {
	t.Helper()
	db, err := s.Handle()
	require.NoError(t, err)
	var n int
	require.NoError(t, db.Get(&n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name))
	return n > 0
}

func indexExists(t *testing.T, s *SQLiteStore, name string) bool {
	t.Helper()
	db, err := s.Handle()
	require.NoError(t, err)
	var n int
	require.NoError(t, db.Get(&n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", name))
	return n > 0
}

func TestMigrate_AppliesAllVersions(t *testing.T) {
	s := openRaw(t)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	m, err := s.Migrator()
	require.NoError(t, err)

	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.LatestVersion(), v)
	assert.Equal(t, 3, v)

	for _, table := range []string{"lists", "tasks", "labels", "task_labels", "subtasks"} {
		assert.True(t, tableExists(t, s, table), table)
	}
	assert.True(t, indexExists(t, s, "idx_labels_name_live"))

	// Re-running is a no-op.
	require.NoError(t, m.Migrate(ctx))
	v, err = m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestMigrate_StampsAppliedAtWithStoreClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := openRaw(t, WithClock(func() time.Time { return at }))
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	db, err := s.Handle()
	require.NoError(t, err)
	var stamps []int64
	require.NoError(t, db.Select(&stamps, "SELECT applied_at FROM schema_migrations ORDER BY version"))
	require.Len(t, stamps, 3)
	for _, ms := range stamps {
		assert.Equal(t, at.UnixMilli(), ms)
	}
}

func TestMigrate_FailureKeepsLastCommittedVersion(t *testing.T) {
	broken := append(append([]migration{}, migrations...), migration{
		version: 4,
		name:    "broken",
		up: `
CREATE TABLE half_done (id TEXT PRIMARY KEY);
INSERT INTO no_such_table VALUES (1);
`,
	})

	s := openRaw(t, withMigrations(broken))
	ctx := context.Background()

	err := s.Init(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrConnection)

	// Inspect the same database through a store that knows only the good
	// migrations. A private in-memory database disappears on close, so use
	// a file instead.
	path := t.TempDir() + "/broken.db"
	s = New(path, WithLogger(quietLogger()), withMigrations(broken))
	require.Error(t, s.Init(ctx))

	good := New(path, WithLogger(quietLogger()), withMigrations(migrations))
	t.Cleanup(func() { good.Close() })
	require.NoError(t, good.Init(ctx))

	m, err := good.Migrator()
	require.NoError(t, err)
	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.False(t, tableExists(t, good, "half_done"), "failed step must roll back entirely")
}

func TestMigrateTo_AndRollbackTo(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/steps.db"

	// Open at v1 only.
	s := New(path, WithLogger(quietLogger()), withMigrations(migrations[:1]))
	require.NoError(t, s.Init(ctx))
	assert.False(t, indexExists(t, s, "idx_tasks_due_date"))
	require.NoError(t, s.Close())

	s = openAt(t, path)
	m, err := s.Migrator()
	require.NoError(t, err)

	require.NoError(t, m.MigrateTo(ctx, 2))
	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v, "Init already migrated to latest")

	require.NoError(t, m.RollbackTo(ctx, 1))
	v, err = m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, indexExists(t, s, "idx_labels_name_live"))
	assert.False(t, indexExists(t, s, "idx_tasks_due_date"))
	assert.True(t, tableExists(t, s, "tasks"))

	require.NoError(t, m.MigrateTo(ctx, 2))
	v, err = m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.True(t, indexExists(t, s, "idx_tasks_due_date"))
	assert.False(t, indexExists(t, s, "idx_labels_name_live"))

	require.NoError(t, m.RollbackTo(ctx, 0))
	v, err = m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, tableExists(t, s, "tasks"))

	require.ErrorIs(t, m.MigrateTo(ctx, 99), ErrInvalidInput)
	require.ErrorIs(t, m.RollbackTo(ctx, -1), ErrInvalidInput)
}

func openAt(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s := New(path, WithLogger(quietLogger()))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClassify(t *testing.T) {
	s := openRaw(t)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	_, err := s.Execute(ctx, `INSERT INTO lists (id, name, created_at, updated_at) VALUES ('x', 'X', 1, 1)`)
	require.NoError(t, err)
	_, err = s.Execute(ctx, `INSERT INTO lists (id, name, created_at, updated_at) VALUES ('x', 'X', 1, 1)`)
	assert.ErrorIs(t, classify(err), ErrUniqueConstraint)

	assert.Nil(t, classify(nil))
	assert.Nil(t, stmtErr("SELECT 1", nil))
}

func TestCompactSQL(t *testing.T) {
	assert.Equal(t, "SELECT * FROM lists WHERE id = ?",
		compactSQL("\n\tSELECT *\n\tFROM lists\n\tWHERE id = ?\n"))
}
