package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/timeutil"
)

// migration holds a single schema migration with its target version and
// the SQL that applies and reverts it.
type migration struct {
	version int
	name    string
	up      string
	down    string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		name:    "core tables",
		up: `
CREATE TABLE IF NOT EXISTS lists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0 CHECK(version >= 0),
	dirty      INTEGER NOT NULL DEFAULT 1 CHECK(dirty IN (0, 1)),
	deleted_at INTEGER
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	list_id      TEXT NOT NULL REFERENCES lists(id),
	title        TEXT NOT NULL,
	description  TEXT,
	status       TEXT NOT NULL DEFAULT 'todo'
	             CHECK(status IN ('todo', 'in_progress', 'blocked', 'done')),
	priority     INTEGER NOT NULL DEFAULT 0 CHECK(priority BETWEEN 0 AND 3),
	start_date   INTEGER,
	due_date     INTEGER,
	completed_at INTEGER,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	version      INTEGER NOT NULL DEFAULT 0 CHECK(version >= 0),
	dirty        INTEGER NOT NULL DEFAULT 1 CHECK(dirty IN (0, 1)),
	deleted_at   INTEGER
);

CREATE TABLE IF NOT EXISTS labels (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0 CHECK(version >= 0),
	dirty      INTEGER NOT NULL DEFAULT 1 CHECK(dirty IN (0, 1)),
	deleted_at INTEGER
);

CREATE TABLE IF NOT EXISTS task_labels (
	task_id  TEXT NOT NULL REFERENCES tasks(id),
	label_id TEXT NOT NULL REFERENCES labels(id),
	PRIMARY KEY (task_id, label_id)
);

CREATE TABLE IF NOT EXISTS subtasks (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id),
	title      TEXT NOT NULL,
	done       INTEGER NOT NULL DEFAULT 0 CHECK(done IN (0, 1)),
	sort_order REAL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0 CHECK(version >= 0),
	dirty      INTEGER NOT NULL DEFAULT 1 CHECK(dirty IN (0, 1)),
	deleted_at INTEGER
);
`,
		down: `
DROP TABLE IF EXISTS subtasks;
DROP TABLE IF EXISTS task_labels;
DROP TABLE IF EXISTS labels;
DROP TABLE IF EXISTS tasks;
DROP TABLE IF EXISTS lists;
`,
	},
	{
		version: 2,
		name:    "query indexes",
		up: `
CREATE INDEX IF NOT EXISTS idx_tasks_list_status ON tasks(list_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_dirty ON tasks(dirty);
CREATE INDEX IF NOT EXISTS idx_lists_dirty ON lists(dirty);
CREATE INDEX IF NOT EXISTS idx_labels_dirty ON labels(dirty);
CREATE INDEX IF NOT EXISTS idx_subtasks_dirty ON subtasks(dirty);
CREATE INDEX IF NOT EXISTS idx_subtasks_task_order ON subtasks(task_id, sort_order);
CREATE INDEX IF NOT EXISTS idx_task_labels_label ON task_labels(label_id);
`,
		down: `
DROP INDEX IF EXISTS idx_task_labels_label;
DROP INDEX IF EXISTS idx_subtasks_task_order;
DROP INDEX IF EXISTS idx_subtasks_dirty;
DROP INDEX IF EXISTS idx_labels_dirty;
DROP INDEX IF EXISTS idx_lists_dirty;
DROP INDEX IF EXISTS idx_tasks_dirty;
DROP INDEX IF EXISTS idx_tasks_due_date;
DROP INDEX IF EXISTS idx_tasks_list_status;
`,
	},
	{
		version: 3,
		name:    "unique live label names",
		up: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_labels_name_live
	ON labels(name) WHERE deleted_at IS NULL;
`,
		down: `
DROP INDEX IF EXISTS idx_labels_name_live;
`,
	},
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
)`

// Migrator applies and reverts schema migrations, one transaction per
// version.
type Migrator struct {
	db         *sqlx.DB
	migrations []migration
	logger     *slog.Logger
	clock      func() time.Time
}

func newMigrator(db *sqlx.DB, m []migration, logger *slog.Logger, clock func() time.Time) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Migrator{db: db, migrations: m, logger: logger, clock: clock}
}

// LatestVersion returns the highest version known to this binary.
func (m *Migrator) LatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].version
}

// CurrentVersion returns the highest applied version, or 0 for a fresh
// database.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("creating schema_migrations table: %w", err)
	}
	var v int
	if err := m.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// Migrate applies every pending migration.
func (m *Migrator) Migrate(ctx context.Context) error {
	return m.MigrateTo(ctx, m.LatestVersion())
}

// MigrateTo applies pending migrations up to and including target. A failed
// step leaves the schema at the last committed version.
func (m *Migrator) MigrateTo(ctx context.Context, target int) error {
	if target < 0 || target > m.LatestVersion() {
		return fmt.Errorf("%w: target version %d outside 0..%d", ErrInvalidInput, target, m.LatestVersion())
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if mig.version <= current || mig.version > target {
			continue
		}
		if err := m.step(ctx, mig, mig.up,
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			mig.version, timeutil.FromTime(m.clock())); err != nil {
			return fmt.Errorf("applying migration v%d (%s): %w", mig.version, mig.name, err)
		}
		m.logger.Info("migration applied", "version", mig.version, "name", mig.name)
	}
	return nil
}

// RollbackTo reverts applied migrations above target, newest first.
func (m *Migrator) RollbackTo(ctx context.Context, target int) error {
	if target < 0 {
		return fmt.Errorf("%w: target version %d is negative", ErrInvalidInput, target)
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if mig.version <= target || mig.version > current {
			continue
		}
		if err := m.step(ctx, mig, mig.down,
			"DELETE FROM schema_migrations WHERE version = ?", mig.version); err != nil {
			return fmt.Errorf("reverting migration v%d (%s): %w", mig.version, mig.name, err)
		}
		m.logger.Info("migration reverted", "version", mig.version, "name", mig.name)
	}
	return nil
}

// step runs body and the bookkeeping statement in one transaction.
func (m *Migrator) step(ctx context.Context, mig migration, body, record string, args ...any) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrTransaction, err)
	}
	defer tx.Rollback()

	if body != "" {
		if _, err := tx.ExecContext(ctx, body); err != nil {
			return stmtErr(body, err)
		}
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return stmtErr(record, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit v%d: %w", ErrTransaction, mig.version, err)
	}
	return nil
}
