package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/timeutil"
)

// Default timeouts applied when no option overrides them.
const (
	defaultOpTimeout   = 5 * time.Second
	defaultBusyTimeout = 5 * time.Second
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements the Store interface using a local SQLite database.
// All calls share one physical connection and therefore serialize.
type SQLiteStore struct {
	path        string
	logger      *slog.Logger
	clock       func() time.Time
	opTimeout   time.Duration
	busyTimeout time.Duration
	migrations  []migration
	autoMigrate bool

	mu sync.RWMutex
	db *sqlx.DB
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock used for created_at, updated_at and
// deleted_at.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithOpTimeout bounds every operation that arrives without an earlier
// deadline. Zero disables the bound.
func WithOpTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) { s.opTimeout = d }
}

// WithBusyTimeout sets how long SQLite waits on a locked database file.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) { s.busyTimeout = d }
}

// WithoutAutoMigrate makes Init open the handle without applying pending
// migrations. The caller drives the schema through Migrator.
func WithoutAutoMigrate() Option {
	return func(s *SQLiteStore) { s.autoMigrate = false }
}

// withMigrations swaps the schema history; tests use it to inject failures.
func withMigrations(m []migration) Option {
	return func(s *SQLiteStore) { s.migrations = m }
}

// New builds an unopened store for the database at path. Call Init before
// use.
func New(path string, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		path:        path,
		logger:      slog.Default(),
		clock:       time.Now,
		opTimeout:   defaultOpTimeout,
		busyTimeout: defaultBusyTimeout,
		migrations:  migrations,
		autoMigrate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode and foreign keys, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	s := New(dbPath, opts...)
	if err := s.Init(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Init opens the shared handle and migrates the schema. Calling it on an
// open store is a no-op. Repository calls block until Init returns.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if isFilePath(s.path) {
		dir := filepath.Dir(s.path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating db directory %s: %w", ErrConnection, dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("%w: opening sqlite db: %w", ErrConnection, err)
	}

	// One connection: an in-memory database lives and dies with it, and
	// concurrent callers queue instead of racing for the write lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return fmt.Errorf("%w: %s: %w", ErrConnection, p, err)
		}
	}

	m := newMigrator(db, s.migrations, s.logger, s.clock)
	if s.autoMigrate {
		if err := m.Migrate(ctx); err != nil {
			db.Close()
			return fmt.Errorf("%w: running migrations: %w", ErrConnection, err)
		}
	}
	version, err := m.CurrentVersion(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	s.db = db
	s.logger.Info("database opened", "path", s.path, "schema_version", version)
	return nil
}

// Handle returns the shared database handle.
func (s *SQLiteStore) Handle() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("%w: store not initialized, call Init first", ErrConnection)
	}
	return s.db, nil
}

// Close closes the underlying database connection. The store can be
// reopened with Init.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("closing sqlite db: %w", err)
	}
	s.logger.Info("database closed", "path", s.path)
	return nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// RunInTx executes fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on an error or a panic, which is re-raised. A
// failed rollback is logged and never replaces fn's error.
//
// fn receives a context carrying the transaction: store methods called with
// it run on tx, and a nested RunInTx joins the outer transaction. Calls made
// with any other context wait for the connection fn is holding.
func (s *SQLiteStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.Handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrTransaction, err)
	}

	var (
		committed bool
		cause     error
	)
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			s.rollback(tx, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		s.rollback(tx, cause)
	}()

	if cause = fn(context.WithValue(ctx, txKey{}, tx), tx); cause != nil {
		return cause
	}

	if err := tx.Commit(); err != nil {
		cause = err
		return fmt.Errorf("%w: commit: %w", ErrTransaction, err)
	}
	committed = true
	return nil
}

type txKey struct{}

func txFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// conn returns the transaction carried by ctx, or the shared handle.
func (s *SQLiteStore) conn(ctx context.Context) (sqlx.ExtContext, error) {
	if tx, ok := txFromContext(ctx); ok {
		return tx, nil
	}
	db, err := s.Handle()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// rollback aborts tx, logging a failure instead of returning it.
func (s *SQLiteStore) rollback(tx *sqlx.Tx, cause error) {
	err := tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return
	}
	s.logger.Error("transaction rollback failed",
		"error", err,
		"cause", cause,
	)
}

// Execute runs a statement on the shared handle, or on the transaction
// carried by ctx.
func (s *SQLiteStore) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return Execute(ctx, db, query, args...)
}

// Modify runs an UPDATE or DELETE and returns the number of affected rows.
func (s *SQLiteStore) Modify(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	return Modify(ctx, db, query, args...)
}

// Insert runs an INSERT and returns the last inserted rowid.
func (s *SQLiteStore) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	return Insert(ctx, db, query, args...)
}

// Stats describes the open database.
type Stats struct {
	Tables  []string `json:"tables"`
	DBSize  int64    `json:"db_size"`
	Version int      `json:"version"`
}

// Stats reports table names, the database size in bytes
// (page_size × page_count), and the applied schema version.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.Handle()
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	const tablesQuery = `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
	if err := db.SelectContext(ctx, &st.Tables, tablesQuery); err != nil {
		return Stats{}, stmtErr(tablesQuery, err)
	}

	var pageSize, pageCount int64
	if err := db.GetContext(ctx, &pageSize, "PRAGMA page_size"); err != nil {
		return Stats{}, stmtErr("PRAGMA page_size", err)
	}
	if err := db.GetContext(ctx, &pageCount, "PRAGMA page_count"); err != nil {
		return Stats{}, stmtErr("PRAGMA page_count", err)
	}
	st.DBSize = pageSize * pageCount

	st.Version, err = newMigrator(db, s.migrations, s.logger, s.clock).CurrentVersion(ctx)
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Reset drops every table and rebuilds the schema from scratch. Intended for
// development and tests.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	db, err := s.Handle()
	if err != nil {
		return err
	}

	var tables []string
	if err := db.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"); err != nil {
		return fmt.Errorf("listing tables: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys: %w", err)
	}
	for _, name := range tables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
			return fmt.Errorf("dropping table %s: %w", name, err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := newMigrator(db, s.migrations, s.logger, s.clock).Migrate(ctx); err != nil {
		return fmt.Errorf("re-running migrations: %w", err)
	}
	s.logger.Info("database reset", "path", s.path, "tables_dropped", len(tables))
	return nil
}

// Migrator returns the migration engine bound to the open handle.
func (s *SQLiteStore) Migrator() (*Migrator, error) {
	db, err := s.Handle()
	if err != nil {
		return nil, err
	}
	return newMigrator(db, s.migrations, s.logger, s.clock), nil
}

// opContext applies the store's operation deadline to ctx.
func (s *SQLiteStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// now returns the store clock in epoch milliseconds.
func (s *SQLiteStore) now() int64 {
	return timeutil.FromTime(s.clock())
}

// newID generates a fresh entity id.
func newID() string {
	return uuid.New().String()
}

// isFilePath reports whether path names a file on disk rather than an
// in-memory or URI database.
func isFilePath(path string) bool {
	return path != MemoryPath && !strings.HasPrefix(path, "file:") && path != ""
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
