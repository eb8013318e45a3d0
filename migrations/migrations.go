package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path"
	"sync"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
)

const migrationsRoot = "data/sql/migrations"

// goose keeps its base FS and dialect in package globals
var mu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// gooseDownContext is a seam for testing goose.DownContext.
var gooseDownContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.DownContext(ctx, db, dir, opts...)
}

// Source returns the migration files and goose dialect for driver
func Source(driver string) (fs.FS, string, error) {
	var dir, dialect string

	switch repository.NormalizeDriver(driver) {
	case repository.DriverSQLite:
		dir, dialect = "sqlite", "sqlite3"
	case repository.DriverPostgres:
		dir, dialect = "postgres", "postgres"
	case repository.DriverMySQL:
		dir, dialect = "mysql", "mysql"
	default:
		return nil, "", goerrors.New("no migrations for database driver", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": driver})
	}

	fsys, err := fs.Sub(accounts.GetMigrationsFS(), path.Join(migrationsRoot, dir))
	if err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open embedded migrations")
	}

	return fsys, dialect, nil
}

// SetLogger routes goose output to l
func SetLogger(l goose.Logger) {
	if l == nil {
		l = goose.NopLogger()
	}
	goose.SetLogger(l)
}

// Up applies all pending migrations for driver
func Up(ctx context.Context, db *sql.DB, driver string) error {
	return run(ctx, db, driver, "apply", gooseUpContext)
}

// Down rolls back the most recent migration for driver
func Down(ctx context.Context, db *sql.DB, driver string) error {
	return run(ctx, db, driver, "roll back", gooseDownContext)
}

// Version returns the current schema version
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := prepare(driver); err != nil {
		return 0, err
	}
	defer goose.SetBaseFS(nil)

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read schema version")
	}
	return version, nil
}

type gooseFunc func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error

func run(ctx context.Context, db *sql.DB, driver, action string, fn gooseFunc) error {
	mu.Lock()
	defer mu.Unlock()

	if err := prepare(driver); err != nil {
		return err
	}
	defer goose.SetBaseFS(nil)

	if err := fn(ctx, db, "."); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to "+action+" migrations").
			WithMetadata(map[string]any{"driver": driver})
	}
	return nil
}

func prepare(driver string) error {
	fsys, dialect, err := Source(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(dialect); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set migrations dialect")
	}
	return nil
}
