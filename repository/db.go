package repository

import (
	"database/sql"
	"strings"

	"github.com/go-sql-driver/mysql"
	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// OpenOption customizes Open
type OpenOption func(*openOptions)

type openOptions struct {
	debug bool
}

// WithQueryDebug logs every query through bundebug
func WithQueryDebug(enabled bool) OpenOption {
	return func(o *openOptions) {
		o.debug = enabled
	}
}

// NormalizeDriver maps driver aliases to one of the supported drivers
func NormalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pgx", "pg":
		return DriverPostgres
	case "mysql", "mariadb":
		return DriverMySQL
	}
	return driver
}

// Open connects to dsn with the given driver and registers the account model
func Open(driver, dsn string, opts ...OpenOption) (*bun.DB, error) {
	o := &openOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var db *bun.DB

	switch NormalizeDriver(driver) {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid mysql dsn")
		}
		cfg.ParseTime = true
		sqldb, err := sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open mysql database")
		}
		db = bun.NewDB(sqldb, mysqldialect.New())
	default:
		return nil, goerrors.New("unsupported database driver", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": driver})
	}

	if o.debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	db.RegisterModel((*accounts.Account)(nil))

	return db, nil
}
