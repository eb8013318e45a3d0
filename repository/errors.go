package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	accounts "github.com/goliatone/go-accounts"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicatedEntry = 1062
)

// writeError maps driver specific unique constraint failures to
// accounts.UniqueViolationError and returns every other error untouched.
func writeError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return accounts.UniqueViolationError(err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicatedEntry
	}

	// sqlite drivers only expose the constraint through the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
