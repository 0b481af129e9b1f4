package shortener

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	linksPrimaryKey   = "links_pkey"
)

func isCodeUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == linksPrimaryKey
	}
	return isSQLiteConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "UNIQUE constraint failed")
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCheckViolation
	}
	return isSQLiteConstraint(err, sqlite3.SQLITE_CONSTRAINT_CHECK, "CHECK constraint failed")
}

// isSQLiteConstraint matches the extended result code, falling back to the
// primary code plus message when extended codes are off.
func isSQLiteConstraint(err error, extended int, message string) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	code := liteErr.Code()
	if code == extended {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), message)
}
