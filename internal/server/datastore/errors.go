package datastore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDataAccess matches every driver-level failure returned by Store.
	ErrDataAccess = errors.New("data access error")
	// ErrInvalidIdentifier is returned when a table or column name is not a
	// plain identifier. Nothing is sent to the database in that case.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Error wraps a driver failure with the operation and table it happened on.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("db error: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrDataAccess }

// ConflictError reports a unique-constraint violation. Column is empty when
// the driver did not say which constraint fired.
type ConflictError struct {
	Table  string
	Column string
}

func (e *ConflictError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: %v", e.Table, common.ErrConflict)
	}
	return fmt.Sprintf("%s.%s: %v", e.Table, e.Column, common.ErrConflict)
}

func (e *ConflictError) Is(target error) bool { return target == common.ErrConflict }

const pgUniqueViolation = "23505"

var sqliteUniqueRe = regexp.MustCompile(`UNIQUE constraint failed: ([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)`)

// classify turns a raw driver error into *ConflictError or *Error.
// Already-classified errors and ErrInvalidIdentifier pass through.
func classify(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidIdentifier) || errors.Is(err, ErrDataAccess) || errors.Is(err, common.ErrConflict) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &ConflictError{Table: table, Column: columnFromConstraint(table, pgErr.ConstraintName)}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		m := sqliteUniqueRe.FindStringSubmatch(liteErr.Error())
		if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || m != nil {
			col := ""
			if m != nil {
				col = m[2]
			}
			return &ConflictError{Table: table, Column: col}
		}
	}

	return &Error{Op: op, Table: table, Err: err}
}

// columnFromConstraint recovers the column from constraint names shaped
// like "<table>_<column>_unique" or Postgres' default "<table>_<column>_key".
func columnFromConstraint(table, constraint string) string {
	name := strings.TrimPrefix(constraint, table+"_")
	for _, suffix := range []string{"_unique", "_key"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return ""
}
