package datastore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres), mock
}

func q(s string) string { return "^" + regexp.QuoteMeta(s) + "$" }

func TestSelect_BuildsQuotedRebindedSQL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q(`SELECT "id", "username" FROM "users" WHERE username = $1 AND id > $2`)).
		WithArgs("alice", 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(int64(7), "alice"))

	rows, err := s.Select(context.Background(), "users", []string{"id", "username"}, "username = ? AND id > ?", "alice", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	id, err := rows[0].Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "alice", rows[0].Text("username"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_NoConditionSelectsAll(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := s.Select(context.Background(), "users", nil, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect_DriverErrorIsDataAccess(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q(`SELECT * FROM "users"`)).WillReturnError(errors.New("db down"))

	rows, err := s.Select(context.Background(), "users", nil, "")
	assert.Nil(t, rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataAccess)

	var dErr *Error
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, "select", dErr.Op)
	assert.Equal(t, "users", dErr.Table)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestInvalidIdentifier_NeverReachesDatabase(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	_, err := s.Select(ctx, "users; DROP TABLE users", nil, "")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = s.Select(ctx, "users", []string{"id", "password--"}, "")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = s.Insert(ctx, "users", Fields{"bad col": 1})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = s.Update(ctx, "users", Fields{"password = 'x', admin": 1}, "id = ?", 1)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = s.Delete(ctx, "users u", "id = ?", 1)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = s.Exists(ctx, "users", `email" OR 1=1 --`, "x")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_SortedColumnsAndReturningID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q(`INSERT INTO "users" ("email", "first_name", "username") VALUES ($1, $2, $3) RETURNING "id"`)).
		WithArgs("a@example.com", "Ann", "ann").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := s.Insert(context.Background(), "users", Fields{
		"username":   "ann",
		"email":      "a@example.com",
		"first_name": "Ann",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_UniqueViolationBecomesConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_unique"})

	_, err := s.Insert(context.Background(), "users", Fields{"email": "a@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.NotErrorIs(t, err, ErrDataAccess)

	var cErr *ConflictError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "users", cErr.Table)
	assert.Equal(t, "email", cErr.Column)
}

func TestInsert_OtherPgErrorIsDataAccess(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23502", ColumnName: "email"})

	_, err := s.Insert(context.Background(), "users", Fields{"username": "x"})
	assert.ErrorIs(t, err, ErrDataAccess)
}

func TestInsert_NoFields(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.Insert(context.Background(), "users", Fields{})
	assert.Error(t, err)
}

func TestUpdate_SetsThenConditionArgs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(q(`UPDATE "users" SET "last_name" = $1, "password" = $2 WHERE id = $3`)).
		WithArgs("Smith", "digest", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.Update(context.Background(), "users", Fields{"password": "digest", "last_name": "Smith"}, "id = ?", int64(5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDelete_RejectEmptyCondition(t *testing.T) {
	s, _ := newMockStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "users", Fields{"a": 1}, "  ")
	assert.Error(t, err)

	_, err = s.Delete(ctx, "users", "")
	assert.Error(t, err)
}

func TestDelete_ReturnsAffected(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(q(`DELETE FROM "users" WHERE username = $1`)).
		WithArgs("ann").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := s.Delete(context.Background(), "users", "username = ?", "ann")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDelete_DriverError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM "users"`).WillReturnError(sql.ErrConnDone)

	_, err := s.Delete(context.Background(), "users", "id = ?", 1)
	assert.ErrorIs(t, err, ErrDataAccess)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestExists(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	query := q(`SELECT "email" FROM "users" WHERE "email" = $1 LIMIT 1`)

	mock.ExpectQuery(query).WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@example.com"))
	ok, err := s.Exists(ctx, "users", "email", "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(query).WithArgs("b@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	ok, err = s.Exists(ctx, "users", "email", "b@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery(query).WithArgs("c@example.com").WillReturnError(errors.New("boom"))
	_, err = s.Exists(ctx, "users", "email", "c@example.com")
	assert.ErrorIs(t, err, ErrDataAccess)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(ctx, func(ctx context.Context, tx *Store) error {
		_, err := tx.Delete(ctx, "users", "id = ?", 1)
		return err
	})
	require.NoError(t, err)

	sentinel := errors.New("validation failed")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = s.WithTx(ctx, func(ctx context.Context, tx *Store) error { return sentinel })
	assert.True(t, err == sentinel, "fn errors pass through unwrapped, got %v", err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	err := s.WithTx(context.Background(), func(ctx context.Context, tx *Store) error { return nil })
	assert.ErrorIs(t, err, ErrDataAccess)
}
