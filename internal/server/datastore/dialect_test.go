package datastore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", SQLite, `a = ? AND b = ?`, `a = ? AND b = ?`},
		{"postgres numbered", Postgres, `a = ? AND b = ?`, `a = $1 AND b = $2`},
		{"quoted literal kept", Postgres, `a = '?' AND b = ?`, `a = '?' AND b = $1`},
		{"quoted identifier kept", Postgres, `"we?ird" = ?`, `"we?ird" = $1`},
		{"backticks kept", Postgres, "`we?ird` = ?", "`we?ird` = $1"},
		{"no placeholders", Postgres, `1 = 1`, `1 = 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Rebind(tt.in))
		})
	}
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestDialect_QuoteIdent(t *testing.T) {
	q, err := Postgres.QuoteIdent("first_name")
	require.NoError(t, err)
	assert.Equal(t, `"first_name"`, q)

	q, err = SQLite.QuoteIdent("first_name")
	require.NoError(t, err)
	assert.Equal(t, "`first_name`", q)

	for _, bad := range []string{"", "1abc", "users;drop", `na"me`, "na`me", "a b", "users--"} {
		_, err := Postgres.QuoteIdent(bad)
		assert.Truef(t, errors.Is(err, ErrInvalidIdentifier), "%q should be rejected", bad)
	}
}

func TestDialect_ColumnList(t *testing.T) {
	got, err := Postgres.columnList(nil)
	require.NoError(t, err)
	assert.Equal(t, "*", got)

	got, err = Postgres.columnList([]string{"*"})
	require.NoError(t, err)
	assert.Equal(t, "*", got)

	got, err = Postgres.columnList([]string{"id", "email"})
	require.NoError(t, err)
	assert.Equal(t, `"id", "email"`, got)

	got, err = SQLite.columnList([]string{"id", "email"})
	require.NoError(t, err)
	assert.Equal(t, "`id`, `email`", got)

	_, err = Postgres.columnList([]string{"id", "*"})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestColumnFromConstraint(t *testing.T) {
	assert.Equal(t, "email", columnFromConstraint("users", "users_email_unique"))
	assert.Equal(t, "username", columnFromConstraint("users", "users_username_key"))
	assert.Equal(t, "", columnFromConstraint("users", "something_else"))
}
