package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
)

// Fields maps column names to values for Insert and Update.
type Fields map[string]any

// Store runs generic CRUD statements against one database handle.
// A Store returned inside WithTx is bound to that transaction.
type Store struct {
	db      dbx.DBTX
	begin   dbx.Beginner
	dialect Dialect
}

// New returns a Store over a connection pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, begin: db, dialect: dialect}
}

// NewWithDBTX returns a Store over an arbitrary handle, typically a *sql.Tx.
// WithTx on such a Store runs inline.
func NewWithDBTX(db dbx.DBTX, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Dialect reports the dialect the Store generates SQL for.
func (s *Store) Dialect() Dialect { return s.dialect }

// Select returns the rows of table matching condition. An empty condition
// selects every row; an empty column list selects all columns.
func (s *Store) Select(ctx context.Context, table string, columns []string, condition string, args ...any) ([]Row, error) {
	query, err := s.selectQuery(table, columns, condition, "")
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("select", table, err)
	}

	maps, err := dbx.ScanMaps(rows)
	if err != nil {
		return nil, classify("select", table, err)
	}

	result := make([]Row, len(maps))
	for i, m := range maps {
		result[i] = Row(m)
	}
	return result, nil
}

// Exists reports whether any row of table has field equal to value.
func (s *Store) Exists(ctx context.Context, table, field string, value any) (bool, error) {
	col, err := s.dialect.QuoteIdent(field)
	if err != nil {
		return false, err
	}
	query, err := s.selectQuery(table, []string{field}, col+" = ?", "LIMIT 1")
	if err != nil {
		return false, err
	}

	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return false, classify("exists", table, err)
	}
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, classify("exists", table, err)
	}
	return found, nil
}

// Insert adds one row and returns its store-assigned id.
func (s *Store) Insert(ctx context.Context, table string, fields Fields) (int64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("insert into %s: no fields", table)
	}
	t, err := s.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	cols, vals, err := s.splitFields(fields)
	if err != nil {
		return 0, err
	}

	id, err := s.dialect.QuoteIdent("id")
	if err != nil {
		return 0, err
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := s.dialect.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t, strings.Join(cols, ", "), marks, id))

	var newID int64
	if err := s.db.QueryRowContext(ctx, query, vals...).Scan(&newID); err != nil {
		return 0, classify("insert", table, err)
	}
	return newID, nil
}

// Update sets fields on the rows matching condition and returns how many
// rows changed. An empty condition is rejected to avoid whole-table writes.
func (s *Store) Update(ctx context.Context, table string, fields Fields, condition string, args ...any) (int64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("update %s: no fields", table)
	}
	if strings.TrimSpace(condition) == "" {
		return 0, fmt.Errorf("update %s: empty condition", table)
	}
	t, err := s.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	cols, vals, err := s.splitFields(fields)
	if err != nil {
		return 0, err
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	query := s.dialect.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE %s", t, strings.Join(sets, ", "), condition))

	return s.exec(ctx, "update", table, query, append(vals, args...)...)
}

// Delete removes the rows matching condition and returns how many went.
// An empty condition is rejected.
func (s *Store) Delete(ctx context.Context, table string, condition string, args ...any) (int64, error) {
	if strings.TrimSpace(condition) == "" {
		return 0, fmt.Errorf("delete from %s: empty condition", table)
	}
	t, err := s.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	query := s.dialect.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s", t, condition))

	return s.exec(ctx, "delete", table, query, args...)
}

// WithTx runs fn with a Store bound to a single transaction, committing when
// fn returns nil. Calls on a transaction-bound Store run fn inline.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	if s.begin == nil {
		return fn(ctx, s)
	}
	var fnErr error
	err := dbx.WithTx(ctx, s.begin, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fnErr = fn(ctx, NewWithDBTX(tx, s.dialect))
		return fnErr
	})
	if err != nil && err == fnErr {
		return err
	}
	return classify("tx", "", err)
}

func (s *Store) exec(ctx context.Context, op, table, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(op, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(op, table, err)
	}
	return n, nil
}

func (s *Store) selectQuery(table string, columns []string, condition, suffix string) (string, error) {
	t, err := s.dialect.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	cols, err := s.dialect.columnList(columns)
	if err != nil {
		return "", err
	}

	query := "SELECT " + cols + " FROM " + t
	if strings.TrimSpace(condition) != "" {
		query += " WHERE " + condition
	}
	if suffix != "" {
		query += " " + suffix
	}
	return s.dialect.Rebind(query), nil
}

// splitFields returns quoted column names in sorted order with their values.
func (s *Store) splitFields(fields Fields) ([]string, []any, error) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]string, len(names))
	vals := make([]any, len(names))
	for i, n := range names {
		q, err := s.dialect.QuoteIdent(n)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = q
		vals[i] = fields[n]
	}
	return cols, vals, nil
}
