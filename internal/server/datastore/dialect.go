package datastore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect captures the few syntax differences between supported databases.
type Dialect struct {
	// Name is the database/sql driver name.
	Name string
	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
	// Quote wraps identifiers. SQLite reads an unmatched "name" as a string
	// literal, so it gets backticks instead.
	Quote string
}

var (
	Postgres = Dialect{Name: "pgx", Numbered: true, Quote: `"`}
	SQLite   = Dialect{Name: "sqlite", Quote: "`"}
)

// DialectFor maps a driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case Postgres.Name, "postgres":
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Rebind rewrites "?" placeholders outside quoted literals for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QuoteIdent validates a table or column name and quotes it for the dialect.
func (d Dialect) QuoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	q := d.Quote
	if q == "" {
		q = `"`
	}
	return q + name + q, nil
}

// columnList renders a select list; nil, empty or {"*"} select everything.
func (d Dialect) columnList(columns []string) (string, error) {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return "*", nil
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		q, err := d.QuoteIdent(c)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, ", "), nil
}
