// Package migrations embeds the goose migrations for every supported dialect.
// Each dialect has its own directory because DDL for identity columns and
// timestamps differs.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Dir returns the directory inside Migrations that holds the scripts for a
// goose dialect name ("pgx"/"postgres" or "sqlite3"/"sqlite").
func Dir(dialect string) string {
	switch dialect {
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return "postgres"
	}
}
