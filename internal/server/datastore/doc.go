// Package datastore is a small generic data-access layer over database/sql.
//
// Callers name a table, the columns they want and a WHERE condition written
// with "?" placeholders; Store rebinds placeholders for the active dialect,
// binds every value as a parameter and returns rows as column-keyed maps.
// Table and column names are the only tokens interpolated into SQL, and they
// are checked against a strict identifier pattern and quoted first.
//
// Failures are typed: driver errors come back as *Error (errors.Is
// ErrDataAccess) and unique-constraint violations as *ConflictError
// (errors.Is common.ErrConflict).
package datastore
