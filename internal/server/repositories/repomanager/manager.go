// Package repomanager opens the configured database, runs the embedded
// goose migrations for its dialect and vends repositories bound to a Store.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/gatekeeper/internal/server/datastore"
	"github.com/dmitrijs2005/gatekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Store(db *sql.DB) *datastore.Store
	Users(store *datastore.Store) users.Repository
}

// Manager is the RepositoryManager for one SQL dialect.
type Manager struct {
	dialect datastore.Dialect
}

// NewRepositoryManager returns a Manager for the database/sql driver name.
func NewRepositoryManager(driver string) (*Manager, error) {
	d, err := datastore.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Manager{dialect: d}, nil
}

// Open opens a pool for driver/dsn capped at maxOpen connections and checks
// that the database answers.
func Open(ctx context.Context, driver, dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Store returns a datastore.Store over db in the manager's dialect.
func (m *Manager) Store(db *sql.DB) *datastore.Store {
	return datastore.New(db, m.dialect)
}

// Users returns a users.Repository bound to store.
func (m *Manager) Users(store *datastore.Store) users.Repository {
	return users.NewStoreRepository(store)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations for the manager's
// dialect and runs them against db.
func (m *Manager) RunMigrations(ctx context.Context, db *sql.DB) error {
	gooseDialect := "postgres"
	if m.dialect == datastore.SQLite {
		gooseDialect = "sqlite3"
	}

	sub, err := fs.Sub(migrations.Migrations, migrations.Dir(gooseDialect))
	if err != nil {
		return err
	}
	goose.SetBaseFS(sub)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}
	goose.SetLogger(goose.NopLogger())

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
