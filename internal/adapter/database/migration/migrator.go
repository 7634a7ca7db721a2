// Package migration applies the embedded schema migrations that create the
// forecast tables.
package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

// Files returns the embedded migration files, rooted at the migration directory.
func Files() fs.FS {
	sub, err := fs.Sub(embeddedFS, "sql")
	if err != nil {
		// The directory is embedded at compile time.
		panic(err)
	}
	return sub
}

// Migrator runs migrations over a connection it owns: golang-migrate closes the
// underlying *sql.DB when the run finishes, so callers pass a dedicated connection.
type Migrator struct {
	conn   database.Connection
	source fs.FS
	table  string
}

// NewMigrator creates a Migrator for the embedded migrations.
func NewMigrator(conn database.Connection, table string) *Migrator {
	return &Migrator{conn: conn, source: Files(), table: table}
}

// Up applies all pending migrations. No pending migrations is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "up", func(mi *migrate.Migrate) error { return mi.Up() })
}

// Down reverts all applied migrations.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "down", func(mi *migrate.Migrate) error { return mi.Down() })
}

func (m *Migrator) run(ctx context.Context, command string, apply func(*migrate.Migrate) error) error {
	logger.Infof("Executing migration '%s' on '%s' (table: %s)", command, m.conn.Name(), m.table)

	mi, err := m.newMigrate()
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := mi.Close(); srcErr != nil || dbErr != nil {
			logger.Debugf("Closing migrate instance: source=%v, database=%v", srcErr, dbErr)
		}
	}()

	// golang-migrate stops between migrations when GracefulStop receives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mi.GracefulStop <- true
		case <-done:
		}
	}()

	if err := apply(mi); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, verErr := mi.Version()
		if verErr == nil {
			logger.Errorf("Migration '%s' failed at version %d (dirty: %t).", command, version, dirty)
		}
		return fmt.Errorf("migration '%s' failed (db: %s): %w", command, m.conn.Type(), err)
	}

	version, _, err := mi.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Infof("Migration '%s' completed; no version applied.", command)
	case err != nil:
		logger.Warnf("Migration '%s' completed but version could not be read: %v", command, err)
	default:
		logger.Infof("Migration '%s' completed at version %d.", command, version)
	}
	return nil
}

func (m *Migrator) newMigrate() (*migrate.Migrate, error) {
	sqlDB, err := m.conn.GetSQLDB()
	if err != nil {
		return nil, err
	}
	sourceDriver, err := iofs.New(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	var dbDriver migratedb.Driver
	switch m.conn.Type() {
	case "postgres":
		dbDriver, err = postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: m.table})
	case "mysql":
		dbDriver, err = mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: m.table})
	case "sqlite":
		dbDriver, err = sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: m.table})
	default:
		err = fmt.Errorf("unsupported database type for migration: %s", m.conn.Type())
	}
	if err != nil {
		_ = sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	mi, err := migrate.NewWithInstance("iofs", sourceDriver, m.conn.Type(), dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mi, nil
}
