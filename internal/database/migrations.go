package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/tasks/*.sql migrations/auth/*.sql
var migrationsFS embed.FS

// Schema names an embedded migration set.
type Schema string

const (
	SchemaTasks Schema = "tasks"
	SchemaAuth  Schema = "auth"
)

// Migrate applies every pending migration of schema to db. A database
// that is already current is not an error.
func Migrate(db *gorm.DB, schema Schema) error {
	m, closeSource, err := newMigrator(db, schema)
	if err != nil {
		return err
	}
	defer closeSource()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run %s migrations: %w", schema, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read %s schema version: %w", schema, err)
	}
	slog.Info("database migrations completed",
		slog.String("schema", string(schema)),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// Version reports the applied migration version of schema.
func Version(db *gorm.DB, schema Schema) (uint, bool, error) {
	m, closeSource, err := newMigrator(db, schema)
	if err != nil {
		return 0, false, err
	}
	defer closeSource()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// migrationsTable keeps the version of each schema apart, so both sets can
// live in one database file.
func migrationsTable(schema Schema) string {
	return "schema_migrations_" + string(schema)
}

// newMigrator builds a migrator over the gorm pool. The migrate instance
// is never closed: its database driver would close the shared pool.
func newMigrator(db *gorm.DB, schema Schema) (*migrate.Migrate, func(), error) {
	switch schema {
	case SchemaTasks, SchemaAuth:
	default:
		return nil, nil, fmt.Errorf("unknown schema %q", schema)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	source, err := iofs.New(sub, string(schema))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: migrationsTable(schema)})
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, func() { source.Close() }, nil
}
