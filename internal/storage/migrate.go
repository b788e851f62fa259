package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// openSchema returns a migrator on a dedicated connection to dbPath.
// Closing the migrator closes that connection.
func openSchema(dbPath string) (*migrate.Migrate, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open schema connection: %w", err)
	}
	target, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite schema driver: %w", err)
	}
	files, err := iofs.New(schemaFiles, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("schema files: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", files, "sqlite", target)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("schema migrator: %w", err)
	}
	return m, nil
}

// RunMigrations brings the accounts, transactions, valuations and config
// tables at dbPath up to date. Running it twice is a no-op.
func RunMigrations(dbPath string) error {
	m, err := openSchema(dbPath)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	var dirty migrate.ErrDirty
	switch {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	case errors.As(err, &dirty):
		return fmt.Errorf("schema version %d was left half-applied; fix it by hand: %w", dirty.Version, err)
	default:
		return fmt.Errorf("upgrade schema: %w", err)
	}
}

// SchemaVersion reports the last applied migration, zero for a database
// that was never migrated.
func SchemaVersion(dbPath string) (version uint, dirty bool, err error) {
	m, err := openSchema(dbPath)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
