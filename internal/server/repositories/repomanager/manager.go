// Package repomanager opens the configured storage backend, applies its
// schema and vends repositories bound to a dbx.DBTX.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}

// Open connects to the backend named by driver and migrates it. The
// returned *sql.DB is nil for the memory driver; callers close it otherwise.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		m          RepositoryManager
		driverName string
	)

	switch driver {
	case config.DriverMemory:
		return nil, NewMemoryRepositoryManager(), nil
	case config.DriverPostgres, "postgres":
		m, driverName = NewPostgresRepositoryManager(), "pgx"
	case config.DriverSQLite:
		m, driverName = NewSQLiteRepositoryManager(), "sqlite"
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if driverName == "sqlite" {
		// single writer; avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, m, nil
}
