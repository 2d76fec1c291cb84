package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store drivers accepted by OpenStore.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// OpenStore connects the named backend. dsn is a database URL for postgres and
// a file path (or ":memory:") for sqlite; it is ignored for memory.
func OpenStore(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return NewPostgresStore(pool), nil
	case DriverSQLite:
		db, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil
	case DriverMemory, "":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// Migrate runs the store's migrations when it has any.
func Migrate(ctx context.Context, s Store) error {
	if m, ok := s.(Migrator); ok {
		return m.Migrate(ctx)
	}
	return nil
}
