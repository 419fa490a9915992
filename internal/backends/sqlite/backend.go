package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/toolsascode/migrun/internal/backends"

	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

// Backend implements the Backend interface for SQLite using the pure Go
// modernc.org/sqlite driver
type Backend struct{}

// NewBackend creates a new SQLite backend
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "sqlite"
}

// Dialect returns the SQLite dialect
func (b *Backend) Dialect() backends.Dialect {
	return backends.DialectSQLite
}

// TransactionalDDL is true for SQLite
func (b *Backend) TransactionalDDL() bool {
	return true
}

// Open opens the database file named by DSN or Database. An empty
// configuration opens a private in-memory database.
func (b *Backend) Open(ctx context.Context, config *backends.ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DataSource(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// DataSource returns the driver data source name for config
func DataSource(config *backends.ConnectionConfig) string {
	switch {
	case config.DSN != "":
		return config.DSN
	case config.Database != "":
		return config.Database
	default:
		return memoryDSN
	}
}
