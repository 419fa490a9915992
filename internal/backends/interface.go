package backends

import (
	"context"
	"database/sql"
	"time"
)

// Dialect identifies the SQL flavour spoken by a backend
type Dialect string

const (
	DialectPostgres Dialect = "postgresql"
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
)

// Handle is what a migration receives to run its statements.
// Both *sql.DB and *sql.Tx satisfy it.
type Handle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a Handle that can open transactions
type DB interface {
	Handle
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	PingContext(ctx context.Context) error
}

// Backend opens database connections for a specific driver
type Backend interface {
	// Name returns the name of the backend (e.g., "postgresql", "sqlite", "mysql")
	Name() string

	// Dialect returns the SQL dialect used for bookkeeping statements
	Dialect() Dialect

	// TransactionalDDL reports whether schema changes roll back with the transaction
	TransactionalDDL() bool

	// Open opens and pings a connection pool
	Open(ctx context.Context, config *ConnectionConfig) (*sql.DB, error)
}

// ConnectionConfig holds configuration for a backend connection
type ConnectionConfig struct {
	Backend  string // "postgresql", "pgx", "sqlite", "mysql"
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
	DSN      string            // Overrides the individual fields when set
	Extra    map[string]string // Additional driver parameters

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ConfigurePool applies the pool settings from config, keeping the driver
// defaults for zero values
func ConfigurePool(db *sql.DB, config *ConnectionConfig) {
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}
}
