package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/toolsascode/migrun/internal/backends"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const (
	driverPQ  = "postgres"
	driverPgx = "pgx"
)

// Backend implements the Backend interface for PostgreSQL
type Backend struct {
	name   string
	driver string
}

// NewBackend creates a PostgreSQL backend on top of lib/pq
func NewBackend() *Backend {
	return &Backend{name: "postgresql", driver: driverPQ}
}

// NewPgxBackend creates a PostgreSQL backend on top of the pgx stdlib driver
func NewPgxBackend() *Backend {
	return &Backend{name: "pgx", driver: driverPgx}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return b.name
}

// Dialect returns the PostgreSQL dialect
func (b *Backend) Dialect() backends.Dialect {
	return backends.DialectPostgres
}

// TransactionalDDL is true: PostgreSQL rolls back DDL with the transaction
func (b *Backend) TransactionalDDL() bool {
	return true
}

// Open establishes a connection pool to PostgreSQL
func (b *Backend) Open(ctx context.Context, config *backends.ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open(b.driver, ConnectionString(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	backends.ConfigurePool(db, config)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return db, nil
}

// ConnectionString builds a keyword/value connection string understood by
// both lib/pq and pgx
func ConnectionString(config *backends.ConnectionConfig) string {
	if config.DSN != "" {
		return config.DSN
	}

	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		"host=" + quoteValue(config.Host),
		"port=" + quoteValue(config.Port),
		"user=" + quoteValue(config.Username),
		"password=" + quoteValue(config.Password),
		"dbname=" + quoteValue(config.Database),
		"sslmode=" + quoteValue(sslMode),
	}

	keys := make([]string, 0, len(config.Extra))
	for k := range config.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quoteValue(config.Extra[k]))
	}

	return strings.Join(parts, " ")
}

// quoteValue quotes a connection string value when it is empty or contains
// spaces or quotes
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
