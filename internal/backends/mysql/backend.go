package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/toolsascode/migrun/internal/backends"
)

// Backend implements the Backend interface for MySQL.
//
// MySQL commits DDL implicitly, so a failed migration that already ran a
// CREATE or ALTER leaves that change in place even though its bookkeeping
// record is rolled back.
type Backend struct{}

// NewBackend creates a new MySQL backend
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "mysql"
}

// Dialect returns the MySQL dialect
func (b *Backend) Dialect() backends.Dialect {
	return backends.DialectMySQL
}

// TransactionalDDL is false for MySQL
func (b *Backend) TransactionalDDL() bool {
	return false
}

// Open establishes a connection pool to MySQL
func (b *Backend) Open(ctx context.Context, config *backends.ConnectionConfig) (*sql.DB, error) {
	dsn, err := DataSource(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	backends.ConfigurePool(db, config)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return db, nil
}

// DataSource builds the driver DSN. Time values are parsed and multi
// statement scripts are allowed so a migration file can hold several
// statements.
func DataSource(config *backends.ConnectionConfig) (string, error) {
	var cfg *mysql.Config
	if config.DSN != "" {
		parsed, err := mysql.ParseDSN(config.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid MySQL DSN: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = config.Username
		cfg.Passwd = config.Password
		cfg.DBName = config.Database
		if config.Host != "" {
			port := config.Port
			if port == "" {
				port = "3306"
			}
			cfg.Net = "tcp"
			cfg.Addr = net.JoinHostPort(config.Host, port)
		}
		if len(config.Extra) > 0 {
			cfg.Params = make(map[string]string, len(config.Extra))
			for k, v := range config.Extra {
				cfg.Params[k] = v
			}
		}
	}

	cfg.ParseTime = true
	cfg.MultiStatements = true

	return cfg.FormatDSN(), nil
}
