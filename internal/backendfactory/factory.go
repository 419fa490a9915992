package backendfactory

import (
	"fmt"
	"strings"

	"github.com/toolsascode/migrun/internal/backends"
	"github.com/toolsascode/migrun/internal/backends/mysql"
	"github.com/toolsascode/migrun/internal/backends/postgresql"
	"github.com/toolsascode/migrun/internal/backends/sqlite"
)

// Supported lists the backend names accepted by New
var Supported = []string{"postgresql", "pgx", "sqlite", "mysql"}

// New returns the backend registered under name
func New(name string) (backends.Backend, error) {
	backendName := strings.ToLower(strings.TrimSpace(name))
	if backendName == "" {
		backendName = "postgresql" // Default to PostgreSQL
	}

	switch backendName {
	case "postgresql", "postgres":
		return postgresql.NewBackend(), nil
	case "pgx":
		return postgresql.NewPgxBackend(), nil
	case "sqlite", "sqlite3":
		return sqlite.NewBackend(), nil
	case "mysql":
		return mysql.NewBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: %s)", name, strings.Join(Supported, ", "))
	}
}
