package migrations

import (
	"github.com/toolsascode/migrun/internal/backends"
	"github.com/toolsascode/migrun/internal/registry"
)

// Migration is a public alias for registry.Migration
type Migration = registry.Migration

// Registry is a public alias for registry.Registry
type Registry = registry.Registry

// Handle is the database handle passed to Up and Down
type Handle = backends.Handle

// MigrationFunc is the signature of a Go migration step
type MigrationFunc = registry.MigrationFunc

// Script and Func are the two built-in kinds of migration
type (
	Script = registry.Script
	Func   = registry.Func
)

var (
	ErrDuplicateVersion = registry.ErrDuplicateVersion
	ErrIrreversible     = registry.ErrIrreversible
)

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return registry.New()
}

// NewScript creates a SQL migration. An empty downSQL makes it irreversible.
func NewScript(version int64, name, upSQL, downSQL string) *Script {
	return registry.NewScript(version, name, upSQL, downSQL)
}

// NewFunc creates a Go migration. A nil down makes it irreversible.
func NewFunc(version int64, name string, up, down MigrationFunc) *Func {
	return registry.NewFunc(version, name, up, down)
}
