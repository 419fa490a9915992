package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateVersion is returned when a version is registered twice
var ErrDuplicateVersion = errors.New("duplicate migration version")

// Registry holds the catalog of known migrations. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	migrations []Migration
	byVersion  map[int64]Migration
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		byVersion: make(map[int64]Migration),
	}
}

// Register adds a migration to the catalog. Registering a second migration
// with an existing version fails with ErrDuplicateVersion.
func (r *Registry) Register(migration Migration) error {
	if migration == nil {
		return errors.New("migration is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	version := migration.Version()
	if existing, ok := r.byVersion[version]; ok {
		return fmt.Errorf("%w: %d (%s and %s)", ErrDuplicateVersion, version, existing.Name(), migration.Name())
	}

	r.migrations = append(r.migrations, migration)
	r.byVersion[version] = migration
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(migration Migration) {
	if err := r.Register(migration); err != nil {
		panic(err)
	}
}

// ListSorted returns every registered migration in ascending version order.
// The result is a fresh slice on every call.
func (r *Registry) ListSorted() []Migration {
	r.mu.RLock()
	result := make([]Migration, len(r.migrations))
	copy(result, r.migrations)
	r.mu.RUnlock()

	SortByVersion(result)
	return result
}

// Lookup returns the migration registered under version
func (r *Registry) Lookup(version int64) (Migration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byVersion[version]
	return m, ok
}

// Len returns the number of registered migrations
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.migrations)
}

// SortByVersion sorts migrations in place, ascending by version. Equal
// versions keep their relative order.
func SortByVersion(migrations []Migration) {
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version() < migrations[j].Version()
	})
}
