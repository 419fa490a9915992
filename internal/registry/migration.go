package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/toolsascode/migrun/internal/backends"
)

// ErrIrreversible is returned by Down on a migration that has no down step
var ErrIrreversible = errors.New("migration is irreversible")

// Migration is one versioned schema change
type Migration interface {
	// Version orders migrations and keys the bookkeeping table
	Version() int64

	// Name is a human readable label, used in logs and status output
	Name() string

	// Up applies the change using the given handle
	Up(ctx context.Context, db backends.Handle) error

	// Down reverts the change using the given handle
	Down(ctx context.Context, db backends.Handle) error
}

// MigrationFunc is the signature of a Go migration step
type MigrationFunc func(ctx context.Context, db backends.Handle) error

// Script is a migration made of raw SQL. The SQL is passed to the driver
// as is.
type Script struct {
	version int64
	name    string
	upSQL   string
	downSQL string
}

// NewScript creates a SQL migration. An empty downSQL makes it irreversible.
func NewScript(version int64, name, upSQL, downSQL string) *Script {
	return &Script{version: version, name: name, upSQL: upSQL, downSQL: downSQL}
}

// Version returns the migration version
func (s *Script) Version() int64 { return s.version }

// Name returns the migration name
func (s *Script) Name() string { return s.name }

// UpSQL returns the SQL applied by Up
func (s *Script) UpSQL() string { return s.upSQL }

// DownSQL returns the SQL applied by Down
func (s *Script) DownSQL() string { return s.downSQL }

// Up executes the up SQL
func (s *Script) Up(ctx context.Context, db backends.Handle) error {
	return execScript(ctx, db, s.upSQL)
}

// Down executes the down SQL
func (s *Script) Down(ctx context.Context, db backends.Handle) error {
	if strings.TrimSpace(s.downSQL) == "" {
		return fmt.Errorf("%d_%s: %w", s.version, s.name, ErrIrreversible)
	}
	return execScript(ctx, db, s.downSQL)
}

func execScript(ctx context.Context, db backends.Handle, script string) error {
	if strings.TrimSpace(script) == "" {
		return nil
	}
	if _, err := db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	return nil
}

// Func is a migration implemented in Go
type Func struct {
	version int64
	name    string
	up      MigrationFunc
	down    MigrationFunc
}

// NewFunc creates a Go migration. A nil down makes it irreversible.
func NewFunc(version int64, name string, up, down MigrationFunc) *Func {
	return &Func{version: version, name: name, up: up, down: down}
}

// Version returns the migration version
func (f *Func) Version() int64 { return f.version }

// Name returns the migration name
func (f *Func) Name() string { return f.name }

// Up runs the up function
func (f *Func) Up(ctx context.Context, db backends.Handle) error {
	if f.up == nil {
		return nil
	}
	return f.up(ctx, db)
}

// Down runs the down function
func (f *Func) Down(ctx context.Context, db backends.Handle) error {
	if f.down == nil {
		return fmt.Errorf("%d_%s: %w", f.version, f.name, ErrIrreversible)
	}
	return f.down(ctx, db)
}
