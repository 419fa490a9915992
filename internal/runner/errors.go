package runner

import (
	"errors"
	"fmt"
)

// ErrUnresolvableMigration is returned by Rollback when the latest applied
// version has no registered migration to revert it with
var ErrUnresolvableMigration = errors.New("applied migration is not registered")

// Operation names the direction a migration was run in
type Operation string

const (
	OperationUp   Operation = "up"
	OperationDown Operation = "down"
)

// MigrationError reports which migration failed and in which direction.
// The underlying driver or migration error is available through Unwrap.
type MigrationError struct {
	Version   int64
	Name      string
	Operation Operation
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("migration %d %s: %v", e.Version, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration %d_%s %s: %v", e.Version, e.Name, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}
