package migrations

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/toolsascode/migrun/internal/loader"
)

// Factory constructs one migration
type Factory func() Migration

// Bootstrap constructs every migration from factories and registers it
// with reg, stopping at the first error
func Bootstrap(reg *Registry, factories ...Factory) error {
	if reg == nil {
		return errors.New("registry is nil")
	}
	for i, factory := range factories {
		if factory == nil {
			return fmt.Errorf("factory %d is nil", i)
		}
		m := factory()
		if m == nil {
			return fmt.Errorf("factory %d returned no migration", i)
		}
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// LoadFS registers one Script per {version}_{name}.up.sql file found in
// fsys, pairing it with the matching .down.sql file when present
func LoadFS(reg *Registry, fsys fs.FS) (int, error) {
	if reg == nil {
		return 0, errors.New("registry is nil")
	}
	return loader.New(fsys, nil).LoadInto(reg)
}
