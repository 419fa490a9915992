package runner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/toolsascode/migrun/internal/backends"
)

// inTx runs fn inside a transaction and ends it through commit
func (r *Runner) inTx(ctx context.Context, logger logrus.FieldLogger, fn func(tx backends.Handle) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return commit(logger, tx, protect(func() error { return fn(tx) }))
}

// commit rolls tx back when err is set, otherwise commits it. The original
// error is returned unchanged; a failed rollback is only logged.
func commit(logger logrus.FieldLogger, tx *sql.Tx, err error) error {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.WithError(err).Error("Failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// protect turns a panic inside a migration step into an error so the
// transaction is rolled back instead of left open
func protect(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("migration panicked: %v", p)
		}
	}()
	return fn()
}
