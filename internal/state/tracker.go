package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/toolsascode/migrun/internal/backends"
)

// TableName is the bookkeeping table holding one row per applied migration
const TableName = "schema_migrations"

// CreateTableSQL creates the bookkeeping table when it is missing. Existing
// tables and rows are left untouched.
const CreateTableSQL = "CREATE TABLE IF NOT EXISTS " + TableName +
	" (version INT8 PRIMARY KEY, executed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)"

// ErrRecordNotFound is returned by Delete when no row matches the version
var ErrRecordNotFound = errors.New("migration record not found")

// Record is one row of the bookkeeping table
type Record struct {
	Version    int64
	ExecutedAt time.Time
}

// Tracker reads and writes the bookkeeping table. It holds no connection;
// every call runs on the handle it is given, which is either the pool or
// the transaction of the migration being applied.
type Tracker struct {
	sb squirrel.StatementBuilderType
}

// NewTracker creates a tracker that renders placeholders for dialect
func NewTracker(dialect backends.Dialect) *Tracker {
	var format squirrel.PlaceholderFormat = squirrel.Question
	if dialect == backends.DialectPostgres {
		format = squirrel.Dollar
	}
	return &Tracker{
		sb: squirrel.StatementBuilder.PlaceholderFormat(format),
	}
}

// EnsureTable creates the bookkeeping table if it does not exist
func (t *Tracker) EnsureTable(ctx context.Context, h backends.Handle) error {
	if _, err := h.ExecContext(ctx, CreateTableSQL); err != nil {
		return fmt.Errorf("failed to create %s table: %w", TableName, err)
	}
	return nil
}

// IsApplied reports whether a record exists for version
func (t *Tracker) IsApplied(ctx context.Context, h backends.Handle, version int64) (bool, error) {
	query, args, err := t.sb.Select("COUNT(*)").
		From(TableName).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := h.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}

// Record inserts the bookkeeping row for version. executed_at is filled by
// the column default.
func (t *Tracker) Record(ctx context.Context, h backends.Handle, version int64) error {
	query, args, err := t.sb.Insert(TableName).
		Columns("version").
		Values(version).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := h.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	return nil
}

// Delete removes the bookkeeping row for version
func (t *Tracker) Delete(ctx context.Context, h backends.Handle, version int64) error {
	query, args, err := t.sb.Delete(TableName).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := h.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete migration record %d: %w", version, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %d", ErrRecordNotFound, version)
	}
	return nil
}

// Latest returns the highest applied version. ok is false when nothing has
// been applied.
func (t *Tracker) Latest(ctx context.Context, h backends.Handle) (version int64, ok bool, err error) {
	query, args, err := t.sb.Select("version").
		From(TableName).
		OrderBy("version DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return 0, false, err
	}

	err = h.QueryRowContext(ctx, query, args...).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read latest migration: %w", err)
	}
	return version, true, nil
}

// List returns every record in ascending version order
func (t *Tracker) List(ctx context.Context, h backends.Handle) ([]Record, error) {
	query, args, err := t.sb.Select("version", "executed_at").
		From(TableName).
		OrderBy("version ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec Record
			ts  timestamp
		)
		if err := rows.Scan(&rec.Version, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		rec.ExecutedAt = ts.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	return records, nil
}
