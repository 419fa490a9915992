// Package migrations is the public API for declaring database migrations.
//
// Each migration is described by a Factory. A program collects its
// factories in one place and registers them explicitly at start-up with
// Bootstrap, against a Registry it owns:
//
//	package catalog
//
//	import (
//		"context"
//
//		"github.com/toolsascode/migrun/migrations"
//	)
//
//	func CreateUsers() migrations.Migration {
//		return migrations.NewScript(20250101120000, "create_users",
//			"CREATE TABLE users (id BIGINT PRIMARY KEY, email TEXT NOT NULL)",
//			"DROP TABLE users")
//	}
//
//	func BackfillEmails() migrations.Migration {
//		return migrations.NewFunc(20250102090000, "backfill_emails",
//			func(ctx context.Context, db migrations.Handle) error {
//				_, err := db.ExecContext(ctx, "UPDATE users SET email = lower(email)")
//				return err
//			}, nil)
//	}
//
//	var All = []migrations.Factory{CreateUsers, BackfillEmails}
//
// and then
//
//	reg := migrations.NewRegistry()
//	if err := migrations.Bootstrap(reg, catalog.All...); err != nil {
//		log.Fatal(err)
//	}
//
// SQL migrations kept as {version}_{name}.up.sql / .down.sql files are
// registered by the migrun CLI and server directly. Programs that ship
// their SQL with an embed.FS register it with LoadFS.
package migrations
