package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/toolsascode/migrun/internal/config"
	"github.com/toolsascode/migrun/migrations"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "20240301000001_create_widgets.up.sql", "CREATE TABLE widgets (id INTEGER PRIMARY KEY);")
	writeFile(t, dir, "20240301000001_create_widgets.down.sql", "DROP TABLE widgets;")

	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Backend: "sqlite", Name: filepath.Join(t.TempDir(), "app.db")}
	cfg.Migrations.Dir = dir
	cfg.Log.Level = "error"
	return cfg
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	goMigration := func() migrations.Migration {
		return migrations.NewScript(20240301000002, "add_widget_name", "ALTER TABLE widgets ADD COLUMN name TEXT", "")
	}

	a, err := New(ctx, cfg, goMigration)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Registry.Len() != 2 {
		t.Fatalf("Registry.Len() = %d, want 2", a.Registry.Len())
	}

	result, err := a.Runner.RunRegistered(ctx)
	if err != nil {
		t.Fatalf("RunRegistered() error = %v", err)
	}
	if len(result.Applied) != 2 {
		t.Errorf("Applied = %v, want both migrations", result.Applied)
	}

	if err := a.Executor.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func duplicateWidgets() migrations.Migration {
	return migrations.NewScript(20240301000001, "create_widgets", "SELECT 1", "")
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		extra  []migrations.Factory
	}{
		{
			name:   "unknown backend",
			mutate: func(c *config.Config) { c.Database.Backend = "oracle" },
		},
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.Log.Level = "loud" },
		},
		{
			name:   "duplicate version",
			mutate: func(c *config.Config) {},
			extra:  []migrations.Factory{duplicateWidgets},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			a, err := New(context.Background(), cfg, tt.extra...)
			if err == nil {
				a.Close()
				t.Fatal("New() expected error")
			}
		})
	}
}
