package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/toolsascode/migrun/internal/app"
	"github.com/toolsascode/migrun/internal/config"
	"github.com/toolsascode/migrun/internal/loader"
	"github.com/toolsascode/migrun/migrations"

	"github.com/spf13/cobra"
)

var (
	configPath string
	migrateDir string
	backend    string
	dsn        string
	logLevel   string
	dryRun     bool
	goFile     bool
)

var rootCmd = &cobra.Command{
	Use:   "migrun",
	Short: "migrun - versioned database migrations",
	Long: `migrun applies versioned SQL migrations in ascending order and rolls
back the most recent one. Applied versions are recorded in the
schema_migrations table of the target database.

Migration files live in one directory:
  {dir}/{version}_{name}.up.sql
  {dir}/{version}_{name}.down.sql

Supports PostgreSQL (lib/pq or pgx), SQLite and MySQL.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Example: `  migrun up --backend sqlite --dsn ./app.db
  migrun up --dry-run`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recently applied migration",
	Args:  cobra.NoArgs,
	RunE:  runDown,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var newCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a new migration",
	Long: `New creates an empty up/down SQL pair versioned by the current UTC time.
With --go it scaffolds a Go migration factory instead, to be registered
with migrations.Bootstrap.`,
	Example: `  migrun new create_users
  migrun new backfill_emails --go`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "migrun version %s\n", rootCmd.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "", "Migrations directory (default: config or ./migrations)")
	rootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "Database backend: postgresql, pgx, sqlite, mysql")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	upCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List pending migrations without applying them")
	newCmd.Flags().BoolVar(&goFile, "go", false, "Generate a Go migration file instead of SQL files")

	rootCmd.AddCommand(upCmd, downCmd, statusCmd, newCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if migrateDir != "" {
		cfg.Migrations.Dir = migrateDir
	}
	if backend != "" {
		cfg.Database.Backend = backend
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func runUp(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if dryRun {
		pending, err := a.Runner.Pending(cmd.Context(), a.Registry.ListSorted())
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(out, "No pending migrations")
			return nil
		}
		fmt.Fprintln(out, "DRY RUN MODE - No migrations will be applied")
		for _, m := range pending {
			fmt.Fprintf(out, "[DRY RUN] Would apply: %d_%s\n", m.Version(), m.Name())
		}
		return nil
	}

	result, err := a.Runner.RunRegistered(cmd.Context())
	if result != nil {
		for _, v := range result.Applied {
			fmt.Fprintf(out, "Applied: %d\n", v)
		}
		fmt.Fprintf(out, "\n%d applied, %d already up to date\n", len(result.Applied), len(result.Skipped))
	}
	return err
}

func runDown(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Runner.Rollback(cmd.Context())
	if err != nil {
		return err
	}
	if !result.RolledBack {
		fmt.Fprintln(cmd.OutOrStdout(), "No applied migrations to roll back")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rolled back: %d_%s\n", result.Version, result.Name)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.Runner.Status(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, item := range status.Items {
		state, appliedAt := "pending", ""
		if item.Applied {
			state = "applied"
			appliedAt = item.ExecutedAt.UTC().Format(time.RFC3339)
		}
		if item.Orphaned {
			state = "applied (missing)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", item.Version, item.Name, state, appliedAt)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	current := "none"
	if status.HasCurrent {
		current = strconv.FormatInt(status.Current, 10)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nCurrent version: %s (%d applied, %d pending)\n",
		current, status.Applied, status.Pending)
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	now := time.Now()

	if goFile {
		path, err := writeGoMigration(cfg.Migrations.Dir, args[0], now)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", path)
		return nil
	}

	upPath, downPath, err := loader.Create(cfg.Migrations.Dir, args[0], now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\nGenerated: %s\n", upPath, downPath)
	return nil
}

// writeGoMigration renders migrations.GoFileTemplate into dir
func writeGoMigration(dir, name string, now time.Time) (string, error) {
	tmpl, err := template.New("migration").Parse(migrations.GoFileTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	versionText := now.UTC().Format(loader.VersionLayout)
	version, _, _, err := loader.ParseFileName(versionText + "_" + name + ".up.sql")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.go", versionText, name))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}

	err = tmpl.Execute(file, migrations.TemplateData{
		PackageName: sanitizePackageName(filepath.Base(dir)),
		FuncName:    funcName(name, versionText),
		Version:     version,
		Name:        name,
	})
	_ = file.Close()
	if err != nil {
		return "", fmt.Errorf("failed to generate file %s: %w", path, err)
	}

	return path, nil
}

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizePackageName converts a directory name to a valid Go package name
func sanitizePackageName(name string) string {
	result := strings.ToLower(nonIdent.ReplaceAllString(name, "_"))

	// Ensure it doesn't start with a number
	if len(result) > 0 && result[0] >= '0' && result[0] <= '9' {
		result = "_" + result
	}

	if result == "" || result == "." || result == "_" {
		result = "migrations"
	}

	return result
}

// funcName builds the exported factory name, e.g. M20240101120000CreateUsers
func funcName(name, version string) string {
	var b strings.Builder
	b.WriteString("M")
	b.WriteString(version)
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' }) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
