package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	key := "MIGRUN_TEST_ENV_VAR"

	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		want         string
	}{
		{
			name:         "env var set",
			envValue:     "env-value",
			defaultValue: "default-value",
			want:         "env-value",
		},
		{
			name:         "env var not set",
			envValue:     "",
			defaultValue: "default-value",
			want:         "default-value",
		},
		{
			name:         "empty default",
			envValue:     "",
			defaultValue: "",
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envValue)

			got := getEnvOrDefault(key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Server.HTTPPort != "7070" {
		t.Errorf("HTTPPort = %v, want 7070", cfg.Server.HTTPPort)
	}
	if cfg.Database.Backend != "postgresql" {
		t.Errorf("Backend = %v, want postgresql", cfg.Database.Backend)
	}
	if cfg.Migrations.Dir != "migrations" {
		t.Errorf("Migrations.Dir = %v, want migrations", cfg.Migrations.Dir)
	}
	if cfg.Queue.Enabled {
		t.Error("Queue.Enabled should default to false")
	}
	if cfg.Database.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("ConnMaxLifetime = %v, want 5m", cfg.Database.ConnMaxLifetime)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("MIGRUN_HTTP_PORT", "8080")
	t.Setenv("MIGRUN_API_TOKEN", "secret")
	t.Setenv("MIGRUN_DB_BACKEND", "sqlite")
	t.Setenv("MIGRUN_DB_NAME", "/tmp/app.db")
	t.Setenv("MIGRUN_DB_MAX_OPEN_CONNS", "10")
	t.Setenv("MIGRUN_DB_CONN_MAX_IDLE_TIME_MINUTES", "3")
	t.Setenv("MIGRUN_DB_PARAM_APPLICATION_NAME", "migrun")
	t.Setenv("MIGRUN_QUEUE_ENABLED", "true")
	t.Setenv("MIGRUN_QUEUE_TYPE", "pulsar")
	t.Setenv("MIGRUN_QUEUE_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Server.HTTPPort != "8080" || cfg.Server.APIToken != "secret" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Database.Backend != "sqlite" || cfg.Database.Name != "/tmp/app.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("MaxOpenConns = %d, want 10", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxIdleTime != 3*time.Minute {
		t.Errorf("ConnMaxIdleTime = %v, want 3m", cfg.Database.ConnMaxIdleTime)
	}
	if cfg.Database.Params["application_name"] != "migrun" {
		t.Errorf("Params = %v", cfg.Database.Params)
	}
	if !cfg.Queue.Enabled || cfg.Queue.Type != "pulsar" {
		t.Errorf("Queue = %+v", cfg.Queue)
	}
	if len(cfg.Queue.KafkaBrokers) != 2 || cfg.Queue.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.Queue.KafkaBrokers)
	}
}

func TestLoadFromEnv_KafkaHostPort(t *testing.T) {
	t.Setenv("MIGRUN_QUEUE_KAFKA_HOST", "kafka")
	t.Setenv("MIGRUN_QUEUE_KAFKA_PORT", "29092")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if len(cfg.Queue.KafkaBrokers) != 1 || cfg.Queue.KafkaBrokers[0] != "kafka:29092" {
		t.Errorf("KafkaBrokers = %v, want [kafka:29092]", cfg.Queue.KafkaBrokers)
	}
}

func TestLoadFromEnv_InvalidInteger(t *testing.T) {
	t.Setenv("MIGRUN_DB_MAX_IDLE_CONNS", "many")

	_, err := LoadFromEnv()
	if err == nil || !strings.Contains(err.Error(), "MIGRUN_DB_MAX_IDLE_CONNS") {
		t.Errorf("LoadFromEnv() error = %v, want it to name the variable", err)
	}
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrun.yaml")
	content := `
server:
  http_port: "9000"
database:
  backend: mysql
  host: db.internal
  port: "3306"
  name: shop
  conn_max_lifetime: 90s
  params:
    charset: utf8mb4
migrations:
  dir: db/migrations
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MIGRUN_DB_HOST", "override.internal")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != "9000" {
		t.Errorf("HTTPPort = %v, want 9000", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort != "9090" {
		t.Errorf("GRPCPort = %v, want default 9090", cfg.Server.GRPCPort)
	}
	if cfg.Database.Backend != "mysql" || cfg.Database.Name != "shop" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.Host != "override.internal" {
		t.Errorf("Host = %v, want env override", cfg.Database.Host)
	}
	if cfg.Database.ConnMaxLifetime != 90*time.Second {
		t.Errorf("ConnMaxLifetime = %v, want 90s", cfg.Database.ConnMaxLifetime)
	}
	if cfg.Migrations.Dir != "db/migrations" || cfg.Log.Level != "debug" {
		t.Errorf("Migrations, Log = %+v, %+v", cfg.Migrations, cfg.Log)
	}

	conn := cfg.Connection()
	if conn.Database != "shop" || conn.Extra["charset"] != "utf8mb4" || conn.Backend != "mysql" {
		t.Errorf("Connection() = %+v", conn)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file expected error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() of invalid YAML expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		server     bool
		wantErrSub string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Database.Backend = "etcd" }, wantErrSub: "unsupported backend"},
		{name: "unknown queue", mutate: func(c *Config) { c.Queue.Enabled = true; c.Queue.Type = "nats" }, wantErrSub: "unsupported queue type"},
		{name: "disabled queue type is ignored", mutate: func(c *Config) { c.Queue.Type = "nats" }},
		{name: "server requires token", mutate: func(*Config) {}, server: true, wantErrSub: "MIGRUN_API_TOKEN"},
		{name: "server with token", mutate: func(c *Config) { c.Server.APIToken = "t" }, server: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			var err error
			if tt.server {
				err = cfg.ValidateServer()
			} else {
				err = cfg.Validate()
			}

			if tt.wantErrSub == "" {
				if err != nil {
					t.Errorf("unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErrSub) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErrSub)
			}
		})
	}
}
