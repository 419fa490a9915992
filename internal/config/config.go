package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/toolsascode/migrun/internal/backendfactory"
	"github.com/toolsascode/migrun/internal/backends"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Log        LogConfig        `yaml:"log"`
	Queue      QueueConfig      `yaml:"queue"`
}

// ServerConfig configures the HTTP and gRPC listeners
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"`
	GRPCPort string `yaml:"grpc_port"`
	APIToken string `yaml:"api_token"`
}

// DatabaseConfig describes the database migrations are applied to
type DatabaseConfig struct {
	Backend  string            `yaml:"backend"` // "postgresql", "pgx", "sqlite" or "mysql"
	Host     string            `yaml:"host"`
	Port     string            `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	DSN      string            `yaml:"dsn"`
	SSLMode  string            `yaml:"sslmode"`
	Params   map[string]string `yaml:"params"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// MigrationsConfig locates the SQL migration files
type MigrationsConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// QueueConfig configures asynchronous job execution
type QueueConfig struct {
	Enabled            bool     `yaml:"enabled"` // false = synchronous execution
	Type               string   `yaml:"type"`    // "kafka" or "pulsar"
	KafkaBrokers       []string `yaml:"kafka_brokers"`
	KafkaTopic         string   `yaml:"kafka_topic"`
	KafkaGroupID       string   `yaml:"kafka_group_id"`
	PulsarURL          string   `yaml:"pulsar_url"`
	PulsarTopic        string   `yaml:"pulsar_topic"`
	PulsarSubscription string   `yaml:"pulsar_subscription"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: "7070",
			GRPCPort: "9090",
		},
		Database: DatabaseConfig{
			Backend:         "postgresql",
			Host:            "localhost",
			Port:            "5432",
			Username:        "postgres",
			Name:            "postgres",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
		Migrations: MigrationsConfig{
			Dir: "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Queue: QueueConfig{
			Type:               "kafka",
			KafkaBrokers:       []string{"localhost:9092"},
			KafkaTopic:         "migrun-jobs",
			KafkaGroupID:       "migrun-workers",
			PulsarURL:          "pulsar://localhost:6650",
			PulsarTopic:        "migrun-jobs",
			PulsarSubscription: "migrun-workers",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Load reads the YAML file at path, when given, and then applies
// environment variable overrides
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(config *Config) error {
	// Server configuration
	config.Server.HTTPPort = getEnvOrDefault("MIGRUN_HTTP_PORT", config.Server.HTTPPort)
	config.Server.GRPCPort = getEnvOrDefault("MIGRUN_GRPC_PORT", config.Server.GRPCPort)
	config.Server.APIToken = getEnvOrDefault("MIGRUN_API_TOKEN", config.Server.APIToken)

	// Database configuration
	db := &config.Database
	db.Backend = getEnvOrDefault("MIGRUN_DB_BACKEND", db.Backend)
	db.Host = getEnvOrDefault("MIGRUN_DB_HOST", db.Host)
	db.Port = getEnvOrDefault("MIGRUN_DB_PORT", db.Port)
	db.Username = getEnvOrDefault("MIGRUN_DB_USERNAME", db.Username)
	db.Password = getEnvOrDefault("MIGRUN_DB_PASSWORD", db.Password)
	db.Name = getEnvOrDefault("MIGRUN_DB_NAME", db.Name)
	db.DSN = getEnvOrDefault("MIGRUN_DB_DSN", db.DSN)
	db.SSLMode = getEnvOrDefault("MIGRUN_DB_SSLMODE", db.SSLMode)

	var err error
	if db.MaxOpenConns, err = getEnvInt("MIGRUN_DB_MAX_OPEN_CONNS", db.MaxOpenConns); err != nil {
		return err
	}
	if db.MaxIdleConns, err = getEnvInt("MIGRUN_DB_MAX_IDLE_CONNS", db.MaxIdleConns); err != nil {
		return err
	}
	if db.ConnMaxLifetime, err = getEnvMinutes("MIGRUN_DB_CONN_MAX_LIFETIME_MINUTES", db.ConnMaxLifetime); err != nil {
		return err
	}
	if db.ConnMaxIdleTime, err = getEnvMinutes("MIGRUN_DB_CONN_MAX_IDLE_TIME_MINUTES", db.ConnMaxIdleTime); err != nil {
		return err
	}

	// Driver parameters: MIGRUN_DB_PARAM_<NAME>=value
	const paramPrefix = "MIGRUN_DB_PARAM_"
	for _, envVar := range os.Environ() {
		key, value, ok := strings.Cut(envVar, "=")
		if !ok || !strings.HasPrefix(key, paramPrefix) {
			continue
		}
		if db.Params == nil {
			db.Params = make(map[string]string)
		}
		db.Params[strings.ToLower(strings.TrimPrefix(key, paramPrefix))] = value
	}

	config.Migrations.Dir = getEnvOrDefault("MIGRUN_MIGRATIONS_DIR", config.Migrations.Dir)

	config.Log.Level = getEnvOrDefault("MIGRUN_LOG_LEVEL", config.Log.Level)
	config.Log.Format = getEnvOrDefault("MIGRUN_LOG_FORMAT", config.Log.Format)

	// Queue configuration
	if enabled := os.Getenv("MIGRUN_QUEUE_ENABLED"); enabled != "" {
		config.Queue.Enabled = enabled == "true"
	}
	config.Queue.Type = getEnvOrDefault("MIGRUN_QUEUE_TYPE", config.Queue.Type)

	// Kafka configuration
	if kafkaBrokers := os.Getenv("MIGRUN_QUEUE_KAFKA_BROKERS"); kafkaBrokers != "" {
		config.Queue.KafkaBrokers = strings.Split(kafkaBrokers, ",")
	} else if kafkaHost := os.Getenv("MIGRUN_QUEUE_KAFKA_HOST"); kafkaHost != "" {
		kafkaPort := getEnvOrDefault("MIGRUN_QUEUE_KAFKA_PORT", "9092")
		config.Queue.KafkaBrokers = []string{fmt.Sprintf("%s:%s", kafkaHost, kafkaPort)}
	}
	config.Queue.KafkaTopic = getEnvOrDefault("MIGRUN_QUEUE_KAFKA_TOPIC", config.Queue.KafkaTopic)
	config.Queue.KafkaGroupID = getEnvOrDefault("MIGRUN_QUEUE_KAFKA_GROUP_ID", config.Queue.KafkaGroupID)

	// Pulsar configuration
	config.Queue.PulsarURL = getEnvOrDefault("MIGRUN_QUEUE_PULSAR_URL", config.Queue.PulsarURL)
	config.Queue.PulsarTopic = getEnvOrDefault("MIGRUN_QUEUE_PULSAR_TOPIC", config.Queue.PulsarTopic)
	config.Queue.PulsarSubscription = getEnvOrDefault("MIGRUN_QUEUE_PULSAR_SUBSCRIPTION", config.Queue.PulsarSubscription)

	return nil
}

// Validate checks the settings every binary needs
func (c *Config) Validate() error {
	if _, err := backendfactory.New(c.Database.Backend); err != nil {
		return err
	}
	if c.Queue.Enabled {
		switch strings.ToLower(c.Queue.Type) {
		case "kafka", "pulsar":
		default:
			return fmt.Errorf("unsupported queue type: %s (supported: kafka, pulsar)", c.Queue.Type)
		}
	}
	return nil
}

// ValidateServer additionally checks the settings of the HTTP server
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.APIToken == "" {
		return errors.New("MIGRUN_API_TOKEN environment variable is required")
	}
	return nil
}

// Connection converts the database section into a backend connection config
func (c *Config) Connection() *backends.ConnectionConfig {
	db := c.Database
	extra := make(map[string]string, len(db.Params))
	for k, v := range db.Params {
		extra[k] = v
	}
	return &backends.ConnectionConfig{
		Backend:         db.Backend,
		Host:            db.Host,
		Port:            db.Port,
		Username:        db.Username,
		Password:        db.Password,
		Database:        db.Name,
		SSLMode:         db.SSLMode,
		DSN:             db.DSN,
		Extra:           extra,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvMinutes(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number of minutes: %w", key, err)
	}
	return time.Duration(n) * time.Minute, nil
}
