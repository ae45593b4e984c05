package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Intake    IntakeConfig    `yaml:"intake"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Slack     SlackConfig     `yaml:"slack"`
	OTEL      OTELConfig      `yaml:"otel"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig selects where feedback records live
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	FilePath string `yaml:"file_path"`
	RedisKey string `yaml:"redis_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis configuration. An empty Host disables Redis.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IntakeConfig holds conversation settings
type IntakeConfig struct {
	AutoCloseDelay time.Duration `yaml:"auto_close_delay"`
	// IdleTimeout closes conversations without input; zero keeps them until closed
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DashboardConfig holds metrics settings
type DashboardConfig struct {
	Timezone        string `yaml:"timezone"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// SlackConfig holds the low-rating alert destination
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Endpoint       string `yaml:"endpoint"`
	Enabled        bool   `yaml:"enabled"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend:  StorageFile,
			FilePath: "data/feedback_data.json",
			RedisKey: "feedback_data",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "feediq",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Port: 6379,
		},
		Intake: IntakeConfig{
			AutoCloseDelay: 3 * time.Second,
			IdleTimeout:    15 * time.Minute,
		},
		Dashboard: DashboardConfig{
			Timezone:        "Local",
			CacheTTLSeconds: 30,
		},
		OTEL: OTELConfig{
			ServiceName:    "feediq",
			ServiceVersion: "1.0.0",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// FEEDIQ_CONFIG, and environment variables (a local .env file is read first).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Defaults()

	if path := os.Getenv("FEEDIQ_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("APP_ENV", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.FilePath = getEnv("STORAGE_FILE_PATH", c.Storage.FilePath)
	c.Storage.RedisKey = getEnv("STORAGE_REDIS_KEY", c.Storage.RedisKey)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvAsInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Intake.AutoCloseDelay = getEnvAsDuration("INTAKE_AUTO_CLOSE_DELAY", c.Intake.AutoCloseDelay)
	c.Intake.IdleTimeout = getEnvAsDuration("INTAKE_IDLE_TIMEOUT", c.Intake.IdleTimeout)

	c.Dashboard.Timezone = getEnv("METRICS_TIMEZONE", c.Dashboard.Timezone)
	c.Dashboard.CacheTTLSeconds = getEnvAsInt("DASHBOARD_CACHE_TTL_SECONDS", c.Dashboard.CacheTTLSeconds)

	c.Slack.WebhookURL = getEnv("SLACK_WEBHOOK_URL", c.Slack.WebhookURL)
	c.Slack.Channel = getEnv("SLACK_CHANNEL", c.Slack.Channel)

	c.OTEL.ServiceName = getEnv("OTEL_SERVICE_NAME", c.OTEL.ServiceName)
	c.OTEL.ServiceVersion = getEnv("OTEL_SERVICE_VERSION", c.OTEL.ServiceVersion)
	c.OTEL.Endpoint = getEnv("OTEL_ENDPOINT", c.OTEL.Endpoint)
	c.OTEL.Enabled = getEnvAsBool("OTEL_ENABLED", c.OTEL.Enabled)
}

// Validate rejects settings the process cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StoragePostgres:
	case StorageFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("STORAGE_FILE_PATH is required for the file backend")
		}
	case StorageRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("REDIS_HOST is required for the redis backend")
		}
		if c.Storage.RedisKey == "" {
			return fmt.Errorf("STORAGE_REDIS_KEY is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want memory, file, redis or postgres)", c.Storage.Backend)
	}

	if c.Intake.AutoCloseDelay <= 0 {
		return fmt.Errorf("INTAKE_AUTO_CLOSE_DELAY must be positive, got %s", c.Intake.AutoCloseDelay)
	}
	if c.Intake.IdleTimeout < 0 {
		return fmt.Errorf("INTAKE_IDLE_TIMEOUT must not be negative, got %s", c.Intake.IdleTimeout)
	}
	if _, err := c.Dashboard.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the metrics timezone
func (c *DashboardConfig) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsDevelopment reports whether the process runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Enabled reports whether a Redis server is configured
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
