package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
)

// Storage drivers for the override history.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	TelegramToken string
	DB            DBConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Overrides     OverrideConfig
	Logger        LoggerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DSN returns the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

type RedisConfig struct {
	Host string
	Port string
}

// Enabled reports whether a Redis anchor store was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type StorageConfig struct {
	Driver     string
	SQLitePath string
}

type OverrideConfig struct {
	RelevantTimeWindow time.Duration
	TimeZone           *time.Location
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	window, err := time.ParseDuration(getEnvOrDefault("OVERRIDE_RELEVANT_WINDOW", "10h"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERRIDE_RELEVANT_WINDOW: %w", err)
	}

	tz, err := time.LoadLocation(getEnvOrDefault("SCHEDULE_TIME_ZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIME_ZONE: %w", err)
	}

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "therapy_overrides"),
		},
		Redis: RedisConfig{
			Host: os.Getenv("REDIS_HOST"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", StoragePostgres)),
			SQLitePath: getEnvOrDefault("SQLITE_PATH", "data/overrides.db"),
		},
		Overrides: OverrideConfig{
			RelevantTimeWindow: window,
			TimeZone:           tz,
		},
		Logger: LoggerConfig{
			Level:      logger.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks the settings the bot process cannot run without.
func (c *Config) Validate() error {
	var problems []string
	if c.TelegramToken == "" {
		problems = append(problems, "TELEGRAM_BOT_TOKEN is required")
	}
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.DB.Host == "" || c.DB.DBName == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for postgres storage")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for sqlite storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Overrides.RelevantTimeWindow <= 0 {
		problems = append(problems, "OVERRIDE_RELEVANT_WINDOW must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
