// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/lease-receivables/billing"
)

type Config struct {
	ServerPort      string
	ShutdownTimeout time.Duration

	LogLevel        string
	DevelopmentMode bool

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	DBDSN      string

	CollectionPolicy              billing.CollectionPolicy
	RegenerateOnBillingChangeOnly bool
	SeedDemoData                  bool
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then builds the Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	policy, err := billing.ParseCollectionPolicy(Env("COLLECTION_POLICY", string(billing.CollectionReplace)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:      Env("SERVER_PORT", "8080"),
		ShutdownTimeout: Duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:        Env("LOG_LEVEL", "info"),
		DevelopmentMode: Bool("DEVELOPMENT_MODE", false),

		DBDriver:   Env("DB_DRIVER", "sqlite3"),
		DBPath:     Env("DB_PATH", "./receivables.db"),
		DBHost:     Env("DB_HOST", "127.0.0.1"),
		DBPort:     Env("DB_PORT", "5432"),
		DBName:     Env("DB_NAME", "receivables"),
		DBUser:     Env("DB_USER", "postgres"),
		DBPassword: Env("DB_PASSWORD", ""),
		DBSSLMode:  Env("DB_SSLMODE", "disable"),
		DBDSN:      Env("DB_DSN", ""),

		CollectionPolicy:              policy,
		RegenerateOnBillingChangeOnly: Bool("REGENERATE_ON_BILLING_CHANGE_ONLY", false),
		SeedDemoData:                  Bool("SEED_DEMO_DATA", false),
	}

	return cfg, nil
}

// DSN returns the connection string for DBDriver. DB_DSN wins when set.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
	}
	return c.DBPath
}

// Env returns the variable or defaultValue when it is unset or empty.
func Env(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Duration parses a time.Duration, falling back on parse errors.
func Duration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Bool parses a boolean, falling back on parse errors.
func Bool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
