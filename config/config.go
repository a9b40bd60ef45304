// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Payroll   PayrollConfig
	Scheduler SchedulerConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Driver string // sqlite or postgres
	Path   string // sqlite file, ":memory:" for tests and demos
	URL    string // postgres DSN
}

// PayrollConfig points at the statutory inputs and sizes the engine.
type PayrollConfig struct {
	BracketTablePath string
	RatesPath        string // empty = built-in rates
	PaymentDay       int
	Workers          int
	CacheTTL         time.Duration
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads .env when present, then the environment. Missing keys fall
// back to development defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	config := &Config{}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	// Database configuration
	config.Database = DatabaseConfig{
		Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		Path:   getEnv("DB_PATH", "payroll.db"),
		URL:    getEnv("DATABASE_URL", ""),
	}

	// Payroll configuration
	paymentDay, err := strconv.Atoi(getEnv("PAYMENT_DAY", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_DAY: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("CALC_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid CALC_WORKERS: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	config.Payroll = PayrollConfig{
		BracketTablePath: getEnv("BRACKET_TABLE_PATH", "configs/brackets.json"),
		RatesPath:        getEnv("RATES_PATH", ""),
		PaymentDay:       paymentDay,
		Workers:          workers,
		CacheTTL:         cacheTTL,
	}

	// Scheduler configuration
	enabled, err := strconv.ParseBool(getEnv("SCHEDULER_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_ENABLED: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("SCHEDULER_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL: %w", err)
	}
	config.Scheduler = SchedulerConfig{Enabled: enabled, Interval: interval}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.App.Port)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Payroll.BracketTablePath == "" {
		return fmt.Errorf("BRACKET_TABLE_PATH is required")
	}
	if c.Payroll.PaymentDay < 1 || c.Payroll.PaymentDay > 31 {
		return fmt.Errorf("PAYMENT_DAY must be within 1..31, got %d", c.Payroll.PaymentDay)
	}
	if c.Payroll.Workers < 1 {
		return fmt.Errorf("CALC_WORKERS must be at least 1")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
