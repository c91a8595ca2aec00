package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the planner service.
// Environment variables are automatically parsed from the LODESTONE_ prefix.
type Config struct {
	// Build target selects the high-level deployment shape: local, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// DBDriver overrides the derived store driver: memory, sqlite, postgres
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// SQLite Configuration
	SQLitePath string `envconfig:"SQLITE_PATH" default:""`

	// Postgres Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Timezone used when expanding recurrences and bucketing days.
	// Owners without an explicit zone fall back to this one.
	Timezone string `envconfig:"TIMEZONE" default:"UTC"`

	// Scheduler Configuration (cron expressions; empty disables a job)
	PlanCron      string `envconfig:"PLAN_CRON" default:"0 4 * * *"`
	ReconcileCron string `envconfig:"RECONCILE_CRON" default:"30 4 * * *"`

	// Health probe interval for the store checker
	HealthInterval time.Duration `envconfig:"HEALTH_INTERVAL" default:"15s"`

	// Testing Configuration
	TestingTempDatabase bool `envconfig:"TESTING_TEMP_DATABASE" default:"true"`
	TestingParallel     bool `envconfig:"TESTING_PARALLEL" default:"true"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to
// "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	if c.DBDriver == "sqlite" && c.SQLitePath == "" {
		c.SQLitePath = "data/lodestone.db"
	}

	allowedDB := map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unsupported TIMEZONE: %s", c.Timezone)
	}
	return nil
}

// Location returns the configured timezone. ResolveDefaults has already
// validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// New creates a new Config by parsing environment variables
// Environment variables should be prefixed with LODESTONE_
// Example: LODESTONE_DB_DRIVER, LODESTONE_HTTP_PORT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("LODESTONE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("timezone", cfg.Timezone).
		Str("plan_cron", cfg.PlanCron).
		Str("reconcile_cron", cfg.ReconcileCron).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment: EnvTesting,
	}

	cfg.HTTPPort = 8080
	cfg.BuildTarget = "local"
	cfg.DBDriver = "memory"
	cfg.Timezone = "UTC"
	cfg.PlanCron = ""
	cfg.ReconcileCron = ""
	cfg.HealthInterval = 15 * time.Second

	cfg.TestingTempDatabase = true
	cfg.TestingParallel = true

	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
