// Package config resolves the process configuration once at startup.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. The storage backend is an explicit choice; if the
// configured backend cannot be reached the process exits instead of silently
// degrading to a different store whose data the configured one cannot see.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	BackendDuckDB     = "duckdb"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

type Config struct {
	Port          string `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`

	Storage   StorageConfig   `yaml:"storage"`
	Funnel    FunnelConfig    `yaml:"funnel"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type StorageConfig struct {
	// Backend is one of duckdb, postgres or clickhouse.
	Backend string `yaml:"backend"`

	// DuckDBPath is the database file for the embedded backend.
	DuckDBPath string `yaml:"duckdb_path"`

	// DatabaseURL is the connection string for the postgres backend.
	DatabaseURL string `yaml:"database_url"`

	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// FunnelConfig identifies the funnel's terminal step. Reaching it marks the
// session completed. Either the name or the number may match; set the number
// to -1 when the funnel has no numeric terminal.
type FunnelConfig struct {
	TerminalStepName   string `yaml:"terminal_step_name"`
	TerminalStepNumber int    `yaml:"terminal_step_number"`
}

type DashboardConfig struct {
	// PasswordHash is the bcrypt hash of the operator password.
	PasswordHash string `yaml:"password_hash"`
	JWTSecret    string `yaml:"jwt_secret"`
	// APIKey grants programmatic dashboard access via the X-API-KEY header.
	APIKey string `yaml:"api_key"`
	// DefaultDays is the window for the overview's date-bucketed counts.
	DefaultDays int `yaml:"default_days"`
}

func defaults() *Config {
	return &Config{
		Port:          "8080",
		AllowedOrigin: "http://localhost:3000",
		Storage: StorageConfig{
			Backend:    BackendDuckDB,
			DuckDBPath: "analytics.duckdb",
		},
		Funnel: FunnelConfig{
			TerminalStepName:   "PREDICTION",
			TerminalStepNumber: 24,
		},
		Dashboard: DashboardConfig{
			DefaultDays: 7,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.AllowedOrigin, "FE_ORIGIN")

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.DuckDBPath, "DUCKDB_PATH")
	setString(&c.Storage.DatabaseURL, "DATABASE_URL")
	setString(&c.Storage.ClickHouse.Host, "CLICKHOUSE_HOST")
	setInt(&c.Storage.ClickHouse.Port, "CLICKHOUSE_NATIVE_PORT")
	setString(&c.Storage.ClickHouse.Database, "CLICKHOUSE_DB_NAME")
	setString(&c.Storage.ClickHouse.Username, "CLICKHOUSE_USERNAME")
	setString(&c.Storage.ClickHouse.Password, "CLICKHOUSE_PASSWORD")

	setString(&c.Funnel.TerminalStepName, "TERMINAL_STEP_NAME")
	setInt(&c.Funnel.TerminalStepNumber, "TERMINAL_STEP_NUMBER")

	setString(&c.Dashboard.PasswordHash, "DASHBOARD_PASSWORD_HASH")
	setString(&c.Dashboard.JWTSecret, "JWT_SECRET_KEY")
	setString(&c.Dashboard.APIKey, "DASHBOARD_API_KEY")
	setInt(&c.Dashboard.DefaultDays, "STATS_DEFAULT_DAYS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendDuckDB:
		if c.Storage.DuckDBPath == "" {
			return fmt.Errorf("duckdb backend selected but duckdb_path is empty")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("postgres backend selected but database_url is not set")
		}
	case BackendClickHouse:
		ch := c.Storage.ClickHouse
		if ch.Host == "" || ch.Port == 0 || ch.Database == "" {
			return fmt.Errorf("clickhouse backend selected but host, port or database is not set")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (expected duckdb, postgres or clickhouse)", c.Storage.Backend)
	}

	if c.Dashboard.JWTSecret == "" {
		return fmt.Errorf("dashboard jwt_secret is not set (JWT_SECRET_KEY)")
	}
	if c.Dashboard.PasswordHash == "" {
		return fmt.Errorf("dashboard password_hash is not set (DASHBOARD_PASSWORD_HASH)")
	}
	if c.Dashboard.DefaultDays <= 0 {
		return fmt.Errorf("default_days must be positive, got %d", c.Dashboard.DefaultDays)
	}
	if c.Funnel.TerminalStepName == "" && c.Funnel.TerminalStepNumber < 0 {
		return fmt.Errorf("funnel terminal step is not configured")
	}
	return nil
}
