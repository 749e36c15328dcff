package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("DASHBOARD_PASSWORD_HASH", "$2a$10$hash")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Storage.Backend != BackendDuckDB {
		t.Errorf("Backend = %q, want duckdb", cfg.Storage.Backend)
	}
	if cfg.Storage.DuckDBPath != "analytics.duckdb" {
		t.Errorf("DuckDBPath = %q", cfg.Storage.DuckDBPath)
	}
	if cfg.Funnel.TerminalStepName != "PREDICTION" || cfg.Funnel.TerminalStepNumber != 24 {
		t.Errorf("terminal step = %q/%d, want PREDICTION/24", cfg.Funnel.TerminalStepName, cfg.Funnel.TerminalStepNumber)
	}
	if cfg.Dashboard.DefaultDays != 7 {
		t.Errorf("DefaultDays = %d, want 7", cfg.Dashboard.DefaultDays)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("DASHBOARD_PASSWORD_HASH", "$2a$10$hash")

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
port: "9090"
storage:
  backend: postgres
  database_url: postgres://localhost/quiz
funnel:
  terminal_step_name: RESULTS
  terminal_step_number: -1
dashboard:
  default_days: 14
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.Storage.Backend != BackendPostgres || cfg.Storage.DatabaseURL != "postgres://localhost/quiz" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Funnel.TerminalStepName != "RESULTS" || cfg.Funnel.TerminalStepNumber != -1 {
		t.Errorf("terminal step = %q/%d", cfg.Funnel.TerminalStepName, cfg.Funnel.TerminalStepNumber)
	}
	if cfg.Dashboard.DefaultDays != 14 {
		t.Errorf("DefaultDays = %d, want 14", cfg.Dashboard.DefaultDays)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("DASHBOARD_PASSWORD_HASH", "$2a$10$hash")
	t.Setenv("PORT", "3001")
	t.Setenv("STORAGE_BACKEND", "clickhouse")
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("CLICKHOUSE_NATIVE_PORT", "9000")
	t.Setenv("CLICKHOUSE_DB_NAME", "analytics")
	t.Setenv("STATS_DEFAULT_DAYS", "30")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"9090\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Port = %q, env must override file", cfg.Port)
	}
	if cfg.Storage.Backend != BackendClickHouse {
		t.Errorf("Backend = %q, want clickhouse", cfg.Storage.Backend)
	}
	if cfg.Storage.ClickHouse.Host != "ch.internal" || cfg.Storage.ClickHouse.Port != 9000 {
		t.Errorf("clickhouse = %+v", cfg.Storage.ClickHouse)
	}
	if cfg.Dashboard.DefaultDays != 30 {
		t.Errorf("DefaultDays = %d, want 30", cfg.Dashboard.DefaultDays)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := defaults()
		cfg.Dashboard.JWTSecret = "secret"
		cfg.Dashboard.PasswordHash = "$2a$10$hash"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "unknown storage backend"},
		{"duckdb without path", func(c *Config) { c.Storage.DuckDBPath = "" }, "duckdb_path is empty"},
		{"postgres without url", func(c *Config) { c.Storage.Backend = BackendPostgres }, "database_url is not set"},
		{"clickhouse without host", func(c *Config) { c.Storage.Backend = BackendClickHouse }, "host, port or database"},
		{"missing jwt secret", func(c *Config) { c.Dashboard.JWTSecret = "" }, "jwt_secret is not set"},
		{"missing password hash", func(c *Config) { c.Dashboard.PasswordHash = "" }, "password_hash is not set"},
		{"zero default days", func(c *Config) { c.Dashboard.DefaultDays = 0 }, "default_days must be positive"},
		{"no terminal step", func(c *Config) {
			c.Funnel.TerminalStepName = ""
			c.Funnel.TerminalStepNumber = -1
		}, "terminal step is not configured"},
		{"terminal by name only", func(c *Config) { c.Funnel.TerminalStepNumber = -1 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
