package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "waterflow"
	cfg.HTTP.Port = 8080
	cfg.Log.Level = "info"
	cfg.Engine.DefaultAlgorithm = "blocking_flow"
	cfg.Sweep.LeakageStep = 0.05
	cfg.Sweep.MaxLeakage = 0.95
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app.name",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: "http.port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name:    "unknown algorithm",
			mutate:  func(c *Config) { c.Engine.DefaultAlgorithm = "simplex" },
			wantErr: "engine.default_algorithm",
		},
		{
			name:    "negative iterations",
			mutate:  func(c *Config) { c.Engine.MaxIterations = -1 },
			wantErr: "engine.max_iterations",
		},
		{
			name:    "max leakage out of range",
			mutate:  func(c *Config) { c.Sweep.MaxLeakage = 1.0 },
			wantErr: "sweep.max_leakage",
		},
		{
			name:    "leakage step out of range",
			mutate:  func(c *Config) { c.Sweep.LeakageStep = 0 },
			wantErr: "sweep.leakage_step",
		},
		{
			name:    "auth without secret",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: "auth.jwt_secret",
		},
		{
			name:    "bad pdf page size",
			mutate:  func(c *Config) { c.Report.PDF.PageSize = "B5" },
			wantErr: "report.pdf.page_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.local",
		Port:     5433,
		Database: "waterflow",
		Username: "flow",
		Password: "secret",
		SSLMode:  "require",
	}
	dsn := d.DSN()
	for _, part := range []string{"host=db.local", "port=5433", "dbname=waterflow", "user=flow", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN missing %q: %s", part, dsn)
		}
	}
}
