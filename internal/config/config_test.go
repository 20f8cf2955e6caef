package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host = %q, want localhost", cfg.Database.Host)
	}
	if cfg.Analytics.ThresholdMultiplier != 1.5 {
		t.Errorf("threshold multiplier = %v, want 1.5", cfg.Analytics.ThresholdMultiplier)
	}
	if cfg.Analytics.HighSigma != 2.0 {
		t.Errorf("high sigma = %v, want 2.0", cfg.Analytics.HighSigma)
	}
	if cfg.AWS.Enabled {
		t.Error("AWS should be disabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANALYTICS_THRESHOLD_MULTIPLIER", "2.5")
	t.Setenv("SERVER_READ_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Analytics.ThresholdMultiplier != 2.5 {
		t.Errorf("threshold multiplier = %v, want 2.5", cfg.Analytics.ThresholdMultiplier)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("read timeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	base, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing password", func(c *Config) { c.Database.Password = "" }, "DB_PASSWORD"},
		{"zero multiplier", func(c *Config) { c.Analytics.ThresholdMultiplier = 0 }, "THRESHOLD_MULTIPLIER"},
		{"inverted sigma bands", func(c *Config) { c.Analytics.HighSigma = 1.0 }, "HIGH_SIGMA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "costlens", SSLMode: "disable",
	}
	want := "host=db port=5432 user=u password=p dbname=costlens sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
