package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NOVAFLOW_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := Load()
	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.Mode != ModeMock {
		t.Fatalf("expected default mode mock, got %q", cfg.Mode)
	}
	if cfg.StartingURLMode != URLModeDemo {
		t.Fatalf("expected default starting url mode demo, got %q", cfg.StartingURLMode)
	}
	if cfg.ExecTimeout.Seconds() != 90 {
		t.Fatalf("expected 90s exec timeout, got %v", cfg.ExecTimeout)
	}
	if cfg.CloseTimeout.Seconds() != 30 {
		t.Fatalf("expected 30s close timeout, got %v", cfg.CloseTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novaflow.yaml")
	data := []byte("http_port: 9999\nmode: openai\nheadless: false\ndemo_starting_url: https://example.com/\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("NOVAFLOW_CONFIG", path)
	t.Setenv("NOVAFLOW_MODE", "mock") // env wins over file

	cfg := Load()
	if cfg.HTTPPort != 9999 {
		t.Fatalf("expected file port 9999, got %d", cfg.HTTPPort)
	}
	if cfg.Mode != ModeMock {
		t.Fatalf("expected env mode to win, got %q", cfg.Mode)
	}
	if cfg.Headless {
		t.Fatalf("expected headless=false from file")
	}
	if cfg.DemoStartingURL != "https://example.com/" {
		t.Fatalf("unexpected demo url %q", cfg.DemoStartingURL)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	t.Setenv("NOVAFLOW_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "bedrock" }},
		{"openai without key", func(c *Config) { c.Mode = ModeOpenAI; c.OpenAIAPIKey = "" }},
		{"unknown url mode", func(c *Config) { c.StartingURLMode = "anything" }},
		{"plan mode without hosts", func(c *Config) { c.StartingURLMode = URLModePlan; c.AllowedStartingHosts = nil }},
		{"relative demo url", func(c *Config) { c.DemoStartingURL = "/relative" }},
		{"ftp demo url", func(c *Config) { c.DemoStartingURL = "ftp://example.com/" }},
		{"empty database url", func(c *Config) { c.DatabaseURL = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Load()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
