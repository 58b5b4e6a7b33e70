package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SessionLength != 10 {
		t.Errorf("SessionLength = %d, want 10", cfg.SessionLength)
	}
	if cfg.CatalogPath != "" {
		t.Errorf("CatalogPath = %q, want embedded default", cfg.CatalogPath)
	}
	if cfg.CollectorURL != "" {
		t.Errorf("CollectorURL = %q, want disabled", cfg.CollectorURL)
	}
	if !cfg.EventLog.Enabled {
		t.Error("event log should default to enabled")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SESSION_LENGTH", "5")
	t.Setenv("CATALOG_PATH", "/etc/phishplay/catalog.yaml")
	t.Setenv("EVENT_LOG_ENABLED", "false")
	t.Setenv("EVENT_LOG_QUEUE_SIZE", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.SessionLength != 5 {
		t.Errorf("SessionLength = %d, want 5", cfg.SessionLength)
	}
	if cfg.CatalogPath != "/etc/phishplay/catalog.yaml" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}
	if cfg.EventLog.Enabled {
		t.Error("event log should be disabled")
	}
	if cfg.EventLog.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", cfg.EventLog.QueueSize)
	}
}

func TestLoadRejectsInvalidSessionLength(t *testing.T) {
	t.Setenv("SESSION_LENGTH", "0")

	if _, err := Load(); err == nil {
		t.Error("expected error for SESSION_LENGTH=0")
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"https://training.example.com", false},
		{"", true},
	}
	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.frontendURL}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontendURL, got, tt.want)
		}
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL_KEY", "yes")
	if !getEnvBool("TEST_BOOL_KEY", false) {
		t.Error(`"yes" should parse as true`)
	}

	t.Setenv("TEST_BOOL_KEY", "off")
	if getEnvBool("TEST_BOOL_KEY", true) {
		t.Error(`"off" should parse as false`)
	}

	t.Setenv("TEST_BOOL_KEY", "maybe")
	if !getEnvBool("TEST_BOOL_KEY", true) {
		t.Error("unparseable value should fall back")
	}
}
