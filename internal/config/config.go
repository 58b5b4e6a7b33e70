// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	FrontendURL   string
	DBPath        string
	CatalogPath   string // empty = use the embedded default catalog
	SessionLength int
	SessionTTL    time.Duration
	CollectorURL  string // empty = external telemetry delivery disabled
	EventLog      EventLogConfig
}

// EventLogConfig controls NDJSON telemetry event logging.
type EventLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("EVENT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		DBPath:        getEnv("DB_PATH", "./data/phishplay.db"),
		CatalogPath:   getEnv("CATALOG_PATH", ""),
		SessionLength: getEnvInt("SESSION_LENGTH", 10),
		SessionTTL:    60 * time.Minute,
		CollectorURL:  getEnv("COLLECTOR_URL", ""),
		EventLog: EventLogConfig{
			Enabled:       getEnvBool("EVENT_LOG_ENABLED", true),
			Dir:           getEnv("EVENT_LOG_DIR", "./data/logs/events"),
			GlobalEnabled: getEnvBool("EVENT_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("EVENT_LOG_GLOBAL_PATH", "./data/logs/events/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionLength <= 0 {
		return fmt.Errorf("SESSION_LENGTH must be > 0")
	}
	if c.EventLog.Dir == "" {
		return fmt.Errorf("EVENT_LOG_DIR cannot be empty")
	}
	if c.EventLog.GlobalPath == "" {
		return fmt.Errorf("EVENT_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.EventLog.QueueSize <= 0 {
		return fmt.Errorf("EVENT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
