// Package config provides configuration for the dashboard service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Log backends for the sequenced event and request logs.
const (
	LogBackendJSONL  = "jsonl"
	LogBackendSQLite = "sqlite"
)

// Config holds the dashboard configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	DataPath        string
	LogBackend      string
	DatabaseURL     string
	ListConcurrency int

	// UI
	StaticPath    string
	ControlHubURL string

	// Policy
	PolicyFile string

	// WebSocket settings
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	// Logging
	LogLevel string
}

// fileConfig mirrors Config for the optional YAML overlay.
type fileConfig struct {
	HTTPPort         int    `yaml:"http_port"`
	DataPath         string `yaml:"data_path"`
	LogBackend       string `yaml:"log_backend"`
	DatabaseURL      string `yaml:"database_url"`
	ListConcurrency  int    `yaml:"list_concurrency"`
	StaticPath       string `yaml:"static_path"`
	ControlHubURL    string `yaml:"control_hub_url"`
	PolicyFile       string `yaml:"policy_file"`
	WSPingIntervalMs int    `yaml:"ws_ping_interval_ms"`
	WSWriteTimeoutMs int    `yaml:"ws_write_timeout_ms"`
	WSReadTimeoutMs  int    `yaml:"ws_read_timeout_ms"`
	LogLevel         string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:        8080,
		DataPath:        "/app/data",
		LogBackend:      LogBackendJSONL,
		ListConcurrency: 8,
		StaticPath:      "/app/static",
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		LogLevel:        "info",
	}
}

// Load loads configuration from the optional CONFIG_FILE overlay and then
// environment variables. Environment variables win.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DataPath = getEnv("DATA_PATH", cfg.DataPath)
	cfg.LogBackend = strings.ToLower(getEnv("LOG_BACKEND", cfg.LogBackend))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ListConcurrency = getEnvInt("LIST_CONCURRENCY", cfg.ListConcurrency)
	cfg.StaticPath = getEnv("STATIC_PATH", cfg.StaticPath)
	cfg.ControlHubURL = strings.TrimSpace(getEnv("CONTROL_HUB_URL", cfg.ControlHubURL))
	cfg.PolicyFile = getEnv("POLICY_FILE", cfg.PolicyFile)
	cfg.PingInterval = getEnvMs("WS_PING_INTERVAL_MS", cfg.PingInterval)
	cfg.WriteTimeout = getEnvMs("WS_WRITE_TIMEOUT_MS", cfg.WriteTimeout)
	cfg.ReadTimeout = getEnvMs("WS_READ_TIMEOUT_MS", cfg.ReadTimeout)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.DataPath, ".logs.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("data path is required")
	}
	switch c.LogBackend {
	case LogBackendJSONL, LogBackendSQLite:
	default:
		return fmt.Errorf("unsupported log backend %q", c.LogBackend)
	}
	if c.ListConcurrency < 1 {
		return fmt.Errorf("list concurrency must be positive, got %d", c.ListConcurrency)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	if fc.HTTPPort != 0 {
		c.HTTPPort = fc.HTTPPort
	}
	if fc.DataPath != "" {
		c.DataPath = fc.DataPath
	}
	if fc.LogBackend != "" {
		c.LogBackend = strings.ToLower(fc.LogBackend)
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.ListConcurrency != 0 {
		c.ListConcurrency = fc.ListConcurrency
	}
	if fc.StaticPath != "" {
		c.StaticPath = fc.StaticPath
	}
	if fc.ControlHubURL != "" {
		c.ControlHubURL = fc.ControlHubURL
	}
	if fc.PolicyFile != "" {
		c.PolicyFile = fc.PolicyFile
	}
	if fc.WSPingIntervalMs > 0 {
		c.PingInterval = time.Duration(fc.WSPingIntervalMs) * time.Millisecond
	}
	if fc.WSWriteTimeoutMs > 0 {
		c.WriteTimeout = time.Duration(fc.WSWriteTimeoutMs) * time.Millisecond
	}
	if fc.WSReadTimeoutMs > 0 {
		c.ReadTimeout = time.Duration(fc.WSReadTimeoutMs) * time.Millisecond
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMs(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil && intVal > 0 {
			return time.Duration(intVal) * time.Millisecond
		}
	}
	return defaultVal
}
