// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "delicias.yaml"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Tax     TaxConfig     `yaml:"tax"`
	Payment PaymentConfig `yaml:"payment"`
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	AdminToken   string        `yaml:"admin_token"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TaxConfig configures the fallback tax rate for unknown states.
type TaxConfig struct {
	// DefaultRate is a fraction, e.g. "0.07". Kept as a string so the value
	// reaches decimal arithmetic without a float round trip.
	DefaultRate string `yaml:"default_rate"`
}

// PaymentConfig selects the payment gateway.
type PaymentConfig struct {
	Provider string `yaml:"provider"`
}

// BackendConfig configures the optional hosted order sync.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store:   StoreConfig{Path: filepath.Join("data", "delicias.db")},
		Tax:     TaxConfig{DefaultRate: "0.07"},
		Payment: PaymentConfig{Provider: "mock"},
		Backend: BackendConfig{Timeout: 10 * time.Second},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DELICIAS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DELICIAS_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("DELICIAS_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("DELICIAS_PAYMENT"); v != "" {
		c.Payment.Provider = v
	}
	if v := os.Getenv("DELICIAS_BACKEND_URL"); v != "" {
		c.Backend.URL = v
		c.Backend.Enabled = true
	}
	if v := os.Getenv("DELICIAS_BACKEND_KEY"); v != "" {
		c.Backend.APIKey = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Tax.DefaultRate != "" {
		if err := checkRate(c.Tax.DefaultRate); err != nil {
			return err
		}
	}
	switch c.Payment.Provider {
	case "", "mock", "stripe", "paypal":
	default:
		return fmt.Errorf("payment.provider must be mock, stripe, or paypal, got %q", c.Payment.Provider)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Backend.Enabled && c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required when backend.enabled is true")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must be ≥ 0")
	}
	return nil
}
