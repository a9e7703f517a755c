// ABOUTME: Configuration loading and parsing for faro servers and clients.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Env var names read at startup.
const (
	// EnvConfig points at an alternate config file path.
	EnvConfig = "FARO_CONFIG"
	// EnvServerVariant selects which capability pack a pipe server exposes.
	EnvServerVariant = "FARO_SERVER"
	// EnvAPIKey supplies the shared secret for the HTTP transport.
	EnvAPIKey = "FARO_API_KEY"
)

// Config represents the complete faro configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Weather  WeatherConfig  `yaml:"weather"`
	Client   ClientConfig   `yaml:"client"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server transport configuration.
type ServerConfig struct {
	// Variant selects the capability pack: simple, bd, or clima.
	Variant string `yaml:"variant"`
	// Transport is "pipe" (stdio) or "sse" (HTTP event stream).
	Transport string `yaml:"transport"`
	// HTTPAddr is the listen address for the sse transport.
	HTTPAddr string `yaml:"http_addr"`
}

// AuthConfig holds the shared secret for the HTTP transport.
// Empty means the auth gate allows everything (local development default).
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// DatabaseConfig holds the chatter store location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WeatherConfig holds the external weather provider endpoints.
// Empty values fall back to the public Open-Meteo endpoints.
type WeatherConfig struct {
	GeocodeURL  string `yaml:"geocode_url"`
	ForecastURL string `yaml:"forecast_url"`
}

// ClientConfig holds client session tuning.
type ClientConfig struct {
	CallTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	CallTimeoutRaw string `yaml:"call_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a config with sane local-development defaults applied.
// Environment overrides (FARO_SERVER, FARO_API_KEY) are layered on top.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Variant:   "simple",
			Transport: "pipe",
			HTTPAddr:  "127.0.0.1:8765",
		},
		Database: DatabaseConfig{Path: "faro.db"},
		Client:   ClientConfig{CallTimeout: 30 * time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
	cfg.applyEnv()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded, and
// FARO_SERVER / FARO_API_KEY override the corresponding fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnv layers process environment overrides onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvServerVariant); v != "" {
		c.Server.Variant = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Auth.APIKey = v
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that the configuration is internally consistent.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Server.Variant {
	case "simple", "bd", "clima":
	default:
		return fmt.Errorf("server.variant must be simple, bd, or clima (got %q)", c.Server.Variant)
	}

	switch c.Server.Transport {
	case "pipe", "sse":
	default:
		return fmt.Errorf("server.transport must be pipe or sse (got %q)", c.Server.Transport)
	}

	if c.Server.Transport == "sse" && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required for the sse transport")
	}

	if c.Server.Variant == "bd" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the bd variant")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Client.CallTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Client.CallTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing call_timeout %q: %w", cfg.Client.CallTimeoutRaw, err)
		}
		cfg.Client.CallTimeout = d
	}
	return nil
}
