// Package config provides configuration loading and defaults for the
// gqlupload command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnvOverrides.
const (
	EnvEndpoint = "GRAPHQL_UPLOAD_ENDPOINT"
	EnvToken    = "GRAPHQL_UPLOAD_TOKEN"
)

// LogConfig controls the zap logger built by the command.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the top-level configuration of the gqlupload command.
type Config struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	// Timeout is the HTTP request timeout in seconds. Zero disables it.
	Timeout int       `yaml:"timeout"`
	Debug   bool      `yaml:"debug"`
	Log     LogConfig `yaml:"log"`
}

// DefaultConfig returns a new Config populated with default values.
// Each call returns a distinct instance.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults. Environment
// references (${VAR}) in the file are expanded before parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnvOverrides updates cfg in place with values from environment
// variables. Recognized variables:
//   - GRAPHQL_UPLOAD_ENDPOINT overrides cfg.Endpoint
//   - GRAPHQL_UPLOAD_TOKEN overrides cfg.Token
func ApplyEnvOverrides(cfg *Config) {
	if endpoint := os.Getenv(EnvEndpoint); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if token := os.Getenv(EnvToken); token != "" {
		cfg.Token = token
	}
}

// Validate reports the first invalid field of cfg.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint: unsupported scheme %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout: must not be negative, got %d", c.Timeout)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}
