// Package config loads go-sketch configuration from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-sketch/pkg/inference"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort          = "8080"
	DefaultProvider      = "openai"
	DefaultPersona       = "archivist"
	DefaultThreshold     = 50
	DefaultMaxTokens     = 500
	DefaultTimeout       = 60 * time.Second
	DefaultRatePerMinute = 30
	DefaultBodyLimitMB   = 8
)

// Config holds the full go-sketch configuration.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Model provider
	Provider  string        `yaml:"provider"` // openai | gemini
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`

	// Credentials come from the environment only.
	OpenAIKey string `yaml:"-"`
	GeminiKey string `yaml:"-"`

	// AllowRequestKey lets the page supply its own key per analysis.
	AllowRequestKey bool `yaml:"allow_request_key"`

	// Drawing validation
	Threshold int `yaml:"threshold"`

	// Presentation
	Persona     string `yaml:"persona"`
	PersonaFile string `yaml:"persona_file"`

	// HTTP service
	RatePerMinute int    `yaml:"rate_per_minute"` // 0 disables
	BodyLimitMB   int    `yaml:"body_limit_mb"`
	CORSOrigins   string `yaml:"cors_origins"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		LogLevel:        "info",
		Provider:        DefaultProvider,
		MaxTokens:       DefaultMaxTokens,
		Timeout:         DefaultTimeout,
		AllowRequestKey: true,
		Threshold:       DefaultThreshold,
		Persona:         DefaultPersona,
		RatePerMinute:   DefaultRatePerMinute,
		BodyLimitMB:     DefaultBodyLimitMB,
		CORSOrigins:     "*",
	}
}

// Load returns DefaultConfig merged with the file at path (if any) and then
// the environment. Callers apply their own overrides and then call Validate.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file over the current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	c.OpenAIKey = envOr("OPENAI_API_KEY", c.OpenAIKey)
	c.GeminiKey = envOr("GEMINI_API_KEY", c.GeminiKey)
	c.Provider = envOr("SKETCH_PROVIDER", c.Provider)
	c.Model = envOr("SKETCH_MODEL", c.Model)
	c.BaseURL = envOr("SKETCH_BASE_URL", c.BaseURL)
	c.Persona = envOr("SKETCH_PERSONA", c.Persona)
	c.Port = envOr("PORT", c.Port)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("SKETCH_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SKETCH_THRESHOLD: %w", err)
		}
		c.Threshold = n
	}
	return nil
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unsupported provider %q (use openai or gemini)", c.Provider))
	}
	if c.Threshold <= 0 {
		errs = append(errs, errors.New("threshold must be > 0"))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.New("max_tokens must be > 0"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be > 0"))
	}
	if c.RatePerMinute < 0 {
		errs = append(errs, errors.New("rate_per_minute must be >= 0"))
	}
	if c.BodyLimitMB <= 0 {
		errs = append(errs, errors.New("body_limit_mb must be > 0"))
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(c.Port, ":")); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	return errors.Join(errs...)
}

// APIKey returns the server-side credential for the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == "gemini" {
		return c.GeminiKey
	}
	return c.OpenAIKey
}

// ProviderOptions returns the inference options for a provider that
// authenticates with key.
func (c *Config) ProviderOptions(key string, logger *slog.Logger) []inference.Option {
	opts := []inference.Option{
		inference.WithAPIKey(key),
		inference.WithModel(c.Model),
		inference.WithMaxTokens(c.MaxTokens),
		inference.WithTimeout(c.Timeout),
		inference.WithLogger(logger),
	}
	if c.BaseURL != "" {
		opts = append(opts, inference.WithBaseURL(c.BaseURL))
	}
	return opts
}

// NewProvider builds the configured provider for key.
func (c *Config) NewProvider(key string, logger *slog.Logger) (inference.Provider, error) {
	return inference.NewProvider(c.Provider, c.ProviderOptions(key, logger)...)
}

// Addr returns the listen address for the HTTP service.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// BodyLimitBytes returns the request body limit in bytes.
func (c *Config) BodyLimitBytes() int { return c.BodyLimitMB * 1024 * 1024 }

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
