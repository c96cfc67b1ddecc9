package analyzer

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-sketch/pkg/canvas"
	"github.com/teslashibe/go-sketch/pkg/inference"
	"github.com/teslashibe/go-sketch/pkg/persona"
	"golang.org/x/time/rate"
)

// ProviderFactory builds a provider for a caller-supplied API key.
type ProviderFactory func(apiKey string) (inference.Provider, error)

// Config holds analyzer configuration.
type Config struct {
	// Threshold is the minimum number of drawn pixels.
	Threshold int

	// MaxTokens bounds the model response.
	MaxTokens int

	// Model overrides the provider default when set.
	Model string

	// Provider is used when a request carries no API key.
	// Nil means the server holds no credential of its own.
	Provider inference.Provider

	// Factory builds a per-request provider from a request API key.
	// Nil means request keys are ignored.
	Factory ProviderFactory

	Personas *persona.Registry

	// Limiter gates model calls. Nil means unlimited.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// Option is a functional option for configuring the analyzer.
type Option func(*Config)

// WithThreshold sets the drawn-pixel threshold.
func WithThreshold(n int) Option {
	return func(c *Config) { c.Threshold = n }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithModel overrides the provider default model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithProvider sets the server-side provider.
func WithProvider(p inference.Provider) Option {
	return func(c *Config) { c.Provider = p }
}

// WithProviderFactory enables per-request API keys.
func WithProviderFactory(f ProviderFactory) Option {
	return func(c *Config) { c.Factory = f }
}

// WithPersonas sets the persona registry.
func WithPersonas(r *persona.Registry) Option {
	return func(c *Config) { c.Personas = r }
}

// WithRatePerMinute limits model calls to n per minute with a burst of n.
// n <= 0 disables limiting.
func WithRatePerMinute(n int) Option {
	return func(c *Config) {
		if n <= 0 {
			c.Limiter = nil
			return
		}
		c.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// DefaultConfig returns defaults matching the single-call vision pipeline.
func DefaultConfig() *Config {
	return &Config{
		Threshold: canvas.DefaultThreshold,
		MaxTokens: inference.DefaultMaxTokens,
		Logger:    slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
