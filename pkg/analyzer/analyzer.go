// Package analyzer runs the sketch pipeline: validate the frame, encode it,
// ask a vision model to describe it, and dress the answer in a persona.
//
// Each Analyze call is self-contained. Checks run in a fixed order
// (credential, frame presence, drawn-pixel threshold, encoding, rate limit)
// and the model is called at most once. Nothing is retried.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-sketch/pkg/canvas"
	"github.com/teslashibe/go-sketch/pkg/inference"
	"github.com/teslashibe/go-sketch/pkg/persona"
)

// Request is one analysis action.
type Request struct {
	// Frame is the captured drawing; nil when nothing was captured.
	Frame *canvas.Frame

	// APIKey is a caller-supplied credential. Empty uses the server provider.
	APIKey string

	// Persona selects the presentation variant; empty uses the default.
	Persona string
}

// Result of an analysis. Validation failures return a Result with the
// verdict set alongside the error.
type Result struct {
	Verdict     canvas.Verdict
	Stats       canvas.Stats
	Persona     string
	Description string
	Report      string
	Model       string
	Provider    string
	Usage       inference.Usage
	EncodedSize int
	LatencyMs   int64
}

// Analyzer runs the pipeline.
type Analyzer struct {
	config    *Config
	validator *canvas.Validator
	personas  *persona.Registry
	logger    *slog.Logger
}

// New creates an analyzer.
func New(opts ...Option) *Analyzer {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.Personas == nil {
		cfg.Personas = persona.NewRegistry()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = inference.DefaultMaxTokens
	}

	return &Analyzer{
		config:    cfg,
		validator: canvas.NewValidator(canvas.WithThreshold(cfg.Threshold)),
		personas:  cfg.Personas,
		logger:    cfg.Logger.With("component", "analyzer"),
	}
}

// Threshold returns the drawn-pixel threshold in effect.
func (a *Analyzer) Threshold() int { return a.validator.Threshold() }

// Personas returns the persona registry.
func (a *Analyzer) Personas() *persona.Registry { return a.personas }

// HasServerCredential reports whether requests without a key can be served.
func (a *Analyzer) HasServerCredential() bool { return a.config.Provider != nil }

// AcceptsRequestKeys reports whether request API keys are honoured.
func (a *Analyzer) AcceptsRequestKeys() bool { return a.config.Factory != nil }

// CheckCredential reports ErrMissingCredential when a request with apiKey
// would have no credential for the model call.
func (a *Analyzer) CheckCredential(apiKey string) error {
	if apiKey != "" && a.config.Factory != nil {
		return nil
	}
	if a.config.Provider != nil {
		return nil
	}
	return ErrMissingCredential
}

// Health checks the server-side provider. It returns ErrMissingCredential
// when no server provider is configured.
func (a *Analyzer) Health(ctx context.Context) error {
	if a.config.Provider == nil {
		return ErrMissingCredential
	}
	return a.config.Provider.Health(ctx)
}

// Analyze runs one analysis action.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	p, err := a.personas.Get(req.Persona)
	if err != nil {
		return nil, err
	}
	result := &Result{Persona: p.Name}

	if err := a.CheckCredential(req.APIKey); err != nil {
		return result, err
	}
	useRequestKey := req.APIKey != "" && a.config.Factory != nil

	if req.Frame == nil {
		result.Verdict = canvas.VerdictMissingInput
		return result, ErrMissingInput
	}

	result.Verdict, result.Stats = a.validator.Inspect(req.Frame)
	if result.Verdict == canvas.VerdictInsufficientContent {
		a.logger.Debug("sketch too faint",
			"drawn_pixels", result.Stats.DrawnPixels,
			"threshold", result.Stats.Threshold,
		)
		return result, ErrInsufficientContent
	}

	artifact, err := canvas.Encode(req.Frame)
	if err != nil {
		// The frame never reached a decision.
		result.Verdict = ""
		return result, err
	}
	result.EncodedSize = artifact.Size

	if a.config.Limiter != nil && !a.config.Limiter.Allow() {
		a.logger.Warn("model call rate limited")
		return result, ErrRateLimited
	}

	provider := a.config.Provider
	if useRequestKey {
		provider, err = a.config.Factory(req.APIKey)
		if err != nil {
			if errors.Is(err, inference.ErrNoAPIKey) {
				return result, ErrMissingCredential
			}
			return result, fmt.Errorf("analyzer: build provider: %w", err)
		}
		defer provider.Close()
	}
	result.Provider = provider.Name()

	resp, err := provider.Vision(ctx, &inference.VisionRequest{
		Prompt:    p.Prompt,
		ImageURLs: []string{artifact.DataURI},
		Model:     a.config.Model,
		MaxTokens: a.config.MaxTokens,
	})
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		a.logger.Warn("vision call failed",
			"provider", provider.Name(),
			"status", inference.StatusCode(err),
			"error", err,
		)
		return result, &TransportError{
			StatusCode: inference.StatusCode(err),
			Provider:   provider.Name(),
			Err:        err,
		}
	}

	result.Model = resp.Model
	if result.Model == "" {
		result.Model = a.model(provider)
	}
	result.Usage = resp.Usage

	description := strings.TrimSpace(resp.Content)
	if description == "" {
		return result, ErrEmptyDescription
	}
	result.Description = description
	result.Report = p.Report(description)

	a.logger.Info("sketch described",
		"persona", p.Name,
		"provider", result.Provider,
		"model", result.Model,
		"drawn_pixels", result.Stats.DrawnPixels,
		"encoded_bytes", result.EncodedSize,
		"total_tokens", result.Usage.TotalTokens,
		"latency_ms", result.LatencyMs,
	)
	return result, nil
}

func (a *Analyzer) model(p inference.Provider) string {
	if a.config.Model != "" {
		return a.config.Model
	}
	return inference.ModelOf(p)
}
