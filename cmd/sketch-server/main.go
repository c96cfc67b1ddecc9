// sketch-server: serves the sketch page and describes drawings with a vision model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-sketch/internal/config"
	"github.com/teslashibe/go-sketch/internal/log"
	"github.com/teslashibe/go-sketch/pkg/analyzer"
	"github.com/teslashibe/go-sketch/pkg/inference"
	"github.com/teslashibe/go-sketch/pkg/persona"
	"github.com/teslashibe/go-sketch/pkg/web"
)

var (
	version     = "1.0.0"
	configPath  = flag.String("config", "", "Path to YAML config file")
	port        = flag.String("port", "", "HTTP server port (overrides config)")
	personaName = flag.String("persona", "", "Default persona (overrides config)")
	personaFile = flag.String("persona-file", "", "YAML file with extra personas")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sketch-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	overrideFromFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.LogLevel)
	logger := log.L()
	mainLog := log.Component("sketch-server")

	personas := persona.NewRegistry()
	if cfg.PersonaFile != "" {
		if err := personas.LoadFile(cfg.PersonaFile); err != nil {
			return err
		}
	}
	if err := personas.SetDefault(cfg.Persona); err != nil {
		return err
	}

	opts := []analyzer.Option{
		analyzer.WithThreshold(cfg.Threshold),
		analyzer.WithMaxTokens(cfg.MaxTokens),
		analyzer.WithModel(cfg.Model),
		analyzer.WithPersonas(personas),
		analyzer.WithRatePerMinute(cfg.RatePerMinute),
		analyzer.WithLogger(logger),
	}

	if key := cfg.APIKey(); key != "" {
		provider, err := cfg.NewProvider(key, logger)
		if err != nil {
			return err
		}
		defer provider.Close()
		opts = append(opts, analyzer.WithProvider(provider))
	}
	if cfg.AllowRequestKey {
		opts = append(opts, analyzer.WithProviderFactory(func(key string) (inference.Provider, error) {
			return cfg.NewProvider(key, logger)
		}))
	}

	a := analyzer.New(opts...)
	if !a.HasServerCredential() && !a.AcceptsRequestKeys() {
		mainLog.Warn("no API key configured and request keys disabled; every analysis will be rejected")
	}

	srv := web.NewServer(a,
		web.WithAddr(cfg.Addr()),
		web.WithVersion(version),
		web.WithBodyLimit(cfg.BodyLimitBytes()),
		web.WithCORSOrigins(cfg.CORSOrigins),
		web.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mainLog.Info("starting",
		"version", version,
		"addr", cfg.Addr(),
		"provider", cfg.Provider,
		"persona", personas.DefaultName(),
		"threshold", a.Threshold(),
		"server_credential", a.HasServerCredential(),
		"request_keys", a.AcceptsRequestKeys(),
	)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	mainLog.Info("shutdown complete")
	return nil
}

func overrideFromFlags(cfg *config.Config) {
	if *port != "" {
		cfg.Port = *port
	}
	if *personaName != "" {
		cfg.Persona = *personaName
	}
	if *personaFile != "" {
		cfg.PersonaFile = *personaFile
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
}
