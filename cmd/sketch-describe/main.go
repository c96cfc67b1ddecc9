// sketch-describe: describe a PNG sketch from the command line.
//
// Usage:
//
//	sketch-describe [flags] drawing.png
//	cat drawing.png | sketch-describe -persona plain
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-sketch/internal/config"
	"github.com/teslashibe/go-sketch/internal/log"
	"github.com/teslashibe/go-sketch/pkg/analyzer"
	"github.com/teslashibe/go-sketch/pkg/canvas"
	"github.com/teslashibe/go-sketch/pkg/persona"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 2
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	personaName = flag.String("persona", "", "Persona to use")
	personaFile = flag.String("persona-file", "", "YAML file with extra personas")
	threshold   = flag.Int("threshold", 0, "Minimum drawn pixels (overrides config)")
	provider    = flag.String("provider", "", "Model provider: openai or gemini")
	model       = flag.String("model", "", "Vision model (overrides config)")
	verbose     = flag.Bool("v", false, "Debug logging")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return exitFailure
	}
	if *threshold > 0 {
		cfg.Threshold = *threshold
	}
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *personaFile != "" {
		cfg.PersonaFile = *personaFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return exitFailure
	}

	log.Init("warn")
	if *verbose {
		log.SetLevel("debug")
	}

	personas := persona.NewRegistry()
	if cfg.PersonaFile != "" {
		if err := personas.LoadFile(cfg.PersonaFile); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			return exitFailure
		}
	}
	p, err := personas.Get(*personaName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return exitFailure
	}

	frame, err := readFrame(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return exitFailure
	}

	opts := []analyzer.Option{
		analyzer.WithThreshold(cfg.Threshold),
		analyzer.WithMaxTokens(cfg.MaxTokens),
		analyzer.WithModel(cfg.Model),
		analyzer.WithPersonas(personas),
		analyzer.WithLogger(log.L()),
	}
	if key := cfg.APIKey(); key != "" {
		prov, err := cfg.NewProvider(key, log.L())
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			return exitFailure
		}
		defer prov.Close()
		opts = append(opts, analyzer.WithProvider(prov))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stderr, p.Working)
	result, err := analyzer.New(opts...).Analyze(ctx, &analyzer.Request{
		Frame:   frame,
		Persona: p.Name,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, analyzer.UserMessage(p, err))
		switch {
		case errors.Is(err, analyzer.ErrMissingInput),
			errors.Is(err, analyzer.ErrInsufficientContent),
			errors.Is(err, analyzer.ErrMissingCredential),
			errors.Is(err, canvas.ErrInvalidFrameShape):
			return exitRejected
		default:
			return exitFailure
		}
	}

	fmt.Println(result.Report)
	return exitOK
}

// readFrame decodes a PNG from path, or from stdin when path is empty or "-".
// An empty input yields a nil frame.
func readFrame(path string) (*canvas.Frame, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sketch: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return canvas.DecodePNG(data)
}
