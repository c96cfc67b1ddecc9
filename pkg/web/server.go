// Package web serves the sketch page and the analysis API.
package web

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-sketch/pkg/analyzer"
	"github.com/teslashibe/go-sketch/pkg/hub"
)

//go:embed static/index.html
var indexHTML []byte

// Canvas defaults served to the page.
const (
	CanvasWidth   = 400
	CanvasHeight  = 300
	StrokeMin     = 1
	StrokeMax     = 30
	StrokeDefault = 5
)

const shutdownTimeout = 5 * time.Second

// Config holds server configuration.
type Config struct {
	Addr        string
	Version     string
	BodyLimit   int
	CORSOrigins string
	Logger      *slog.Logger
}

// Option is a functional option for configuring the server.
type Option func(*Config)

// WithAddr sets the listen address, e.g. ":8080".
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(c *Config) { c.Version = v }
}

// WithBodyLimit sets the maximum request body size in bytes.
func WithBodyLimit(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BodyLimit = n
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins string) Option {
	return func(c *Config) {
		if origins != "" {
			c.CORSOrigins = origins
		}
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

// DefaultConfig returns server defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":8080",
		Version:     "dev",
		BodyLimit:   8 * 1024 * 1024,
		CORSOrigins: "*",
		Logger:      slog.Default(),
	}
}

// Server is the sketch web service.
type Server struct {
	app      *fiber.App
	config   *Config
	analyzer *analyzer.Analyzer
	activity *hub.Hub
	logger   *slog.Logger
}

// NewServer creates the server and registers its routes.
func NewServer(a *analyzer.Analyzer, opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger.With("component", "web")
	s := &Server{
		config:   cfg,
		analyzer: a,
		activity: hub.New("activity", cfg.Logger),
		logger:   logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-sketch",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(requestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/", s.handleIndex)
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/config", s.handleConfig)
	api.Get("/personas", s.handlePersonas)
	api.Post("/analyze", s.handleAnalyze)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/activity", websocket.New(func(c *websocket.Conn) {
		hub.Serve(s.activity, c)
	}))

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Activity returns the activity hub.
func (s *Server) Activity() *hub.Hub { return s.activity }

// Run serves on the configured address until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.activity.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		level := slog.LevelDebug
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.UserContext(), level, "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", requestID(c),
		)
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
