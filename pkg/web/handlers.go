package web

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-sketch/pkg/analyzer"
	"github.com/teslashibe/go-sketch/pkg/canvas"
	"github.com/teslashibe/go-sketch/pkg/hub"
	"github.com/teslashibe/go-sketch/pkg/persona"
)

// CategoryInvalidRequest marks bodies that could not be parsed.
const CategoryInvalidRequest = "invalid_request"

const healthTimeout = 5 * time.Second

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	// Image is a PNG data URI, or null when nothing was drawn.
	Image   *string `json:"image"`
	APIKey  string  `json:"api_key"`
	Persona string  `json:"persona"`
}

// AnalyzeResponse is returned by POST /api/analyze for every outcome.
type AnalyzeResponse struct {
	RequestID   string `json:"request_id"`
	Persona     string `json:"persona"`
	Verdict     string `json:"verdict,omitempty"`
	Category    string `json:"category,omitempty"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	Report      string `json:"report,omitempty"`
	Model       string `json:"model,omitempty"`
	DrawnPixels int    `json:"drawn_pixels"`
	LatencyMs   int64  `json:"latency_ms"`
}

// ConfigResponse is returned by GET /api/config.
type ConfigResponse struct {
	Canvas           CanvasConfig `json:"canvas"`
	Threshold        int          `json:"threshold"`
	DefaultPersona   string       `json:"default_persona"`
	ServerCredential bool         `json:"server_credential"`
	RequestKeys      bool         `json:"request_keys"`
}

// CanvasConfig describes the drawing surface.
type CanvasConfig struct {
	Width         int `json:"width"`
	Height        int `json:"height"`
	StrokeMin     int `json:"stroke_min"`
	StrokeMax     int `json:"stroke_max"`
	StrokeDefault int `json:"stroke_default"`
}

// handleIndex serves the embedded page.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// handleHealth reports liveness. With ?deep=1 it also checks the model provider.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":            "ok",
		"version":           s.config.Version,
		"activity_running":  s.activity.IsRunning(),
		"activity_clients":  s.activity.ClientCount(),
		"activity_dropped":  s.activity.Dropped(),
		"server_credential": s.analyzer.HasServerCredential(),
	}
	if !c.QueryBool("deep") {
		return c.JSON(body)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	err := s.analyzer.Health(ctx)
	switch {
	case err == nil:
		body["provider"] = "ok"
	case errors.Is(err, analyzer.ErrMissingCredential):
		body["provider"] = "unconfigured"
	default:
		s.logger.Warn("provider health check failed", "error", err)
		body["status"] = "degraded"
		body["provider"] = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}

// handleConfig returns canvas defaults and validation settings.
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(ConfigResponse{
		Canvas: CanvasConfig{
			Width:         CanvasWidth,
			Height:        CanvasHeight,
			StrokeMin:     StrokeMin,
			StrokeMax:     StrokeMax,
			StrokeDefault: StrokeDefault,
		},
		Threshold:        s.analyzer.Threshold(),
		DefaultPersona:   s.analyzer.Personas().DefaultName(),
		ServerCredential: s.analyzer.HasServerCredential(),
		RequestKeys:      s.analyzer.AcceptsRequestKeys(),
	})
}

// handlePersonas lists the presentation variants.
func (s *Server) handlePersonas(c *fiber.Ctx) error {
	reg := s.analyzer.Personas()
	return c.JSON(fiber.Map{
		"default":  reg.DefaultName(),
		"personas": reg.All(),
	})
}

// handleAnalyze runs one analysis action.
func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	resp := AnalyzeResponse{RequestID: requestID(c)}

	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		resp.Category = CategoryInvalidRequest
		resp.Message = "request body must be JSON with an image field"
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}

	p, err := s.analyzer.Personas().Get(req.Persona)
	if err != nil {
		resp.Category = CategoryInvalidRequest
		resp.Message = err.Error()
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	resp.Persona = p.Name

	// Credential is checked before the image, matching the pipeline order.
	if err := s.analyzer.CheckCredential(req.APIKey); err != nil {
		return s.respond(c, p, resp, nil, err)
	}

	var frame *canvas.Frame
	if req.Image != nil && strings.TrimSpace(*req.Image) != "" {
		frame, err = canvas.DecodeDataURI(*req.Image)
		if err != nil {
			s.logger.Debug("undecodable image", "request_id", resp.RequestID, "error", err)
			resp.Category = analyzer.CategoryInvalidFrameShape
			resp.Message = p.Message(persona.KeyInvalidFrameShape, 0)
			return c.Status(fiber.StatusBadRequest).JSON(resp)
		}
	}

	s.publish(hub.EventAnalysisStarted, fiber.Map{
		"request_id": resp.RequestID,
		"persona":    p.Name,
	})

	result, err := s.analyzer.Analyze(c.UserContext(), &analyzer.Request{
		Frame:   frame,
		APIKey:  req.APIKey,
		Persona: p.Name,
	})
	return s.respond(c, p, resp, result, err)
}

// respond fills resp from an analysis outcome, publishes it and writes it.
func (s *Server) respond(c *fiber.Ctx, p *persona.Persona, resp AnalyzeResponse, result *analyzer.Result, err error) error {
	if result != nil {
		resp.Verdict = string(result.Verdict)
		resp.Description = result.Description
		resp.Report = result.Report
		resp.Model = result.Model
		resp.DrawnPixels = result.Stats.DrawnPixels
		resp.LatencyMs = result.LatencyMs
	}

	status := fiber.StatusOK
	eventType := hub.EventAnalysisCompleted
	if err != nil {
		resp.Category = analyzer.Category(err)
		resp.Message = analyzer.UserMessage(p, err)
		status = statusFor(resp.Category)
		switch {
		case status == fiber.StatusUnprocessableEntity, status == fiber.StatusUnauthorized:
			eventType = hub.EventAnalysisRejected
		case status >= fiber.StatusInternalServerError, status == fiber.StatusTooManyRequests:
			eventType = hub.EventAnalysisFailed
		}
		if resp.Category == analyzer.CategoryUnexpected {
			s.logger.Error("analysis failed", "request_id", resp.RequestID, "error", err)
		}
	}

	// Viewers see outcomes only, never the description.
	s.publish(eventType, fiber.Map{
		"request_id":   resp.RequestID,
		"persona":      resp.Persona,
		"verdict":      resp.Verdict,
		"category":     resp.Category,
		"model":        resp.Model,
		"drawn_pixels": resp.DrawnPixels,
		"latency_ms":   resp.LatencyMs,
	})

	return c.Status(status).JSON(resp)
}

// publish sends an activity event. A failure only costs the viewers an event.
func (s *Server) publish(eventType string, data fiber.Map) {
	if err := s.activity.Publish(hub.NewEvent(eventType, data)); err != nil {
		s.logger.Debug("activity event dropped", "type", eventType, "error", err)
	}
}

// statusFor maps an error category to an HTTP status.
func statusFor(category string) int {
	switch category {
	case analyzer.CategoryMissingCredential:
		return fiber.StatusUnauthorized
	case analyzer.CategoryMissingInput, analyzer.CategoryInsufficientContent:
		return fiber.StatusUnprocessableEntity
	case analyzer.CategoryInvalidFrameShape:
		return fiber.StatusBadRequest
	case analyzer.CategoryTransport:
		return fiber.StatusBadGateway
	case analyzer.CategoryEmptyDescription:
		return fiber.StatusOK
	case analyzer.CategoryRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// handleError renders Fiber errors as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request error", "path", c.Path(), "request_id", requestID(c), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"request_id": requestID(c),
		"error":      err.Error(),
	})
}
