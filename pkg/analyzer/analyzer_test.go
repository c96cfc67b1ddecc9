package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/teslashibe/go-sketch/pkg/canvas"
	"github.com/teslashibe/go-sketch/pkg/inference"
	"github.com/teslashibe/go-sketch/pkg/persona"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sketch returns a 400x300 transparent frame with an opaque n x n square.
func sketch(n int) *canvas.Frame {
	f := canvas.NewBlankFrame(400, 300)
	for y := 100; y < 100+n; y++ {
		for x := 150; x < 150+n; x++ {
			i := (y*f.Width + x) * canvas.RGBAChannels
			f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = 0x47, 0x3B, 0x2C, 0xFF
		}
	}
	return f
}

func TestAnalyzeSuccess(t *testing.T) {
	mock := inference.NewMockResponse("  Un barco de vela.\nTítulo de Catálogo: Nave Perdida  ")
	a := New(WithProvider(mock), WithLogger(quietLogger()))

	result, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Verdict != canvas.VerdictProceed {
		t.Errorf("Verdict = %s", result.Verdict)
	}
	if result.Stats.DrawnPixels != 100 {
		t.Errorf("DrawnPixels = %d", result.Stats.DrawnPixels)
	}
	if result.Description != "Un barco de vela.\nTítulo de Catálogo: Nave Perdida" {
		t.Errorf("Description = %q", result.Description)
	}
	if !strings.HasPrefix(result.Report, "📜 **Reporte del Archivista:**\n\n") {
		t.Errorf("Report = %q", result.Report)
	}
	if result.Persona != persona.Archivist {
		t.Errorf("Persona = %s", result.Persona)
	}
	if result.Provider != "mock" || result.Model != "mock-vision" {
		t.Errorf("Provider/Model = %s/%s", result.Provider, result.Model)
	}
	if result.EncodedSize == 0 {
		t.Error("Expected encoded size")
	}
}

func TestAnalyzeSendsSingleDataURI(t *testing.T) {
	mock := inference.NewMock()
	a := New(WithProvider(mock), WithLogger(quietLogger()), WithModel("gpt-4o"))

	frame := sketch(12)
	if _, err := a.Analyze(context.Background(), &Request{Frame: frame, Persona: "plain"}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if mock.CallCount("Vision") != 1 {
		t.Fatalf("Expected one model call, got %d", mock.CallCount("Vision"))
	}
	req := mock.LastRequest()
	if len(req.ImageURLs) != 1 {
		t.Fatalf("Expected one image, got %d", len(req.ImageURLs))
	}
	if req.MaxTokens != 500 {
		t.Errorf("MaxTokens = %d", req.MaxTokens)
	}
	if req.Model != "gpt-4o" {
		t.Errorf("Model = %s", req.Model)
	}

	plainPersona, _ := persona.NewRegistry().Get("plain")
	if req.Prompt != plainPersona.Prompt {
		t.Errorf("Prompt = %q", req.Prompt)
	}

	decoded, err := canvas.DecodeDataURI(req.ImageURLs[0])
	if err != nil {
		t.Fatalf("Sent image does not decode: %v", err)
	}
	if !decoded.Equal(frame) {
		t.Error("Sent image differs from the captured frame")
	}
}

func TestAnalyzeValidationOrder(t *testing.T) {
	tests := []struct {
		name        string
		provider    inference.Provider
		req         *Request
		wantErr     error
		wantVerdict canvas.Verdict
	}{
		{
			name:    "credential checked before input",
			req:     &Request{Frame: nil},
			wantErr: ErrMissingCredential,
		},
		{
			name:        "missing input",
			provider:    inference.NewMock(),
			req:         &Request{Frame: nil},
			wantErr:     ErrMissingInput,
			wantVerdict: canvas.VerdictMissingInput,
		},
		{
			name:        "transparent canvas",
			provider:    inference.NewMock(),
			req:         &Request{Frame: canvas.NewBlankFrame(400, 300)},
			wantErr:     ErrInsufficientContent,
			wantVerdict: canvas.VerdictInsufficientContent,
		},
		{
			name:        "below threshold",
			provider:    inference.NewMock(),
			req:         &Request{Frame: sketch(7)},
			wantErr:     ErrInsufficientContent,
			wantVerdict: canvas.VerdictInsufficientContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithLogger(quietLogger())}
			if tt.provider != nil {
				opts = append(opts, WithProvider(tt.provider))
			}
			a := New(opts...)

			result, err := a.Analyze(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if result.Verdict != tt.wantVerdict {
				t.Errorf("Verdict = %q, want %q", result.Verdict, tt.wantVerdict)
			}
			if m, ok := tt.provider.(*inference.Mock); ok && m.CallCount("Vision") != 0 {
				t.Error("Model should not be called when validation fails")
			}
		})
	}
}

func TestAnalyzeInvalidFrameShape(t *testing.T) {
	rgb, err := canvas.NewFrame(400, 300, 3, make([]byte, 400*300*3))
	if err != nil {
		t.Fatal(err)
	}

	mock := inference.NewMock()
	a := New(WithProvider(mock), WithLogger(quietLogger()))

	result, err := a.Analyze(context.Background(), &Request{Frame: rgb})
	if !errors.Is(err, canvas.ErrInvalidFrameShape) {
		t.Fatalf("Expected ErrInvalidFrameShape, got %v", err)
	}
	if Category(err) != CategoryInvalidFrameShape {
		t.Errorf("Category = %s", Category(err))
	}
	if result.Verdict != "" {
		t.Errorf("Unencodable frame should carry no verdict, got %s", result.Verdict)
	}
	if result.Stats.DrawnPixels != 400*300 {
		t.Errorf("DrawnPixels = %d", result.Stats.DrawnPixels)
	}
	if mock.CallCount("Vision") != 0 {
		t.Error("Model should not be called without an artifact")
	}
}

func TestAnalyzeTransportError(t *testing.T) {
	apiErr := &inference.APIError{StatusCode: 401, Message: "bad key", Provider: "openai"}
	a := New(WithProvider(inference.WithError(apiErr)), WithLogger(quietLogger()))

	_, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %T: %v", err, err)
	}
	if te.StatusCode != 401 {
		t.Errorf("StatusCode = %d", te.StatusCode)
	}
	if !errors.Is(err, apiErr) {
		t.Error("TransportError should unwrap to the API error")
	}
	if Category(err) != CategoryTransport {
		t.Errorf("Category = %s", Category(err))
	}

	p, _ := persona.NewRegistry().Get("archivist")
	if msg := UserMessage(p, err); !strings.Contains(msg, "Código 401") {
		t.Errorf("Expected status in message, got %q", msg)
	}
}

func TestAnalyzeNetworkError(t *testing.T) {
	netErr := inference.WrapError("openai", errors.New("connection refused"))
	a := New(WithProvider(inference.WithError(netErr)), WithLogger(quietLogger()))

	_, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)})
	if Category(err) != CategoryTransport {
		t.Fatalf("Category = %s (%v)", Category(err), err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}

	reg := persona.NewRegistry()
	for _, name := range []string{persona.Archivist, persona.Plain} {
		p, _ := reg.Get(name)
		msg := UserMessage(p, err)
		if !strings.Contains(msg, "connection refused") {
			t.Errorf("%s: expected error text in %q", name, msg)
		}
		if strings.Contains(msg, "Código 0") || strings.Contains(msg, "status 0") {
			t.Errorf("%s: zero status leaked into %q", name, msg)
		}
	}
}

func TestAnalyzeEmptyDescription(t *testing.T) {
	for _, content := range []string{"", "   \n"} {
		mock := inference.NewMockResponse(content)
		a := New(WithProvider(mock), WithLogger(quietLogger()))

		result, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)})
		if !errors.Is(err, ErrEmptyDescription) {
			t.Fatalf("Expected ErrEmptyDescription for %q, got %v", content, err)
		}
		if result.Report != "" {
			t.Errorf("Expected no report, got %q", result.Report)
		}
		if mock.CallCount("Vision") != 1 {
			t.Errorf("Empty responses must not be retried, got %d calls", mock.CallCount("Vision"))
		}
	}
}

func TestAnalyzeRequestKey(t *testing.T) {
	perRequest := inference.NewMockResponse("from request key")
	var gotKey string
	factory := func(key string) (inference.Provider, error) {
		gotKey = key
		return perRequest, nil
	}

	// No server provider: the request key is the only credential.
	a := New(WithProviderFactory(factory), WithLogger(quietLogger()))

	if _, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)}); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Expected ErrMissingCredential without key, got %v", err)
	}

	result, err := a.Analyze(context.Background(), &Request{Frame: sketch(10), APIKey: "sk-user"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if gotKey != "sk-user" {
		t.Errorf("Factory got key %q", gotKey)
	}
	if result.Description != "from request key" {
		t.Errorf("Description = %q", result.Description)
	}
	if perRequest.CallCount("Close") != 1 {
		t.Error("Per-request provider should be closed")
	}
}

func TestAnalyzeRequestKeyIgnoredWithoutFactory(t *testing.T) {
	server := inference.NewMockResponse("server")
	a := New(WithProvider(server), WithLogger(quietLogger()))

	result, err := a.Analyze(context.Background(), &Request{Frame: sketch(10), APIKey: "sk-user"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Description != "server" {
		t.Errorf("Description = %q", result.Description)
	}
}

func TestAnalyzeFactoryErrors(t *testing.T) {
	a := New(WithLogger(quietLogger()), WithProviderFactory(func(string) (inference.Provider, error) {
		return nil, inference.WrapError("gemini", inference.ErrNoAPIKey)
	}))
	_, err := a.Analyze(context.Background(), &Request{Frame: sketch(10), APIKey: "x"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got %v", err)
	}

	a = New(WithLogger(quietLogger()), WithProviderFactory(func(string) (inference.Provider, error) {
		return nil, inference.ErrUnknownProvider
	}))
	_, err = a.Analyze(context.Background(), &Request{Frame: sketch(10), APIKey: "x"})
	if Category(err) != CategoryUnexpected {
		t.Errorf("Category = %s", Category(err))
	}
}

func TestAnalyzeUnknownPersona(t *testing.T) {
	a := New(WithProvider(inference.NewMock()), WithLogger(quietLogger()))
	_, err := a.Analyze(context.Background(), &Request{Frame: sketch(10), Persona: "pirate"})
	if !errors.Is(err, persona.ErrUnknownPersona) {
		t.Errorf("Expected ErrUnknownPersona, got %v", err)
	}
}

func TestThresholdOption(t *testing.T) {
	a := New(WithProvider(inference.NewMock()), WithThreshold(200), WithLogger(quietLogger()))
	if a.Threshold() != 200 {
		t.Fatalf("Threshold = %d", a.Threshold())
	}

	_, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)})
	if !errors.Is(err, ErrInsufficientContent) {
		t.Errorf("Expected 100 pixels to fall short of 200, got %v", err)
	}

	if New(WithThreshold(0)).Threshold() != canvas.DefaultThreshold {
		t.Error("Zero threshold should fall back to the default")
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrMissingCredential, CategoryMissingCredential},
		{fmt.Errorf("wrapped: %w", ErrMissingInput), CategoryMissingInput},
		{ErrInsufficientContent, CategoryInsufficientContent},
		{fmt.Errorf("encode: %w", canvas.ErrInvalidFrameShape), CategoryInvalidFrameShape},
		{&TransportError{StatusCode: 500, Provider: "openai", Err: errors.New("x")}, CategoryTransport},
		{ErrEmptyDescription, CategoryEmptyDescription},
		{errors.New("boom"), CategoryUnexpected},
	}

	for _, tt := range tests {
		if got := Category(tt.err); got != tt.want {
			t.Errorf("Category(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{StatusCode: 429, Provider: "openai", Err: errors.New("slow down")}
	if got := err.Error(); got != "analyzer: openai call failed with status 429: slow down" {
		t.Errorf("Error() = %q", got)
	}
	err.StatusCode = 0
	if got := err.Error(); got != "analyzer: openai call failed: slow down" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	mock := inference.NewMock()
	a := New(WithProvider(mock), WithRatePerMinute(1), WithLogger(quietLogger()))

	// Validation failures do not spend the budget.
	if _, err := a.Analyze(context.Background(), &Request{Frame: nil}); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("Expected ErrMissingInput, got %v", err)
	}

	if _, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)}); err != nil {
		t.Fatalf("First call should pass: %v", err)
	}
	_, err := a.Analyze(context.Background(), &Request{Frame: sketch(10)})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
	if Category(err) != CategoryRateLimited {
		t.Errorf("Category = %s", Category(err))
	}
	if mock.CallCount("Vision") != 1 {
		t.Errorf("Expected one model call, got %d", mock.CallCount("Vision"))
	}
}

func TestCheckCredential(t *testing.T) {
	a := New(WithLogger(quietLogger()))
	if !errors.Is(a.CheckCredential("sk"), ErrMissingCredential) {
		t.Error("Request key without factory should not count")
	}
	if a.HasServerCredential() || a.AcceptsRequestKeys() {
		t.Error("Bare analyzer has no credentials")
	}

	a = New(WithProvider(inference.NewMock()))
	if err := a.CheckCredential(""); err != nil {
		t.Errorf("Server provider should satisfy the check: %v", err)
	}
}

func TestHealth(t *testing.T) {
	if err := New(WithLogger(quietLogger())).Health(context.Background()); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential without a provider, got %v", err)
	}

	mock := inference.NewMock()
	if err := New(WithProvider(mock), WithLogger(quietLogger())).Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
	if mock.CallCount("Health") != 1 {
		t.Errorf("Health calls = %d", mock.CallCount("Health"))
	}

	down := errors.New("down")
	if err := New(WithProvider(inference.WithError(down)), WithLogger(quietLogger())).Health(context.Background()); !errors.Is(err, down) {
		t.Errorf("Expected provider error, got %v", err)
	}
}
