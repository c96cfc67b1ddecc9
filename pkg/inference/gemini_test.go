package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teslashibe/go-sketch/pkg/canvas"
)

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestGeminiVision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("API key should travel in a header, not the query string")
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("Expected x-goog-api-key header, got %q", r.Header.Get("x-goog-api-key"))
		}

		var body geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 2 {
			t.Fatalf("Expected one content with two parts, got %+v", body.Contents)
		}
		parts := body.Contents[0].Parts
		if parts[0].Text != "Describe" {
			t.Errorf("Expected prompt part first, got %+v", parts[0])
		}
		if parts[1].InlineData == nil {
			t.Fatal("Expected inline_data part")
		}
		if parts[1].InlineData.MimeType != canvas.MIMETypePNG {
			t.Errorf("Expected image/png, got %s", parts[1].InlineData.MimeType)
		}
		if parts[1].InlineData.Data != "iVBORw0KGgo=" {
			t.Errorf("Expected bare base64 payload, got %s", parts[1].InlineData.Data)
		}
		if body.GenerationConfig.MaxOutputTokens != DefaultMaxTokens {
			t.Errorf("Expected maxOutputTokens %d, got %d", DefaultMaxTokens, body.GenerationConfig.MaxOutputTokens)
		}

		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "Una casa "}, {"text": "con chimenea."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 300, "candidatesTokenCount": 6, "totalTokenCount": 306}
		}`))
	}))
	defer server.Close()

	g, err := NewGemini(WithBaseURL(server.URL), WithAPIKey("g-key"))
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	defer g.Close()

	resp, err := g.Vision(context.Background(), &VisionRequest{
		Prompt:    "Describe",
		ImageURLs: []string{testDataURI},
	})
	if err != nil {
		t.Fatalf("Vision failed: %v", err)
	}
	if resp.Content != "Una casa con chimenea." {
		t.Errorf("Expected joined parts, got %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 306 {
		t.Errorf("Expected 306 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if resp.Model != DefaultGeminiModel {
		t.Errorf("Expected model %s, got %s", DefaultGeminiModel, resp.Model)
	}
}

func TestGeminiVisionBadDataURI(t *testing.T) {
	g, _ := NewGemini(WithBaseURL("http://127.0.0.1:1"), WithAPIKey("g-key"))
	_, err := g.Vision(context.Background(), &VisionRequest{
		Prompt:    "Describe",
		ImageURLs: []string{"not-a-data-uri"},
	})
	if !errors.Is(err, canvas.ErrInvalidDataURI) {
		t.Errorf("Expected ErrInvalidDataURI, got %v", err)
	}
}

func TestGeminiError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	g, _ := NewGemini(WithBaseURL(server.URL), WithAPIKey("g-key"))
	_, err := g.Vision(context.Background(), &VisionRequest{
		Prompt:    "Describe",
		ImageURLs: []string{testDataURI},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if !apiErr.IsForbidden() || apiErr.Code != "PERMISSION_DENIED" {
		t.Errorf("Unexpected APIError: %+v", apiErr)
	}
}

func TestGeminiNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	g, _ := NewGemini(WithBaseURL(server.URL), WithAPIKey("g-key"))
	_, err := g.Vision(context.Background(), &VisionRequest{
		Prompt:    "Describe",
		ImageURLs: []string{testDataURI},
	})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}
