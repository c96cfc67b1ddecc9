// Package inference sends images to vision-capable chat models.
//
// Images travel as data URIs that the caller has already encoded, so a provider
// never re-compresses pixels. The OpenAI-compatible Client places them in a
// single user message next to the text instruction:
//
//	{"type": "image_url", "image_url": {"url": "data:image/png;base64,..."}}
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithModel("gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Vision(ctx, &inference.VisionRequest{
//	    Prompt:    "Describe this sketch.",
//	    ImageURLs: []string{artifact.DataURI},
//	})
//
// Every call is a single attempt. Failures come back as *APIError or
// *ProviderError and are never retried here.
package inference

import "context"

// Provider is a vision model endpoint.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Vision describes one or more images given a text instruction.
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Role defines message roles in a conversation.
type Role string

// RoleUser is the only role a vision request sends.
const RoleUser Role = "user"

// VisionRequest for image analysis.
type VisionRequest struct {
	// Prompt is the natural-language instruction sent with the images.
	Prompt string

	// ImageURLs are base64 data URIs, e.g. "data:image/png;base64,...".
	ImageURLs []string

	// Model overrides the configured model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness; zero leaves the provider default.
	Temperature float64
}

// VisionResponse from image analysis.
type VisionResponse struct {
	// Content is the natural language response. It may be empty.
	Content string

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for analysis.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (r *VisionRequest) validate(provider string) error {
	if len(r.ImageURLs) == 0 {
		return WrapError(provider, ErrNoImage)
	}
	if r.Prompt == "" {
		return WrapError(provider, ErrNoPrompt)
	}
	return nil
}
