package analyzer

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-sketch/pkg/canvas"
	"github.com/teslashibe/go-sketch/pkg/persona"
)

// Sentinel errors for validation outcomes.
var (
	// ErrMissingCredential is returned when no API key is available for the model call.
	ErrMissingCredential = errors.New("analyzer: missing API credential")

	// ErrMissingInput is returned when no frame was captured.
	ErrMissingInput = errors.New("analyzer: no sketch provided")

	// ErrInsufficientContent is returned when fewer pixels than the threshold were drawn.
	ErrInsufficientContent = errors.New("analyzer: sketch has insufficient content")

	// ErrEmptyDescription is returned when the model answered without text.
	ErrEmptyDescription = errors.New("analyzer: model returned no description")

	// ErrRateLimited is returned when the model call budget is exhausted.
	ErrRateLimited = errors.New("analyzer: too many model calls")
)

// Categories reported to callers. They double as persona message keys.
const (
	CategoryMissingCredential   = persona.KeyMissingCredential
	CategoryMissingInput        = persona.KeyMissingInput
	CategoryInsufficientContent = persona.KeyInsufficientContent
	CategoryInvalidFrameShape   = persona.KeyInvalidFrameShape
	CategoryTransport           = persona.KeyTransport
	CategoryEmptyDescription    = persona.KeyEmptyDescription
	CategoryRateLimited         = persona.KeyRateLimited
	CategoryUnexpected          = persona.KeyUnexpected
)

// TransportError wraps a failed model call.
type TransportError struct {
	// StatusCode is the upstream HTTP status, or 0 when none was received.
	StatusCode int

	// Provider names the model provider.
	Provider string

	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("analyzer: %s call failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("analyzer: %s call failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Category maps err to the category reported to users. A nil error has no category.
func Category(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return CategoryMissingCredential
	case errors.Is(err, ErrMissingInput):
		return CategoryMissingInput
	case errors.Is(err, ErrInsufficientContent):
		return CategoryInsufficientContent
	case errors.Is(err, canvas.ErrInvalidFrameShape):
		return CategoryInvalidFrameShape
	case errors.As(err, &te):
		return CategoryTransport
	case errors.Is(err, ErrEmptyDescription):
		return CategoryEmptyDescription
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimited
	default:
		return CategoryUnexpected
	}
}

// StatusCode returns the upstream status carried by a TransportError, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// UserMessage returns the persona copy for err. Transport failures without
// an upstream status carry the underlying error text instead.
func UserMessage(p *persona.Persona, err error) string {
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode == 0 && te.Err != nil {
		return p.Detail(persona.KeyTransportNetwork, 0, te.Err.Error())
	}
	return p.Message(Category(err), StatusCode(err))
}
