package persona

import "errors"

var (
	// ErrUnknownPersona is returned when a persona name is not registered.
	ErrUnknownPersona = errors.New("persona: unknown persona")

	// ErrInvalidPersona is returned when a persona is missing required fields.
	ErrInvalidPersona = errors.New("persona: invalid persona")
)
