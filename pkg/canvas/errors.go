package canvas

import "errors"

// Sentinel errors for frame handling.
var (
	// ErrInvalidFrameShape is returned when a frame is not a 4-channel pixel grid
	// whose buffer matches its dimensions.
	ErrInvalidFrameShape = errors.New("canvas: invalid frame shape")

	// ErrInvalidDataURI is returned when a string is not a base64 data URI.
	ErrInvalidDataURI = errors.New("canvas: invalid data URI")

	// ErrUnsupportedImage is returned when uploaded bytes are not a decodable PNG.
	ErrUnsupportedImage = errors.New("canvas: unsupported image")

	// ErrFrameTooLarge is returned when an upload exceeds MaxDimension.
	ErrFrameTooLarge = errors.New("canvas: frame too large")
)
