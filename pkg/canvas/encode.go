package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
)

// MIMETypePNG is the only MIME type produced by the encoder.
const MIMETypePNG = "image/png"

// PNGDataURIPrefix precedes the base64 payload of every artifact.
const PNGDataURIPrefix = "data:" + MIMETypePNG + ";base64,"

// Artifact is a frame serialized as PNG and encoded for transport.
type Artifact struct {
	// Base64 is the standard base64 encoding of the PNG bytes.
	Base64 string

	// DataURI is Base64 prefixed with PNGDataURIPrefix.
	DataURI string

	// Size is the length of the PNG container in bytes.
	Size int
}

var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// Encode serializes an RGBA frame as an in-memory PNG and wraps it as a data URI.
// It fails with ErrInvalidFrameShape when the frame is not a consistent 4-channel grid.
func Encode(f *Frame) (*Artifact, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidFrameShape)
	}

	img, err := f.Image()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("canvas: encode png: %w", err)
	}

	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())
	return &Artifact{
		Base64:  b64,
		DataURI: PNGDataURIPrefix + b64,
		Size:    buf.Len(),
	}, nil
}

// DecodeArtifact reverses Encode, returning the frame held in a base64 PNG.
func DecodeArtifact(b64 string) (*Frame, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return DecodePNG(data)
}

// ParseDataURI splits a base64 data URI into its MIME type and payload.
func ParseDataURI(uri string) (mimeType, payload string, err error) {
	uri = strings.TrimSpace(uri)
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}

	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", "", fmt.Errorf("%w: payload is not base64", ErrInvalidDataURI)
	}
	if mimeType == "" || payload == "" {
		return "", "", fmt.Errorf("%w: empty mime type or payload", ErrInvalidDataURI)
	}
	return mimeType, payload, nil
}

// DecodeDataURI decodes a PNG data URI, as produced by a browser canvas, into a frame.
func DecodeDataURI(uri string) (*Frame, error) {
	mimeType, payload, err := ParseDataURI(uri)
	if err != nil {
		return nil, err
	}
	if mimeType != MIMETypePNG {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	return DecodeArtifact(payload)
}
