// Package canvas captures, validates and encodes freehand sketches.
//
// A Frame is the raw pixel grid produced by a drawing surface. The Validator
// decides whether enough has been drawn to be worth analyzing, and Encode turns
// a validated frame into a PNG data URI that can be embedded in a model request.
//
// Example usage:
//
//	frame, _ := canvas.DecodeDataURI(body.Image)
//
//	v := canvas.NewValidator(canvas.WithThreshold(50))
//	if v.Validate(frame) != canvas.VerdictProceed {
//	    return
//	}
//
//	artifact, _ := canvas.Encode(frame)
//	fmt.Println(artifact.DataURI)
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Layout of a drawable frame.
const (
	// RGBAChannels is the only channel layout the encoder accepts.
	RGBAChannels = 4

	// alphaOffset is the byte offset of the alpha channel inside an RGBA pixel.
	alphaOffset = 3

	// MaxDimension bounds the width and height of decoded uploads.
	MaxDimension = 4096
)

// Frame is a rectangular grid of 8-bit pixels, row-major, Channels bytes per pixel.
// A frame is treated as immutable once captured.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// NewFrame builds a frame and checks that the buffer matches the dimensions.
func NewFrame(width, height, channels int, pix []byte) (*Frame, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with %d channels", ErrInvalidFrameShape, width, height, channels)
	}
	if want := width * height * channels; len(pix) != want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%dx%d, want %d",
			ErrInvalidFrameShape, len(pix), width, height, channels, want)
	}
	return &Frame{Width: width, Height: height, Channels: channels, Pix: pix}, nil
}

// NewBlankFrame returns a fully transparent RGBA frame.
func NewBlankFrame(width, height int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: RGBAChannels,
		Pix:      make([]byte, width*height*RGBAChannels),
	}
}

// FrameFromImage converts any image into a non-premultiplied RGBA frame.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()

	var nrgba *image.NRGBA
	if src, ok := img.(*image.NRGBA); ok && src.Stride == b.Dx()*RGBAChannels {
		nrgba = src
	} else {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	pix := make([]byte, b.Dx()*b.Dy()*RGBAChannels)
	copy(pix, nrgba.Pix)

	return &Frame{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: RGBAChannels,
		Pix:      pix,
	}
}

// DecodePNG decodes PNG bytes into an RGBA frame.
func DecodePNG(data []byte) (*Frame, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrFrameTooLarge, cfg.Width, cfg.Height, MaxDimension)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return FrameFromImage(img), nil
}

// Image reinterprets the frame as an *image.NRGBA without copying.
// Only RGBA frames with a consistent buffer can be viewed this way.
func (f *Frame) Image() (*image.NRGBA, error) {
	if err := f.checkRGBA(); err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Width * RGBAChannels,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}, nil
}

// PixelCount is Width*Height.
func (f *Frame) PixelCount() int {
	return f.Width * f.Height
}

// HasAlpha reports whether the frame carries an alpha channel.
func (f *Frame) HasAlpha() bool {
	return f.Channels == RGBAChannels
}

// Equal reports whether two frames have the same layout and pixel bytes.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Width == other.Width &&
		f.Height == other.Height &&
		f.Channels == other.Channels &&
		bytes.Equal(f.Pix, other.Pix)
}

func (f *Frame) checkRGBA() error {
	if f.Channels != RGBAChannels {
		return fmt.Errorf("%w: %d channels, want %d", ErrInvalidFrameShape, f.Channels, RGBAChannels)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrameShape, f.Width, f.Height)
	}
	if want := f.Width * f.Height * RGBAChannels; len(f.Pix) != want {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidFrameShape, len(f.Pix), want)
	}
	return nil
}
