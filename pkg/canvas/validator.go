package canvas

// DefaultThreshold is the minimum number of drawn pixels needed to proceed.
const DefaultThreshold = 50

// Verdict is the outcome of validating a frame.
type Verdict string

const (
	// VerdictProceed means the frame has enough content to analyze.
	VerdictProceed Verdict = "proceed"

	// VerdictInsufficientContent means fewer than Threshold pixels were drawn.
	VerdictInsufficientContent Verdict = "insufficient_content"

	// VerdictMissingInput means the drawing surface never produced a frame.
	VerdictMissingInput Verdict = "missing_input"
)

// Stats describes how much of a frame was drawn on.
type Stats struct {
	DrawnPixels int `json:"drawn_pixels"`
	TotalPixels int `json:"total_pixels"`
	Threshold   int `json:"threshold"`
}

// Validator decides whether a frame is substantial enough to analyze.
type Validator struct {
	threshold int
}

// Option configures a Validator.
type Option func(*Validator)

// WithThreshold sets the drawn-pixel threshold.
// Values <= 0 keep DefaultThreshold.
func WithThreshold(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.threshold = n
		}
	}
}

// NewValidator creates a validator with DefaultThreshold unless overridden.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Threshold returns the configured drawn-pixel threshold.
func (v *Validator) Threshold() int {
	return v.threshold
}

// Validate returns the verdict for a frame. A nil frame means no input.
func (v *Validator) Validate(f *Frame) Verdict {
	verdict, _ := v.Inspect(f)
	return verdict
}

// Inspect returns the verdict along with the pixel counts behind it.
func (v *Validator) Inspect(f *Frame) (Verdict, Stats) {
	stats := Stats{Threshold: v.threshold}
	if f == nil {
		return VerdictMissingInput, stats
	}

	stats.DrawnPixels = CountDrawn(f)
	stats.TotalPixels = f.PixelCount()

	if stats.DrawnPixels < v.threshold {
		return VerdictInsufficientContent, stats
	}
	return VerdictProceed, stats
}

// CountDrawn counts pixels whose alpha is strictly greater than zero.
// The background of an untouched canvas is fully transparent, so alpha rather
// than colour marks a pixel as drawn. Frames without an alpha channel have no
// transparent background and every complete pixel counts.
func CountDrawn(f *Frame) int {
	if f == nil || f.Channels <= 0 {
		return 0
	}

	pixels := len(f.Pix) / f.Channels
	if !f.HasAlpha() {
		return pixels
	}

	n := 0
	for i := 0; i < pixels; i++ {
		if f.Pix[i*RGBAChannels+alphaOffset] > 0 {
			n++
		}
	}
	return n
}
