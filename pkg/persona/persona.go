// Package persona holds the presentation copy and theme for the sketch UI.
//
// A persona decides what the model is asked to do with a sketch, how the
// report is headed, and how each failure is worded for the user. The
// "archivist" persona frames every drawing as a forgotten library artifact;
// "plain" uses neutral English.
package persona

import (
	"fmt"
	"strings"
)

// Message keys, one per pipeline outcome.
const (
	KeyMissingCredential   = "missing_credential"
	KeyMissingInput        = "missing_input"
	KeyInsufficientContent = "insufficient_content"
	KeyInvalidFrameShape   = "invalid_frame_shape"
	KeyTransport           = "transport"
	KeyTransportNetwork    = "transport_network"
	KeyEmptyDescription    = "empty_description"
	KeyRateLimited         = "rate_limited"
	KeyUnexpected          = "unexpected"
)

// Placeholders substituted into message copy.
const (
	// StatusPlaceholder is replaced by the upstream HTTP status in transport copy.
	StatusPlaceholder = "{status}"

	// ErrorPlaceholder is replaced by the underlying error text.
	ErrorPlaceholder = "{error}"
)

// Theme colours for the page.
type Theme struct {
	Text   string `yaml:"text" json:"text"`
	Page   string `yaml:"page" json:"page"`
	Panel  string `yaml:"panel" json:"panel"`
	Frame  string `yaml:"frame" json:"frame"`
	Accent string `yaml:"accent" json:"accent"`
	Font   string `yaml:"font" json:"font"`
}

// Persona is one presentation variant.
type Persona struct {
	Name     string `yaml:"name" json:"name"`
	Language string `yaml:"language" json:"language"`
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
	Mission  string `yaml:"mission" json:"mission"`

	KeyLabel    string `yaml:"key_label" json:"key_label"`
	StrokeLabel string `yaml:"stroke_label" json:"stroke_label"`
	ButtonLabel string `yaml:"button_label" json:"button_label"`
	Working     string `yaml:"working" json:"working"`

	// Prompt is the instruction sent to the model with the sketch.
	Prompt string `yaml:"prompt" json:"prompt"`

	// ReportHeading is prepended to the model description.
	ReportHeading string `yaml:"report_heading" json:"report_heading"`

	StrokeColor string `yaml:"stroke_color" json:"stroke_color"`
	Background  string `yaml:"background" json:"background"`
	Theme       Theme  `yaml:"theme" json:"theme"`

	Messages map[string]string `yaml:"messages" json:"messages"`
}

// Validate checks the fields a persona cannot work without.
func (p *Persona) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPersona)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: %s: prompt is required", ErrInvalidPersona, p.Name)
	}
	return nil
}

// Report builds the user-facing report from a model description.
func (p *Persona) Report(description string) string {
	if p.ReportHeading == "" {
		return description
	}
	return p.ReportHeading + "\n\n" + description
}

// Message returns the copy for key. Transport copy has StatusPlaceholder
// replaced by status. Unknown keys fall back to the unexpected message.
func (p *Persona) Message(key string, status int) string {
	return p.Detail(key, status, "")
}

// Detail is Message with ErrorPlaceholder replaced by detail.
func (p *Persona) Detail(key string, status int, detail string) string {
	msg, ok := p.Messages[key]
	if !ok || msg == "" {
		msg = p.Messages[KeyUnexpected]
	}
	if msg == "" {
		msg = key
	}
	return strings.NewReplacer(
		StatusPlaceholder, fmt.Sprint(status),
		ErrorPlaceholder, detail,
	).Replace(msg)
}

// Clone returns a deep copy.
func (p *Persona) Clone() *Persona {
	cp := *p
	cp.Messages = make(map[string]string, len(p.Messages))
	for k, v := range p.Messages {
		cp.Messages[k] = v
	}
	return &cp
}

// merge overlays the non-empty fields of o onto p.
func (p *Persona) merge(o *Persona) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&p.Language, o.Language)
	set(&p.Title, o.Title)
	set(&p.Subtitle, o.Subtitle)
	set(&p.Mission, o.Mission)
	set(&p.KeyLabel, o.KeyLabel)
	set(&p.StrokeLabel, o.StrokeLabel)
	set(&p.ButtonLabel, o.ButtonLabel)
	set(&p.Working, o.Working)
	set(&p.Prompt, o.Prompt)
	set(&p.ReportHeading, o.ReportHeading)
	set(&p.StrokeColor, o.StrokeColor)
	set(&p.Background, o.Background)
	set(&p.Theme.Text, o.Theme.Text)
	set(&p.Theme.Page, o.Theme.Page)
	set(&p.Theme.Panel, o.Theme.Panel)
	set(&p.Theme.Frame, o.Theme.Frame)
	set(&p.Theme.Accent, o.Theme.Accent)
	set(&p.Theme.Font, o.Theme.Font)

	if p.Messages == nil {
		p.Messages = make(map[string]string, len(o.Messages))
	}
	for k, v := range o.Messages {
		if v != "" {
			p.Messages[k] = v
		}
	}
}
