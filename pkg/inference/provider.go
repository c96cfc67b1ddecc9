package inference

import (
	"fmt"
	"strings"
)

// Provider names accepted by NewProvider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// NewProvider builds the named provider. An empty name selects OpenAI.
func NewProvider(name string, opts ...Option) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderOpenAI:
		return NewClient(opts...)
	case ProviderGemini:
		return NewGemini(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// ModelOf reports the default model of p when it exposes one.
func ModelOf(p Provider) string {
	if m, ok := p.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
